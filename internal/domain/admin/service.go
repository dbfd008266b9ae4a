// Package admin wraps the platform's back-office endpoints. Every call
// requires an administrator session; the platform answers 403 otherwise.
package admin

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"ctf-portal/internal/api/client"
	"ctf-portal/internal/domain"
	"ctf-portal/internal/domain/auth"
	"ctf-portal/internal/domain/challenge"
	"ctf-portal/internal/domain/competition"
	"ctf-portal/internal/domain/flag"
	"ctf-portal/internal/domain/team"
	"ctf-portal/internal/normalize"
	"ctf-portal/internal/validate"
	"ctf-portal/pkg/errors"
)

const (
	defaultPageSize = 20
	defaultUserSort = "createTime"
)

type Service struct {
	api        domain.Sender
	validator  validate.Validator
	logger     *zap.Logger
	challenges *challenge.Service
	flags      *flag.Service
}

func NewService(api domain.Sender, v validate.Validator, logger *zap.Logger) *Service {
	return &Service{
		api:        api,
		validator:  v,
		logger:     logger,
		challenges: challenge.NewService(api, v, logger),
		flags:      flag.NewService(api),
	}
}

func (s *Service) Dashboard(ctx context.Context) (Stats, error) {
	return s.stats(ctx, "/admin/dashboard", "failed to load dashboard")
}

func (s *Service) stats(ctx context.Context, path, fallback string) (Stats, error) {
	out := Stats{}
	if err := domain.Get(ctx, s.api, path, nil, &out, fallback); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) audit(action string, fields ...zap.Field) {
	s.logger.Info("admin "+action, fields...)
}

// Users

func (s *Service) Users(ctx context.Context, q UserQuery) (normalize.Page[auth.User], error) {
	params := q.Values(defaultPageSize)
	sort := q.Sort
	if sort == "" {
		sort = defaultUserSort
	}
	params.Set("sort", sort)
	domain.SetString(params, "keyword", q.Keyword)
	return domain.FetchPage[auth.User](ctx, s.api, "/admin/users", params, "users")
}

func (s *Service) User(ctx context.Context, id normalize.ID) (*auth.User, error) {
	var u auth.User
	if err := domain.Get(ctx, s.api, domain.Path("admin", "users", id), nil, &u, "failed to load user"); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Service) UpdateUser(ctx context.Context, id normalize.ID, req *UpdateUserRequest) (*auth.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	var u auth.User
	err := domain.Fetch(ctx, s.api, http.MethodPut, domain.Path("admin", "users", id), client.Options{Body: req}, &u, "failed to update user")
	if err != nil {
		return nil, err
	}
	s.audit("user updated", zap.Stringer("user", id))
	return &u, nil
}

func (s *Service) DisableUser(ctx context.Context, id normalize.ID) error {
	if err := domain.Do(ctx, s.api, http.MethodPost, domain.Path("admin", "users", id, "disable"), client.Options{}, "failed to disable user"); err != nil {
		return err
	}
	s.audit("user disabled", zap.Stringer("user", id))
	return nil
}

func (s *Service) EnableUser(ctx context.Context, id normalize.ID) error {
	if err := domain.Do(ctx, s.api, http.MethodPost, domain.Path("admin", "users", id, "enable"), client.Options{}, "failed to enable user"); err != nil {
		return err
	}
	s.audit("user enabled", zap.Stringer("user", id))
	return nil
}

func (s *Service) DeleteUser(ctx context.Context, id normalize.ID) error {
	if err := domain.Do(ctx, s.api, http.MethodDelete, domain.Path("admin", "users", id), client.Options{}, "failed to delete user"); err != nil {
		return err
	}
	s.audit("user deleted", zap.Stringer("user", id))
	return nil
}

// Teams

func (s *Service) Teams(ctx context.Context, q TeamQuery) (normalize.Page[team.Team], error) {
	params := q.Values(defaultPageSize)
	domain.SetID(params, "competitionId", q.CompetitionID)
	domain.SetString(params, "auditState", q.AuditState)
	return domain.FetchPage[team.Team](ctx, s.api, "/admin/teams", params, "teams")
}

func (s *Service) Team(ctx context.Context, id normalize.ID) (*team.Team, error) {
	var t team.Team
	if err := domain.Get(ctx, s.api, domain.Path("admin", "teams", id), nil, &t, "failed to load team"); err != nil {
		return nil, err
	}
	return &t, nil
}

// AuditTeam records a review decision. state is team.AuditApproved or
// team.AuditRejected.
func (s *Service) AuditTeam(ctx context.Context, id normalize.ID, state, remark string) (*team.Team, error) {
	if state != team.AuditApproved && state != team.AuditRejected && state != team.AuditPending {
		return nil, errors.NewValidationError("auditState must be one of [0 1 2]")
	}
	body := struct {
		AuditState  string `json:"auditState"`
		AuditRemark string `json:"auditRemark,omitempty"`
	}{state, remark}
	var t team.Team
	err := domain.Fetch(ctx, s.api, http.MethodPost, domain.Path("admin", "teams", id, "audit"), client.Options{Body: body}, &t, "failed to audit team")
	if err != nil {
		return nil, err
	}
	s.audit("team audited", zap.Stringer("team", id), zap.String("state", state))
	return &t, nil
}

func (s *Service) DeleteTeam(ctx context.Context, id normalize.ID) error {
	if err := domain.Do(ctx, s.api, http.MethodDelete, domain.Path("admin", "teams", id), client.Options{}, "failed to delete team"); err != nil {
		return err
	}
	s.audit("team deleted", zap.Stringer("team", id))
	return nil
}

func (s *Service) TeamStats(ctx context.Context, competitionID normalize.ID) (Stats, error) {
	return s.stats(ctx, domain.Path("admin", "competitions", competitionID, "team-stats"), "failed to load team statistics")
}

// Competitions

func (s *Service) Competitions(ctx context.Context, q CompetitionQuery) (normalize.Page[competition.Competition], error) {
	params := q.Values(defaultPageSize)
	domain.SetString(params, "status", q.Status)
	return domain.FetchPage[competition.Competition](ctx, s.api, "/admin/competitions", params, "competitions")
}

func (s *Service) Competition(ctx context.Context, id normalize.ID) (*competition.Competition, error) {
	var c competition.Competition
	if err := domain.Get(ctx, s.api, domain.Path("admin", "competitions", id), nil, &c, "failed to load competition"); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) CreateCompetition(ctx context.Context, req *CompetitionRequest) (*competition.Competition, error) {
	return s.saveCompetition(ctx, http.MethodPost, "/admin/competitions", req, "failed to create competition")
}

func (s *Service) UpdateCompetition(ctx context.Context, id normalize.ID, req *CompetitionRequest) (*competition.Competition, error) {
	return s.saveCompetition(ctx, http.MethodPut, domain.Path("admin", "competitions", id), req, "failed to update competition")
}

func (s *Service) saveCompetition(ctx context.Context, method, path string, req *CompetitionRequest, fallback string) (*competition.Competition, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.EndTime <= req.StartTime {
		return nil, errors.NewValidationError("endTime must be after startTime")
	}
	var c competition.Competition
	if err := domain.Fetch(ctx, s.api, method, path, client.Options{Body: req}, &c, fallback); err != nil {
		return nil, err
	}
	s.audit("competition saved", zap.Stringer("competition", c.ID), zap.String("method", method))
	return &c, nil
}

func (s *Service) AuditCompetition(ctx context.Context, id normalize.ID, approved bool, remark string) (*competition.Competition, error) {
	body := struct {
		Approved    bool   `json:"approved"`
		AuditRemark string `json:"auditRemark,omitempty"`
	}{approved, remark}
	var c competition.Competition
	err := domain.Fetch(ctx, s.api, http.MethodPost, domain.Path("admin", "competitions", id, "audit"), client.Options{Body: body}, &c, "failed to audit competition")
	if err != nil {
		return nil, err
	}
	s.audit("competition audited", zap.Stringer("competition", id), zap.Bool("approved", approved))
	return &c, nil
}

func (s *Service) DeleteCompetition(ctx context.Context, id normalize.ID) error {
	if err := domain.Do(ctx, s.api, http.MethodDelete, domain.Path("admin", "competitions", id), client.Options{}, "failed to delete competition"); err != nil {
		return err
	}
	s.audit("competition deleted", zap.Stringer("competition", id))
	return nil
}

func (s *Service) CompetitionStats(ctx context.Context, id normalize.ID) (Stats, error) {
	return s.stats(ctx, domain.Path("admin", "competitions", id, "stats"), "failed to load competition statistics")
}

// Challenges and submissions

func (s *Service) Challenges(ctx context.Context, q challenge.ListQuery) (normalize.Page[challenge.Challenge], error) {
	return s.challenges.List(ctx, q)
}

func (s *Service) CreateChallenge(ctx context.Context, req *challenge.Request) (*challenge.Challenge, error) {
	c, err := s.challenges.Create(ctx, req)
	if err == nil {
		s.audit("challenge created", zap.Stringer("challenge", c.ID))
	}
	return c, err
}

func (s *Service) UpdateChallenge(ctx context.Context, id normalize.ID, req *challenge.Request) (*challenge.Challenge, error) {
	c, err := s.challenges.Update(ctx, id, req)
	if err == nil {
		s.audit("challenge updated", zap.Stringer("challenge", id))
	}
	return c, err
}

func (s *Service) DeleteChallenge(ctx context.Context, id normalize.ID) error {
	err := s.challenges.Delete(ctx, id)
	if err == nil {
		s.audit("challenge deleted", zap.Stringer("challenge", id))
	}
	return err
}

func (s *Service) FlagSubmissions(ctx context.Context, q flag.SubmissionQuery) (normalize.Page[flag.Submission], error) {
	return s.flags.Submissions(ctx, q)
}
