package team

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"ctf-portal/internal/api/client"
	"ctf-portal/internal/domain"
	"ctf-portal/internal/normalize"
	"ctf-portal/internal/validate"
)

const (
	defaultPageSize = 20
	myTeamsPageSize = 100
)

type Service struct {
	api       domain.Sender
	validator validate.Validator
	logger    *zap.Logger
}

func NewService(api domain.Sender, v validate.Validator, logger *zap.Logger) *Service {
	return &Service{api: api, validator: v, logger: logger}
}

// MyTeam returns the caller's team, scoped to a competition when one is
// given. Nil means no team; failures read the same way.
func (s *Service) MyTeam(ctx context.Context, competitionID normalize.ID) *Team {
	q := url.Values{}
	domain.SetID(q, "competitionId", competitionID)

	var raw json.RawMessage
	if err := domain.Get(ctx, s.api, "/teams/my-team", q, &raw, "failed to load team"); err != nil {
		s.logger.Debug("my team unavailable", zap.Error(err))
		return nil
	}
	if has, ok := normalize.ParseRecord(raw).Bool("hasTeam"); ok && !has {
		return nil
	}
	var t Team
	if err := json.Unmarshal(raw, &t); err != nil {
		s.logger.Debug("my team payload not a team", zap.Error(err))
		return nil
	}
	return &t
}

// HasTeam reports whether the caller belongs to a team in the competition.
func (s *Service) HasTeam(ctx context.Context, competitionID normalize.ID) bool {
	return s.MyTeam(ctx, competitionID) != nil
}

func (s *Service) MyTeams(ctx context.Context, q domain.PageQuery) (normalize.Page[Team], error) {
	return domain.FetchPage[Team](ctx, s.api, "/teams/my-teams", q.Values(myTeamsPageSize), "teams")
}

func (s *Service) List(ctx context.Context, q ListQuery) (normalize.Page[Team], error) {
	params := q.Values(defaultPageSize)
	domain.SetID(params, "competitionId", q.CompetitionID)
	domain.SetString(params, "auditState", q.AuditState)
	domain.SetString(params, "keyword", q.Keyword)
	return domain.FetchPage[Team](ctx, s.api, "/teams", params, "teams")
}

func (s *Service) Get(ctx context.Context, id normalize.ID) (*Team, error) {
	var t Team
	if err := domain.Get(ctx, s.api, domain.Path("teams", id), nil, &t, "failed to load team"); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Team, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	var t Team
	if err := domain.Fetch(ctx, s.api, http.MethodPost, "/teams", client.Options{Body: req}, &t, "failed to create team"); err != nil {
		return nil, err
	}
	s.logger.Info("team created", zap.Stringer("team", t.ID), zap.Stringer("competition", req.CompetitionID))
	return &t, nil
}

func (s *Service) Update(ctx context.Context, id normalize.ID, req *UpdateRequest) (*Team, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	var t Team
	if err := domain.Fetch(ctx, s.api, http.MethodPut, domain.Path("teams", id), client.Options{Body: req}, &t, "failed to update team"); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Service) Disband(ctx context.Context, id normalize.ID) error {
	return domain.Do(ctx, s.api, http.MethodDelete, domain.Path("teams", id), client.Options{}, "failed to disband team")
}

type remarkBody struct {
	Remark string `json:"remark,omitempty"`
}

// Apply asks to join a team.
func (s *Service) Apply(ctx context.Context, id normalize.ID, remark string) (*Application, error) {
	var app Application
	o := client.Options{Body: remarkBody{Remark: remark}}
	if err := domain.Fetch(ctx, s.api, http.MethodPost, domain.Path("teams", id, "apply"), o, &app, "failed to apply to team"); err != nil {
		return nil, err
	}
	return &app, nil
}

func (s *Service) Leave(ctx context.Context, id normalize.ID) error {
	return domain.Do(ctx, s.api, http.MethodPost, domain.Path("teams", id, "leave"), client.Options{}, "failed to leave team")
}

func (s *Service) Applications(ctx context.Context, id normalize.ID, q ApplicationQuery) (normalize.Page[Application], error) {
	params := q.Values(defaultPageSize)
	domain.SetString(params, "status", q.Status)
	return domain.FetchPage[Application](ctx, s.api, domain.Path("teams", id, "applications"), params, "applications")
}

func (s *Service) MyApplications(ctx context.Context, q domain.PageQuery) (normalize.Page[Application], error) {
	return domain.FetchPage[Application](ctx, s.api, "/teams/my-applications", q.Values(defaultPageSize), "applications")
}

// ProcessApplication approves or rejects a join request. Only the captain
// may do this; the platform enforces it.
func (s *Service) ProcessApplication(ctx context.Context, appID normalize.ID, approved bool, remark string) (*Application, error) {
	body := struct {
		Approved bool   `json:"approved"`
		Remark   string `json:"remark,omitempty"`
	}{approved, remark}
	var app Application
	err := domain.Fetch(ctx, s.api, http.MethodPost, domain.Path("teams", "applications", appID, "process"), client.Options{Body: body}, &app, "failed to process application")
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (s *Service) TransferCaptain(ctx context.Context, id, newCaptain normalize.ID) error {
	body := map[string]normalize.ID{"newCaptainId": newCaptain}
	return domain.Do(ctx, s.api, http.MethodPost, domain.Path("teams", id, "transfer-captain"), client.Options{Body: body}, "failed to transfer captain")
}

func (s *Service) RemoveMember(ctx context.Context, id, member normalize.ID) error {
	return domain.Do(ctx, s.api, http.MethodDelete, domain.Path("teams", id, "members", member), client.Options{}, "failed to remove member")
}

// Audit records a review decision on a team. state is one of the Audit*
// codes.
func (s *Service) Audit(ctx context.Context, id normalize.ID, state, remark string) (*Team, error) {
	body := struct {
		AuditState  string `json:"auditState"`
		AuditRemark string `json:"auditRemark,omitempty"`
	}{state, remark}
	var t Team
	if err := domain.Fetch(ctx, s.api, http.MethodPost, domain.Path("teams", id, "audit"), client.Options{Body: body}, &t, "failed to audit team"); err != nil {
		return nil, err
	}
	return &t, nil
}

// CanJoin asks whether the caller may apply; failures read as no.
func (s *Service) CanJoin(ctx context.Context, id normalize.ID) Eligibility {
	var e Eligibility
	if err := domain.Get(ctx, s.api, domain.Path("teams", id, "can-join"), nil, &e, "eligibility check failed"); err != nil {
		s.logger.Debug("eligibility check failed", zap.Stringer("team", id), zap.Error(err))
		return Eligibility{}
	}
	return e
}

func (s *Service) Stats(ctx context.Context, id normalize.ID) (Stats, error) {
	stats := Stats{}
	if err := domain.Get(ctx, s.api, domain.Path("teams", id, "stats"), nil, &stats, "failed to load team statistics"); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Service) Invite(ctx context.Context, id, user normalize.ID) error {
	body := map[string]normalize.ID{"targetUserId": user}
	return domain.Do(ctx, s.api, http.MethodPost, domain.Path("teams", id, "invite"), client.Options{Body: body}, "failed to invite user")
}
