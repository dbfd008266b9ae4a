package challenge

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"ctf-portal/internal/api/client"
	"ctf-portal/internal/domain"
	"ctf-portal/internal/normalize"
	"ctf-portal/internal/validate"
)

const (
	defaultPageSize     = 20
	competitionPageSize = 100
)

type Service struct {
	api       domain.Sender
	validator validate.Validator
	logger    *zap.Logger
}

func NewService(api domain.Sender, v validate.Validator, logger *zap.Logger) *Service {
	return &Service{api: api, validator: v, logger: logger}
}

func (s *Service) List(ctx context.Context, q ListQuery) (normalize.Page[Challenge], error) {
	params := q.Values(defaultPageSize)
	domain.SetID(params, "competitionId", q.CompetitionID)
	domain.SetString(params, "category", q.Category)
	domain.SetString(params, "difficulty", q.Difficulty)
	domain.SetString(params, "keyword", q.Keyword)
	return domain.FetchPage[Challenge](ctx, s.api, "/challenges", params, "challenges")
}

// ByCompetition returns the first page of a competition's challenges.
func (s *Service) ByCompetition(ctx context.Context, competitionID normalize.ID) ([]Challenge, error) {
	page, err := s.List(ctx, ListQuery{
		PageQuery:     domain.PageQuery{Size: competitionPageSize},
		CompetitionID: competitionID,
	})
	return page.Items, err
}

// Get loads one challenge. The detail endpoint wraps the entity together
// with the caller's solved flag; a bare entity is accepted too.
func (s *Service) Get(ctx context.Context, id normalize.ID) (*Challenge, error) {
	var raw json.RawMessage
	if err := domain.Get(ctx, s.api, domain.Path("challenges", id), nil, &raw, "failed to load challenge"); err != nil {
		return nil, err
	}
	rec := normalize.ParseRecord(raw)
	if inner, ok := rec["challenge"]; ok {
		var c Challenge
		if err := json.Unmarshal(inner, &c); err != nil {
			return nil, err
		}
		if solved, ok := rec.Bool("solved"); ok {
			c.Solved = solved
		}
		return &c, nil
	}
	var c Challenge
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Submit sends a flag for judging. A rejected flag is a successful call
// with Correct false; the platform's refusal message (e.g. the challenge
// is closed) comes back as an ApiError.
func (s *Service) Submit(ctx context.Context, id normalize.ID, flag string) (*SubmitResult, error) {
	req := &SubmitRequest{Flag: flag}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	var res SubmitResult
	err := domain.Fetch(ctx, s.api, http.MethodPost, domain.Path("challenges", id, "submit"), client.Options{Body: req}, &res, "flag submission failed")
	if err != nil {
		return nil, err
	}
	s.logger.Info("flag submitted",
		zap.Stringer("challenge", id),
		zap.Bool("correct", res.Correct),
		zap.Int("points", res.PointsAwarded))
	return &res, nil
}

// Solved reports whether the caller has solved the challenge. Failures
// read as unsolved.
func (s *Service) Solved(ctx context.Context, id normalize.ID) bool {
	var resp struct {
		Solved bool `json:"solved"`
	}
	if err := domain.Get(ctx, s.api, domain.Path("challenges", id, "solved"), nil, &resp, "solved check failed"); err != nil {
		s.logger.Debug("solved check failed", zap.Stringer("challenge", id), zap.Error(err))
		return false
	}
	return resp.Solved
}

// Hints lists the hints of a challenge; failures yield none.
func (s *Service) Hints(ctx context.Context, id normalize.ID) []Hint {
	hints, err := domain.FetchList[Hint](ctx, s.api, domain.Path("challenges", id, "hints"), nil, "hints", "failed to load hints")
	if err != nil {
		s.logger.Debug("hints unavailable", zap.Stringer("challenge", id), zap.Error(err))
		return []Hint{}
	}
	return hints
}

func (s *Service) Create(ctx context.Context, req *Request) (*Challenge, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	var c Challenge
	if err := domain.Fetch(ctx, s.api, http.MethodPost, "/challenges", client.Options{Body: req}, &c, "failed to create challenge"); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) Update(ctx context.Context, id normalize.ID, req *Request) (*Challenge, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	var c Challenge
	if err := domain.Fetch(ctx, s.api, http.MethodPut, domain.Path("challenges", id), client.Options{Body: req}, &c, "failed to update challenge"); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) Delete(ctx context.Context, id normalize.ID) error {
	return domain.Do(ctx, s.api, http.MethodDelete, domain.Path("challenges", id), client.Options{}, "failed to delete challenge")
}
