package competition

import (
	"context"
	"net/http"

	"ctf-portal/internal/api/client"
	"ctf-portal/internal/domain"
	"ctf-portal/internal/normalize"
	"ctf-portal/internal/validate"
	"ctf-portal/pkg/errors"
)

const defaultPageSize = 20

type Service struct {
	api       domain.Sender
	validator validate.Validator
}

func NewService(api domain.Sender, v validate.Validator) *Service {
	return &Service{api: api, validator: v}
}

// List returns one page of published competitions.
func (s *Service) List(ctx context.Context, q ListQuery) (normalize.Page[Competition], error) {
	params := q.Values(defaultPageSize)
	domain.SetString(params, "type", q.Type)
	domain.SetString(params, "keyword", q.Keyword)
	domain.SetString(params, "sort", q.Sort)
	return domain.FetchPage[Competition](ctx, s.api, "/competitions", params, "competitions")
}

func (s *Service) Get(ctx context.Context, id normalize.ID) (*Competition, error) {
	var c Competition
	if err := domain.Get(ctx, s.api, domain.Path("competitions", id), nil, &c, "failed to load competition"); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Competition, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.EndTime <= req.StartTime {
		return nil, errors.NewValidationError("endTime must be after startTime")
	}
	var c Competition
	err := domain.Fetch(ctx, s.api, http.MethodPost, "/competitions", client.Options{Body: req}, &c, "failed to create competition")
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) Statistics(ctx context.Context, id normalize.ID) (Statistics, error) {
	stats := Statistics{}
	if err := domain.Get(ctx, s.api, domain.Path("competitions", id, "statistics"), nil, &stats, "failed to load statistics"); err != nil {
		return nil, err
	}
	return stats, nil
}
