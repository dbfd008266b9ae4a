package writeup

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"ctf-portal/internal/api/client"
	"ctf-portal/internal/domain"
	"ctf-portal/internal/normalize"
	"ctf-portal/internal/validate"
)

// API is the part of the client write-ups need: envelope calls plus raw
// downloads.
type API interface {
	domain.Sender
	Download(ctx context.Context, p string, query url.Values, fallbackName string) (*client.Attachment, error)
}

type Service struct {
	api       API
	validator validate.Validator
	logger    *zap.Logger
}

func NewService(api API, v validate.Validator, logger *zap.Logger) *Service {
	return &Service{api: api, validator: v, logger: logger}
}

func (s *Service) Upload(ctx context.Context, req *UploadRequest) (*WriteUp, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	var w WriteUp
	if err := domain.Fetch(ctx, s.api, http.MethodPost, "/writeups", client.Options{Body: req}, &w, "failed to submit write-up"); err != nil {
		return nil, err
	}
	return &w, nil
}

// Mine lists the caller's write-ups. List reads never fail; an
// unavailable list is empty.
func (s *Service) Mine(ctx context.Context) []WriteUp {
	return s.list(ctx, "/writeups/my", nil)
}

func (s *Service) ByCompetition(ctx context.Context, competitionID normalize.ID) []WriteUp {
	return s.list(ctx, domain.Path("writeups", "competitions", competitionID), nil)
}

// ByUser lists another user's write-ups. Admin only.
func (s *Service) ByUser(ctx context.Context, userID normalize.ID) []WriteUp {
	return s.list(ctx, domain.Path("writeups", "users", userID), nil)
}

// Search matches write-ups by keyword. Admin only.
func (s *Service) Search(ctx context.Context, keyword string) []WriteUp {
	q := url.Values{}
	domain.SetString(q, "keyword", keyword)
	return s.list(ctx, "/writeups/search", q)
}

func (s *Service) list(ctx context.Context, path string, q url.Values) []WriteUp {
	items, err := domain.FetchList[WriteUp](ctx, s.api, path, q, "writeups", "failed to load write-ups")
	if err != nil {
		s.logger.Debug("write-up list unavailable", zap.String("path", path), zap.Error(err))
		return []WriteUp{}
	}
	return items
}

func (s *Service) Get(ctx context.Context, id normalize.ID) (*WriteUp, error) {
	var w WriteUp
	if err := domain.Get(ctx, s.api, domain.Path("writeups", id), nil, &w, "failed to load write-up"); err != nil {
		return nil, err
	}
	return &w, nil
}

// Download fetches the write-up as a file. The name comes from the
// response's Content-Disposition, else WriteUp_<id>.txt.
func (s *Service) Download(ctx context.Context, id normalize.ID) (*client.Attachment, error) {
	return s.api.Download(ctx, domain.Path("writeups", id, "download"), nil, fmt.Sprintf("WriteUp_%s.txt", id))
}

func (s *Service) Delete(ctx context.Context, id normalize.ID) error {
	return domain.Do(ctx, s.api, http.MethodDelete, domain.Path("writeups", id), client.Options{}, "failed to delete write-up")
}
