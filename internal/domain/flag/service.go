package flag

import (
	"context"

	"ctf-portal/internal/domain"
	"ctf-portal/internal/normalize"
)

const defaultPageSize = 20

type Service struct {
	api domain.Sender
}

func NewService(api domain.Sender) *Service {
	return &Service{api: api}
}

// Leaderboard returns one page of a competition's standings. Rows the
// platform did not number are ranked by their position.
func (s *Service) Leaderboard(ctx context.Context, competitionID normalize.ID, q domain.PageQuery) (normalize.Page[Entry], error) {
	params := q.Values(defaultPageSize)
	page, err := domain.FetchPage[Entry](ctx, s.api, domain.Path("flags", "competitions", competitionID, "leaderboard"), params, "leaderboard")
	if err != nil {
		return page, err
	}
	size := q.Size
	if size <= 0 {
		size = defaultPageSize
	}
	offset := max(q.Page, 0) * size
	for i := range page.Items {
		if page.Items[i].Rank == 0 {
			page.Items[i].Rank = offset + i + 1
		}
	}
	return page, nil
}

func (s *Service) MySubmissions(ctx context.Context, q SubmissionQuery) (normalize.Page[Submission], error) {
	params := q.Values(defaultPageSize)
	domain.SetID(params, "competitionId", q.CompetitionID)
	return domain.FetchPage[Submission](ctx, s.api, "/flags/my-submissions", params, "submissions")
}

// Submissions is the full submission log. Admin only.
func (s *Service) Submissions(ctx context.Context, q SubmissionQuery) (normalize.Page[Submission], error) {
	params := q.Values(defaultPageSize)
	domain.SetID(params, "competitionId", q.CompetitionID)
	domain.SetID(params, "userId", q.UserID)
	domain.SetString(params, "sort", q.Sort)
	return domain.FetchPage[Submission](ctx, s.api, "/flags/submissions", params, "submissions")
}
