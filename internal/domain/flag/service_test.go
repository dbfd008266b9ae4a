package flag

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctf-portal/internal/domain"
	"ctf-portal/internal/normalize"
	"ctf-portal/internal/testutil"
)

func newService(t *testing.T, mount func(r chi.Router)) *Service {
	t.Helper()
	up := testutil.NewUpstream(t, mount)
	return NewService(up.Client(t))
}

func TestLeaderboardRanksByPosition(t *testing.T) {
	svc := newService(t, func(r chi.Router) {
		r.Get("/flags/competitions/{id}/leaderboard", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "3", chi.URLParam(r, "id"))
			assert.Equal(t, "1", r.URL.Query().Get("page"))
			assert.Equal(t, "10", r.URL.Query().Get("size"))
			rows := []any{
				map[string]any{"entityId": 11, "entityType": "TEAM", "entityName": "Alpha", "competitionId": 3, "totalScore": 500, "solveCount": 5},
				map[string]any{"entityId": 12, "entityType": "TEAM", "entityName": "Beta", "competitionId": 3, "totalScore": 300, "solveCount": 3},
				map[string]any{"entityName": "ghost"},
			}
			testutil.OK(w, r, testutil.Page("leaderboard", rows, 2, 12, 1, 10))
		})
	})

	page, err := svc.Leaderboard(context.Background(), 3, domain.PageQuery{Page: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, Entry{Rank: 11, EntityID: 11, EntityType: "TEAM", EntityName: "Alpha", CompetitionID: 3, TotalScore: 500, SolveCount: 5}, page.Items[0])
	assert.Equal(t, 12, page.Items[1].Rank)
	assert.Equal(t, 12, page.TotalElements)
}

func TestLeaderboardFailureIsEmpty(t *testing.T) {
	svc := newService(t, func(r chi.Router) {
		r.Get("/flags/competitions/{id}/leaderboard", func(w http.ResponseWriter, r *http.Request) {
			testutil.Fail(w, r, http.StatusOK, "竞赛不存在")
		})
	})
	page, err := svc.Leaderboard(context.Background(), 3, domain.PageQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.TotalPages)
}

func TestSubmissions(t *testing.T) {
	row := map[string]any{
		"submissionID": 501, "submittedContent": "CTF{abc}", "isCorrect": true,
		"submitTime": "2024-10-15T10:30:00", "pointsAwarded": 100,
		"challenge":   map[string]any{"challengeID": 42, "title": "Easy Web"},
		"competition": map[string]any{"competitionID": 3, "title": "新手赛"},
		"user":        map[string]any{"userID": 4, "userName": "dave"},
		"team":        map[string]any{"teamID": 11, "teamName": "Alpha"},
	}
	svc := newService(t, func(r chi.Router) {
		r.Get("/flags/my-submissions", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "50", r.URL.Query().Get("size"))
			testutil.OK(w, r, testutil.Page("submissions", []any{row}, 1, 1, 0, 50))
		})
		r.Get("/flags/submissions", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "4", r.URL.Query().Get("userId"))
			assert.Equal(t, "submitTime", r.URL.Query().Get("sort"))
			testutil.OK(w, r, []any{row})
		})
	})

	ctx := context.Background()
	mine, err := svc.MySubmissions(ctx, SubmissionQuery{PageQuery: domain.PageQuery{Size: 50}})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	sub := mine.Items[0]
	assert.Equal(t, normalize.ID(501), sub.ID)
	assert.True(t, sub.Correct)
	assert.Equal(t, "Easy Web", sub.ChallengeTitle)
	assert.Equal(t, normalize.ID(11), sub.TeamID)
	assert.Equal(t, "2024-10-15 10:30:00", sub.SubmittedAt.Display("datetime"))

	all, err := svc.Submissions(ctx, SubmissionQuery{UserID: 4, Sort: "submitTime"})
	require.NoError(t, err)
	assert.Len(t, all.Items, 1)
}

func TestSubmissionCanonicalShapeDecodes(t *testing.T) {
	in := Submission{ID: 1, Content: "x", Correct: true, ChallengeID: 42, ChallengeTitle: "t", TeamName: "Alpha"}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	var out Submission
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}
