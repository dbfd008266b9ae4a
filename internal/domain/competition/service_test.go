package competition

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctf-portal/internal/domain"
	"ctf-portal/internal/normalize"
	"ctf-portal/internal/testutil"
	"ctf-portal/internal/validate"
	"ctf-portal/pkg/errors"
)

var sample = map[string]any{
	"competitionID": 3,
	"title":         "2023网络安全挑战赛",
	"introduction":  "annual",
	"startTime":     "2023-10-01T09:00:00",
	"endTime":       "2023-10-03T18:00:00",
	"status":        "PUBLISHED",
	"isPublic":      false,
	"creator":       map[string]any{"userID": 1, "userName": "admin"},
}

func newService(t *testing.T, mount func(r chi.Router)) *Service {
	t.Helper()
	up := testutil.NewUpstream(t, mount)
	return NewService(up.Client(t), validate.New())
}

func TestListNestedAndBare(t *testing.T) {
	bare := false
	svc := newService(t, func(r chi.Router) {
		r.Get("/competitions", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "1", r.URL.Query().Get("page"))
			assert.Equal(t, "20", r.URL.Query().Get("size"))
			assert.Equal(t, "ongoing", r.URL.Query().Get("type"))
			assert.False(t, r.URL.Query().Has("keyword"))
			if bare {
				testutil.OK(w, r, []any{sample})
				return
			}
			testutil.OK(w, r, testutil.Page("competitions", []any{sample}, 4, 61, 1, 20))
		})
	})

	q := ListQuery{PageQuery: domain.PageQuery{Page: 1}, Type: "ongoing", Keyword: "  "}
	page, err := svc.List(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 4, page.TotalPages)
	assert.Equal(t, 61, page.TotalElements)

	c := page.Items[0]
	assert.Equal(t, normalize.ID(3), c.ID)
	assert.Equal(t, "2023网络安全挑战赛", c.Title)
	assert.False(t, c.Public)
	assert.Equal(t, normalize.ID(1), c.CreatorID)
	assert.Equal(t, "admin", c.CreatorName)
	assert.Equal(t, "2023-10-03 18:00:00", c.EndTime.Display("datetime"))

	bare = true
	page, err = svc.List(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Items, 1)
}

func TestListFailedEnvelopeIsEmptyPage(t *testing.T) {
	svc := newService(t, func(r chi.Router) {
		r.Get("/competitions", func(w http.ResponseWriter, r *http.Request) {
			testutil.Fail(w, r, http.StatusOK, "数据库繁忙")
		})
	})
	page, err := svc.List(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, normalize.EmptyPage[Competition](), page)
}

func TestGetAndStatistics(t *testing.T) {
	svc := newService(t, func(r chi.Router) {
		r.Get("/competitions/{id}", func(w http.ResponseWriter, r *http.Request) {
			if chi.URLParam(r, "id") != "3" {
				testutil.Fail(w, r, http.StatusOK, "竞赛不存在")
				return
			}
			testutil.OK(w, r, sample)
		})
		r.Get("/competitions/{id}/statistics", func(w http.ResponseWriter, r *http.Request) {
			testutil.OK(w, r, map[string]any{"teamCount": 12, "challengeCount": 30})
		})
	})

	c, err := svc.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "annual", c.Introduction)

	_, err = svc.Get(context.Background(), 4)
	var apiErr *errors.ApiError
	require.True(t, stderrors.As(err, &apiErr))
	assert.Equal(t, "竞赛不存在", apiErr.Message)

	stats, err := svc.Statistics(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, float64(12), stats["teamCount"])
}

func TestCreate(t *testing.T) {
	var got CreateRequest
	svc := newService(t, func(r chi.Router) {
		r.Post("/competitions", func(w http.ResponseWriter, r *http.Request) {
			testutil.DecodeBody(t, r, &got)
			testutil.OK(w, r, map[string]any{"competitionID": 9, "title": got.Title, "status": "DRAFT"})
		})
	})

	req := &CreateRequest{Title: "新手赛", StartTime: "2024-10-15T10:00:00", EndTime: "2024-10-17T22:00:00"}
	c, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, normalize.ID(9), c.ID)
	assert.Equal(t, StatusDraft, c.Status)
	assert.Equal(t, "新手赛", got.Title)

	_, err = svc.Create(context.Background(), &CreateRequest{Title: "x", StartTime: "2024-10-17T22:00:00", EndTime: "2024-10-15T10:00:00"})
	var vErr *errors.ValidationError
	assert.True(t, stderrors.As(err, &vErr))

	_, err = svc.Create(context.Background(), &CreateRequest{Title: "x", StartTime: "tomorrow", EndTime: "2024-10-15T10:00:00"})
	assert.True(t, stderrors.As(err, &vErr))
}
