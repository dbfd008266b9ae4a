package cli

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ctf-portal/internal/config"
	"ctf-portal/internal/session"
	"ctf-portal/internal/testutil"
)

func mountPlatform(t *testing.T) func(r chi.Router) {
	return func(r chi.Router) {
		r.Post("/users/login", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("password") != "s3cret" {
				testutil.Fail(w, r, http.StatusOK, "账号或密码错误")
				return
			}
			role := "ORDINARY"
			if q.Get("account") == "admin" {
				role = "ADMIN"
			}
			testutil.OK(w, r, map[string]any{"userID": 5, "userName": q.Get("account"), "userType": role})
		})
		r.Post("/users/logout", func(w http.ResponseWriter, r *http.Request) {
			testutil.OK(w, r, nil)
		})
		r.Get("/challenges", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "3", r.URL.Query().Get("competitionId"))
			testutil.OK(w, r, testutil.Page("challenges", []any{
				map[string]any{"challengeID": 42, "title": "warmup", "points": 100},
			}, 1, 1, 0, 20))
		})
		r.Post("/challenges/{id}/submit", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Flag string `json:"flag"`
			}
			testutil.DecodeBody(t, r, &body)
			testutil.OK(w, r, map[string]any{"isCorrect": body.Flag == "CTF{abc}", "pointsAwarded": 100})
		})
		r.Get("/admin/users", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "dave", r.URL.Query().Get("keyword"))
			users := []any{map[string]any{"userID": 4, "userName": "dave", "userType": "ORDINARY", "userStatus": true}}
			testutil.OK(w, r, testutil.Page("users", users, 1, 1, 0, 20))
		})
	}
}

// terminal runs each command on a fresh tree, the way separate ctfctl
// invocations share only the session store.
type terminal struct {
	cfg   *config.Config
	store session.Store
}

func newTerminal(t *testing.T) *terminal {
	t.Helper()
	up := testutil.NewUpstream(t, mountPlatform(t))
	cfg := config.Default()
	cfg.API.BaseURL = up.BaseURL()
	cfg.API.Timeout = 5 * time.Second
	cfg.Session.Backend = config.BackendMemory
	return &terminal{cfg: cfg, store: session.NewMemoryStore()}
}

func (tm *terminal) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	env := &Env{
		Config: tm.cfg,
		Store:  tm.store,
		Logger: zap.NewNop(),
		Now:    func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
	var out, errOut bytes.Buffer
	root := NewRootCommand(env)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestAnonymousIsSentToLogin(t *testing.T) {
	tm := newTerminal(t)

	_, _, err := tm.run(t, "challenges", "list", "--competition", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login required")
	assert.Contains(t, err.Error(), "ctfctl login")

	out, _, err := tm.run(t, "logout")
	require.NoError(t, err)
	assert.Equal(t, "Not logged in\n", out)
}

func TestLoginPersistsAcrossInvocations(t *testing.T) {
	tm := newTerminal(t)

	_, _, err := tm.run(t, "login", "-u", "alice", "-p", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "账号或密码错误")

	out, _, err := tm.run(t, "login", "-u", "alice", "-p", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "Logged in as alice (USER)\n", out)

	_, _, err = tm.run(t, "login", "-u", "alice", "-p", "s3cret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already logged in")

	out, _, err = tm.run(t, "challenges", "list", "--competition", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "warmup")
	assert.Contains(t, out, "42")

	out, _, err = tm.run(t, "challenges", "submit", "42", "CTF{abc}")
	require.NoError(t, err)
	assert.Contains(t, out, "Correct! +100 points")

	out, _, err = tm.run(t, "challenges", "submit", "42", "CTF{nope}")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrong flag")

	_, _, err = tm.run(t, "challenges", "submit", "abc", "CTF{abc}")
	require.Error(t, err)
}

func TestAdminCommandsNeedAdminRole(t *testing.T) {
	tm := newTerminal(t)
	_, _, err := tm.run(t, "login", "-u", "alice", "-p", "s3cret")
	require.NoError(t, err)

	_, _, err = tm.run(t, "admin", "users")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin role required")
	assert.Contains(t, err.Error(), "logged in as alice")

	out, _, err := tm.run(t, "logout")
	require.NoError(t, err)
	assert.Equal(t, "Logged out\n", out)

	_, _, err = tm.run(t, "login", "-u", "admin", "-p", "s3cret")
	require.NoError(t, err)
	out, _, err = tm.run(t, "admin", "users", "--keyword", "dave")
	require.NoError(t, err)
	assert.Contains(t, out, "dave")
	assert.Contains(t, out, "active")
}

func TestLogoutClearsStore(t *testing.T) {
	tm := newTerminal(t)
	_, _, err := tm.run(t, "login", "-u", "alice", "-p", "s3cret")
	require.NoError(t, err)

	_, _, err = tm.run(t, "logout")
	require.NoError(t, err)

	_, err = tm.store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)

	_, _, err = tm.run(t, "whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login required")
}

func TestRelTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2 hours ago", relTime(now.Add(-2*time.Hour), now))
	assert.Equal(t, "-", relTime(time.Time{}, now))
}
