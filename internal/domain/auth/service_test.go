package auth

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ctf-portal/internal/normalize"
	"ctf-portal/internal/session"
	"ctf-portal/internal/testutil"
	"ctf-portal/internal/validate"
	"ctf-portal/pkg/errors"
)

func newService(t *testing.T, mount func(r chi.Router)) *AuthService {
	t.Helper()
	up := testutil.NewUpstream(t, mount)
	return NewAuthService(up.Client(t), validate.New(), zaptest.NewLogger(t))
}

func TestLogin(t *testing.T) {
	svc := newService(t, func(r chi.Router) {
		r.Post("/users/login", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("account") != "admin" || q.Get("password") != "s3cret" {
				testutil.Fail(w, r, http.StatusOK, "账号或密码错误")
				return
			}
			testutil.OK(w, r, map[string]any{
				"userID": 1, "userName": "admin", "userType": "ADMIN", "userEmail": "admin@ctf.local",
			})
		})
	})

	grant, err := svc.Login(context.Background(), session.Credentials{Account: "admin", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, session.Principal{ID: 1, Name: "admin", Role: session.RoleAdmin, Email: "admin@ctf.local"}, grant.Principal)
	assert.Empty(t, grant.Token)

	_, err = svc.Login(context.Background(), session.Credentials{Account: "admin", Password: "wrong"})
	var apiErr *errors.ApiError
	require.True(t, stderrors.As(err, &apiErr))
	assert.Equal(t, "账号或密码错误", apiErr.Message)
}

func TestLoginSuccessWithoutDataFails(t *testing.T) {
	svc := newService(t, func(r chi.Router) {
		r.Post("/users/login", func(w http.ResponseWriter, r *http.Request) {
			testutil.OK(w, r, nil)
		})
	})
	_, err := svc.Login(context.Background(), session.Credentials{Account: "a", Password: "b"})
	var apiErr *errors.ApiError
	require.True(t, stderrors.As(err, &apiErr))
	assert.Equal(t, "操作成功", apiErr.Message)
}

func TestLoginValidatesBeforeCalling(t *testing.T) {
	var calls atomic.Int32
	svc := newService(t, func(r chi.Router) {
		r.Post("/users/login", func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })
	})

	_, err := svc.Login(context.Background(), session.Credentials{Account: "  ", Password: "x"})
	var vErr *errors.ValidationError
	assert.True(t, stderrors.As(err, &vErr))
	assert.Zero(t, calls.Load())
}

func TestRegister(t *testing.T) {
	var got RegisterRequest
	svc := newService(t, func(r chi.Router) {
		r.Post("/users/register", func(w http.ResponseWriter, r *http.Request) {
			testutil.DecodeBody(t, r, &got)
			testutil.OK(w, r, map[string]any{"userID": 12, "userName": got.UserName, "userType": "ORDINARY"})
		})
	})

	req := &RegisterRequest{UserName: "bob", Password: "hunter22", Phone: "13912345678", Email: "bob@example.com"}
	user, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, normalize.ID(12), user.ID)
	assert.Equal(t, session.RoleUser, user.Role)
	assert.Equal(t, *req, got)

	_, err = svc.Register(context.Background(), &RegisterRequest{UserName: "bob", Password: "hunter22", Phone: "123", Email: "bob@example.com"})
	var vErr *errors.ValidationError
	assert.True(t, stderrors.As(err, &vErr))
}

func TestCheck(t *testing.T) {
	var loggedIn atomic.Bool
	svc := newService(t, func(r chi.Router) {
		r.Get("/users/check", func(w http.ResponseWriter, r *http.Request) {
			if !loggedIn.Load() {
				testutil.OK(w, r, map[string]any{"isLoggedIn": false})
				return
			}
			testutil.OK(w, r, map[string]any{"isLoggedIn": true, "userId": 4, "userName": "dave", "userRole": "USER"})
		})
	})

	assert.Nil(t, svc.Check(context.Background()))

	loggedIn.Store(true)
	u := svc.Check(context.Background())
	require.NotNil(t, u)
	assert.Equal(t, "dave", u.Name)
	assert.Equal(t, normalize.ID(4), u.ID)
}

func TestCheckFailureIsNotLoggedIn(t *testing.T) {
	svc := newService(t, func(r chi.Router) {
		r.Get("/users/check", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
	})
	assert.Nil(t, svc.Check(context.Background()))
}

func TestProfile(t *testing.T) {
	svc := newService(t, func(r chi.Router) {
		r.Get("/users/profile", func(w http.ResponseWriter, r *http.Request) {
			testutil.OK(w, r, map[string]any{
				"userID": 7, "userName": "erin", "phoneNumber": "13700000000",
				"userStatus": false, "createTime": "2024-02-01T09:30:00",
			})
		})
	})
	u, err := svc.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "erin", u.Name)
	assert.Equal(t, "13700000000", u.Phone)
	assert.False(t, u.Active)
	assert.Equal(t, "2024-02-01", u.CreatedAt.Display("date"))
}

func TestUserCanonicalShapeDecodes(t *testing.T) {
	in := User{ID: 3, Name: "x", Role: session.RoleAdmin, Active: true}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	var out User
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}
