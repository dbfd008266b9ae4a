package session

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ctf-portal/pkg/errors"
)

type fakeAuth struct {
	grant     *Grant
	loginErr  error
	logoutErr error
	logouts   atomic.Int32
}

func (a *fakeAuth) Login(_ context.Context, _ Credentials) (*Grant, error) {
	if a.loginErr != nil {
		return nil, a.loginErr
	}
	return a.grant, nil
}

func (a *fakeAuth) Logout(context.Context) error {
	a.logouts.Add(1)
	return a.logoutErr
}

type fakeJar struct {
	mu      sync.Mutex
	cookies []*http.Cookie
}

func (j *fakeJar) Cookies() []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]*http.Cookie(nil), j.cookies...)
}

func (j *fakeJar) SetCookies(c []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies = c
}

func (j *fakeJar) ClearCookies() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies = nil
}

func newManager(t *testing.T, auth Authenticator, store Store, opts ...Option) *Manager {
	t.Helper()
	opts = append(opts, WithLogger(zaptest.NewLogger(t)))
	m := NewManager(store, opts...)
	m.SetAuthenticator(auth)
	return m
}

func TestLoginPopulatesAndPersists(t *testing.T) {
	for _, role := range []Role{RoleUser, RoleAdmin} {
		t.Run(string(role), func(t *testing.T) {
			store := NewMemoryStore()
			auth := &fakeAuth{grant: &Grant{Principal: Principal{ID: 3, Name: "alice", Role: role}}}
			m := newManager(t, auth, store)

			p, err := m.Login(context.Background(), Credentials{Account: "alice", Password: "pw"})
			require.NoError(t, err)
			assert.Equal(t, "alice", p.Name)
			assert.True(t, m.IsAuthenticated())
			assert.Equal(t, role == RoleAdmin, m.IsAdmin())

			rec, err := store.Load(context.Background())
			require.NoError(t, err)
			require.NotNil(t, rec.Principal)
			assert.Equal(t, *p, *rec.Principal)
		})
	}
}

func TestLoginFailurePropagatesUnchanged(t *testing.T) {
	apiErr := errors.NewApiError("账号或密码错误")
	m := newManager(t, &fakeAuth{loginErr: apiErr}, NewMemoryStore())

	_, err := m.Login(context.Background(), Credentials{Account: "a", Password: "b"})
	assert.Same(t, apiErr, err)
	assert.False(t, m.IsAuthenticated())
	assert.Nil(t, m.Principal())
}

func TestLogoutClearsEvenWhenRemoteFails(t *testing.T) {
	store := NewMemoryStore()
	jar := &fakeJar{cookies: []*http.Cookie{{Name: "JSESSIONID", Value: "x"}}}
	auth := &fakeAuth{
		grant:     &Grant{Principal: Principal{ID: 1, Name: "root", Role: RoleAdmin}, Token: "t"},
		logoutErr: stderrors.New("connection refused"),
	}
	m := newManager(t, auth, store, WithCookies(jar))
	_, err := m.Login(context.Background(), Credentials{Account: "root", Password: "pw"})
	require.NoError(t, err)

	m.Logout(context.Background())

	assert.Equal(t, int32(1), auth.logouts.Load())
	assert.False(t, m.IsAuthenticated())
	assert.False(t, m.IsAdmin())
	assert.Empty(t, m.Credential())
	assert.Empty(t, jar.Cookies())
	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRestoreTrustsPersistedRecord(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), &Record{
		Principal: &Principal{ID: 9, Name: "bob", Role: RoleAdmin},
		Token:     "persisted",
		Cookies:   []Cookie{{Name: "JSESSIONID", Value: "s1"}},
	}))
	jar := &fakeJar{}
	m := newManager(t, &fakeAuth{}, store, WithCookies(jar))

	require.NoError(t, m.Restore(context.Background()))
	assert.True(t, m.IsAdmin())
	assert.Equal(t, "persisted", m.Credential())
	require.Len(t, jar.Cookies(), 1)
	assert.Equal(t, "s1", jar.Cookies()[0].Value)
}

func TestRestoreWithoutRecord(t *testing.T) {
	m := newManager(t, &fakeAuth{}, NewMemoryStore())
	require.NoError(t, m.Restore(context.Background()))
	assert.False(t, m.IsAuthenticated())
}

func TestRestoreDiscardsCorruptRecord(t *testing.T) {
	store := NewMemoryStore()
	store.data = []byte("{not json")
	m := newManager(t, &fakeAuth{}, store)

	require.NoError(t, m.Restore(context.Background()))
	assert.False(t, m.IsAuthenticated())
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestInvalidateIsIdempotentUnderConcurrency(t *testing.T) {
	store := NewMemoryStore()
	auth := &fakeAuth{grant: &Grant{Principal: Principal{ID: 1, Name: "a", Role: RoleUser}}}
	m := newManager(t, auth, store)
	_, err := m.Login(context.Background(), Credentials{Account: "a", Password: "b"})
	require.NoError(t, err)

	var transitions atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Invalidate(context.Background()) {
				transitions.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), transitions.Load())
	assert.False(t, m.IsAuthenticated())
	assert.False(t, m.Invalidate(context.Background()))
}

func TestPrincipalIsACopy(t *testing.T) {
	auth := &fakeAuth{grant: &Grant{Principal: Principal{ID: 1, Name: "a", Role: RoleUser}}}
	m := newManager(t, auth, NewMemoryStore())
	_, err := m.Login(context.Background(), Credentials{Account: "a", Password: "b"})
	require.NoError(t, err)

	p := m.Principal()
	p.Role = RoleAdmin
	assert.False(t, m.IsAdmin())
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleAdmin, ParseRole(" ADMIN "))
	assert.Equal(t, RoleUser, ParseRole("USER"))
	assert.Equal(t, RoleUser, ParseRole(""))
}
