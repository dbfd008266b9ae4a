// Package session holds the authenticated principal for one user agent (a
// CLI profile or one browser behind the portal) and persists it through a
// Store.
//
// A Manager is safe for concurrent use. The principal and the derived flags
// always change together under one lock, so IsAuthenticated can never
// disagree with Principal.
package session

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Authenticator performs the remote half of login and logout.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (*Grant, error)
	Logout(ctx context.Context) error
}

// CookieHolder is the upstream cookie jar whose contents travel with the
// persisted record.
type CookieHolder interface {
	Cookies() []*http.Cookie
	SetCookies([]*http.Cookie)
	ClearCookies()
}

type Manager struct {
	mu        sync.RWMutex
	principal *Principal
	token     string

	auth    Authenticator
	store   Store
	cookies CookieHolder
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Manager)

func WithCookies(c CookieHolder) Option {
	return func(m *Manager) { m.cookies = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetAuthenticator attaches the remote login implementation. The auth module
// needs the HTTP client, which in turn needs this Manager, so it is attached
// after construction.
func (m *Manager) SetAuthenticator(a Authenticator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auth = a
}

func (m *Manager) authenticator() Authenticator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.auth
}

// Login authenticates remotely and, on success, replaces the principal and
// persists it. A failure is returned unchanged and leaves the state as it was.
func (m *Manager) Login(ctx context.Context, creds Credentials) (*Principal, error) {
	a := m.authenticator()
	if a == nil {
		return nil, stderrors.New("session: no authenticator configured")
	}
	grant, err := a.Login(ctx, creds)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p := grant.Principal
	m.principal = &p
	m.token = grant.Token
	if err := m.store.Save(ctx, m.recordLocked()); err != nil {
		// the session still works for this process
		m.logger.Warn("persist session", zap.Error(err))
	}
	m.logger.Info("logged in", zap.Int64("user_id", int64(p.ID)), zap.String("role", string(p.Role)))
	return m.principalLocked(), nil
}

// Logout asks the upstream to end the session, then clears local and
// persisted state whatever the outcome of the remote call.
func (m *Manager) Logout(ctx context.Context) {
	if a := m.authenticator(); a != nil && m.IsAuthenticated() {
		if err := a.Logout(ctx); err != nil {
			m.logger.Warn("remote logout failed", zap.Error(err))
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked(ctx)
}

// Restore loads the persisted record, if any, and trusts it as is. A stale
// credential surfaces as a 401 on the next call.
func (m *Manager) Restore(ctx context.Context) error {
	rec, err := m.store.Load(ctx)
	if stderrors.Is(err, ErrNoSession) {
		return nil
	}
	if stderrors.Is(err, ErrCorrupt) {
		m.logger.Warn("discarding unreadable session record", zap.Error(err))
		return m.store.Clear(ctx)
	}
	if err != nil {
		return err
	}
	if rec.Principal == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p := *rec.Principal
	m.principal = &p
	m.token = rec.Token
	if m.cookies != nil && len(rec.Cookies) > 0 {
		m.cookies.SetCookies(fromCookies(rec.Cookies))
	}
	m.logger.Debug("session restored", zap.Int64("user_id", int64(p.ID)), zap.Time("saved_at", rec.SavedAt))
	return nil
}

// Invalidate clears the session after the upstream rejected it. It reports
// whether this call performed the transition; concurrent callers see true
// exactly once.
func (m *Manager) Invalidate(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.principal == nil && m.token == "" {
		return false
	}
	m.clearLocked(ctx)
	return true
}

func (m *Manager) clearLocked(ctx context.Context) {
	m.principal = nil
	m.token = ""
	if m.cookies != nil {
		m.cookies.ClearCookies()
	}
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("clear persisted session", zap.Error(err))
	}
}

// Principal returns a copy of the current principal, or nil.
func (m *Manager) Principal() *Principal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.principalLocked()
}

func (m *Manager) principalLocked() *Principal {
	if m.principal == nil {
		return nil
	}
	p := *m.principal
	return &p
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.principal != nil
}

func (m *Manager) IsAdmin() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.principal.IsAdmin()
}

// Credential returns the bearer credential, or "".
func (m *Manager) Credential() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Persist saves the current state again, e.g. after the upstream rotated
// its session cookie.
func (m *Manager) Persist(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.principal == nil {
		return nil
	}
	return m.store.Save(ctx, m.recordLocked())
}

func (m *Manager) recordLocked() *Record {
	rec := &Record{
		Principal: m.principalLocked(),
		Token:     m.token,
		SavedAt:   m.now().UTC(),
	}
	if m.cookies != nil {
		rec.Cookies = toCookies(m.cookies.Cookies())
	}
	return rec
}
