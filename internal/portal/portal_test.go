package portal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"ctf-portal/internal/api/client"
	"ctf-portal/internal/config"
	"ctf-portal/internal/guard"
	"ctf-portal/internal/normalize"
	"ctf-portal/internal/session"
	"ctf-portal/internal/testutil"
	"ctf-portal/internal/validate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

type tabs struct {
	hub *Hub
	srv *httptest.Server
}

func newTabs(t *testing.T) *tabs {
	t.Helper()
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, r.URL.Query().Get("sid"))
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return &tabs{hub: hub, srv: srv}
}

func (tb *tabs) open(t *testing.T, sid string) *websocket.Conn {
	t.Helper()
	before := tb.hub.Subscribers(sid)
	url := "ws" + strings.TrimPrefix(tb.srv.URL, "http") + "/?sid=" + sid
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	require.Eventually(t, func() bool { return tb.hub.Subscribers(sid) == before+1 }, 2*time.Second, 5*time.Millisecond)
	return ws
}

func read(t *testing.T, ws *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m Message
	require.NoError(t, ws.ReadJSON(&m))
	return m
}

func TestHubDeliversToEveryTabOfSid(t *testing.T) {
	tb := newTabs(t)
	a1 := tb.open(t, "a")
	a2 := tb.open(t, "a")
	tb.open(t, "b")

	assert.Equal(t, 2, tb.hub.Send("a", Message{Type: MessageNotice, Message: "hi"}))
	assert.Zero(t, tb.hub.Send("nobody", Message{Type: MessageNotice}))

	assert.Equal(t, "hi", read(t, a1).Message)
	assert.Equal(t, "hi", read(t, a2).Message)
}

func TestHubUnregistersClosedTab(t *testing.T) {
	tb := newTabs(t)
	ws := tb.open(t, "a")
	require.NoError(t, ws.Close())
	assert.Eventually(t, func() bool { return tb.hub.Subscribers("a") == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHubCloseDisconnectsTabs(t *testing.T) {
	tb := newTabs(t)
	ws := tb.open(t, "a")

	tb.hub.Close()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Zero(t, tb.hub.Subscribers("a"))

	url := "ws" + strings.TrimPrefix(tb.srv.URL, "http") + "/?sid=a"
	late, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		// the upgrade succeeds but the hub hangs up at once
		late.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err = late.ReadMessage()
		assert.Error(t, err)
		late.Close()
	}
}

func TestNoticeMessage(t *testing.T) {
	m := NoticeMessage(client.Notice{Level: client.LevelError, Status: 500, Message: "boom"})
	assert.Equal(t, Message{Type: MessageNotice, Level: client.LevelError, Status: 500, Message: "boom"}, m)

	m = NoticeMessage(client.Notice{Level: client.LevelWarning, Redirect: guard.LoginPath})
	assert.Equal(t, MessageRedirect, m.Type)
}

// platform is a fake upstream whose submissions can grow between polls.
type platform struct {
	mu          sync.Mutex
	submissions []any
}

func (p *platform) add(sub map[string]any) {
	p.mu.Lock()
	p.submissions = append(p.submissions, sub)
	p.mu.Unlock()
}

func (p *platform) mount(r chi.Router) {
	r.Get("/competitions/{id}", func(w http.ResponseWriter, r *http.Request) {
		testutil.Fail(w, r, http.StatusForbidden, "无权限")
	})
	r.Get("/users/profile", func(w http.ResponseWriter, r *http.Request) {
		testutil.Fail(w, r, http.StatusUnauthorized, "用户未登录")
	})
	r.Get("/flags/my-submissions", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		items := append([]any{}, p.submissions...)
		p.mu.Unlock()
		testutil.OK(w, r, testutil.Page("submissions", items, 1, len(items), 0, 50))
	})
	r.Get("/teams", func(w http.ResponseWriter, r *http.Request) {
		testutil.OK(w, r, testutil.Page("teams", []any{}, 0, 0, 0, 100))
	})
}

func newRegistry(t *testing.T, tb *tabs, p *platform) (*Registry, session.Provider) {
	t.Helper()
	up := testutil.NewUpstream(t, p.mount)
	provider := session.NewMemoryProvider()
	cfg := config.APIConfig{BaseURL: up.BaseURL(), Timeout: 5 * time.Second}
	return NewRegistry(cfg, provider, validate.New(), tb.hub, zap.NewNop()), provider
}

func seed(t *testing.T, provider session.Provider, sid string, id normalize.ID) {
	t.Helper()
	rec := &session.Record{Principal: &session.Principal{ID: id, Name: "alice", Role: session.RoleUser}}
	require.NoError(t, provider.Store(sid).Save(context.Background(), rec))
}

func TestRegistryRestoresAndCaches(t *testing.T) {
	tb := newTabs(t)
	reg, provider := newRegistry(t, tb, &platform{})
	seed(t, provider, "s1", 7)
	ctx := context.Background()

	a, err := reg.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, guard.Authenticated, a.State())
	assert.Equal(t, "alice", a.Session.Principal().Name)

	again, err := reg.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Same(t, a, again)

	anon, err := reg.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, guard.Unauthenticated, anon.State())
	assert.Len(t, reg.Agents(), 2)

	reg.Forget("s2")
	assert.Len(t, reg.Agents(), 1)
}

// gatedProvider holds Load for one sid until released.
type gatedProvider struct {
	*session.MemoryProvider
	sid     string
	entered chan struct{}
	release chan struct{}
}

type gatedStore struct {
	session.Store
	p *gatedProvider
}

func (p *gatedProvider) Store(sid string) session.Store {
	st := p.MemoryProvider.Store(sid)
	if sid != p.sid {
		return st
	}
	return gatedStore{Store: st, p: p}
}

func (s gatedStore) Load(ctx context.Context) (*session.Record, error) {
	close(s.p.entered)
	select {
	case <-s.p.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.Store.Load(ctx)
}

func TestRegistrySlowRestoreDoesNotBlockOtherSids(t *testing.T) {
	tb := newTabs(t)
	up := testutil.NewUpstream(t, (&platform{}).mount)
	provider := &gatedProvider{
		MemoryProvider: session.NewMemoryProvider(),
		sid:            "slow",
		entered:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	cfg := config.APIConfig{BaseURL: up.BaseURL(), Timeout: 5 * time.Second}
	reg := NewRegistry(cfg, provider, validate.New(), tb.hub, zap.NewNop())
	ctx := context.Background()

	slow := make(chan error, 1)
	go func() {
		_, err := reg.Get(ctx, "slow")
		slow <- err
	}()
	<-provider.entered

	fast := make(chan error, 1)
	go func() {
		_, err := reg.Get(ctx, "fast")
		fast <- err
	}()
	select {
	case err := <-fast:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		close(provider.release)
		t.Fatal("Get for another sid waited on a slow restore")
	}

	close(provider.release)
	require.NoError(t, <-slow)
	assert.Len(t, reg.Agents(), 2)
}

func TestRegistryConcurrentGetsShareOneAgent(t *testing.T) {
	tb := newTabs(t)
	reg, provider := newRegistry(t, tb, &platform{})
	seed(t, provider, "s1", 7)

	const n = 8
	agents := make([]*Agent, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := reg.Get(context.Background(), "s1")
			assert.NoError(t, err)
			agents[i] = a
		}()
	}
	wg.Wait()

	for _, a := range agents[1:] {
		assert.Same(t, agents[0], a)
	}
	assert.Len(t, reg.Agents(), 1)
}

func TestRegistryPushesNoticesAndRedirect(t *testing.T) {
	tb := newTabs(t)
	reg, provider := newRegistry(t, tb, &platform{})
	seed(t, provider, "s1", 7)
	ctx := context.Background()

	a, err := reg.Get(ctx, "s1")
	require.NoError(t, err)
	ws := tb.open(t, "s1")

	_, err = a.Competitions.Get(ctx, 3)
	require.Error(t, err)
	m := read(t, ws)
	assert.Equal(t, MessageNotice, m.Type)
	assert.Equal(t, client.LevelWarning, m.Level)
	assert.Equal(t, http.StatusForbidden, m.Status)
	assert.Equal(t, "无权限", m.Message)

	_, err = a.Auth.Profile(ctx)
	require.Error(t, err)
	m = read(t, ws)
	assert.Equal(t, MessageRedirect, m.Type)
	assert.Equal(t, guard.LoginPath, m.Redirect)
	assert.Nil(t, a.Session.Principal())

	_, err = provider.Store("s1").Load(ctx)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestRegistrySweepKeepsAgentsWithTabs(t *testing.T) {
	tb := newTabs(t)
	reg, _ := newRegistry(t, tb, &platform{})
	ctx := context.Background()

	now := time.Date(2024, 10, 15, 10, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }
	_, err := reg.Get(ctx, "idle")
	require.NoError(t, err)
	_, err = reg.Get(ctx, "watching")
	require.NoError(t, err)
	tb.open(t, "watching")

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, reg.Sweep(time.Hour))
	require.Len(t, reg.Agents(), 1)
	assert.Equal(t, "watching", reg.Agents()[0].Sid)
}

func TestPollerPushesOnlyNewNotifications(t *testing.T) {
	tb := newTabs(t)
	p := &platform{}
	p.add(map[string]any{"submissionID": 1, "isCorrect": false, "submitTime": "2024-10-15T09:00:00"})
	reg, provider := newRegistry(t, tb, p)
	seed(t, provider, "s1", 7)
	seed(t, provider, "s2", 8)
	ctx := context.Background()

	_, err := reg.Get(ctx, "s1")
	require.NoError(t, err)
	_, err = reg.Get(ctx, "s2")
	require.NoError(t, err)
	ws := tb.open(t, "s1")

	poller := NewPoller(reg, tb.hub, time.Minute, 0, zap.NewNop())
	assert.Zero(t, poller.Tick(ctx), "first round only primes")

	p.add(map[string]any{"submissionID": 2, "isCorrect": true, "pointsAwarded": 100, "submitTime": "2024-10-15T10:00:00"})
	assert.Equal(t, 1, poller.Tick(ctx))

	m := read(t, ws)
	assert.Equal(t, MessageNotification, m.Type)
	require.NotNil(t, m.Notification)
	assert.Equal(t, "flag-2", m.Notification.ID)
	assert.Equal(t, "Flag accepted", m.Message)

	assert.Zero(t, poller.Tick(ctx))
}

func TestPollerRunStopsWithContext(t *testing.T) {
	tb := newTabs(t)
	reg, _ := newRegistry(t, tb, &platform{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- NewPoller(reg, tb.hub, 10*time.Millisecond, time.Hour, zap.NewNop()).Run(ctx) }()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}
