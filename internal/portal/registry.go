package portal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"ctf-portal/internal/api/client"
	"ctf-portal/internal/app"
	"ctf-portal/internal/config"
	"ctf-portal/internal/domain/notification"
	"ctf-portal/internal/guard"
	"ctf-portal/internal/session"
	"ctf-portal/internal/validate"
)

// Agent is one browser's service stack.
type Agent struct {
	*app.Services
	Sid     string
	Tracker *notification.Tracker

	mu       sync.Mutex
	lastSeen time.Time
}

func (a *Agent) touch(now time.Time) {
	a.mu.Lock()
	a.lastSeen = now
	a.mu.Unlock()
}

func (a *Agent) idleSince() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSeen
}

// Registry builds and caches an Agent per sid. Agents are restored from the
// session provider on first use, so a portal restart keeps users logged in.
type Registry struct {
	api       config.APIConfig
	provider  session.Provider
	validator validate.Validator
	hub       *Hub
	logger    *zap.Logger
	opts      []client.Option
	now       func() time.Time

	mu     sync.Mutex
	agents map[string]*Agent
}

// NewRegistry wires agents to the hub: adapter notices and the 401 redirect
// are pushed to the owning sid's tabs. opts are applied to every agent's
// client after those.
func NewRegistry(api config.APIConfig, provider session.Provider, v validate.Validator, hub *Hub, logger *zap.Logger, opts ...client.Option) *Registry {
	return &Registry{
		api:       api,
		provider:  provider,
		validator: v,
		hub:       hub,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
		agents:    make(map[string]*Agent),
	}
}

// Get returns the agent for sid, building and restoring it when needed.
// The build runs outside the lock so a slow store only delays its own sid.
func (r *Registry) Get(ctx context.Context, sid string) (*Agent, error) {
	if a := r.cached(sid); a != nil {
		return a, nil
	}

	built, err := r.build(ctx, sid)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[sid]; ok {
		// another request for sid won the race
		a.touch(r.now())
		return a, nil
	}
	r.agents[sid] = built
	return built, nil
}

func (r *Registry) cached(sid string) *Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[sid]
	if !ok {
		return nil
	}
	a.touch(r.now())
	return a
}

func (r *Registry) build(ctx context.Context, sid string) (*Agent, error) {
	logger := r.logger.With(zap.String("sid", shortSid(sid)))
	opts := append([]client.Option{
		client.WithNotifier(r.hub.Notifier(sid)),
		client.WithUnauthorizedHandler(func(context.Context) {
			r.hub.Send(sid, Message{
				Type:     MessageRedirect,
				Level:    client.LevelWarning,
				Message:  "session expired, please log in again",
				Redirect: guard.LoginPath,
			})
		}),
	}, r.opts...)

	svc, err := app.New(r.api, r.provider.Store(sid), r.validator, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("build agent: %w", err)
	}
	if err := svc.Session.Restore(ctx); err != nil {
		logger.Warn("session restore failed", zap.Error(err))
	}
	return &Agent{Services: svc, Sid: sid, Tracker: notification.NewTracker(), lastSeen: r.now()}, nil
}

// Forget drops the cached agent for sid.
func (r *Registry) Forget(sid string) {
	r.mu.Lock()
	delete(r.agents, sid)
	r.mu.Unlock()
}

// Agents snapshots the cached agents.
func (r *Registry) Agents() []*Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	return out
}

// Sweep evicts agents unused for longer than idle and without open tabs.
// The persisted session survives eviction.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for sid, a := range r.agents {
		if a.idleSince().Before(cutoff) && r.hub.Subscribers(sid) == 0 {
			delete(r.agents, sid)
			n++
		}
	}
	if n > 0 {
		r.logger.Debug("evicted idle agents", zap.Int("count", n))
	}
	return n
}

func shortSid(sid string) string {
	if len(sid) > 8 {
		return sid[:8]
	}
	return sid
}
