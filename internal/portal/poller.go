package portal

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const pollConcurrency = 8

// Poller periodically aggregates notifications for every agent with an open
// tab and pushes the ones not seen before.
type Poller struct {
	registry *Registry
	hub      *Hub
	interval time.Duration
	idle     time.Duration
	logger   *zap.Logger
}

func NewPoller(registry *Registry, hub *Hub, interval, idle time.Duration, logger *zap.Logger) *Poller {
	return &Poller{registry: registry, hub: hub, interval: interval, idle: idle, logger: logger}
}

// Run polls until ctx is done. A non-positive interval disables polling.
func (p *Poller) Run(ctx context.Context) error {
	if p.interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Tick(ctx)
			if p.idle > 0 {
				p.registry.Sweep(p.idle)
			}
		}
	}
}

// Tick runs one polling round and returns how many messages were pushed.
func (p *Poller) Tick(ctx context.Context) int {
	var g errgroup.Group
	g.SetLimit(pollConcurrency)
	var pushed atomic.Int64

	for _, a := range p.registry.Agents() {
		if p.hub.Subscribers(a.Sid) == 0 {
			continue
		}
		principal := a.Session.Principal()
		if principal == nil {
			continue
		}
		g.Go(func() error {
			fresh := a.Tracker.Fresh(a.Notifications.All(ctx, *principal))
			for i := range fresh {
				p.hub.Send(a.Sid, Message{Type: MessageNotification, Message: fresh[i].Title, Notification: &fresh[i]})
			}
			pushed.Add(int64(len(fresh)))
			return nil
		})
	}
	g.Wait()
	n := int(pushed.Load())
	if n > 0 {
		p.logger.Debug("pushed notifications", zap.Int("count", n))
	}
	return n
}
