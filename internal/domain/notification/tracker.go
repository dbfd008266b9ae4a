package notification

import "sync"

// Tracker remembers which notices a subscriber has seen so that a poller
// only pushes new ones.
type Tracker struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	primed bool
}

func NewTracker() *Tracker {
	return &Tracker{seen: make(map[string]struct{})}
}

// Fresh returns the notices in list not reported before. The first call
// only records what exists.
func (t *Tracker) Fresh(list []Notification) []Notification {
	t.mu.Lock()
	defer t.mu.Unlock()

	var fresh []Notification
	for _, n := range list {
		if _, ok := t.seen[n.ID]; ok {
			continue
		}
		t.seen[n.ID] = struct{}{}
		if t.primed {
			fresh = append(fresh, n)
		}
	}
	t.primed = true
	return fresh
}
