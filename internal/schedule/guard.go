package schedule

import (
	"errors"
	"sync"
)

// Action names one user-triggerable operation that may be in flight.
type Action string

const (
	ActionRefresh  Action = "refresh"
	ActionMeetLink Action = "meet_link"
)

// ErrBusy is returned when an action is triggered while the previous
// trigger of the same action is still pending.
var ErrBusy = errors.New("schedule: action already in progress")

// inflight holds at most one token per action. The token doubles as the
// action's loading flag.
type inflight struct {
	mu     sync.Mutex
	active map[Action]bool
}

func newInflight() *inflight {
	return &inflight{active: make(map[Action]bool)}
}

// acquire takes the token for a. The returned release must be deferred.
func (g *inflight) acquire(a Action) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active[a] {
		return nil, ErrBusy
	}
	g.active[a] = true
	return func() {
		g.mu.Lock()
		delete(g.active, a)
		g.mu.Unlock()
	}, nil
}

func (g *inflight) busy(a Action) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active[a]
}
