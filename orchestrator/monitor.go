package orchestrator

import "github.com/poiesic/noteseek/validation"

// State is a step of the request state machine.
type State string

const (
	StateIdle         State = "idle"
	StateCacheCheck   State = "cache_check"
	StateCacheHit     State = "cache_hit"
	StateCacheMiss    State = "cache_miss"
	StateSearching    State = "searching"
	StateMerging      State = "merging"
	StateValidating   State = "validating"
	StateCacheStore   State = "cache_store"
	StateContextBuild State = "context_build"
	StateDone         State = "done"
	StateFailed       State = "failed"
	StateCancelled    State = "cancelled"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// Monitor observes requests as they move through the state machine.
// Implementations must be safe for concurrent use.
type Monitor interface {
	Transition(sessionID string, from, to State)
	Rejected(sessionID string, rejections []validation.Rejection)
}

type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Transition(_ string, _, _ State)             {}
func (n *noopMonitor) Rejected(_ string, _ []validation.Rejection) {}

// tracker carries one request through the state machine.
type tracker struct {
	monitor   Monitor
	sessionID string
	state     State
}

func (t *tracker) to(next State) {
	t.monitor.Transition(t.sessionID, t.state, next)
	t.state = next
}
