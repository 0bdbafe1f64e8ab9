package orchestrator

import (
	"time"

	"github.com/opmodel/hal/internal/output"
)

// State is the lifecycle state of one service of a deployment.
type State string

const (
	StateAbsent          State = "absent"
	StateStaging         State = "staging"
	StateCreating        State = "creating"
	StateUpdating        State = "updating"
	StateAwaitingHealthy State = "awaiting"
	StateRunning         State = "running"
	StateRollingBack     State = "rolling back"
	StateDeleting        State = "deleting"
	StateFailed          State = "failed"
)

// status maps a state to the word shown to users.
func (s State) status() string {
	switch s {
	case StateAbsent:
		return output.StatusDeleted
	case StateStaging:
		return output.StatusStaging
	case StateCreating:
		return output.StatusCreating
	case StateUpdating:
		return output.StatusUpdating
	case StateAwaitingHealthy:
		return output.StatusAwaiting
	case StateRunning:
		return output.StatusRunning
	case StateRollingBack:
		return output.StatusRollingBack
	case StateDeleting:
		return output.StatusDeleting
	default:
		return output.StatusFailed
	}
}

// Event is a state transition.
type Event struct {
	Deployment string
	Service    string
	// Version is zero when no version is involved yet.
	Version int
	State   State
	Err     error
	Time    time.Time
}

// Observer receives every state transition. Implementations must be safe
// for concurrent use; services of one tier transition concurrently.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }
