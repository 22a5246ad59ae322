package locate

import (
	"time"

	"github.com/five82/beacon/internal/geo"
)

// Phase is the acquisition state of a controller.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseFound
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseFound:
		return "found"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Event names the transition that produced a snapshot.
type Event string

const (
	EventNone           Event = ""
	EventRequested      Event = "requested"
	EventRetryScheduled Event = "retry_scheduled"
	EventRetryStarted   Event = "retry_started"
	EventFound          Event = "found"
	EventExhausted      Event = "exhausted"
	EventClosed         Event = "closed"
)

// Snapshot is the observable state of a controller after a transition.
type Snapshot struct {
	Phase Phase
	Event Event

	// Loading is true while an attempt is outstanding or a retry is scheduled.
	Loading bool
	// Error holds the transient retry status or the terminal failure. Empty
	// when there is nothing to report.
	Error string

	Position    geo.Position
	HasPosition bool

	RetryCount uint
	MaxRetries uint
	CycleID    string
	UpdatedAt  time.Time
}

// Terminal reports whether the snapshot ends an acquisition cycle.
func (s Snapshot) Terminal() bool {
	return s.Event == EventFound || s.Event == EventExhausted
}

// Observer receives snapshots in transition order.
//
// Notify runs while the controller is locked. Implementations must return
// quickly and must not call back into the controller.
type Observer interface {
	Notify(s Snapshot)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Snapshot)

// Notify calls f(s).
func (f ObserverFunc) Notify(s Snapshot) { f(s) }
