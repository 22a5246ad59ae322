package state

import (
	"sync"
	"time"

	"github.com/five82/beacon/internal/locate"
)

// maxTransitions bounds the activity list kept for the UI.
const maxTransitions = 50

// Transition is one entry in the activity list.
type Transition struct {
	At         time.Time
	Event      locate.Event
	RetryCount uint
	Error      string
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Location    locate.Snapshot
	HasSnapshot bool
	Transitions []Transition
	LastUpdated time.Time
	// ConsecutiveFailures counts exhausted cycles since the last fix.
	ConsecutiveFailures int
}

// IsStruggling returns true when several cycles in a row ended without a fix.
func (s Snapshot) IsStruggling() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot. It is a
// locate.Observer; the UI reads it on its own schedule.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Ensure Store implements locate.Observer at compile time.
var _ locate.Observer = (*Store)(nil)

// Notify records a controller snapshot. It only copies, so it is safe to
// call under the controller lock.
func (s *Store) Notify(snap locate.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Location = snap
	s.snapshot.HasSnapshot = true
	s.snapshot.LastUpdated = time.Now()

	switch snap.Event {
	case locate.EventFound:
		s.snapshot.ConsecutiveFailures = 0
	case locate.EventExhausted:
		s.snapshot.ConsecutiveFailures++
	}

	if snap.Event == locate.EventNone {
		return
	}
	s.snapshot.Transitions = append(s.snapshot.Transitions, Transition{
		At:         snap.UpdatedAt,
		Event:      snap.Event,
		RetryCount: snap.RetryCount,
		Error:      snap.Error,
	})
	if n := len(s.snapshot.Transitions); n > maxTransitions {
		s.snapshot.Transitions = append([]Transition(nil), s.snapshot.Transitions[n-maxTransitions:]...)
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Transitions = cloneTransitions(s.snapshot.Transitions)
	return snap
}

func cloneTransitions(items []Transition) []Transition {
	if len(items) == 0 {
		return nil
	}
	dup := make([]Transition, len(items))
	copy(dup, items)
	return dup
}
