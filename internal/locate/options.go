package locate

import (
	"log/slog"
	"time"

	"github.com/five82/beacon/internal/geo"
)

const (
	DefaultTimeout    = 3 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 3 * time.Second
)

// Options configure a Controller. They are fixed at construction.
type Options struct {
	// Timeout is passed to the provider on the first attempt of each cycle.
	Timeout time.Duration
	// MaxRetries is the number of automatic retries after the first attempt.
	// Zero disables retrying.
	MaxRetries uint
	// RetryDelay is the fixed wait between a failure and the next attempt.
	RetryDelay time.Duration
	// UniformTimeout passes Timeout on retry attempts as well. When false,
	// retries leave the timeout to the provider's default.
	UniformTimeout bool

	// Clock schedules retry timers. Nil uses the system clock.
	Clock Clock
	// Viewport is recentered on every fix. Optional.
	Viewport Viewport
	// Logger receives transition records. Nil discards them.
	Logger *slog.Logger
}

// DefaultOptions returns the options used when New is given nil.
func DefaultOptions() *Options {
	return &Options{
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// Viewport is the map collaborator the controller recenters after a fix.
// Both methods run while the controller is locked, so implementations must
// return promptly and must not call back into the controller.
type Viewport interface {
	Zoom() int
	FlyTo(p geo.Position, zoom int)
}

// Clock abstracts timer scheduling so retries can be driven by tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled callback handle.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock schedules callbacks with time.AfterFunc.
var SystemClock Clock = systemClock{}
