package locate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/five82/beacon/internal/geo"
)

const exhaustedSuffix = " (Max retries reached)"

func retryMessage(n, limit uint) string {
	return fmt.Sprintf("Location acquisition timed out. Retrying... (%d/%d)", n, limit)
}

// Controller drives a geo.Provider through bounded retry cycles and publishes
// the resulting state to observers.
//
// All entry points and timer callbacks are serialized by one mutex. The
// controller holds at most one retry timer and at most one live provider
// attempt; every transition cancels both before deciding what to do next.
type Controller struct {
	provider geo.Provider
	opts     Options
	clock    Clock
	view     Viewport
	log      *slog.Logger

	mu        sync.Mutex
	closed    bool
	observers []Observer

	phase     Phase
	event     Event
	position  geo.Position
	hasPos    bool
	errMsg    string
	retry     uint
	cycleID   string
	updatedAt time.Time

	timer    Timer
	timerSeq uint64

	attemptID     uint64
	inflight      bool
	cancelAttempt context.CancelFunc
}

// Ensure Controller implements geo.Handler at compile time.
var _ geo.Handler = (*Controller)(nil)

// New builds an idle controller around p. A nil opts selects DefaultOptions.
func New(p geo.Provider, opts *Options) *Controller {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts

	clock := o.Clock
	if clock == nil {
		clock = SystemClock
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Controller{
		provider:  p,
		opts:      o,
		clock:     clock,
		view:      o.Viewport,
		log:       logger.With("component", "locate"),
		updatedAt: clock.Now(),
	}
}

// Subscribe registers o for every subsequent snapshot.
func (c *Controller) Subscribe(o Observer) {
	if o == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// RequestLocation starts a fresh acquisition cycle. Any scheduled retry and
// any outstanding attempt are abandoned. A previously found position stays
// visible until the new cycle resolves.
func (c *Controller) RequestLocation() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.cancelTimerLocked()
	c.errMsg = ""
	c.retry = 0
	c.phase = PhasePending
	c.cycleID = uuid.NewString()

	c.log.Info("location requested", "cycle", c.cycleID, "timeout", c.opts.Timeout)
	launch := c.beginAttemptLocked(c.opts.Timeout)
	c.publishLocked(EventRequested)
	c.mu.Unlock()

	launch()
}

// OnLocateSucceeded records a fix for the current cycle and recenters the
// viewport on it.
func (c *Controller) OnLocateSucceeded(p geo.Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.succeedLocked(p)
}

// OnLocateFailed records a failed attempt for the current cycle. It schedules
// a retry while budget remains and fails the cycle otherwise.
func (c *Controller) OnLocateFailed(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failLocked(message)
}

// Close cancels the pending retry and the outstanding attempt. Later calls
// to any method have no effect.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.cancelTimerLocked()
	c.endAttemptLocked()
	if c.phase == PhasePending {
		c.phase = PhaseIdle
		c.errMsg = ""
	}
	c.log.Info("controller closed", "cycle", c.cycleID)
	c.publishLocked(EventClosed)
	c.closed = true
}

// succeedLocked records the fix and recenters the viewport before the lock
// is released, so the viewport always ends on the newest fix.
func (c *Controller) succeedLocked(p geo.Position) {
	if c.closed {
		return
	}
	c.cancelTimerLocked()
	c.endAttemptLocked()
	c.phase = PhaseFound
	c.position = p
	c.hasPos = true
	c.errMsg = ""
	c.retry = 0

	c.log.Info("location found", "cycle", c.cycleID, "position", p.String())
	c.publishLocked(EventFound)

	if c.view != nil {
		c.view.FlyTo(p, c.view.Zoom())
	}
}

func (c *Controller) failLocked(message string) {
	if c.closed {
		return
	}
	c.cancelTimerLocked()
	c.endAttemptLocked()

	if c.retry < c.opts.MaxRetries {
		c.retry++
		c.phase = PhasePending
		c.errMsg = retryMessage(c.retry, c.opts.MaxRetries)
		c.scheduleRetryLocked()
		c.log.Warn("locate attempt failed, retry scheduled",
			"cycle", c.cycleID,
			"retry", c.retry,
			"max_retries", c.opts.MaxRetries,
			"delay", c.opts.RetryDelay,
			"reason", message,
		)
		c.publishLocked(EventRetryScheduled)
		return
	}

	c.phase = PhaseFailed
	c.errMsg = message + exhaustedSuffix
	c.retry = 0
	c.position = geo.Position{}
	c.hasPos = false
	c.log.Error("location acquisition failed", "cycle", c.cycleID, "reason", message)
	c.publishLocked(EventExhausted)
}

func (c *Controller) scheduleRetryLocked() {
	c.timerSeq++
	seq := c.timerSeq
	c.timer = c.clock.AfterFunc(c.opts.RetryDelay, func() {
		c.fireRetry(seq)
	})
}

func (c *Controller) fireRetry(seq uint64) {
	c.mu.Lock()
	if c.closed || c.timer == nil || seq != c.timerSeq {
		c.mu.Unlock()
		c.log.Debug("stale retry timer ignored", "seq", seq)
		return
	}
	c.timer = nil

	var timeout time.Duration
	if c.opts.UniformTimeout {
		timeout = c.opts.Timeout
	}
	c.phase = PhasePending
	launch := c.beginAttemptLocked(timeout)
	c.publishLocked(EventRetryStarted)
	c.mu.Unlock()

	launch()
}

func (c *Controller) cancelTimerLocked() {
	if c.timer == nil {
		return
	}
	c.timer.Stop()
	c.timer = nil
}

// beginAttemptLocked supersedes any outstanding attempt and returns a
// function that invokes the provider. The caller runs it after unlocking so
// providers that report synchronously do not deadlock.
func (c *Controller) beginAttemptLocked(timeout time.Duration) func() {
	c.endAttemptLocked()
	c.attemptID++
	c.inflight = true

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelAttempt = cancel
	h := &attempt{c: c, id: c.attemptID}
	opts := geo.LocateOptions{Timeout: timeout}

	c.log.Debug("locate attempt started",
		"cycle", c.cycleID,
		"attempt", h.id,
		"retry", c.retry,
		"timeout", timeout,
	)
	provider := c.provider
	return func() {
		provider.Locate(ctx, opts, h)
	}
}

func (c *Controller) endAttemptLocked() {
	c.inflight = false
	if c.cancelAttempt != nil {
		c.cancelAttempt()
		c.cancelAttempt = nil
	}
}

func (c *Controller) currentLocked(id uint64) bool {
	return !c.closed && c.inflight && id == c.attemptID
}

func (c *Controller) publishLocked(ev Event) {
	c.event = ev
	c.updatedAt = c.clock.Now()
	snap := c.snapshotLocked()
	for _, o := range c.observers {
		o.Notify(snap)
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Phase:       c.phase,
		Event:       c.event,
		Loading:     c.phase == PhasePending,
		Error:       c.errMsg,
		Position:    c.position,
		HasPosition: c.hasPos,
		RetryCount:  c.retry,
		MaxRetries:  c.opts.MaxRetries,
		CycleID:     c.cycleID,
		UpdatedAt:   c.updatedAt,
	}
}

// attempt is the handler given to the provider for one invocation. Reports
// from an attempt that is no longer current are dropped.
type attempt struct {
	c  *Controller
	id uint64
}

func (a *attempt) OnLocateSucceeded(p geo.Position) {
	c := a.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(a.id) {
		c.log.Debug("dropping stale locate result", "attempt", a.id)
		return
	}
	c.succeedLocked(p)
}

func (a *attempt) OnLocateFailed(message string) {
	c := a.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(a.id) {
		c.log.Debug("dropping stale locate failure", "attempt", a.id, "reason", message)
		return
	}
	c.failLocked(message)
}
