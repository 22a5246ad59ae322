package locate

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/beacon/internal/geo"
)

var tehran = geo.Position{Latitude: 35.7, Longitude: 51.4}

type harness struct {
	ctrl     *Controller
	clock    *fakeClock
	provider *fakeProvider
	rec      *recorder
	view     *fakeViewport
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()

	h := &harness{
		clock:    newFakeClock(),
		provider: &fakeProvider{},
		rec:      &recorder{},
		view:     &fakeViewport{zoom: 11},
	}
	opts := DefaultOptions()
	opts.Clock = h.clock
	opts.Viewport = h.view
	if mutate != nil {
		mutate(opts)
	}
	h.ctrl = New(h.provider, opts)
	h.ctrl.Subscribe(h.rec)
	t.Cleanup(h.ctrl.Close)
	return h
}

// fireRetry fires the single live retry timer.
func (h *harness) fireRetry(t *testing.T) {
	t.Helper()
	live := h.clock.live()
	require.Len(t, live, 1, "expected exactly one live retry timer")
	live[0].fire()
}

func (h *harness) fail(msg string) {
	h.provider.last().h.OnLocateFailed(msg)
}

func TestRequestLocation_ImmediateSuccess(t *testing.T) {
	h := newHarness(t, nil)

	h.ctrl.RequestLocation()
	snap := h.ctrl.Snapshot()
	assert.Equal(t, PhasePending, snap.Phase)
	assert.Equal(t, EventRequested, snap.Event)
	assert.True(t, snap.Loading)
	assert.Empty(t, snap.Error)
	assert.NotEmpty(t, snap.CycleID)

	require.Equal(t, 1, h.provider.count())
	first := h.provider.last()
	assert.Equal(t, DefaultTimeout, first.opts.Timeout)

	first.h.OnLocateSucceeded(tehran)

	snap = h.ctrl.Snapshot()
	assert.Equal(t, PhaseFound, snap.Phase)
	assert.Equal(t, EventFound, snap.Event)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
	assert.True(t, snap.HasPosition)
	assert.Equal(t, tehran, snap.Position)
	assert.Zero(t, snap.RetryCount)
	assert.Equal(t, h.clock.Now(), snap.UpdatedAt)

	assert.Equal(t, []flight{{pos: tehran, zoom: 11}}, h.view.all())
	assert.ErrorIs(t, first.ctx.Err(), context.Canceled, "resolved attempt context should be released")
	assert.Empty(t, h.clock.live())
}

func TestTwoTransientFailuresThenSuccess(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.RequestLocation()

	h.fail("timeout")
	snap := h.ctrl.Snapshot()
	assert.Equal(t, "Location acquisition timed out. Retrying... (1/3)", snap.Error)
	assert.True(t, snap.Loading)
	assert.Equal(t, uint(1), snap.RetryCount)
	assert.Equal(t, EventRetryScheduled, snap.Event)

	live := h.clock.live()
	require.Len(t, live, 1)
	assert.Equal(t, DefaultRetryDelay, live[0].delay)
	assert.Equal(t, 1, h.provider.count(), "retry must wait for the timer")

	h.fireRetry(t)
	snap = h.ctrl.Snapshot()
	assert.True(t, snap.Loading)
	assert.Equal(t, EventRetryStarted, snap.Event)
	require.Equal(t, 2, h.provider.count())
	assert.Zero(t, h.provider.last().opts.Timeout, "retries leave the timeout to the provider")

	h.fail("timeout")
	snap = h.ctrl.Snapshot()
	assert.Equal(t, "Location acquisition timed out. Retrying... (2/3)", snap.Error)
	assert.Equal(t, uint(2), snap.RetryCount)

	h.fireRetry(t)
	require.Equal(t, 3, h.provider.count())

	h.provider.last().h.OnLocateSucceeded(tehran)
	snap = h.ctrl.Snapshot()
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
	assert.Equal(t, tehran, snap.Position)
	assert.Zero(t, snap.RetryCount)
	assert.Empty(t, h.clock.live())
}

func TestExhaustingRetriesFailsCycle(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.RequestLocation()

	for i := uint(1); i <= DefaultMaxRetries; i++ {
		h.fail("denied")
		assert.Equal(t, retryMessage(i, DefaultMaxRetries), h.ctrl.Snapshot().Error)
		h.fireRetry(t)
	}
	h.fail("denied")

	snap := h.ctrl.Snapshot()
	assert.Equal(t, PhaseFailed, snap.Phase)
	assert.Equal(t, EventExhausted, snap.Event)
	assert.Equal(t, "denied (Max retries reached)", snap.Error)
	assert.False(t, snap.HasPosition)
	assert.False(t, snap.Loading)
	assert.Zero(t, snap.RetryCount)
	assert.Equal(t, int(DefaultMaxRetries)+1, h.provider.count())
	assert.Empty(t, h.clock.live())
}

func TestRefreshKeepsFixUntilExhaustionClearsIt(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.RequestLocation()
	h.provider.last().h.OnLocateSucceeded(tehran)

	h.ctrl.RequestLocation()
	snap := h.ctrl.Snapshot()
	assert.True(t, snap.Loading)
	assert.True(t, snap.HasPosition, "last known fix stays visible during refresh")
	assert.Equal(t, tehran, snap.Position)

	for i := 0; i < DefaultMaxRetries; i++ {
		h.fail("timeout")
		assert.True(t, h.ctrl.Snapshot().HasPosition, "transient failures keep the fix")
		h.fireRetry(t)
	}
	h.fail("timeout")

	snap = h.ctrl.Snapshot()
	assert.False(t, snap.HasPosition)
	assert.Equal(t, geo.Position{}, snap.Position)
	assert.Equal(t, "timeout (Max retries reached)", snap.Error)
}

func TestRequestLocationCancelsPendingRetry(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.RequestLocation()
	h.fail("timeout")

	live := h.clock.live()
	require.Len(t, live, 1)
	stale := live[0]

	h.ctrl.RequestLocation()
	assert.True(t, stale.isStopped())
	assert.Empty(t, h.clock.live())
	snap := h.ctrl.Snapshot()
	assert.Zero(t, snap.RetryCount)
	assert.Empty(t, snap.Error)
	require.Equal(t, 2, h.provider.count())

	notified := h.rec.len()
	stale.fire()

	assert.Equal(t, 2, h.provider.count(), "stale timer must not start an attempt")
	assert.Equal(t, notified, h.rec.len(), "stale timer must not notify")
	assert.Equal(t, EventRequested, h.ctrl.Snapshot().Event)
}

func TestSuccessCancelsPendingRetry(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.RequestLocation()
	h.fail("timeout")
	stale := h.clock.live()[0]

	h.ctrl.OnLocateSucceeded(tehran)
	assert.True(t, stale.isStopped())

	stale.fire()
	snap := h.ctrl.Snapshot()
	assert.Equal(t, PhaseFound, snap.Phase)
	assert.False(t, snap.Loading)
	assert.Equal(t, 1, h.provider.count())
}

func TestFailureReplacesPendingRetry(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.RequestLocation()
	h.fail("timeout")
	first := h.clock.live()[0]

	h.ctrl.OnLocateFailed("timeout")
	assert.True(t, first.isStopped())
	live := h.clock.live()
	require.Len(t, live, 1)
	assert.NotSame(t, first, live[0])
	assert.Equal(t, uint(2), h.ctrl.Snapshot().RetryCount)

	first.fire()
	assert.Equal(t, 1, h.provider.count())
	assert.Len(t, h.clock.live(), 1)

	live[0].fire()
	assert.Equal(t, 2, h.provider.count())
}

func TestRepeatedRequestsRestartCycle(t *testing.T) {
	h := newHarness(t, nil)

	h.ctrl.RequestLocation()
	firstCycle := h.ctrl.Snapshot().CycleID
	h.fail("timeout")
	h.fireRetry(t)
	superseded := h.provider.last()

	h.ctrl.RequestLocation()
	snap := h.ctrl.Snapshot()
	assert.NotEqual(t, firstCycle, snap.CycleID)
	assert.Zero(t, snap.RetryCount)
	require.Equal(t, 3, h.provider.count())
	current := h.provider.last()
	assert.Equal(t, DefaultTimeout, current.opts.Timeout)
	assert.ErrorIs(t, superseded.ctx.Err(), context.Canceled)

	superseded.h.OnLocateSucceeded(geo.Position{Latitude: 1, Longitude: 1})
	snap = h.ctrl.Snapshot()
	assert.Equal(t, PhasePending, snap.Phase)
	assert.False(t, snap.HasPosition, "superseded attempt must not resolve the new cycle")

	superseded.h.OnLocateFailed("timeout")
	snap = h.ctrl.Snapshot()
	assert.Zero(t, snap.RetryCount, "superseded attempt must not consume retry budget")
	assert.Empty(t, h.clock.live())

	current.h.OnLocateSucceeded(tehran)
	snap = h.ctrl.Snapshot()
	assert.Equal(t, PhaseFound, snap.Phase)
	assert.Equal(t, tehran, snap.Position)
}

func TestRetryCountStaysWithinBudget(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.MaxRetries = 2 })

	for cycle := 0; cycle < 3; cycle++ {
		h.ctrl.RequestLocation()
		for {
			h.fail("timeout")
			if h.ctrl.Snapshot().Event == EventExhausted {
				break
			}
			h.fireRetry(t)
		}
	}
	h.ctrl.RequestLocation()
	h.fail("timeout")
	h.fireRetry(t)
	h.provider.last().h.OnLocateSucceeded(tehran)

	var exhausted int
	for _, s := range h.rec.all() {
		assert.LessOrEqual(t, s.RetryCount, s.MaxRetries)
		switch s.Event {
		case EventExhausted:
			exhausted++
			assert.Zero(t, s.RetryCount)
		case EventFound, EventRequested:
			assert.Zero(t, s.RetryCount)
		}
	}
	assert.Equal(t, 3, exhausted)
}

func TestRetriesUseFixedDelay(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.RetryDelay = 750 * time.Millisecond })
	h.ctrl.RequestLocation()
	for i := 0; i < DefaultMaxRetries; i++ {
		h.fail("timeout")
		h.fireRetry(t)
	}
	timers := h.clock.all()
	require.Len(t, timers, DefaultMaxRetries)
	for _, tm := range timers {
		assert.Equal(t, 750*time.Millisecond, tm.delay)
	}
}

func TestUniformTimeoutAppliesToRetries(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Timeout = 2 * time.Second
		o.UniformTimeout = true
	})
	h.ctrl.RequestLocation()
	h.fail("timeout")
	h.fireRetry(t)

	assert.Equal(t, 2*time.Second, h.provider.last().opts.Timeout)
}

func TestZeroRetriesFailsImmediately(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.MaxRetries = 0 })
	h.ctrl.RequestLocation()
	h.fail("denied")

	snap := h.ctrl.Snapshot()
	assert.Equal(t, PhaseFailed, snap.Phase)
	assert.Equal(t, "denied (Max retries reached)", snap.Error)
	assert.Empty(t, h.clock.all())
}

func TestAttemptReportsAtMostOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.RequestLocation()
	handler := h.provider.last().h

	handler.OnLocateSucceeded(tehran)
	handler.OnLocateFailed("late failure")

	snap := h.ctrl.Snapshot()
	assert.Equal(t, PhaseFound, snap.Phase)
	assert.Empty(t, snap.Error)
	assert.Empty(t, h.clock.all())
}

func TestCloseCancelsPendingRetry(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.RequestLocation()
	h.fail("timeout")
	pending := h.clock.live()
	require.Len(t, pending, 1)

	h.ctrl.Close()
	assert.True(t, pending[0].isStopped())
	assert.Empty(t, h.clock.live())

	snap := h.ctrl.Snapshot()
	assert.Equal(t, EventClosed, snap.Event)
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error, "retry message must not outlive the cycle")

	notified := h.rec.len()
	calls := h.provider.count()
	pending[0].fire()
	h.ctrl.RequestLocation()
	h.ctrl.OnLocateSucceeded(tehran)
	h.ctrl.OnLocateFailed("timeout")
	h.ctrl.Close()

	assert.Equal(t, calls, h.provider.count())
	assert.Equal(t, notified, h.rec.len())
}

func TestCloseCancelsInflightAttempt(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.RequestLocation()
	h.fail("timeout")
	h.fireRetry(t)
	inflight := h.provider.last()
	require.NoError(t, inflight.ctx.Err())

	h.ctrl.Close()
	assert.ErrorIs(t, inflight.ctx.Err(), context.Canceled)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)

	inflight.h.OnLocateSucceeded(tehran)
	assert.False(t, h.ctrl.Snapshot().HasPosition)
	assert.Empty(t, h.view.all())
}

func TestRecenterHappensUnderLock(t *testing.T) {
	v := &lockCheckViewport{}
	h := newHarness(t, func(o *Options) { o.Viewport = v })
	v.ctrl = h.ctrl

	h.ctrl.RequestLocation()
	h.provider.last().h.OnLocateSucceeded(tehran)

	require.Len(t, v.heldOnFly, 1)
	assert.True(t, v.heldOnFly[0], "FlyTo ran without the controller lock")
}

func TestViewportEndsOnNewestFix(t *testing.T) {
	first := geo.Position{Latitude: 1, Longitude: 1}
	second := geo.Position{Latitude: 2, Longitude: 2}
	v := newBlockingViewport(11)
	h := newHarness(t, func(o *Options) { o.Viewport = v })

	h.ctrl.RequestLocation()
	handler := h.provider.last().h

	doneFirst := make(chan struct{})
	go func() {
		handler.OnLocateSucceeded(first)
		close(doneFirst)
	}()
	<-v.entered

	doneSecond := make(chan struct{})
	go func() {
		h.ctrl.RequestLocation()
		h.ctrl.OnLocateSucceeded(second)
		close(doneSecond)
	}()
	time.Sleep(20 * time.Millisecond)
	close(v.gate)

	for _, done := range []chan struct{}{doneFirst, doneSecond} {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("success did not complete")
		}
	}

	snap := h.ctrl.Snapshot()
	assert.Equal(t, second, snap.Position)
	assert.Equal(t, snap.Position, v.center(), "viewport left on an older fix")
}

func TestNewWithNilOptionsUsesDefaults(t *testing.T) {
	c := New(&fakeProvider{}, nil)
	t.Cleanup(c.Close)

	assert.Equal(t, DefaultTimeout, c.opts.Timeout)
	assert.Equal(t, DefaultRetryDelay, c.opts.RetryDelay)
	snap := c.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Equal(t, uint(DefaultMaxRetries), snap.MaxRetries)
	assert.False(t, snap.Loading)
	assert.False(t, snap.HasPosition)
}

func TestSystemClockDrivesAsyncRetries(t *testing.T) {
	var calls atomic.Int32
	provider := geo.ProviderFunc(func(ctx context.Context, _ geo.LocateOptions, h geo.Handler) {
		n := calls.Add(1)
		go func() {
			if n <= 2 {
				h.OnLocateFailed("timeout")
				return
			}
			h.OnLocateSucceeded(tehran)
		}()
	})

	done := make(chan Snapshot, 1)
	opts := DefaultOptions()
	opts.RetryDelay = 5 * time.Millisecond
	c := New(provider, opts)
	t.Cleanup(c.Close)
	c.Subscribe(ObserverFunc(func(s Snapshot) {
		if s.Terminal() {
			select {
			case done <- s:
			default:
			}
		}
	}))

	c.RequestLocation()

	select {
	case snap := <-done:
		assert.Equal(t, EventFound, snap.Event)
		assert.Equal(t, tehran, snap.Position)
		assert.Equal(t, int32(3), calls.Load())
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not resolve")
	}
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "pending", PhasePending.String())
	assert.Equal(t, "found", PhaseFound.String())
	assert.Equal(t, "failed", PhaseFailed.String())
}
