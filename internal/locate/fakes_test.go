package locate

import (
	"context"
	"sync"
	"time"

	"github.com/five82/beacon/internal/geo"
)

// fakeClock records timers and fires them on demand.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{delay: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// live returns timers that were neither stopped nor fired.
func (c *fakeClock) live() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeTimer
	for _, t := range c.timers {
		if !t.isStopped() && !t.isFired() {
			out = append(out, t)
		}
	}
	return out
}

func (c *fakeClock) all() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeTimer(nil), c.timers...)
}

type fakeTimer struct {
	mu      sync.Mutex
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fire runs the callback even when the timer was stopped, which models a
// callback that was already running when Stop was called.
func (t *fakeTimer) fire() {
	t.mu.Lock()
	t.fired = true
	t.mu.Unlock()
	t.f()
}

func (t *fakeTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *fakeTimer) isFired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

type locateCall struct {
	ctx  context.Context
	opts geo.LocateOptions
	h    geo.Handler
}

// fakeProvider records every invocation and never reports on its own.
type fakeProvider struct {
	mu    sync.Mutex
	calls []locateCall
}

func (p *fakeProvider) Locate(ctx context.Context, opts geo.LocateOptions, h geo.Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, locateCall{ctx: ctx, opts: opts, h: h})
}

func (p *fakeProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func (p *fakeProvider) last() locateCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[len(p.calls)-1]
}

func (p *fakeProvider) call(i int) locateCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[i]
}

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) Notify(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

type flight struct {
	pos  geo.Position
	zoom int
}

type fakeViewport struct {
	mu      sync.Mutex
	zoom    int
	flights []flight
}

func (v *fakeViewport) Zoom() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.zoom
}

func (v *fakeViewport) FlyTo(p geo.Position, zoom int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.flights = append(v.flights, flight{pos: p, zoom: zoom})
}

func (v *fakeViewport) all() []flight {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]flight(nil), v.flights...)
}

// lockCheckViewport records whether the controller lock was held during
// each FlyTo.
type lockCheckViewport struct {
	ctrl      *Controller
	heldOnFly []bool
}

func (v *lockCheckViewport) Zoom() int { return 11 }

func (v *lockCheckViewport) FlyTo(geo.Position, int) {
	held := !v.ctrl.mu.TryLock()
	if !held {
		v.ctrl.mu.Unlock()
	}
	v.heldOnFly = append(v.heldOnFly, held)
}

// blockingViewport stalls its first Zoom call until gate is closed.
type blockingViewport struct {
	zoom    int
	entered chan struct{}
	gate    chan struct{}
	once    sync.Once

	mu   sync.Mutex
	last geo.Position
}

func newBlockingViewport(zoom int) *blockingViewport {
	return &blockingViewport{
		zoom:    zoom,
		entered: make(chan struct{}),
		gate:    make(chan struct{}),
	}
}

func (v *blockingViewport) Zoom() int {
	v.once.Do(func() {
		close(v.entered)
		<-v.gate
	})
	return v.zoom
}

func (v *blockingViewport) FlyTo(p geo.Position, _ int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.last = p
}

func (v *blockingViewport) center() geo.Position {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last
}
