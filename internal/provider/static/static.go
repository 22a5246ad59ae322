// Package static provides a fixed-position geo.Provider for offline use and
// demos. It can simulate slow fixes and a run of failures.
package static

import (
	"context"
	"sync"
	"time"

	"github.com/five82/beacon/internal/geo"
)

// DefaultTimeout applies to attempts that carry no timeout.
const DefaultTimeout = 10 * time.Second

// Provider always resolves to Position after Delay, unless told to fail.
type Provider struct {
	Position geo.Position
	// Delay is how long each attempt takes to resolve.
	Delay time.Duration
	// FailFirst makes the first N attempts fail with FailMessage.
	FailFirst int
	// FailMessage defaults to geo.UnavailableMessage.
	FailMessage string
	// DefaultTimeout overrides the package default for attempts without a
	// timeout.
	DefaultTimeout time.Duration

	mu    sync.Mutex
	calls int
}

// Ensure Provider implements geo.Provider at compile time.
var _ geo.Provider = (*Provider)(nil)

// New creates a provider that always returns the same location.
func New(lat, lng float64) *Provider {
	return &Provider{Position: geo.Position{Latitude: lat, Longitude: lng}}
}

// Calls reports how many attempts have been made.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Locate resolves the attempt. With no Delay the outcome is reported before
// Locate returns; otherwise a goroutine waits for the delay, the timeout or
// cancellation, whichever comes first. A Delay longer than the timeout
// reports geo.TimeoutMessage.
func (p *Provider) Locate(ctx context.Context, opts geo.LocateOptions, h geo.Handler) {
	p.mu.Lock()
	p.calls++
	fail := p.calls <= p.FailFirst
	delay := p.Delay
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = p.DefaultTimeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	p.mu.Unlock()

	if delay <= 0 {
		if ctx.Err() != nil {
			return
		}
		p.report(h, fail)
		return
	}

	go func() {
		resolve := time.NewTimer(delay)
		defer resolve.Stop()
		expire := time.NewTimer(timeout)
		defer expire.Stop()

		select {
		case <-ctx.Done():
		case <-expire.C:
			if ctx.Err() == nil {
				h.OnLocateFailed(geo.TimeoutMessage)
			}
		case <-resolve.C:
			if ctx.Err() == nil {
				p.report(h, fail)
			}
		}
	}()
}

func (p *Provider) report(h geo.Handler, fail bool) {
	if fail {
		msg := p.FailMessage
		if msg == "" {
			msg = geo.UnavailableMessage
		}
		h.OnLocateFailed(msg)
		return
	}
	h.OnLocateSucceeded(p.Position)
}
