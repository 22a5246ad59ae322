package app

import (
	"context"
	"time"

	"github.com/five82/beacon/internal/ui"
)

// StartRefresher launches a background goroutine that starts a new
// acquisition cycle at a fixed cadence, beginning immediately. It returns
// at once and stops when ctx is cancelled. A non-positive interval starts
// nothing.
func StartRefresher(ctx context.Context, l ui.Locator, interval time.Duration) {
	if interval <= 0 || l == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			l.RequestLocation()
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
