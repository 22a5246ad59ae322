package state

import (
	"sync"

	"github.com/five82/beacon/internal/geo"
	"github.com/five82/beacon/internal/locate"
)

const (
	MinZoom = 1
	MaxZoom = 18
)

// ViewState is a copy of the viewport.
type ViewState struct {
	Center geo.Position
	Zoom   int
	// Flights counts recenterings caused by fixes.
	Flights int
}

// View is the map viewport shared by the controller and the UI.
type View struct {
	mu          sync.RWMutex
	center      geo.Position
	zoom        int
	flights     int
	initial     geo.Position
	initialZoom int
}

// Ensure View implements locate.Viewport at compile time.
var _ locate.Viewport = (*View)(nil)

// NewView creates a viewport at center. Reset returns to these values.
func NewView(center geo.Position, zoom int) *View {
	zoom = clampZoom(zoom)
	return &View{center: center, zoom: zoom, initial: center, initialZoom: zoom}
}

// Zoom returns the current zoom level.
func (v *View) Zoom() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.zoom
}

// FlyTo recenters on p at zoom.
func (v *View) FlyTo(p geo.Position, zoom int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.center = p
	v.zoom = clampZoom(zoom)
	v.flights++
}

// SetView moves the viewport without counting a flight.
func (v *View) SetView(center geo.Position, zoom int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.center = center
	v.zoom = clampZoom(zoom)
}

// Reset restores the initial center and zoom.
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.center = v.initial
	v.zoom = v.initialZoom
}

// ZoomIn increases the zoom by one level, up to MaxZoom.
func (v *View) ZoomIn() int { return v.zoomBy(1) }

// ZoomOut decreases the zoom by one level, down to MinZoom.
func (v *View) ZoomOut() int { return v.zoomBy(-1) }

func (v *View) zoomBy(delta int) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.zoom = clampZoom(v.zoom + delta)
	return v.zoom
}

// Snapshot returns a copy of the viewport.
func (v *View) Snapshot() ViewState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return ViewState{Center: v.center, Zoom: v.zoom, Flights: v.flights}
}

func clampZoom(z int) int {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}
