// Package geo holds the position type and the contract between location
// providers and the acquisition controller.
package geo

import (
	"context"
	"fmt"
	"time"
)

// Position is a single geographic fix in decimal degrees.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// String renders the position as "lat,lng" with six decimals.
func (p Position) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Latitude, p.Longitude)
}

// Valid reports whether the coordinates fall inside WGS84 bounds.
func (p Position) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// LocateOptions configures one locate attempt. A zero Timeout means the
// provider's own default applies.
type LocateOptions struct {
	Timeout time.Duration
}

// Handler receives the outcome of a locate attempt.
type Handler interface {
	OnLocateSucceeded(p Position)
	OnLocateFailed(message string)
}

// Provider performs asynchronous locate attempts.
//
// Locate must not block. For each call it reports at most one outcome to h,
// and reports nothing once ctx has been cancelled by the caller.
type Provider interface {
	Locate(ctx context.Context, opts LocateOptions, h Handler)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, opts LocateOptions, h Handler)

// Locate calls f.
func (f ProviderFunc) Locate(ctx context.Context, opts LocateOptions, h Handler) {
	f(ctx, opts, h)
}

// Failure messages shared by providers.
const (
	TimeoutMessage     = "Geolocation error: Timeout expired."
	UnavailableMessage = "Geolocation error: Position unavailable."
)
