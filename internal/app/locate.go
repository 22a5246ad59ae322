package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/five82/beacon/internal/locate"
	"github.com/five82/beacon/internal/logging"
)

// ErrLocationFailed reports a cycle that ended exhausted.
var ErrLocationFailed = errors.New("location failed")

// LocateOptions configure a one-shot acquisition.
type LocateOptions struct {
	Options
	// JSON prints a Result object instead of plain coordinates.
	JSON   bool
	Stdout io.Writer
	Stderr io.Writer
}

// Result is the JSON form of a one-shot outcome.
type Result struct {
	Found     bool    `json:"found"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Retries   uint    `json:"retries"`
	CycleID   string  `json:"cycle_id"`
	Error     string  `json:"error,omitempty"`
}

// Locate runs a single acquisition cycle without the UI and prints the
// outcome. It blocks until the cycle is found or exhausted, or ctx ends.
// An exhausted cycle returns an error wrapping ErrLocationFailed.
func Locate(ctx context.Context, opts LocateOptions) error {
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	cfg, err := loadConfig(opts.Options)
	if err != nil {
		return err
	}
	logger := logging.New(stderr, cfg.LogLevel)

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}

	lopts := cfg.LocateOptions()
	lopts.Logger = logger
	ctrl := locate.New(provider, lopts)
	defer ctrl.Close()

	done := make(chan locate.Snapshot, 1)
	ctrl.Subscribe(locate.ObserverFunc(func(s locate.Snapshot) {
		if s.Terminal() {
			select {
			case done <- s:
			default:
			}
		}
	}))
	ctrl.RequestLocation()

	var snap locate.Snapshot
	select {
	case snap = <-done:
	case <-ctx.Done():
		return fmt.Errorf("locate: %w", ctx.Err())
	}

	if err := printResult(stdout, snap, opts.JSON); err != nil {
		return err
	}
	if snap.Event == locate.EventExhausted {
		return fmt.Errorf("%w: %s", ErrLocationFailed, snap.Error)
	}
	return nil
}

func printResult(w io.Writer, snap locate.Snapshot, asJSON bool) error {
	found := snap.Event == locate.EventFound
	if !asJSON {
		if !found {
			return nil
		}
		_, err := fmt.Fprintln(w, snap.Position.String())
		return err
	}

	res := Result{
		Found:   found,
		Retries: snap.RetryCount,
		CycleID: snap.CycleID,
		Error:   snap.Error,
	}
	if found {
		res.Latitude = snap.Position.Latitude
		res.Longitude = snap.Position.Longitude
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
