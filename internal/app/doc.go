// Package app is the composition root for Beacon.
//
// # Overview
//
// This package wires configuration, logging, the location provider, the
// controller, shared state and the UI together. Business logic lives in the
// domain packages; app only connects them.
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()        Read ~/.config/beacon/config.toml
//	       ├─────> logging.NewFile()    JSON log file (the TUI owns stdout)
//	       ├─────> newProvider()        ipgeo client or static provider
//	       ├─────> locate.New()         Controller, recenters state.View
//	       ├─────> Subscribe(store)     Snapshots for the UI
//	       ├─────> telemetry.Serve()    /metrics when metrics_addr is set
//	       ├─────> StartRefresher()     Watch mode when refresh_every_ms > 0
//	       └─────> ui.Run()             Start TUI (blocks)
//
// Locate is the headless variant. It logs to stderr, runs one cycle and
// prints the fix, or returns an error wrapping ErrLocationFailed when the
// cycle is exhausted.
//
// # Error Handling
//
// Fatal errors (returned from Run and Locate):
//   - Invalid configuration or command-line overrides
//   - Log file or provider initialization failure
//
// Provider failures are not errors here. The controller retries them and
// the UI shows the resulting message in its banner.
package app
