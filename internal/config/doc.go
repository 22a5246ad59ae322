// Package config loads Beacon's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/beacon/config.toml
//  3. If the file doesn't exist, return Default()
//  4. Keys missing from the file keep their default value
//
// # Default Values
//
//   - First-attempt timeout: 3s (timeout_ms)
//   - Retries after the first attempt: 3 (max_retries)
//   - Delay between a failure and the next attempt: 3s (retry_delay_ms)
//   - Provider: ipgeo against http://ip-api.com/json, 1 request/s
//   - Provider timeout for untimed attempts: 10s (default_timeout_ms)
//   - Reset view: 35.6892,51.389 at zoom 11
//   - Log file: ~/.local/state/beacon/beacon.log at level info
//
// # TOML Format
//
//	timeout_ms = 3000
//	max_retries = 3
//	retry_delay_ms = 3000
//	uniform_timeout = false
//	refresh_every_ms = 0
//	provider = "ipgeo"
//	endpoint = "http://ip-api.com/json"
//	log_level = "info"
//	metrics_addr = "127.0.0.1:9464"
//
// Durations are integer milliseconds. String values are trimmed and blank
// strings fall back to defaults. Tilde paths are expanded.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors
//   - Negative durations or counts
//   - An unknown provider or log level, or coordinates out of range
//
// Every invalid key is reported, joined into one error.
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//		return err
//	}
//	ctrl := locate.New(provider, cfg.LocateOptions())
package config
