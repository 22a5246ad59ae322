package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/beacon/internal/geo"
	"github.com/five82/beacon/internal/locate"
)

const (
	ProviderIPGeo  = "ipgeo"
	ProviderStatic = "static"
)

const (
	defaultConfigPath     = "~/.config/beacon/config.toml"
	defaultLogFile        = "~/.local/state/beacon/beacon.log"
	defaultLogLevel       = "info"
	defaultEndpoint       = "http://ip-api.com/json"
	defaultRequestsPerSec = 1.0
	defaultProviderWait   = 10 * time.Second
	defaultInitialZoom    = 11
)

// DefaultCenter is the reset-view center.
var DefaultCenter = geo.Position{Latitude: 35.6892, Longitude: 51.389}

// Config holds everything Beacon reads from config.toml.
type Config struct {
	Timeout        time.Duration
	MaxRetries     uint
	RetryDelay     time.Duration
	UniformTimeout bool
	// RefreshEvery starts a new cycle on this interval. Zero disables it.
	RefreshEvery time.Duration

	Provider       string
	Endpoint       string
	RequestsPerSec float64
	// ProviderTimeout applies to attempts that carry no timeout.
	ProviderTimeout time.Duration

	StaticPosition  geo.Position
	StaticFailFirst int
	StaticDelay     time.Duration

	InitialCenter geo.Position
	InitialZoom   int

	LogFile     string
	LogLevel    string
	MetricsAddr string
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Timeout:         locate.DefaultTimeout,
		MaxRetries:      locate.DefaultMaxRetries,
		RetryDelay:      locate.DefaultRetryDelay,
		Provider:        ProviderIPGeo,
		Endpoint:        defaultEndpoint,
		RequestsPerSec:  defaultRequestsPerSec,
		ProviderTimeout: defaultProviderWait,
		StaticPosition:  DefaultCenter,
		InitialCenter:   DefaultCenter,
		InitialZoom:     defaultInitialZoom,
		LogFile:         mustExpand(defaultLogFile),
		LogLevel:        defaultLogLevel,
	}
}

type rawConfig struct {
	TimeoutMS      *int64 `toml:"timeout_ms"`
	MaxRetries     *int64 `toml:"max_retries"`
	RetryDelayMS   *int64 `toml:"retry_delay_ms"`
	UniformTimeout bool   `toml:"uniform_timeout"`
	RefreshEveryMS *int64 `toml:"refresh_every_ms"`

	Provider         string   `toml:"provider"`
	Endpoint         string   `toml:"endpoint"`
	RequestsPerSec   *float64 `toml:"requests_per_sec"`
	DefaultTimeoutMS *int64   `toml:"default_timeout_ms"`

	StaticLat       *float64 `toml:"static_lat"`
	StaticLng       *float64 `toml:"static_lng"`
	StaticFailFirst *int64   `toml:"static_fail_first"`
	StaticDelayMS   *int64   `toml:"static_delay_ms"`

	InitialLat  *float64 `toml:"initial_lat"`
	InitialLng  *float64 `toml:"initial_lng"`
	InitialZoom *int64   `toml:"initial_zoom"`

	LogFile     string `toml:"log_file"`
	LogLevel    string `toml:"log_level"`
	MetricsAddr string `toml:"metrics_addr"`
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file yields Default().
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := raw.apply(&cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", resolved, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", resolved, err)
	}
	return cfg, nil
}

func (r rawConfig) apply(cfg *Config) error {
	var errs []error
	setDuration := func(dst *time.Duration, v *int64, key string) {
		if v == nil {
			return
		}
		if *v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", key, *v))
			return
		}
		*dst = time.Duration(*v) * time.Millisecond
	}

	setDuration(&cfg.Timeout, r.TimeoutMS, "timeout_ms")
	setDuration(&cfg.RetryDelay, r.RetryDelayMS, "retry_delay_ms")
	setDuration(&cfg.RefreshEvery, r.RefreshEveryMS, "refresh_every_ms")
	setDuration(&cfg.ProviderTimeout, r.DefaultTimeoutMS, "default_timeout_ms")
	setDuration(&cfg.StaticDelay, r.StaticDelayMS, "static_delay_ms")

	if r.MaxRetries != nil {
		if *r.MaxRetries < 0 {
			errs = append(errs, fmt.Errorf("max_retries must not be negative, got %d", *r.MaxRetries))
		} else {
			cfg.MaxRetries = uint(*r.MaxRetries)
		}
	}
	if r.StaticFailFirst != nil {
		if *r.StaticFailFirst < 0 {
			errs = append(errs, fmt.Errorf("static_fail_first must not be negative, got %d", *r.StaticFailFirst))
		} else {
			cfg.StaticFailFirst = int(*r.StaticFailFirst)
		}
	}
	cfg.UniformTimeout = r.UniformTimeout

	if v := strings.ToLower(strings.TrimSpace(r.Provider)); v != "" {
		cfg.Provider = v
	}
	if v := strings.TrimSpace(r.Endpoint); v != "" {
		cfg.Endpoint = v
	}
	if r.RequestsPerSec != nil && *r.RequestsPerSec > 0 {
		cfg.RequestsPerSec = *r.RequestsPerSec
	}

	if r.StaticLat != nil {
		cfg.StaticPosition.Latitude = *r.StaticLat
	}
	if r.StaticLng != nil {
		cfg.StaticPosition.Longitude = *r.StaticLng
	}
	if r.InitialLat != nil {
		cfg.InitialCenter.Latitude = *r.InitialLat
	}
	if r.InitialLng != nil {
		cfg.InitialCenter.Longitude = *r.InitialLng
	}
	if r.InitialZoom != nil && *r.InitialZoom > 0 {
		cfg.InitialZoom = int(*r.InitialZoom)
	}

	if v := strings.TrimSpace(r.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.ToLower(strings.TrimSpace(r.LogLevel)); v != "" {
		cfg.LogLevel = v
	}
	cfg.MetricsAddr = strings.TrimSpace(r.MetricsAddr)

	return errors.Join(errs...)
}

// Validate checks values that have no sensible fallback.
func (c Config) Validate() error {
	var errs []error
	switch c.Provider {
	case ProviderIPGeo, ProviderStatic:
	default:
		errs = append(errs, fmt.Errorf("provider %q is not one of %q, %q", c.Provider, ProviderIPGeo, ProviderStatic))
	}
	if !c.StaticPosition.Valid() {
		errs = append(errs, fmt.Errorf("static position %s is out of range", c.StaticPosition))
	}
	if !c.InitialCenter.Valid() {
		errs = append(errs, fmt.Errorf("initial center %s is out of range", c.InitialCenter))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	return errors.Join(errs...)
}

// LocateOptions converts the retry settings into controller options. The
// clock, viewport and logger are left for the caller.
func (c Config) LocateOptions() *locate.Options {
	return &locate.Options{
		Timeout:        c.Timeout,
		MaxRetries:     c.MaxRetries,
		RetryDelay:     c.RetryDelay,
		UniformTimeout: c.UniformTimeout,
	}
}

// DefaultPath returns the expanded default config path.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
