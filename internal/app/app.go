package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/five82/beacon/internal/config"
	"github.com/five82/beacon/internal/geo"
	"github.com/five82/beacon/internal/locate"
	"github.com/five82/beacon/internal/logging"
	"github.com/five82/beacon/internal/prefs"
	"github.com/five82/beacon/internal/provider/ipgeo"
	"github.com/five82/beacon/internal/provider/static"
	"github.com/five82/beacon/internal/state"
	"github.com/five82/beacon/internal/telemetry"
	"github.com/five82/beacon/internal/ui"
)

// Options configure the Beacon application. Zero values keep what the
// config file says.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/beacon/prefs.toml
	// Provider overrides the configured provider name.
	Provider string
	// MaxRetries overrides the configured retry budget when non-nil.
	MaxRetries  *int
	MetricsAddr string
	// LocateOnStart requests a fix as soon as the UI starts.
	LocateOnStart bool
}

// Run boots the Beacon TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, closer, err := logging.NewFile(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closer.Close()

	userPrefs := prefs.Load(opts.PrefsPath)

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}

	view := state.NewView(cfg.InitialCenter, cfg.InitialZoom)
	if userPrefs.Zoom > 0 {
		view.SetView(cfg.InitialCenter, userPrefs.Zoom)
	}
	store := &state.Store{}

	lopts := cfg.LocateOptions()
	lopts.Viewport = view
	lopts.Logger = logger
	ctrl := locate.New(provider, lopts)
	defer ctrl.Close()
	ctrl.Subscribe(store)

	if cfg.MetricsAddr != "" {
		recorder := telemetry.NewRecorder()
		ctrl.Subscribe(recorder)
		go func() {
			if err := telemetry.Serve(ctx, cfg.MetricsAddr, recorder.Registry(), logger); err != nil {
				logger.Error("metrics server stopped", "component", "telemetry", "error", err)
			}
		}()
	}

	if cfg.RefreshEvery > 0 {
		StartRefresher(ctx, ctrl, cfg.RefreshEvery)
	}

	logger.Info("beacon started",
		"provider", cfg.Provider,
		"max_retries", cfg.MaxRetries,
		"retry_delay", cfg.RetryDelay,
		"refresh_every", cfg.RefreshEvery,
	)

	uiOpts := ui.Options{
		Context:       ctx,
		Locator:       ctrl,
		Store:         store,
		View:          view,
		LogPath:       cfg.LogFile,
		ThemeName:     userPrefs.Theme,
		PrefsPath:     opts.PrefsPath,
		LocateOnStart: opts.LocateOnStart && cfg.RefreshEvery <= 0,
	}
	return ui.Run(uiOpts)
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if opts.Provider != "" {
		cfg.Provider = opts.Provider
	}
	if opts.MaxRetries != nil {
		if *opts.MaxRetries < 0 {
			return config.Config{}, fmt.Errorf("max retries must not be negative, got %d", *opts.MaxRetries)
		}
		cfg.MaxRetries = uint(*opts.MaxRetries)
	}
	if opts.MetricsAddr != "" {
		cfg.MetricsAddr = opts.MetricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newProvider(cfg config.Config, logger *slog.Logger) (geo.Provider, error) {
	switch cfg.Provider {
	case config.ProviderStatic:
		return &static.Provider{
			Position:       cfg.StaticPosition,
			Delay:          cfg.StaticDelay,
			FailFirst:      cfg.StaticFailFirst,
			DefaultTimeout: cfg.ProviderTimeout,
		}, nil
	default:
		client, err := ipgeo.NewClient(ipgeo.Config{
			Endpoint:       cfg.Endpoint,
			RequestsPerSec: cfg.RequestsPerSec,
			DefaultTimeout: cfg.ProviderTimeout,
			Logger:         logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init ipgeo client: %w", err)
		}
		return client, nil
	}
}
