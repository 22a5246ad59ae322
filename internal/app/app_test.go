package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/five82/beacon/internal/config"
	"github.com/five82/beacon/internal/provider/ipgeo"
	"github.com/five82/beacon/internal/provider/static"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesOverrides(t *testing.T) {
	path := writeConfig(t, "provider = \"ipgeo\"\nmax_retries = 5\n")
	retries := 1
	cfg, err := loadConfig(Options{
		ConfigPath:  path,
		Provider:    config.ProviderStatic,
		MaxRetries:  &retries,
		MetricsAddr: "127.0.0.1:0",
	})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Provider != config.ProviderStatic {
		t.Fatalf("Provider = %q, want static", cfg.Provider)
	}
	if cfg.MaxRetries != 1 {
		t.Fatalf("MaxRetries = %d, want 1", cfg.MaxRetries)
	}
	if cfg.MetricsAddr != "127.0.0.1:0" {
		t.Fatalf("MetricsAddr = %q", cfg.MetricsAddr)
	}
}

func TestLoadConfigRejectsBadOverrides(t *testing.T) {
	path := writeConfig(t, "")
	negative := -1
	if _, err := loadConfig(Options{ConfigPath: path, MaxRetries: &negative}); err == nil {
		t.Fatalf("expected error for negative retries")
	}
	if _, err := loadConfig(Options{ConfigPath: path, Provider: "gps"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestNewProviderSelectsImplementation(t *testing.T) {
	cfg := config.Default()
	p, err := newProvider(cfg, nil)
	if err != nil {
		t.Fatalf("newProvider(ipgeo): %v", err)
	}
	if _, ok := p.(*ipgeo.Client); !ok {
		t.Fatalf("provider = %T, want *ipgeo.Client", p)
	}

	cfg.Provider = config.ProviderStatic
	cfg.StaticFailFirst = 2
	p, err = newProvider(cfg, nil)
	if err != nil {
		t.Fatalf("newProvider(static): %v", err)
	}
	sp, ok := p.(*static.Provider)
	if !ok {
		t.Fatalf("provider = %T, want *static.Provider", p)
	}
	if sp.FailFirst != 2 || sp.Position != cfg.StaticPosition {
		t.Fatalf("static provider = %+v, want config values", sp)
	}
}

func TestLocatePrintsPosition(t *testing.T) {
	path := writeConfig(t, "provider = \"static\"\nstatic_lat = 35.7\nstatic_lng = 51.4\n")
	var out, errOut bytes.Buffer

	err := Locate(context.Background(), LocateOptions{
		Options: Options{ConfigPath: path},
		Stdout:  &out,
		Stderr:  &errOut,
	})
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "35.700000,51.400000" {
		t.Fatalf("output = %q, want 35.700000,51.400000", got)
	}
	if !strings.Contains(errOut.String(), `"msg":"location found"`) {
		t.Fatalf("stderr log missing found entry: %s", errOut.String())
	}
}

func TestLocateRetriesThenSucceeds(t *testing.T) {
	path := writeConfig(t, "provider = \"static\"\nstatic_fail_first = 1\nmax_retries = 1\nretry_delay_ms = 1\n")
	var out bytes.Buffer

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := Locate(ctx, LocateOptions{
		Options: Options{ConfigPath: path},
		JSON:    true,
		Stdout:  &out,
		Stderr:  &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}

	var res Result
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v (%s)", err, out.String())
	}
	if !res.Found || res.Latitude != config.DefaultCenter.Latitude {
		t.Fatalf("result = %+v, want a fix at the default center", res)
	}
	if res.CycleID == "" {
		t.Fatalf("result has no cycle id")
	}
}

func TestLocateExhausted(t *testing.T) {
	path := writeConfig(t, "provider = \"static\"\nstatic_fail_first = 10\nmax_retries = 0\n")
	var out bytes.Buffer

	err := Locate(context.Background(), LocateOptions{
		Options: Options{ConfigPath: path},
		JSON:    true,
		Stdout:  &out,
		Stderr:  &bytes.Buffer{},
	})
	if !errors.Is(err, ErrLocationFailed) {
		t.Fatalf("err = %v, want ErrLocationFailed", err)
	}
	if !strings.Contains(err.Error(), "(Max retries reached)") {
		t.Fatalf("err = %q, want the exhaustion message", err)
	}

	var res Result
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Found || res.Error == "" {
		t.Fatalf("result = %+v, want a failure", res)
	}
}

func TestLocateStopsOnCancel(t *testing.T) {
	path := writeConfig(t, "provider = \"static\"\nstatic_delay_ms = 60000\ntimeout_ms = 60000\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Locate(ctx, LocateOptions{
		Options: Options{ConfigPath: path},
		Stdout:  &bytes.Buffer{},
		Stderr:  &bytes.Buffer{},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

type countingLocator struct{ calls atomic.Int32 }

func (l *countingLocator) RequestLocation() { l.calls.Add(1) }

func TestStartRefresherRequestsOnInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loc := &countingLocator{}

	StartRefresher(ctx, loc, 5*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for loc.calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("refresher made %d requests, want at least 3", loc.calls.Load())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStartRefresherDisabled(t *testing.T) {
	loc := &countingLocator{}
	StartRefresher(context.Background(), loc, 0)
	time.Sleep(10 * time.Millisecond)
	if got := loc.calls.Load(); got != 0 {
		t.Fatalf("calls = %d, want 0", got)
	}
}
