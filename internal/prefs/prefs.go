// Package prefs persists Beacon user preferences in
// ~/.config/beacon/prefs.toml.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds what the UI remembers between runs.
type Prefs struct {
	Theme string `toml:"theme"`
	// Zoom is the last map zoom. Zero means use the configured initial zoom.
	Zoom int `toml:"zoom,omitempty"`
}

const (
	defaultPrefsPath = "~/.config/beacon/prefs.toml"
	defaultTheme     = "Nightfox"
	maxZoom          = 18
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Default returns the preferences used on first run.
func Default() Prefs {
	return Prefs{Theme: defaultTheme}
}

// Load reads preferences from path. Any problem reading or parsing the file
// yields defaults; preferences never block startup.
func Load(path string) Prefs {
	resolved, err := resolvePath(path)
	if err != nil {
		return Default()
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return Default()
	}
	var p Prefs
	if err := toml.Unmarshal(data, &p); err != nil {
		return Default()
	}
	return p.normalize()
}

// Save writes preferences to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p.normalize())
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func (p Prefs) normalize() Prefs {
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	if p.Zoom < 0 || p.Zoom > maxZoom {
		p.Zoom = 0
	}
	return p
}

func resolvePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = defaultPrefsPath
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
