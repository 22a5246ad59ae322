// Package ui provides the Beacon terminal interface.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program styled with Lipgloss. It never talks to a
// provider directly: key presses call Locator.RequestLocation, and a ticker
// re-reads state.Store and state.View to pick up whatever the controller
// published in the meantime.
//
// # Package Structure
//
//   - model.go: Model, Update loop, layout and Run
//   - mapview.go: Web Mercator projection and the character map panel
//   - header.go: status bar, error banner and command bar
//   - logs.go: the log pane fed by logtail
//   - help.go: keyboard shortcut overlay
//   - theme.go: color themes and prebuilt styles
//
// # Layout
//
//	┌ beacon  ● LOCATING  Retry: 1/3  12:00:03 (now) ───────────┐
//	│ l:Find me  r:Reset view  +:Zoom in  -:Zoom out  ...       │
//	│ Geolocation error: Timeout expired.                       │  (banner)
//	│        │         │         │                              │
//	│ ───────┼─────────┼─────────┼──────                        │
//	│        │    +    │    ●    │                              │  (map)
//	│ Center 35.689200,51.389000  Zoom 11  ● You are here ...   │
//	└ Logs (optional) ──────────────────────────────────────────┘
//
// The map marks the view center with "+" and the last fix with "●". A fix
// outside the panel is drawn as an arrow on the nearest edge.
//
// # Preferences
//
// Zoom and theme changes are written to the prefs file as they happen so
// the next session opens the same way.
package ui
