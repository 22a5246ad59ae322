package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/beacon/internal/config"
	"github.com/five82/beacon/internal/prefs"
	"github.com/five82/beacon/internal/state"
)

// Locator starts an acquisition cycle. *locate.Controller implements it.
type Locator interface {
	RequestLocation()
}

// Options configures the UI.
type Options struct {
	Context context.Context
	Locator Locator
	Store   *state.Store
	View    *state.View
	LogPath string
	// RefreshTick is how often the store is re-read.
	RefreshTick time.Duration
	ThemeName   string
	PrefsPath   string
	// LocateOnStart requests a fix as soon as the program starts.
	LocateOnStart bool
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx           context.Context
	locator       Locator
	store         *state.Store
	view          *state.View
	logPath       string
	prefsPath     string
	tick          time.Duration
	locateOnStart bool

	keys        keyMap
	theme       Theme
	spinner     spinner.Model
	logViewport viewport.Model

	width    int
	height   int
	ready    bool
	showHelp bool
	showLogs bool

	snapshot  state.Snapshot
	viewState state.ViewState
	logLines  []string
	statusMsg string

	nowFn func() time.Time
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	tick := opts.RefreshTick
	if tick <= 0 {
		tick = 250 * time.Millisecond
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	view := opts.View
	if view == nil {
		def := config.Default()
		view = state.NewView(def.InitialCenter, def.InitialZoom)
	}
	store := opts.Store
	if store == nil {
		store = &state.Store{}
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle()

	return Model{
		ctx:           ctx,
		locator:       opts.Locator,
		store:         store,
		view:          view,
		logPath:       opts.LogPath,
		prefsPath:     prefsPath,
		tick:          tick,
		locateOnStart: opts.LocateOnStart,
		keys:          defaultKeyMap(),
		theme:         GetTheme(opts.ThemeName),
		spinner:       sp,
		snapshot:      store.Snapshot(),
		viewState:     view.Snapshot(),
		nowFn:         time.Now,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.tick),
		m.spinner.Tick,
		fetchSnapshotCmd(m.store, m.view),
	}
	if m.locateOnStart {
		cmds = append(cmds, requestLocationCmd(m.locator))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeLogViewport()
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{fetchSnapshotCmd(m.store, m.view), tickCmd(m.tick)}
		if m.showLogs {
			cmds = append(cmds, readLogsCmd(m.logPath))
		}
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		m.snapshot = msg.store
		m.viewState = msg.view
		return m, nil

	case locateStartedMsg:
		m.statusMsg = ""
		return m, fetchSnapshotCmd(m.store, m.view)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case logLinesMsg:
		m.setLogLines(msg)
		return m, nil

	case logErrorMsg:
		m.statusMsg = "logs: " + msg.err.Error()
		return m, nil

	case prefsSavedMsg:
		if msg.err != nil {
			m.statusMsg = "prefs: " + msg.err.Error()
		}
		return m, nil
	}
	return m, nil
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Locate):
		return m, requestLocationCmd(m.locator)

	case key.Matches(msg, m.keys.Reset):
		m.view.Reset()
		m.viewState = m.view.Snapshot()
		return m, m.savePrefsCmd()

	case key.Matches(msg, m.keys.ZoomIn):
		m.view.ZoomIn()
		m.viewState = m.view.Snapshot()
		return m, m.savePrefsCmd()

	case key.Matches(msg, m.keys.ZoomOut):
		m.view.ZoomOut()
		m.viewState = m.view.Snapshot()
		return m, m.savePrefsCmd()

	case key.Matches(msg, m.keys.ToggleLogs):
		m.showLogs = !m.showLogs
		m.resizeLogViewport()
		if m.showLogs {
			return m, readLogsCmd(m.logPath)
		}
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.resizeLogViewport()
		return m, m.savePrefsCmd()
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m Model) renderMain() string {
	top := []string{m.renderHeader(), m.renderCommandBar()}
	if banner := m.renderBanner(); banner != "" {
		top = append(top, banner)
	}

	used := len(top) + 1 // info line
	if m.showLogs {
		used += m.logPaneHeight() + 1
	}
	mapHeight := m.height - used
	if mapHeight < 1 {
		mapHeight = 1
	}

	var b strings.Builder
	b.WriteString(strings.Join(top, "\n"))
	b.WriteString("\n")
	b.WriteString(m.renderMap(m.width, mapHeight))
	b.WriteString("\n")
	b.WriteString(m.renderMapInfo())
	if m.showLogs {
		b.WriteString("\n")
		b.WriteString(m.renderLogs())
	}
	return b.String()
}

func (m Model) now() time.Time {
	if m.nowFn == nil {
		return time.Now()
	}
	return m.nowFn()
}

// Messages

type tickMsg time.Time

type snapshotMsg struct {
	store state.Snapshot
	view  state.ViewState
}

type locateStartedMsg struct{}

type prefsSavedMsg struct{ err error }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store, view *state.View) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg{store: store.Snapshot(), view: view.Snapshot()}
	}
}

func requestLocationCmd(l Locator) tea.Cmd {
	if l == nil {
		return nil
	}
	return func() tea.Msg {
		l.RequestLocation()
		return locateStartedMsg{}
	}
}

func (m Model) savePrefsCmd() tea.Cmd {
	path := m.prefsPath
	p := prefs.Prefs{Theme: m.theme.Name, Zoom: m.viewState.Zoom}
	return func() tea.Msg {
		return prefsSavedMsg{err: prefs.Save(path, p)}
	}
}

// Run starts the Bubble Tea program and blocks until it exits or ctx is
// cancelled.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	if _, err := p.Run(); err != nil {
		if m.ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
