// Package tui provides a Bubble Tea terminal user interface for mod-installer.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/mod-installer/internal/config"
	"github.com/handiism/mod-installer/internal/download"
	ioutils "github.com/handiism/mod-installer/internal/io"
	"github.com/handiism/mod-installer/internal/model"
	"github.com/handiism/mod-installer/internal/selection"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7BC950")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	focusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)
)

// maxLogs is the number of log lines kept on screen.
const maxLogs = 12

// eventBuffer is the capacity of the progress event channel.
const eventBuffer = 1024

// State represents the current UI state.
type State int

const (
	StateSetup State = iota
	StateConfirmClean
	StateInstalling
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logs      []LogEntry
	notice    string
	err       error

	artifacts []model.Artifact
	optional  []model.Artifact
	include   map[string]bool
	isServer  bool
	verbose   bool

	// focus 0 is the destination input, 1 the server toggle, 2.. the
	// optional artifacts.
	focus int

	ctx    context.Context
	cancel context.CancelFunc

	manager *download.Manager
	events  chan download.ProgressEvent
	report  *download.Report

	// installing mirrors the batch started/finished events and gates the
	// install key.
	installing bool

	received int64
	finished int32
	failed   int32
	total    int32

	width  int
	height int
}

// NewModel creates a new TUI model for the given manifest.
func NewModel(settings *config.Settings, artifacts []model.Artifact) Model {
	if settings == nil {
		settings = config.DefaultSettings()
	}

	ti := textinput.New()
	ti.Placeholder = "/path/to/.minecraft/mods"
	ti.SetValue(settings.DestinationPath)
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7BC950"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan download.ProgressEvent, eventBuffer)

	optional := selection.OptionalArtifacts(artifacts)
	include := make(map[string]bool, len(optional))
	for _, a := range optional {
		include[a.Filename] = false
	}

	return Model{
		state:     StateSetup,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		artifacts: artifacts,
		optional:  optional,
		include:   include,
		isServer:  settings.IsServer,
		ctx:       ctx,
		cancel:    cancel,
		events:    events,
		manager:   download.NewManager(settings, forward(ctx, events)),
	}
}

// forward returns a progress callback that hands events to the UI.
// Routine events are dropped when the UI falls behind so a worker never
// waits on the screen. Failures and batch boundaries are always delivered
// unless ctx is done.
func forward(ctx context.Context, events chan<- download.ProgressEvent) download.ProgressFunc {
	return func(event download.ProgressEvent) {
		if mustDeliver(event) {
			select {
			case events <- event:
			case <-ctx.Done():
			}
			return
		}
		select {
		case events <- event:
		default:
		}
	}
}

func mustDeliver(event download.ProgressEvent) bool {
	switch event.Phase {
	case download.PhaseFailed, download.PhaseBatchStarted, download.PhaseBatchFinished:
		return true
	}
	return false
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForEvent())
}

// Message types
type (
	// ProgressMsg carries one event from the download manager.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// CleanDoneMsg is sent when the destination has been cleared.
	CleanDoneMsg struct {
		Removed int
		Failed  []string
		Err     error
	}

	// InstallDoneMsg is sent when the batch has finished.
	InstallDoneMsg struct {
		Report *download.Report
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		next, cmd, handled := m.handleKey(msg)
		if handled {
			return next, cmd
		}
		m = next

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		m = m.applyEvent(msg.Event)
		cmds = append(cmds, m.waitForEvent())

	case CleanDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = fmt.Errorf("failed to clear %s: %w", m.destination(), msg.Err)
			return m, nil
		}
		m.addLog(LogEntry{Message: fmt.Sprintf("Removed %d entries from %s", msg.Removed, m.destination()), Level: download.LevelInfo})
		for _, name := range msg.Failed {
			m.addLog(LogEntry{Message: fmt.Sprintf("Could not remove %s; check that it is not open in another program", name), Level: download.LevelWarning})
		}
		next, cmd, _ := m.startInstall()
		return next, cmd

	case InstallDoneMsg:
		m.report = msg.Report
		m.installing = false
		m.received, m.finished, m.failed, m.total = m.manager.Progress()
		if msg.Report.RunErr != nil {
			m.state = StateError
			m.err = msg.Report.RunErr
		} else {
			m.state = StateComplete
		}

	case TickMsg:
		if m.state == StateInstalling {
			m.received, m.finished, m.failed, m.total = m.manager.Progress()
			cmds = append(cmds, m.progress.SetPercent(m.percent()), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateSetup && m.focus == 0 {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleKey processes a key press. When handled is false the key should
// still reach the text input.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		m.cancel()
		return m, tea.Quit, true

	case "esc":
		switch m.state {
		case StateSetup:
			m.cancel()
			return m, tea.Quit, true
		case StateConfirmClean:
			m.state = StateSetup
			return m, nil, true
		case StateInstalling:
			// In-flight downloads stop and the batch reports them as canceled.
			m.cancel()
			m.addLog(LogEntry{Message: "Canceling...", Level: download.LevelWarning})
			return m, nil, true
		}
	}

	switch m.state {
	case StateSetup:
		return m.handleSetupKey(msg)

	case StateConfirmClean:
		switch msg.String() {
		case "y", "Y":
			return m, m.cleanDestination(), true
		case "n", "N", "enter":
			return m.startInstall()
		}
		return m, nil, true

	case StateComplete, StateError:
		switch msg.String() {
		case "q":
			return m, tea.Quit, true
		case "r":
			m = m.reset()
			return m, textinput.Blink, true
		}
		return m, nil, true
	}

	return m, nil, true
}

func (m Model) handleSetupKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	slots := 2 + len(m.optional)

	switch msg.String() {
	case "tab", "down":
		m = m.setFocus((m.focus + 1) % slots)
		return m, nil, true

	case "shift+tab", "up":
		m = m.setFocus((m.focus + slots - 1) % slots)
		return m, nil, true

	case "ctrl+v":
		m.verbose = !m.verbose
		return m, nil, true

	case " ":
		if m.focus == 0 {
			return m, nil, false
		}
		if m.focus == 1 {
			m.isServer = !m.isServer
		} else {
			name := m.optional[m.focus-2].Filename
			m.include[name] = !m.include[name]
		}
		return m, nil, true

	case "enter":
		return m.requestInstall()
	}

	return m, nil, m.focus != 0
}

func (m Model) setFocus(focus int) Model {
	m.focus = focus
	if focus == 0 {
		m.textInput.Focus()
	} else {
		m.textInput.Blur()
	}
	return m
}

// requestInstall validates the setup screen and decides whether the
// destination needs clearing first.
func (m Model) requestInstall() (Model, tea.Cmd, bool) {
	if m.installing || m.manager.Running() {
		return m, nil, true
	}

	dest := m.destination()
	if dest == "" {
		m.notice = "Choose a destination folder first."
		return m, nil, true
	}
	m.notice = ""

	empty, err := ioutils.IsEmptyDir(dest)
	if err != nil {
		m.notice = fmt.Sprintf("Cannot read %s: %v", dest, err)
		return m, nil, true
	}

	if !empty {
		switch m.settings.CleanDestination {
		case config.CleanAsk:
			m.state = StateConfirmClean
			return m, nil, true
		case config.CleanAlways:
			return m, m.cleanDestination(), true
		}
	}

	return m.startInstall()
}

func (m Model) startInstall() (Model, tea.Cmd, bool) {
	m.state = StateInstalling
	m.installing = true
	m.report = nil
	m.err = nil
	return m, tea.Batch(m.install(m.runContext()), m.spinner.Tick, m.tickProgress()), true
}

func (m Model) runContext() *model.RunContext {
	overrides := make(map[string]bool, len(m.include))
	for name, include := range m.include {
		overrides[name] = include
	}
	return model.NewRunContext(m.destination(), m.isServer, overrides)
}

func (m Model) destination() string {
	return strings.TrimSpace(m.textInput.Value())
}

func (m Model) applyEvent(event download.ProgressEvent) Model {
	switch event.Phase {
	case download.PhaseBatchStarted:
		m.installing = true
	case download.PhaseBatchFinished:
		m.installing = false
		// The summary is shown on the result screen.
		return m
	}

	if event.Level == download.LevelVerbose && !m.verbose {
		return m
	}
	m.addLog(LogEntry{Message: event.Message, Level: event.Level})
	return m
}

func (m *Model) addLog(entry LogEntry) {
	m.logs = append(m.logs, entry)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m Model) reset() Model {
	m.state = StateSetup
	m.logs = nil
	m.err = nil
	m.notice = ""
	m.report = nil
	m.received, m.finished, m.failed, m.total = 0, 0, 0, 0
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m.setFocus(0)
}

func (m Model) percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.finished) / float64(m.total)
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// waitForEvent delivers the next manager event as a ProgressMsg.
func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return ProgressMsg{Event: <-events}
	}
}

// install runs the batch in the background.
func (m Model) install(run *model.RunContext) tea.Cmd {
	ctx, manager, artifacts := m.ctx, m.manager, m.artifacts
	return func() tea.Msg {
		return InstallDoneMsg{Report: manager.Run(ctx, artifacts, run)}
	}
}

// cleanDestination removes everything inside the destination folder.
// Entries that cannot be removed are reported and skipped.
func (m Model) cleanDestination() tea.Cmd {
	dest := m.destination()
	return func() tea.Msg {
		var failed []string
		removed, err := ioutils.ClearDir(dest, func(name string, _ error) {
			failed = append(failed, name)
		})
		return CleanDoneMsg{Removed: removed, Failed: failed, Err: err}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("Mod Installer"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d artifact(s) in manifest", len(m.artifacts))))
	b.WriteString("\n\n")

	switch m.state {
	case StateSetup:
		b.WriteString(m.viewSetup())
	case StateConfirmClean:
		b.WriteString(m.viewConfirmClean())
	case StateInstalling:
		b.WriteString(m.viewInstalling())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))

	return b.String()
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) focused(slot int, s string) string {
	if m.focus == slot {
		return focusStyle.Render("> " + s)
	}
	return "  " + s
}

func (m Model) viewSetup() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Destination folder:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(m.focused(1, fmt.Sprintf("%s Install for a server", checkbox(m.isServer))))
	b.WriteString("\n")

	if len(m.optional) > 0 {
		b.WriteString("\n")
		b.WriteString(infoStyle.Render("Optional artifacts:"))
		b.WriteString("\n")
		for i, a := range m.optional {
			label := fmt.Sprintf("%s Install %s", checkbox(m.include[a.Filename]), a.Filename)
			if a.HasTag(model.TagServerOnly) {
				label += " (server only)"
			} else if a.HasTag(model.TagClientOnly) {
				label += " (client only)"
			}
			b.WriteString(m.focused(i+2, label))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Verbose output: %s", checkbox(m.verbose))))
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render(m.notice))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) viewConfirmClean() string {
	var b strings.Builder

	b.WriteString(warningStyle.Render(fmt.Sprintf("%s is not empty.", m.destination())))
	b.WriteString("\n\n")
	b.WriteString("Remove everything in it before installing? (y/N)")
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewInstalling() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("Installing into %s", m.destination())))
	b.WriteString("\n\n")

	b.WriteString(m.progress.ViewAs(m.percent()))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Artifacts: %d/%d | Failed: %d | Downloaded: %.2f MB",
		m.finished,
		m.total,
		m.failed,
		float64(m.received)/1024/1024,
	)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	if m.report == nil {
		return ""
	}

	style := successStyle
	if !m.report.OK() {
		style = errorStyle
	}

	b.WriteString(boxStyle.Render(fmt.Sprintf(
		"%s\n\nInstalled: %d\nFailed: %d\nSkipped: %d\nSize: %.2f MB",
		style.Render(firstLine(m.report.Summary())),
		m.report.Installed(),
		len(m.report.Failed()),
		len(m.report.Skipped),
		float64(m.received)/1024/1024,
	)))
	b.WriteString("\n")

	for _, o := range m.report.Failed() {
		b.WriteString(errorStyle.Render("✗ " + o.String()))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("✗ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) helpText() string {
	switch m.state {
	case StateSetup:
		return "enter: install • tab: next field • space: toggle • ctrl+v: verbose • esc: quit"
	case StateConfirmClean:
		return "y: clear and install • n: keep files and install • esc: back"
	case StateInstalling:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new install • q: quit"
	}
	return ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Run starts the TUI application.
func Run(settings *config.Settings, artifacts []model.Artifact) error {
	p := tea.NewProgram(NewModel(settings, artifacts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
