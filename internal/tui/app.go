// Package tui provides the interactive Bubble Tea dashboard for lacag.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/lacag-app/lacag/internal/challenge"
	"github.com/lacag-app/lacag/internal/cli"
	"github.com/lacag-app/lacag/internal/config"
	"github.com/lacag-app/lacag/internal/tracker"
	"github.com/lacag-app/lacag/internal/tui/components"
	"github.com/lacag-app/lacag/internal/tui/theme"
)

// loadedMsg is sent when local data and the stored session are in place.
type loadedMsg struct{ err error }

// refreshedMsg is sent when a remote refresh completes.
type refreshedMsg struct{ err error }

// actionMsg reports the outcome of a user mutation.
type actionMsg struct {
	notice string
	err    error
}

// plansMsg carries plan rows for the Plans tab.
type plansMsg struct {
	rows []cli.PlanRow
	err  error
}

type tickMsg struct{}

// Options configures the dashboard.
type Options struct {
	// Boot loads local data and restores the stored session. It runs once
	// behind the loading screen.
	Boot      func(ctx context.Context) error
	Config    config.Config
	NeedSetup bool
	Clock     func() time.Time
	Log       logrus.FieldLogger
}

// App is the root Bubble Tea model.
type App struct {
	tr   *tracker.Tracker
	boot func(context.Context) error
	cfg  config.Config
	now  func() time.Time
	log  logrus.FieldLogger

	// Data state
	loaded          bool
	refreshing      bool
	lastRefresh     time.Time
	refreshInterval time.Duration
	plans           []cli.PlanRow
	plansLoaded     bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	notice    string
	errMsg    string

	// Per-tab state
	hist    historyState
	variant challenge.Variant

	// Modal huh form. vals is shared with the form's bound fields and must
	// survive App copies, hence the pointer.
	form     *huh.Form
	formKind formKind
	vals     *formValues

	needSetup bool
	spinner   spinner.Model
}

const (
	minTerminalWidth = 60
	maxContentWidth  = 140
	minContentHeight = 5

	bootTimeout   = 30 * time.Second
	actionTimeout = 15 * time.Second
)

// Tab indices, in components.Tabs order.
const (
	tabToday = iota
	tabChallenge
	tabHistory
	tabPlans
)

// NewApp creates a new TUI app model.
func NewApp(tr *tracker.Tracker, opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)

	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Boot == nil {
		opts.Boot = func(context.Context) error { return tr.Load() }
	}
	interval := opts.Config.RefreshInterval()
	if interval < 10*time.Second {
		interval = 30 * time.Second
	}

	return App{
		tr:              tr,
		boot:            opts.Boot,
		cfg:             opts.Config,
		now:             opts.Clock,
		log:             opts.Log.WithField("component", "tui"),
		refreshInterval: interval,
		variant:         challenge.SevenDay,
		vals:            &formValues{},
		needSetup:       opts.NeedSetup,
		spinner:         sp,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadCmd(a.boot),
		a.spinner.Tick,
		tickCmd(),
	)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.form != nil {
			a.form = a.form.WithWidth(min(msg.Width-8, 60))
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.form != nil {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			if a.activeTab == tabHistory {
				a.hist.move(-1, len(a.historyRows()))
			}
		case tea.MouseButtonWheelDown:
			if a.activeTab == tabHistory {
				a.hist.move(1, len(a.historyRows()))
			}
		case tea.MouseButtonLeft:
			if msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					return a.switchTab(tab)
				}
			}
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if !a.loaded {
			return a, nil
		}
		if a.form != nil {
			return a.updateForm(msg)
		}
		return a.handleKey(msg.String())

	case loadedMsg:
		a.loaded = true
		a.lastRefresh = a.now()
		if msg.err != nil {
			a.errMsg = msg.err.Error()
			a.log.WithError(msg.err).Warn("startup incomplete")
		}
		if a.needSetup {
			return a.openForm(formSetup, newSetupForm(a.vals, a.cfg))
		}
		return a, nil

	case refreshedMsg:
		a.refreshing = false
		a.lastRefresh = a.now()
		if msg.err != nil {
			a.errMsg = msg.err.Error()
		} else {
			a.errMsg = ""
		}
		a.hist.clamp(len(a.historyRows()))
		return a, nil

	case actionMsg:
		if msg.err != nil {
			a.errMsg = msg.err.Error()
			a.notice = ""
		} else {
			a.errMsg = ""
			a.notice = msg.notice
		}
		a.hist.clamp(len(a.historyRows()))
		if a.activeTab == tabPlans {
			return a, plansCmd(a.tr)
		}
		a.plansLoaded = false
		return a, nil

	case plansMsg:
		a.plansLoaded = true
		if msg.err != nil {
			a.errMsg = msg.err.Error()
			return a, nil
		}
		a.plans = msg.rows
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && !a.refreshing && a.tr.IsAuthenticated() &&
			a.now().Sub(a.lastRefresh) >= a.refreshInterval {
			a.refreshing = true
			cmds = append(cmds, refreshCmd(a.tr))
		}
		return a, tea.Batch(cmds...)
	}

	// Forward cursor blinks and similar to an open form.
	if a.form != nil {
		return a.updateForm(msg)
	}
	return a, nil
}

func (a App) handleKey(key string) (tea.Model, tea.Cmd) {
	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch a.activeTab {
	case tabChallenge:
		if m, cmd, ok := a.handleChallengeKey(key); ok {
			return m, cmd
		}
	case tabHistory:
		if m, cmd, ok := a.handleHistoryKey(key); ok {
			return m, cmd
		}
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "a":
		a.vals.reset()
		return a.openForm(formAdd, newAddForm(a.vals, a.tr.Currency()))
	case "r":
		if a.activeTab == tabPlans {
			return a, plansCmd(a.tr)
		}
		if !a.tr.IsAuthenticated() {
			a.notice = "guest data is stored locally"
			return a, nil
		}
		if !a.refreshing {
			a.refreshing = true
			return a, refreshCmd(a.tr)
		}
		return a, nil
	case "left":
		return a.switchTab((a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs))
	case "right":
		return a.switchTab((a.activeTab + 1) % len(components.Tabs))
	}

	if len(key) == 1 {
		if idx := components.TabIdxByKey(rune(key[0])); idx >= 0 {
			return a.switchTab(idx)
		}
	}
	return a, nil
}

func (a App) switchTab(idx int) (tea.Model, tea.Cmd) {
	a.activeTab = idx
	if idx == tabPlans && !a.plansLoaded {
		return a, plansCmd(a.tr)
	}
	return a, nil
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.form != nil {
		return a.viewForm()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf("\n  Terminal too narrow (%d cols)\n\n  lacag needs at least %d columns.\n",
		a.width, minTerminalWidth)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active
	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Padding(1, 4)

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true).Render("◈ lacag"))
	b.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).Render(" · daily spending"))
	b.WriteString("\n\n")
	b.WriteString(a.spinner.View())
	b.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).Render(" Loading your data"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()))
}

func (a App) viewForm() string {
	title := formTitles[a.formKind]
	card := components.ContentCard(title, a.form.View(), min(a.width-4, 64), true)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card)
}

func (a App) viewHelp() string {
	t := theme.Active
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	sectionStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true)

	sections := []struct {
		name     string
		bindings [][2]string
	}{
		{"Navigation", [][2]string{
			{"t c h p", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"j k", "Move in History"},
		}},
		{"Actions", [][2]string{
			{"a", "Add an expense"},
			{"d", "Delete selected transaction"},
			{"1 2", "Pick the 7-day or 30-day challenge"},
			{"s x", "Start / Stop the challenge"},
			{"r", "Refresh"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sectionStyle.Render(s.name))
		b.WriteString("\n")
		for _, bind := range s.bindings {
			fmt.Fprintf(&b, "  %s  %s\n", keyStyle.Render(fmt.Sprintf("%-8s", bind[0])), descStyle.Render(bind[1]))
		}
	}
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(t.TextDim).Render("Press any key to close"))

	card := components.ContentCard("Keyboard Shortcuts", b.String(), 56, true)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()

	header := components.RenderTabBar(a.activeTab, a.userLabel(), w)
	statusBar := components.RenderStatusBar(w, a.statusInfo())

	contentH := max(a.height-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case tabToday:
		content = a.renderTodayTab(cw)
	case tabChallenge:
		content = a.renderChallengeTab(cw)
	case tabHistory:
		content = a.renderHistoryTab(cw, contentH)
	case tabPlans:
		content = a.renderPlansTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

func (a App) userLabel() string {
	if sess := a.tr.Session(); sess != nil {
		if sess.Email != "" {
			return sess.Email
		}
		return cli.ShortID(sess.UserID)
	}
	return "guest"
}

func (a App) statusInfo() components.StatusInfo {
	info := components.StatusInfo{
		Mode:       "guest",
		Currency:   a.tr.Currency(),
		Refreshing: a.refreshing || a.tr.Loading(),
		Err:        a.errMsg,
	}
	if a.tr.IsAuthenticated() {
		info.Mode = "synced"
	}
	if info.Err == "" && a.notice != "" {
		info.Hint = a.notice
	}
	return info
}

// ─── Commands ───────────────────────────────────────────────────

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func loadCmd(boot func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), bootTimeout)
		defer cancel()
		return loadedMsg{err: boot(ctx)}
	}
}

func refreshCmd(tr *tracker.Tracker) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return refreshedMsg{err: tr.Refresh(ctx)}
	}
}

// actionCmd runs a mutation off the UI goroutine.
func actionCmd(notice string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{notice: notice}
	}
}

func plansCmd(tr *tracker.Tracker) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		plans, err := tr.Plans(ctx)
		if err != nil {
			return plansMsg{err: err}
		}
		ledger, err := tr.Ledger(ctx)
		if err != nil {
			return plansMsg{err: err}
		}
		rows := make([]cli.PlanRow, 0, len(plans))
		for _, p := range plans {
			rows = append(rows, cli.PlanRow{Plan: p, Progress: tr.PlanProgress(p, ledger)})
		}
		return plansMsg{rows: rows}
	}
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes follow the same widths RenderTabBar uses.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW
		if i < len(components.Tabs)-1 {
			pos++
		}
	}
	return -1
}

// ─── Helpers ────────────────────────────────────────────────────

// money renders amount in the display currency with cents.
func (a App) money(amount float64) string {
	return cli.FormatMoney(amount, a.tr.Currency())
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line, lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}
