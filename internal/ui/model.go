// Package ui is the interactive watchlist terminal front-end.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/bobmcallan/b3notifier/internal/clients/backend"
	"github.com/bobmcallan/b3notifier/internal/common"
	"github.com/bobmcallan/b3notifier/internal/models"
	"github.com/bobmcallan/b3notifier/internal/services/alert"
	"github.com/bobmcallan/b3notifier/internal/services/watchlist"
)

// ToastTTL is how long a notification stays on screen.
const ToastTTL = 3 * time.Second

// ─── ports ───────────────────────────────────────────────────────────────────

type watchlistPort interface {
	List(ctx context.Context) ([]models.MonitoredAsset, error)
}

type alertPort interface {
	List(ctx context.Context) ([]models.Alert, error)
}

type sessionPort interface {
	Snapshot() models.SessionSnapshot
	Logout(ctx context.Context) error
}

// ─── tabs ────────────────────────────────────────────────────────────────────

type tabID int

const (
	tabWatchlist tabID = iota
	tabAlerts
	tabCount
)

var tabLabels = [tabCount]string{"Watchlist", "Alerts"}

// ─── async messages ──────────────────────────────────────────────────────────

type assetsLoadedMsg struct {
	assets []models.MonitoredAsset
	err    error
}

type alertsLoadedMsg struct {
	alerts []models.Alert
	err    error
}

type updateInfoMsg struct {
	info *models.UpdateInfo
	err  error
}

type sessionChangedMsg struct{}

type toastExpiredMsg struct{ id int }

type countdownTickMsg struct{}

type loggedOutMsg struct{ err error }

// ─── toasts ──────────────────────────────────────────────────────────────────

type toast struct {
	id    int
	text  string
	isErr bool
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root Bubble Tea model. Each data source loads independently
// and carries its own loading flag, so one failing fetch never blocks another.
type Model struct {
	ctx       context.Context
	watchlist watchlistPort
	alerts    alertPort
	session   sessionPort

	sessionEvents <-chan models.SessionSnapshot
	updateEvents  <-chan updateInfoMsg

	keys      keyMap
	help      help.Model
	showHelp  bool
	search    textinput.Model
	searching bool
	filter    models.FilterState
	activeTab tabID

	assets        []models.MonitoredAsset
	assetsAt      time.Time
	loadingAssets bool
	alertFeed     []models.Alert
	loadingAlerts bool
	updateInfo    *models.UpdateInfo
	countdown     int

	toasts    []toast
	nextToast int

	snapshot  models.SessionSnapshot
	loggedOut bool

	width  int
	height int
	now    func() time.Time
}

// NewModel builds the root model. sessionEvents and updateEvents may be nil.
func NewModel(
	ctx context.Context,
	wl watchlistPort,
	alerts alertPort,
	session sessionPort,
	sessionEvents <-chan models.SessionSnapshot,
	updateEvents <-chan updateInfoMsg,
) Model {
	search := textinput.New()
	search.Placeholder = "ticker"
	search.Prompt = "/ "
	search.CharLimit = 16

	snap := session.Snapshot()
	return Model{
		ctx:           ctx,
		watchlist:     wl,
		alerts:        alerts,
		session:       session,
		sessionEvents: sessionEvents,
		updateEvents:  updateEvents,
		keys:          defaultKeys(),
		help:          help.New(),
		search:        search,
		activeTab:     tabWatchlist,
		loadingAssets: true,
		loadingAlerts: true,
		snapshot:      snap,
		loggedOut:     !snap.Authenticated,
		now:           time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	if m.loggedOut {
		return m.waitForSession()
	}
	return tea.Batch(
		m.loadAssetsCmd(),
		m.loadAlertsCmd(),
		m.waitForSession(),
		m.waitForUpdate(),
		countdownTick(),
	)
}

// ─── commands ────────────────────────────────────────────────────────────────

func (m Model) loadAssetsCmd() tea.Cmd {
	return func() tea.Msg {
		assets, err := m.watchlist.List(m.ctx)
		return assetsLoadedMsg{assets: assets, err: err}
	}
}

func (m Model) loadAlertsCmd() tea.Cmd {
	return func() tea.Msg {
		alerts, err := m.alerts.List(m.ctx)
		return alertsLoadedMsg{alerts: alerts, err: err}
	}
}

func (m Model) logoutCmd() tea.Cmd {
	return func() tea.Msg {
		return loggedOutMsg{err: m.session.Logout(m.ctx)}
	}
}

func (m Model) waitForSession() tea.Cmd {
	if m.sessionEvents == nil {
		return nil
	}
	events := m.sessionEvents
	return func() tea.Msg {
		if _, ok := <-events; !ok {
			return nil
		}
		return sessionChangedMsg{}
	}
}

func (m Model) waitForUpdate() tea.Cmd {
	if m.updateEvents == nil {
		return nil
	}
	events := m.updateEvents
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

func countdownTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return countdownTickMsg{} })
}

func (m *Model) pushToast(text string, isErr bool) tea.Cmd {
	m.nextToast++
	id := m.nextToast
	m.toasts = append(m.toasts, toast{id: id, text: text, isErr: isErr})
	return tea.Tick(ToastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{id: id} })
}

// errorText prefers the backend's own message.
func errorText(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var dataErr *models.DataError
	if errors.As(err, &dataErr) {
		return "received malformed data: " + dataErr.Error()
	}
	return err.Error()
}

// ─── update ──────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case assetsLoadedMsg:
		m.loadingAssets = false
		if msg.err != nil {
			return m, m.pushToast("Watchlist: "+errorText(msg.err), true)
		}
		m.assets = msg.assets
		m.assetsAt = m.now()
		return m, nil

	case alertsLoadedMsg:
		m.loadingAlerts = false
		if msg.err != nil {
			return m, m.pushToast("Alerts: "+errorText(msg.err), true)
		}
		m.alertFeed = msg.alerts
		return m, nil

	case updateInfoMsg:
		cmds := []tea.Cmd{m.waitForUpdate()}
		if msg.err != nil || msg.info == nil {
			return m, tea.Batch(cmds...)
		}
		refreshed := m.updateInfo != nil && msg.info.LastUpdate.After(m.updateInfo.LastUpdate)
		m.updateInfo = msg.info
		m.countdown = msg.info.TimeUntilNextUpdateSecond
		if refreshed && !m.loggedOut {
			m.loadingAssets, m.loadingAlerts = true, true
			cmds = append(cmds, m.loadAssetsCmd(), m.loadAlertsCmd())
		}
		return m, tea.Batch(cmds...)

	case sessionChangedMsg:
		m.snapshot = m.session.Snapshot()
		cmds := []tea.Cmd{m.waitForSession()}
		if !m.snapshot.Authenticated && !m.loggedOut {
			m.loggedOut = true
			m.assets, m.alertFeed = nil, nil
			m.searching = false
			m.search.Blur()
		}
		return m, tea.Batch(cmds...)

	case loggedOutMsg:
		if msg.err != nil {
			return m, m.pushToast("Logout: "+errorText(msg.err), true)
		}
		m.loggedOut = true
		m.assets, m.alertFeed = nil, nil
		return m, nil

	case toastExpiredMsg:
		for i, t := range m.toasts {
			if t.id == msg.id {
				m.toasts = append(m.toasts[:i:i], m.toasts[i+1:]...)
				break
			}
		}
		return m, nil

	case countdownTickMsg:
		if m.countdown > 0 {
			m.countdown--
		}
		return m, countdownTick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.loggedOut {
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.showHelp {
		if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Cancel) {
			m.showHelp = false
		}
		return m, nil
	}

	if m.searching {
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.search.SetValue("")
			m.search.Blur()
			m.searching = false
			return m, nil
		case key.Matches(msg, m.keys.Accept):
			m.search.Blur()
			m.searching = false
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Cancel):
		m.search.SetValue("")
	case key.Matches(msg, m.keys.NearBuy):
		m.filter = m.filter.Toggle(models.FilterNearBuy)
	case key.Matches(msg, m.keys.NearSell):
		m.filter = m.filter.Toggle(models.FilterNearSell)
	case key.Matches(msg, m.keys.Refresh):
		m.loadingAssets, m.loadingAlerts = true, true
		return m, tea.Batch(m.loadAssetsCmd(), m.loadAlertsCmd())
	case key.Matches(msg, m.keys.Tab):
		m.activeTab = (m.activeTab + 1) % tabCount
	case key.Matches(msg, m.keys.Logout):
		return m, m.logoutCmd()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	}
	return m, nil
}

// Visible is the watchlist as currently rendered.
func (m Model) Visible() []models.MonitoredAsset {
	return watchlist.View(m.assets, m.search.Value(), m.filter)
}

// VisibleAlerts is the alert feed as currently rendered.
func (m Model) VisibleAlerts() []models.Alert {
	return alert.Search(m.alertFeed, m.search.Value())
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	header := m.renderHeader()

	var content string
	switch {
	case m.loggedOut:
		content = paneStyle.Render(
			hotStyle.Render("You are logged out.") + "\n\n" +
				mutedStyle.Render("Run `b3notifier login` to sign in again. Press q to quit."))
	case m.showHelp:
		content = m.help.FullHelpView(m.keys.FullHelp())
	case m.activeTab == tabAlerts:
		content = m.renderAlerts()
	default:
		content = m.renderWatchlist()
	}

	parts := []string{header, content}
	if toasts := m.renderToasts(); toasts != "" {
		parts = append(parts, toasts)
	}
	if !m.loggedOut && !m.showHelp {
		parts = append(parts, m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	tabs := make([]string, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		if i == m.activeTab {
			tabs[i] = hotStyle.Render(" " + tabLabels[i] + " ")
		} else {
			tabs[i] = mutedStyle.Render(" " + tabLabels[i] + " ")
		}
	}

	left := titleStyle.Render("b3notifier") + "  " + strings.Join(tabs, mutedStyle.Render("│"))

	var right string
	if m.snapshot.User != nil {
		right = m.snapshot.User.Username
	} else if m.snapshot.Authenticated {
		right = "loading profile..."
	}
	if m.updateInfo != nil {
		right = fmt.Sprintf("updated %s · next %s   %s",
			common.AgoLabel(m.updateInfo.LastUpdate, m.now()), common.CountdownLabel(m.countdown), right)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return barStyle.Width(max(m.width, 0)).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderFilterBar() string {
	var parts []string
	if m.searching || m.search.Value() != "" {
		parts = append(parts, m.search.View())
	}
	flag := func(on bool, label string, style lipgloss.Style) string {
		if on {
			return style.Render("[x] " + label)
		}
		return mutedStyle.Render("[ ] " + label)
	}
	parts = append(parts,
		flag(m.filter.NearBuy, "near buy", buyStyle),
		flag(m.filter.NearSell, "near sell", sellStyle))
	return strings.Join(parts, "   ")
}

func (m Model) renderWatchlist() string {
	var sb strings.Builder
	sb.WriteString(m.renderFilterBar())
	sb.WriteString("\n")

	if m.loadingAssets && m.assets == nil {
		sb.WriteString(mutedStyle.Render("Loading watchlist..."))
		return sb.String()
	}

	visible := m.Visible()
	if len(visible) == 0 {
		if len(m.assets) == 0 {
			sb.WriteString(mutedStyle.Render("No assets monitored. Add one with `b3notifier stocks add TICKER`."))
		} else {
			sb.WriteString(mutedStyle.Render("No assets match."))
		}
		return sb.String()
	}

	rows := make([][]string, len(visible))
	for i, a := range visible {
		rows[i] = []string{
			a.Name,
			fmt.Sprintf("%d min", a.Periodicity),
			common.FormatBRL(a.CurrentPrice),
			common.FormatBRL(a.LowerLimit),
			common.FormatBRL(a.UpperLimit),
		}
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorSurface1)).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Inherit(titleStyle)
			}
			a := visible[row]
			switch {
			case col == 3 && !a.CurrentPrice.GreaterThan(a.LowerLimit):
				return s.Inherit(buyStyle)
			case col == 4 && !a.CurrentPrice.LessThan(a.UpperLimit):
				return s.Inherit(sellStyle)
			}
			return s
		}).
		Headers("Ticker", "Every", "Price", "Buy at", "Sell at").
		Rows(rows...)
	sb.WriteString(t.Render())

	if m.loadingAssets {
		sb.WriteString("\n" + mutedStyle.Render("Refreshing..."))
	} else if !common.IsFresh(m.assetsAt, m.now(), common.FreshnessAssets) {
		sb.WriteString("\n" + hotStyle.Render("fetched "+common.AgoLabel(m.assetsAt, m.now())+", press r to refresh"))
	} else {
		sb.WriteString("\n" + mutedStyle.Render("fetched "+common.AgoLabel(m.assetsAt, m.now())))
	}
	return sb.String()
}

func (m Model) renderAlerts() string {
	var sb strings.Builder
	if m.searching || m.search.Value() != "" {
		sb.WriteString(m.search.View() + "\n")
	}

	if m.loadingAlerts && m.alertFeed == nil {
		sb.WriteString(mutedStyle.Render("Loading alerts..."))
		return sb.String()
	}

	visible := m.VisibleAlerts()
	if len(visible) == 0 {
		sb.WriteString(mutedStyle.Render("No alerts."))
		return sb.String()
	}

	for _, g := range alert.GroupByDate(visible) {
		sb.WriteString(titleStyle.Render(g.Date) + "\n")
		for _, a := range g.Alerts {
			line := fmt.Sprintf("  %s  %s", a.AlertTime, alert.Describe(a))
			switch a.AlertType {
			case models.AlertBuySuggestion:
				line = buyStyle.Render(line)
			case models.AlertSellSuggestion:
				line = sellStyle.Render(line)
			}
			sb.WriteString(line + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m Model) renderToasts() string {
	if len(m.toasts) == 0 {
		return ""
	}
	rendered := make([]string, len(m.toasts))
	for i, t := range m.toasts {
		if t.isErr {
			rendered[i] = toastErrorStyle.Render(t.text)
		} else {
			rendered[i] = toastInfoStyle.Render(t.text)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rendered...)
}
