// Package tui is the terminal client. It renders the shared state store and
// turns key presses into store operations.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/couchcryptid/quake-watch/internal/domain"
)

// Store is the state store contract the terminal client drives.
type Store interface {
	Snapshot() domain.State
	Subscribe() (<-chan domain.State, func())
	SetMagnitudeFilter(n int) error
	ClearMagnitudeFilter()
	SetProvider(p domain.ProviderID)
	ToggleProvider()
	ToggleNearMe(ctx context.Context) bool
	Refresh()
}

// Options are the user-tunable display settings.
type Options struct {
	RefreshOnStart bool
	ListHeight     int
	ShowChart      bool
	// NearMeTimeout bounds a location lookup triggered by the near-me key.
	NearMeTimeout time.Duration
	// OpenURL opens an event's detail page. Defaults to the system browser.
	OpenURL func(url string) error
}

// StateMsg carries a new store snapshot.
type StateMsg domain.State

// storeClosedMsg is sent when the subscription channel closes.
type storeClosedMsg struct{}

// nearMeMsg reports the outcome of a near-me toggle.
type nearMeMsg struct{ ok bool }

// openedMsg reports the outcome of opening a detail URL.
type openedMsg struct{ err error }

// Model is the bubbletea model of the terminal client.
type Model struct {
	store       Store
	updates     <-chan domain.State
	unsubscribe func()
	opts        Options

	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	state  domain.State
	cursor int
	offset int
	width  int
	height int
	status string
}

// NewModel subscribes to store and returns a ready model.
func NewModel(store Store, opts Options) *Model {
	if opts.ListHeight <= 0 {
		opts.ListHeight = 15
	}
	if opts.NearMeTimeout <= 0 {
		opts.NearMeTimeout = 10 * time.Second
	}
	if opts.OpenURL == nil {
		opts.OpenURL = openInBrowser
	}
	updates, unsubscribe := store.Subscribe()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorBlue)

	return &Model{
		store:       store,
		updates:     updates,
		unsubscribe: unsubscribe,
		opts:        opts,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		spinner:     sp,
		state:       store.Snapshot(),
		width:       80,
	}
}

// Init starts the spinner and the subscription loop.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, waitForState(m.updates)}
	if m.opts.RefreshOnStart {
		cmds = append(cmds, func() tea.Msg {
			m.store.Refresh()
			return nil
		})
	}
	return tea.Batch(cmds...)
}

func waitForState(ch <-chan domain.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return storeClosedMsg{}
		}
		return StateMsg(st)
	}
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StateMsg:
		m.setState(domain.State(msg))
		return m, waitForState(m.updates)

	case storeClosedMsg:
		return m, tea.Quit

	case nearMeMsg:
		if !msg.ok {
			m.status = "Location unavailable"
		}
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.status = "Could not open browser: " + msg.err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.unsubscribe()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)

	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)

	case key.Matches(msg, m.keys.Open):
		return m, m.openSelected()

	case key.Matches(msg, m.keys.Magnitude):
		n := int(msg.String()[0] - '0')
		if err := m.store.SetMagnitudeFilter(n); err != nil {
			m.status = err.Error()
		}

	case key.Matches(msg, m.keys.ClearMagnitude):
		m.store.ClearMagnitudeFilter()

	case key.Matches(msg, m.keys.ToggleProvider):
		m.store.ToggleProvider()

	case key.Matches(msg, m.keys.SelectUSGS):
		m.store.SetProvider(domain.ProviderUSGS)

	case key.Matches(msg, m.keys.SelectEMSC):
		m.store.SetProvider(domain.ProviderEMSC)

	case key.Matches(msg, m.keys.NearMe):
		m.status = "Locating…"
		return m, m.toggleNearMe()

	case key.Matches(msg, m.keys.Refresh):
		m.store.Refresh()

	case key.Matches(msg, m.keys.Chart):
		m.opts.ShowChart = !m.opts.ShowChart
	}
	return m, nil
}

// toggleNearMe runs off the update loop since it may wait on geocoding.
func (m *Model) toggleNearMe() tea.Cmd {
	store, timeout := m.store, m.opts.NearMeTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return nearMeMsg{ok: store.ToggleNearMe(ctx)}
	}
}

// openSelected opens the highlighted event's detail page.
func (m *Model) openSelected() tea.Cmd {
	if m.cursor >= len(m.state.Results) {
		return nil
	}
	url, open := m.state.Results[m.cursor].DetailURL, m.opts.OpenURL
	return func() tea.Msg {
		return openedMsg{err: open(url)}
	}
}

func (m *Model) setState(st domain.State) {
	m.state = st
	if m.cursor >= len(st.Results) {
		m.cursor = max(0, len(st.Results)-1)
	}
	m.clampOffset()
}

func (m *Model) moveCursor(delta int) {
	if len(m.state.Results) == 0 {
		return
	}
	m.cursor = max(0, min(m.cursor+delta, len(m.state.Results)-1))
	m.clampOffset()
}

func (m *Model) clampOffset() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.opts.ListHeight {
		m.offset = m.cursor - m.opts.ListHeight + 1
	}
	m.offset = max(0, min(m.offset, max(0, len(m.state.Results)-m.opts.ListHeight)))
}

// View renders the client.
func (m *Model) View() string {
	sections := []string{m.renderHeader(), m.renderList()}
	if m.opts.ShowChart {
		chart := renderMagnitudeChart(m.state.Results, min(m.width-4, 60), 8)
		sections = append(sections, panelStyle.Render(labelStyle.Render("Magnitude distribution")+"\n"+chart))
	}
	sections = append(sections, m.renderDetail())
	if m.status != "" {
		sections = append(sections, errorStyle.Render(m.status))
	}
	sections = append(sections, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	provider := strings.ToUpper(m.state.Provider.String())
	magnitude := "any"
	if m.state.MinMagnitude > 0 {
		magnitude = fmt.Sprintf("≥ %d", m.state.MinMagnitude)
	}
	nearMe := "off"
	if m.state.Location != nil {
		nearMe = fmt.Sprintf("%s, %s (%d°)", m.state.Location.Latitude, m.state.Location.Longitude, domain.SearchRadius)
	}

	line := titleStyle.Render("Quake Watch") + "  " +
		labelStyle.Render("provider ") + activeStyle.Render(provider) + "  " +
		labelStyle.Render("min magnitude ") + activeStyle.Render(magnitude) + "  " +
		labelStyle.Render("near me ") + activeStyle.Render(nearMe)
	if m.state.Loading {
		line += "  " + m.spinner.View() + labelStyle.Render(" loading")
	}
	return line
}

func (m *Model) renderList() string {
	results := m.state.Results
	if len(results) == 0 {
		switch {
		case m.state.Loading:
			return helpStyle.Render("Fetching earthquakes…")
		case m.state.LastFetchFailed:
			return errorStyle.Render("Fetch failed. Press r to retry.")
		default:
			return helpStyle.Render("No earthquakes match the current filters.")
		}
	}

	end := min(m.offset+m.opts.ListHeight, len(results))
	lines := make([]string, 0, end-m.offset+1)
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.renderRow(i, results[i]))
	}
	lines = append(lines, labelStyle.Render(fmt.Sprintf("%d–%d of %d", m.offset+1, end, len(results))))
	return strings.Join(lines, "\n")
}

func (m *Model) renderRow(i int, r domain.Record) string {
	mag := lipgloss.NewStyle().Bold(true).Foreground(magnitudeColor(r.Magnitude)).
		Render(fmt.Sprintf("%4.1f", r.Magnitude))
	when := "unknown time"
	if t := r.OccurredAt(); !t.IsZero() {
		when = t.Format("2006-01-02 15:04 UTC")
	}
	place := r.Place
	if limit := m.width - 30; limit > 10 && len([]rune(place)) > limit {
		place = string([]rune(place)[:limit-1]) + "…"
	}
	row := fmt.Sprintf("%s  %s  %s", mag, labelStyle.Render(when), place)
	if i == m.cursor {
		return selectedStyle.Render("›") + " " + row
	}
	return "  " + row
}

func (m *Model) renderDetail() string {
	if len(m.state.Results) == 0 || m.cursor >= len(m.state.Results) {
		return ""
	}
	return urlStyle.Render(m.state.Results[m.cursor].DetailURL)
}
