package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/libstats/internal/models"
	"github.com/desertthunder/libstats/internal/stats"
	"github.com/desertthunder/libstats/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ChartView ViewState = iota
	SnapshotListView
	SnapshotView
)

// Runner produces a chart for a policy. Implemented by tasks.Pipeline.
type Runner interface {
	Run(ctx context.Context, progress chan<- tasks.ProgressUpdate, policy stats.Policy) (*tasks.RunResult, error)
}

// SnapshotStore persists charts. Implemented by repositories.SnapshotRepository.
type SnapshotStore interface {
	Create(snapshot *models.Snapshot) error
	List(criteria map[string]any) ([]*models.Snapshot, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	view   ViewState
	runner Runner
	store  SnapshotStore
	width  int
	height int

	policy       stats.Policy
	loading      bool
	spinner      spinner.Model
	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg
	progress     tasks.ProgressUpdate
	result       *tasks.RunResult

	snapshotList list.Model
	selected     *models.Snapshot

	status string
	err    error
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model showing policy first. store may be nil, which disables snapshots.
func NewModel(ctx context.Context, runner Runner, store SnapshotStore, policy stats.Policy) *Model {
	if policy == "" {
		policy = stats.ByMonth
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.ok

	return &Model{
		ctx:     ctx,
		view:    ChartView,
		runner:  runner,
		store:   store,
		policy:  policy,
		spinner: s,
		help:    help.New(),
		keys:    newKeyMap(),
		width:   defaultWidth,
	}
}

// Init starts the first aggregation.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startRun(m.policy))
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if m.snapshotList.Width() != 0 {
			m.snapshotList.SetSize(msg.Width-4, msg.Height-4)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case ChartView:
			return m.handleChartKeys(msg)
		case SnapshotListView:
			return m.handleSnapshotListKeys(msg)
		case SnapshotView:
			return m.handleSnapshotKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgAggregated:
		data := msg.data.(aggregated)
		m.loading = false
		m.progressChan = nil
		m.doneChan = nil
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.policy = data.policy
		m.result = data.result
		return m, nil

	case MsgSnapshotSaved:
		data := msg.data.(snapshotSaved)
		if data.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("✗ save failed: %v", data.err))
		} else {
			m.status = styles.ok.Render(fmt.Sprintf("✓ saved snapshot #%d", data.snapshot.Sequence()))
		}
		return m, nil

	case MsgSnapshotsLoaded:
		data := msg.data.(snapshotsLoaded)
		if data.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("✗ %v", data.err))
			return m, nil
		}
		items := make([]list.Item, len(data.snapshots))
		for i, s := range data.snapshots {
			items[i] = snapshotItem{snapshot: s}
		}
		m.snapshotList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.snapshotList.Title = "Saved snapshots"
		m.snapshotList.SetSize(max(m.width-4, 20), max(m.height-4, 10))
		m.view = SnapshotListView
		return m, nil
	}
	return m, nil
}

func (m *Model) handleChartKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if policy, ok := m.keys.policyFor(msg); ok {
		if m.loading || (policy == m.policy && m.result != nil) {
			return m, nil
		}
		m.status = ""
		return m, tea.Batch(m.spinner.Tick, m.startRun(policy))
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.save):
		if m.store != nil && m.result != nil && !m.loading {
			return m, m.saveSnapshot()
		}
	case key.Matches(msg, m.keys.snapshots):
		if m.store != nil {
			return m, m.loadSnapshots()
		}
	}
	return m, nil
}

func (m *Model) handleSnapshotListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.snapshotList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.back):
			m.view = ChartView
			return m, nil
		case key.Matches(msg, m.keys.enter):
			if item, ok := m.snapshotList.SelectedItem().(snapshotItem); ok {
				m.selected = item.snapshot
				m.view = SnapshotView
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.snapshotList, cmd = m.snapshotList.Update(msg)
	return m, cmd
}

func (m *Model) handleSnapshotKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.selected = nil
		m.view = SnapshotListView
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != SnapshotListView {
		return m, nil
	}
	var cmd tea.Cmd
	m.snapshotList, cmd = m.snapshotList.Update(msg)
	return m, cmd
}

// startRun runs the pipeline in the background. The final result arrives on doneChan so the goroutine
// never touches the model.
func (m *Model) startRun(policy stats.Policy) tea.Cmd {
	m.loading = true
	m.progress = tasks.ProgressUpdate{Message: fmt.Sprintf("Counting by %s...", policy)}
	m.progressChan = make(chan tasks.ProgressUpdate, 16)
	m.doneChan = make(chan Msg, 1)

	progress, done := m.progressChan, m.doneChan
	go func() {
		result, err := m.runner.Run(m.ctx, progress, policy)
		done <- aggregatedMsg(policy, result, err)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	if done == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case update := <-progress:
			return progressUpdateMsg(update)
		case msg := <-done:
			return msg
		}
	}
}

func (m *Model) saveSnapshot() tea.Cmd {
	snapshot := m.result.Snapshot()
	return func() tea.Msg {
		err := m.store.Create(snapshot)
		return snapshotSavedMsg(snapshot, err)
	}
}

func (m *Model) loadSnapshots() tea.Cmd {
	return func() tea.Msg {
		snapshots, err := m.store.List(nil)
		return snapshotsLoadedMsg(snapshots, err)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ChartView:
		return m.renderChart()
	case SnapshotListView:
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back, m.keys.quit})
		return fmt.Sprintf("%s\n\n%s", m.snapshotList.View(), helpView)
	case SnapshotView:
		return m.renderSnapshot()
	default:
		return ""
	}
}

func (m *Model) renderTabs() string {
	tabs := make([]string, 0, len(stats.Policies))
	for _, p := range stats.Policies {
		if p == m.policy {
			tabs = append(tabs, styles.ok.Render("["+string(p)+"]"))
		} else {
			tabs = append(tabs, styles.label.Render(" "+string(p)+" "))
		}
	}
	return strings.Join(tabs, " ")
}

func (m *Model) renderChart() string {
	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	switch {
	case m.loading:
		fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), m.progress.Message)
	case m.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	case m.result != nil:
		b.WriteString(RenderHistogram(m.result.Policy.Title(), m.result.Frequencies, m.width-2))
		b.WriteString("\n")
		b.WriteString(styles.help.Render(fmt.Sprintf("%d saved tracks", m.result.Records)))
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n" + m.status + "\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderSnapshot() string {
	if m.selected == nil {
		return ""
	}
	title := fmt.Sprintf("#%d %s", m.selected.Sequence(), stats.Policy(m.selected.Policy()).Title())
	chart := RenderHistogram(title, stats.FromSnapshot(m.selected), m.width-2)
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", chart, helpView)
}
