package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexanderramin/routinebuzz/internal/cli/formatter"
	"github.com/alexanderramin/routinebuzz/internal/conflict"
	"github.com/alexanderramin/routinebuzz/internal/domain"
	"github.com/alexanderramin/routinebuzz/internal/sharesync"
)

const watchPollInterval = 500 * time.Millisecond

// watchSource is the part of the routine service the live view reads.
type watchSource interface {
	Sections() []domain.Section
	Conflicts() conflict.Set
	SyncState() sharesync.Snapshot
	ShareURL(shortCode string) string
	RefreshSeats(ctx context.Context) (int, error)
	ReconcileFromStorage(ctx context.Context)
}

type watchTickMsg time.Time

type seatsRefreshedMsg struct {
	updated int
	err     error
}

// watchModel redraws the routine grid and sync status on a fixed poll.
type watchModel struct {
	ctx      context.Context
	src      watchSource
	now      func() time.Time
	interval time.Duration
	spinner  spinner.Model

	sections  []domain.Section
	conflicts conflict.Set
	snap      sharesync.Snapshot
	notice    string
	width     int
}

func newWatchModel(ctx context.Context, src watchSource, now func() time.Time) watchModel {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(formatter.StylePurple),
	)
	m := watchModel{
		ctx:      ctx,
		src:      src,
		now:      now,
		interval: watchPollInterval,
		spinner:  sp,
	}
	m.reload()
	return m
}

func (m *watchModel) reload() {
	m.sections = m.src.Sections()
	m.conflicts = m.src.Conflicts()
	m.snap = m.src.SyncState()
}

func (m watchModel) busy() bool {
	return m.snap.Status == domain.SyncViewerConnecting || m.snap.Status == domain.SyncCreatorSyncing || m.snap.PushPending
}

func (m watchModel) poll() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return watchTickMsg(t) })
}

func (m watchModel) refreshSeats() tea.Cmd {
	return func() tea.Msg {
		n, err := m.src.RefreshSeats(m.ctx)
		return seatsRefreshedMsg{updated: n, err: err}
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.notice = "Refreshing seats…"
			return m, m.refreshSeats()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case watchTickMsg:
		// Other commands may have changed the routine or forked the share.
		m.src.ReconcileFromStorage(m.ctx)
		m.reload()
		return m, m.poll()

	case seatsRefreshedMsg:
		switch {
		case msg.err != nil:
			m.notice = "Seat refresh failed: " + Describe(msg.err)
		case msg.updated == 0:
			m.notice = "Seat counts are up to date."
		default:
			m.notice = fmt.Sprintf("Updated seat counts for %d sections.", msg.updated)
		}
		m.reload()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	status := formatter.StatusPill(m.snap.Status)
	if m.busy() {
		status = m.spinner.View() + " " + status
	}
	b.WriteString(formatter.Header("routinebuzz watch"))
	b.WriteString("\n")
	b.WriteString(status)
	if m.snap.Link != nil {
		b.WriteString("  " + formatter.Bold(m.snap.Link.ShortCode))
		b.WriteString("  " + formatter.Dim(m.src.ShareURL(m.snap.Link.ShortCode)))
	}
	b.WriteString("\n\n")

	if len(m.sections) == 0 {
		b.WriteString(formatter.Dim("Your routine is empty.") + "\n")
	} else {
		b.WriteString(formatter.RenderGrid(formatter.BuildGrid(m.sections, m.conflicts, domain.DefaultGrid())))
		b.WriteString(formatter.Dim(fmt.Sprintf("%d sections · %s credits", len(m.sections), formatter.Credits(domain.TotalCredits(m.sections)))))
		if n := len(m.conflicts.SectionIDs()); n > 0 {
			b.WriteString("  " + formatter.StyleRed.Render(fmt.Sprintf("%d in conflict", n)))
		}
		b.WriteString("\n")
	}

	if !m.snap.LastUpdated.IsZero() {
		b.WriteString(formatter.Dim("Last update " + formatter.SinceFrom(m.snap.LastUpdated, m.now())) + "\n")
	}
	if m.snap.ConnectionError != nil {
		b.WriteString(formatter.Warn("Realtime unavailable: "+Describe(m.snap.ConnectionError)) + "\n")
	}
	if m.snap.LastPushError != nil {
		b.WriteString(formatter.Warn("Last push failed: "+Describe(m.snap.LastPushError)) + "\n")
	}
	if m.notice != "" {
		b.WriteString(m.notice + "\n")
	}
	b.WriteString("\n" + formatter.Dim("r refresh seats · q quit"))
	return b.String()
}
