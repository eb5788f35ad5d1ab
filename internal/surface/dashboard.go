package surface

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"shellboot/internal/supervisor"
	"shellboot/pkg/logging"
)

const logTailSize = 200

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	stoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	logStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

// StatusFunc returns the current state of all supervised processes.
type StatusFunc func() []supervisor.ProcessStatus

type refreshMsg time.Time

type logMsg logging.LogEntry

type dashboardModel struct {
	statuses StatusFunc
	rows     []supervisor.ProcessStatus
	logs     []string
	width    int
	height   int
}

func newDashboardModel(statuses StatusFunc) dashboardModel {
	return dashboardModel{
		statuses: statuses,
		rows:     statuses(),
		width:    80,
		height:   24,
	}
}

func refreshTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m dashboardModel) Init() tea.Cmd {
	return refreshTick()
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case refreshMsg:
		m.rows = m.statuses()
		return m, refreshTick()

	case logMsg:
		line := fmt.Sprintf("%s [%s] %s", msg.Timestamp.Format("15:04:05"), msg.Subsystem, msg.Message)
		m.logs = append(m.logs, line)
		if len(m.logs) > logTailSize {
			m.logs = m.logs[len(m.logs)-logTailSize:]
		}
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("shellboot") + "\n\n")

	if len(m.rows) == 0 {
		b.WriteString(dimStyle.Render("  no supervised services") + "\n")
	}
	for _, row := range m.rows {
		state := stoppedStyle.Render("stopped")
		port := ""
		if row.Running {
			state = runningStyle.Render("running")
			port = dimStyle.Render(fmt.Sprintf("  port %d  pid %d", row.Port, row.PID))
		}
		b.WriteString(fmt.Sprintf("  %-20s %s%s\n", row.Name, state, port))
	}

	b.WriteString("\n" + dimStyle.Render(strings.Repeat("─", max(m.width-2, 10))) + "\n")

	tail := m.visibleLogLines()
	for _, line := range m.logs[len(m.logs)-tail:] {
		b.WriteString(logStyle.Render(runewidth.Truncate(line, max(m.width-2, 20), "…")) + "\n")
	}

	b.WriteString("\n" + dimStyle.Render("  q to quit") + "\n")
	return b.String()
}

// visibleLogLines caps the log tail to what fits under the service table.
func (m dashboardModel) visibleLogLines() int {
	budget := m.height - len(m.rows) - 7
	if budget < 0 {
		budget = 0
	}
	if budget > len(m.logs) {
		budget = len(m.logs)
	}
	return budget
}

// Dashboard is the interactive main surface. It is constructed hidden; the
// sequencer reveals it with Show once startup completes.
type Dashboard struct {
	prog    *tea.Program
	logFeed <-chan logging.LogEntry
	ready   chan struct{}
	done    chan struct{}
	show    sync.Once
}

// NewDashboard builds the surface without rendering anything. The readiness
// channel is closed as soon as the model has its first status snapshot, so
// the sequencer's handoff wait is short in the interactive case.
func NewDashboard(statuses StatusFunc, logFeed <-chan logging.LogEntry) *Dashboard {
	d := &Dashboard{
		prog:    tea.NewProgram(newDashboardModel(statuses), tea.WithAltScreen()),
		logFeed: logFeed,
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	close(d.ready)
	return d
}

// Ready implements Surface.
func (d *Dashboard) Ready() <-chan struct{} {
	return d.ready
}

// Show implements Surface. The program takes over the terminal in its own
// goroutine; use Wait to block until the user quits.
func (d *Dashboard) Show() {
	d.show.Do(func() {
		go func() {
			_, _ = d.prog.Run()
			close(d.done)
		}()
		if d.logFeed != nil {
			go d.pumpLogs()
		}
	})
}

// Wait blocks until the dashboard exits.
func (d *Dashboard) Wait() {
	<-d.done
}

func (d *Dashboard) pumpLogs() {
	for {
		select {
		case entry, ok := <-d.logFeed:
			if !ok {
				return
			}
			d.prog.Send(logMsg(entry))
		case <-d.done:
			return
		}
	}
}
