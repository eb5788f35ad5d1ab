package splash

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const defaultSplashWidth = 60

type progressMsg struct {
	percent float64
	status  string
}

type failureMsg struct {
	message string
}

type retireMsg struct{}

// model is the bubbletea model behind the TUI splash.
type model struct {
	title   string
	bar     progress.Model
	spin    spinner.Model
	percent float64
	status  string
	errMsg  string
	width   int
}

func newModel(title string) model {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = defaultSplashWidth

	spin := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("205"))),
	)

	return model{
		title:  title,
		bar:    bar,
		spin:   spin,
		status: "starting",
		width:  defaultSplashWidth,
	}
}

func (m model) Init() tea.Cmd {
	return m.spin.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		barWidth := msg.Width - 10
		if barWidth < 20 {
			barWidth = 20
		}
		if barWidth > defaultSplashWidth {
			barWidth = defaultSplashWidth
		}
		m.bar.Width = barWidth
		return m, nil

	case progressMsg:
		// The sequencer guarantees monotonic percentages; clamp anyway so a
		// stray update can never make the bar jump backwards.
		if msg.percent > m.percent {
			m.percent = msg.percent
		}
		if msg.status != "" {
			m.status = msg.status
		}
		return m, nil

	case failureMsg:
		m.errMsg = msg.message
		return m, nil

	case retireMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) View() string {
	if m.errMsg != "" {
		return frameStyle.Render(
			titleStyle.Render(m.title) + "\n\n" +
				errorStyle.Render("startup failed: "+m.errMsg),
		) + "\n"
	}

	statusWidth := m.bar.Width - 8
	if statusWidth < 10 {
		statusWidth = 10
	}
	status := runewidth.Truncate(m.status, statusWidth, "…")

	body := titleStyle.Render(m.title) + "\n\n" +
		m.spin.View() + " " + statusStyle.Render(status) + "\n" +
		m.bar.ViewAs(m.percent/100) + " " + percentStyle.Render(fmt.Sprintf("%3.0f%%", m.percent))

	return frameStyle.Render(body) + "\n"
}

// TUIPresenter runs the splash as its own bubbletea program and forwards
// pushes to it. All pushes are fire-and-forget.
type TUIPresenter struct {
	prog   *tea.Program
	done   chan struct{}
	retire sync.Once
}

// NewTUIPresenter starts the splash program on stderr, leaving stdout to
// the main surface that follows it.
func NewTUIPresenter(title string) *TUIPresenter {
	p := tea.NewProgram(newModel(title), tea.WithOutput(os.Stderr))
	t := &TUIPresenter{prog: p, done: make(chan struct{})}
	go func() {
		_, _ = p.Run()
		close(t.done)
	}()
	return t
}

// Progress implements Presenter.
func (t *TUIPresenter) Progress(percent float64, status string) {
	t.prog.Send(progressMsg{percent: percent, status: status})
}

// Failure implements Presenter.
func (t *TUIPresenter) Failure(message string) {
	t.prog.Send(failureMsg{message: message})
}

// Retire implements Presenter. Blocks until the splash program has released
// the terminal, so the main surface never races it for the screen.
func (t *TUIPresenter) Retire() {
	t.retire.Do(func() {
		t.prog.Send(retireMsg{})
		<-t.done
	})
}
