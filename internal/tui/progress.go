package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/firefly-engineering/agent-deploy/internal/fleet"
	"github.com/firefly-engineering/agent-deploy/internal/pipeline"
)

// EventMsg carries one pipeline event into the model.
type EventMsg pipeline.Event

// DoneMsg tells the model the run is over.
type DoneMsg struct{}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// row is the progress of one target.
type row struct {
	name    string
	stage   pipeline.Stage
	state   pipeline.State
	running bool
	cause   string
	elapsed time.Duration
}

func (r row) finished() bool {
	return r.state.Terminal()
}

// Model is the bubbletea model for the deployment progress view
type Model struct {
	rows        []*row
	index       map[string]*row
	spinner     spinner.Model
	done        bool
	interrupted bool
}

// NewProgress creates a progress model listing names in order.
func NewProgress(names []string) Model {
	m := Model{
		index:   make(map[string]*row, len(names)),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(titleStyle.UnsetMarginBottom())),
	}
	for _, n := range names {
		r := &row{name: n, state: pipeline.StatePending}
		m.rows = append(m.rows, r)
		m.index[n] = r
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case EventMsg:
		m.apply(pipeline.Event(msg))
		return m, nil

	case DoneMsg:
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.interrupted = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// apply mutates the row the event belongs to. Rows are pointers shared by
// every copy of the model, which bubbletea only ever drives from one
// goroutine.
func (m Model) apply(ev pipeline.Event) {
	r, ok := m.index[ev.Target]
	if !ok {
		return
	}
	switch ev.Kind {
	case pipeline.EventTargetStarted:
		r.running = true
	case pipeline.EventStageStarted:
		r.stage = ev.Stage
		r.running = true
	case pipeline.EventStageSucceeded:
		r.state = ev.State
	case pipeline.EventStageFailed:
		r.state = pipeline.StateFailed
		r.stage = ev.Stage
		r.cause = pipeline.Result{Err: ev.Err}.Cause()
	case pipeline.EventTargetFinished:
		r.running = false
		r.elapsed = ev.Duration
		if ev.State == pipeline.StateFailed && r.state != pipeline.StateFailed {
			// Cancelled before the stage started.
			r.stage = ev.Stage
			r.cause = pipeline.Result{Err: ev.Err}.Cause()
		}
		if ev.State != "" {
			r.state = ev.State
		}
	}
}

func (m Model) View() string {
	var b strings.Builder

	finished := 0
	width := 0
	for _, r := range m.rows {
		if r.finished() {
			finished++
		}
		width = max(width, len(r.name))
	}

	b.WriteString(titleStyle.Render(fmt.Sprintf("Deploying %d/%d", finished, len(m.rows))))
	b.WriteString("\n")

	for _, r := range m.rows {
		icon := " "
		if r.running && !r.finished() {
			icon = m.spinner.View()
		}
		fmt.Fprintf(&b, "%s %-*s  %s\n", icon, width, r.name, status(r))
	}

	if !m.done && !m.interrupted {
		b.WriteString(helpStyle.Render("[ctrl+c] Cancel"))
		b.WriteString("\n")
	}
	return b.String()
}

func status(r *row) string {
	switch {
	case r.state == pipeline.StateFailed:
		s := failedStyle.Render("failed(" + string(r.stage) + ")")
		if r.cause != "" {
			s += " " + pendingStyle.Render(truncate(firstLine(r.cause), 60))
		}
		return s
	case r.state == pipeline.StateLaunched:
		return okStyle.Render("launched") + " " + pendingStyle.Render(r.elapsed.Round(time.Millisecond).String())
	case r.running && r.stage != "":
		return string(r.stage) + "..."
	default:
		return pendingStyle.Render(string(r.state))
	}
}

// Interrupted reports whether the user cancelled the run.
func (m Model) Interrupted() bool {
	return m.interrupted
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// Sender delivers messages to a running program. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// Observer forwards pipeline events to a program.
type Observer struct {
	Program Sender
}

func (o Observer) Observe(ev pipeline.Event) {
	o.Program.Send(EventMsg(ev))
}

// DeployFunc runs a deployment, reporting progress to obs.
type DeployFunc func(ctx context.Context, obs pipeline.Observer) (*fleet.Report, error)

// RunProgress runs deploy while rendering its progress to out. Cancelling
// the view with ctrl+c cancels the context handed to deploy; RunProgress
// still waits for deploy to return.
func RunProgress(ctx context.Context, out io.Writer, names []string, deploy DeployFunc) (*fleet.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgress(names), tea.WithOutput(out), tea.WithContext(ctx))

	var (
		rep    *fleet.Report
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		rep, runErr = deploy(ctx, Observer{Program: p})
		p.Send(DoneMsg{})
	}()

	final, err := p.Run()
	if m, ok := final.(Model); ok && m.Interrupted() {
		cancel()
	}
	<-done
	if runErr != nil {
		return rep, runErr
	}
	if err != nil && ctx.Err() == nil {
		return rep, fmt.Errorf("progress view: %w", err)
	}
	return rep, nil
}
