package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/firefly-engineering/agent-deploy/internal/fleet"
	"github.com/firefly-engineering/agent-deploy/internal/pipeline"
)

type styles struct {
	header  lipgloss.Style
	ok      lipgloss.Style
	failed  lipgloss.Style
	muted   lipgloss.Style
	section lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		header:  r.NewStyle().Bold(true),
		ok:      r.NewStyle().Foreground(lipgloss.Color("42")),
		failed:  r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("241")),
		section: r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
	}
}

// Text writes a human-readable report of rep to w.
func Text(w io.Writer, rep *fleet.Report) error {
	st := newStyles(w)
	s := rep.Summary()

	var b strings.Builder

	b.WriteString(st.header.Render(fmt.Sprintf("Run %s: %d/%d targets succeeded", rep.RunID, s.Succeeded, s.Total)))
	if s.Changed > 0 {
		fmt.Fprintf(&b, ", %d configuration(s) changed", s.Changed)
	}
	if rep.Duration > 0 {
		fmt.Fprintf(&b, " in %s", round(rep.Duration))
	}
	b.WriteString("\n")

	if len(rep.Results) > 0 {
		b.WriteString("\n")
	}

	nameWidth := 0
	for _, res := range rep.Results {
		nameWidth = max(nameWidth, lipgloss.Width(res.Target))
	}
	nameCol := st.header.Width(nameWidth + 2)

	for _, res := range rep.Results {
		mark := st.ok.Render("✓")
		outcome := st.ok.Render(string(res.State))
		if !res.Succeeded() {
			mark = st.failed.Render("✗")
			outcome = st.failed.Render(res.Outcome())
		}

		line := []string{mark, nameCol.Render(res.Target), outcome}
		if res.ConfigChanged {
			line = append(line, "config changed")
		}
		if res.Duration > 0 {
			line = append(line, st.muted.Render(round(res.Duration).String()))
		}
		b.WriteString(strings.Join(line, " "))
		b.WriteString("\n")
	}

	if len(s.Failures) > 0 {
		b.WriteString("\n")
		b.WriteString(st.section.Render("Failures by stage:"))
		b.WriteString("\n")
		for _, c := range s.ByStage {
			fmt.Fprintf(&b, "  %s: %d\n", c.Stage, c.Count)
		}

		b.WriteString("\n")
		b.WriteString(st.section.Render("Failed targets:"))
		b.WriteString("\n")
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "  %s [%s] %s\n", f.Target, stageName(f.Stage), firstLine(f.Cause))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func stageName(s pipeline.Stage) string {
	if s == "" {
		return "none"
	}
	return string(s)
}

// firstLine keeps multi-line command output from breaking the layout.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func round(d time.Duration) time.Duration {
	if d < time.Second {
		return d.Round(time.Millisecond)
	}
	return d.Round(10 * time.Millisecond)
}
