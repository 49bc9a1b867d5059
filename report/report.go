// Package report renders a run summary for the terminal. Rendering is pure:
// it reads records and produces a string, with no side effects.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mensylisir/nodeforge/common"
	"github.com/mensylisir/nodeforge/state"
	"github.com/mensylisir/nodeforge/step"
	nftime "github.com/mensylisir/nodeforge/time"
)

var (
	colorSuccess = lipgloss.AdaptiveColor{Light: "#40a02b", Dark: "#a6e3a1"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#df8e1d", Dark: "#f9e2af"}
	colorError   = lipgloss.AdaptiveColor{Light: "#d20f39", Dark: "#f38ba8"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6c6f85", Dark: "#6c7086"}
	colorTitle   = lipgloss.AdaptiveColor{Light: "#1e66f5", Dark: "#89b4fa"}
)

// Renderer turns run records into a human-readable summary table.
type Renderer struct {
	color bool
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithColor toggles ANSI styling; disable it for logs and CI output.
func WithColor(enabled bool) Option {
	return func(r *Renderer) { r.color = enabled }
}

// NewRenderer creates a Renderer, colored by default.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{color: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render formats the records of one host run plus its overall status.
func (r *Renderer) Render(host string, status common.RunStatus, records []state.RunRecord, artifacts map[string]string) string {
	var b strings.Builder

	title := fmt.Sprintf("Provisioning run on %s: %s", host, status)
	b.WriteString(r.styled(title, r.titleStyle(status)))
	b.WriteString("\n\n")

	nameWidth := len("STEP")
	for _, rec := range records {
		if len(rec.StepName) > nameWidth {
			nameWidth = len(rec.StepName)
		}
	}

	b.WriteString(fmt.Sprintf("  %-*s  %-10s  %-9s  %-10s\n", nameWidth, "STEP", "STATUS", "ATTEMPTS", "DURATION"))
	for _, rec := range records {
		b.WriteString(fmt.Sprintf("  %-*s  %s  %-9s  %-10s\n",
			nameWidth, rec.StepName,
			r.statusCell(rec.Status),
			attemptsCell(rec.Attempts),
			durationCell(rec.Duration()),
		))
		if rec.Status == common.StatusFailed && rec.LastError != "" {
			b.WriteString(r.styled(fmt.Sprintf("  %-*s  ↳ %s\n", nameWidth, "", rec.LastError), r.errorStyle()))
		}
		if rec.Status == common.StatusSkipped && rec.LastError != "" {
			b.WriteString(r.styled(fmt.Sprintf("  %-*s  ↳ %s\n", nameWidth, "", rec.LastError), r.mutedStyle()))
		}
	}

	if cmd := artifacts[step.ArtifactJoinCommand]; cmd != "" {
		b.WriteString("\n")
		b.WriteString("Workers can join this cluster with:\n")
		b.WriteString("  " + cmd + "\n")
	}
	if path := artifacts[step.ArtifactKubeconfigPath]; path != "" {
		b.WriteString("\n")
		b.WriteString("Admin kubeconfig: " + path + "\n")
	}

	return b.String()
}

func (r *Renderer) statusCell(status common.StepStatus) string {
	cell := fmt.Sprintf("%-10s", status.String())
	if !r.color {
		return cell
	}
	switch status {
	case common.StatusSucceeded:
		return lipgloss.NewStyle().Foreground(colorSuccess).Render(cell)
	case common.StatusFailed:
		return lipgloss.NewStyle().Foreground(colorError).Bold(true).Render(cell)
	case common.StatusSkipped:
		return lipgloss.NewStyle().Foreground(colorWarning).Render(cell)
	default:
		return lipgloss.NewStyle().Foreground(colorMuted).Render(cell)
	}
}

func (r *Renderer) titleStyle(status common.RunStatus) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	switch status {
	case common.RunCompleted:
		return style.Foreground(colorSuccess)
	case common.RunAborted:
		return style.Foreground(colorError)
	case common.RunCancelled:
		return style.Foreground(colorWarning)
	default:
		return style.Foreground(colorTitle)
	}
}

func (r *Renderer) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorError)
}

func (r *Renderer) mutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorMuted)
}

func (r *Renderer) styled(s string, style lipgloss.Style) string {
	if !r.color {
		return s
	}
	return style.Render(s)
}

func attemptsCell(attempts int) string {
	if attempts == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", attempts)
}

func durationCell(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return nftime.ShortDur(d.Round(time.Millisecond))
}
