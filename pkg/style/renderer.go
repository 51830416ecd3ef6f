package style

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/arthur-debert/stagehand/pkg/progress"
	"github.com/arthur-debert/stagehand/pkg/types"
)

// Renderer produces the run output lines for a given output format.
type Renderer interface {
	// RenderStageProgress renders the line printed after each completed stage
	RenderStageProgress(index, count int, name string, overall float64) string

	// RenderFailure renders one recorded failure
	RenderFailure(f types.Failure) string

	// RenderSummary renders the end-of-run summary from the final snapshot
	RenderSummary(planName string, snap progress.Snapshot, failures []types.Failure, aborted bool) string
}

// TerminalRenderer renders rich output with pterm and lipgloss styling.
type TerminalRenderer struct{}

// NewTerminalRenderer creates a renderer for color-capable terminals
func NewTerminalRenderer() *TerminalRenderer {
	return &TerminalRenderer{}
}

// RenderStageProgress renders a progress bar line for the completed stage
func (r *TerminalRenderer) RenderStageProgress(index, count int, name string, overall float64) string {
	barWidth := 20
	filled := int(overall / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	return fmt.Sprintf("%s [%s] %5.1f%% stage %d/%d: %s",
		pterm.Info.Prefix.Text,
		pterm.Info.MessageStyle.Sprint(bar),
		overall,
		index+1,
		count,
		name)
}

// RenderFailure renders one failure with the error style
func (r *TerminalRenderer) RenderFailure(f types.Failure) string {
	return fmt.Sprintf("%s %s", pterm.Error.Prefix.Text, ErrorStyle.Render(f.String()))
}

// RenderSummary renders the styled end-of-run summary
func (r *TerminalRenderer) RenderSummary(planName string, snap progress.Snapshot, failures []types.Failure, aborted bool) string {
	var b strings.Builder

	status := StatusSuccess
	verdict := "completed"
	switch {
	case aborted:
		status = StatusAborted
		verdict = "aborted"
	case len(failures) > 0:
		status = StatusError
		verdict = "completed with failures"
	}

	fmt.Fprintf(&b, "%s %s %s (%.1f%%)\n",
		StatusStyle(status).Sprintf(" %s ", strings.ToUpper(string(status))),
		TitleStyle.Render(planName),
		verdict,
		snap.Overall)

	for _, u := range snap.Units {
		marker := SuccessStyle.Render("✓")
		if !u.Done {
			marker = StatusStyle(StatusQueue).Sprint("○")
		}
		fmt.Fprintf(&b, "  %s %s %5.1f%%\n", marker, u.Name, u.Progress)
	}

	for _, f := range failures {
		b.WriteString(r.RenderFailure(f))
		b.WriteByte('\n')
	}
	return b.String()
}

// PlainRenderer implements Renderer with plain text output (no styling)
type PlainRenderer struct{}

// NewPlainRenderer creates a new plain text renderer
func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{}
}

// RenderStageProgress renders a plain progress line
func (r *PlainRenderer) RenderStageProgress(index, count int, name string, overall float64) string {
	return fmt.Sprintf("[%d/%d] %s (%.1f%%)", index+1, count, name, overall)
}

// RenderFailure renders one failure as plain text
func (r *PlainRenderer) RenderFailure(f types.Failure) string {
	return "FAIL " + f.String()
}

// RenderSummary renders the plain end-of-run summary
func (r *PlainRenderer) RenderSummary(planName string, snap progress.Snapshot, failures []types.Failure, aborted bool) string {
	var b strings.Builder

	verdict := "completed"
	switch {
	case aborted:
		verdict = "aborted"
	case len(failures) > 0:
		verdict = "completed with failures"
	}
	fmt.Fprintf(&b, "%s %s (%.1f%%)\n", planName, verdict, snap.Overall)

	for _, u := range snap.Units {
		fmt.Fprintf(&b, "  %s %.1f%%\n", u.Name, u.Progress)
	}
	for _, f := range failures {
		b.WriteString(r.RenderFailure(f))
		b.WriteByte('\n')
	}
	return b.String()
}

// ForTerminal returns the renderer matching the terminal capability flag.
func ForTerminal(rich bool) Renderer {
	if rich {
		return NewTerminalRenderer()
	}
	return NewPlainRenderer()
}
