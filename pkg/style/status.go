package style

import (
	"github.com/pterm/pterm"
)

// Status types for units and runs
type Status string

const (
	StatusSuccess Status = "success" // Ran to completion
	StatusError   Status = "error"   // Failed
	StatusQueue   Status = "queue"   // Not yet executed
	StatusAborted Status = "aborted" // Run stopped before this point
)

// StatusStyle returns the appropriate pterm style for a status
func StatusStyle(status Status) *pterm.Style {
	switch status {
	case StatusSuccess:
		return pterm.NewStyle(pterm.BgGreen, pterm.FgWhite)
	case StatusError:
		return pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	case StatusQueue:
		return pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	case StatusAborted:
		return pterm.NewStyle(pterm.BgRed, pterm.FgWhite, pterm.Bold)
	default:
		return pterm.NewStyle(pterm.FgGray)
	}
}
