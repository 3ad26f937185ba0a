// Package progress reports per-agent status lines while a run executes.
// Reporting is advisory: callers treat every sink as best-effort and never
// let it affect control flow.
package progress

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Sink receives (agent, ticker, status) updates. A nil ticker context is
// passed as the empty string.
type Sink interface {
	UpdateStatus(agent, ticker, status string)
}

// Nop discards all updates.
type Nop struct{}

func (Nop) UpdateStatus(agent, ticker, status string) {}

var (
	agentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	tickerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// Console writes one styled line per update to stdout.
type Console struct{}

func NewConsole() *Console { return &Console{} }

func (c *Console) UpdateStatus(agent, ticker, status string) {
	style := statusStyle
	switch {
	case status == "Done":
		style = doneStyle
	case strings.HasPrefix(status, "Error"), strings.HasPrefix(status, "Failed"):
		style = errorStyle
	}
	line := agentStyle.Render(agent)
	if ticker != "" {
		line += " " + tickerStyle.Render(ticker)
	}
	fmt.Println(line + " " + style.Render(status))
}
