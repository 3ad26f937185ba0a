// Package display renders run results to the terminal.
package display

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"hedgego/internal/models"
	"hedgego/internal/trading"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	tickerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	bullishStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	bearishStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	neutralStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	ruleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func rule() string { return ruleStyle.Render(strings.Repeat("─", 70)) }

func signalStyle(s models.Signal) lipgloss.Style {
	switch s {
	case models.Bullish:
		return bullishStyle
	case models.Bearish:
		return bearishStyle
	default:
		return neutralStyle
	}
}

func actionStyle(action string) lipgloss.Style {
	switch strings.ToLower(action) {
	case "buy", "cover":
		return bullishStyle
	case "sell", "short":
		return bearishStyle
	default:
		return neutralStyle
	}
}

// Render prints the analyst signals and trading decisions for a run.
func Render(result *trading.Result, tickers []string, showReasoning bool) {
	for _, ticker := range tickers {
		fmt.Println()
		fmt.Println(headerStyle.Render("Analysis for ") + tickerStyle.Render(ticker))
		fmt.Println(rule())

		agentIDs := make([]string, 0, len(result.AnalystSignals))
		for id := range result.AnalystSignals {
			agentIDs = append(agentIDs, id)
		}
		sort.Strings(agentIDs)
		for _, id := range agentIDs {
			sig, ok := result.AnalystSignals[id][ticker]
			if !ok {
				continue
			}
			fmt.Printf("  %-28s %s %s\n",
				agentDisplayName(id),
				signalStyle(sig.Signal).Render(fmt.Sprintf("%-8s", strings.ToUpper(string(sig.Signal)))),
				dimStyle.Render(fmt.Sprintf("%.1f%%", sig.Confidence)),
			)
			if showReasoning && sig.Reasoning != nil {
				printReasoning(sig.Reasoning)
			}
		}

		if d, ok := result.Decisions[ticker]; ok {
			fmt.Println(rule())
			fmt.Printf("  %-28s %s %s\n",
				"Decision",
				actionStyle(d.Action).Render(fmt.Sprintf("%-8s", strings.ToUpper(d.Action))),
				dimStyle.Render(fmt.Sprintf("qty %.0f, %.1f%%", d.Quantity, d.Confidence)),
			)
			if d.Reasoning != "" {
				fmt.Println(dimStyle.Render(wrap(d.Reasoning, "    ", 70)))
			}
		}
	}
	fmt.Println()
}

// agentDisplayName turns a node id like "fundamentals_agent" into
// "Fundamentals Agent".
func agentDisplayName(id string) string {
	parts := strings.Split(id, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

func printReasoning(reasoning any) {
	switch v := reasoning.(type) {
	case string:
		fmt.Println(dimStyle.Render(wrap(v, "    ", 70)))
	default:
		b, err := json.MarshalIndent(v, "    ", "  ")
		if err != nil {
			return
		}
		fmt.Println(dimStyle.Render("    " + string(b)))
	}
}

func wrap(text, indent string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	line := indent + words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > width {
			b.WriteString(line + "\n")
			line = indent + w
		} else {
			line += " " + w
		}
	}
	b.WriteString(line)
	return b.String()
}

// SaveResults writes the run output as indented JSON.
func SaveResults(result *trading.Result, path string) error {
	payload := map[string]any{
		"generated_at":    time.Now().Format(time.RFC3339),
		"decisions":       result.Decisions,
		"analyst_signals": result.AnalystSignals,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
