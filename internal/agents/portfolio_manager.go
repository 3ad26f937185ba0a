package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"hedgego/internal/graph"
	"hedgego/internal/llm"
	"hedgego/internal/models"
)

const portfolioAgentID = "portfolio_manager"

var decisionSchema = &llm.Schema{
	Name: "DecisionSet",
	Fields: []llm.Field{
		{Name: "decisions", Kind: llm.KindMapping},
	},
}

// PortfolioManagerAgent turns the accumulated analyst signals and risk
// limits into one trading decision per ticker. If the model call degrades
// to the schema default, every ticker still receives an explicit hold.
func PortfolioManagerAgent(deps Deps) graph.NodeFunc {
	sink := deps.sink()
	return func(ctx context.Context, state *models.HedgeState) error {
		sink.UpdateStatus(portfolioAgentID, "", "Making trading decisions")

		assessments, summary := state.RiskAssessments()
		signalsJSON, _ := json.Marshal(state.AnalystSignals())
		assessmentsJSON, _ := json.Marshal(assessments)
		portfolioJSON, _ := json.Marshal(state.Portfolio)

		var prompt strings.Builder
		fmt.Fprintf(&prompt, "Tickers under consideration: %s\n\n", strings.Join(state.Tickers, ", "))
		fmt.Fprintf(&prompt, "Analyst signals by agent:\n%s\n\n", signalsJSON)
		fmt.Fprintf(&prompt, "Risk limits per ticker:\n%s\n\n", assessmentsJSON)
		if summary != nil {
			fmt.Fprintf(&prompt, "Overall portfolio risk: %s (%s)\n\n", summary.PortfolioRisk, summary.Reasoning)
		}
		fmt.Fprintf(&prompt, "Current portfolio:\n%s\n\n", portfolioJSON)
		prompt.WriteString("For every ticker return a decision object with keys " +
			`"action" (buy, sell, short, cover or hold), "quantity", "confidence" (0-100) and "reasoning". ` +
			"Never exceed a ticker's remaining position limit.")

		set := llm.Call(ctx, llm.Request[models.DecisionSet]{
			Messages: []*schema.Message{
				schema.SystemMessage("You are a portfolio manager sizing trades from analyst signals under hard position limits."),
				schema.UserMessage(prompt.String()),
			},
			ModelName:     state.Metadata.ModelName,
			ModelProvider: state.Metadata.ModelProvider,
			Schema:        decisionSchema,
			AgentName:     portfolioAgentID,
			MaxRetries:    deps.MaxLLMRetries,
			Factory:       deps.Models,
			Progress:      sink,
		})

		if set.Decisions == nil {
			set.Decisions = make(map[string]models.PortfolioDecision, len(state.Tickers))
		}
		for _, ticker := range state.Tickers {
			if _, ok := set.Decisions[ticker]; !ok {
				set.Decisions[ticker] = models.PortfolioDecision{
					Action:    "hold",
					Reasoning: "No decision returned for ticker, defaulting to hold",
				}
			}
		}

		content, err := json.Marshal(set)
		if err != nil {
			return err
		}
		state.AppendMessage(&schema.Message{
			Role:    schema.Assistant,
			Content: string(content),
			Name:    portfolioAgentID,
		})
		sink.UpdateStatus(portfolioAgentID, "", "Done")
		return nil
	}
}
