package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"hedgego/internal/graph"
	"hedgego/internal/llm"
	"hedgego/internal/models"
)

const riskAgentID = "risk_management_agent"

var riskSummarySchema = &llm.Schema{
	Name: "RiskSummary",
	Fields: []llm.Field{
		{Name: "portfolio_risk", Kind: llm.KindEnum, Options: []string{"moderate", "low", "elevated", "high"}},
		{Name: "reasoning", Kind: llm.KindString},
	},
}

// RiskManagerAgent caps position sizes at a fixed share of portfolio value
// per ticker and asks the model for an overall risk rating of the signal
// set. The numeric limits never depend on the model call; a provider
// outage degrades only the qualitative summary.
func RiskManagerAgent(deps Deps) graph.NodeFunc {
	sink := deps.sink()
	return func(ctx context.Context, state *models.HedgeState) error {
		assessments := make(map[string]models.RiskAssessment)

		portfolioValue := state.Portfolio.Cash
		latestPrices := make(map[string]float64)
		for _, ticker := range state.Tickers {
			sink.UpdateStatus(riskAgentID, ticker, "Fetching latest price")
			prices, err := deps.Data.GetPrices(ctx, ticker, state.StartDate, state.EndDate)
			if err != nil {
				return err
			}
			if len(prices) == 0 {
				sink.UpdateStatus(riskAgentID, ticker, "Failed: No price data")
				continue
			}
			price := prices[len(prices)-1].Close
			latestPrices[ticker] = price
			if pos, ok := state.Portfolio.Positions[ticker]; ok {
				portfolioValue += float64(pos.Long)*price - float64(pos.Short)*price
			}
		}

		for _, ticker := range state.Tickers {
			price, ok := latestPrices[ticker]
			if !ok {
				continue
			}
			sink.UpdateStatus(riskAgentID, ticker, "Calculating position limits")

			// Cap any single position at 20% of total portfolio value.
			limit := portfolioValue * 0.20
			var held float64
			if pos, ok := state.Portfolio.Positions[ticker]; ok {
				held = float64(pos.Long) * price
			}
			remaining := limit - held
			if remaining < 0 {
				remaining = 0
			}
			assessments[ticker] = models.RiskAssessment{
				CurrentPrice:           price,
				PortfolioValue:         portfolioValue,
				PositionLimit:          limit,
				RemainingPositionLimit: remaining,
			}
			sink.UpdateStatus(riskAgentID, ticker, "Done")
		}

		sink.UpdateStatus(riskAgentID, "", "Assessing portfolio risk")
		signalsJSON, _ := json.Marshal(state.AnalystSignals())
		assessmentsJSON, _ := json.Marshal(assessments)
		summary := llm.Call(ctx, llm.Request[models.RiskSummary]{
			Messages: []*schema.Message{
				schema.SystemMessage("You are a risk manager reviewing analyst signals and position limits for a stock portfolio."),
				schema.UserMessage(fmt.Sprintf(
					"Analyst signals:\n%s\n\nPosition limits:\n%s\n\nRate the overall portfolio risk.",
					signalsJSON, assessmentsJSON)),
			},
			ModelName:     state.Metadata.ModelName,
			ModelProvider: state.Metadata.ModelProvider,
			Schema:        riskSummarySchema,
			AgentName:     riskAgentID,
			MaxRetries:    deps.MaxLLMRetries,
			Factory:       deps.Models,
			Progress:      sink,
		})

		state.SetRiskAssessments(assessments, summary)
		content, err := json.Marshal(map[string]any{
			"assessments": assessments,
			"summary":     summary,
		})
		if err != nil {
			return err
		}
		state.AppendMessage(&schema.Message{
			Role:    schema.Assistant,
			Content: string(content),
			Name:    riskAgentID,
		})
		sink.UpdateStatus(riskAgentID, "", "Done")
		return nil
	}
}
