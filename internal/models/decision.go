package models

// Position tracks long and short exposure for one ticker.
type Position struct {
	Long           int64   `json:"long"`
	Short          int64   `json:"short"`
	LongCostBasis  float64 `json:"long_cost_basis"`
	ShortCostBasis float64 `json:"short_cost_basis"`
}

// Portfolio is the caller's holdings snapshot. Aggregation nodes read it;
// nothing in a run mutates it.
type Portfolio struct {
	Cash              float64              `json:"cash"`
	MarginRequirement float64              `json:"margin_requirement"`
	Positions         map[string]*Position `json:"positions"`
}

// NewPortfolio seeds an all-cash portfolio with a zeroed position per ticker.
func NewPortfolio(initialCash, marginRequirement float64, tickers []string) *Portfolio {
	positions := make(map[string]*Position, len(tickers))
	for _, t := range tickers {
		positions[t] = &Position{}
	}
	return &Portfolio{
		Cash:              initialCash,
		MarginRequirement: marginRequirement,
		Positions:         positions,
	}
}

// RiskAssessment is the risk manager's per-ticker sizing constraint.
type RiskAssessment struct {
	CurrentPrice           float64 `json:"current_price"`
	PortfolioValue         float64 `json:"portfolio_value"`
	PositionLimit          float64 `json:"position_limit"`
	RemainingPositionLimit float64 `json:"remaining_position_limit"`
}

// RiskSummary is the structured output of the risk manager's model call.
type RiskSummary struct {
	PortfolioRisk string `json:"portfolio_risk"`
	Reasoning     string `json:"reasoning"`
}

// PortfolioDecision is the final per-ticker trading action.
type PortfolioDecision struct {
	Action     string  `json:"action"`
	Quantity   float64 `json:"quantity"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// DecisionSet is the portfolio manager's structured output for a whole run.
type DecisionSet struct {
	Decisions map[string]PortfolioDecision `json:"decisions"`
}
