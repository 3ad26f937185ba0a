// Package trading wires the data layer, the analyst agents and the workflow
// graph into a single runnable analysis session.
package trading

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hedgego/internal/agents"
	"hedgego/internal/cache"
	"hedgego/internal/config"
	"hedgego/internal/dataflows"
	"hedgego/internal/graph"
	"hedgego/internal/llm"
	"hedgego/internal/models"
	"hedgego/internal/progress"
)

// Params describes one analysis run.
type Params struct {
	Tickers       []string
	StartDate     string // YYYY-MM-DD, defaults to EndDate minus three months
	EndDate       string // YYYY-MM-DD, defaults to today
	Portfolio     *models.Portfolio
	ModelName     string
	ModelProvider string
	// Selection follows the registry's analyst keys. nil selects every
	// analyst; an explicitly empty slice selects none.
	Selection     []string
	ShowReasoning bool
}

// Result is the final output of a run.
type Result struct {
	Decisions      map[string]models.PortfolioDecision
	AnalystSignals map[string]map[string]models.AgentSignal
}

// Session owns the long-lived pieces shared across runs: the cache-backed
// data service, the progress sink and the model factory.
type Session struct {
	cfg      *config.Config
	data     *dataflows.Service
	progress progress.Sink
	models   llm.Factory
}

// NewSession builds a session from configuration, wiring the provider
// fetchers behind the shared cache.
func NewSession(cfg *config.Config, sink progress.Sink) *Session {
	if sink == nil {
		sink = progress.Nop{}
	}
	return &Session{
		cfg:      cfg,
		data:     dataflows.NewService(dataflows.NewFetcher(cfg), cache.Shared()),
		progress: sink,
		models:   llm.NewFactory(cfg),
	}
}

// Run executes one full analysis: build the graph for the analyst
// selection, compile it, run it, and read the portfolio manager's final
// message back into decisions.
func (s *Session) Run(ctx context.Context, params Params) (*Result, error) {
	if len(params.Tickers) == 0 {
		return nil, fmt.Errorf("at least one ticker is required")
	}
	endDate, startDate, err := resolveDates(params.StartDate, params.EndDate)
	if err != nil {
		return nil, err
	}
	portfolio := params.Portfolio
	if portfolio == nil {
		portfolio = models.NewPortfolio(100000, 0, params.Tickers)
	}
	modelName := params.ModelName
	if modelName == "" {
		modelName = s.cfg.DefaultModelName
	}
	modelProvider := params.ModelProvider
	if modelProvider == "" {
		modelProvider = s.cfg.DefaultModelProvider
	}

	state := models.NewHedgeState(params.Tickers, startDate, endDate, portfolio, models.RunMetadata{
		ShowReasoning: params.ShowReasoning,
		ModelName:     modelName,
		ModelProvider: modelProvider,
	})

	deps := agents.Deps{
		Data:          s.data,
		Progress:      s.progress,
		Models:        s.models,
		MaxLLMRetries: s.cfg.MaxLLMRetries,
	}
	g := graph.Build(
		agents.Nodes(deps),
		params.Selection,
		agents.RiskManagerAgent(deps),
		agents.PortfolioManagerAgent(deps),
	)
	plan, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile workflow: %w", err)
	}
	if err := plan.Run(ctx, state); err != nil {
		return nil, fmt.Errorf("run workflow: %w", err)
	}

	decisions, err := parseDecisions(state)
	if err != nil {
		return nil, err
	}
	return &Result{
		Decisions:      decisions,
		AnalystSignals: state.AnalystSignals(),
	}, nil
}

// parseDecisions reads the portfolio manager's message, which is always the
// last one appended because the exit node runs alone in the final wave.
func parseDecisions(state *models.HedgeState) (map[string]models.PortfolioDecision, error) {
	last := state.LastMessage()
	if last == nil {
		return nil, fmt.Errorf("workflow produced no messages")
	}
	var set models.DecisionSet
	if err := json.Unmarshal([]byte(last.Content), &set); err != nil {
		return nil, fmt.Errorf("parse decisions from %s: %w", last.Name, err)
	}
	return set.Decisions, nil
}

func resolveDates(startDate, endDate string) (end, start string, err error) {
	const layout = "2006-01-02"
	endT := time.Now()
	if endDate != "" {
		endT, err = time.Parse(layout, endDate)
		if err != nil {
			return "", "", fmt.Errorf("invalid end date %q: %w", endDate, err)
		}
	}
	if startDate != "" {
		if _, err = time.Parse(layout, startDate); err != nil {
			return "", "", fmt.Errorf("invalid start date %q: %w", startDate, err)
		}
		return endT.Format(layout), startDate, nil
	}
	return endT.Format(layout), endT.AddDate(0, -3, 0).Format(layout), nil
}
