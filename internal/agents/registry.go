// Package agents holds the analyst nodes that score tickers and the two
// aggregation nodes (risk manager, portfolio manager) that turn the scores
// into a trading decision.
package agents

import (
	"encoding/json"

	"github.com/cloudwego/eino/schema"

	"hedgego/internal/dataflows"
	"hedgego/internal/graph"
	"hedgego/internal/llm"
	"hedgego/internal/models"
	"hedgego/internal/progress"
)

// Deps is everything an agent needs at runtime.
type Deps struct {
	Data          *dataflows.Service
	Progress      progress.Sink
	Models        llm.Factory
	MaxLLMRetries int
}

func (d Deps) sink() progress.Sink {
	if d.Progress == nil {
		return progress.Nop{}
	}
	return d.Progress
}

// AnalystConfig describes one registered analyst.
type AnalystConfig struct {
	Key         string
	DisplayName string
	New         func(deps Deps) graph.NodeFunc
}

// registry lists the selectable analysts in display order.
var registry = []AnalystConfig{
	{Key: "fundamentals", DisplayName: "Fundamentals Analyst", New: FundamentalsAgent},
	{Key: "technicals", DisplayName: "Technical Analyst", New: TechnicalsAgent},
	{Key: "sentiment", DisplayName: "Sentiment Analyst", New: SentimentAgent},
}

// Registry returns the registered analyst configurations in order.
func Registry() []AnalystConfig {
	out := make([]AnalystConfig, len(registry))
	copy(out, registry)
	return out
}

// NodeID is the graph node id for an analyst key.
func NodeID(key string) string { return key + "_agent" }

// Nodes instantiates every registered analyst against the given deps.
func Nodes(deps Deps) []graph.AnalystNode {
	nodes := make([]graph.AnalystNode, 0, len(registry))
	for _, cfg := range registry {
		nodes = append(nodes, graph.AnalystNode{
			Key:    cfg.Key,
			NodeID: NodeID(cfg.Key),
			Run:    cfg.New(deps),
		})
	}
	return nodes
}

// emit records an agent's signals on the state and appends its message.
func emit(state *models.HedgeState, agentID string, signals map[string]models.AgentSignal) error {
	if err := state.SetAnalystSignals(agentID, signals); err != nil {
		return err
	}
	content, err := json.Marshal(signals)
	if err != nil {
		return err
	}
	state.AppendMessage(&schema.Message{
		Role:    schema.Assistant,
		Content: string(content),
		Name:    agentID,
	})
	return nil
}
