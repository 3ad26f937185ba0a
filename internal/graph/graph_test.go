package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"

	"hedgego/internal/models"
)

func testState() *models.HedgeState {
	return models.NewHedgeState(
		[]string{"AAA", "BBB"},
		"2024-01-01", "2024-03-31",
		models.NewPortfolio(100000, 0, []string{"AAA", "BBB"}),
		models.RunMetadata{ModelName: "gpt-4o", ModelProvider: "OpenAI"},
	)
}

func noopNode(ctx context.Context, state *models.HedgeState) error { return nil }

func signalNode(agent string) NodeFunc {
	return func(ctx context.Context, state *models.HedgeState) error {
		err := state.SetAnalystSignals(agent, map[string]models.AgentSignal{
			"AAA": {Signal: models.Bullish, Confidence: 50},
		})
		if err != nil {
			return err
		}
		state.AppendMessage(&schema.Message{Role: schema.Assistant, Content: "{}", Name: agent})
		return nil
	}
}

func testAnalysts() []AnalystNode {
	return []AnalystNode{
		{Key: "fundamentals", NodeID: "fundamentals_agent", Run: signalNode("fundamentals_agent")},
		{Key: "technicals", NodeID: "technicals_agent", Run: signalNode("technicals_agent")},
		{Key: "sentiment", NodeID: "sentiment_agent", Run: signalNode("sentiment_agent")},
	}
}

func nodeCount(g *Graph) int { return len(g.nodes) }

func TestBuildNilSelectionUsesAllAnalysts(t *testing.T) {
	g := Build(testAnalysts(), nil, noopNode, noopNode)
	// start + 3 analysts + risk + portfolio
	if nodeCount(g) != 6 {
		t.Fatalf("expected 6 nodes, got %d", nodeCount(g))
	}
	if len(g.edges[StartNode]) != 3 {
		t.Fatalf("start should fan out to 3 analysts, got %v", g.edges[StartNode])
	}
	if _, err := g.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}
}

func TestBuildPartialSelection(t *testing.T) {
	g := Build(testAnalysts(), []string{"fundamentals"}, noopNode, noopNode)
	if nodeCount(g) != 4 {
		t.Fatalf("expected 4 nodes, got %d", nodeCount(g))
	}
	if len(g.edges["fundamentals_agent"]) != 1 || g.edges["fundamentals_agent"][0] != RiskNode {
		t.Fatalf("analyst must wire to risk node, got %v", g.edges["fundamentals_agent"])
	}
}

func TestBuildInvalidSelectionFallsBackToAll(t *testing.T) {
	g := Build(testAnalysts(), []string{"astrology", "vibes"}, noopNode, noopNode)
	if nodeCount(g) != 6 {
		t.Fatalf("invalid non-empty selection should fall back to all analysts, got %d nodes", nodeCount(g))
	}
}

func TestBuildEmptySelectionRunsWithoutAnalysts(t *testing.T) {
	g := Build(testAnalysts(), []string{}, noopNode, noopNode)
	if nodeCount(g) != 3 {
		t.Fatalf("explicit empty selection should keep only start/risk/portfolio, got %d nodes", nodeCount(g))
	}
	if len(g.edges[StartNode]) != 1 || g.edges[StartNode][0] != RiskNode {
		t.Fatalf("start must wire directly to risk node, got %v", g.edges[StartNode])
	}
	plan, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	state := testState()
	if err := plan.Run(context.Background(), state); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(state.AnalystSignals()) != 0 {
		t.Fatalf("no analyst should have written signals: %v", state.AnalystSignals())
	}
}

func TestCompileRejectsCycle(t *testing.T) {
	g := Build(testAnalysts(), []string{"fundamentals"}, noopNode, noopNode)
	g.addEdge(RiskNode, "fundamentals_agent")
	if _, err := g.Compile(); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant for cyclic graph, got %v", err)
	}
}

func TestCompileRejectsUnreachableNode(t *testing.T) {
	g := Build(testAnalysts(), []string{"fundamentals"}, noopNode, noopNode)
	g.addNode("stray_agent", noopNode)
	g.addEdge("stray_agent", RiskNode)
	if _, err := g.Compile(); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant for unreachable node, got %v", err)
	}
}

func TestRunCollectsAllSignalsBeforeRisk(t *testing.T) {
	var seenAtRisk int
	risk := func(ctx context.Context, state *models.HedgeState) error {
		seenAtRisk = len(state.AnalystSignals())
		return nil
	}
	g := Build(testAnalysts(), nil, risk, noopNode)
	plan, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	state := testState()
	if err := plan.Run(context.Background(), state); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if seenAtRisk != 3 {
		t.Fatalf("risk node must observe all 3 analyst signals, saw %d", seenAtRisk)
	}
	if g.State() != Completed {
		t.Fatalf("expected completed state, got %s", g.State())
	}
}

// Messages are appended in completion order, not declaration order. The
// first-declared analyst blocks until the second finishes, so the second
// must appear first in the message log.
func TestMessagesReflectCompletionOrder(t *testing.T) {
	fastDone := make(chan struct{})
	slow := AnalystNode{Key: "slow", NodeID: "slow_agent", Run: func(ctx context.Context, state *models.HedgeState) error {
		<-fastDone
		state.AppendMessage(&schema.Message{Role: schema.Assistant, Name: "slow_agent"})
		return state.SetAnalystSignals("slow_agent", nil)
	}}
	fast := AnalystNode{Key: "fast", NodeID: "fast_agent", Run: func(ctx context.Context, state *models.HedgeState) error {
		state.AppendMessage(&schema.Message{Role: schema.Assistant, Name: "fast_agent"})
		close(fastDone)
		return state.SetAnalystSignals("fast_agent", nil)
	}}

	g := Build([]AnalystNode{slow, fast}, nil, noopNode, noopNode)
	plan, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	state := testState()
	if err := plan.Run(context.Background(), state); err != nil {
		t.Fatalf("Run: %v", err)
	}
	msgs := state.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Name != "fast_agent" || msgs[1].Name != "slow_agent" {
		t.Fatalf("messages not in completion order: %s, %s", msgs[0].Name, msgs[1].Name)
	}
}

func TestRunNodeFailureFailsRun(t *testing.T) {
	boom := AnalystNode{Key: "boom", NodeID: "boom_agent", Run: func(ctx context.Context, state *models.HedgeState) error {
		return errors.New("upstream data missing")
	}}
	g := Build([]AnalystNode{boom}, nil, noopNode, noopNode)
	plan, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if err := plan.Run(context.Background(), testState()); err == nil {
		t.Fatal("expected run failure")
	}
	if g.State() != Failed {
		t.Fatalf("expected failed state, got %s", g.State())
	}
}

func TestRunRequiresCompiledGraph(t *testing.T) {
	g := Build(testAnalysts(), nil, noopNode, noopNode)
	plan := &Plan{graph: g}
	if err := plan.Run(context.Background(), testState()); err == nil {
		t.Fatal("running an uncompiled graph must fail")
	}
}

func TestIdenticalSelectionsProduceIsomorphicGraphs(t *testing.T) {
	a := Build(testAnalysts(), []string{"technicals", "sentiment"}, noopNode, noopNode)
	b := Build(testAnalysts(), []string{"technicals", "sentiment"}, noopNode, noopNode)
	if len(a.nodes) != len(b.nodes) || len(a.order) != len(b.order) {
		t.Fatalf("node sets differ: %v vs %v", a.order, b.order)
	}
	for i := range a.order {
		if a.order[i] != b.order[i] {
			t.Fatalf("node order differs at %d: %s vs %s", i, a.order[i], b.order[i])
		}
	}
	for from, tos := range a.edges {
		bt := b.edges[from]
		if len(tos) != len(bt) {
			t.Fatalf("edges from %s differ", from)
		}
		for i := range tos {
			if tos[i] != bt[i] {
				t.Fatalf("edge %s->%s vs %s->%s", from, tos[i], from, bt[i])
			}
		}
	}
}
