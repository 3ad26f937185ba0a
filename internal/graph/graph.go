// Package graph assembles and runs the per-run agent workflow: a start node
// fanning out to the selected analyst nodes, fanning back in to the risk
// manager, then the portfolio manager. Topology is determined entirely by
// the analyst selection; compilation validates the shape before anything
// executes.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"hedgego/internal/models"
)

// Fixed node identifiers. Analyst node ids come from the registry.
const (
	StartNode     = "start_node"
	RiskNode      = "risk_management_agent"
	PortfolioNode = "portfolio_manager"
)

// ErrInvariant marks a graph that fails structural validation. It is
// surfaced to the caller before any node runs.
var ErrInvariant = errors.New("graph invariant violation")

// NodeFunc is one executable workflow step. It may write its own key into
// the state's analyst signals and append one message; it must not touch
// other agents' entries.
type NodeFunc func(ctx context.Context, state *models.HedgeState) error

// AnalystNode pairs a registry key with its executable node.
type AnalystNode struct {
	Key    string
	NodeID string
	Run    NodeFunc
}

// State tracks a graph through its lifecycle.
type State int

const (
	Built State = iota
	Compiled
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Built:
		return "built"
	case Compiled:
		return "compiled"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Graph is the node/edge structure for one run.
type Graph struct {
	nodes map[string]NodeFunc
	order []string            // declaration order, for deterministic validation output
	edges map[string][]string // from -> to
	state State
}

// State reports the graph's lifecycle state.
func (g *Graph) State() State { return g.state }

func (g *Graph) addNode(id string, fn NodeFunc) {
	g.nodes[id] = fn
	g.order = append(g.order, id)
}

func (g *Graph) addEdge(from, to string) {
	g.edges[from] = append(g.edges[from], to)
}

func startNode(ctx context.Context, state *models.HedgeState) error {
	// Entry point: the run starts from the caller-provided state as-is.
	return nil
}

// Build assembles the workflow graph for a selection of analyst keys.
//
// Selection policy, preserved from the system this replaces: a nil
// selection means "all registered analysts"; a non-empty selection with no
// valid keys falls back to all analysts; an explicitly empty selection runs
// with zero analysts, wiring the start node directly to the risk manager.
func Build(analysts []AnalystNode, selection []string, risk, portfolio NodeFunc) *Graph {
	registered := make(map[string]AnalystNode, len(analysts))
	for _, a := range analysts {
		registered[a.Key] = a
	}

	var use []AnalystNode
	switch {
	case selection == nil:
		use = analysts
	default:
		for _, key := range selection {
			if a, ok := registered[key]; ok {
				use = append(use, a)
			}
		}
		if len(use) == 0 && len(selection) > 0 {
			log.Printf("graph: no valid analysts in selection %v, using all analysts", selection)
			use = analysts
		} else if len(use) == 0 {
			log.Printf("graph: empty selection, proceeding with risk and portfolio managers only")
		}
	}

	g := &Graph{
		nodes: make(map[string]NodeFunc),
		edges: make(map[string][]string),
		state: Built,
	}
	g.addNode(StartNode, startNode)
	for _, a := range use {
		g.addNode(a.NodeID, a.Run)
		g.addEdge(StartNode, a.NodeID)
	}
	g.addNode(RiskNode, risk)
	g.addNode(PortfolioNode, portfolio)

	for _, a := range use {
		g.addEdge(a.NodeID, RiskNode)
	}
	if len(use) == 0 {
		g.addEdge(StartNode, RiskNode)
	}
	g.addEdge(RiskNode, PortfolioNode)

	return g
}

// Plan is a validated, executable graph.
type Plan struct {
	graph *Graph
}

// Compile validates the graph invariants: a single entry, a single exit,
// no cycles, and every node both reachable from the entry and able to
// reach the exit. It fails before any node executes.
func (g *Graph) Compile() (*Plan, error) {
	indegree := make(map[string]int, len(g.nodes))
	outdegree := make(map[string]int, len(g.nodes))
	for _, id := range g.order {
		indegree[id] = 0
	}
	for from, tos := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("%w: edge from unknown node %q", ErrInvariant, from)
		}
		for _, to := range tos {
			if _, ok := g.nodes[to]; !ok {
				return nil, fmt.Errorf("%w: edge to unknown node %q", ErrInvariant, to)
			}
			indegree[to]++
			outdegree[from]++
		}
	}

	for _, id := range g.order {
		if indegree[id] == 0 && id != StartNode {
			return nil, fmt.Errorf("%w: node %q has no inbound edge", ErrInvariant, id)
		}
		if outdegree[id] == 0 && id != PortfolioNode {
			return nil, fmt.Errorf("%w: node %q cannot reach the exit", ErrInvariant, id)
		}
	}
	if indegree[StartNode] != 0 {
		return nil, fmt.Errorf("%w: entry node has inbound edges", ErrInvariant)
	}
	if outdegree[PortfolioNode] != 0 {
		return nil, fmt.Errorf("%w: exit node has outbound edges", ErrInvariant)
	}

	// Kahn's algorithm; anything left unvisited is on a cycle.
	remaining := make(map[string]int, len(indegree))
	for id, d := range indegree {
		remaining[id] = d
	}
	queue := []string{StartNode}
	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, to := range g.edges[id] {
			remaining[to]--
			if remaining[to] == 0 {
				queue = append(queue, to)
			}
		}
	}
	if visited != len(g.nodes) {
		return nil, fmt.Errorf("%w: cycle detected or unreachable nodes (%d of %d visited)", ErrInvariant, visited, len(g.nodes))
	}

	g.state = Compiled
	return &Plan{graph: g}, nil
}

// Run executes the plan against the shared state. Whole waves of ready
// nodes run concurrently; a node becomes ready only when every predecessor
// has completed, so the risk manager never starts before the last analyst
// has written its signals. Any node error fails the run.
func (p *Plan) Run(ctx context.Context, state *models.HedgeState) error {
	g := p.graph
	if g.state != Compiled {
		return fmt.Errorf("cannot run graph in state %s", g.state)
	}
	g.state = Running

	remaining := make(map[string]int, len(g.nodes))
	for _, id := range g.order {
		remaining[id] = 0
	}
	for _, tos := range g.edges {
		for _, to := range tos {
			remaining[to]++
		}
	}

	wave := []string{StartNode}
	for len(wave) > 0 {
		eg, runCtx := errgroup.WithContext(ctx)
		for _, id := range wave {
			fn := g.nodes[id]
			id := id
			eg.Go(func() error {
				if err := fn(runCtx, state); err != nil {
					return fmt.Errorf("node %s: %w", id, err)
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			g.state = Failed
			return err
		}

		var next []string
		for _, id := range wave {
			for _, to := range g.edges[id] {
				remaining[to]--
				if remaining[to] == 0 {
					next = append(next, to)
				}
			}
		}
		wave = next
	}

	g.state = Completed
	return nil
}
