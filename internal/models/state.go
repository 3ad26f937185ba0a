package models

import (
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// Signal is an analyst's directional opinion on a ticker.
type Signal string

const (
	Bullish Signal = "bullish"
	Bearish Signal = "bearish"
	Neutral Signal = "neutral"
)

// AgentSignal is one analyst's emitted opinion for a single ticker.
type AgentSignal struct {
	Signal     Signal  `json:"signal"`
	Confidence float64 `json:"confidence"`
	Reasoning  any     `json:"reasoning,omitempty"`
}

// RunMetadata is fixed for the lifetime of a run.
type RunMetadata struct {
	ShowReasoning bool   `json:"show_reasoning"`
	ModelName     string `json:"model_name"`
	ModelProvider string `json:"model_provider"`
}

// HedgeState is the single mutable state threaded through every node of a
// run. Tickers, the date range and metadata are immutable once the run
// starts; analyst signals and messages are guarded by the internal mutex
// because analyst nodes may execute concurrently.
type HedgeState struct {
	Tickers   []string
	StartDate string
	EndDate   string
	Portfolio *Portfolio
	Metadata  RunMetadata

	mu              sync.Mutex
	analystSignals  map[string]map[string]AgentSignal
	messages        []*schema.Message
	riskAssessments map[string]RiskAssessment
	riskSummary     *RiskSummary
}

func NewHedgeState(tickers []string, startDate, endDate string, portfolio *Portfolio, meta RunMetadata) *HedgeState {
	return &HedgeState{
		Tickers:        tickers,
		StartDate:      startDate,
		EndDate:        endDate,
		Portfolio:      portfolio,
		Metadata:       meta,
		analystSignals: make(map[string]map[string]AgentSignal),
	}
}

// SetAnalystSignals records an agent's per-ticker signals. Each agent key is
// write-once; a second write under the same key is a bug in the caller.
func (s *HedgeState) SetAnalystSignals(agent string, signals map[string]AgentSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.analystSignals[agent]; exists {
		return fmt.Errorf("analyst signals for %q already written", agent)
	}
	s.analystSignals[agent] = signals
	return nil
}

// AnalystSignals returns a shallow copy of the signal map. The per-agent
// maps are owned by the agents that wrote them and are not copied.
func (s *HedgeState) AnalystSignals() map[string]map[string]AgentSignal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]map[string]AgentSignal, len(s.analystSignals))
	for k, v := range s.analystSignals {
		out[k] = v
	}
	return out
}

// SetRiskAssessments records the risk manager's output for the portfolio
// manager to consume.
func (s *HedgeState) SetRiskAssessments(assessments map[string]RiskAssessment, summary RiskSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.riskAssessments = assessments
	s.riskSummary = &summary
}

// RiskAssessments returns the risk manager's per-ticker limits, or nil if
// the risk node has not run yet.
func (s *HedgeState) RiskAssessments() (map[string]RiskAssessment, *RiskSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.riskAssessments, s.riskSummary
}

// AppendMessage adds a node's emitted message. Order is completion order,
// not declaration order, when nodes run concurrently.
func (s *HedgeState) AppendMessage(msg *schema.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// Messages returns the emitted messages in completion order.
func (s *HedgeState) Messages() []*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*schema.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// LastMessage returns the most recently appended message, or nil.
func (s *HedgeState) LastMessage() *schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return nil
	}
	return s.messages[len(s.messages)-1]
}
