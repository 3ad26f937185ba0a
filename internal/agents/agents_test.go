package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"hedgego/internal/cache"
	"hedgego/internal/dataflows"
	"hedgego/internal/models"
)

// fakeFetcher serves per-ticker canned data.
type fakeFetcher struct {
	prices  map[string][]models.Price
	trades  map[string][]models.InsiderTrade
	news    map[string][]models.CompanyNews
	metrics map[string][]models.FinancialMetrics
}

func (f *fakeFetcher) FetchPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error) {
	return f.prices[ticker], nil
}

func (f *fakeFetcher) FetchFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]models.FinancialMetrics, error) {
	return f.metrics[ticker], nil
}

func (f *fakeFetcher) FetchLineItems(ctx context.Context, ticker string, items []string, endDate, period string, limit int) ([]models.LineItem, error) {
	return nil, nil
}

func (f *fakeFetcher) FetchInsiderTrades(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.InsiderTrade, error) {
	return f.trades[ticker], nil
}

func (f *fakeFetcher) FetchCompanyNews(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.CompanyNews, error) {
	return f.news[ticker], nil
}

func (f *fakeFetcher) FetchDividends(ctx context.Context, ticker string, limit int) ([]models.Dividend, error) {
	return nil, nil
}

func testDeps(f *fakeFetcher) Deps {
	return Deps{
		Data:          dataflows.NewService(f, cache.New()),
		MaxLLMRetries: 1,
	}
}

func testState(tickers ...string) *models.HedgeState {
	return models.NewHedgeState(tickers, "2025-03-01", "2025-05-30",
		models.NewPortfolio(100000, 0, tickers), models.RunMetadata{})
}

// bars generates n daily closes walking from start by step, with flat volume.
func bars(n int, start, step float64) []models.Price {
	out := make([]models.Price, n)
	for i := range out {
		c := start + step*float64(i)
		out[i] = models.Price{
			Time:   fmt.Sprintf("2025-03-%02d", i+1),
			Open:   c,
			Close:  c,
			High:   c,
			Low:    c,
			Volume: 1000,
		}
	}
	return out
}

func TestTechnicalsUptrendIsBullish(t *testing.T) {
	f := &fakeFetcher{prices: map[string][]models.Price{"UP": bars(30, 100, 1)}}
	state := testState("UP")

	if err := TechnicalsAgent(testDeps(f))(context.Background(), state); err != nil {
		t.Fatalf("run: %v", err)
	}
	sig := state.AnalystSignals()[technicalsAgentID]["UP"]
	if sig.Signal != models.Bullish {
		t.Errorf("signal = %s, want bullish", sig.Signal)
	}
	if sig.Confidence <= 0 || sig.Confidence > 100 {
		t.Errorf("confidence %v out of range", sig.Confidence)
	}
}

func TestTechnicalsDowntrendIsBearish(t *testing.T) {
	f := &fakeFetcher{prices: map[string][]models.Price{"DN": bars(30, 130, -1)}}
	state := testState("DN")

	if err := TechnicalsAgent(testDeps(f))(context.Background(), state); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sig := state.AnalystSignals()[technicalsAgentID]["DN"]; sig.Signal != models.Bearish {
		t.Errorf("signal = %s, want bearish", sig.Signal)
	}
}

func TestTechnicalsSkipsThinHistory(t *testing.T) {
	f := &fakeFetcher{prices: map[string][]models.Price{"THIN": bars(1, 100, 0)}}
	state := testState("THIN")

	if err := TechnicalsAgent(testDeps(f))(context.Background(), state); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, ok := state.AnalystSignals()[technicalsAgentID]["THIN"]; ok {
		t.Error("one bar is not enough to score, ticker must be skipped")
	}
}

func TestSentimentFollowsInsiderDirection(t *testing.T) {
	f := &fakeFetcher{trades: map[string][]models.InsiderTrade{
		"BUYIN":  {{FilingDate: "2025-04-01", Change: 5000}},
		"SELOUT": {{FilingDate: "2025-04-01", Change: -8000}, {FilingDate: "2025-04-15", Change: 1000}},
	}}
	state := testState("BUYIN", "SELOUT", "EMPTY")

	if err := SentimentAgent(testDeps(f))(context.Background(), state); err != nil {
		t.Fatalf("run: %v", err)
	}
	signals := state.AnalystSignals()[sentimentAgentID]
	if signals["BUYIN"].Signal != models.Bullish {
		t.Errorf("BUYIN = %s, want bullish", signals["BUYIN"].Signal)
	}
	if signals["SELOUT"].Signal != models.Bearish {
		t.Errorf("SELOUT = %s, want bearish", signals["SELOUT"].Signal)
	}
	if _, ok := signals["EMPTY"]; ok {
		t.Error("ticker without data must be skipped")
	}
}

// stubModel returns canned content on every Generate call.
type stubModel struct{ content string }

func (m stubModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage(m.content, nil), nil
}

func (m stubModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	sr, sw := schema.Pipe[*schema.Message](1)
	sw.Close()
	return sr, nil
}

func stubFactory(content string) func(ctx context.Context, name, provider string) (model.BaseChatModel, error) {
	return func(ctx context.Context, name, provider string) (model.BaseChatModel, error) {
		return stubModel{content: content}, nil
	}
}

func TestRiskManagerComputesPositionLimits(t *testing.T) {
	f := &fakeFetcher{prices: map[string][]models.Price{
		"AAA": {{Time: "2025-05-30", Close: 50, Volume: 100}},
	}}
	deps := testDeps(f)
	deps.Models = stubFactory(`{"portfolio_risk": "low", "reasoning": "all cash"}`)

	state := testState("AAA")
	state.Portfolio.Positions["AAA"] = &models.Position{Long: 100} // 100 @ 50 = 5000

	if err := RiskManagerAgent(deps)(context.Background(), state); err != nil {
		t.Fatalf("run: %v", err)
	}

	assessments, summary := state.RiskAssessments()
	a, ok := assessments["AAA"]
	if !ok {
		t.Fatalf("no assessment for AAA: %v", assessments)
	}
	wantValue := 100000.0 + 100*50
	if a.PortfolioValue != wantValue {
		t.Errorf("portfolio value = %v, want %v", a.PortfolioValue, wantValue)
	}
	if want := wantValue * 0.20; a.PositionLimit != want {
		t.Errorf("position limit = %v, want %v", a.PositionLimit, want)
	}
	if want := wantValue*0.20 - 5000; a.RemainingPositionLimit != want {
		t.Errorf("remaining limit = %v, want %v", a.RemainingPositionLimit, want)
	}
	if summary == nil || summary.PortfolioRisk != "low" {
		t.Errorf("summary = %+v, want low", summary)
	}
}

func TestRiskManagerClampsExhaustedLimit(t *testing.T) {
	f := &fakeFetcher{prices: map[string][]models.Price{
		"BIG": {{Time: "2025-05-30", Close: 100, Volume: 100}},
	}}
	deps := testDeps(f)
	deps.Models = stubFactory(`{"portfolio_risk": "elevated", "reasoning": "oversized position"}`)

	state := testState("BIG")
	state.Portfolio.Cash = 1000
	state.Portfolio.Positions["BIG"] = &models.Position{Long: 50} // 5000 held vs tiny book

	if err := RiskManagerAgent(deps)(context.Background(), state); err != nil {
		t.Fatalf("run: %v", err)
	}
	assessments, _ := state.RiskAssessments()
	if got := assessments["BIG"].RemainingPositionLimit; got != 0 {
		t.Errorf("remaining limit = %v, want clamped to 0", got)
	}
}

func TestPortfolioManagerFillsMissingTickers(t *testing.T) {
	deps := testDeps(&fakeFetcher{})
	deps.Models = stubFactory(`{"decisions": {"AAA": {"action": "buy", "quantity": 5, "confidence": 80, "reasoning": "limit allows it"}}}`)

	state := testState("AAA", "BBB")
	if err := PortfolioManagerAgent(deps)(context.Background(), state); err != nil {
		t.Fatalf("run: %v", err)
	}

	last := state.LastMessage()
	if last == nil || last.Name != portfolioAgentID {
		t.Fatalf("last message = %+v, want portfolio manager output", last)
	}
	var set models.DecisionSet
	if err := json.Unmarshal([]byte(last.Content), &set); err != nil {
		t.Fatalf("parse decisions: %v", err)
	}
	if set.Decisions["AAA"].Action != "buy" {
		t.Errorf("AAA action = %q, want buy", set.Decisions["AAA"].Action)
	}
	if set.Decisions["BBB"].Action != "hold" {
		t.Errorf("BBB action = %q, want default hold", set.Decisions["BBB"].Action)
	}
}
