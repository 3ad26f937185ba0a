package agents

import (
	"context"
	"fmt"

	"hedgego/internal/graph"
	"hedgego/internal/models"
)

const sentimentAgentID = "sentiment_agent"

// SentimentAgent reads insider-transaction direction and news flow. Insider
// selling outweighs buying volume-wise at most companies, so only the net
// share change direction is scored, not the raw counts.
func SentimentAgent(deps Deps) graph.NodeFunc {
	sink := deps.sink()
	return func(ctx context.Context, state *models.HedgeState) error {
		analysis := make(map[string]models.AgentSignal)

		for _, ticker := range state.Tickers {
			sink.UpdateStatus(sentimentAgentID, ticker, "Fetching insider trades")
			trades, err := deps.Data.GetInsiderTrades(ctx, ticker, state.StartDate, state.EndDate, 100)
			if err != nil {
				return err
			}

			sink.UpdateStatus(sentimentAgentID, ticker, "Fetching company news")
			news, err := deps.Data.GetCompanyNews(ctx, ticker, state.StartDate, state.EndDate, 100)
			if err != nil {
				return err
			}

			if len(trades) == 0 && len(news) == 0 {
				sink.UpdateStatus(sentimentAgentID, ticker, "Failed: No sentiment data")
				continue
			}

			sink.UpdateStatus(sentimentAgentID, ticker, "Scoring sentiment")
			score := 0
			reasoning := make(map[string]subSignal)

			var netShares int64
			for _, t := range trades {
				netShares += t.Change
			}
			insider := models.Neutral
			if netShares > 0 {
				insider = models.Bullish
				score++
			} else if netShares < 0 {
				insider = models.Bearish
				score--
			}
			reasoning["insider_signal"] = subSignal{
				Signal:  insider,
				Details: fmt.Sprintf("Net insider share change: %d across %d filings", netShares, len(trades)),
			}

			// News volume is a coarse attention proxy; a quiet tape is
			// treated as neutral rather than negative.
			newsSignal := models.Neutral
			if len(news) >= 20 {
				newsSignal = models.Bullish
				score++
			}
			reasoning["news_signal"] = subSignal{
				Signal:  newsSignal,
				Details: fmt.Sprintf("%d articles in range", len(news)),
			}

			overall := models.Neutral
			if score > 0 {
				overall = models.Bullish
			} else if score < 0 {
				overall = models.Bearish
			}
			abs := score
			if abs < 0 {
				abs = -abs
			}
			analysis[ticker] = models.AgentSignal{
				Signal:     overall,
				Confidence: float64(abs) / 2 * 100,
				Reasoning:  reasoning,
			}
			sink.UpdateStatus(sentimentAgentID, ticker, "Done")
		}

		if err := emit(state, sentimentAgentID, analysis); err != nil {
			return err
		}
		sink.UpdateStatus(sentimentAgentID, "", "Done")
		return nil
	}
}
