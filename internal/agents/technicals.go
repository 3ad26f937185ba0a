package agents

import (
	"context"
	"fmt"

	"hedgego/internal/graph"
	"hedgego/internal/models"
)

const technicalsAgentID = "technicals_agent"

// TechnicalsAgent scores trend and momentum from the cached daily bars:
// short vs long moving average, period return and volume direction.
func TechnicalsAgent(deps Deps) graph.NodeFunc {
	sink := deps.sink()
	return func(ctx context.Context, state *models.HedgeState) error {
		analysis := make(map[string]models.AgentSignal)

		for _, ticker := range state.Tickers {
			sink.UpdateStatus(technicalsAgentID, ticker, "Fetching price history")
			prices, err := deps.Data.GetPrices(ctx, ticker, state.StartDate, state.EndDate)
			if err != nil {
				return err
			}
			if len(prices) < 2 {
				sink.UpdateStatus(technicalsAgentID, ticker, "Failed: Insufficient price data")
				continue
			}

			sink.UpdateStatus(technicalsAgentID, ticker, "Computing indicators")
			score := 0
			reasoning := make(map[string]subSignal)

			shortMA := movingAverage(prices, 10)
			longMA := movingAverage(prices, 30)
			trend := models.Neutral
			if shortMA > longMA {
				trend = models.Bullish
				score++
			} else if shortMA < longMA {
				trend = models.Bearish
				score--
			}
			reasoning["trend_signal"] = subSignal{
				Signal:  trend,
				Details: fmt.Sprintf("MA10: %.2f, MA30: %.2f", shortMA, longMA),
			}

			first, last := prices[0].Close, prices[len(prices)-1].Close
			momentum := models.Neutral
			var periodReturn float64
			if first > 0 {
				periodReturn = (last - first) / first
			}
			if periodReturn > 0.05 {
				momentum = models.Bullish
				score++
			} else if periodReturn < -0.05 {
				momentum = models.Bearish
				score--
			}
			reasoning["momentum_signal"] = subSignal{
				Signal:  momentum,
				Details: fmt.Sprintf("Period return: %.2f%%", periodReturn*100),
			}

			volume := models.Neutral
			firstHalf, secondHalf := averageVolume(prices[:len(prices)/2]), averageVolume(prices[len(prices)/2:])
			if secondHalf > firstHalf*1.2 && periodReturn > 0 {
				volume = models.Bullish
				score++
			} else if secondHalf > firstHalf*1.2 && periodReturn < 0 {
				volume = models.Bearish
				score--
			}
			reasoning["volume_signal"] = subSignal{
				Signal:  volume,
				Details: fmt.Sprintf("Avg volume first half: %.0f, second half: %.0f", firstHalf, secondHalf),
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
				Confidence: float64(abs) / 3 * 100,
				Reasoning:  reasoning,
			}
			sink.UpdateStatus(technicalsAgentID, ticker, "Done")
		}

		if err := emit(state, technicalsAgentID, analysis); err != nil {
			return err
		}
		sink.UpdateStatus(technicalsAgentID, "", "Done")
		return nil
	}
}

// movingAverage returns the mean close of the last n bars, or of all bars
// when fewer are available.
func movingAverage(prices []models.Price, n int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < n {
		n = len(prices)
	}
	sum := 0.0
	for _, p := range prices[len(prices)-n:] {
		sum += p.Close
	}
	return sum / float64(n)
}

func averageVolume(prices []models.Price) float64 {
	if len(prices) == 0 {
		return 0
	}
	var sum int64
	for _, p := range prices {
		sum += p.Volume
	}
	return float64(sum) / float64(len(prices))
}
