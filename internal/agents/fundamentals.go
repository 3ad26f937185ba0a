package agents

import (
	"context"
	"fmt"
	"sort"

	"hedgego/internal/graph"
	"hedgego/internal/models"
)

const fundamentalsAgentID = "fundamentals_agent"

type subSignal struct {
	Signal  models.Signal `json:"signal"`
	Details string        `json:"details"`
}

// FundamentalsAgent scores each ticker on profitability, growth, financial
// health, valuation ratios and dividend quality, then votes the five
// component signals into an overall signal.
func FundamentalsAgent(deps Deps) graph.NodeFunc {
	sink := deps.sink()
	return func(ctx context.Context, state *models.HedgeState) error {
		analysis := make(map[string]models.AgentSignal)

		for _, ticker := range state.Tickers {
			sink.UpdateStatus(fundamentalsAgentID, ticker, "Fetching financial metrics")
			metricsList, err := deps.Data.GetFinancialMetrics(ctx, ticker, state.EndDate, "ttm", 10)
			if err != nil {
				return err
			}
			if len(metricsList) == 0 {
				sink.UpdateStatus(fundamentalsAgentID, ticker, "Failed: No financial metrics found")
				continue
			}
			metrics := metricsList[0]

			sink.UpdateStatus(fundamentalsAgentID, ticker, "Fetching dividend history")
			dividends, err := deps.Data.GetDividendHistory(ctx, ticker, 20)
			if err != nil {
				return err
			}

			sink.UpdateStatus(fundamentalsAgentID, ticker, "Fetching current price")
			var currentPrice float64
			if prices, err := deps.Data.GetPrices(ctx, ticker, state.EndDate, state.EndDate); err != nil {
				return err
			} else if len(prices) > 0 {
				currentPrice = prices[0].Close
			}

			sink.UpdateStatus(fundamentalsAgentID, ticker, "Fetching annual EPS")
			var annualEPS *float64
			if items, err := deps.Data.SearchLineItems(ctx, ticker, []string{"earnings_per_share"}, state.EndDate, "annual", 1); err != nil {
				return err
			} else if len(items) > 0 {
				annualEPS = items[0].EarningsPerShare
			}

			var signals []models.Signal
			reasoning := make(map[string]subSignal)

			sink.UpdateStatus(fundamentalsAgentID, ticker, "Analyzing profitability")
			profitability := scoreAbove([]threshold{
				{metrics.ReturnOnEquity, 0.15},
				{metrics.NetMargin, 0.20},
				{metrics.OperatingMargin, 0.15},
			})
			signals = append(signals, voteSignal(profitability, 2))
			reasoning["profitability_signal"] = subSignal{
				Signal: signals[len(signals)-1],
				Details: fmt.Sprintf("ROE: %s, Net Margin: %s, Op Margin: %s",
					pct(metrics.ReturnOnEquity), pct(metrics.NetMargin), pct(metrics.OperatingMargin)),
			}

			sink.UpdateStatus(fundamentalsAgentID, ticker, "Analyzing growth")
			growth := scoreAbove([]threshold{
				{metrics.RevenueGrowth, 0.10},
				{metrics.EarningsGrowth, 0.10},
				{metrics.BookValueGrowth, 0.10},
			})
			signals = append(signals, voteSignal(growth, 2))
			reasoning["growth_signal"] = subSignal{
				Signal: signals[len(signals)-1],
				Details: fmt.Sprintf("Revenue Growth: %s, Earnings Growth: %s",
					pct(metrics.RevenueGrowth), pct(metrics.EarningsGrowth)),
			}

			sink.UpdateStatus(fundamentalsAgentID, ticker, "Analyzing financial health")
			health := 0
			if metrics.CurrentRatio != nil && *metrics.CurrentRatio > 1.5 {
				health++
			}
			if metrics.DebtToEquity != nil && *metrics.DebtToEquity < 0.5 {
				health++
			}
			if metrics.FreeCashFlowPerShare != nil && metrics.EarningsPerShare != nil &&
				*metrics.FreeCashFlowPerShare > *metrics.EarningsPerShare*0.8 {
				health++
			}
			signals = append(signals, voteSignal(health, 2))
			reasoning["financial_health_signal"] = subSignal{
				Signal: signals[len(signals)-1],
				Details: fmt.Sprintf("Current Ratio: %s, D/E: %s",
					num(metrics.CurrentRatio), num(metrics.DebtToEquity)),
			}

			sink.UpdateStatus(fundamentalsAgentID, ticker, "Analyzing valuation ratios")
			priceRatios := scoreAbove([]threshold{
				{metrics.PriceToEarningsRatio, 25},
				{metrics.PriceToBookRatio, 3},
				{metrics.PriceToSalesRatio, 5},
			})
			// High multiples count against the stock, so the vote inverts.
			ratioSignal := models.Neutral
			if priceRatios >= 2 {
				ratioSignal = models.Bearish
			} else if priceRatios == 0 {
				ratioSignal = models.Bullish
			}
			signals = append(signals, ratioSignal)
			reasoning["price_ratios_signal"] = subSignal{
				Signal: ratioSignal,
				Details: fmt.Sprintf("P/E: %s, P/B: %s, P/S: %s",
					num(metrics.PriceToEarningsRatio), num(metrics.PriceToBookRatio), num(metrics.PriceToSalesRatio)),
			}

			sink.UpdateStatus(fundamentalsAgentID, ticker, "Analyzing dividends")
			divSignal, divDetails := analyzeDividends(dividends, state.EndDate, currentPrice, annualEPS)
			signals = append(signals, divSignal)
			reasoning["dividend_signal"] = subSignal{Signal: divSignal, Details: divDetails}

			sink.UpdateStatus(fundamentalsAgentID, ticker, "Calculating final signal")
			bullish, bearish := 0, 0
			for _, s := range signals {
				switch s {
				case models.Bullish:
					bullish++
				case models.Bearish:
					bearish++
				}
			}
			overall := models.Neutral
			if bullish > bearish {
				overall = models.Bullish
			} else if bearish > bullish {
				overall = models.Bearish
			}
			strongest := bullish
			if bearish > strongest {
				strongest = bearish
			}
			confidence := float64(strongest) / float64(len(signals)) * 100

			analysis[ticker] = models.AgentSignal{
				Signal:     overall,
				Confidence: confidence,
				Reasoning:  reasoning,
			}
			sink.UpdateStatus(fundamentalsAgentID, ticker, "Done")
		}

		if err := emit(state, fundamentalsAgentID, analysis); err != nil {
			return err
		}
		sink.UpdateStatus(fundamentalsAgentID, "", "Done")
		return nil
	}
}

type threshold struct {
	value *float64
	bound float64
}

func scoreAbove(checks []threshold) int {
	score := 0
	for _, c := range checks {
		if c.value != nil && *c.value > c.bound {
			score++
		}
	}
	return score
}

// voteSignal maps a component score to a signal: bullish at or above the
// bar, bearish at zero, neutral in between.
func voteSignal(score, bar int) models.Signal {
	if score >= bar {
		return models.Bullish
	}
	if score == 0 {
		return models.Bearish
	}
	return models.Neutral
}

func pct(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", *v*100)
}

func num(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}

// analyzeDividends scores yield, payout ratio and payment consistency from
// recent dividend history.
func analyzeDividends(history []models.Dividend, endDate string, currentPrice float64, annualEPS *float64) (models.Signal, string) {
	score := 0
	details := "Dividend Analysis: "

	currentYear := ""
	if len(endDate) >= 4 {
		currentYear = endDate[:4]
	}

	byYear := make(map[string]float64)
	yearsWithDividends := make(map[string]bool)
	for _, div := range history {
		if div.DividendType != "CD" || !div.CashAmount.IsPositive() || len(div.ExDividendDate) < 4 {
			continue
		}
		year := div.ExDividendDate[:4]
		yearsWithDividends[year] = true
		byYear[year] += div.CashAmount.InexactFloat64()
	}

	// Use the most recent complete year; a partial current year would
	// understate the annual payout.
	var lastFullYearTotal float64
	if len(byYear) > 0 {
		years := make([]string, 0, len(byYear))
		for y := range byYear {
			years = append(years, y)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(years)))
		for _, y := range years {
			if y < currentYear {
				lastFullYearTotal = byYear[y]
				break
			}
		}
		if lastFullYearTotal == 0 {
			lastFullYearTotal = byYear[years[0]]
		}
	}

	if currentPrice > 0 && lastFullYearTotal > 0 {
		dividendYield := lastFullYearTotal / currentPrice
		if dividendYield > 0.03 {
			score++
		}
		details += fmt.Sprintf("Yield: %.2f%%", dividendYield*100)
	} else {
		details += "Yield: N/A (or 0.0%)"
	}

	if annualEPS != nil && *annualEPS > 0 && lastFullYearTotal > 0 {
		payout := lastFullYearTotal / *annualEPS
		if payout >= 0.25 && payout <= 0.75 {
			score++
		}
		details += fmt.Sprintf(", Payout: %.1f%%", payout*100)
	} else {
		details += ", Payout: N/A"
	}

	if len(yearsWithDividends) >= 3 {
		score++
	}
	details += fmt.Sprintf(", Paid in %d distinct years (recent history).", len(yearsWithDividends))

	signal := models.Neutral
	if score >= 2 {
		signal = models.Bullish
	} else if score == 0 && lastFullYearTotal == 0 {
		signal = models.Bearish
	}
	return signal, details
}
