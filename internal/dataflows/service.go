package dataflows

import (
	"context"
	"sort"

	"hedgego/internal/cache"
	"hedgego/internal/models"
)

// Service is the cache-aware facade the analysts read through. Every lookup
// consults the incremental cache first and merges fresh provider data back
// into it, so overlapping date ranges across tickers and runs are fetched
// once. An empty result is "no data", never an error.
type Service struct {
	fetcher Fetcher
	cache   *cache.Cache
}

func NewService(fetcher Fetcher, c *cache.Cache) *Service {
	return &Service{fetcher: fetcher, cache: c}
}

// GetPrices returns daily bars within [startDate, endDate].
func (s *Service) GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error) {
	if cached, ok := s.cache.GetPrices(ticker); ok {
		var filtered []models.Price
		for _, p := range cached {
			if p.Time >= startDate && p.Time <= endDate {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) > 0 {
			return filtered, nil
		}
	}

	prices, err := s.fetcher.FetchPrices(ctx, ticker, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, nil
	}
	if err := s.cache.SetPrices(ticker, prices); err != nil {
		return nil, err
	}
	return prices, nil
}

// GetFinancialMetrics returns up to limit reporting periods ending on or
// before endDate, most recent first.
func (s *Service) GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]models.FinancialMetrics, error) {
	if cached, ok := s.cache.GetFinancialMetrics(ticker); ok {
		var filtered []models.FinancialMetrics
		for _, m := range cached {
			if m.ReportPeriod <= endDate {
				filtered = append(filtered, m)
			}
		}
		if len(filtered) > 0 {
			sort.Slice(filtered, func(i, j int) bool { return filtered[i].ReportPeriod > filtered[j].ReportPeriod })
			if len(filtered) > limit {
				filtered = filtered[:limit]
			}
			return filtered, nil
		}
	}

	metrics, err := s.fetcher.FetchFinancialMetrics(ctx, ticker, endDate, period, limit)
	if err != nil {
		return nil, err
	}
	if len(metrics) == 0 {
		return nil, nil
	}
	if err := s.cache.SetFinancialMetrics(ticker, metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}

// SearchLineItems fetches specific statement lines. Results are not cached:
// the populated columns depend on the requested line items, so cached rows
// from one request would be misleading for another.
func (s *Service) SearchLineItems(ctx context.Context, ticker string, items []string, endDate, period string, limit int) ([]models.LineItem, error) {
	return s.fetcher.FetchLineItems(ctx, ticker, items, endDate, period, limit)
}

// GetInsiderTrades returns insider transactions filed within the range.
func (s *Service) GetInsiderTrades(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.InsiderTrade, error) {
	if cached, ok := s.cache.GetInsiderTrades(ticker); ok {
		var filtered []models.InsiderTrade
		for _, t := range cached {
			if (startDate == "" || t.FilingDate >= startDate) && t.FilingDate <= endDate {
				filtered = append(filtered, t)
			}
		}
		if len(filtered) > 0 {
			return filtered, nil
		}
	}

	trades, err := s.fetcher.FetchInsiderTrades(ctx, ticker, startDate, endDate, limit)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, nil
	}
	if err := s.cache.SetInsiderTrades(ticker, trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// GetCompanyNews returns news published within the range, newest first.
func (s *Service) GetCompanyNews(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.CompanyNews, error) {
	if cached, ok := s.cache.GetCompanyNews(ticker); ok {
		var filtered []models.CompanyNews
		for _, n := range cached {
			if (startDate == "" || n.Date >= startDate) && n.Date <= endDate {
				filtered = append(filtered, n)
			}
		}
		if len(filtered) > 0 {
			sort.Slice(filtered, func(i, j int) bool { return filtered[i].Date > filtered[j].Date })
			if len(filtered) > limit {
				filtered = filtered[:limit]
			}
			return filtered, nil
		}
	}

	news, err := s.fetcher.FetchCompanyNews(ctx, ticker, startDate, endDate, limit)
	if err != nil {
		return nil, err
	}
	if len(news) == 0 {
		return nil, nil
	}
	if err := s.cache.SetCompanyNews(ticker, news); err != nil {
		return nil, err
	}
	return news, nil
}

// GetDividendHistory returns recent declared dividends for a ticker.
func (s *Service) GetDividendHistory(ctx context.Context, ticker string, limit int) ([]models.Dividend, error) {
	if cached, ok := s.cache.GetDividends(ticker); ok && len(cached) > 0 {
		out := cached
		if len(out) > limit {
			out = out[:limit]
		}
		return out, nil
	}

	dividends, err := s.fetcher.FetchDividends(ctx, ticker, limit)
	if err != nil {
		return nil, err
	}
	if len(dividends) == 0 {
		return nil, nil
	}
	if err := s.cache.SetDividends(ticker, dividends); err != nil {
		return nil, err
	}
	return dividends, nil
}
