package dataflows

import (
	"context"

	"hedgego/internal/config"
	"hedgego/internal/models"
)

// CompositeFetcher routes each data kind to the best available provider:
// Polygon when configured, Yahoo for keyless prices, Finnhub for insider
// transactions, the Google News scraper for keyless news. Kinds with no
// usable provider yield no data rather than errors.
type CompositeFetcher struct {
	polygon *PolygonClient
	yahoo   *YahooClient
	finnhub *FinnhubClient
	scraper *NewsScraperClient
}

// NewFetcher wires the default provider stack from configuration.
func NewFetcher(cfg *config.Config) *CompositeFetcher {
	f := &CompositeFetcher{
		yahoo:   NewYahooClient(),
		scraper: NewNewsScraperClient(),
		finnhub: NewFinnhubClient(cfg.FinnhubAPIKey),
	}
	if cfg.PolygonAPIKey != "" {
		f.polygon = NewPolygonClient(cfg.PolygonAPIKey)
	}
	return f
}

func (f *CompositeFetcher) FetchPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error) {
	if f.polygon != nil {
		return f.polygon.FetchPrices(ctx, ticker, startDate, endDate)
	}
	return f.yahoo.FetchPrices(ctx, ticker, startDate, endDate)
}

func (f *CompositeFetcher) FetchFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]models.FinancialMetrics, error) {
	if f.polygon == nil {
		return nil, nil
	}
	return f.polygon.FetchFinancialMetrics(ctx, ticker, endDate, period, limit)
}

func (f *CompositeFetcher) FetchLineItems(ctx context.Context, ticker string, items []string, endDate, period string, limit int) ([]models.LineItem, error) {
	if f.polygon == nil {
		return nil, nil
	}
	return f.polygon.FetchLineItems(ctx, ticker, items, endDate, period, limit)
}

func (f *CompositeFetcher) FetchInsiderTrades(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.InsiderTrade, error) {
	return f.finnhub.FetchInsiderTrades(ctx, ticker, startDate, endDate, limit)
}

func (f *CompositeFetcher) FetchCompanyNews(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.CompanyNews, error) {
	if f.polygon != nil {
		return f.polygon.FetchCompanyNews(ctx, ticker, startDate, endDate, limit)
	}
	return f.scraper.FetchCompanyNews(ctx, ticker, startDate, endDate, limit)
}

func (f *CompositeFetcher) FetchDividends(ctx context.Context, ticker string, limit int) ([]models.Dividend, error) {
	if f.polygon == nil {
		return nil, nil
	}
	return f.polygon.FetchDividends(ctx, ticker, limit)
}
