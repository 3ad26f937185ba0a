// Package dataflows fetches market data from external providers and serves
// it through the incremental cache. Providers are interchangeable behind
// the Fetcher interface; an empty result means "no data for this entity",
// never an error.
package dataflows

import (
	"context"

	"hedgego/internal/models"
)

// Fetcher is the upstream data provider contract. Dates are YYYY-MM-DD.
type Fetcher interface {
	FetchPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error)
	FetchFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]models.FinancialMetrics, error)
	FetchLineItems(ctx context.Context, ticker string, items []string, endDate, period string, limit int) ([]models.LineItem, error)
	FetchInsiderTrades(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.InsiderTrade, error)
	FetchCompanyNews(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.CompanyNews, error)
	FetchDividends(ctx context.Context, ticker string, limit int) ([]models.Dividend, error)
}
