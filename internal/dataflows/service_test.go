package dataflows

import (
	"context"
	"testing"

	"hedgego/internal/cache"
	"hedgego/internal/models"
)

type stubFetcher struct {
	priceCalls int
	prices     []models.Price
	newsCalls  int
	news       []models.CompanyNews
}

func (s *stubFetcher) FetchPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error) {
	s.priceCalls++
	return s.prices, nil
}

func (s *stubFetcher) FetchFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]models.FinancialMetrics, error) {
	return nil, nil
}

func (s *stubFetcher) FetchLineItems(ctx context.Context, ticker string, items []string, endDate, period string, limit int) ([]models.LineItem, error) {
	return nil, nil
}

func (s *stubFetcher) FetchInsiderTrades(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.InsiderTrade, error) {
	return nil, nil
}

func (s *stubFetcher) FetchCompanyNews(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.CompanyNews, error) {
	s.newsCalls++
	return s.news, nil
}

func (s *stubFetcher) FetchDividends(ctx context.Context, ticker string, limit int) ([]models.Dividend, error) {
	return nil, nil
}

func TestGetPricesUsesCacheOnRepeat(t *testing.T) {
	fetcher := &stubFetcher{prices: []models.Price{
		{Time: "2025-01-02", Close: 100},
		{Time: "2025-01-03", Close: 101},
		{Time: "2025-01-06", Close: 102},
	}}
	svc := NewService(fetcher, cache.New())

	first, err := svc.GetPrices(context.Background(), "AAPL", "2025-01-01", "2025-01-31")
	if err != nil {
		t.Fatalf("GetPrices: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("got %d prices, want 3", len(first))
	}

	// Sub-range of the cached window must not hit the provider again.
	second, err := svc.GetPrices(context.Background(), "AAPL", "2025-01-03", "2025-01-06")
	if err != nil {
		t.Fatalf("GetPrices: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("got %d prices in sub-range, want 2", len(second))
	}
	if fetcher.priceCalls != 1 {
		t.Fatalf("provider called %d times, want 1", fetcher.priceCalls)
	}
}

func TestGetPricesEmptyResultIsNoData(t *testing.T) {
	fetcher := &stubFetcher{}
	svc := NewService(fetcher, cache.New())

	prices, err := svc.GetPrices(context.Background(), "NODATA", "2025-01-01", "2025-01-31")
	if err != nil {
		t.Fatalf("empty result should not error: %v", err)
	}
	if prices != nil {
		t.Fatalf("got %v, want nil", prices)
	}
	// Empty results are not cached, so the next call asks again.
	if _, err := svc.GetPrices(context.Background(), "NODATA", "2025-01-01", "2025-01-31"); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if fetcher.priceCalls != 2 {
		t.Fatalf("provider called %d times, want 2", fetcher.priceCalls)
	}
}

func TestGetCompanyNewsSortsAndLimits(t *testing.T) {
	fetcher := &stubFetcher{news: []models.CompanyNews{
		{Date: "2025-01-02", Title: "old"},
		{Date: "2025-01-09", Title: "newest"},
		{Date: "2025-01-05", Title: "middle"},
	}}
	svc := NewService(fetcher, cache.New())

	if _, err := svc.GetCompanyNews(context.Background(), "AAPL", "2025-01-01", "2025-01-31", 10); err != nil {
		t.Fatalf("GetCompanyNews: %v", err)
	}
	news, err := svc.GetCompanyNews(context.Background(), "AAPL", "2025-01-01", "2025-01-31", 2)
	if err != nil {
		t.Fatalf("GetCompanyNews: %v", err)
	}
	if len(news) != 2 {
		t.Fatalf("got %d articles, want 2", len(news))
	}
	if news[0].Title != "newest" || news[1].Title != "middle" {
		t.Fatalf("got order %q, %q; want newest first", news[0].Title, news[1].Title)
	}
	if fetcher.newsCalls != 1 {
		t.Fatalf("provider called %d times, want 1", fetcher.newsCalls)
	}
}

func TestSearchLineItemsBypassesCache(t *testing.T) {
	fetcher := &stubFetcher{}
	svc := NewService(fetcher, cache.New())

	items, err := svc.SearchLineItems(context.Background(), "AAPL", []string{"earnings_per_share"}, "2025-01-31", "annual", 4)
	if err != nil {
		t.Fatalf("SearchLineItems: %v", err)
	}
	if items != nil {
		t.Fatalf("got %v, want nil", items)
	}
}
