// Package cache is the process-wide in-memory store for market data fetched
// from external providers. Writes merge instead of overwrite: records whose
// uniqueness key is already present are dropped, everything else is appended
// after the existing sequence, so repeated fetches of overlapping date
// ranges never duplicate data.
package cache

import (
	"fmt"
	"sync"

	"hedgego/internal/models"
)

// Cache holds one deduplicated record sequence per (ticker, data kind).
// It lives for the whole process; runs come and go, the cache stays.
type Cache struct {
	mu sync.RWMutex

	prices           map[string][]models.Price
	financialMetrics map[string][]models.FinancialMetrics
	lineItems        map[string][]models.LineItem
	insiderTrades    map[string][]models.InsiderTrade
	companyNews      map[string][]models.CompanyNews
	dividends        map[string][]models.Dividend
}

// New returns an empty cache. Tests construct their own instance; the rest
// of the program shares the one from Shared.
func New() *Cache {
	return &Cache{
		prices:           make(map[string][]models.Price),
		financialMetrics: make(map[string][]models.FinancialMetrics),
		lineItems:        make(map[string][]models.LineItem),
		insiderTrades:    make(map[string][]models.InsiderTrade),
		companyNews:      make(map[string][]models.CompanyNews),
		dividends:        make(map[string][]models.Dividend),
	}
}

var (
	shared *Cache
	once   sync.Once
)

// Shared returns the process-wide cache instance.
func Shared() *Cache {
	once.Do(func() {
		shared = New()
	})
	return shared
}

// mergeKeyed appends records from incoming whose uniqueness key is not
// already present in existing. Relative order of both inputs is preserved.
// A record with an empty key means the caller handed us malformed data;
// nothing is merged in that case.
func mergeKeyed[T models.Keyed](existing, incoming []T) ([]T, error) {
	for i, rec := range incoming {
		if rec.CacheKey() == "" {
			return nil, fmt.Errorf("record %d is missing its uniqueness field", i)
		}
	}
	if len(existing) == 0 {
		return incoming, nil
	}
	seen := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		seen[rec.CacheKey()] = struct{}{}
	}
	merged := existing
	for _, rec := range incoming {
		if _, ok := seen[rec.CacheKey()]; ok {
			continue
		}
		seen[rec.CacheKey()] = struct{}{}
		merged = append(merged, rec)
	}
	return merged, nil
}

func (c *Cache) GetPrices(ticker string) ([]models.Price, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.prices[ticker]
	return data, ok
}

func (c *Cache) SetPrices(ticker string, data []models.Price) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	merged, err := mergeKeyed(c.prices[ticker], data)
	if err != nil {
		return fmt.Errorf("prices for %s: %w", ticker, err)
	}
	c.prices[ticker] = merged
	return nil
}

func (c *Cache) GetFinancialMetrics(ticker string) ([]models.FinancialMetrics, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.financialMetrics[ticker]
	return data, ok
}

func (c *Cache) SetFinancialMetrics(ticker string, data []models.FinancialMetrics) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	merged, err := mergeKeyed(c.financialMetrics[ticker], data)
	if err != nil {
		return fmt.Errorf("financial metrics for %s: %w", ticker, err)
	}
	c.financialMetrics[ticker] = merged
	return nil
}

func (c *Cache) GetLineItems(ticker string) ([]models.LineItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.lineItems[ticker]
	return data, ok
}

func (c *Cache) SetLineItems(ticker string, data []models.LineItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	merged, err := mergeKeyed(c.lineItems[ticker], data)
	if err != nil {
		return fmt.Errorf("line items for %s: %w", ticker, err)
	}
	c.lineItems[ticker] = merged
	return nil
}

func (c *Cache) GetInsiderTrades(ticker string) ([]models.InsiderTrade, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.insiderTrades[ticker]
	return data, ok
}

func (c *Cache) SetInsiderTrades(ticker string, data []models.InsiderTrade) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	merged, err := mergeKeyed(c.insiderTrades[ticker], data)
	if err != nil {
		return fmt.Errorf("insider trades for %s: %w", ticker, err)
	}
	c.insiderTrades[ticker] = merged
	return nil
}

func (c *Cache) GetCompanyNews(ticker string) ([]models.CompanyNews, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.companyNews[ticker]
	return data, ok
}

func (c *Cache) SetCompanyNews(ticker string, data []models.CompanyNews) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	merged, err := mergeKeyed(c.companyNews[ticker], data)
	if err != nil {
		return fmt.Errorf("company news for %s: %w", ticker, err)
	}
	c.companyNews[ticker] = merged
	return nil
}

func (c *Cache) GetDividends(ticker string) ([]models.Dividend, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.dividends[ticker]
	return data, ok
}

func (c *Cache) SetDividends(ticker string, data []models.Dividend) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	merged, err := mergeKeyed(c.dividends[ticker], data)
	if err != nil {
		return fmt.Errorf("dividends for %s: %w", ticker, err)
	}
	c.dividends[ticker] = merged
	return nil
}

// Clear drops everything. Used between backtest sessions and in tests.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices = make(map[string][]models.Price)
	c.financialMetrics = make(map[string][]models.FinancialMetrics)
	c.lineItems = make(map[string][]models.LineItem)
	c.insiderTrades = make(map[string][]models.InsiderTrade)
	c.companyNews = make(map[string][]models.CompanyNews)
	c.dividends = make(map[string][]models.Dividend)
}
