package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"hedgego/internal/models"
)

// FinnhubClient covers the data Polygon lacks, currently insider
// transactions.
type FinnhubClient struct {
	client *resty.Client
	apiKey string
}

func NewFinnhubClient(apiKey string) *FinnhubClient {
	client := resty.New()
	client.SetBaseURL("https://finnhub.io/api/v1")
	client.SetTimeout(30 * time.Second)

	return &FinnhubClient{
		client: client,
		apiKey: apiKey,
	}
}

// finnhubInsiderTransaction is Finnhub's wire format for one transaction.
type finnhubInsiderTransaction struct {
	Symbol           string  `json:"symbol"`
	PersonName       string  `json:"personName"`
	Share            int64   `json:"share"`
	Change           int64   `json:"change"`
	FilingDate       string  `json:"filingDate"`
	TransactionDate  string  `json:"transactionDate"`
	TransactionPrice float64 `json:"transactionPrice"`
}

// FetchInsiderTrades gets insider transactions for a company. Without an
// API key there is simply no insider data, which analysts treat as a skip.
func (fc *FinnhubClient) FetchInsiderTrades(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.InsiderTrade, error) {
	if fc.apiKey == "" {
		return nil, nil
	}
	if err := ValidateTicker(ticker); err != nil {
		return nil, err
	}
	ticker = NormalizeTicker(ticker)

	var result []models.InsiderTrade
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := fc.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbol": ticker,
				"from":   startDate,
				"to":     endDate,
				"token":  fc.apiKey,
			}).
			Get("/stock/insider-transactions")
		if err != nil {
			return fmt.Errorf("failed to fetch insider transactions for %s: %w", ticker, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("finnhub API error %d: %s", resp.StatusCode(), resp.String())
		}

		var apiResponse struct {
			Data []finnhubInsiderTransaction `json:"data"`
		}
		if err := json.Unmarshal(resp.Body(), &apiResponse); err != nil {
			return fmt.Errorf("failed to parse insider transactions response: %w", err)
		}

		result = make([]models.InsiderTrade, 0, len(apiResponse.Data))
		for _, trans := range apiResponse.Data {
			result = append(result, models.InsiderTrade{
				Ticker:           ticker,
				InsiderName:      trans.PersonName,
				FilingDate:       trans.FilingDate,
				TransactionDate:  trans.TransactionDate,
				Shares:           trans.Share,
				Change:           trans.Change,
				TransactionPrice: decimal.NewFromFloat(trans.TransactionPrice),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
