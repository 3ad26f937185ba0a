package dataflows

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"

	"hedgego/internal/models"
)

// YahooClient serves daily price bars from Yahoo Finance. It needs no API
// key and backs the price feed when Polygon is not configured.
type YahooClient struct{}

func NewYahooClient() *YahooClient { return &YahooClient{} }

func (yc *YahooClient) FetchPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error) {
	if err := ValidateTicker(ticker); err != nil {
		return nil, err
	}
	ticker = NormalizeTicker(ticker)

	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}

	var prices []models.Price
	fetchErr := WithRetry(DefaultRetryConfig(), func() error {
		params := &chart.Params{
			Symbol:   ticker,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		}
		iter := chart.Get(params)

		prices = prices[:0]
		for iter.Next() {
			bar := iter.Bar()
			prices = append(prices, models.Price{
				Open:   bar.Open.InexactFloat64(),
				Close:  bar.Close.InexactFloat64(),
				High:   bar.High.InexactFloat64(),
				Low:    bar.Low.InexactFloat64(),
				Volume: int64(bar.Volume),
				Time:   time.Unix(int64(bar.Timestamp), 0).UTC().Format("2006-01-02"),
			})
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("yahoo chart for %s: %w", ticker, err)
		}
		return nil
	})
	if fetchErr != nil {
		return nil, fetchErr
	}
	return prices, nil
}
