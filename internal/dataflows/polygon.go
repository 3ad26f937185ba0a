package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"hedgego/internal/models"
)

// PolygonClient fetches prices, financials, news and dividends from the
// Polygon REST API. Polygon has no insider-transaction data; that comes
// from Finnhub (see finnhub.go).
type PolygonClient struct {
	client *resty.Client
	apiKey string
}

func NewPolygonClient(apiKey string) *PolygonClient {
	client := resty.New()
	client.SetBaseURL("https://api.polygon.io")
	client.SetTimeout(30 * time.Second)

	return &PolygonClient{
		client: client,
		apiKey: apiKey,
	}
}

func (pc *PolygonClient) get(ctx context.Context, path string, params map[string]string, out any) error {
	return WithRetry(DefaultRetryConfig(), func() error {
		req := pc.client.R().SetContext(ctx).SetQueryParams(params)
		if pc.apiKey != "" {
			req.SetQueryParam("apiKey", pc.apiKey)
		}
		resp, err := req.Get(path)
		if err != nil {
			return fmt.Errorf("polygon request %s: %w", path, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("polygon API error %d: %s", resp.StatusCode(), resp.String())
		}
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("polygon response %s: %w", path, err)
		}
		return nil
	})
}

// toNumeric converts a Polygon field that may be either a scalar or a
// {"value": ...} wrapper.
func toNumeric(v any) *float64 {
	switch val := v.(type) {
	case float64:
		return &val
	case map[string]any:
		return toNumeric(val["value"])
	default:
		return nil
	}
}

func ratio(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	r := *num / *den
	return &r
}

func (pc *PolygonClient) FetchPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error) {
	if err := ValidateTicker(ticker); err != nil {
		return nil, err
	}
	ticker = NormalizeTicker(ticker)

	var data struct {
		Results []struct {
			Open   float64 `json:"o"`
			Close  float64 `json:"c"`
			High   float64 `json:"h"`
			Low    float64 `json:"l"`
			Volume float64 `json:"v"`
			Time   int64   `json:"t"`
		} `json:"results"`
	}
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s", ticker, startDate, endDate)
	if err := pc.get(ctx, path, map[string]string{"adjusted": "true", "sort": "asc"}, &data); err != nil {
		return nil, err
	}

	prices := make([]models.Price, 0, len(data.Results))
	for _, r := range data.Results {
		prices = append(prices, models.Price{
			Open:   r.Open,
			Close:  r.Close,
			High:   r.High,
			Low:    r.Low,
			Volume: int64(r.Volume),
			Time:   time.UnixMilli(r.Time).UTC().Format("2006-01-02"),
		})
	}
	return prices, nil
}

// financialsResult is one period of Polygon's vX financials response.
type financialsResult struct {
	EndDate        string         `json:"end_date"`
	PeriodOfReport string         `json:"period_of_report"`
	FiscalPeriod   string         `json:"fiscal_period"`
	SharesWeighted any            `json:"weighted_average_shares_outstanding"`
	Shares         any            `json:"shares_outstanding"`
	Financials     map[string]map[string]any `json:"financials"`
}

func (r financialsResult) reportPeriod() string {
	if r.EndDate != "" {
		return r.EndDate
	}
	return r.PeriodOfReport
}

func (r financialsResult) statement(name string) map[string]any {
	return r.Financials[name]
}

func statementField(stmt map[string]any, names ...string) *float64 {
	for _, n := range names {
		if v := toNumeric(stmt[n]); v != nil {
			return v
		}
	}
	return nil
}

func timeframeFor(period string) string {
	if period == "ttm" || period == "annual" {
		return "annual"
	}
	return "quarterly"
}

func (pc *PolygonClient) fetchFinancials(ctx context.Context, ticker, endDate, period string, limit int) ([]financialsResult, error) {
	var data struct {
		Results []financialsResult `json:"results"`
	}
	params := map[string]string{
		"ticker":           ticker,
		"timeframe":        timeframeFor(period),
		"order":            "desc",
		"limit":            fmt.Sprintf("%d", limit),
		"reportPeriod.lte": endDate,
	}
	if err := pc.get(ctx, "/vX/reference/financials", params, &data); err != nil {
		return nil, err
	}
	return data.Results, nil
}

func (pc *PolygonClient) FetchFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]models.FinancialMetrics, error) {
	if err := ValidateTicker(ticker); err != nil {
		return nil, err
	}
	ticker = NormalizeTicker(ticker)

	results, err := pc.fetchFinancials(ctx, ticker, endDate, period, limit)
	if err != nil {
		return nil, err
	}

	metrics := make([]models.FinancialMetrics, 0, len(results))
	for _, r := range results {
		inc := r.statement("income_statement")
		bal := r.statement("balance_sheet")
		cfs := r.statement("cash_flow_statement")

		revenue := statementField(inc, "revenue", "revenues")
		operatingIncome := statementField(inc, "operating_income", "operating_income_loss")
		netIncome := statementField(inc, "net_income", "net_income_loss")
		equity := statementField(bal, "shareholder_equity", "total_shareholder_equity", "equity")
		totalLiabilities := statementField(bal, "liabilities", "total_liabilities")
		currentAssets := statementField(bal, "current_assets")
		currentLiabilities := statementField(bal, "current_liabilities")
		freeCashFlow := statementField(cfs, "free_cash_flow")

		shares := toNumeric(r.SharesWeighted)
		if shares == nil {
			shares = toNumeric(r.Shares)
		}

		fiscal := r.FiscalPeriod
		if fiscal == "" {
			fiscal = timeframeFor(period)
		}

		metrics = append(metrics, models.FinancialMetrics{
			Ticker:               ticker,
			ReportPeriod:         r.reportPeriod(),
			Period:               fiscal,
			ReturnOnEquity:       ratio(netIncome, equity),
			NetMargin:            ratio(netIncome, revenue),
			OperatingMargin:      ratio(operatingIncome, revenue),
			CurrentRatio:         ratio(currentAssets, currentLiabilities),
			DebtToEquity:         ratio(totalLiabilities, equity),
			FreeCashFlowPerShare: ratio(freeCashFlow, shares),
			EarningsPerShare:     ratio(netIncome, shares),
		})
	}
	return metrics, nil
}

func (pc *PolygonClient) FetchLineItems(ctx context.Context, ticker string, items []string, endDate, period string, limit int) ([]models.LineItem, error) {
	if err := ValidateTicker(ticker); err != nil {
		return nil, err
	}
	ticker = NormalizeTicker(ticker)

	results, err := pc.fetchFinancials(ctx, ticker, endDate, period, limit)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(items))
	for _, it := range items {
		wanted[it] = true
	}

	lineItems := make([]models.LineItem, 0, len(results))
	for _, r := range results {
		inc := r.statement("income_statement")
		cfs := r.statement("cash_flow_statement")

		fiscal := r.FiscalPeriod
		if fiscal == "" {
			fiscal = timeframeFor(period)
		}
		li := models.LineItem{
			Ticker:       ticker,
			ReportPeriod: r.reportPeriod(),
			Period:       fiscal,
		}
		if wanted["earnings_per_share"] {
			netIncome := statementField(inc, "net_income", "net_income_loss")
			shares := toNumeric(r.SharesWeighted)
			if shares == nil {
				shares = toNumeric(r.Shares)
			}
			li.EarningsPerShare = ratio(netIncome, shares)
		}
		if wanted["free_cash_flow"] {
			li.FreeCashFlow = statementField(cfs, "free_cash_flow")
		}
		if wanted["revenue"] {
			li.Revenue = statementField(inc, "revenue", "revenues")
		}
		lineItems = append(lineItems, li)
	}
	if len(lineItems) > limit {
		lineItems = lineItems[:limit]
	}
	return lineItems, nil
}

// FetchInsiderTrades returns no data: Polygon has no insider-transaction
// endpoint. The composite fetcher routes this kind to Finnhub instead.
func (pc *PolygonClient) FetchInsiderTrades(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.InsiderTrade, error) {
	return nil, nil
}

func (pc *PolygonClient) FetchCompanyNews(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.CompanyNews, error) {
	if err := ValidateTicker(ticker); err != nil {
		return nil, err
	}
	ticker = NormalizeTicker(ticker)

	var data struct {
		Results []struct {
			Title        string `json:"title"`
			PublishedUTC string `json:"published_utc"`
			ArticleURL   string `json:"article_url"`
			Publisher    struct {
				Name string `json:"name"`
			} `json:"publisher"`
		} `json:"results"`
	}
	params := map[string]string{
		"ticker":            ticker,
		"order":             "desc",
		"limit":             fmt.Sprintf("%d", limit),
		"published_utc.lte": endDate,
	}
	if startDate != "" {
		params["published_utc.gte"] = startDate
	}
	if err := pc.get(ctx, "/v2/reference/news", params, &data); err != nil {
		return nil, err
	}

	news := make([]models.CompanyNews, 0, len(data.Results))
	for _, n := range data.Results {
		news = append(news, models.CompanyNews{
			Ticker: ticker,
			Title:  n.Title,
			Source: n.Publisher.Name,
			Date:   strings.SplitN(n.PublishedUTC, "T", 2)[0],
			URL:    n.ArticleURL,
		})
	}
	return news, nil
}

func (pc *PolygonClient) FetchDividends(ctx context.Context, ticker string, limit int) ([]models.Dividend, error) {
	if err := ValidateTicker(ticker); err != nil {
		return nil, err
	}
	ticker = NormalizeTicker(ticker)

	var data struct {
		Results []struct {
			ExDividendDate string  `json:"ex_dividend_date"`
			PayDate        string  `json:"pay_date"`
			CashAmount     float64 `json:"cash_amount"`
			DividendType   string  `json:"dividend_type"`
		} `json:"results"`
	}
	params := map[string]string{
		"ticker": ticker,
		"limit":  fmt.Sprintf("%d", limit),
	}
	if err := pc.get(ctx, "/v3/reference/dividends", params, &data); err != nil {
		return nil, err
	}

	dividends := make([]models.Dividend, 0, len(data.Results))
	for _, d := range data.Results {
		dividends = append(dividends, models.Dividend{
			Ticker:         ticker,
			ExDividendDate: d.ExDividendDate,
			PayDate:        d.PayDate,
			CashAmount:     decimal.NewFromFloat(d.CashAmount),
			DividendType:   d.DividendType,
		})
	}
	return dividends, nil
}
