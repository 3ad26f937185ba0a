package models

import "github.com/shopspring/decimal"

// Keyed is implemented by every cached record type. CacheKey returns the
// value of the record's uniqueness field; an empty key is a contract
// violation and the cache refuses the record.
type Keyed interface {
	CacheKey() string
}

// Price is one daily OHLCV bar. Time is the trading day in YYYY-MM-DD form
// and is the dedup key for the price cache.
type Price struct {
	Open   float64 `json:"open"`
	Close  float64 `json:"close"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Volume int64   `json:"volume"`
	Time   string  `json:"time"`
}

func (p Price) CacheKey() string { return p.Time }

// FinancialMetrics holds one reporting period of derived fundamentals.
// Ratio fields are pointers: the provider frequently omits line items and
// the analysts treat nil as "unknown", not zero.
type FinancialMetrics struct {
	Ticker       string `json:"ticker"`
	ReportPeriod string `json:"report_period"`
	Period       string `json:"period"`

	ReturnOnEquity       *float64 `json:"return_on_equity"`
	NetMargin            *float64 `json:"net_margin"`
	OperatingMargin      *float64 `json:"operating_margin"`
	RevenueGrowth        *float64 `json:"revenue_growth"`
	EarningsGrowth       *float64 `json:"earnings_growth"`
	BookValueGrowth      *float64 `json:"book_value_growth"`
	CurrentRatio         *float64 `json:"current_ratio"`
	DebtToEquity         *float64 `json:"debt_to_equity"`
	FreeCashFlowPerShare *float64 `json:"free_cash_flow_per_share"`
	EarningsPerShare     *float64 `json:"earnings_per_share"`
	PriceToEarningsRatio *float64 `json:"price_to_earnings_ratio"`
	PriceToBookRatio     *float64 `json:"price_to_book_ratio"`
	PriceToSalesRatio    *float64 `json:"price_to_sales_ratio"`
}

func (m FinancialMetrics) CacheKey() string { return m.ReportPeriod }

// LineItem is a single requested financial-statement line for one period.
type LineItem struct {
	Ticker           string   `json:"ticker"`
	ReportPeriod     string   `json:"report_period"`
	Period           string   `json:"period"`
	EarningsPerShare *float64 `json:"earnings_per_share,omitempty"`
	FreeCashFlow     *float64 `json:"free_cash_flow,omitempty"`
	Revenue          *float64 `json:"revenue,omitempty"`
}

func (l LineItem) CacheKey() string { return l.ReportPeriod }

// InsiderTrade is one reported insider transaction, keyed by filing date.
type InsiderTrade struct {
	Ticker           string          `json:"ticker"`
	InsiderName      string          `json:"insider_name"`
	FilingDate       string          `json:"filing_date"`
	TransactionDate  string          `json:"transaction_date"`
	Shares           int64           `json:"shares"`
	Change           int64           `json:"change"`
	TransactionPrice decimal.Decimal `json:"transaction_price"`
}

func (t InsiderTrade) CacheKey() string { return t.FilingDate }

// CompanyNews is one news article about a ticker.
type CompanyNews struct {
	Ticker string `json:"ticker"`
	Date   string `json:"date"`
	Title  string `json:"title"`
	Source string `json:"source"`
	URL    string `json:"url"`
}

func (n CompanyNews) CacheKey() string { return n.Date }

// Dividend is one declared cash dividend, keyed by ex-dividend date.
type Dividend struct {
	Ticker         string          `json:"ticker"`
	ExDividendDate string          `json:"ex_dividend_date"`
	PayDate        string          `json:"pay_date"`
	CashAmount     decimal.Decimal `json:"cash_amount"`
	DividendType   string          `json:"dividend_type"`
}

func (d Dividend) CacheKey() string { return d.ExDividendDate }
