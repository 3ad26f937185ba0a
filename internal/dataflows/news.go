package dataflows

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"hedgego/internal/models"
)

// NewsScraperClient scrapes Google News as a keyless fallback source of
// company news.
type NewsScraperClient struct {
	client *resty.Client
}

func NewNewsScraperClient() *NewsScraperClient {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; hedgego/1.0)")

	return &NewsScraperClient{client: client}
}

func (ns *NewsScraperClient) FetchCompanyNews(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.CompanyNews, error) {
	if err := ValidateTicker(ticker); err != nil {
		return nil, err
	}
	ticker = NormalizeTicker(ticker)

	query := url.QueryEscape(ticker + " stock")
	searchURL := fmt.Sprintf("https://news.google.com/search?q=%s&hl=en-US&gl=US&ceid=US:en", query)

	var news []models.CompanyNews
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := ns.client.R().SetContext(ctx).Get(searchURL)
		if err != nil {
			return fmt.Errorf("failed to fetch news for %s: %w", ticker, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("google news error %d", resp.StatusCode())
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
		if err != nil {
			return fmt.Errorf("failed to parse news page: %w", err)
		}

		news = news[:0]
		doc.Find("article").Each(func(i int, s *goquery.Selection) {
			if limit > 0 && len(news) >= limit {
				return
			}
			title := strings.TrimSpace(s.Find("a").First().Text())
			if title == "" {
				return
			}
			date := ""
			if dt, ok := s.Find("time").First().Attr("datetime"); ok {
				date = strings.SplitN(dt, "T", 2)[0]
			}
			if date == "" || (startDate != "" && date < startDate) || date > endDate {
				return
			}
			href, _ := s.Find("a").First().Attr("href")
			news = append(news, models.CompanyNews{
				Ticker: ticker,
				Title:  title,
				Source: strings.TrimSpace(s.Find("div[data-n-tid]").First().Text()),
				Date:   date,
				URL:    strings.TrimPrefix(href, "."),
			})
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return news, nil
}
