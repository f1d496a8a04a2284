// Package fetch pulls daily closes, fundamentals and index constituents
// from a market-data HTTP provider. It is plumbing around the provider: the
// simulation core only ever sees the materialized price table.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"portlab/types"
)

var (
	ErrNoData          = errors.New("no data for ticker")
	ErrTooManyRequests = errors.New("provider rate limit hit")
)

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"

// Config holds the provider endpoints and retry policy. The zero value is
// not usable, construct clients with NewClient which fills in defaults.
type Config struct {
	// BaseURLs are tried in order on every attempt; the provider runs
	// interchangeable query hosts.
	BaseURLs []string
	// Backoffs are slept between retry rounds; len(Backoffs)+1 rounds run.
	Backoffs []time.Duration
	// SP500URL and Nasdaq100URL serve the index constituent lists as CSV.
	SP500URL     string
	Nasdaq100URL string

	HTTPClient *http.Client
	UserAgent  string
}

// Client is a retrying market-data client.
type Client struct {
	cfg Config
	log *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	if len(cfg.BaseURLs) == 0 {
		cfg.BaseURLs = []string{
			"https://query1.finance.yahoo.com",
			"https://query2.finance.yahoo.com",
		}
	}
	if cfg.Backoffs == nil {
		cfg.Backoffs = []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, time.Second}
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = browserUserAgent
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{cfg: cfg, log: log}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// DailyCloses fetches one ticker's adjusted daily close history from start
// to now. Days the provider reports no close for are omitted.
func (c *Client) DailyCloses(ctx context.Context, ticker string, start time.Time) (types.ValueSeries, error) {
	path := fmt.Sprintf("/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d&events=div%%2Csplits",
		ticker, start.Unix(), time.Now().Unix())

	body, err := c.get(ctx, path)
	if err != nil {
		return types.ValueSeries{}, fmt.Errorf("fetch closes for %s: %w", ticker, err)
	}
	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return types.ValueSeries{}, fmt.Errorf("parse chart for %s: %w", ticker, err)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return types.ValueSeries{}, fmt.Errorf("ticker %s: %w", ticker, ErrNoData)
	}

	result := resp.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	// Prefer split- and dividend-adjusted closes when the provider sends
	// them.
	if len(result.Indicators.AdjClose) > 0 && len(result.Indicators.AdjClose[0].AdjClose) == len(closes) {
		closes = result.Indicators.AdjClose[0].AdjClose
	}

	var series types.ValueSeries
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil || math.IsNaN(*closes[i]) {
			continue
		}
		// Provider timestamps are session opens; collapse to the UTC
		// calendar day.
		d := time.Unix(ts, 0).UTC()
		series.Dates = append(series.Dates, time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC))
		series.Values = append(series.Values, *closes[i])
	}
	if series.Empty() {
		return types.ValueSeries{}, fmt.Errorf("ticker %s: %w", ticker, ErrNoData)
	}
	return series, nil
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile struct {
				Sector *string `json:"sector"`
			} `json:"assetProfile"`
			SummaryDetail struct {
				MarketCap     rawValue `json:"marketCap"`
				TrailingPE    rawValue `json:"trailingPE"`
				ForwardPE     rawValue `json:"forwardPE"`
				DividendYield rawValue `json:"dividendYield"`
			} `json:"summaryDetail"`
			FinancialData struct {
				ReturnOnEquity rawValue `json:"returnOnEquity"`
				RevenueGrowth  rawValue `json:"revenueGrowth"`
				EarningsGrowth rawValue `json:"earningsGrowth"`
			} `json:"financialData"`
		} `json:"result"`
	} `json:"quoteSummary"`
}

type rawValue struct {
	Raw *float64 `json:"raw"`
}

// StockInfo fetches the fundamentals snapshot for one ticker. A ticker with
// neither a trailing P/E nor a market cap reports ErrNoData and should be
// skipped, not treated as a failure.
func (c *Client) StockInfo(ctx context.Context, ticker string) (*types.StockInfo, error) {
	path := fmt.Sprintf("/v10/finance/quoteSummary/%s?modules=assetProfile%%2CsummaryDetail%%2CfinancialData", ticker)

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetch fundamentals for %s: %w", ticker, err)
	}
	var resp quoteSummaryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse fundamentals for %s: %w", ticker, err)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("ticker %s: %w", ticker, ErrNoData)
	}

	result := resp.QuoteSummary.Result[0]
	if result.SummaryDetail.TrailingPE.Raw == nil && result.SummaryDetail.MarketCap.Raw == nil {
		return nil, fmt.Errorf("ticker %s: %w", ticker, ErrNoData)
	}
	return &types.StockInfo{
		Ticker:         ticker,
		MarketCap:      result.SummaryDetail.MarketCap.Raw,
		Sector:         result.AssetProfile.Sector,
		TrailingPE:     result.SummaryDetail.TrailingPE.Raw,
		ForwardPE:      result.SummaryDetail.ForwardPE.Raw,
		DividendYield:  result.SummaryDetail.DividendYield.Raw,
		ReturnOnEquity: result.FinancialData.ReturnOnEquity.Raw,
		RevenueGrowth:  result.FinancialData.RevenueGrowth.Raw,
		EarningsGrowth: result.FinancialData.EarningsGrowth.Raw,
	}, nil
}

// get rotates across the configured base URLs with backoff between rounds.
// HTTP 429 is retryable like a transport error.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < len(c.cfg.Backoffs)+1; attempt++ {
		for _, base := range c.cfg.BaseURLs {
			body, err := c.getOnce(ctx, base+path)
			if err == nil {
				return body, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			c.log.Debug("request failed", zap.String("base", base), zap.Error(err))
		}
		if attempt < len(c.cfg.Backoffs) {
			select {
			case <-time.After(c.cfg.Backoffs[attempt]):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

func (c *Client) getOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(string(body), "Edge: Too Many Requests") {
		return nil, ErrTooManyRequests
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, preview(body))
	}
	if strings.HasPrefix(string(body), "<") {
		return nil, fmt.Errorf("non-json body: %s", preview(body))
	}
	return body, nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}
