package fetch

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Universe is the merged set of index constituents a data refresh covers,
// with per-index membership retained for the fundamentals document.
type Universe struct {
	Tickers   []string
	SP500     map[string]bool
	Nasdaq100 map[string]bool
}

// FetchUniverse loads the S&P 500 and Nasdaq-100 constituent lists and
// merges them, deduplicated and sorted. One failing source is tolerated;
// both failing is an error.
func (c *Client) FetchUniverse(ctx context.Context) (*Universe, error) {
	sp500, spErr := c.constituents(ctx, c.cfg.SP500URL)
	if spErr != nil {
		c.log.Warn("S&P 500 constituents unavailable", zap.Error(spErr))
	}
	nasdaq, nqErr := c.constituents(ctx, c.cfg.Nasdaq100URL)
	if nqErr != nil {
		c.log.Warn("Nasdaq-100 constituents unavailable", zap.Error(nqErr))
	}
	if spErr != nil && nqErr != nil {
		return nil, fmt.Errorf("all universe sources failed: %w", spErr)
	}

	u := &Universe{
		SP500:     make(map[string]bool, len(sp500)),
		Nasdaq100: make(map[string]bool, len(nasdaq)),
	}
	merged := make(map[string]struct{}, len(sp500)+len(nasdaq))
	for _, t := range sp500 {
		u.SP500[t] = true
		merged[t] = struct{}{}
	}
	for _, t := range nasdaq {
		u.Nasdaq100[t] = true
		merged[t] = struct{}{}
	}
	for t := range merged {
		u.Tickers = append(u.Tickers, t)
	}
	sort.Strings(u.Tickers)
	return u, nil
}

// constituents downloads a CSV constituent list and extracts the symbol
// column. Class-share dots become dashes to match the provider's symbols.
func (c *Client) constituents(ctx context.Context, url string) ([]string, error) {
	if url == "" {
		return nil, fmt.Errorf("no constituents URL configured")
	}
	// Constituent lists live on their own host, so the base-URL rotation
	// does not apply; retry the one URL with the usual backoffs.
	var body []byte
	var err error
	for attempt := 0; attempt < len(c.cfg.Backoffs)+1; attempt++ {
		body, err = c.getOnce(ctx, url)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < len(c.cfg.Backoffs) {
			select {
			case <-time.After(c.cfg.Backoffs[attempt]):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if err != nil {
		return nil, err
	}

	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse constituents csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("constituents csv has no rows")
	}

	col := -1
	for i, name := range records[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "symbol", "ticker":
			col = i
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("constituents csv has no symbol column: %v", records[0])
	}

	var tickers []string
	for _, record := range records[1:] {
		if col >= len(record) {
			continue
		}
		ticker := strings.ReplaceAll(strings.TrimSpace(record[col]), ".", "-")
		if ticker != "" {
			tickers = append(tickers, ticker)
		}
	}
	return tickers, nil
}
