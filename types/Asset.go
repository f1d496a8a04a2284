package types

import (
	"time"
)

type Asset struct {
	Id         int       `json:"id"`
	Ticker     string    `json:"ticker"`
	Name       string    `json:"name"`
	Sector     string    `json:"sector"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// StockInfo is the fundamentals snapshot collected for one ticker during a
// data refresh. Pointer fields are null when the provider has no value. The
// JSON field names follow the preprocessed_data.json document consumed by
// downstream tooling.
type StockInfo struct {
	Ticker         string   `json:"ticker"`
	MarketCap      *float64 `json:"marketCap"`
	Sector         *string  `json:"sector"`
	TrailingPE     *float64 `json:"trailingPE"`
	ForwardPE      *float64 `json:"forwardPE"`
	DividendYield  *float64 `json:"dividendYield"`
	ReturnOnEquity *float64 `json:"returnOnEquity"`
	RevenueGrowth  *float64 `json:"revenueGrowth"`
	EarningsGrowth *float64 `json:"earningsGrowth"`
	InSP500        bool     `json:"in_sp500"`
	InNasdaq100    bool     `json:"in_nasdaq100"`
}
