package types

import (
	"time"

	"github.com/goccy/go-json"
)

// DateFormat is the calendar-date layout used on every wire and file format.
const DateFormat = "2006-01-02"

// HistoryPoint is one dated value of a simulated portfolio.
type HistoryPoint struct {
	Date  time.Time
	Value float64
}

func (p HistoryPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date  string  `json:"date"`
		Value float64 `json:"value"`
	}{p.Date.Format(DateFormat), p.Value})
}

func (p *HistoryPoint) UnmarshalJSON(data []byte) error {
	var raw struct {
		Date  string  `json:"date"`
		Value float64 `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := time.Parse(DateFormat, raw.Date)
	if err != nil {
		return err
	}
	p.Date = date.UTC()
	p.Value = raw.Value
	return nil
}

// BacktestResult is the outcome of one simulation run: the portfolio name,
// its risk/return statistics and the dated value series the statistics were
// derived from. Beta and Alpha are nil when no benchmark was supplied or the
// overlap was too thin to estimate them.
type BacktestResult struct {
	Name             string         `json:"name"`
	CAGR             float64        `json:"cagr"`
	MDD              float64        `json:"mdd"`
	Volatility       float64        `json:"volatility"`
	SharpeRatio      float64        `json:"sharpeRatio"`
	SortinoRatio     float64        `json:"sortinoRatio"`
	Beta             *float64       `json:"beta"`
	Alpha            *float64       `json:"alpha"`
	PortfolioHistory []HistoryPoint `json:"portfolioHistory"`
}
