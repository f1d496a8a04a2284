package types

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var ErrTickerNotFound = errors.New("ticker not found in price table")

// PriceTable holds daily adjusted closes for a set of tickers on one shared
// date axis. Dates are UTC midnights in strictly increasing order; each
// ticker column is parallel to Dates, with NaN marking days the ticker has
// no price.
type PriceTable struct {
	Dates  []time.Time
	Closes map[string][]float64
}

func (t *PriceTable) Len() int {
	return len(t.Dates)
}

// Restrict returns a table containing only the given tickers. The returned
// table shares the receiver's date axis and columns; callers must treat it
// as read-only.
func (t *PriceTable) Restrict(tickers []string) (*PriceTable, error) {
	closes := make(map[string][]float64, len(tickers))
	for _, ticker := range tickers {
		col, ok := t.Closes[ticker]
		if !ok {
			return nil, fmt.Errorf("%s: %w", ticker, ErrTickerNotFound)
		}
		closes[ticker] = col
	}
	return &PriceTable{Dates: t.Dates, Closes: closes}, nil
}

// Series extracts one ticker column as a ValueSeries, dropping NaN days.
func (t *PriceTable) Series(ticker string) (ValueSeries, error) {
	col, ok := t.Closes[ticker]
	if !ok {
		return ValueSeries{}, fmt.Errorf("%s: %w", ticker, ErrTickerNotFound)
	}
	var s ValueSeries
	for i, v := range col {
		if math.IsNaN(v) {
			continue
		}
		s.Dates = append(s.Dates, t.Dates[i])
		s.Values = append(s.Values, v)
	}
	return s, nil
}

// Between returns the sub-table whose dates fall in [start, end]. A zero
// start or end leaves that bound open. The returned table shares backing
// arrays with the receiver.
func (t *PriceTable) Between(start, end time.Time) *PriceTable {
	lo := 0
	if !start.IsZero() {
		lo = sort.Search(len(t.Dates), func(i int) bool { return !t.Dates[i].Before(start) })
	}
	hi := len(t.Dates)
	if !end.IsZero() {
		hi = sort.Search(len(t.Dates), func(i int) bool { return t.Dates[i].After(end) })
	}
	if lo > hi {
		lo = hi
	}
	closes := make(map[string][]float64, len(t.Closes))
	for ticker, col := range t.Closes {
		closes[ticker] = col[lo:hi]
	}
	return &PriceTable{Dates: t.Dates[lo:hi], Closes: closes}
}
