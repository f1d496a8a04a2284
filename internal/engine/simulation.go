package engine

import (
	"math"
	"time"

	"portlab/types"
)

// simulate walks the restricted price table day by day. Each ticker's share
// count is bought with its weight's slice of the capital on the first date
// and recomputed from the running portfolio value on every rebalancing date,
// using same-day prices. The returned history starts at initialAmount; dates
// whose value is undefined because of missing prices are dropped.
func simulate(cfg types.PortfolioConfig, prices *types.PriceTable, initialAmount float64, rebalance []time.Time, eps float64) types.ValueSeries {
	n := len(cfg.Tickers)
	weights := make([]float64, n)
	for i, w := range cfg.Weights {
		weights[i] = w / 100
	}
	cols := make([][]float64, n)
	for i, ticker := range cfg.Tickers {
		cols[i] = prices.Closes[ticker]
	}

	rebalanceOn := make(map[time.Time]struct{}, len(rebalance))
	for _, d := range rebalance {
		rebalanceOn[d] = struct{}{}
	}

	shares := make([]float64, n)
	for i := range shares {
		shares[i] = initialAmount * weights[i] / (cols[i][0] + eps)
	}

	history := types.ValueSeries{
		Dates:  make([]time.Time, 0, prices.Len()),
		Values: make([]float64, 0, prices.Len()),
	}
	history.Dates = append(history.Dates, prices.Dates[0])
	history.Values = append(history.Values, initialAmount)

	for j := 1; j < prices.Len(); j++ {
		value := 0.0
		for i := range shares {
			value += shares[i] * cols[i][j]
		}
		date := prices.Dates[j]
		// A NaN price makes the whole day undefined. The day is dropped, and
		// if it is also a rebalancing day the share vector turns NaN so every
		// later day is dropped too.
		if !math.IsNaN(value) {
			history.Dates = append(history.Dates, date)
			history.Values = append(history.Values, value)
		}
		if _, ok := rebalanceOn[date]; ok {
			for i := range shares {
				shares[i] = value * weights[i] / (cols[i][j] + eps)
			}
		}
	}
	return history
}
