package repository

import (
	"math"
	"sort"
	"time"

	"portlab/types"
)

// buildPriceTable merges per-ticker close series onto one strictly
// increasing date axis. Days a ticker has no close for are NaN in its
// column.
func buildPriceTable(columns map[string]types.ValueSeries) *types.PriceTable {
	axisSet := make(map[time.Time]struct{})
	for _, series := range columns {
		for _, d := range series.Dates {
			axisSet[d] = struct{}{}
		}
	}
	axis := make([]time.Time, 0, len(axisSet))
	for d := range axisSet {
		axis = append(axis, d)
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Before(axis[j]) })

	index := make(map[time.Time]int, len(axis))
	for i, d := range axis {
		index[d] = i
	}

	closes := make(map[string][]float64, len(columns))
	for ticker, series := range columns {
		col := make([]float64, len(axis))
		for i := range col {
			col[i] = math.NaN()
		}
		for i, d := range series.Dates {
			col[index[d]] = series.Values[i]
		}
		closes[ticker] = col
	}
	return &types.PriceTable{Dates: axis, Closes: closes}
}
