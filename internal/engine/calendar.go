package engine

import (
	"time"

	"portlab/types"
)

// rebalanceDates returns the dates on which a portfolio reallocates to its
// target weights: the first trading day of each calendar year, quarter or
// month present in the axis. The first boundary coincides with the initial
// allocation and is dropped, so every returned date lies strictly after the
// start of the run. Unknown periods yield no dates, same as RebalanceNever.
func rebalanceDates(axis []time.Time, period types.RebalancingPeriod) []time.Time {
	var key func(t time.Time) int
	switch period {
	case types.RebalanceAnnually:
		key = func(t time.Time) int { return t.Year() }
	case types.RebalanceQuarterly:
		key = func(t time.Time) int { return t.Year()*4 + (int(t.Month())-1)/3 }
	case types.RebalanceMonthly:
		key = func(t time.Time) int { return t.Year()*12 + int(t.Month()) - 1 }
	default:
		return nil
	}

	var dates []time.Time
	last := 0
	for i, d := range axis {
		k := key(d)
		if i == 0 || k != last {
			dates = append(dates, d)
			last = k
		}
	}
	if len(dates) <= 1 {
		return nil
	}
	return dates[1:]
}
