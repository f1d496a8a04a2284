package engine

import (
	"math"
	"testing"
	"time"

	"portlab/types"
)

func TestSimulateBuyAndHold(t *testing.T) {
	// Single ticker at a constant $100 for two years: ten shares are bought
	// on day one and the value never moves.
	dates := tradingDays(day(2020, 1, 2), 504)
	table := constantTable(dates, map[string]float64{"AAA": 100})
	cfg := types.PortfolioConfig{
		Name:              "all in",
		Tickers:           []string{"AAA"},
		Weights:           []float64{100},
		RebalancingPeriod: types.RebalanceNever,
	}

	history := simulate(cfg, table, 1000, nil, Epsilon)

	if history.Len() != len(dates) {
		t.Fatalf("history length = %d, want %d", history.Len(), len(dates))
	}
	for i, v := range history.Values {
		if !almostEqual(v, 1000) {
			t.Fatalf("value[%d] = %v, want 1000", i, v)
		}
	}
	// Implied share count: value / price.
	if shares := history.Values[history.Len()-1] / 100; !almostEqual(shares, 10) {
		t.Fatalf("implied shares = %v, want 10", shares)
	}
}

func TestSimulateNeverRebalances(t *testing.T) {
	// A doubles, B halves. Without rebalancing the end value is
	// initial * (0.5*2 + 0.5*0.5) = initial * 1.25.
	dates := []time.Time{day(2020, 1, 2), day(2020, 7, 1), day(2021, 1, 4)}
	table := &types.PriceTable{
		Dates: dates,
		Closes: map[string][]float64{
			"AAA": {10, 15, 20},
			"BBB": {40, 30, 20},
		},
	}
	cfg := types.PortfolioConfig{
		Name:              "half and half",
		Tickers:           []string{"AAA", "BBB"},
		Weights:           []float64{50, 50},
		RebalancingPeriod: types.RebalanceNever,
	}

	history := simulate(cfg, table, 1000, nil, Epsilon)

	if got := history.Values[history.Len()-1]; !almostEqual(got, 1250) {
		t.Fatalf("end value = %v, want 1250", got)
	}
	// Share counts stay fixed, so every value is shares0 . price(t).
	if got := history.Values[1]; !almostEqual(got, 50*15+12.5*30) {
		t.Fatalf("mid value = %v, want %v", got, 50*15+12.5*30)
	}
}

func TestSimulateQuarterlyRestoresSplit(t *testing.T) {
	// A triples in Q1 while B is flat. The quarter boundary resets the value
	// split to 50/50, so a further 10% move in A lifts the portfolio by 5%.
	dates := []time.Time{
		day(2020, 1, 2), day(2020, 2, 3), day(2020, 4, 1), day(2020, 4, 2),
	}
	table := &types.PriceTable{
		Dates: dates,
		Closes: map[string][]float64{
			"AAA": {10, 20, 20, 22},
			"BBB": {10, 10, 10, 10},
		},
	}
	cfg := types.PortfolioConfig{
		Name:              "rebalanced",
		Tickers:           []string{"AAA", "BBB"},
		Weights:           []float64{50, 50},
		RebalancingPeriod: types.RebalanceQuarterly,
	}
	rebalance := rebalanceDates(dates, cfg.RebalancingPeriod)
	if len(rebalance) != 1 || !rebalance[0].Equal(day(2020, 4, 1)) {
		t.Fatalf("rebalance dates = %v, want [2020-04-01]", rebalance)
	}

	history := simulate(cfg, table, 1000, rebalance, Epsilon)

	want := []float64{1000, 1500, 1500, 1575}
	for i, w := range want {
		if !almostEqual(history.Values[i], w) {
			t.Fatalf("value[%d] = %v, want %v", i, history.Values[i], w)
		}
	}
}

func TestSimulateDropsUndefinedDates(t *testing.T) {
	dates := tradingDays(day(2020, 1, 2), 4)
	table := &types.PriceTable{
		Dates: dates,
		Closes: map[string][]float64{
			"AAA": {10, math.NaN(), 12, 13},
		},
	}
	cfg := types.PortfolioConfig{
		Name:              "gappy",
		Tickers:           []string{"AAA"},
		Weights:           []float64{100},
		RebalancingPeriod: types.RebalanceNever,
	}

	history := simulate(cfg, table, 1000, nil, Epsilon)

	if history.Len() != 3 {
		t.Fatalf("history length = %d, want 3", history.Len())
	}
	for _, d := range history.Dates {
		if d.Equal(dates[1]) {
			t.Fatalf("undefined date %s was not dropped", d)
		}
	}
	if got := history.Values[2]; !almostEqual(got, 1300) {
		t.Fatalf("end value = %v, want 1300", got)
	}
}

func TestSimulateNaNRebalancePoisonsRest(t *testing.T) {
	// A missing price on a rebalancing day makes the share vector undefined,
	// so every later day is dropped as well.
	dates := []time.Time{day(2020, 1, 2), day(2020, 1, 15), day(2020, 2, 3), day(2020, 2, 4)}
	table := &types.PriceTable{
		Dates: dates,
		Closes: map[string][]float64{
			"AAA": {10, 11, math.NaN(), 12},
		},
	}
	cfg := types.PortfolioConfig{
		Name:              "poisoned",
		Tickers:           []string{"AAA"},
		Weights:           []float64{100},
		RebalancingPeriod: types.RebalanceMonthly,
	}
	rebalance := rebalanceDates(dates, cfg.RebalancingPeriod)

	history := simulate(cfg, table, 1000, rebalance, Epsilon)

	if history.Len() != 2 {
		t.Fatalf("history = %v, want the first two dates only", history.Values)
	}
}

func TestSimulateWeightsNotRenormalized(t *testing.T) {
	// Weights are used as-is: 60/60 buys 1.2x the capital's worth of shares.
	dates := tradingDays(day(2020, 1, 2), 3)
	table := constantTable(dates, map[string]float64{"AAA": 10, "BBB": 10})
	cfg := types.PortfolioConfig{
		Name:              "overweight",
		Tickers:           []string{"AAA", "BBB"},
		Weights:           []float64{60, 60},
		RebalancingPeriod: types.RebalanceNever,
	}

	history := simulate(cfg, table, 1000, nil, Epsilon)

	if !almostEqual(history.Values[0], 1000) {
		t.Fatalf("first value = %v, want the initial amount", history.Values[0])
	}
	for _, v := range history.Values[1:] {
		if !almostEqual(v, 1200) {
			t.Fatalf("value = %v, want 1200", v)
		}
	}
}

// tradingDays builds n consecutive weekdays starting at start.
func tradingDays(start time.Time, n int) []time.Time {
	dates := make([]time.Time, 0, n)
	d := start
	for len(dates) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return dates
}

func constantTable(dates []time.Time, prices map[string]float64) *types.PriceTable {
	closes := make(map[string][]float64, len(prices))
	for ticker, price := range prices {
		col := make([]float64, len(dates))
		for i := range col {
			col[i] = price
		}
		closes[ticker] = col
	}
	return &types.PriceTable{Dates: dates, Closes: closes}
}

func almostEqual(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= 1e-8*scale
}
