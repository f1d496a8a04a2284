package engine

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"portlab/types"
)

// Metrics is the set of risk/return statistics derived from one simulated
// value series. Beta and Alpha are nil unless a benchmark was supplied and
// had at least two return observations on common dates.
type Metrics struct {
	CAGR         float64
	MaxDrawdown  float64
	Volatility   float64
	SharpeRatio  float64
	SortinoRatio float64
	Beta         *float64
	Alpha        *float64
}

// computeMetrics derives the statistics record from a portfolio history and
// an optional benchmark. Volatility uses the sample standard deviation of
// daily returns, beta the sample covariance over the benchmark's sample
// variance, and the downside deviation the population mean of squared
// sub-target returns.
func computeMetrics(history types.ValueSeries, benchmark *types.ValueSeries, p Params) Metrics {
	if history.Len() < 2 {
		return Metrics{}
	}

	startValue := history.Values[0]
	endValue := history.Values[history.Len()-1]
	if startValue < p.Epsilon {
		// A portfolio that starts from nothing has no meaningful growth
		// rate; report it as a total loss.
		return Metrics{MaxDrawdown: -1}
	}

	// Calendar years elapsed, using 365.25 days to account for leap years.
	years := history.Dates[history.Len()-1].Sub(history.Dates[0]).Hours() / (24 * p.DaysPerYear)
	cagr := 0.0
	if years > 0 {
		cagr = math.Pow(endValue/startValue, 1/years) - 1
	}

	mdd := maxDrawdown(history.Values, p.Epsilon)

	retDates, rets := dailyReturns(history)
	if len(rets) < 2 {
		return Metrics{CAGR: cagr, MaxDrawdown: mdd}
	}

	volatility := stat.StdDev(rets, nil) * math.Sqrt(p.TradingDays)
	excess := cagr - p.RiskFreeRate
	sharpe := excess / (volatility + p.Epsilon)

	// Only deviations below the daily risk-free target count against the
	// Sortino denominator.
	dailyRf := math.Pow(1+p.RiskFreeRate, 1/p.TradingDays) - 1
	squared := make([]float64, len(rets))
	for i, r := range rets {
		d := r - dailyRf
		if d > 0 {
			d = 0
		}
		squared[i] = d * d
	}
	downsideStd := math.Sqrt(stat.Mean(squared, nil)) * math.Sqrt(p.TradingDays)
	sortino := 0.0
	if downsideStd > p.Epsilon {
		sortino = excess / downsideStd
	}

	var beta, alpha *float64
	if benchmark != nil && !benchmark.Empty() {
		benchDates, benchRets := dailyReturns(*benchmark)
		pr, br := alignReturns(retDates, rets, benchDates, benchRets)
		if len(pr) > 1 {
			benchVariance := stat.Variance(br, nil)
			if benchVariance > p.Epsilon {
				b := stat.Covariance(pr, br, nil) / benchVariance
				beta = &b

				benchCAGR := 0.0
				if years > 0 {
					benchStart := benchmark.Values[0]
					benchEnd := benchmark.Values[benchmark.Len()-1]
					benchCAGR = math.Pow(benchEnd/benchStart, 1/years) - 1
				}
				expected := p.RiskFreeRate + b*(benchCAGR-p.RiskFreeRate)
				a := cagr - expected
				alpha = &a
			}
		}
	}

	// Extreme inputs can push the ratios outside the float range; coerce
	// them to safe defaults instead of leaking NaN or infinities.
	if !isFinite(sharpe) {
		sharpe = 0
	}
	if !isFinite(sortino) {
		sortino = 0
	}
	if beta != nil && !isFinite(*beta) {
		beta = nil
	}
	if alpha != nil && !isFinite(*alpha) {
		alpha = nil
	}

	return Metrics{
		CAGR:         cagr,
		MaxDrawdown:  mdd,
		Volatility:   volatility,
		SharpeRatio:  sharpe,
		SortinoRatio: sortino,
		Beta:         beta,
		Alpha:        alpha,
	}
}

// maxDrawdown returns the most negative decline from the running peak. The
// first observation is its own peak, so the result is always <= 0.
func maxDrawdown(values []float64, eps float64) float64 {
	peak := values[0]
	mdd := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		dd := (v - peak) / (peak + eps)
		if dd < mdd {
			mdd = dd
		}
	}
	return mdd
}

// dailyReturns computes the simple percentage change between consecutive
// values. The first observation has no return; a 0/0 change produces NaN and
// is dropped.
func dailyReturns(s types.ValueSeries) ([]time.Time, []float64) {
	var dates []time.Time
	var rets []float64
	for i := 1; i < s.Len(); i++ {
		r := s.Values[i]/s.Values[i-1] - 1
		if math.IsNaN(r) {
			continue
		}
		dates = append(dates, s.Dates[i])
		rets = append(rets, r)
	}
	return dates, rets
}

// alignReturns inner-joins two dated return series on their common dates,
// preserving chronological order. Dates present on only one side are
// dropped.
func alignReturns(pDates []time.Time, pRets []float64, bDates []time.Time, bRets []float64) ([]float64, []float64) {
	byDate := make(map[time.Time]float64, len(bDates))
	for i, d := range bDates {
		byDate[d] = bRets[i]
	}
	var pr, br []float64
	for i, d := range pDates {
		if b, ok := byDate[d]; ok {
			pr = append(pr, pRets[i])
			br = append(br, b)
		}
	}
	return pr, br
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
