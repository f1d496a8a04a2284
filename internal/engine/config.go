package engine

import (
	"go.uber.org/zap"
)

// Numeric conventions shared by the simulation and the metrics calculator.
const (
	// Epsilon guards divisions against zero and near-zero denominators.
	Epsilon = 1e-9
	// TradingDaysPerYear annualizes daily return statistics.
	TradingDaysPerYear = 252
	// DaysPerYear converts calendar spans to years, accounting for leap
	// years.
	DaysPerYear = 365.25
)

// Params carries the run inputs and the numeric conventions of the engine.
// The conventions are plain fields so tests can exercise different ones; the
// zero value is not usable, construct with DefaultParams.
type Params struct {
	InitialAmount float64
	RiskFreeRate  float64

	Epsilon     float64
	TradingDays float64
	DaysPerYear float64
}

func DefaultParams(initialAmount float64) Params {
	return Params{
		InitialAmount: initialAmount,
		Epsilon:       Epsilon,
		TradingDays:   TradingDaysPerYear,
		DaysPerYear:   DaysPerYear,
	}
}

type Option func(*Engine)

// WithLogger replaces the engine's no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithWorkers bounds the number of portfolios evaluated concurrently by
// RunBatch. Values below 1 keep the NumCPU default.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithProgress toggles the batch progress bar.
func WithProgress(enabled bool) Option {
	return func(e *Engine) {
		e.progress = enabled
	}
}
