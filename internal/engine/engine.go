package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"portlab/types"
)

// ErrNoPrices is returned when a portfolio's restricted price table has no
// usable dates. Callers should skip the portfolio rather than fail the run.
var ErrNoPrices = errors.New("no price data for portfolio")

// Engine evaluates portfolio configurations against an in-memory price
// table. It holds no per-run state: every run is a pure function of its
// inputs, so one Engine may serve concurrent batches.
type Engine struct {
	params   Params
	workers  int
	progress bool
	log      *zap.Logger
}

func NewEngine(params Params, opts ...Option) *Engine {
	e := &Engine{
		params:  params,
		workers: runtime.NumCPU(),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	return e
}

// Run evaluates one portfolio configuration. A ticker missing from the price
// table is a hard error; a table with no rows yields ErrNoPrices.
func (e *Engine) Run(cfg types.PortfolioConfig, prices *types.PriceTable, benchmark *types.ValueSeries) (*types.BacktestResult, error) {
	restricted, err := prices.Restrict(cfg.Tickers)
	if err != nil {
		return nil, fmt.Errorf("portfolio %q: %w", cfg.Name, err)
	}
	if restricted.Len() == 0 {
		return nil, fmt.Errorf("portfolio %q: %w", cfg.Name, ErrNoPrices)
	}

	rebalance := rebalanceDates(restricted.Dates, cfg.RebalancingPeriod)
	history := simulate(cfg, restricted, e.params.InitialAmount, rebalance, e.params.Epsilon)
	metrics := computeMetrics(history, benchmark, e.params)

	points := make([]types.HistoryPoint, history.Len())
	for i := range points {
		points[i] = types.HistoryPoint{Date: history.Dates[i], Value: history.Values[i]}
	}
	return &types.BacktestResult{
		Name:             cfg.Name,
		CAGR:             metrics.CAGR,
		MDD:              metrics.MaxDrawdown,
		Volatility:       metrics.Volatility,
		SharpeRatio:      metrics.SharpeRatio,
		SortinoRatio:     metrics.SortinoRatio,
		Beta:             metrics.Beta,
		Alpha:            metrics.Alpha,
		PortfolioHistory: points,
	}, nil
}

// RunBatch evaluates many configurations against one shared read-only price
// table with a bounded worker pool. Portfolios that hit ErrNoPrices are
// skipped with a warning; a ticker missing from the table aborts the batch.
// Surviving results keep the order of cfgs.
func (e *Engine) RunBatch(ctx context.Context, cfgs []types.PortfolioConfig, prices *types.PriceTable, benchmark *types.ValueSeries) ([]*types.BacktestResult, error) {
	results := make([]*types.BacktestResult, len(cfgs))
	errs := make([]error, len(cfgs))

	var bar *progressbar.ProgressBar
	if e.progress {
		bar = newProgressBar(len(cfgs), "Backtesting portfolios...")
	}

	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup
	for i, cfg := range cfgs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, cfg types.PortfolioConfig) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i], errs[i] = e.Run(cfg, prices, benchmark)
			if bar != nil {
				bar.Add(1)
			}
		}(i, cfg)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]*types.BacktestResult, 0, len(cfgs))
	for i, err := range errs {
		switch {
		case err == nil:
			out = append(out, results[i])
		case errors.Is(err, ErrNoPrices):
			e.log.Warn("skipping portfolio with no price data", zap.String("portfolio", cfgs[i].Name))
		default:
			return nil, err
		}
	}
	return out, nil
}

func newProgressBar(maxTicks int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
