package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/subcommands"
	"go.uber.org/zap"

	"portlab/internal/engine"
	"portlab/internal/logging"
	"portlab/internal/report"
	"portlab/internal/repository"
	"portlab/internal/server"
	"portlab/types"
)

type backtestCmd struct {
	portfolios string
	dataDir    string
	database   string
	benchmark  string
	amount     float64
	riskFree   float64
	start      string
	end        string
	out        string
	chartsDir  string
	csvDir     string
	workers    int
}

func (*backtestCmd) Name() string     { return "backtest" }
func (*backtestCmd) Synopsis() string { return "evaluate portfolio configurations against history" }
func (*backtestCmd) Usage() string {
	return `portlab backtest -portfolios FILE [-data DIR | -database URL] [options]

  Runs every portfolio configuration in the JSON file against the stored
  price history and prints a report per portfolio. Optional outputs: a
  results JSON document, a value-series CSV per portfolio and an equity
  chart PNG per portfolio.
`
}

func (c *backtestCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolios, "portfolios", "portfolios.json", "portfolio configurations JSON file")
	f.StringVar(&c.dataDir, "data", "dist", "data directory")
	f.StringVar(&c.database, "database", "", "Postgres DSN (defaults to DATABASE_URL)")
	f.StringVar(&c.benchmark, "benchmark", "", "benchmark ticker for beta/alpha")
	f.Float64Var(&c.amount, "amount", 10000, "initial capital")
	f.Float64Var(&c.riskFree, "rf", 0, "annualized risk-free rate")
	f.StringVar(&c.start, "start", "", "restrict history start (YYYY-MM-DD)")
	f.StringVar(&c.end, "end", "", "restrict history end (YYYY-MM-DD)")
	f.StringVar(&c.out, "out", "", "write results JSON to this path")
	f.StringVar(&c.chartsDir, "charts", "", "write equity chart PNGs to this directory")
	f.StringVar(&c.csvDir, "csv", "", "write value-series CSVs to this directory")
	f.IntVar(&c.workers, "workers", 0, "parallel portfolio workers (0 = NumCPU)")
}

func (c *backtestCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log, err := logging.NewDevLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer log.Sync()

	if c.amount <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -amount must be positive")
		return subcommands.ExitUsageError
	}
	cfgs, err := loadPortfolios(c.portfolios)
	if err != nil {
		log.Error("load portfolios", zap.Error(err))
		return subcommands.ExitFailure
	}
	for _, cfg := range cfgs {
		if err := cfg.Validate(); err != nil {
			log.Error("invalid portfolio", zap.Error(err))
			return subcommands.ExitFailure
		}
		if p := cfg.RebalancingPeriod; p != "" && !p.Known() {
			log.Warn("unknown rebalancing period treated as never",
				zap.String("portfolio", cfg.Name), zap.String("period", string(p)))
		}
	}
	start, err := parseOptionalDate(c.start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid -start: %v\n", err)
		return subcommands.ExitUsageError
	}
	end, err := parseOptionalDate(c.end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid -end: %v\n", err)
		return subcommands.ExitUsageError
	}

	prices, cleanup, err := c.priceSource(log)
	if err != nil {
		log.Error("open price source", zap.Error(err))
		return subcommands.ExitFailure
	}
	defer cleanup()

	tickers := tickerUnion(cfgs, c.benchmark)
	table, err := prices.LoadPriceTable(ctx, tickers, start, end)
	if err != nil {
		log.Error("load price table", zap.Error(err))
		return subcommands.ExitFailure
	}

	var benchmark *types.ValueSeries
	if c.benchmark != "" {
		series, err := table.Series(c.benchmark)
		if err != nil {
			log.Warn("benchmark has no price data, skipping beta/alpha",
				zap.String("benchmark", c.benchmark))
		} else {
			benchmark = &series
		}
	}

	params := engine.DefaultParams(c.amount)
	params.RiskFreeRate = c.riskFree
	eng := engine.NewEngine(params,
		engine.WithLogger(log),
		engine.WithWorkers(c.workers),
		engine.WithProgress(true))

	results, err := eng.RunBatch(ctx, cfgs, table, benchmark)
	if err != nil {
		log.Error("run batch", zap.Error(err))
		return subcommands.ExitFailure
	}

	fmt.Println()
	for _, result := range results {
		report.PrintReport(os.Stdout, result)
		fmt.Println()
	}

	if err := c.writeOutputs(results, log); err != nil {
		log.Error("write outputs", zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *backtestCmd) priceSource(log *zap.Logger) (server.PriceSource, func(), error) {
	if url := databaseURL(c.database); url != "" {
		db, err := repository.NewDatabase(url)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using Postgres price source")
		return &db, db.Close, nil
	}
	return repository.NewCSVStore(c.dataDir), func() {}, nil
}

func (c *backtestCmd) writeOutputs(results []*types.BacktestResult, log *zap.Logger) error {
	if c.out != "" {
		if err := report.WriteResultsJSON(c.out, results); err != nil {
			return err
		}
		log.Info("results written", zap.String("path", c.out))
	}
	if c.csvDir != "" {
		if err := os.MkdirAll(c.csvDir, 0o755); err != nil {
			return err
		}
		for _, result := range results {
			path := filepath.Join(c.csvDir, result.Name+".csv")
			if err := report.WriteHistoryCSVFile(path, result); err != nil {
				return err
			}
		}
		log.Info("history CSVs written", zap.String("dir", c.csvDir))
	}
	if c.chartsDir != "" {
		if err := os.MkdirAll(c.chartsDir, 0o755); err != nil {
			return err
		}
		for _, result := range results {
			path := filepath.Join(c.chartsDir, result.Name+".png")
			if err := report.WriteEquityChartFile(path, result); err != nil {
				return err
			}
		}
		log.Info("charts written", zap.String("dir", c.chartsDir))
	}
	return nil
}

func loadPortfolios(path string) ([]types.PortfolioConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read portfolios file: %w", err)
	}
	var cfgs []types.PortfolioConfig
	if err := json.Unmarshal(data, &cfgs); err != nil {
		return nil, fmt.Errorf("parse portfolios file: %w", err)
	}
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("portfolios file %s is empty", path)
	}
	return cfgs, nil
}

func parseOptionalDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(types.DateFormat, value)
	if err != nil {
		return time.Time{}, err
	}
	return d.UTC(), nil
}

func tickerUnion(cfgs []types.PortfolioConfig, benchmark string) []string {
	seen := make(map[string]struct{})
	var tickers []string
	add := func(t string) {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			tickers = append(tickers, t)
		}
	}
	for _, cfg := range cfgs {
		for _, t := range cfg.Tickers {
			add(t)
		}
	}
	if benchmark != "" {
		add(benchmark)
	}
	return tickers
}
