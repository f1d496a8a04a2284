package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"portlab/internal/fetch"
	"portlab/internal/logging"
	"portlab/internal/repository"
	"portlab/types"
)

const (
	defaultSP500URL     = "https://datahub.io/core/s-and-p-500-companies/r/constituents.csv"
	defaultNasdaq100URL = "https://datahub.io/core/nasdaq-listings/r/nasdaq-100.csv"
)

type fetchCmd struct {
	dataDir      string
	workers      int
	start        string
	sp500URL     string
	nasdaq100URL string
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "refresh the ticker universe, fundamentals and prices" }
func (*fetchCmd) Usage() string {
	return `portlab fetch [-data DIR] [-workers N] [-start YYYY-MM-DD]

  Fetches the S&P 500 and Nasdaq-100 constituents, their fundamentals and
  their full daily close history, and writes everything under the data
  directory.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dataDir, "data", "dist", "data directory")
	f.IntVar(&c.workers, "workers", 20, "parallel download workers")
	f.StringVar(&c.start, "start", "1990-01-01", "price history start date")
	f.StringVar(&c.sp500URL, "sp500-url", defaultSP500URL, "S&P 500 constituents CSV URL")
	f.StringVar(&c.nasdaq100URL, "nasdaq100-url", defaultNasdaq100URL, "Nasdaq-100 constituents CSV URL")
}

func (c *fetchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log, err := logging.NewDevLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer log.Sync()

	start, err := time.Parse(types.DateFormat, c.start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid -start: %v\n", err)
		return subcommands.ExitUsageError
	}

	client := fetch.NewClient(fetch.Config{
		SP500URL:     c.sp500URL,
		Nasdaq100URL: c.nasdaq100URL,
	}, log)

	universe, err := client.FetchUniverse(ctx)
	if err != nil {
		log.Error("fetch universe", zap.Error(err))
		return subcommands.ExitFailure
	}
	log.Info("universe resolved", zap.Int("tickers", len(universe.Tickers)))

	store := repository.NewCSVStore(c.dataDir)
	if err := store.WriteTickers(universe.Tickers); err != nil {
		log.Error("write tickers", zap.Error(err))
		return subcommands.ExitFailure
	}

	downloader := fetch.NewDownloader(client, store, c.workers, true, log)

	infos, err := downloader.FetchStockInfos(ctx, universe)
	if err != nil {
		log.Error("fetch fundamentals", zap.Error(err))
		return subcommands.ExitFailure
	}
	if err := store.WriteStockInfos(infos); err != nil {
		log.Error("write fundamentals", zap.Error(err))
		return subcommands.ExitFailure
	}
	log.Info("fundamentals written", zap.Int("stocks", len(infos)))

	n, err := downloader.DownloadPrices(ctx, universe.Tickers, start)
	if err != nil {
		log.Error("download prices", zap.Error(err))
		return subcommands.ExitFailure
	}
	log.Info("prices written", zap.Int("succeeded", n), zap.Int("requested", len(universe.Tickers)))
	return subcommands.ExitSuccess
}
