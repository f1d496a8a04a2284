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

type pricesCmd struct {
	dataDir  string
	workers  int
	start    string
	slice    int
	of       int
	database string
}

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "download one shard of the price history" }
func (*pricesCmd) Usage() string {
	return `portlab prices [-slice N -of M] [-data DIR] [-workers N] [-database URL]

  Downloads daily close CSVs for one shard of the tickers.txt universe.
  Intended for CI fan-out; slice 0 of 1 downloads everything. With
  -database (or DATABASE_URL) prices are written to Postgres instead of
  the CSV directory.
`
}

func (c *pricesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dataDir, "data", "dist", "data directory")
	f.IntVar(&c.workers, "workers", 10, "parallel download workers")
	f.StringVar(&c.start, "start", "1990-01-01", "price history start date")
	f.IntVar(&c.slice, "slice", 0, "shard index")
	f.IntVar(&c.of, "of", 1, "total shards")
	f.StringVar(&c.database, "database", "", "Postgres DSN (defaults to DATABASE_URL)")
}

func (c *pricesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	store := repository.NewCSVStore(c.dataDir)
	tickers, err := store.ReadTickers()
	if err != nil {
		log.Error("read tickers", zap.Error(err))
		return subcommands.ExitFailure
	}

	shard := fetch.Shard(tickers, c.slice, c.of)
	if len(shard) == 0 {
		log.Info("shard has no tickers, nothing to do",
			zap.Int("slice", c.slice), zap.Int("of", c.of))
		return subcommands.ExitSuccess
	}
	log.Info("processing shard",
		zap.Int("slice", c.slice), zap.Int("of", c.of), zap.Int("tickers", len(shard)))

	var writer fetch.PriceWriter = store
	if url := databaseURL(c.database); url != "" {
		db, err := repository.NewDatabase(url)
		if err != nil {
			log.Error("connect database", zap.Error(err))
			return subcommands.ExitFailure
		}
		defer db.Close()
		writer = &databaseWriter{ctx: ctx, db: &db}
	}

	client := fetch.NewClient(fetch.Config{}, log)
	downloader := fetch.NewDownloader(client, writer, c.workers, true, log)

	n, err := downloader.DownloadPrices(ctx, shard, start)
	if err != nil {
		log.Error("download prices", zap.Error(err))
		return subcommands.ExitFailure
	}
	log.Info("shard done", zap.Int("succeeded", n), zap.Int("requested", len(shard)))
	return subcommands.ExitSuccess
}

// databaseWriter adapts the Postgres store to the downloader's price-writer
// interface: the asset row is upserted first, then the closes are
// bulk-copied under its id.
type databaseWriter struct {
	ctx context.Context
	db  *repository.Database
}

func (w *databaseWriter) WritePrices(ticker string, series types.ValueSeries) error {
	asset, err := w.db.UpsertAsset(w.ctx, ticker, ticker, "")
	if err != nil {
		return err
	}
	return w.db.SavePrices(w.ctx, asset.Id, series)
}
