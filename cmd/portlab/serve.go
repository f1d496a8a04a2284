package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"portlab/internal/logging"
	"portlab/internal/repository"
	"portlab/internal/server"
)

type serveCmd struct {
	addr     string
	dataDir  string
	database string
	workers  int
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the backtest HTTP API" }
func (*serveCmd) Usage() string {
	return `portlab serve [-addr :8080] [-data DIR | -database URL]

  Serves POST /api/backtest, GET /api/stocks and GET /healthz.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", ":8080", "listen address")
	f.StringVar(&c.dataDir, "data", "dist", "data directory")
	f.StringVar(&c.database, "database", "", "Postgres DSN (defaults to DATABASE_URL)")
	f.IntVar(&c.workers, "workers", 0, "parallel portfolio workers (0 = NumCPU)")
}

func (c *serveCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log, err := logging.NewProdLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer log.Sync()

	store := repository.NewCSVStore(c.dataDir)

	var prices server.PriceSource = store
	if url := databaseURL(c.database); url != "" {
		db, err := repository.NewDatabase(url)
		if err != nil {
			log.Error("connect database", zap.Error(err))
			return subcommands.ExitFailure
		}
		defer db.Close()
		prices = &db
		log.Info("using Postgres price source")
	}

	srv := server.New(prices, store, c.workers, log)
	log.Info("listening", zap.String("addr", c.addr))
	if err := http.ListenAndServe(c.addr, srv.Router()); err != nil {
		log.Error("serve", zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
