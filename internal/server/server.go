// Package server exposes backtest runs and the fundamentals document over
// HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"portlab/internal/engine"
	"portlab/types"
)

// PriceSource materializes the in-memory price table the engine consumes.
// Both the CSV directory store and the Postgres store satisfy it.
type PriceSource interface {
	LoadPriceTable(ctx context.Context, tickers []string, start, end time.Time) (*types.PriceTable, error)
}

// StockInfoSource serves the fundamentals snapshot document.
type StockInfoSource interface {
	ReadStockInfos() ([]types.StockInfo, error)
}

type Server struct {
	prices  PriceSource
	stocks  StockInfoSource
	workers int
	log     *zap.Logger
}

func New(prices PriceSource, stocks StockInfoSource, workers int, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{prices: prices, stocks: stocks, workers: workers, log: log}
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/api/backtest", s.handleBacktest)
	r.Get("/api/stocks", s.handleStocks)
	r.Get("/healthz", s.handleHealthz)

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

type backtestRequest struct {
	Portfolios    []types.PortfolioConfig `json:"portfolios"`
	InitialAmount float64                 `json:"initialAmount"`
	RiskFreeRate  float64                 `json:"riskFreeRate"`
	Benchmark     string                  `json:"benchmark"`
	StartDate     string                  `json:"startDate"`
	EndDate       string                  `json:"endDate"`
}

type backtestResponse struct {
	Results []*types.BacktestResult `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(zap.String("method", "handleBacktest"))

	var req backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if len(req.Portfolios) == 0 {
		s.writeError(w, http.StatusBadRequest, "no portfolios supplied")
		return
	}
	if req.InitialAmount <= 0 {
		s.writeError(w, http.StatusBadRequest, "initialAmount must be positive")
		return
	}
	for _, cfg := range req.Portfolios {
		if err := cfg.Validate(); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if p := cfg.RebalancingPeriod; p != "" && !p.Known() {
			log.Warn("unknown rebalancing period treated as never",
				zap.String("portfolio", cfg.Name), zap.String("period", string(p)))
		}
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "startDate must be YYYY-MM-DD")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "endDate must be YYYY-MM-DD")
		return
	}

	tickers := collectTickers(req.Portfolios, req.Benchmark)
	table, err := s.prices.LoadPriceTable(r.Context(), tickers, start, end)
	if err != nil {
		log.Error("load price table", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "price data unavailable")
		return
	}

	var benchmark *types.ValueSeries
	if req.Benchmark != "" {
		series, err := table.Series(req.Benchmark)
		if err != nil {
			s.writeError(w, http.StatusUnprocessableEntity, "no price data for benchmark "+req.Benchmark)
			return
		}
		benchmark = &series
	}

	params := engine.DefaultParams(req.InitialAmount)
	params.RiskFreeRate = req.RiskFreeRate
	eng := engine.NewEngine(params, engine.WithLogger(s.log), engine.WithWorkers(s.workers))

	results, err := eng.RunBatch(r.Context(), req.Portfolios, table, benchmark)
	if err != nil {
		if errors.Is(err, types.ErrTickerNotFound) {
			s.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		log.Error("run batch", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "backtest failed")
		return
	}
	if results == nil {
		results = []*types.BacktestResult{}
	}
	s.writeJSON(w, http.StatusOK, backtestResponse{Results: results})
}

func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	infos, err := s.stocks.ReadStockInfos()
	if err != nil {
		s.log.Error("read stock infos", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "fundamentals unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(types.DateFormat, value)
	if err != nil {
		return time.Time{}, err
	}
	return d.UTC(), nil
}

func collectTickers(cfgs []types.PortfolioConfig, benchmark string) []string {
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
