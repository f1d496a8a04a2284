package types

import (
	"errors"
	"fmt"
)

var (
	ErrNoTickers       = errors.New("portfolio has no tickers")
	ErrWeightMismatch  = errors.New("weights do not match tickers")
	ErrDuplicateTicker = errors.New("duplicate ticker")
)

// PortfolioConfig describes one fixed-weight portfolio to backtest. Weights
// are on a 0-100 scale and are divided by 100 before use; they are not
// renormalized, so weights that do not sum to 100 change the portfolio's
// effective exposure.
type PortfolioConfig struct {
	Name              string            `json:"name"`
	Tickers           []string          `json:"tickers"`
	Weights           []float64         `json:"weights"`
	RebalancingPeriod RebalancingPeriod `json:"rebalancingPeriod"`
}

// Validate checks the structural invariants the simulation engine assumes.
func (c PortfolioConfig) Validate() error {
	if len(c.Tickers) == 0 {
		return fmt.Errorf("portfolio %q: %w", c.Name, ErrNoTickers)
	}
	if len(c.Weights) != len(c.Tickers) {
		return fmt.Errorf("portfolio %q: %d weights for %d tickers: %w",
			c.Name, len(c.Weights), len(c.Tickers), ErrWeightMismatch)
	}
	seen := make(map[string]struct{}, len(c.Tickers))
	for _, ticker := range c.Tickers {
		if _, ok := seen[ticker]; ok {
			return fmt.Errorf("portfolio %q: ticker %s: %w", c.Name, ticker, ErrDuplicateTicker)
		}
		seen[ticker] = struct{}{}
	}
	return nil
}
