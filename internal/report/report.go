// Package report emits the downstream artifacts of a backtest run: a
// results JSON document, per-portfolio value-series CSVs, equity chart PNGs
// and a formatted console summary.
package report

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"portlab/types"
)

// WriteResultsJSON writes the full result set as an indented JSON array.
func WriteResultsJSON(path string, results []*types.BacktestResult) error {
	data, err := json.MarshalIndent(results, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write results file: %w", err)
	}
	return nil
}
