package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"portlab/types"
)

// WriteHistoryCSVFile writes one portfolio's value series to a CSV file at
// the given path.
func WriteHistoryCSVFile(path string, result *types.BacktestResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create history file: %w", err)
	}
	defer f.Close()

	return WriteHistoryCSV(f, result)
}

// WriteHistoryCSV writes the value series to any io.Writer as CSV.
// You can pass os.Stdout for debugging, or a file.
func WriteHistoryCSV(w io.Writer, result *types.BacktestResult) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"date", "value"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, point := range result.PortfolioHistory {
		record := []string{
			point.Date.Format(types.DateFormat),
			strconv.FormatFloat(point.Value, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
