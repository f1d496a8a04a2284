package report

import (
	"fmt"
	"io"

	"portlab/types"
)

// PrintReport writes a formatted summary of one backtest result.
func PrintReport(w io.Writer, result *types.BacktestResult) {
	fmt.Fprintf(w, "===== Backtest Report: %s =====\n", result.Name)

	if n := len(result.PortfolioHistory); n > 0 {
		first := result.PortfolioHistory[0]
		last := result.PortfolioHistory[n-1]
		fmt.Fprintf(w, "Start Date:            %s\n", first.Date.Format(types.DateFormat))
		fmt.Fprintf(w, "End Date:              %s\n", last.Date.Format(types.DateFormat))
		fmt.Fprintf(w, "Start Value:           %.2f\n", first.Value)
		fmt.Fprintf(w, "End Value:             %.2f\n", last.Value)
	}

	fmt.Fprintln(w, "\n-- Performance --")
	fmt.Fprintf(w, "CAGR:                  %.2f%%\n", result.CAGR*100)

	fmt.Fprintln(w, "\n-- Risk --")
	fmt.Fprintf(w, "Max Drawdown:          %.2f%%\n", result.MDD*100)
	fmt.Fprintf(w, "Volatility:            %.2f%%\n", result.Volatility*100)
	fmt.Fprintf(w, "Sharpe Ratio:          %.2f\n", result.SharpeRatio)
	fmt.Fprintf(w, "Sortino Ratio:         %.2f\n", result.SortinoRatio)
	fmt.Fprintf(w, "Beta:                  %s\n", formatNullable(result.Beta))
	fmt.Fprintf(w, "Alpha:                 %s\n", formatNullable(result.Alpha))

	fmt.Fprintln(w, "==========================")
}

func formatNullable(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}
