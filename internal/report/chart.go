package report

import (
	"fmt"
	"os"

	"github.com/vicanso/go-charts/v2"

	"portlab/types"
)

// RenderEquityChart renders one portfolio's value series as a line chart
// PNG.
func RenderEquityChart(result *types.BacktestResult) ([]byte, error) {
	if len(result.PortfolioHistory) == 0 {
		return nil, fmt.Errorf("portfolio %q has no history to chart", result.Name)
	}

	values := make([]float64, len(result.PortfolioHistory))
	xLabels := make([]string, len(result.PortfolioHistory))
	minVal, maxVal := result.PortfolioHistory[0].Value, result.PortfolioHistory[0].Value
	for i, point := range result.PortfolioHistory {
		values[i] = point.Value
		xLabels[i] = point.Date.Format(types.DateFormat)
		if point.Value < minVal {
			minVal = point.Value
		}
		if point.Value > maxVal {
			maxVal = point.Value
		}
	}

	// Pad the Y axis so the line does not hug the chart frame.
	padding := (maxVal - minVal) * 0.05
	if padding == 0 {
		padding = maxVal * 0.05
	}
	yMin := minVal - padding
	yMax := maxVal + padding

	title := fmt.Sprintf("%s\nCAGR: %.2f%% | Sharpe: %.2f | Vol: %.2f%% | MaxDD: %.2f%%",
		result.Name, result.CAGR*100, result.SharpeRatio, result.Volatility*100, result.MDD*100)

	splitNum := 6
	if len(xLabels) <= 30 {
		splitNum = len(xLabels) / 3
		if splitNum < 3 {
			splitNum = 3
		}
	}

	p, err := charts.LineRender(
		[][]float64{values},
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.LegendLabelsOptionFunc([]string{result.Name}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return p.Bytes()
}

// WriteEquityChartFile renders the chart and writes it to path.
func WriteEquityChartFile(path string, result *types.BacktestResult) error {
	png, err := RenderEquityChart(result)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("write chart file: %w", err)
	}
	return nil
}
