package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"portlab/types"
)

// GetPrices returns the daily closes stored for one asset, oldest first. A
// zero start or end leaves that bound open.
func (db *Database) GetPrices(ctx context.Context, assetID int, start, end time.Time) (types.ValueSeries, error) {
	rows, err := db.prices.GetPrices(ctx, int32(assetID), optionalDate(start), optionalDate(end))
	if err != nil {
		return types.ValueSeries{}, err
	}
	if len(rows) == 0 {
		return types.ValueSeries{}, fmt.Errorf("asset %d: %w", assetID, ErrNoPrices)
	}

	series := types.ValueSeries{
		Dates:  make([]time.Time, 0, len(rows)),
		Values: make([]float64, 0, len(rows)),
	}
	for _, row := range rows {
		series.Dates = append(series.Dates, row.Date.UTC())
		series.Values = append(series.Values, row.Close.InexactFloat64())
	}
	return series, nil
}

// SavePrices bulk-inserts a close series for one asset via COPY.
func (db *Database) SavePrices(ctx context.Context, assetID int, series types.ValueSeries) error {
	rows := make([]priceRow, series.Len())
	for i := range rows {
		date := series.Dates[i]
		rows[i] = priceRow{
			Date:  &date,
			Close: decimal.NewFromFloat(series.Values[i]),
		}
	}
	n, err := db.prices.SavePrices(ctx, int32(assetID), rows)
	if err != nil {
		return fmt.Errorf("save prices for asset %d: %w", assetID, err)
	}
	if n != int64(len(rows)) {
		return fmt.Errorf("save prices for asset %d: copied %d of %d rows", assetID, n, len(rows))
	}
	return nil
}

// LoadPriceTable assembles the in-memory price table for a set of tickers.
// Tickers without an asset row or without any stored closes are left out of
// the table; a later Restrict on them reports ErrTickerNotFound.
func (db *Database) LoadPriceTable(ctx context.Context, tickers []string, start, end time.Time) (*types.PriceTable, error) {
	columns := make(map[string]types.ValueSeries, len(tickers))
	for _, ticker := range tickers {
		asset, err := db.GetAssetByTicker(ctx, ticker)
		if err != nil {
			if errors.Is(err, ErrAssetNotFound) {
				continue
			}
			return nil, err
		}
		series, err := db.GetPrices(ctx, asset.Id, start, end)
		if err != nil {
			if errors.Is(err, ErrNoPrices) {
				continue
			}
			return nil, err
		}
		columns[ticker] = series
	}
	return buildPriceTable(columns), nil
}

func optionalDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
