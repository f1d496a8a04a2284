package repository

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"portlab/types"
)

func TestCSVStore_PricesRoundTrip(t *testing.T) {
	store := NewCSVStore(t.TempDir())
	series := types.ValueSeries{
		Dates:  []time.Time{day(2020, 1, 2), day(2020, 1, 3), day(2020, 1, 6)},
		Values: []float64{100, 101.5, 99.25},
	}

	if err := store.WritePrices("AAPL", series); err != nil {
		t.Fatalf("WritePrices() error = %v", err)
	}
	got, err := store.ReadPrices("AAPL")
	if err != nil {
		t.Fatalf("ReadPrices() error = %v", err)
	}
	if got.Len() != series.Len() {
		t.Fatalf("ReadPrices() length = %d, want %d", got.Len(), series.Len())
	}
	for i := range series.Dates {
		if !got.Dates[i].Equal(series.Dates[i]) {
			t.Fatalf("ReadPrices() date[%d] = %s, want %s", i, got.Dates[i], series.Dates[i])
		}
		if got.Values[i] != series.Values[i] {
			t.Fatalf("ReadPrices() value[%d] = %v, want %v", i, got.Values[i], series.Values[i])
		}
	}
}

func TestCSVStore_ReadPricesMissing(t *testing.T) {
	store := NewCSVStore(t.TempDir())
	if _, err := store.ReadPrices("GHOST"); !errors.Is(err, ErrNoPrices) {
		t.Fatalf("ReadPrices() error = %v, want ErrNoPrices", err)
	}
}

func TestCSVStore_TickersRoundTrip(t *testing.T) {
	store := NewCSVStore(t.TempDir())
	tickers := []string{"AAPL", "MSFT", "NVDA"}

	if err := store.WriteTickers(tickers); err != nil {
		t.Fatalf("WriteTickers() error = %v", err)
	}
	got, err := store.ReadTickers()
	if err != nil {
		t.Fatalf("ReadTickers() error = %v", err)
	}
	if len(got) != len(tickers) {
		t.Fatalf("ReadTickers() = %v, want %v", got, tickers)
	}
	for i := range tickers {
		if got[i] != tickers[i] {
			t.Fatalf("ReadTickers()[%d] = %q, want %q", i, got[i], tickers[i])
		}
	}
}

func TestCSVStore_StockInfosRoundTrip(t *testing.T) {
	store := NewCSVStore(t.TempDir())
	pe := 28.5
	sector := "Technology"
	infos := []types.StockInfo{
		{Ticker: "AAPL", TrailingPE: &pe, Sector: &sector, InSP500: true},
		{Ticker: "PLTR", InNasdaq100: true},
	}

	if err := store.WriteStockInfos(infos); err != nil {
		t.Fatalf("WriteStockInfos() error = %v", err)
	}
	got, err := store.ReadStockInfos()
	if err != nil {
		t.Fatalf("ReadStockInfos() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadStockInfos() length = %d, want 2", len(got))
	}
	if got[0].TrailingPE == nil || *got[0].TrailingPE != pe {
		t.Fatalf("ReadStockInfos() trailingPE = %v, want %v", got[0].TrailingPE, pe)
	}
	if got[1].TrailingPE != nil {
		t.Fatalf("ReadStockInfos() trailingPE = %v, want nil", *got[1].TrailingPE)
	}
	if !got[0].InSP500 || got[0].InNasdaq100 {
		t.Fatalf("ReadStockInfos() membership flags = %+v", got[0])
	}
}

func TestCSVStore_LoadPriceTable(t *testing.T) {
	store := NewCSVStore(t.TempDir())
	// Disjoint date sets merge into one strictly increasing axis with NaN
	// gaps on each side.
	aaa := types.ValueSeries{
		Dates:  []time.Time{day(2020, 1, 2), day(2020, 1, 3)},
		Values: []float64{10, 11},
	}
	bbb := types.ValueSeries{
		Dates:  []time.Time{day(2020, 1, 6), day(2020, 1, 7)},
		Values: []float64{20, 21},
	}
	if err := store.WritePrices("AAA", aaa); err != nil {
		t.Fatalf("WritePrices() error = %v", err)
	}
	if err := store.WritePrices("BBB", bbb); err != nil {
		t.Fatalf("WritePrices() error = %v", err)
	}

	table, err := store.LoadPriceTable(context.Background(), []string{"AAA", "BBB", "GHOST"}, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("LoadPriceTable() error = %v", err)
	}
	if table.Len() != 4 {
		t.Fatalf("LoadPriceTable() axis length = %d, want 4", table.Len())
	}
	for i := 1; i < table.Len(); i++ {
		if !table.Dates[i].After(table.Dates[i-1]) {
			t.Fatalf("LoadPriceTable() axis not strictly increasing: %v", table.Dates)
		}
	}
	if _, ok := table.Closes["GHOST"]; ok {
		t.Fatal("LoadPriceTable() kept a column for a ticker without prices")
	}
	if !math.IsNaN(table.Closes["AAA"][3]) || !math.IsNaN(table.Closes["BBB"][0]) {
		t.Fatal("LoadPriceTable() did not NaN-fill the gaps")
	}
	if _, err := table.Restrict([]string{"GHOST"}); !errors.Is(err, types.ErrTickerNotFound) {
		t.Fatalf("Restrict() error = %v, want ErrTickerNotFound", err)
	}

	clamped, err := store.LoadPriceTable(context.Background(), []string{"AAA", "BBB"}, day(2020, 1, 3), day(2020, 1, 6))
	if err != nil {
		t.Fatalf("LoadPriceTable() error = %v", err)
	}
	if clamped.Len() != 2 {
		t.Fatalf("LoadPriceTable() clamped length = %d, want 2", clamped.Len())
	}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}
