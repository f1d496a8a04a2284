package repository

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"portlab/types"
)

const (
	pricesDirName  = "prices"
	tickersFile    = "tickers.txt"
	stockInfosFile = "preprocessed_data.json"
)

// CSVStore reads and writes the on-disk data layout: a ticker universe list,
// one Date,Close CSV per ticker and a fundamentals JSON document.
//
//	{dir}/tickers.txt
//	{dir}/prices/{TICKER}.csv
//	{dir}/preprocessed_data.json
type CSVStore struct {
	dir string
}

func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{dir: dir}
}

func (s *CSVStore) pricePath(ticker string) string {
	return filepath.Join(s.dir, pricesDirName, ticker+".csv")
}

// WritePrices writes one ticker's close series as a Date,Close CSV.
func (s *CSVStore) WritePrices(ticker string, series types.ValueSeries) error {
	if err := os.MkdirAll(filepath.Join(s.dir, pricesDirName), 0o755); err != nil {
		return fmt.Errorf("create prices dir: %w", err)
	}
	f, err := os.Create(s.pricePath(ticker))
	if err != nil {
		return fmt.Errorf("create price file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if err := cw.Write([]string{"Date", "Close"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range series.Dates {
		record := []string{
			series.Dates[i].Format(types.DateFormat),
			strconv.FormatFloat(series.Values[i], 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadPrices loads one ticker's close series. A missing file or a file with
// no data rows reports ErrNoPrices.
func (s *CSVStore) ReadPrices(ticker string) (types.ValueSeries, error) {
	f, err := os.Open(s.pricePath(ticker))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.ValueSeries{}, fmt.Errorf("ticker %s: %w", ticker, ErrNoPrices)
		}
		return types.ValueSeries{}, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return types.ValueSeries{}, fmt.Errorf("read price file %s: %w", ticker, err)
	}
	if len(records) < 2 {
		return types.ValueSeries{}, fmt.Errorf("ticker %s: %w", ticker, ErrNoPrices)
	}

	series := types.ValueSeries{
		Dates:  make([]time.Time, 0, len(records)-1),
		Values: make([]float64, 0, len(records)-1),
	}
	for _, record := range records[1:] {
		if len(record) < 2 {
			continue
		}
		date, err := time.Parse(types.DateFormat, record[0])
		if err != nil {
			return types.ValueSeries{}, fmt.Errorf("parse date %q for %s: %w", record[0], ticker, err)
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return types.ValueSeries{}, fmt.Errorf("parse close %q for %s: %w", record[1], ticker, err)
		}
		series.Dates = append(series.Dates, date.UTC())
		series.Values = append(series.Values, value)
	}
	if series.Empty() {
		return types.ValueSeries{}, fmt.Errorf("ticker %s: %w", ticker, ErrNoPrices)
	}
	return series, nil
}

// WriteTickers persists the ticker universe, one symbol per line.
func (s *CSVStore) WriteTickers(tickers []string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.Create(filepath.Join(s.dir, tickersFile))
	if err != nil {
		return fmt.Errorf("create tickers file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, ticker := range tickers {
		fmt.Fprintln(w, ticker)
	}
	return w.Flush()
}

// ReadTickers loads the ticker universe, skipping blank lines.
func (s *CSVStore) ReadTickers() ([]string, error) {
	f, err := os.Open(filepath.Join(s.dir, tickersFile))
	if err != nil {
		return nil, fmt.Errorf("open tickers file: %w", err)
	}
	defer f.Close()

	var tickers []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if ticker := strings.TrimSpace(scanner.Text()); ticker != "" {
			tickers = append(tickers, ticker)
		}
	}
	return tickers, scanner.Err()
}

// WriteStockInfos persists the fundamentals snapshot document.
func (s *CSVStore) WriteStockInfos(infos []types.StockInfo) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := json.MarshalIndent(infos, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal stock infos: %w", err)
	}
	return os.WriteFile(filepath.Join(s.dir, stockInfosFile), data, 0o644)
}

func (s *CSVStore) ReadStockInfos() ([]types.StockInfo, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, stockInfosFile))
	if err != nil {
		return nil, fmt.Errorf("read stock infos: %w", err)
	}
	var infos []types.StockInfo
	if err := json.Unmarshal(data, &infos); err != nil {
		return nil, fmt.Errorf("unmarshal stock infos: %w", err)
	}
	return infos, nil
}

// LoadPriceTable assembles the price table for a set of tickers from the
// per-ticker CSVs. Tickers without a readable price file are left out; a
// later Restrict on them reports ErrTickerNotFound.
func (s *CSVStore) LoadPriceTable(ctx context.Context, tickers []string, start, end time.Time) (*types.PriceTable, error) {
	columns := make(map[string]types.ValueSeries, len(tickers))
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		series, err := s.ReadPrices(ticker)
		if err != nil {
			if errors.Is(err, ErrNoPrices) {
				continue
			}
			return nil, err
		}
		columns[ticker] = series
	}
	return buildPriceTable(columns).Between(start, end), nil
}
