package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portlab/types"
)

type stubPriceSource struct {
	table *types.PriceTable
	err   error
}

func (s stubPriceSource) LoadPriceTable(_ context.Context, tickers []string, start, end time.Time) (*types.PriceTable, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.table.Between(start, end), nil
}

type stubStockSource struct {
	infos []types.StockInfo
	err   error
}

func (s stubStockSource) ReadStockInfos() ([]types.StockInfo, error) {
	return s.infos, s.err
}

func testTable() *types.PriceTable {
	dates := make([]time.Time, 0, 300)
	d := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	for len(dates) < 300 {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	closes := map[string][]float64{"AAPL": {}, "SPY": {}}
	for i := range dates {
		closes["AAPL"] = append(closes["AAPL"], 100+float64(i))
		closes["SPY"] = append(closes["SPY"], 300+0.5*float64(i))
	}
	return &types.PriceTable{Dates: dates, Closes: closes}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := New(
		stubPriceSource{table: testTable()},
		stubStockSource{infos: []types.StockInfo{{Ticker: "AAPL", InSP500: true}}},
		2, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postBacktest(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/backtest", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandleBacktest(t *testing.T) {
	ts := newTestServer(t)

	resp := postBacktest(t, ts, `{
		"portfolios": [{
			"name": "apple",
			"tickers": ["AAPL"],
			"weights": [100],
			"rebalancingPeriod": "monthly"
		}],
		"initialAmount": 10000,
		"benchmark": "SPY"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded backtestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.Len(t, decoded.Results, 1)

	result := decoded.Results[0]
	assert.Equal(t, "apple", result.Name)
	assert.Equal(t, 10000.0, result.PortfolioHistory[0].Value)
	assert.NotNil(t, result.Beta)
	assert.NotNil(t, result.Alpha)
	assert.Positive(t, result.CAGR)
}

func TestHandleBacktestBadRequests(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"portfolios": [`},
		{"no portfolios", `{"initialAmount": 1000}`},
		{"non-positive amount", `{
			"portfolios": [{"name": "x", "tickers": ["AAPL"], "weights": [100]}],
			"initialAmount": 0
		}`},
		{"weights mismatch", `{
			"portfolios": [{"name": "x", "tickers": ["AAPL"], "weights": [50, 50]}],
			"initialAmount": 1000
		}`},
		{"bad start date", `{
			"portfolios": [{"name": "x", "tickers": ["AAPL"], "weights": [100]}],
			"initialAmount": 1000,
			"startDate": "01/02/2020"
		}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postBacktest(t, ts, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestHandleBacktestUnknownTicker(t *testing.T) {
	ts := newTestServer(t)

	resp := postBacktest(t, ts, `{
		"portfolios": [{"name": "ghost", "tickers": ["ZZZ"], "weights": [100]}],
		"initialAmount": 1000
	}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHandleBacktestUnknownBenchmark(t *testing.T) {
	ts := newTestServer(t)

	resp := postBacktest(t, ts, `{
		"portfolios": [{"name": "apple", "tickers": ["AAPL"], "weights": [100]}],
		"initialAmount": 1000,
		"benchmark": "ZZZ"
	}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHandleBacktestDateClamp(t *testing.T) {
	ts := newTestServer(t)

	resp := postBacktest(t, ts, `{
		"portfolios": [{"name": "apple", "tickers": ["AAPL"], "weights": [100]}],
		"initialAmount": 1000,
		"startDate": "2020-03-02",
		"endDate": "2020-04-30"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded backtestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.Len(t, decoded.Results, 1)

	history := decoded.Results[0].PortfolioHistory
	require.NotEmpty(t, history)
	assert.False(t, history[0].Date.Before(time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC)))
	assert.False(t, history[len(history)-1].Date.After(time.Date(2020, 4, 30, 0, 0, 0, 0, time.UTC)))
}

func TestHandleStocks(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/stocks")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var infos []types.StockInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "AAPL", infos[0].Ticker)
	assert.True(t, infos[0].InSP500)
}

func TestHandleHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
