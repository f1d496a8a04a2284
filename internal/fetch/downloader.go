package fetch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"portlab/types"
)

// PriceWriter persists one ticker's fetched close series. The CSV store
// satisfies it directly; the Postgres store is adapted in the CLI.
type PriceWriter interface {
	WritePrices(ticker string, series types.ValueSeries) error
}

// Downloader fans price and fundamentals fetches out over a bounded worker
// pool. Failures are isolated per ticker: they are logged and counted, never
// propagated, so one delisted symbol cannot sink a refresh.
type Downloader struct {
	client   *Client
	writer   PriceWriter
	workers  int
	progress bool
	log      *zap.Logger
}

func NewDownloader(client *Client, writer PriceWriter, workers int, progress bool, log *zap.Logger) *Downloader {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Downloader{
		client:   client,
		writer:   writer,
		workers:  workers,
		progress: progress,
		log:      log,
	}
}

// DownloadPrices fetches and persists the close history of every ticker,
// returning how many succeeded.
func (d *Downloader) DownloadPrices(ctx context.Context, tickers []string, start time.Time) (int, error) {
	var bar *progressbar.ProgressBar
	if d.progress {
		bar = newProgressBar(len(tickers), "Downloading prices...")
	}

	var succeeded int
	var mu sync.Mutex
	err := d.forEach(ctx, tickers, func(ticker string) {
		defer func() {
			if bar != nil {
				bar.Add(1)
			}
		}()
		series, err := d.client.DailyCloses(ctx, ticker, start)
		if err != nil {
			d.log.Warn("price download failed", zap.String("ticker", ticker), zap.Error(err))
			return
		}
		if err := d.writer.WritePrices(ticker, series); err != nil {
			d.log.Warn("price write failed", zap.String("ticker", ticker), zap.Error(err))
			return
		}
		mu.Lock()
		succeeded++
		mu.Unlock()
	})
	return succeeded, err
}

// FetchStockInfos fetches the fundamentals snapshot for every ticker in the
// universe and tags index membership. Tickers the provider has no
// fundamentals for are skipped.
func (d *Downloader) FetchStockInfos(ctx context.Context, universe *Universe) ([]types.StockInfo, error) {
	var bar *progressbar.ProgressBar
	if d.progress {
		bar = newProgressBar(len(universe.Tickers), "Fetching fundamentals...")
	}

	var mu sync.Mutex
	var infos []types.StockInfo
	err := d.forEach(ctx, universe.Tickers, func(ticker string) {
		defer func() {
			if bar != nil {
				bar.Add(1)
			}
		}()
		info, err := d.client.StockInfo(ctx, ticker)
		if err != nil {
			if !errors.Is(err, ErrNoData) {
				d.log.Warn("fundamentals fetch failed", zap.String("ticker", ticker), zap.Error(err))
			}
			return
		}
		info.InSP500 = universe.SP500[ticker]
		info.InNasdaq100 = universe.Nasdaq100[ticker]
		mu.Lock()
		infos = append(infos, *info)
		mu.Unlock()
	})
	return infos, err
}

func (d *Downloader) forEach(ctx context.Context, tickers []string, fn func(ticker string)) error {
	sem := make(chan struct{}, d.workers)
	var wg sync.WaitGroup
	for _, ticker := range tickers {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(ticker string) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(ticker)
		}(ticker)
	}
	wg.Wait()
	return ctx.Err()
}

// Shard returns the sliceIndex-th of totalSlices contiguous ticker slices,
// sized by ceiling division so the slices cover the whole input. An empty
// shard is a normal outcome for the tail slices.
func Shard(tickers []string, sliceIndex, totalSlices int) []string {
	if totalSlices < 1 || sliceIndex < 0 || sliceIndex >= totalSlices {
		return nil
	}
	size := (len(tickers) + totalSlices - 1) / totalSlices
	start := sliceIndex * size
	if start >= len(tickers) {
		return nil
	}
	end := start + size
	if end > len(tickers) {
		end = len(tickers)
	}
	return tickers[start:end]
}

func newProgressBar(maxTicks int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
