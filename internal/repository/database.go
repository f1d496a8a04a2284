package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Global error declarations.
var (
	ErrAssetNotFound = errors.New("asset not found in datasource")
	ErrNoPrices      = errors.New("no prices found in datasource")
)

type assetRow struct {
	ID         int32
	Ticker     string
	Name       string
	Sector     string
	CreatedAt  *time.Time
	ModifiedAt *time.Time
}

type priceRow struct {
	Date  *time.Time
	Close decimal.Decimal
}

type assetsRepository interface {
	GetAssetByTicker(ctx context.Context, ticker string) (assetRow, error)
	UpsertAsset(ctx context.Context, ticker, name, sector string) (assetRow, error)
}

type pricesRepository interface {
	GetPrices(ctx context.Context, assetID int32, start, end *time.Time) ([]priceRow, error)
	SavePrices(ctx context.Context, assetID int32, rows []priceRow) (int64, error)
}

// Database holds the connection pool and the asset/price queries against the
// assets and daily_prices tables.
type Database struct {
	assets assetsRepository
	prices pricesRepository
	conn   *pgxpool.Pool
}

// NewDatabase creates a new Database instance and verifies connectivity.
func NewDatabase(dbURL string) (Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return Database{}, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal so NUMERIC closes scan losslessly.
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return Database{}, err
	}
	// Ensure the connection is established.
	if err := conn.Ping(context.Background()); err != nil {
		return Database{}, err
	}

	q := queries{conn: conn}
	return Database{
		assets: q,
		prices: q,
		conn:   conn}, nil
}

func (db *Database) Close() {
	if db.conn != nil {
		db.conn.Close()
	}
}

// queries implements the repository interfaces against the pool.
type queries struct {
	conn *pgxpool.Pool
}

const getAssetByTickerSQL = `
SELECT id, ticker, name, sector, created_at, modified_at
FROM assets
WHERE ticker = $1`

func (q queries) GetAssetByTicker(ctx context.Context, ticker string) (assetRow, error) {
	var row assetRow
	err := q.conn.QueryRow(ctx, getAssetByTickerSQL, ticker).Scan(
		&row.ID, &row.Ticker, &row.Name, &row.Sector, &row.CreatedAt, &row.ModifiedAt)
	return row, err
}

const upsertAssetSQL = `
INSERT INTO assets (ticker, name, sector, created_at, modified_at)
VALUES ($1, $2, $3, now(), now())
ON CONFLICT (ticker)
DO UPDATE SET name = EXCLUDED.name, sector = EXCLUDED.sector, modified_at = now()
RETURNING id, ticker, name, sector, created_at, modified_at`

func (q queries) UpsertAsset(ctx context.Context, ticker, name, sector string) (assetRow, error) {
	var row assetRow
	err := q.conn.QueryRow(ctx, upsertAssetSQL, ticker, name, sector).Scan(
		&row.ID, &row.Ticker, &row.Name, &row.Sector, &row.CreatedAt, &row.ModifiedAt)
	return row, err
}

const getPricesSQL = `
SELECT date, close
FROM daily_prices
WHERE asset_id = $1
  AND ($2::date IS NULL OR date >= $2)
  AND ($3::date IS NULL OR date <= $3)
ORDER BY date`

func (q queries) GetPrices(ctx context.Context, assetID int32, start, end *time.Time) ([]priceRow, error) {
	rows, err := q.conn.Query(ctx, getPricesSQL, assetID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prices []priceRow
	for rows.Next() {
		var row priceRow
		if err := rows.Scan(&row.Date, &row.Close); err != nil {
			return nil, err
		}
		prices = append(prices, row)
	}
	return prices, rows.Err()
}

func (q queries) SavePrices(ctx context.Context, assetID int32, rows []priceRow) (int64, error) {
	return q.conn.CopyFrom(ctx,
		pgx.Identifier{"daily_prices"},
		[]string{"asset_id", "date", "close"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return []any{assetID, *rows[i].Date, rows[i].Close}, nil
		}))
}
