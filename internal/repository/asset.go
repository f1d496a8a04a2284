package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"portlab/types"
)

// GetAssetByTicker retrieves a types.Asset by its ticker.
func (db *Database) GetAssetByTicker(ctx context.Context, ticker string) (*types.Asset, error) {
	asset, err := db.assets.GetAssetByTicker(ctx, ticker)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ticker %s: %w", ticker, ErrAssetNotFound)
		}
		return nil, err
	}
	return convertAsset(asset), nil
}

// UpsertAsset inserts the asset or refreshes its name and sector when the
// ticker already exists.
func (db *Database) UpsertAsset(ctx context.Context, ticker, name, sector string) (*types.Asset, error) {
	asset, err := db.assets.UpsertAsset(ctx, ticker, name, sector)
	if err != nil {
		return nil, fmt.Errorf("upsert asset %s: %w", ticker, err)
	}
	return convertAsset(asset), nil
}

func convertAsset(row assetRow) *types.Asset {
	asset := &types.Asset{
		Id:     int(row.ID),
		Ticker: row.Ticker,
		Name:   row.Name,
		Sector: row.Sector,
	}
	if row.CreatedAt != nil {
		asset.CreatedAt = *row.CreatedAt
	}
	if row.ModifiedAt != nil {
		asset.ModifiedAt = *row.ModifiedAt
	}
	return asset
}
