package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no asset matches the requested ID.
var ErrNotFound = errors.New("asset not found")

const assetColumns = `id, filename, storage_path, size_bytes, duration_seconds, origin,
	source_ids, share_token, share_expiry, shareable_link, created_at, updated_at`

// CreateAsset persists a new asset. An ID is generated when a.ID is empty;
// CreatedAt and UpdatedAt are always set by the store.
func (d *Database) CreateAsset(ctx context.Context, a *Asset) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_asset", start, err) }()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Origin == "" {
		a.Origin = OriginUpload
	}
	now := d.now().UTC().Truncate(time.Millisecond)
	a.CreatedAt = now
	a.UpdatedAt = now

	var sourceIDs sql.NullString
	if len(a.SourceIDs) > 0 {
		encoded, marshalErr := json.Marshal(a.SourceIDs)
		if marshalErr != nil {
			err = marshalErr
			return fmt.Errorf("failed to encode source ids: %w", err)
		}
		sourceIDs = sql.NullString{String: string(encoded), Valid: true}
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO assets (id, filename, storage_path, size_bytes, duration_seconds, origin,
			source_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Filename, a.StoragePath, a.SizeBytes, a.DurationSeconds, string(a.Origin),
		sourceIDs, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert asset: %w", err)
	}
	return nil
}

// GetAsset fetches a single asset. It returns ErrNotFound when absent.
func (d *Database) GetAsset(ctx context.Context, id string) (*Asset, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_asset", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, "SELECT "+assetColumns+" FROM assets WHERE id = ?", id)
	var asset *Asset
	asset, err = scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// GetAssetsByIDs fetches every asset whose ID is in ids. Unknown IDs are
// silently skipped and duplicates resolve once, so callers compare the
// result length against the number of distinct IDs they asked for.
func (d *Database) GetAssetsByIDs(ctx context.Context, ids []string) ([]*Asset, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_assets", start, err) }()

	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		"SELECT "+assetColumns+" FROM assets WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		var asset *Asset
		asset, err = scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	err = rows.Err()
	return assets, err
}

// SetShare stores a share token, its expiry and the derived link in one
// statement, overwriting any previous token.
func (d *Database) SetShare(ctx context.Context, id, token string, expiry time.Time, link string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_share", start, err) }()

	if token == "" {
		err = errors.New("share token must not be empty")
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `
		UPDATE assets
		SET share_token = ?, share_expiry = ?, shareable_link = ?, updated_at = ?
		WHERE id = ?
	`, token, expiry.UnixMilli(), link, d.now().UnixMilli(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// ClearShare removes the share token, expiry and link together.
func (d *Database) ClearShare(ctx context.Context, id string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("clear_share", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `
		UPDATE assets
		SET share_token = NULL, share_expiry = NULL, shareable_link = NULL, updated_at = ?
		WHERE id = ?
	`, d.now().UnixMilli(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// CalculateStats counts assets by origin and unexpired shares.
func (d *Database) CalculateStats(ctx context.Context) (LibraryStats, error) {
	stats := LibraryStats{AssetsByOrigin: make(map[string]int)}

	start := time.Now()
	var err error
	defer func() { recordQuery("count_assets", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT origin, COUNT(*) FROM assets GROUP BY origin")
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var origin string
		var count int
		if err = rows.Scan(&origin, &count); err != nil {
			return stats, err
		}
		stats.AssetsByOrigin[origin] = count
	}
	if err = rows.Err(); err != nil {
		return stats, err
	}

	shareStart := time.Now()
	err = d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM assets WHERE share_token IS NOT NULL AND share_expiry >= ?",
		d.now().UnixMilli(),
	).Scan(&stats.ActiveShares)
	recordQuery("count_active_shares", shareStart, err)

	return stats, err
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(row rowScanner) (*Asset, error) {
	var (
		a         Asset
		origin    string
		sourceIDs sql.NullString
		token     sql.NullString
		expiry    sql.NullInt64
		link      sql.NullString
		createdAt int64
		updatedAt int64
	)

	err := row.Scan(&a.ID, &a.Filename, &a.StoragePath, &a.SizeBytes, &a.DurationSeconds,
		&origin, &sourceIDs, &token, &expiry, &link, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	a.Origin = Origin(origin)
	if sourceIDs.Valid && sourceIDs.String != "" {
		if err := json.Unmarshal([]byte(sourceIDs.String), &a.SourceIDs); err != nil {
			return nil, fmt.Errorf("failed to decode source ids for %s: %w", a.ID, err)
		}
	}
	if token.Valid && expiry.Valid {
		a.ShareToken = token.String
		t := time.UnixMilli(expiry.Int64).UTC()
		a.ShareExpiry = &t
	}
	a.ShareableLink = link.String
	a.CreatedAt = time.UnixMilli(createdAt).UTC()
	a.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	return &a, nil
}
