package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/l1jgo/assetd/internal/asset"
)

// AssetRow represents a row from the assets table.
type AssetRow struct {
	ResourceID string
	Name       string
	Type       string
	FileHash   *string
	FileURL    *string
	FileName   *string
	FileSize   *int64
	Data       []byte // raw JSONB
	Preload    bool
}

// AssetRepo stores the asset table of contents.
type AssetRepo struct {
	db *DB
}

func NewAssetRepo(db *DB) *AssetRepo {
	return &AssetRepo{db: db}
}

// LoadTOC reads every stored asset as a table of contents.
func (r *AssetRepo) LoadTOC(ctx context.Context) (asset.TOC, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT resource_id, name, type, file_hash, file_url, file_name, file_size, data, preload
		 FROM assets ORDER BY resource_id`)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	toc := asset.TOC{}
	for rows.Next() {
		var row AssetRow
		if err := rows.Scan(
			&row.ResourceID, &row.Name, &row.Type, &row.FileHash, &row.FileURL,
			&row.FileName, &row.FileSize, &row.Data, &row.Preload,
		); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		e, err := row.Entry()
		if err != nil {
			return nil, err
		}
		toc[row.ResourceID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return toc, nil
}

// Upsert inserts or replaces the stored entry for id.
func (r *AssetRepo) Upsert(ctx context.Context, id string, e asset.Entry) error {
	row, err := NewAssetRow(id, e)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO assets (resource_id, name, type, file_hash, file_url, file_name, file_size, data, preload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (resource_id) DO UPDATE SET
		   name = EXCLUDED.name, type = EXCLUDED.type,
		   file_hash = EXCLUDED.file_hash, file_url = EXCLUDED.file_url,
		   file_name = EXCLUDED.file_name, file_size = EXCLUDED.file_size,
		   data = EXCLUDED.data, preload = EXCLUDED.preload, updated_at = now()`,
		row.ResourceID, row.Name, row.Type, row.FileHash, row.FileURL,
		row.FileName, row.FileSize, row.Data, row.Preload,
	)
	if err != nil {
		return fmt.Errorf("upsert asset %s: %w", id, err)
	}
	return nil
}

// Count returns the number of stored assets.
func (r *AssetRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM assets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count assets: %w", err)
	}
	return n, nil
}

// NewAssetRow flattens a toc entry into its table representation.
func NewAssetRow(id string, e asset.Entry) (AssetRow, error) {
	row := AssetRow{
		ResourceID: id,
		Name:       e.Name,
		Type:       e.Type.String(),
		Preload:    e.Preload,
	}
	if f := e.File; f != nil {
		row.FileHash = nullable(f.Hash)
		row.FileURL = &f.URL
		row.FileName = nullable(f.Filename)
		if f.Size != 0 {
			size := f.Size
			row.FileSize = &size
		}
	}
	if e.Data != nil {
		raw, err := json.Marshal(e.Data)
		if err != nil {
			return AssetRow{}, fmt.Errorf("encode data for %s: %w", id, err)
		}
		row.Data = raw
	}
	return row, nil
}

// Entry converts the row back into a toc entry.
func (row AssetRow) Entry() (asset.Entry, error) {
	typ, err := asset.ParseType(row.Type)
	if err != nil {
		return asset.Entry{}, fmt.Errorf("asset %s: %w", row.ResourceID, err)
	}
	e := asset.Entry{
		ResourceID: row.ResourceID,
		Name:       row.Name,
		Type:       typ,
		Preload:    row.Preload,
	}
	if row.FileURL != nil {
		e.File = &asset.File{URL: *row.FileURL}
		if row.FileHash != nil {
			e.File.Hash = *row.FileHash
		}
		if row.FileName != nil {
			e.File.Filename = *row.FileName
		}
		if row.FileSize != nil {
			e.File.Size = *row.FileSize
		}
	}
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &e.Data); err != nil {
			return asset.Entry{}, fmt.Errorf("decode data for %s: %w", row.ResourceID, err)
		}
	}
	return e, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
