package store

import (
	"context"
	"encoding/json"
	"time"

	"annotation-insights/internal/model"
)

// SaveFragment stores a curated fragment. CreatedAt is set when empty.
func (s *Store) SaveFragment(ctx context.Context, f *model.Fragment) error {
	value, err := json.Marshal(f.FragmentValue)
	if err != nil {
		return err
	}
	if f.CreatedAt == "" {
		f.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO fragments (id, asset_id, fragment_key, fragment_value, source_run_id, curated_by, forwarded, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.AssetID, f.FragmentKey, string(value), f.SourceRunID, f.CuratedBy, f.Forwarded, f.CreatedAt)
	return err
}

// ListFragments returns the fragments of an asset, oldest first.
func (s *Store) ListFragments(ctx context.Context, assetID int) ([]model.Fragment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, asset_id, fragment_key, fragment_value, source_run_id, curated_by, forwarded, created_at
		 FROM fragments WHERE asset_id = ? ORDER BY created_at, id`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Fragment{}
	for rows.Next() {
		var f model.Fragment
		var value string
		if err := rows.Scan(&f.ID, &f.AssetID, &f.FragmentKey, &value, &f.SourceRunID, &f.CuratedBy, &f.Forwarded, &f.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(value), &f.FragmentValue); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
