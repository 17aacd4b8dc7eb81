package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	imagedup "github.com/anatolykoptev/go-imagedup"
)

// This file implements the imagedup.Store contract: the four operations the
// dedup engine needs, and nothing more.

// ItemsMissingFingerprint returns up to limit records that have no stored
// fingerprint but do have a locator (local path or image URL). The byte
// source comes from the configured resolver; records it cannot resolve are
// returned with a nil source, which the engine skips.
func (s *SQLiteStore) ItemsMissingFingerprint(ctx context.Context, limit int) ([]imagedup.PendingItem, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, COALESCE(local_path, ''), COALESCE(image_url, '')
FROM images
WHERE (phash IS NULL OR phash = '')
  AND (COALESCE(local_path, '') != '' OR COALESCE(image_url, '') != '')
ORDER BY id
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: reading pending items: %w", err)
	}
	defer rows.Close()

	var items []imagedup.PendingItem
	for rows.Next() {
		var (
			id        int64
			localPath string
			imageURL  string
		)
		if err := rows.Scan(&id, &localPath, &imageURL); err != nil {
			return nil, fmt.Errorf("store: scanning pending item: %w", err)
		}
		items = append(items, imagedup.PendingItem{
			ID:     id,
			Source: s.resolve(localPath, imageURL),
		})
	}
	return items, rows.Err()
}

// SaveFingerprint persists a computed fingerprint.
func (s *SQLiteStore) SaveFingerprint(ctx context.Context, id int64, fp imagedup.Fingerprint) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE images SET phash = ? WHERE id = ?", fp.String(), id)
	if err != nil {
		return fmt.Errorf("store: saving fingerprint for %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("store: no image with id %d", id)
	}
	return nil
}

// FingerprintedItems returns every record with a stored fingerprint,
// together with its quality score for cluster resolution.
func (s *SQLiteStore) FingerprintedItems(ctx context.Context) ([]imagedup.FingerprintedItem, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, phash, quality_score
FROM images
WHERE phash IS NOT NULL AND phash != ''`)
	if err != nil {
		return nil, fmt.Errorf("store: scanning fingerprinted items: %w", err)
	}
	defer rows.Close()

	var items []imagedup.FingerprintedItem
	for rows.Next() {
		var (
			item    imagedup.FingerprintedItem
			quality sql.NullFloat64
		)
		if err := rows.Scan(&item.ID, &item.Fingerprint, &quality); err != nil {
			return nil, fmt.Errorf("store: scanning fingerprinted item: %w", err)
		}
		item.Quality = quality.Float64
		item.Scored = quality.Valid
		items = append(items, item)
	}
	return items, rows.Err()
}

// ApplyResolution marks the demoted records rejected with the provenance
// note and stamps curated_at. The canonical record is never altered, even if
// it appears in demotedIDs by mistake.
func (s *SQLiteStore) ApplyResolution(ctx context.Context, canonicalID int64, demotedIDs []int64, note string) error {
	if len(demotedIDs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: applying resolution: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Unix()
	for _, id := range demotedIDs {
		if id == canonicalID {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE images SET status = ?, notes = ?, curated_at = ? WHERE id = ?",
			StatusRejected, note, now, id); err != nil {
			return fmt.Errorf("store: demoting image %d: %w", id, err)
		}
	}
	return tx.Commit()
}
