// Package store provides the SQLite-backed persisted-record store for the
// imagedup engine. All scraped image records live in a single SQLite
// database file; the engine consumes it through the narrow imagedup.Store
// contract, and the CLI uses the wider record-management surface (insert,
// query, stats, bulk status updates).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	imagedup "github.com/anatolykoptev/go-imagedup"
)

// Image statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Image is one scraped image record.
type Image struct {
	ID          int64
	Source      string // source system, e.g. "pinterest"
	SourceID    string // identifier within the source system
	SourceURL   string // page the image was found on
	ImageURL    string // direct image URL
	LocalPath   string // local file path once downloaded
	Title       string
	Description string
	Prompt      string // generation prompt, when the source has one
	RoomType    string
	StyleTags   []string
	Width       int
	Height      int
	Engagement  int
	Quality     float64
	Scored      bool   // false when Quality was never computed
	Fingerprint string // serialized perceptual hash, empty until computed
	Status      string
	Notes       string
	ScrapedAt   time.Time
	CuratedAt   *time.Time
}

// ListOpts filters and paginates ListImages.
type ListOpts struct {
	Source     string
	RoomType   string
	Status     string
	MinQuality *float64
	Limit      int // default 100
	Offset     int
}

// Stats summarizes the record store.
type Stats struct {
	Total    int64
	BySource map[string]int64
	ByRoom   map[string]int64
	ByStatus map[string]int64
}

// SourceResolver turns an image record's locators into a byte source for
// fingerprinting. The default resolver serves local files only; callers that
// want remote bytes inject their own.
type SourceResolver func(localPath, imageURL string) imagedup.ImageSource

// SQLiteStore implements imagedup.Store plus record management on SQLite.
type SQLiteStore struct {
	db      *sql.DB
	resolve SourceResolver
}

var _ imagedup.Store = (*SQLiteStore)(nil)

// New opens (and if needed creates) the database at path and runs
// migrations. Pass ":memory:" for an in-memory database (testing).
func New(path string) (*SQLiteStore, error) {
	return NewWithResolver(path, defaultResolver)
}

// NewWithResolver is New with a custom byte-source resolver.
func NewWithResolver(path string, resolve SourceResolver) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}
	// One connection: keeps ":memory:" databases coherent and serializes
	// writers the way SQLite wants anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: setting pragma %q: %w", p, err)
		}
	}

	if resolve == nil {
		resolve = defaultResolver
	}
	s := &SQLiteStore{db: db, resolve: resolve}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS images (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	source        TEXT NOT NULL,
	source_id     TEXT NOT NULL,
	source_url    TEXT,
	image_url     TEXT,
	local_path    TEXT,
	title         TEXT,
	description   TEXT,
	prompt        TEXT,
	room_type     TEXT,
	style_tags    TEXT,
	width         INTEGER,
	height        INTEGER,
	engagement    INTEGER,
	quality_score REAL,
	phash         TEXT,
	status        TEXT NOT NULL DEFAULT 'pending',
	notes         TEXT,
	scraped_at    INTEGER NOT NULL,
	curated_at    INTEGER,
	UNIQUE(source, source_id)
);
CREATE INDEX IF NOT EXISTS idx_images_status ON images(status);
CREATE INDEX IF NOT EXISTS idx_images_room ON images(room_type);
CREATE INDEX IF NOT EXISTS idx_images_phash ON images(phash);
`)
	return err
}

// defaultResolver serves local files; records with only a remote URL are
// left unresolved, since fetching bytes is outside this module.
func defaultResolver(localPath, _ string) imagedup.ImageSource {
	if localPath == "" {
		return nil
	}
	return imagedup.FileSource(localPath)
}

// InsertImage inserts a new record, ignoring duplicates on
// (source, source_id). Returns the record's ID, or the existing one when the
// insert was ignored.
func (s *SQLiteStore) InsertImage(ctx context.Context, img *Image) (int64, error) {
	if img.Status == "" {
		img.Status = StatusPending
	}
	tags, err := marshalTags(img.StyleTags)
	if err != nil {
		return 0, err
	}

	scrapedAt := img.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO images
	(source, source_id, source_url, image_url, local_path,
	 title, description, prompt, room_type, style_tags,
	 width, height, engagement, quality_score, phash, status, notes, scraped_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		img.Source, img.SourceID, nullStr(img.SourceURL), nullStr(img.ImageURL), nullStr(img.LocalPath),
		nullStr(img.Title), nullStr(img.Description), nullStr(img.Prompt), nullStr(img.RoomType), tags,
		img.Width, img.Height, img.Engagement, nullQuality(img), nullStr(img.Fingerprint), img.Status, nullStr(img.Notes),
		scrapedAt.Unix())
	if err != nil {
		return 0, fmt.Errorf("store: inserting image: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		var id int64
		err := s.db.QueryRowContext(ctx,
			"SELECT id FROM images WHERE source = ? AND source_id = ?",
			img.Source, img.SourceID).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("store: looking up existing image: %w", err)
		}
		return id, nil
	}
	return res.LastInsertId()
}

// GetImage returns one record by ID, or (nil, nil) when absent.
func (s *SQLiteStore) GetImage(ctx context.Context, id int64) (*Image, error) {
	rows, err := s.db.QueryContext(ctx, selectImage+" WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("store: getting image %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanImage(rows)
}

// ImageExists reports whether a record with the given source identity
// exists.
func (s *SQLiteStore) ImageExists(ctx context.Context, source, sourceID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM images WHERE source = ? AND source_id = ?",
		source, sourceID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: checking image existence: %w", err)
	}
	return true, nil
}

// ListImages returns records matching opts, newest first.
func (s *SQLiteStore) ListImages(ctx context.Context, opts ListOpts) ([]*Image, error) {
	var (
		conds []string
		args  []any
	)
	if opts.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, opts.Source)
	}
	if opts.RoomType != "" {
		conds = append(conds, "room_type = ?")
		args = append(args, opts.RoomType)
	}
	if opts.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, opts.Status)
	}
	if opts.MinQuality != nil {
		conds = append(conds, "quality_score >= ?")
		args = append(args, *opts.MinQuality)
	}

	q := selectImage
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " ORDER BY scraped_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: listing images: %w", err)
	}
	defer rows.Close()

	var out []*Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

// BulkUpdateStatus sets status (and optionally notes) on the given records
// and stamps curated_at.
func (s *SQLiteStore) BulkUpdateStatus(ctx context.Context, ids []int64, status, notes string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: bulk status update: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Unix()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"UPDATE images SET status = ?, notes = COALESCE(NULLIF(?, ''), notes), curated_at = ? WHERE id = ?",
			status, notes, now, id); err != nil {
			return fmt.Errorf("store: updating image %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// Stats returns record counts overall and broken down by source, room type,
// and status.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		BySource: map[string]int64{},
		ByRoom:   map[string]int64{},
		ByStatus: map[string]int64{},
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM images").Scan(&st.Total); err != nil {
		return nil, fmt.Errorf("store: counting images: %w", err)
	}
	for col, dest := range map[string]map[string]int64{
		"source":    st.BySource,
		"room_type": st.ByRoom,
		"status":    st.ByStatus,
	} {
		rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
			"SELECT %s, COUNT(*) FROM images WHERE %s IS NOT NULL GROUP BY %s", col, col, col))
		if err != nil {
			return nil, fmt.Errorf("store: grouping by %s: %w", col, err)
		}
		for rows.Next() {
			var key string
			var n int64
			if err := rows.Scan(&key, &n); err != nil {
				rows.Close()
				return nil, err
			}
			dest[key] = n
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return st, nil
}

const selectImage = `
SELECT id, source, source_id, source_url, image_url, local_path,
       title, description, prompt, room_type, style_tags,
       width, height, engagement, quality_score, phash, status, notes,
       scraped_at, curated_at
FROM images`

func scanImage(rows *sql.Rows) (*Image, error) {
	var (
		img        Image
		sourceURL  sql.NullString
		imageURL   sql.NullString
		localPath  sql.NullString
		title      sql.NullString
		desc       sql.NullString
		prompt     sql.NullString
		roomType   sql.NullString
		styleTags  sql.NullString
		width      sql.NullInt64
		height     sql.NullInt64
		engagement sql.NullInt64
		quality    sql.NullFloat64
		phash      sql.NullString
		notes      sql.NullString
		scrapedAt  int64
		curatedAt  sql.NullInt64
	)
	err := rows.Scan(&img.ID, &img.Source, &img.SourceID, &sourceURL, &imageURL, &localPath,
		&title, &desc, &prompt, &roomType, &styleTags,
		&width, &height, &engagement, &quality, &phash, &img.Status, &notes,
		&scrapedAt, &curatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: scanning image row: %w", err)
	}
	img.SourceURL = sourceURL.String
	img.ImageURL = imageURL.String
	img.LocalPath = localPath.String
	img.Title = title.String
	img.Description = desc.String
	img.Prompt = prompt.String
	img.RoomType = roomType.String
	img.Width = int(width.Int64)
	img.Height = int(height.Int64)
	img.Engagement = int(engagement.Int64)
	img.Quality = quality.Float64
	img.Scored = quality.Valid
	img.Fingerprint = phash.String
	img.Notes = notes.String
	img.ScrapedAt = time.Unix(scrapedAt, 0).UTC()
	if curatedAt.Valid {
		t := time.Unix(curatedAt.Int64, 0).UTC()
		img.CuratedAt = &t
	}
	if styleTags.Valid && styleTags.String != "" {
		if err := json.Unmarshal([]byte(styleTags.String), &img.StyleTags); err != nil {
			return nil, fmt.Errorf("store: decoding style tags for image %d: %w", img.ID, err)
		}
	}
	return &img, nil
}

func marshalTags(tags []string) (any, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("store: encoding style tags: %w", err)
	}
	return string(b), nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullQuality(img *Image) any {
	if !img.Scored {
		return nil
	}
	return img.Quality
}
