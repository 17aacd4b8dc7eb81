package store

import (
	"context"
	"testing"
	"time"

	imagedup "github.com/anatolykoptev/go-imagedup"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestImage(t *testing.T, s *SQLiteStore, img *Image) int64 {
	t.Helper()
	id, err := s.InsertImage(context.Background(), img)
	if err != nil {
		t.Fatalf("InsertImage(%s/%s): %v", img.Source, img.SourceID, err)
	}
	return id
}

func TestInsertImage_Dedupe(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	first := insertTestImage(t, s, &Image{Source: "pinterest", SourceID: "pin-1", Title: "original"})
	again := insertTestImage(t, s, &Image{Source: "pinterest", SourceID: "pin-1", Title: "rescraped"})
	if first != again {
		t.Errorf("duplicate insert got id %d, want existing id %d", again, first)
	}

	got, err := s.GetImage(ctx, first)
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if got.Title != "original" {
		t.Errorf("Title = %q, re-insert overwrote the record", got.Title)
	}

	exists, err := s.ImageExists(ctx, "pinterest", "pin-1")
	if err != nil || !exists {
		t.Errorf("ImageExists = %v, %v, want true", exists, err)
	}
	exists, err = s.ImageExists(ctx, "pinterest", "pin-2")
	if err != nil || exists {
		t.Errorf("ImageExists(absent) = %v, %v, want false", exists, err)
	}
}

func TestGetImage_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	scraped := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	id := insertTestImage(t, s, &Image{
		Source:      "midjourney",
		SourceID:    "mj-42",
		ImageURL:    "https://cdn.example/mj-42.png",
		LocalPath:   "/data/mj-42.png",
		Title:       "Soft minimal bedroom",
		Description: "Morning light",
		Prompt:      "scandinavian bedroom, soft light",
		RoomType:    "bedroom",
		StyleTags:   []string{"minimal", "scandinavian"},
		Width:       1920,
		Height:      1080,
		Engagement:  250,
		Quality:     0.8,
		Scored:      true,
		ScrapedAt:   scraped,
	})

	got, err := s.GetImage(ctx, id)
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if got == nil {
		t.Fatal("GetImage returned nil for existing record")
	}
	if got.RoomType != "bedroom" || got.Width != 1920 || got.Engagement != 250 {
		t.Errorf("record fields lost: %+v", got)
	}
	if !got.Scored || got.Quality != 0.8 {
		t.Errorf("quality = %.2f scored=%v, want 0.80 true", got.Quality, got.Scored)
	}
	if len(got.StyleTags) != 2 || got.StyleTags[0] != "minimal" {
		t.Errorf("StyleTags = %v", got.StyleTags)
	}
	if !got.ScrapedAt.Equal(scraped) {
		t.Errorf("ScrapedAt = %v, want %v", got.ScrapedAt, scraped)
	}
	if got.Status != StatusPending {
		t.Errorf("Status = %q, want default pending", got.Status)
	}
	if got.CuratedAt != nil {
		t.Errorf("CuratedAt = %v, want nil before curation", got.CuratedAt)
	}

	missing, err := s.GetImage(ctx, 9999)
	if err != nil {
		t.Fatalf("GetImage(absent): %v", err)
	}
	if missing != nil {
		t.Errorf("GetImage(absent) = %+v, want nil", missing)
	}
}

func TestGetImage_UnscoredQuality(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	id := insertTestImage(t, s, &Image{Source: "s", SourceID: "unscored"})
	got, err := s.GetImage(context.Background(), id)
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if got.Scored || got.Quality != 0 {
		t.Errorf("quality = %.2f scored=%v, want 0 false", got.Quality, got.Scored)
	}
}

func TestItemsMissingFingerprint(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	withPath := insertTestImage(t, s, &Image{Source: "s", SourceID: "a", LocalPath: "/tmp/a.png"})
	urlOnly := insertTestImage(t, s, &Image{Source: "s", SourceID: "b", ImageURL: "https://x/b.png"})
	insertTestImage(t, s, &Image{Source: "s", SourceID: "c"}) // no locator at all
	insertTestImage(t, s, &Image{Source: "s", SourceID: "d", LocalPath: "/tmp/d.png", Fingerprint: "p256:00"})

	items, err := s.ItemsMissingFingerprint(ctx, 10)
	if err != nil {
		t.Fatalf("ItemsMissingFingerprint: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d pending items, want 2: %+v", len(items), items)
	}
	if items[0].ID != withPath || items[1].ID != urlOnly {
		t.Errorf("ids = [%d %d], want [%d %d]", items[0].ID, items[1].ID, withPath, urlOnly)
	}
	if items[0].Source == nil {
		t.Error("local-path record resolved to nil source")
	}
	// The default resolver serves local files only.
	if items[1].Source != nil {
		t.Error("url-only record resolved a source under the default resolver")
	}

	limited, err := s.ItemsMissingFingerprint(ctx, 1)
	if err != nil {
		t.Fatalf("ItemsMissingFingerprint(limit=1): %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit 1 returned %d items", len(limited))
	}
}

func TestItemsMissingFingerprint_CustomResolver(t *testing.T) {
	t.Parallel()

	s, err := NewWithResolver(":memory:", func(_, imageURL string) imagedup.ImageSource {
		if imageURL == "" {
			return nil
		}
		return imagedup.MemorySource([]byte(imageURL))
	})
	if err != nil {
		t.Fatalf("NewWithResolver: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	insertTestImage(t, s, &Image{Source: "s", SourceID: "a", ImageURL: "https://x/a.png"})

	items, err := s.ItemsMissingFingerprint(context.Background(), 10)
	if err != nil {
		t.Fatalf("ItemsMissingFingerprint: %v", err)
	}
	if len(items) != 1 || items[0].Source == nil {
		t.Fatalf("custom resolver not applied: %+v", items)
	}
}

func TestSaveFingerprint(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	id := insertTestImage(t, s, &Image{Source: "s", SourceID: "a", LocalPath: "/tmp/a.png"})

	fp, err := imagedup.ParseFingerprint("p64:00000000000000ff")
	if err != nil {
		t.Fatalf("ParseFingerprint: %v", err)
	}
	if err := s.SaveFingerprint(ctx, id, fp); err != nil {
		t.Fatalf("SaveFingerprint: %v", err)
	}

	got, err := s.GetImage(ctx, id)
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if got.Fingerprint != "p64:00000000000000ff" {
		t.Errorf("Fingerprint = %q", got.Fingerprint)
	}

	pending, err := s.ItemsMissingFingerprint(ctx, 10)
	if err != nil {
		t.Fatalf("ItemsMissingFingerprint: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("fingerprinted record still pending: %+v", pending)
	}

	if err := s.SaveFingerprint(ctx, 9999, fp); err == nil {
		t.Error("SaveFingerprint for missing id succeeded, want error")
	}
}

func TestFingerprintedItems(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	scored := insertTestImage(t, s, &Image{
		Source: "s", SourceID: "a", Fingerprint: "p64:0000000000000000", Quality: 0.7, Scored: true,
	})
	unscored := insertTestImage(t, s, &Image{
		Source: "s", SourceID: "b", Fingerprint: "p64:0000000000000003",
	})
	insertTestImage(t, s, &Image{Source: "s", SourceID: "c"}) // no fingerprint

	items, err := s.FingerprintedItems(ctx)
	if err != nil {
		t.Fatalf("FingerprintedItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2: %+v", len(items), items)
	}
	byID := map[int64]imagedup.FingerprintedItem{}
	for _, it := range items {
		byID[it.ID] = it
	}
	if it := byID[scored]; !it.Scored || it.Quality != 0.7 {
		t.Errorf("scored item = %+v", it)
	}
	if it := byID[unscored]; it.Scored || it.Quality != 0 {
		t.Errorf("unscored item = %+v", it)
	}
}

func TestApplyResolution(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	canonical := insertTestImage(t, s, &Image{Source: "s", SourceID: "a"})
	demoted := insertTestImage(t, s, &Image{Source: "s", SourceID: "b"})

	// The canonical id in the demoted list must be ignored.
	note := "Duplicate of image 1"
	if err := s.ApplyResolution(ctx, canonical, []int64{demoted, canonical}, note); err != nil {
		t.Fatalf("ApplyResolution: %v", err)
	}

	keep, err := s.GetImage(ctx, canonical)
	if err != nil {
		t.Fatalf("GetImage(canonical): %v", err)
	}
	if keep.Status != StatusPending || keep.CuratedAt != nil {
		t.Errorf("canonical record altered: status=%q curated=%v", keep.Status, keep.CuratedAt)
	}

	lost, err := s.GetImage(ctx, demoted)
	if err != nil {
		t.Fatalf("GetImage(demoted): %v", err)
	}
	if lost.Status != StatusRejected {
		t.Errorf("demoted status = %q, want rejected", lost.Status)
	}
	if lost.Notes != note {
		t.Errorf("demoted notes = %q, want %q", lost.Notes, note)
	}
	if lost.CuratedAt == nil {
		t.Error("demoted record missing curated_at")
	}
}

func TestListImages_Filters(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	insertTestImage(t, s, &Image{
		Source: "pinterest", SourceID: "a", RoomType: "kitchen",
		Quality: 0.9, Scored: true, ScrapedAt: base,
	})
	insertTestImage(t, s, &Image{
		Source: "pinterest", SourceID: "b", RoomType: "bedroom",
		Quality: 0.3, Scored: true, ScrapedAt: base.Add(time.Hour),
	})
	insertTestImage(t, s, &Image{
		Source: "midjourney", SourceID: "c", RoomType: "kitchen",
		Status: StatusApproved, ScrapedAt: base.Add(2 * time.Hour),
	})

	all, err := s.ListImages(ctx, ListOpts{})
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d records, want 3", len(all))
	}
	// Newest first.
	if all[0].SourceID != "c" || all[2].SourceID != "a" {
		t.Errorf("order = [%s %s %s], want newest first", all[0].SourceID, all[1].SourceID, all[2].SourceID)
	}

	kitchens, err := s.ListImages(ctx, ListOpts{Source: "pinterest", RoomType: "kitchen"})
	if err != nil {
		t.Fatalf("ListImages(filtered): %v", err)
	}
	if len(kitchens) != 1 || kitchens[0].SourceID != "a" {
		t.Errorf("filtered = %+v, want only pinterest/a", kitchens)
	}

	minQ := 0.5
	good, err := s.ListImages(ctx, ListOpts{MinQuality: &minQ})
	if err != nil {
		t.Fatalf("ListImages(min quality): %v", err)
	}
	if len(good) != 1 || good[0].SourceID != "a" {
		t.Errorf("min quality filter = %+v, want only pinterest/a", good)
	}

	paged, err := s.ListImages(ctx, ListOpts{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListImages(paged): %v", err)
	}
	if len(paged) != 1 || paged[0].SourceID != "b" {
		t.Errorf("page 2 = %+v, want record b", paged)
	}
}

func TestBulkUpdateStatus(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	a := insertTestImage(t, s, &Image{Source: "s", SourceID: "a", Notes: "keep these notes"})
	b := insertTestImage(t, s, &Image{Source: "s", SourceID: "b"})

	if err := s.BulkUpdateStatus(ctx, []int64{a, b}, StatusApproved, ""); err != nil {
		t.Fatalf("BulkUpdateStatus: %v", err)
	}

	got, err := s.GetImage(ctx, a)
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if got.Status != StatusApproved {
		t.Errorf("status = %q, want approved", got.Status)
	}
	if got.Notes != "keep these notes" {
		t.Errorf("empty notes arg overwrote existing notes: %q", got.Notes)
	}
	if got.CuratedAt == nil {
		t.Error("curated_at not stamped")
	}

	if err := s.BulkUpdateStatus(ctx, nil, StatusRejected, ""); err != nil {
		t.Errorf("BulkUpdateStatus(no ids) = %v, want nil", err)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	insertTestImage(t, s, &Image{Source: "pinterest", SourceID: "a", RoomType: "kitchen"})
	insertTestImage(t, s, &Image{Source: "pinterest", SourceID: "b", RoomType: "bedroom"})
	insertTestImage(t, s, &Image{Source: "midjourney", SourceID: "c", Status: StatusRejected})

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 3 {
		t.Errorf("Total = %d, want 3", st.Total)
	}
	if st.BySource["pinterest"] != 2 || st.BySource["midjourney"] != 1 {
		t.Errorf("BySource = %v", st.BySource)
	}
	if st.ByRoom["kitchen"] != 1 || st.ByRoom["bedroom"] != 1 {
		t.Errorf("ByRoom = %v", st.ByRoom)
	}
	if st.ByStatus[StatusPending] != 2 || st.ByStatus[StatusRejected] != 1 {
		t.Errorf("ByStatus = %v", st.ByStatus)
	}
}

func TestEngineAgainstSQLite(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	// Two records with identical fingerprints, the better-scored one wins.
	winner := insertTestImage(t, s, &Image{
		Source: "s", SourceID: "a", Fingerprint: "p64:0000000000000000", Quality: 0.8, Scored: true,
	})
	loser := insertTestImage(t, s, &Image{
		Source: "s", SourceID: "b", Fingerprint: "p64:0000000000000001", Quality: 0.6, Scored: true,
	})
	insertTestImage(t, s, &Image{
		Source: "s", SourceID: "c", Fingerprint: "p64:ffffffffffffffff", Quality: 0.9, Scored: true,
	})

	cfg := &imagedup.Config{Store: s}
	report, err := cfg.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.ClustersFound != 1 || report.ItemsDemoted != 1 {
		t.Errorf("report = %+v, want 1 cluster, 1 demoted", report)
	}

	keep, err := s.GetImage(ctx, winner)
	if err != nil {
		t.Fatalf("GetImage(winner): %v", err)
	}
	if keep.Status != StatusPending {
		t.Errorf("winner status = %q, want untouched", keep.Status)
	}

	lost, err := s.GetImage(ctx, loser)
	if err != nil {
		t.Fatalf("GetImage(loser): %v", err)
	}
	if lost.Status != StatusRejected {
		t.Errorf("loser status = %q, want rejected", lost.Status)
	}
}
