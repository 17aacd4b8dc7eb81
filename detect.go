package imagedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// PendingItem is an item that still lacks a fingerprint, paired with the
// byte source the store resolved for it. A nil Source means the store could
// not resolve one; the engine skips such items.
type PendingItem struct {
	ID     int64
	Source ImageSource
}

// FingerprintedItem is one row of the full scan feeding the graph builder.
type FingerprintedItem struct {
	ID          int64
	Fingerprint string // serialized form, see Fingerprint.String
	Quality     float64
	Scored      bool // false when no quality score was ever computed
}

// Store is the narrow contract against the persisted-record store. The
// engine owns no schema and no wire format; it reads items, writes
// fingerprints, and writes resolution outcomes.
type Store interface {
	// ItemsMissingFingerprint returns up to limit items lacking a
	// fingerprint. The limit is the run's backpressure knob.
	ItemsMissingFingerprint(ctx context.Context, limit int) ([]PendingItem, error)

	// SaveFingerprint persists a computed fingerprint for later runs.
	SaveFingerprint(ctx context.Context, id int64, fp Fingerprint) error

	// FingerprintedItems returns every item with a stored fingerprint.
	FingerprintedItems(ctx context.Context) ([]FingerprintedItem, error)

	// ApplyResolution persists a cluster outcome: demoted items get a status
	// change plus the provenance note. The canonical item must not be
	// altered.
	ApplyResolution(ctx context.Context, canonicalID int64, demotedIDs []int64, note string) error
}

// Report summarizes a detection run. A run always completes and reports its
// counts even when individual items failed along the way.
type Report struct {
	Processed     int // fingerprints computed and saved
	ClustersFound int // duplicate groups with >= 2 items
	ItemsDemoted  int // items marked as duplicates
}

// Run executes a full detection pass: fingerprint every item that lacks
// one, group near-duplicate fingerprints, and resolve each group down to
// one canonical item, persisting the outcomes through the store.
//
// Per-item decode and source failures are skipped and logged; they never
// abort the run. A fingerprint length mismatch is a configuration bug and
// fails the run, as do store errors. The returned Report is valid either
// way.
func (cfg *Config) Run(ctx context.Context) (Report, error) {
	cfg.defaults()
	var report Report
	if cfg.Store == nil {
		return report, errors.New("imagedup: Config.Store is required")
	}

	processed, err := cfg.ComputeMissingFingerprints(ctx)
	report.Processed = processed
	if err != nil {
		return report, err
	}

	groups, members, err := cfg.loadAndGroup(ctx)
	if err != nil {
		return report, err
	}
	report.ClustersFound = len(groups)

	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		cluster := make([]Member, 0, len(group))
		for _, id := range group {
			cluster = append(cluster, members[id])
		}
		res, ok := Resolve(cluster, !cfg.KeepFirst)
		if !ok {
			continue
		}
		note := fmt.Sprintf("Duplicate of image %d", res.CanonicalID)
		if err := cfg.Store.ApplyResolution(ctx, res.CanonicalID, res.DemotedIDs, note); err != nil {
			return report, fmt.Errorf("imagedup: applying resolution for %d: %w", res.CanonicalID, err)
		}
		report.ItemsDemoted += len(res.DemotedIDs)
		slog.Debug("imagedup: cluster resolved",
			"canonical", res.CanonicalID, "demoted", len(res.DemotedIDs))
	}
	return report, nil
}

// ComputeMissingFingerprints pulls batches of fingerprint-less items from
// the store and computes their fingerprints across cfg.Workers concurrent
// workers. Items whose bytes cannot be obtained or decoded are skipped.
// Returns the number of fingerprints computed and saved.
func (cfg *Config) ComputeMissingFingerprints(ctx context.Context) (int, error) {
	cfg.defaults()
	if cfg.Store == nil {
		return 0, errors.New("imagedup: Config.Store is required")
	}

	var processed atomic.Int64
	for {
		if err := ctx.Err(); err != nil {
			return int(processed.Load()), err
		}
		items, err := cfg.Store.ItemsMissingFingerprint(ctx, cfg.BatchSize)
		if err != nil {
			return int(processed.Load()), fmt.Errorf("imagedup: reading pending items: %w", err)
		}
		if len(items) == 0 {
			break
		}

		before := processed.Load()
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Workers)
		for _, item := range items {
			g.Go(func() error {
				// Cancellation takes effect between items, never mid-hash.
				if err := gctx.Err(); err != nil {
					return err
				}
				fp, err := cfg.fingerprintItem(gctx, item)
				if err != nil {
					if errors.Is(err, ErrDecode) || errors.Is(err, ErrUnsupportedSource) {
						slog.Debug("imagedup: skipping item", "id", item.ID, "error", err.Error())
						if cfg.OnItemSkipped != nil {
							cfg.OnItemSkipped(item.ID, err)
						}
						return nil
					}
					return err
				}
				if err := cfg.Store.SaveFingerprint(gctx, item.ID, fp); err != nil {
					return fmt.Errorf("imagedup: saving fingerprint for %d: %w", item.ID, err)
				}
				processed.Add(1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return int(processed.Load()), err
		}

		// Skipped items stay in the pending set; stop once a full batch
		// produced nothing new rather than re-reading them forever.
		if processed.Load() == before {
			break
		}
	}
	return int(processed.Load()), nil
}

// FindDuplicates runs the grouping stage only: it loads all fingerprinted
// items and returns the duplicate groups without resolving or writing
// anything. Useful for dry runs.
func (cfg *Config) FindDuplicates(ctx context.Context) ([][]int64, error) {
	cfg.defaults()
	if cfg.Store == nil {
		return nil, errors.New("imagedup: Config.Store is required")
	}
	groups, _, err := cfg.loadAndGroup(ctx)
	return groups, err
}

func (cfg *Config) fingerprintItem(ctx context.Context, item PendingItem) (Fingerprint, error) {
	if item.Source == nil {
		return Fingerprint{}, fmt.Errorf("%w: item %d has no byte source", ErrUnsupportedSource, item.ID)
	}
	data, err := item.Source.ReadAll(ctx)
	if err != nil {
		return Fingerprint{}, err
	}
	return FingerprintBytes(data, cfg.Algorithm, cfg.HashSize)
}

// loadAndGroup scans all fingerprinted items into a fresh index and returns
// the duplicate groups plus each item's resolver view.
func (cfg *Config) loadAndGroup(ctx context.Context) ([][]int64, map[int64]Member, error) {
	items, err := cfg.Store.FingerprintedItems(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("imagedup: scanning fingerprinted items: %w", err)
	}

	idx := NewIndex()
	members := make(map[int64]Member, len(items))
	for _, item := range items {
		fp, err := ParseFingerprint(item.Fingerprint)
		if err != nil {
			// A malformed stored value is a single bad row, not a reason to
			// abort the scan.
			slog.Warn("imagedup: skipping malformed stored fingerprint",
				"id", item.ID, "error", err.Error())
			continue
		}
		idx.Add(item.ID, fp)
		members[item.ID] = Member{ID: item.ID, Quality: item.Quality, Scored: item.Scored}
	}

	groups, err := FindDuplicateGroups(idx, cfg.Threshold)
	if err != nil {
		return nil, nil, err
	}
	return groups, members, nil
}
