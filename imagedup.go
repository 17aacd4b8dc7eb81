// Package imagedup detects near-duplicate images with perceptual hashing
// and resolves each duplicate cluster down to a single canonical image.
//
// The pipeline has three stages: compute a fixed-width fingerprint for every
// item that lacks one (pHash, dHash, or aHash), group items whose fingerprints
// are within a Hamming-distance threshold of each other, and keep exactly one
// representative per group while demoting the rest. Persistence goes through
// the narrow [Store] contract; everything else (scraping, downloading,
// room/style models) is the caller's business and is injected.
package imagedup

// Named distance thresholds. Lower is stricter.
const (
	ThresholdExact     = 0  // byte-for-byte identical content
	ThresholdNearExact = 3  // resize, minor recompression
	ThresholdSimilar   = 8  // crops, slight edits
	ThresholdLoose     = 12 // loosely similar, false positives possible
)

// DefaultThreshold is the maximum Hamming distance between two fingerprints
// below which images are considered duplicates.
const DefaultThreshold = ThresholdSimilar

// DefaultHashSize is the default hash grid size. Fingerprints carry
// DefaultHashSize² bits (16 → 256 bits).
const DefaultHashSize = 16

// DefaultBatchSize is the default number of items pulled from the store per
// fingerprinting batch.
const DefaultBatchSize = 500

// DefaultWorkers is the default number of concurrent decode-and-hash workers.
const DefaultWorkers = 4

// Config holds run-time configuration and injected collaborators for a
// detection run.
type Config struct {
	Store      Store          // required for Run / ComputeMissingFingerprints
	Classifier RoomClassifier // optional: room-type handle, created by the caller

	Algorithm Algorithm // fingerprint algorithm (default: AlgorithmPHash)
	HashSize  int       // hash grid size, power of two >= 8 (default: 16)
	BatchSize int       // items per store read (default: 500)
	Workers   int       // concurrent hash workers (default: 4, capped at BatchSize)

	// Threshold is the maximum Hamming distance for two fingerprints to count
	// as duplicates. 0 means DefaultThreshold; a negative value restricts
	// matching to identical fingerprints (ThresholdExact).
	Threshold int

	// KeepFirst keeps the first cluster member in discovery order instead of
	// the highest-quality one. Discovery order is not deterministic, so the
	// zero value (keep best) is what callers should normally want.
	KeepFirst bool

	// OnItemSkipped is an optional callback invoked for every item that was
	// skipped because its bytes could not be obtained or decoded.
	OnItemSkipped func(id int64, err error)
}

// defaults fills zero-value fields with sensible defaults.
func (cfg *Config) defaults() {
	if cfg.HashSize <= 0 {
		cfg.HashSize = DefaultHashSize
	}
	switch {
	case cfg.Threshold == 0:
		cfg.Threshold = DefaultThreshold
	case cfg.Threshold < 0:
		cfg.Threshold = ThresholdExact
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Workers > cfg.BatchSize {
		cfg.Workers = cfg.BatchSize
	}
}
