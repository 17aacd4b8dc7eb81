package imagedup

import "errors"

// Error taxonomy of the engine. Decode and source failures are per-item:
// the item is skipped, logged, and the batch continues. A length mismatch
// means fingerprints of different configured sizes met in one run, which is
// a configuration bug and fatal for the run.
var (
	// ErrDecode reports image bytes that could not be decoded.
	ErrDecode = errors.New("imagedup: image could not be decoded")

	// ErrLengthMismatch reports a comparison between fingerprints of
	// different bit lengths.
	ErrLengthMismatch = errors.New("imagedup: fingerprint bit lengths differ")

	// ErrUnsupportedSource reports a byte source that cannot supply data.
	ErrUnsupportedSource = errors.New("imagedup: unsupported image source")
)
