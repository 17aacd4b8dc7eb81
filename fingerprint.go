package imagedup

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strconv"
	"strings"

	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/webp"
)

// Algorithm selects the perceptual hashing algorithm for a run. Algorithms
// are interchangeable but never mixed: fingerprints produced by different
// algorithms (or different hash sizes) are not comparable.
type Algorithm int

const (
	// AlgorithmPHash is the DCT-based perceptual hash. Best at finding
	// visually similar images.
	AlgorithmPHash Algorithm = iota
	// AlgorithmDHash is the gradient difference hash. Fast, good for exact
	// and near-exact duplicates.
	AlgorithmDHash
	// AlgorithmAHash is the average hash. Simplest, catches obvious
	// duplicates.
	AlgorithmAHash
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmDHash:
		return "dhash"
	case AlgorithmAHash:
		return "ahash"
	default:
		return "phash"
	}
}

// ParseAlgorithm parses "phash", "dhash", or "ahash".
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "phash":
		return AlgorithmPHash, nil
	case "dhash":
		return AlgorithmDHash, nil
	case "ahash":
		return AlgorithmAHash, nil
	default:
		return 0, fmt.Errorf("imagedup: unknown algorithm %q", s)
	}
}

// Fingerprint is a fixed-width bit vector summarizing an image's visual
// content. The zero value is empty and compares unequal to everything.
type Fingerprint struct {
	hash *goimagehash.ExtImageHash
}

// IsZero reports whether f holds no hash.
func (f Fingerprint) IsZero() bool { return f.hash == nil }

// Bits returns the fingerprint bit length (hash size squared), or 0 for the
// zero Fingerprint.
func (f Fingerprint) Bits() int {
	if f.hash == nil {
		return 0
	}
	return f.hash.Bits()
}

// ComputeFingerprint hashes a decoded image with the given algorithm and
// hash grid size. hashSize must be a power of two >= 8 so the bit count is a
// multiple of 64. The transformation is pure and deterministic: identical
// pixels and identical configuration always yield the identical fingerprint.
func ComputeFingerprint(img image.Image, algo Algorithm, hashSize int) (Fingerprint, error) {
	if img == nil {
		return Fingerprint{}, fmt.Errorf("%w: nil image", ErrDecode)
	}
	if hashSize < 8 || hashSize&(hashSize-1) != 0 {
		return Fingerprint{}, fmt.Errorf("imagedup: hash size %d must be a power of two >= 8", hashSize)
	}

	var (
		hash *goimagehash.ExtImageHash
		err  error
	)
	switch algo {
	case AlgorithmPHash:
		hash, err = goimagehash.ExtPerceptionHash(img, hashSize, hashSize)
	case AlgorithmDHash:
		hash, err = goimagehash.ExtDifferenceHash(img, hashSize, hashSize)
	case AlgorithmAHash:
		hash, err = goimagehash.ExtAverageHash(img, hashSize, hashSize)
	default:
		return Fingerprint{}, fmt.Errorf("imagedup: unknown algorithm %d", algo)
	}
	if err != nil {
		return Fingerprint{}, fmt.Errorf("imagedup: %s(%d): %w", algo, hashSize, err)
	}
	return Fingerprint{hash: hash}, nil
}

// FingerprintBytes decodes raw image bytes (GIF, JPEG, PNG, or WebP) and
// hashes the result. Undecodable bytes yield an error wrapping [ErrDecode].
func FingerprintBytes(data []byte, algo Algorithm, hashSize int) (Fingerprint, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Fingerprint{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return ComputeFingerprint(img, algo, hashSize)
}

// kindLetter maps a goimagehash kind to the one-letter prefix used in the
// serialized form.
func kindLetter(kind goimagehash.Kind) byte {
	switch kind {
	case goimagehash.DHash:
		return 'd'
	case goimagehash.AHash:
		return 'a'
	default:
		return 'p'
	}
}

func kindFromLetter(c byte) (goimagehash.Kind, bool) {
	switch c {
	case 'p':
		return goimagehash.PHash, true
	case 'd':
		return goimagehash.DHash, true
	case 'a':
		return goimagehash.AHash, true
	default:
		return goimagehash.Unknown, false
	}
}

// String renders the fingerprint as "<kind><bits>:<hex>", e.g. "p256:9f0e…".
// The form is stable and self-describing, suitable for persistence. The zero
// Fingerprint renders as "".
func (f Fingerprint) String() string {
	if f.hash == nil {
		return ""
	}
	words := f.hash.GetHash()
	raw := make([]byte, 0, len(words)*8)
	var b [8]byte
	for _, w := range words {
		binary.BigEndian.PutUint64(b[:], w)
		raw = append(raw, b[:]...)
	}
	return fmt.Sprintf("%c%d:%s", kindLetter(f.hash.GetKind()), f.hash.Bits(), hex.EncodeToString(raw))
}

// ParseFingerprint parses the serialized form produced by
// [Fingerprint.String].
func ParseFingerprint(s string) (Fingerprint, error) {
	head, hexPart, ok := strings.Cut(s, ":")
	if !ok || len(head) < 2 {
		return Fingerprint{}, fmt.Errorf("imagedup: malformed fingerprint %q", s)
	}
	kind, ok := kindFromLetter(head[0])
	if !ok {
		return Fingerprint{}, fmt.Errorf("imagedup: unknown fingerprint kind %q", head[0])
	}
	bits, err := strconv.Atoi(head[1:])
	if err != nil || bits <= 0 || bits%64 != 0 {
		return Fingerprint{}, fmt.Errorf("imagedup: bad fingerprint bit length in %q", s)
	}
	raw, err := hex.DecodeString(hexPart)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("imagedup: bad fingerprint hex in %q: %v", s, err)
	}
	if len(raw) != bits/8 {
		return Fingerprint{}, fmt.Errorf("imagedup: fingerprint %q carries %d bytes, want %d", s, len(raw), bits/8)
	}
	words := make([]uint64, 0, bits/64)
	for i := 0; i < len(raw); i += 8 {
		words = append(words, binary.BigEndian.Uint64(raw[i:i+8]))
	}
	return Fingerprint{hash: goimagehash.NewExtImageHash(words, kind, bits)}, nil
}
