package imagedup

import "fmt"

// Distance returns the Hamming distance between two fingerprints: the number
// of differing bits. It is defined only for fingerprints of equal bit length
// produced by the same algorithm; anything else indicates a configuration
// bug and yields an error wrapping [ErrLengthMismatch].
//
// Distance(a, a) == 0, Distance(a, b) == Distance(b, a), and the result is
// bounded by the fingerprint bit length.
func Distance(a, b Fingerprint) (int, error) {
	if a.hash == nil || b.hash == nil {
		return 0, fmt.Errorf("%w: empty fingerprint", ErrLengthMismatch)
	}
	if a.hash.Bits() != b.hash.Bits() {
		return 0, fmt.Errorf("%w: %d vs %d bits", ErrLengthMismatch, a.hash.Bits(), b.hash.Bits())
	}
	if a.hash.GetKind() != b.hash.GetKind() {
		return 0, fmt.Errorf("%w: algorithms differ", ErrLengthMismatch)
	}
	d, err := a.hash.Distance(b.hash)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLengthMismatch, err)
	}
	return d, nil
}

// Distance returns the Hamming distance between f and other.
func (f Fingerprint) Distance(other Fingerprint) (int, error) {
	return Distance(f, other)
}
