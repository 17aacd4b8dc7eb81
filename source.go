package imagedup

import (
	"context"
	"fmt"
	"os"
)

// ImageSource supplies the raw bytes of one image. Obtaining bytes from the
// network, a blob store, or anywhere else exotic is the caller's concern:
// the engine ships only local implementations and treats a source that
// cannot deliver as a skippable item ([ErrUnsupportedSource]).
type ImageSource interface {
	ReadAll(ctx context.Context) ([]byte, error)
}

// FileSource reads image bytes from a local file path.
type FileSource string

// ReadAll reads the file. Missing or unreadable files yield an error
// wrapping [ErrUnsupportedSource].
func (s FileSource) ReadAll(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(string(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
	}
	return data, nil
}

// MemorySource serves image bytes already held in memory.
type MemorySource []byte

// ReadAll returns the held bytes. An empty source yields an error wrapping
// [ErrUnsupportedSource].
func (s MemorySource) ReadAll(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: empty in-memory source", ErrUnsupportedSource)
	}
	return s, nil
}
