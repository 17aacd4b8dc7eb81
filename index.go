package imagedup

import (
	"fmt"
	"iter"
	"sort"
	"sync"
)

// Index maps exact fingerprint values to the item IDs sharing that value.
// Many items collapse into one bucket, which is what keeps the pairwise
// comparison in [FindDuplicateGroups] cheap: it runs over distinct values,
// not items. An Index is safe for concurrent use.
type Index struct {
	mu      sync.Mutex
	buckets map[string]*indexBucket
	byID    map[int64]string
}

type indexBucket struct {
	fp  Fingerprint
	ids []int64
}

// Match is a similarity search result.
type Match struct {
	ID       int64
	Distance int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		buckets: make(map[string]*indexBucket),
		byID:    make(map[int64]string),
	}
}

// Add inserts id under fp's exact value and returns the fingerprint stored
// for id. Re-adding a known id is a no-op that returns the fingerprint from
// the first insertion.
func (x *Index) Add(id int64, fp Fingerprint) Fingerprint {
	x.mu.Lock()
	defer x.mu.Unlock()

	if key, ok := x.byID[id]; ok {
		return x.buckets[key].fp
	}

	key := fp.String()
	b, ok := x.buckets[key]
	if !ok {
		b = &indexBucket{fp: fp}
		x.buckets[key] = b
	}
	b.ids = append(b.ids, id)
	x.byID[id] = key
	return fp
}

// Remove deletes id from its bucket, dropping the bucket when it empties.
// Unknown ids are ignored.
func (x *Index) Remove(id int64) {
	x.mu.Lock()
	defer x.mu.Unlock()

	key, ok := x.byID[id]
	if !ok {
		return
	}
	delete(x.byID, id)

	b := x.buckets[key]
	for i, other := range b.ids {
		if other == id {
			b.ids = append(b.ids[:i], b.ids[i+1:]...)
			break
		}
	}
	if len(b.ids) == 0 {
		delete(x.buckets, key)
	}
}

// Len returns the number of indexed items.
func (x *Index) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.byID)
}

// Distinct returns the number of distinct fingerprint values.
func (x *Index) Distinct() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.buckets)
}

// Clear drops all indexed items.
func (x *Index) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.buckets = make(map[string]*indexBucket)
	x.byID = make(map[int64]string)
}

// Buckets returns a restartable sequence of (fingerprint, ids) pairs over a
// snapshot of the index. No ordering is guaranteed across buckets.
func (x *Index) Buckets() iter.Seq2[Fingerprint, []int64] {
	x.mu.Lock()
	snapshot := make([]indexBucket, 0, len(x.buckets))
	for _, b := range x.buckets {
		ids := make([]int64, len(b.ids))
		copy(ids, b.ids)
		snapshot = append(snapshot, indexBucket{fp: b.fp, ids: ids})
	}
	x.mu.Unlock()

	return func(yield func(Fingerprint, []int64) bool) {
		for _, b := range snapshot {
			if !yield(b.fp, b.ids) {
				return
			}
		}
	}
}

// FindSimilar returns up to limit item IDs whose fingerprints are within
// maxDistance of fp, closest first (ties broken by ascending id). A limit
// <= 0 means unlimited.
func (x *Index) FindSimilar(fp Fingerprint, maxDistance, limit int) ([]Match, error) {
	var matches []Match
	for other, ids := range x.Buckets() {
		d, err := Distance(fp, other)
		if err != nil {
			return nil, fmt.Errorf("imagedup: index lookup: %w", err)
		}
		if d > maxDistance {
			continue
		}
		for _, id := range ids {
			matches = append(matches, Match{ID: id, Distance: d})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// IsDuplicate reports whether fp is within threshold of any indexed
// fingerprint, along with the matching item IDs.
func (x *Index) IsDuplicate(fp Fingerprint, threshold int) (bool, []int64, error) {
	matches, err := x.FindSimilar(fp, threshold, 0)
	if err != nil {
		return false, nil, err
	}
	ids := make([]int64, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	return len(ids) > 0, ids, nil
}
