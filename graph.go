package imagedup

import "fmt"

// FindDuplicateGroups builds a similarity graph over the distinct
// fingerprints in idx (an edge wherever the Hamming distance is at most
// threshold) and returns its connected components expanded to item IDs.
// Only groups holding at least two items are returned; unique images are
// simply absent.
//
// Similarity is not transitive: a group may be a chain of pairwise-close
// fingerprints whose endpoints are farther apart than the threshold. That is
// intended grouping behavior, not an artifact.
//
// The comparison is O(H²) in the number of distinct fingerprints. H is
// typically orders of magnitude smaller than the item count because exact
// duplicates share a bucket, so the quadratic pass stays cheap.
//
// Group contents are deterministic for a given index state and threshold;
// group order and the ID order within a group are not.
func FindDuplicateGroups(idx *Index, threshold int) ([][]int64, error) {
	var (
		fps []Fingerprint
		ids [][]int64
	)
	for fp, bucketIDs := range idx.Buckets() {
		fps = append(fps, fp)
		ids = append(ids, bucketIDs)
	}

	n := len(fps)
	adjacent := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d, err := Distance(fps[i], fps[j])
			if err != nil {
				return nil, fmt.Errorf("imagedup: building similarity graph: %w", err)
			}
			if d <= threshold {
				adjacent[i] = append(adjacent[i], j)
				adjacent[j] = append(adjacent[j], i)
			}
		}
	}

	// BFS component discovery. Nodes are marked visited as they are
	// dequeued; every node lands in exactly one component.
	visited := make([]bool, n)
	var groups [][]int64
	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}
		var component []int
		queue := []int{start}
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			if visited[node] {
				continue
			}
			visited[node] = true
			component = append(component, node)
			for _, next := range adjacent[node] {
				if !visited[next] {
					queue = append(queue, next)
				}
			}
		}

		var group []int64
		for _, node := range component {
			group = append(group, ids[node]...)
		}
		if len(group) >= 2 {
			groups = append(groups, group)
		}
	}
	return groups, nil
}
