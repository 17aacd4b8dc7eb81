package imagedup

import "sort"

// Member is one cluster member as seen by the resolver: an item ID and its
// quality score, if one was ever computed.
type Member struct {
	ID      int64
	Quality float64
	Scored  bool // false when the item has no quality score
}

// Resolution is the outcome for one cluster: the member kept as canonical
// and the members demoted as its duplicates.
type Resolution struct {
	CanonicalID int64
	DemotedIDs  []int64
}

// Resolve picks the canonical member of a cluster and demotes the rest.
//
// With keepBest, members are ranked by quality score descending; members
// with no score rank below all scored members. Ties, including ties inside
// the unscored band, break by ascending item ID, so the outcome is
// deterministic regardless of input order. Without keepBest the first member
// in discovery order wins; that order is not deterministic, so callers
// should prefer keepBest.
//
// The second return is false for clusters of fewer than two members, which
// have nothing to resolve. The resolver itself never writes anywhere;
// persisting the outcome is the store's job.
func Resolve(cluster []Member, keepBest bool) (Resolution, bool) {
	if len(cluster) < 2 {
		return Resolution{}, false
	}

	members := make([]Member, len(cluster))
	copy(members, cluster)

	if keepBest {
		sort.SliceStable(members, func(i, j int) bool {
			a, b := members[i], members[j]
			if a.Scored != b.Scored {
				return a.Scored
			}
			if a.Scored && a.Quality != b.Quality {
				return a.Quality > b.Quality
			}
			return a.ID < b.ID
		})
	}

	res := Resolution{CanonicalID: members[0].ID}
	for _, m := range members[1:] {
		res.DemotedIDs = append(res.DemotedIDs, m.ID)
	}
	return res, true
}
