package aggregate

import (
	"sort"

	"github.com/wrdhall3/graphdb-trade-surveillance/internal/detect"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/model"
)

// scoredCandidate pairs a raw candidate with its computed score.
type scoredCandidate struct {
	detect.Candidate
	confidence float64
	severity   model.Severity
}

// dedupe collapses candidates of the same pattern type whose related
// transaction sets overlap at or above the Jaccard threshold. The higher
// confidence record wins and absorbs the union of the related id lists.
// Candidates are visited in deterministic confidence order so repeated runs
// merge identically.
func dedupe(candidates []scoredCandidate, threshold float64) []scoredCandidate {
	ordered := append([]scoredCandidate(nil), candidates...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].confidence != ordered[j].confidence {
			return ordered[i].confidence > ordered[j].confidence
		}
		if !ordered[i].Timestamp.Equal(ordered[j].Timestamp) {
			return ordered[i].Timestamp.Before(ordered[j].Timestamp)
		}
		return ordered[i].TraderID < ordered[j].TraderID
	})

	var kept []scoredCandidate
	sets := make([]map[string]bool, 0, len(ordered))

	for _, cand := range ordered {
		candSet := idSet(cand.TransactionIDs)
		mergedInto := -1
		for i := range kept {
			if kept[i].Pattern != cand.Pattern {
				continue
			}
			if jaccard(sets[i], candSet) >= threshold {
				mergedInto = i
				break
			}
		}
		if mergedInto == -1 {
			kept = append(kept, cand)
			sets = append(sets, candSet)
			continue
		}

		winner := &kept[mergedInto]
		winner.TransactionIDs = unionOrdered(winner.TransactionIDs, cand.TransactionIDs)
		winner.OrderIDs = unionOrdered(winner.OrderIDs, cand.OrderIDs)
		if cand.Timestamp.Before(winner.Timestamp) {
			winner.Timestamp = cand.Timestamp
		}
		for id := range candSet {
			sets[mergedInto][id] = true
		}
	}

	return kept
}

// jaccard is |A∩B| / |A∪B|.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for id := range a {
		if b[id] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// unionOrdered keeps the winner's ordering and appends the loser's unseen
// ids in their original order.
func unionOrdered(winner, loser []string) []string {
	seen := idSet(winner)
	out := append([]string(nil), winner...)
	for _, id := range loser {
		if !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	return out
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
