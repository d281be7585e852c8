package yolo

import "sort"

// Filter keeps the candidates whose confidence is at least threshold, sorted
// by confidence descending, and truncated to limit entries.
//
// Ties keep enumeration order (lower Candidate.Index first). A NaN
// confidence never passes. A limit of zero or less yields an empty result.
// The input slice is not modified.
//
// Arguments:
//   - candidates: Decoded candidates.
//   - threshold: Minimum confidence, compared with >=.
//   - limit: Maximum number of candidates returned.
//
// Returns:
//   - []Candidate: At most limit candidates, best first.
func Filter(candidates []Candidate, threshold float32, limit int) []Candidate {
	if limit <= 0 {
		return []Candidate{}
	}

	type scored struct {
		c    Candidate
		conf float32
	}
	kept := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		conf := c.Confidence()
		if !(conf >= threshold) {
			continue
		}
		kept = append(kept, scored{c: c, conf: conf})
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].conf != kept[j].conf {
			return kept[i].conf > kept[j].conf
		}
		return kept[i].c.Index < kept[j].c.Index
	})

	n := min(limit, len(kept))
	out := make([]Candidate, n)
	for i := 0; i < n; i++ {
		out[i] = kept[i].c
	}
	return out
}
