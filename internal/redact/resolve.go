package redact

import "sort"

// Resolve selects the matches that survive overlap conflicts and returns
// them as a plan ordered for safe application.
//
// Two matches conflict when their [start,end) intervals intersect at all;
// merely touching spans do not. Conflicts are decided by priority: higher
// score wins, then the longer span (a contextual pattern that also captured
// surrounding text beats a bare generic one), then the pattern registered
// first. Losing matches are dropped whole; no residual masking of their
// non-overlapping remainder.
//
// The returned plan is sorted by descending Start. Applying it
// rightmost-first keeps every not-yet-applied match's offsets valid under
// length-changing replacements, which is the rewrite step's key
// correctness property.
func Resolve(matches []Match) Plan {
	if len(matches) == 0 {
		return nil
	}

	ranked := make([]Match, len(matches))
	copy(ranked, matches)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if la, lb := a.End-a.Start, b.End-b.Start; la != lb {
			return la > lb
		}
		if a.order != b.order {
			return a.order < b.order
		}
		return a.Start < b.Start
	})

	var selected Plan
	for _, m := range ranked {
		if overlapsAny(selected, m) {
			continue
		}
		selected = append(selected, m)
	}

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].Start > selected[j].Start
	})
	return selected
}

func overlapsAny(plan Plan, m Match) bool {
	for _, s := range plan {
		if m.Start < s.End && s.Start < m.End {
			return true
		}
	}
	return false
}
