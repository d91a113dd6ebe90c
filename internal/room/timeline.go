// internal/room/timeline.go
package room

import (
	"math"
	"sort"
)

// BuildTimelineEntries maps resolved round ids to their rounds and sorts them
// by (year ascending, title ascending) for a stable total order. Unknown ids
// are dropped silently.
func BuildTimelineEntries(resolvedRoundIDs []string, roundPool []Round) []Round {
	byID := make(map[string]Round, len(roundPool))
	for _, r := range roundPool {
		byID[r.ID] = r
	}
	entries := make([]Round, 0, len(resolvedRoundIDs))
	for _, id := range resolvedRoundIDs {
		if r, ok := byID[id]; ok {
			entries = append(entries, r)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Year != entries[j].Year {
			return entries[i].Year < entries[j].Year
		}
		return entries[i].Title < entries[j].Title
	})
	return entries
}

// ClampTimelineInsertIndex clamps a requested insert position to
// [0, entryCount]. Non-finite or negative input maps to 0; fractional input
// truncates toward zero.
func ClampTimelineInsertIndex(requested float64, entryCount int) int {
	if entryCount < 0 {
		entryCount = 0
	}
	if math.IsNaN(requested) || math.IsInf(requested, 0) || requested < 0 {
		return 0
	}
	// Compare before converting: float-to-int conversion of a value that
	// does not fit is implementation-defined and can wrap negative.
	if requested >= float64(entryCount) {
		return entryCount
	}
	return int(requested)
}

// IsTimelineInsertCorrect reports whether inserting a round of candidateYear
// at insertIndex keeps the timeline year-ordered. Equal years on either side
// satisfy the bound; the inequalities are deliberately non-strict.
func IsTimelineInsertCorrect(entries []Round, candidateYear int, insertIndex int) bool {
	if insertIndex < 0 || insertIndex > len(entries) {
		return false
	}
	if insertIndex > 0 && entries[insertIndex-1].Year > candidateYear {
		return false
	}
	if insertIndex < len(entries) && candidateYear > entries[insertIndex].Year {
		return false
	}
	return true
}

// SortedInsertIndex returns the lowest index at which candidateYear can be
// inserted while keeping the entries ordered. Useful for clients that want a
// known-correct placement.
func SortedInsertIndex(entries []Round, candidateYear int) int {
	return sort.Search(len(entries), func(i int) bool {
		return entries[i].Year >= candidateYear
	})
}
