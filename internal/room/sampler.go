// internal/room/sampler.go
package room

import "math/rand"

// SampleRounds selects a bounded subset of the available round pool.
//
// The requested count is clamped to [1, len(pool)]. With no preferred ids the
// result is a Fisher-Yates shuffled prefix of the pool. Preferred ids keep
// their order: the valid, pool-present, deduplicated prefix of them is taken
// first (preserving resolved timeline state across minor lobby edits), and
// any remainder is filled with a random sample drawn from the pool excluding
// already-selected ids. The result never exceeds the pool size and never
// contains duplicates.
func SampleRounds(pool []Round, requested int, preferredIDs []string, rng *rand.Rand) []Round {
	if len(pool) == 0 {
		return []Round{}
	}
	count := requested
	if count < 1 {
		count = 1
	}
	if count > len(pool) {
		count = len(pool)
	}

	byID := make(map[string]Round, len(pool))
	for _, r := range pool {
		byID[r.ID] = r
	}

	selected := make([]Round, 0, count)
	taken := make(map[string]bool, count)
	for _, id := range preferredIDs {
		if len(selected) >= count {
			break
		}
		r, ok := byID[id]
		if !ok || taken[id] {
			continue
		}
		selected = append(selected, r)
		taken[id] = true
	}
	if len(selected) >= count {
		return selected
	}

	remainder := make([]Round, 0, len(pool)-len(selected))
	for _, r := range pool {
		if !taken[r.ID] {
			remainder = append(remainder, r)
		}
	}
	rng.Shuffle(len(remainder), func(i, j int) {
		remainder[i], remainder[j] = remainder[j], remainder[i]
	})
	selected = append(selected, remainder[:count-len(selected)]...)
	return selected
}
