package audit

import "math/rand"

// Sample returns a deterministic pseudo-random subset of ids. A size of 0,
// or one at least as large as the input, returns ids unchanged with order
// preserved. Otherwise the full list is shuffled with a generator seeded
// from seed and the first size entries are returned.
//
// Identical (ids order, size, seed) always yields the identical sequence
// across runs and processes.
func Sample(ids []string, size int, seed int64) []string {
	if size <= 0 || size >= len(ids) {
		return ids
	}

	shuffled := make([]string, len(ids))
	copy(shuffled, ids)

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled[:size]
}
