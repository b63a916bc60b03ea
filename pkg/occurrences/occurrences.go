// Package occurrences implements the Stack -> count map described in
// spec §3: keys are never mutated after first insertion, counts are
// monotonically non-decreasing via saturating addition, and iteration
// order is insertion order (single-threaded) or a deterministic merged
// order (parallel collapse).
package occurrences

import "math"

// Key is the canonical "f0;f1;...;fn" stack representation. It is produced
// by the per-format collapsers after symbol fixup and is never mutated
// once inserted.
type Key string

// Map is implemented by both the single-threaded ordered map and the
// concurrent sharded map. The parallel collapse framework gives each
// worker its own ordered map.
type Map interface {
	// Add accumulates count into the entry for key, inserting it at the
	// end of iteration order the first time it is seen.
	Add(key Key, count uint64)

	// Each visits every (key, count) pair in this map's iteration order.
	Each(fn func(key Key, count uint64))

	// Len reports the number of distinct stacks recorded.
	Len() int
}

// SaturatingAdd adds b to a without wrapping past the uint64 range, per the
// "sample count" invariant in spec §3.
func SaturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
