package occurrences

// Ordered is the single-threaded implementation: an index into a slice
// keyed by a plain map (a map for O(1) lookup, a slice that records
// first-seen order).
type Ordered struct {
	index  map[Key]int
	keys   []Key
	counts []uint64
}

var _ Map = (*Ordered)(nil)

// NewOrdered returns an empty insertion-ordered occurrences map.
func NewOrdered() *Ordered {
	return &Ordered{
		index: make(map[Key]int, 512),
	}
}

func (o *Ordered) Add(key Key, count uint64) {
	if i, ok := o.index[key]; ok {
		o.counts[i] = SaturatingAdd(o.counts[i], count)
		return
	}
	o.index[key] = len(o.keys)
	o.keys = append(o.keys, key)
	o.counts = append(o.counts, count)
}

func (o *Ordered) Each(fn func(key Key, count uint64)) {
	for i, key := range o.keys {
		fn(key, o.counts[i])
	}
}

func (o *Ordered) Len() int {
	return len(o.keys)
}

// Get returns the current count for key and whether it has been seen.
func (o *Ordered) Get(key Key) (uint64, bool) {
	i, ok := o.index[key]
	if !ok {
		return 0, false
	}
	return o.counts[i], true
}
