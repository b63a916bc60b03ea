package occurrences

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrderedPreservesInsertionOrder(t *testing.T) {
	o := NewOrdered()
	o.Add("b", 1)
	o.Add("a", 2)
	o.Add("b", 3)

	var keys []Key
	var counts []uint64
	o.Each(func(key Key, count uint64) {
		keys = append(keys, key)
		counts = append(counts, count)
	})

	require.Equal(t, []Key{"b", "a"}, keys)
	require.Equal(t, []uint64{4, 2}, counts)
	require.Equal(t, 2, o.Len())
}

func TestSaturatingAdd(t *testing.T) {
	require.Equal(t, ^uint64(0), SaturatingAdd(^uint64(0), 5))
	require.Equal(t, uint64(10), SaturatingAdd(4, 6))
}

func TestShardedConcurrentWrites(t *testing.T) {
	s := NewSharded(8)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Add(Key("a;b;c"), 1)
		}(i)
	}
	wg.Wait()

	total := uint64(0)
	s.Each(func(_ Key, count uint64) { total += count })
	require.Equal(t, uint64(50), total)
	require.Equal(t, 1, s.Len())
}
