package buffer

import (
	"fmt"
	"sync"
	"testing"

	"github.com/alecthomas/assert"
)

func TestRingAddGet(t *testing.T) {
	r := NewRing[int](3)
	assert.Equal(t, 3, r.Capacity())
	assert.Equal(t, uint64(0), r.Size())
	assert.False(t, r.IsFull())

	assert.NoError(t, r.Add(1))
	assert.NoError(t, r.Add(2))
	assert.Equal(t, uint64(2), r.Size())
	assert.False(t, r.IsFull())

	v, ok := r.Get(0)
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	assert.NoError(t, r.Add(3))
	assert.True(t, r.IsFull())

	// the 4th add evicts the oldest element
	assert.NoError(t, r.Add(4))
	assert.Equal(t, uint64(3), r.Size())
	v, ok = r.Get(0)
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	v, ok = r.Get(2)
	assert.True(t, ok)
	assert.Equal(t, 4, v)
}

func TestRingAddAllWraps(t *testing.T) {
	r := NewRing[int](3)
	assert.NoError(t, r.AddAll(1, 2, 3, 4, 5))
	assert.Equal(t, uint64(3), r.Size())
	assert.True(t, r.IsFull())

	var got []int
	for i, v := range r.All() {
		assert.Equal(t, uint64(len(got)), i)
		got = append(got, v)
	}
	assert.Equal(t, "[3 4 5]", fmt.Sprint(got))
}

func TestRingReset(t *testing.T) {
	r := NewRing[string](2)
	assert.NoError(t, r.AddAll("a", "b", "c"))
	assert.NoError(t, r.Reset())
	assert.Equal(t, uint64(0), r.Size())
	assert.False(t, r.IsFull())
	_, ok := r.Get(0)
	assert.False(t, ok)

	assert.NoError(t, r.Add("x"))
	v, ok := r.Get(0)
	assert.True(t, ok)
	assert.Equal(t, "x", v)
}

func TestRingCapacityOne(t *testing.T) {
	r := NewRing[string](1)
	for _, s := range []string{"a", "b", "c"} {
		assert.NoError(t, r.Add(s))
		v, ok := r.Get(0)
		assert.True(t, ok)
		assert.Equal(t, s, v)
	}
	assert.Equal(t, uint64(1), r.Size())
}

func TestRingBadCapacity(t *testing.T) {
	assert.Panics(t, func() { NewRing[int](0) })
	assert.Panics(t, func() { NewRing[int](-4) })
}

func TestRingGetOutOfRange(t *testing.T) {
	r := NewRing[int](4)
	_, ok := r.Get(0)
	assert.False(t, ok)
	assert.NoError(t, r.Add(10))
	_, ok = r.Get(1)
	assert.False(t, ok)
}

func TestRingIterator(t *testing.T) {
	r := NewRing[int](2)
	assert.NoError(t, r.AddAll(7, 8, 9))

	it := r.Iterator()
	assert.True(t, it.Next())
	assert.Equal(t, 8, it.Value())
	assert.True(t, it.Next())
	assert.Equal(t, 9, it.Value())
	assert.False(t, it.Next())
}

func TestRingConcurrent(t *testing.T) {
	r := NewRing[int](64)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = r.Add(base + i)
			}
		}(w * 1000)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			r.Size()
			r.Get(uint64(i % 64))
			for range r.All() {
			}
		}
	}()
	wg.Wait()
	assert.True(t, r.IsFull())
	assert.Equal(t, uint64(64), r.Size())
}
