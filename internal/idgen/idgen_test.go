package idgen

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextIsMonotonic(t *testing.T) {
	alloc := New(1)
	prev := alloc.Next()
	for i := 0; i < 100000; i++ {
		cur := alloc.Next()
		require.Greater(t, cur, prev, "id must strictly increase")
		prev = cur
	}
}

func TestNextConcurrentIDsAreUnique(t *testing.T) {
	alloc := New(2)
	const workers = 16
	const perWorker = 2000

	ids := make([]uint64, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ids[w*perWorker+i] = alloc.Next()
			}
		}(w)
	}
	wg.Wait()

	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		_, dup := seen[id]
		assert.False(t, dup, "id allocated twice: %d", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, workers*perWorker)
}

func TestNodeIDClamped(t *testing.T) {
	a := New(99999)
	assert.Equal(t, int64(maxNode), a.node)

	b := New(-5)
	assert.Equal(t, int64(0), b.node)
}

func TestClockBackwardNeverIssuesLowerID(t *testing.T) {
	alloc := New(3)
	var tick int64 = 1000
	alloc.nowMs = func() int64 { return tick }

	first := alloc.Next()

	tick = 500 // clock moved backward
	second := alloc.Next()

	assert.Greater(t, second, first)
}
