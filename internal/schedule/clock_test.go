package schedule

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_NextIsStrictlyIncreasing(t *testing.T) {
	c := NewClock()

	prev := c.Next()
	for i := 0; i < 100; i++ {
		next := c.Next()
		assert.Greater(t, next, prev)
		prev = next
	}
	assert.Equal(t, prev, c.Current())
}

func TestClock_ConcurrentNextYieldsUniqueValues(t *testing.T) {
	c := NewClock()

	const n = 50
	var wg sync.WaitGroup
	seen := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- c.Next()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for v := range seen {
		assert.False(t, unique[v], "sequence value issued twice")
		unique[v] = true
	}
	assert.Len(t, unique, n)
}
