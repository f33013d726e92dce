package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_StartsAtZero(t *testing.T) {
	assert.Equal(t, time.Duration(0), NewManualClock().Now())
}

func TestManualClock_Advance(t *testing.T) {
	c := NewManualClock()
	assert.Equal(t, 5*time.Millisecond, c.Advance(5*time.Millisecond))
	assert.Equal(t, 5*time.Millisecond, c.Advance(-time.Second), "negative advance ignored")
	assert.Equal(t, 5*time.Millisecond, c.Now())
}

func TestManualClock_SetNeverRewinds(t *testing.T) {
	c := NewManualClock()
	c.Set(10 * time.Millisecond)
	c.Set(3 * time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, c.Now())

	c.Reset()
	assert.Equal(t, time.Duration(0), c.Now())
}

func TestManualClock_ConcurrentAdvance(t *testing.T) {
	c := NewManualClock()
	const goroutines = 10
	const perGoroutine = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				c.Advance(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*perGoroutine*time.Millisecond, c.Now())
}
