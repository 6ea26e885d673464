package idempotency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStoreFirstCallerWins(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ok1, err := s.TryMarkProcessed(ctx, "file:abc", time.Minute)
	assert.NoError(t, err)
	assert.True(t, ok1)

	ok2, err := s.TryMarkProcessed(ctx, "file:abc", time.Minute)
	assert.NoError(t, err)
	assert.False(t, ok2)
}

func TestMemoryStoreConcurrentCallersExactlyOneWinner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const n = 64
	var wg sync.WaitGroup
	wins := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, _ := s.TryMarkProcessed(ctx, "file:race", time.Minute)
			wins[i] = ok
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, w := range wins {
		if w {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestMemoryStoreExpiresAfterTTL(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ok1, _ := s.TryMarkProcessed(ctx, "file:abc", 10*time.Millisecond)
	assert.True(t, ok1)

	time.Sleep(20 * time.Millisecond)

	ok2, _ := s.TryMarkProcessed(ctx, "file:abc", time.Minute)
	assert.True(t, ok2)
}

func TestClampTTL(t *testing.T) {
	assert.Equal(t, DefaultTTL, ClampTTL(0))
	assert.Equal(t, MinTTL, ClampTTL(1*time.Nanosecond))
	assert.Equal(t, 5*time.Second, ClampTTL(5*time.Second))
}

func TestKeyForEvent(t *testing.T) {
	assert.Equal(t, "file:abc-123", KeyForEvent("abc-123"))
}
