package utils

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestURLSetNoDuplicates(t *testing.T) {
	s := NewURLSet()

	assert.True(t, s.Add("https://example.com/1"), "first Add should return true")
	assert.False(t, s.Add("https://example.com/1"), "second Add of same URL should return false")
	assert.True(t, s.Contains("https://example.com/1"))
	assert.Equal(t, 1, s.Size())
}

func TestURLSetConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewURLSet()
	var added int64

	pool := NewWorkerPool(10, 0)
	for i := 0; i < 100; i++ {
		pool.Submit(t.Context(), func() {
			if s.Add("https://example.com/same") {
				atomic.AddInt64(&added, 1)
			}
		})
	}
	pool.Wait()

	assert.Equal(t, int64(1), added, "expected exactly 1 successful add")
}

func TestWorkerPoolRateLimit(t *testing.T) {
	rateLimitMs := 100
	pool := NewWorkerPool(1, rateLimitMs)

	var mu sync.Mutex
	var timestamps []time.Time

	for i := 0; i < 3; i++ {
		pool.Submit(t.Context(), func() {
			mu.Lock()
			timestamps = append(timestamps, time.Now())
			mu.Unlock()
		})
	}
	pool.Wait()

	require.Len(t, timestamps, 3)
	minGap := time.Duration(rateLimitMs) * time.Millisecond
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		assert.GreaterOrEqual(t, gap, minGap, "gap between job %d and %d", i-1, i)
	}
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := NewWorkerPool(3, 0)
	var running, peak int64

	for i := 0; i < 20; i++ {
		pool.Submit(t.Context(), func() {
			n := atomic.AddInt64(&running, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&running, -1)
		})
	}
	pool.Wait()

	assert.LessOrEqual(t, peak, int64(3))
}

func TestWorkerPoolSubmitAfterCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := NewWorkerPool(1, 0)
	release := make(chan struct{})
	require.True(t, pool.Submit(t.Context(), func() { <-release }))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	ran := false
	assert.False(t, pool.Submit(ctx, func() { ran = true }), "submit should give up once ctx is done")

	close(release)
	pool.Wait()
	assert.False(t, ran)
}
