package utils

import (
	"context"
	"sync"
	"time"
)

// WorkerPool manages a pool of goroutines with rate limiting.
type WorkerPool struct {
	maxWorkers  int
	rateLimitMs int
	semaphore   chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	lastRequest time.Time
}

// NewWorkerPool creates a WorkerPool with the given concurrency and rate limit.
// A rateLimitMs of zero disables pacing.
func NewWorkerPool(maxWorkers, rateLimitMs int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		maxWorkers:  maxWorkers,
		rateLimitMs: rateLimitMs,
		semaphore:   make(chan struct{}, maxWorkers),
		lastRequest: time.Now().Add(-time.Duration(rateLimitMs) * time.Millisecond),
	}
}

// Submit blocks until a worker slot is free, then runs job on its own
// goroutine. It returns false without running job if ctx is cancelled first.
func (wp *WorkerPool) Submit(ctx context.Context, job func()) bool {
	select {
	case wp.semaphore <- struct{}{}:
	case <-ctx.Done():
		return false
	}

	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()

		wp.enforceRateLimit()
		job()
	}()
	return true
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) enforceRateLimit() {
	if wp.rateLimitMs <= 0 {
		return
	}
	wp.mu.Lock()
	defer wp.mu.Unlock()

	minInterval := time.Duration(wp.rateLimitMs) * time.Millisecond
	elapsed := time.Since(wp.lastRequest)
	if elapsed < minInterval {
		time.Sleep(minInterval - elapsed)
	}
	wp.lastRequest = time.Now()
}

// URLSet is a thread-safe set for tracking visited URLs and file names.
type URLSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewURLSet creates an empty URLSet.
func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add returns true if the URL was newly added, false if already present.
func (s *URLSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[url]; exists {
		return false
	}
	s.seen[url] = struct{}{}
	return true
}

// Contains returns true if the URL has already been visited.
func (s *URLSet) Contains(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[url]
	return exists
}

// Size returns the number of unique URLs tracked.
func (s *URLSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
