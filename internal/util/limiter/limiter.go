// Package limiter bounds the number of tasks running at once.
package limiter

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultMax returns one less than the number of CPUs, at least 1.
func DefaultMax() int {
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}

// Limiter admits at most Max holders at a time. It is safe for concurrent use.
type Limiter struct {
	sem *semaphore.Weighted
	max int

	mu       sync.Mutex
	admitted int
	peak     int
}

// New creates a limiter. maxConcurrent <= 0 means DefaultMax().
func New(maxConcurrent int) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMax()
	}
	return &Limiter{
		sem: semaphore.NewWeighted(int64(maxConcurrent)),
		max: maxConcurrent,
	}
}

// Acquire blocks until a slot is free or ctx is done.
// On error no slot is held.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.mu.Lock()
	l.admitted++
	if l.admitted > l.peak {
		l.peak = l.admitted
	}
	l.mu.Unlock()
	return nil
}

// Release frees a slot. It panics if no slot is held.
func (l *Limiter) Release() {
	l.mu.Lock()
	if l.admitted == 0 {
		l.mu.Unlock()
		panic("limiter: release without acquire")
	}
	l.admitted--
	l.mu.Unlock()
	l.sem.Release(1)
}

// Admitted returns the number of slots currently held
func (l *Limiter) Admitted() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.admitted
}

// Peak returns the highest number of slots held at once
func (l *Limiter) Peak() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peak
}

// Max returns the slot count
func (l *Limiter) Max() int {
	return l.max
}
