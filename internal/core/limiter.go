package core

// limiter.go keeps sync runs from overlapping.
//
// A sync clears and reloads whole tables, so two concurrent runs would
// interleave their DELETE and INSERT chunks. The HTTP trigger, the scheduler
// and the CLI share one limiter per process. Callers either wait up to
// maxWait for the running sync to finish (Acquire) or give up immediately
// (TryAcquire), which is what the scheduler does.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSyncInProgress is returned when another sync holds the slot and the
// wait timeout expires.
var ErrSyncInProgress = errors.New("sync already in progress: too many syncs")

// DefaultMaxConcurrentSyncs is the default limit for parallel sync runs.
const DefaultMaxConcurrentSyncs = 1

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 5 * time.Second

// SyncLimiter controls concurrent sync runs using a semaphore pattern.
type SyncLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewSyncLimiter creates a limiter that allows at most maxConcurrent simultaneous runs.
// Requests that cannot acquire a slot within maxWait will receive ErrSyncInProgress.
func NewSyncLimiter(maxConcurrent int, maxWait time.Duration) *SyncLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentSyncs
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &SyncLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire attempts to acquire a sync slot.
// Returns nil on success, ErrSyncInProgress if timeout expires.
// The caller MUST call Release() when the run completes (use defer).
func (l *SyncLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrSyncInProgress
	}
}

// TryAcquire attempts to acquire a slot without blocking.
// Returns true if a slot was acquired, false otherwise.
func (l *SyncLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release releases a previously acquired slot.
// Must be called exactly once for each successful Acquire/TryAcquire.
func (l *SyncLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of currently running syncs.
func (l *SyncLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of available slots.
func (l *SyncLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all running syncs complete or context is cancelled.
// Used for graceful shutdown so a sync is not cut off mid table.
func (l *SyncLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SyncLimiterStatus is a snapshot of the limiter's current state.
type SyncLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *SyncLimiter) Status() SyncLimiterStatus {
	return SyncLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.semaphore),
	}
}
