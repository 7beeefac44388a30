// Package monitor runs the periodic cleanup of expired short URLs.
package monitor

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"shorturl/internal/models"
)

// Cleaner is the slice of the service the monitor drives.
type Cleaner interface {
	CleanupExpiredURLs(ctx context.Context) (int, error)
}

// Status describes the monitor's current state.
type Status struct {
	IsRunning bool      `json:"is_running"`
	LastRun   time.Time `json:"last_run"`
	NextRun   time.Time `json:"next_run"`
}

// CleanupMonitor triggers cleanup sweeps on a fixed period. At most one
// sweep executes at a time: a tick or manual trigger arriving while a sweep
// is in progress is skipped and logged, never queued. Sweep failures are
// logged and never propagate.
type CleanupMonitor struct {
	cleaner  Cleaner
	interval time.Duration
	clock    models.Clock

	inProgress atomic.Bool

	mu      sync.Mutex
	lastRun time.Time
	nextRun time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewCleanupMonitor creates a monitor sweeping every interval.
func NewCleanupMonitor(cleaner Cleaner, interval time.Duration, clock models.Clock) *CleanupMonitor {
	return &CleanupMonitor{
		cleaner:  cleaner,
		interval: interval,
		clock:    clock,
		stop:     make(chan struct{}),
	}
}

// Start launches the periodic sweep loop in its own goroutine. Stop ends it.
func (m *CleanupMonitor) Start() {
	log.Printf("[CLEANUP] Starting cleanup monitor with interval of %v...", m.interval)
	m.setNextRun(m.clock.Now().Add(m.interval))

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.runSweep()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop ends the periodic loop. Safe to call more than once; an in-flight
// sweep finishes on its own.
func (m *CleanupMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		log.Println("[CLEANUP] Cleanup monitor stopped.")
	})
}

// Trigger runs a sweep immediately, under the same re-entrancy guard as the
// periodic one. Reports whether the sweep actually ran.
func (m *CleanupMonitor) Trigger() bool {
	return m.runSweep()
}

// Status returns the monitor's current state.
func (m *CleanupMonitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		IsRunning: m.inProgress.Load(),
		LastRun:   m.lastRun,
		NextRun:   m.nextRun,
	}
}

// runSweep executes one cleanup pass. The atomic flag guarantees at most one
// sweep at a time; an overlapping attempt is skipped.
func (m *CleanupMonitor) runSweep() bool {
	if !m.inProgress.CompareAndSwap(false, true) {
		log.Println("[CLEANUP] Sweep already in progress, skipping this run.")
		return false
	}
	defer m.inProgress.Store(false)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[CLEANUP] ERROR: sweep panicked: %v", r)
		}
	}()

	deleted, err := m.cleaner.CleanupExpiredURLs(context.Background())
	now := m.clock.Now()

	m.mu.Lock()
	m.lastRun = now
	m.nextRun = now.Add(m.interval)
	m.mu.Unlock()

	if err != nil {
		log.Printf("[CLEANUP] ERROR: sweep failed: %v", err)
		return true
	}
	if deleted > 0 {
		log.Printf("[CLEANUP] Sweep removed %d expired short URL(s).", deleted)
	}
	return true
}

func (m *CleanupMonitor) setNextRun(t time.Time) {
	m.mu.Lock()
	m.nextRun = t
	m.mu.Unlock()
}
