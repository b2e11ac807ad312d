package scanning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anstrom/recon/internal/metrics"
)

// FixedResourceManager bounds how many probes may be in flight at once
// with a fixed number of slots backed by a channel semaphore. It also remembers the highest
// concurrency it ever granted.
type FixedResourceManager struct {
	capacity  int
	semaphore chan struct{}
	active    map[string]time.Time
	peak      int
	metrics   metrics.ScanMetrics
	mutex     sync.RWMutex
	closed    bool
}

// NewFixedResourceManager creates a new resource manager with the specified capacity.
func NewFixedResourceManager(capacity int, m metrics.ScanMetrics) *FixedResourceManager {
	if capacity <= 0 {
		capacity = 1
	}

	return &FixedResourceManager{
		capacity:  capacity,
		semaphore: make(chan struct{}, capacity),
		active:    make(map[string]time.Time),
		metrics:   metrics.OrNop(m),
	}
}

// Acquire attempts to acquire a slot for id.
func (rm *FixedResourceManager) Acquire(ctx context.Context, id string) error {
	rm.mutex.RLock()
	closed := rm.closed
	rm.mutex.RUnlock()
	if closed {
		return fmt.Errorf("resource manager is closed")
	}

	select {
	case rm.semaphore <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	rm.mutex.Lock()
	if _, dup := rm.active[id]; dup {
		rm.mutex.Unlock()
		<-rm.semaphore
		return fmt.Errorf("slot %q already held", id)
	}
	rm.active[id] = time.Now()
	if n := len(rm.active); n > rm.peak {
		rm.peak = n
	}
	rm.mutex.Unlock()

	rm.metrics.IncActiveProbes()
	return nil
}

// Release releases the slot held by id. Unknown ids are ignored.
func (rm *FixedResourceManager) Release(id string) {
	rm.mutex.Lock()
	_, exists := rm.active[id]
	if exists {
		delete(rm.active, id)
	}
	rm.mutex.Unlock()

	if !exists {
		return
	}
	select {
	case <-rm.semaphore:
	default:
	}
	rm.metrics.DecActiveProbes()
}

// Peak returns the highest number of slots ever held at once.
func (rm *FixedResourceManager) Peak() int {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()

	return rm.peak
}

// Capacity returns the pool width.
func (rm *FixedResourceManager) Capacity() int {
	return rm.capacity
}

// Close rejects further acquisitions. Held slots stay held until released.
func (rm *FixedResourceManager) Close() error {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	rm.closed = true
	return nil
}

