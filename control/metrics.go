// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime counters for stream monitoring.
// Exposes counters in a thread-safe map with dynamic registration.

package control

import (
	"sync"
	"time"
)

// MetricsRegistry holds named counters.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]int64
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]int64),
	}
}

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value int64) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Add increments key by delta.
func (mr *MetricsRegistry) Add(key string, delta int64) {
	mr.mu.Lock()
	mr.metrics[key] += delta
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Get returns the current value of key.
func (mr *MetricsRegistry) Get(key string) int64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.metrics[key]
}

// Updated returns the time of the last change.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}

// GetSnapshot returns the latest metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]int64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]int64, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}
