package performance

import (
	"fmt"
	"sync"
	"time"
)

// Tracker manages performance markers and provides metrics aggregation
type Tracker struct {
	markers    map[string]*Marker // Active and completed markers by unique ID
	maxMarkers int                // Maximum number of markers to retain
	mu         sync.RWMutex       // Protects concurrent access
	started    time.Time          // When tracking started
}

// NewTracker creates a new performance tracker
func NewTracker() *Tracker {
	return &Tracker{
		markers:    make(map[string]*Marker),
		maxMarkers: 10000,
		started:    time.Now(),
	}
}

// StartOperation creates and tracks a new performance marker for an operation
func (t *Tracker) StartOperation(operation string) *Marker {
	marker := &Marker{
		Operation: operation,
		StartTime: time.Now(),
		Metadata:  make(map[string]any),
		Success:   true, // Assume success until proven otherwise
	}

	markerID := fmt.Sprintf("%s_%d", operation, time.Now().UnixNano())

	t.mu.Lock()
	if len(t.markers) >= t.maxMarkers {
		t.evictOldestLocked()
	}
	t.markers[markerID] = marker
	t.mu.Unlock()

	return marker
}

// Summary aggregates completed markers per operation.
type Summary struct {
	Operation     string        `json:"operation"`
	Count         int           `json:"count"`
	Failures      int           `json:"failures"`
	TotalDuration time.Duration `json:"totalDuration"`
	MaxDuration   time.Duration `json:"maxDuration"`
}

// Summarize returns aggregate metrics for all completed operations
func (t *Tracker) Summarize() map[string]*Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	summaries := make(map[string]*Summary)
	for _, marker := range t.markers {
		if !marker.Completed {
			continue
		}
		s, ok := summaries[marker.Operation]
		if !ok {
			s = &Summary{Operation: marker.Operation}
			summaries[marker.Operation] = s
		}
		s.Count++
		if !marker.Success {
			s.Failures++
		}
		s.TotalDuration += marker.Duration
		if marker.Duration > s.MaxDuration {
			s.MaxDuration = marker.Duration
		}
	}
	return summaries
}

// Uptime returns how long the tracker has been running
func (t *Tracker) Uptime() time.Duration {
	return time.Since(t.started)
}

// evictOldestLocked drops the oldest completed marker. Caller holds the lock.
func (t *Tracker) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, m := range t.markers {
		if !m.Completed {
			continue
		}
		if oldestID == "" || m.StartTime.Before(oldest) {
			oldestID = id
			oldest = m.StartTime
		}
	}
	if oldestID != "" {
		delete(t.markers, oldestID)
	}
}
