package usage

import (
	"sync"
	"time"
)

// RollingWindow accumulates a float64 series over a sliding time span.
// The span is divided into fixed-size buckets held in a circular buffer;
// buckets older than the span are cleared on every access, so readings
// never include expired activity.
type RollingWindow struct {
	mu      sync.Mutex
	span    time.Duration
	size    time.Duration
	buckets []bucket
}

type bucket struct {
	start time.Time
	total float64
}

// NewRollingWindow creates a window covering span, bucketed at the given
// granularity. Smaller buckets track the sliding edge more precisely at the
// cost of memory.
func NewRollingWindow(span, size time.Duration) *RollingWindow {
	n := int(span / size)
	if n < 1 {
		n = 1
	}
	return &RollingWindow{
		span:    span,
		size:    size,
		buckets: make([]bucket, n),
	}
}

// Add records an amount in the bucket covering the current instant.
func (w *RollingWindow) Add(amount float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	w.pruneLocked(now)
	w.slotLocked(now).total += amount
}

// Sum returns the series total across the live span.
func (w *RollingWindow) Sum() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(time.Now())

	var sum float64
	for i := range w.buckets {
		sum += w.buckets[i].total
	}
	return sum
}

// Reset clears every bucket.
func (w *RollingWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range w.buckets {
		w.buckets[i] = bucket{}
	}
}

func (w *RollingWindow) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.span)
	for i := range w.buckets {
		if !w.buckets[i].start.IsZero() && w.buckets[i].start.Before(cutoff) {
			w.buckets[i] = bucket{}
		}
	}
}

// slotLocked returns the bucket for the current instant, claiming an empty
// slot or recycling the oldest one when the instant has no bucket yet.
func (w *RollingWindow) slotLocked(now time.Time) *bucket {
	start := now.Truncate(w.size)

	empty, oldest := -1, 0
	for i := range w.buckets {
		if w.buckets[i].start.Equal(start) {
			return &w.buckets[i]
		}
		if w.buckets[i].start.IsZero() {
			if empty == -1 {
				empty = i
			}
			continue
		}
		if w.buckets[i].start.Before(w.buckets[oldest].start) {
			oldest = i
		}
	}

	idx := empty
	if idx == -1 {
		idx = oldest
	}
	w.buckets[idx] = bucket{start: start}
	return &w.buckets[idx]
}
