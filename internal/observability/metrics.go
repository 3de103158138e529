package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects and aggregates request metrics.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	// durations keeps the most recent latencies for percentile estimates.
	durations    []time.Duration
	maxDurations int
}

// NewMetrics creates a new metrics collector keeping up to maxDurations
// recent latencies.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

// RecordRequest records one completed request.
func (m *Metrics) RecordRequest(duration time.Duration, failed bool) {
	m.requestTotal.Add(1)
	if failed {
		m.requestFailed.Add(1)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.durations) >= m.maxDurations {
		copy(m.durations, m.durations[1:])
		m.durations = m.durations[:len(m.durations)-1]
	}
	m.durations = append(m.durations, duration)
}

// Snapshot is a point-in-time view of the collected metrics.
type Snapshot struct {
	TotalRequests int64
	ErrorCount    int64
	SuccessRate   float64
	AvgLatency    time.Duration
	P50Latency    time.Duration
	P95Latency    time.Duration
}

// Snapshot returns the current aggregated metrics.
func (m *Metrics) Snapshot() Snapshot {
	total := m.requestTotal.Load()
	failed := m.requestFailed.Load()

	snapshot := Snapshot{
		TotalRequests: total,
		ErrorCount:    failed,
	}
	if total > 0 {
		snapshot.SuccessRate = float64(total-failed) / float64(total)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.durations) == 0 {
		return snapshot
	}

	sorted := make([]time.Duration, len(m.durations))
	copy(sorted, m.durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	snapshot.AvgLatency = sum / time.Duration(len(sorted))
	snapshot.P50Latency = percentile(sorted, 0.50)
	snapshot.P95Latency = percentile(sorted, 0.95)
	return snapshot
}

// percentile returns the p-th percentile of sorted durations.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	index := int(float64(len(sorted)-1) * p)
	return sorted[index]
}
