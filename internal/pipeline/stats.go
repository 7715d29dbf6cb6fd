package pipeline

import (
	"slices"
	"sync"
	"time"
)

type runSample struct {
	at         time.Time
	durationMs int64
	docs       int
	skipped    int
}

// StatsSnapshot aggregates the analysis runs inside the rolling window.
type StatsSnapshot struct {
	Runs        int     `json:"runs"`
	Documents   int     `json:"documents"`
	Skipped     int     `json:"skipped_documents"`
	MinMs       int64   `json:"min_ms"`
	MaxMs       int64   `json:"max_ms"`
	AvgMs       float64 `json:"avg_ms"`
	P50Ms       float64 `json:"p50_ms"`
	P95Ms       float64 `json:"p95_ms"`
	P99Ms       float64 `json:"p99_ms"`
	WindowStart string  `json:"window_start,omitempty"`
}

// RunStats tracks recent analysis runs within a rolling window.
type RunStats struct {
	mu      sync.Mutex
	samples []runSample
	window  time.Duration
	now     func() time.Time
}

func NewRunStats(window time.Duration) *RunStats {
	if window <= 0 {
		window = time.Hour
	}
	return &RunStats{
		samples: make([]runSample, 0, 128),
		window:  window,
		now:     time.Now,
	}
}

// Record adds one completed run. Negative durations are stored as zero.
func (s *RunStats) Record(d time.Duration, docs, skipped int) {
	ms := max(d.Milliseconds(), 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.expireLocked(now)
	s.samples = append(s.samples, runSample{at: now, durationMs: ms, docs: docs, skipped: skipped})
}

// Snapshot summarizes the runs still inside the window.
func (s *RunStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(s.now())
	if len(s.samples) == 0 {
		return StatsSnapshot{}
	}

	snap := StatsSnapshot{
		Runs:        len(s.samples),
		WindowStart: s.samples[0].at.UTC().Format(time.RFC3339),
	}
	durations := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		durations = append(durations, sm.durationMs)
		sum += sm.durationMs
		snap.Documents += sm.docs
		snap.Skipped += sm.skipped
	}
	slices.Sort(durations)

	snap.MinMs = durations[0]
	snap.MaxMs = durations[len(durations)-1]
	snap.AvgMs = float64(sum) / float64(len(durations))
	snap.P50Ms = percentile(durations, 50)
	snap.P95Ms = percentile(durations, 95)
	snap.P99Ms = percentile(durations, 99)
	return snap
}

// expireLocked drops samples older than the window. Samples are appended in
// time order, so the expired ones form a prefix.
func (s *RunStats) expireLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.samples) && s.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.samples = append(s.samples[:0], s.samples[i:]...)
	}
}

// percentile interpolates linearly between the two closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	pos := float64(len(sorted)-1) * pct / 100
	lo := int(pos)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := pos - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[lo+1]-sorted[lo])
}
