// Package perf records operation timings for diagnostics. It never affects
// the correctness of the operations it measures.
package perf

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// MaxSamples caps retained samples; the oldest EvictBatch are dropped
	// together once the cap is exceeded.
	MaxSamples = 1000
	EvictBatch = 100

	// DefaultSlowThreshold flags operations worth a warning.
	DefaultSlowThreshold = 100 * time.Millisecond
)

// Sample is one recorded operation timing.
type Sample struct {
	Name     string
	Duration time.Duration
	At       time.Time
}

// Tracker collects named operation timings in a bounded buffer.
// All methods are safe for concurrent use.
type Tracker struct {
	mu            sync.Mutex
	samples       []Sample
	logger        *zap.Logger
	slowThreshold time.Duration
}

// New creates a tracker. slowThreshold <= 0 selects DefaultSlowThreshold.
func New(logger *zap.Logger, slowThreshold time.Duration) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowThreshold
	}
	return &Tracker{
		samples:       make([]Sample, 0, MaxSamples),
		logger:        logger,
		slowThreshold: slowThreshold,
	}
}

// Default is the process-wide tracker for callers outside the composed app.
// Components inside it receive an injected instance instead.
var Default = New(nil, DefaultSlowThreshold)

// Start begins timing the named operation and returns the stop function.
// Callers defer the stop so it fires on every exit path, including errors.
func (t *Tracker) Start(name string) func() {
	started := time.Now()
	var once sync.Once
	return func() {
		once.Do(func() {
			t.record(name, time.Since(started), started)
		})
	}
}

func (t *Tracker) record(name string, d time.Duration, at time.Time) {
	if d > t.slowThreshold {
		t.logger.Warn("slow operation",
			zap.String("op", name),
			zap.Duration("duration", d),
			zap.Duration("threshold", t.slowThreshold))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.samples) >= MaxSamples {
		t.samples = append(t.samples[:0], t.samples[EvictBatch:]...)
	}
	t.samples = append(t.samples, Sample{Name: name, Duration: d, At: at})
}

// Samples returns a copy of all retained samples, oldest first.
func (t *Tracker) Samples() []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Sample, len(t.samples))
	copy(out, t.samples)
	return out
}

// Mean returns the mean duration recorded for the named operation, or zero
// when no samples exist for it.
func (t *Tracker) Mean(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total time.Duration
	var count int
	for _, s := range t.samples {
		if s.Name == name {
			total += s.Duration
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / time.Duration(count)
}

// Summary returns a human-readable digest grouped by operation name.
func (t *Tracker) Summary() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	type agg struct {
		count int
		total time.Duration
		max   time.Duration
	}
	byName := make(map[string]*agg)
	for _, s := range t.samples {
		a, ok := byName[s.Name]
		if !ok {
			a = &agg{}
			byName[s.Name] = a
		}
		a.count++
		a.total += s.Duration
		if s.Duration > a.max {
			a.max = s.Duration
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		a := byName[name]
		fmt.Fprintf(&b, "%-30s count=%-5d mean=%-12s max=%s\n",
			name, a.count, a.total/time.Duration(a.count), a.max)
	}
	return b.String()
}

// Reset discards all retained samples.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = t.samples[:0]
}
