// Package profiler - per-stage timing statistics for the detection pipeline.
package profiler

import (
	"sort"
	"sync"
	"time"

	"github.com/cyclopcam/logs"
)

// Stage names recorded by the detector.
const (
	StagePreprocess = "preprocess"
	StageInference  = "inference"
	StageDecode     = "decode"
)

// OperationStats summarizes the recorded durations of one operation.
type OperationStats struct {
	Name    string        `json:"name"`
	Count   int64         `json:"count"`
	Total   time.Duration `json:"total"`
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
	Average time.Duration `json:"average"`
}

// timeTracker tracks operation timing statistics over a bounded window.
type timeTracker struct {
	durations []time.Duration
	windowSum time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// Profiler records how long named operations take. It is safe for concurrent use.
type Profiler struct {
	mu         sync.Mutex
	maxSamples int
	operations map[string]*timeTracker
}

// New creates a profiler keeping up to maxSamples recent durations per
// operation for the moving average. Zero means 600.
//
// Arguments:
//   - maxSamples: The averaging window.
//
// Returns:
//   - *Profiler: The profiler.
func New(maxSamples int) *Profiler {
	if maxSamples <= 0 {
		maxSamples = 600
	}
	return &Profiler{
		maxSamples: maxSamples,
		operations: make(map[string]*timeTracker),
	}
}

// StartOperation starts timing an operation.
//
// Arguments:
//   - name: The name of the operation to track.
//
// Returns:
//   - A function to call when the operation completes.
//
// @example
// defer p.StartOperation(profiler.StageInference)()
func (p *Profiler) StartOperation(name string) func() {
	if p == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		p.Record(name, time.Since(start))
	}
}

// Record adds one duration sample for an operation.
func (p *Profiler) Record(name string, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.operations[name]
	if !exists {
		tracker = &timeTracker{minTime: duration, maxTime: duration}
		p.operations[name] = tracker
	}

	tracker.durations = append(tracker.durations, duration)
	tracker.windowSum += duration
	if len(tracker.durations) > p.maxSamples {
		// Remove oldest sample
		tracker.windowSum -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}

	tracker.totalTime += duration
	tracker.count++
	if duration < tracker.minTime {
		tracker.minTime = duration
	}
	if duration > tracker.maxTime {
		tracker.maxTime = duration
	}
}

// Stats returns a snapshot of every operation, sorted by name. Average is
// over the most recent window of samples.
func (p *Profiler) Stats() []OperationStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]OperationStats, 0, len(p.operations))
	for name, t := range p.operations {
		out = append(out, OperationStats{
			Name:    name,
			Count:   t.count,
			Total:   t.totalTime,
			Min:     t.minTime,
			Max:     t.maxTime,
			Average: t.windowSum / time.Duration(len(t.durations)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Report logs one line per operation.
func (p *Profiler) Report(log logs.Log) {
	for _, s := range p.Stats() {
		log.Infof("%-10s n=%d avg=%v min=%v max=%v total=%v", s.Name, s.Count, s.Average, s.Min, s.Max, s.Total)
	}
}
