package metrics

import (
	"sync"
)

// Reporter is a progress reporter that feeds the conversion collectors. It
// satisfies progress.Reporter.
type Reporter struct {
	direction Direction
	tracker   *ThroughputTracker

	mu   sync.Mutex
	last uint64
}

// NewReporter creates a reporter labelled with direction
func NewReporter(direction Direction) *Reporter {
	return &Reporter{
		direction: direction,
		tracker:   NewThroughputTracker(direction),
	}
}

// Report updates progress, the converted-records counter and throughput
func (r *Reporter) Report(_, current uint64, _ string) {
	r.mu.Lock()
	if current < r.last {
		r.last = 0
	}
	delta := current - r.last
	r.last = current
	r.mu.Unlock()

	label := string(r.direction)
	ConversionProgress.WithLabelValues(label).Set(float64(current))
	if delta > 0 {
		RecordsConverted.WithLabelValues(label).Add(float64(delta))
	}
	r.tracker.Update(current)
	_, _ = SampleMemory()
}
