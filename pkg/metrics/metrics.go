// Package metrics provides Prometheus instrumentation for trainbin conversions.
//
// # Overview
//
// The metrics package provides:
//   - Pre-registered collectors for records moved, run outcomes and durations
//   - A progress reporter that feeds those collectors
//   - Throughput tracking for the current run
//   - Process memory sampling through gopsutil
//
// # Basic Usage
//
//	reporter := metrics.NewReporter(metrics.DirectionImport)
//	loader := loader.NewBinaryDataLoader(codec, loader.WithReporter(reporter))
//
//	http.Handle("/metrics", metrics.Handler())
package metrics

import (
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/process"
)

// Direction labels the conversion direction
type Direction string

const (
	// DirectionImport is external representation to binary container
	DirectionImport Direction = "import"
	// DirectionExport is binary container to external representation
	DirectionExport Direction = "export"
)

const (
	// StatusSuccess labels a completed run
	StatusSuccess = "success"
	// StatusFailure labels a failed run
	StatusFailure = "failure"
)

var (
	// RecordsConverted tracks the total number of records moved.
	// Labels: direction (import/export)
	RecordsConverted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trainbin_records_converted_total",
			Help: "Total number of records moved between representations",
		},
		[]string{"direction"},
	)

	// ConversionProgress is the record position of the current run
	ConversionProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trainbin_conversion_progress_records",
			Help: "Records moved so far in the current run",
		},
		[]string{"direction"},
	)

	// Conversions counts finished runs.
	// Labels: direction, status (success/failure)
	Conversions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trainbin_conversions_total",
			Help: "Total number of finished conversion runs",
		},
		[]string{"direction", "status"},
	)

	// ConversionDuration tracks how long runs take
	ConversionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trainbin_conversion_duration_seconds",
			Help:    "Duration of conversion runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms .. ~43min
		},
		[]string{"direction"},
	)

	// Throughput tracks records per second between progress reports
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trainbin_throughput_records_per_second",
			Help: "Current throughput in records per second",
		},
		[]string{"direction"},
	)

	// ResidentMemory tracks the resident set size of this process
	ResidentMemory = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trainbin_process_resident_bytes",
			Help: "Resident memory of the trainbin process in bytes",
		},
	)
)

// Handler returns an HTTP handler exposing the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveConversion records the outcome of one finished run
func ObserveConversion(direction Direction, err error, elapsed time.Duration) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	Conversions.WithLabelValues(string(direction), status).Inc()
	ConversionDuration.WithLabelValues(string(direction)).Observe(elapsed.Seconds())
}

var (
	procOnce sync.Once
	proc     *process.Process
)

// SampleMemory updates ResidentMemory and returns the sampled value
func SampleMemory() (uint64, error) {
	var err error
	procOnce.Do(func() {
		proc, err = process.NewProcess(int32(os.Getpid())) //nolint:gosec // pid fits in int32
	})
	if err != nil {
		return 0, err
	}
	if proc == nil {
		return 0, os.ErrProcessDone
	}

	memInfo, err := proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	ResidentMemory.Set(float64(memInfo.RSS))
	return memInfo.RSS, nil
}

// ThroughputTracker calculates records per second between successive updates
type ThroughputTracker struct {
	mu        sync.Mutex
	last      uint64
	lastReset time.Time
	direction Direction
}

// NewThroughputTracker creates a tracker for one direction
func NewThroughputTracker(direction Direction) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		direction: direction,
	}
}

// Update takes the current record position, updates the Throughput gauge and
// returns the rate since the previous update
func (t *ThroughputTracker) Update(current uint64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if current < t.last {
		// new run
		t.last = 0
	}
	elapsed := now.Sub(t.lastReset).Seconds()
	delta := current - t.last
	t.last = current
	t.lastReset = now

	if elapsed <= 0 {
		return 0
	}
	rate := float64(delta) / elapsed
	Throughput.WithLabelValues(string(t.direction)).Set(rate)
	return rate
}
