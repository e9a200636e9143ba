package progress

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// LogReporter logs each report with throughput since the first report and
// completion percentage when the total is known
type LogReporter struct {
	logger *zap.Logger

	mu          sync.Mutex
	startTime   time.Time
	lastCurrent uint64
}

// NewLogReporter creates a reporter that logs through logger
func NewLogReporter(logger *zap.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Report logs the progress update
func (lr *LogReporter) Report(total, current uint64, message string) {
	lr.mu.Lock()
	now := time.Now()
	if lr.startTime.IsZero() || current < lr.lastCurrent {
		// a new run starts from zero
		lr.startTime = now
	}
	lr.lastCurrent = current
	elapsed := now.Sub(lr.startTime)
	lr.mu.Unlock()

	fields := []zap.Field{
		zap.Uint64("current", current),
		zap.Duration("elapsed", elapsed),
	}

	if elapsed > 0 && current > 0 {
		fields = append(fields, zap.Float64("records_per_sec", float64(current)/elapsed.Seconds()))
	}

	if total > 0 {
		fields = append(fields,
			zap.Uint64("total", total),
			zap.Float64("percentage", float64(current)/float64(total)*100),
		)
	}

	lr.logger.Info(message, fields...)
}
