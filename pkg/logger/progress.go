package logger

import (
	"sync"
	"time"
)

// ProgressTracker logs periodic progress for long-running operations such
// as large claim or remittance uploads.
type ProgressTracker struct {
	logger      Logger
	operation   string
	total       int64
	current     int64
	startTime   time.Time
	lastLogTime time.Time
	logInterval time.Duration
	mutex       sync.Mutex
}

// NewProgressTracker creates a progress tracker for the named operation.
// A zero interval defaults to five seconds between progress lines.
func NewProgressTracker(log Logger, operation string, total int64, interval time.Duration) *ProgressTracker {
	if log == nil {
		log = GetGlobalLogger()
	}
	if interval == 0 {
		interval = 5 * time.Second
	}

	tracker := &ProgressTracker{
		logger:      log.WithComponent("progress"),
		operation:   operation,
		total:       total,
		startTime:   time.Now(),
		lastLogTime: time.Now(),
		logInterval: interval,
	}

	tracker.logger.WithFields(Fields{
		"operation": operation,
		"total":     total,
	}).Info("Starting operation")

	return tracker
}

// Add advances the tracker by n records, logging if the interval elapsed.
func (pt *ProgressTracker) Add(n int64) {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	pt.current += n
	if time.Since(pt.lastLogTime) < pt.logInterval {
		return
	}
	pt.lastLogTime = time.Now()

	fields := Fields{
		"operation": pt.operation,
		"processed": pt.current,
		"elapsed":   time.Since(pt.startTime).Round(time.Millisecond).String(),
	}
	if pt.total > 0 {
		fields["total"] = pt.total
		fields["percent"] = float64(pt.current) / float64(pt.total) * 100
	}
	pt.logger.WithFields(fields).Info("Operation progress")
}

// Done logs the final record count and elapsed time.
func (pt *ProgressTracker) Done() {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()

	pt.logger.WithFields(Fields{
		"operation": pt.operation,
		"processed": pt.current,
		"elapsed":   time.Since(pt.startTime).Round(time.Millisecond).String(),
	}).Info("Operation completed")
}
