package monitoring

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Metrics holds the moderation counters. All fields are touched through
// sync/atomic only.
type Metrics struct {
	// Submissions
	SubmissionsTotal     uint64
	SubmissionsCompleted uint64
	SubmissionsFailed    uint64

	// Verdicts
	FlaggedTotal   uint64
	AnalyzerErrors uint64

	// Notification fan-out
	NotificationsSent   uint64
	NotificationsFailed uint64

	// Analyze latency (nanoseconds)
	AnalyzeLatencySum   uint64
	AnalyzeLatencyCount uint64

	StartTime time.Time
}

// Monitor collects runtime metrics for the moderation service.
type Monitor struct {
	metrics *Metrics
	logger  *zap.Logger
}

// NewMonitor creates a monitor.
func NewMonitor(logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		metrics: &Metrics{StartTime: time.Now()},
		logger:  logger,
	}
}

func (m *Monitor) IncSubmission()          { atomic.AddUint64(&m.metrics.SubmissionsTotal, 1) }
func (m *Monitor) IncSubmissionCompleted() { atomic.AddUint64(&m.metrics.SubmissionsCompleted, 1) }
func (m *Monitor) IncSubmissionFailed()    { atomic.AddUint64(&m.metrics.SubmissionsFailed, 1) }
func (m *Monitor) IncFlagged()             { atomic.AddUint64(&m.metrics.FlaggedTotal, 1) }
func (m *Monitor) IncAnalyzerError()       { atomic.AddUint64(&m.metrics.AnalyzerErrors, 1) }
func (m *Monitor) IncNotificationSent()    { atomic.AddUint64(&m.metrics.NotificationsSent, 1) }
func (m *Monitor) IncNotificationFailed()  { atomic.AddUint64(&m.metrics.NotificationsFailed, 1) }

// RecordAnalyzeLatency adds one analyzer round-trip to the running average.
func (m *Monitor) RecordAnalyzeLatency(d time.Duration) {
	atomic.AddUint64(&m.metrics.AnalyzeLatencySum, uint64(d.Nanoseconds()))
	atomic.AddUint64(&m.metrics.AnalyzeLatencyCount, 1)
}

// Snapshot returns a copy of the current counter values.
func (m *Monitor) Snapshot() Metrics {
	return Metrics{
		SubmissionsTotal:     atomic.LoadUint64(&m.metrics.SubmissionsTotal),
		SubmissionsCompleted: atomic.LoadUint64(&m.metrics.SubmissionsCompleted),
		SubmissionsFailed:    atomic.LoadUint64(&m.metrics.SubmissionsFailed),
		FlaggedTotal:         atomic.LoadUint64(&m.metrics.FlaggedTotal),
		AnalyzerErrors:       atomic.LoadUint64(&m.metrics.AnalyzerErrors),
		NotificationsSent:    atomic.LoadUint64(&m.metrics.NotificationsSent),
		NotificationsFailed:  atomic.LoadUint64(&m.metrics.NotificationsFailed),
		AnalyzeLatencySum:    atomic.LoadUint64(&m.metrics.AnalyzeLatencySum),
		AnalyzeLatencyCount:  atomic.LoadUint64(&m.metrics.AnalyzeLatencyCount),
		StartTime:            m.metrics.StartTime,
	}
}
