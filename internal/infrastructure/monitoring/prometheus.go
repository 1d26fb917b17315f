package monitoring

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// PrometheusHandler returns an http.Handler serving Prometheus text-format
// metrics. Mount it at "/metrics". Exposition is hand-rolled to avoid
// pulling in the full prometheus/client_golang dependency for a dozen
// counters.
func (m *Monitor) PrometheusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(m.metrics.StartTime).Seconds()

		lines := []struct {
			name string
			help string
			typ  string
			val  interface{}
		}{
			{"modsentry_submissions_total", "Total content submissions processed", "counter", atomic.LoadUint64(&m.metrics.SubmissionsTotal)},
			{"modsentry_submissions_completed_total", "Submissions that reached status completed", "counter", atomic.LoadUint64(&m.metrics.SubmissionsCompleted)},
			{"modsentry_submissions_failed_total", "Submissions that reached status failed", "counter", atomic.LoadUint64(&m.metrics.SubmissionsFailed)},

			{"modsentry_flagged_total", "Submissions classified inappropriate", "counter", atomic.LoadUint64(&m.metrics.FlaggedTotal)},
			{"modsentry_analyzer_errors_total", "Analyzer error verdicts", "counter", atomic.LoadUint64(&m.metrics.AnalyzerErrors)},

			{"modsentry_notifications_sent_total", "Notification attempts delivered", "counter", atomic.LoadUint64(&m.metrics.NotificationsSent)},
			{"modsentry_notifications_failed_total", "Notification attempts that failed", "counter", atomic.LoadUint64(&m.metrics.NotificationsFailed)},

			{"modsentry_uptime_seconds", "Process uptime in seconds", "gauge", uptime},
			{"modsentry_memory_alloc_bytes", "Current memory allocation in bytes", "gauge", memStats.Alloc},
			{"modsentry_goroutines", "Number of goroutines", "gauge", runtime.NumGoroutine()},
		}

		for _, l := range lines {
			fmt.Fprintf(w, "# HELP %s %s\n", l.name, l.help)
			fmt.Fprintf(w, "# TYPE %s %s\n", l.name, l.typ)
			switch v := l.val.(type) {
			case uint64:
				fmt.Fprintf(w, "%s %d\n", l.name, v)
			case int64:
				fmt.Fprintf(w, "%s %d\n", l.name, v)
			case int:
				fmt.Fprintf(w, "%s %d\n", l.name, v)
			case float64:
				fmt.Fprintf(w, "%s %f\n", l.name, v)
			}
			fmt.Fprintln(w)
		}

		count := atomic.LoadUint64(&m.metrics.AnalyzeLatencyCount)
		if count > 0 {
			avgMs := float64(atomic.LoadUint64(&m.metrics.AnalyzeLatencySum)) / float64(count) / 1e6
			fmt.Fprintf(w, "# HELP modsentry_analyze_latency_avg_ms Average analyzer latency in milliseconds\n")
			fmt.Fprintf(w, "# TYPE modsentry_analyze_latency_avg_ms gauge\n")
			fmt.Fprintf(w, "modsentry_analyze_latency_avg_ms %f\n\n", avgMs)
		}
	})
}
