package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// ReportMetrics records report build outcomes.
type ReportMetrics struct {
	builds    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	integrity *prometheus.CounterVec
}

// NewReportMetrics registers report collectors. A nil registerer falls back to
// the default Prometheus registerer.
func NewReportMetrics(registerer prometheus.Registerer) *ReportMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	builds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_report_builds_total",
		Help: "Report builds partitioned by report and status.",
	}, []string{"report", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_report_build_duration_seconds",
		Help:    "Duration of report builds including data fetch.",
		Buckets: prometheus.DefBuckets,
	}, []string{"report"})
	integrity := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_report_integrity_failures_total",
		Help: "Report builds aborted by data integrity errors.",
	}, []string{"report"})
	registerer.MustRegister(builds, duration, integrity)
	return &ReportMetrics{builds: builds, duration: duration, integrity: integrity}
}

// ReportTracker instruments a single report build.
type ReportTracker struct {
	metrics *ReportMetrics
	report  string
	start   time.Time
}

// Track starts timing a build of the named report. Safe on a nil receiver.
func (m *ReportMetrics) Track(report string) *ReportTracker {
	return &ReportTracker{metrics: m, report: report, start: time.Now()}
}

// End records the outcome and returns err untouched.
func (t *ReportTracker) End(err error) error {
	if t == nil || t.metrics == nil {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		if errors.Is(err, shared.ErrDataIntegrity) {
			t.metrics.integrity.WithLabelValues(t.report).Inc()
		}
	}
	t.metrics.builds.WithLabelValues(t.report, status).Inc()
	t.metrics.duration.WithLabelValues(t.report).Observe(time.Since(t.start).Seconds())
	return err
}
