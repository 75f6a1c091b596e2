package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatcherMetrics records dispatcher activity for scraping. The
// in-memory stats used by the health endpoint live in
// internal/dispatcher; these are the Prometheus mirrors.
type DispatcherMetrics struct {
	processed   *prometheus.CounterVec
	pollCycles  prometheus.Counter
	emptyPolls  prometheus.Counter
	cycleErrors prometheus.Counter
	recovered   prometheus.Counter
	duration    prometheus.Histogram
}

// NewDispatcherMetrics registers the dispatcher metrics on the provided registerer.
func NewDispatcherMetrics(reg prometheus.Registerer) *DispatcherMetrics {
	if reg == nil {
		return &DispatcherMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_items_processed_total",
		Help: "Outbox items processed, labeled by outcome.",
	}, []string{"outcome"})
	pollCycles := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_poll_cycles_total",
		Help: "Completed dispatcher poll cycles.",
	})
	emptyPolls := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_empty_polls_total",
		Help: "Poll cycles that claimed no items.",
	})
	cycleErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_cycle_errors_total",
		Help: "Poll cycles aborted by infrastructure errors.",
	})
	recovered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_items_recovered_total",
		Help: "Stuck processing items reset to pending.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_cycle_duration_seconds",
		Help:    "Duration of dispatcher poll cycles in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(processed, pollCycles, emptyPolls, cycleErrors, recovered, duration)
	return &DispatcherMetrics{
		processed:   processed,
		pollCycles:  pollCycles,
		emptyPolls:  emptyPolls,
		cycleErrors: cycleErrors,
		recovered:   recovered,
		duration:    duration,
	}
}

// IncProcessed counts a processed item by outcome (delivered, retried, dead_letter, skipped).
func (m *DispatcherMetrics) IncProcessed(outcome string) {
	if m == nil || m.processed == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.processed.WithLabelValues(outcome).Inc()
}

// IncPollCycle counts a completed poll cycle, marking empty ones separately.
func (m *DispatcherMetrics) IncPollCycle(empty bool) {
	if m == nil || m.pollCycles == nil {
		return
	}
	m.pollCycles.Inc()
	if empty {
		m.emptyPolls.Inc()
	}
}

// IncCycleError counts an aborted cycle.
func (m *DispatcherMetrics) IncCycleError() {
	if m == nil || m.cycleErrors == nil {
		return
	}
	m.cycleErrors.Inc()
}

// AddRecovered counts stuck items reset by the recovery sweep.
func (m *DispatcherMetrics) AddRecovered(n int64) {
	if m == nil || m.recovered == nil || n <= 0 {
		return
	}
	m.recovered.Add(float64(n))
}

// ObserveCycleDuration records how long a poll cycle took.
func (m *DispatcherMetrics) ObserveCycleDuration(d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}
