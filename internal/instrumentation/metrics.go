package instrumentation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors for the service. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Fetches       *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	StaleApplied  *prometheus.CounterVec
	RecomputeMs   prometheus.Histogram
	MountedViews  *prometheus.GaugeVec
	LLMCalls      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pondwatch_collection_fetches_total",
			Help: "Collection fetches by table, trigger and outcome",
		}, []string{"table", "trigger", "outcome"}),

		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pondwatch_change_notifications_total",
			Help: "Change notifications received per table",
		}, []string{"table"}),

		StaleApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pondwatch_stale_fetch_applied_total",
			Help: "Fetch results applied after a newer fetch had already been applied",
		}, []string{"table"}),

		RecomputeMs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pondwatch_view_recompute_ms",
			Help:    "Time to recompute a view snapshot in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100},
		}),

		MountedViews: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pondwatch_mounted_views",
			Help: "Views currently mounted by kind",
		}, []string{"kind"}),

		LLMCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pondwatch_llm_calls_total",
			Help: "LLM calls by context and outcome",
		}, []string{"context", "outcome"}),
	}
}

// RecordFetch counts one finished fetch.
func (m *Metrics) RecordFetch(table, trigger string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Fetches.WithLabelValues(table, trigger, outcome).Inc()
}

// RecordNotification counts one change notification.
func (m *Metrics) RecordNotification(table string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(table).Inc()
}

// RecordStaleApplied counts an out-of-order fetch result that overwrote newer data.
func (m *Metrics) RecordStaleApplied(table string) {
	if m == nil {
		return
	}
	m.StaleApplied.WithLabelValues(table).Inc()
}

// RecordRecompute observes a snapshot recompute duration.
func (m *Metrics) RecordRecompute(ms float64) {
	if m == nil {
		return
	}
	m.RecomputeMs.Observe(ms)
}

// ViewMounted adjusts the mounted-view gauge by delta.
func (m *Metrics) ViewMounted(kind string, delta float64) {
	if m == nil {
		return
	}
	m.MountedViews.WithLabelValues(kind).Add(delta)
}

// RecordLLMCall counts one LLM invocation.
func (m *Metrics) RecordLLMCall(context, outcome string) {
	if m == nil {
		return
	}
	m.LLMCalls.WithLabelValues(context, outcome).Inc()
}
