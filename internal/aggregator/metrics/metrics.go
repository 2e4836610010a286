package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle triggers.
const (
	TriggerForeground = "foreground"
	TriggerBackground = "background"
	TriggerDispatch   = "dispatch"
)

// Recorder collects the aggregator metrics. A nil Recorder records nothing.
type Recorder struct {
	adapterCalls        *prometheus.CounterVec
	adapterLatency      *prometheus.HistogramVec
	facetFailures       *prometheus.CounterVec
	cycleLatency        *prometheus.HistogramVec
	persistenceFailures *prometheus.CounterVec
	anomalies           *prometheus.CounterVec
	liveMode            prometheus.Gauge
	subscribers         prometheus.Gauge
}

// New registers the aggregator metrics on reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		adapterCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aggregator_adapter_calls_total",
				Help: "Upstream adapter calls by facet, adapter and outcome",
			},
			[]string{"facet", "adapter", "outcome"},
		),
		adapterLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aggregator_adapter_call_duration_seconds",
				Help:    "Duration of upstream adapter calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"facet", "adapter"},
		),
		facetFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aggregator_facet_failures_total",
				Help: "Facets recorded as absent, by facet and error kind",
			},
			[]string{"facet", "kind"},
		),
		cycleLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aggregator_cycle_duration_seconds",
				Help:    "Duration of aggregation cycles in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"trigger"},
		),
		persistenceFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aggregator_persistence_failures_total",
				Help: "Snapshot writes lost after the retry",
			},
			[]string{"symbol"},
		),
		anomalies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aggregator_snapshot_anomalies_total",
				Help: "Anomalies flagged on merged snapshots",
			},
			[]string{"anomaly"},
		),
		liveMode: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aggregator_live_mode",
			Help: "1 while live mode and its background refresh are active",
		}),
		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aggregator_feed_subscribers",
			Help: "Connected live feed subscribers",
		}),
	}
}

// RecordAdapterCall records one upstream call and its latency.
func (r *Recorder) RecordAdapterCall(facet, adapter, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.adapterCalls.WithLabelValues(facet, adapter, outcome).Inc()
	r.adapterLatency.WithLabelValues(facet, adapter).Observe(d.Seconds())
}

// RecordFacetFailure records a facet marked absent on a snapshot.
func (r *Recorder) RecordFacetFailure(facet, kind string) {
	if r == nil {
		return
	}
	r.facetFailures.WithLabelValues(facet, kind).Inc()
}

// RecordCycle records the duration of an aggregation cycle.
func (r *Recorder) RecordCycle(trigger string, d time.Duration) {
	if r == nil {
		return
	}
	r.cycleLatency.WithLabelValues(trigger).Observe(d.Seconds())
}

// RecordPersistenceFailure records a snapshot write that was given up on.
func (r *Recorder) RecordPersistenceFailure(symbol string) {
	if r == nil {
		return
	}
	r.persistenceFailures.WithLabelValues(symbol).Inc()
}

// RecordAnomaly records an anomaly flag.
func (r *Recorder) RecordAnomaly(anomaly string) {
	if r == nil {
		return
	}
	r.anomalies.WithLabelValues(anomaly).Inc()
}

// SetLiveMode updates the live mode gauge.
func (r *Recorder) SetLiveMode(live bool) {
	if r == nil {
		return
	}
	if live {
		r.liveMode.Set(1)
		return
	}
	r.liveMode.Set(0)
}

// SetSubscribers updates the live feed subscriber gauge.
func (r *Recorder) SetSubscribers(n int) {
	if r == nil {
		return
	}
	r.subscribers.Set(float64(n))
}
