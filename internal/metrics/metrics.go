// Package metrics provides Prometheus metrics for the DIDL engine
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nainya/didlcore/pkg/intern"
)

// Metrics holds all Prometheus metrics for the engine
type Metrics struct {
	// Interner metrics
	InternLookupsTotal *prometheus.CounterVec
	InternClearedTotal *prometheus.CounterVec

	// Element metrics
	ElementsParsedTotal *prometheus.CounterVec
	ParseErrorsTotal    *prometheus.CounterVec
	UnknownPropsTotal   prometheus.Counter

	// Emission metrics
	DocumentsWrittenTotal *prometheus.CounterVec
	WriteDuration         prometheus.Histogram

	// Sort metrics
	ComparatorsCompiledTotal *prometheus.CounterVec

	// Moderation metrics
	UpdateMergesTotal *prometheus.CounterVec
	EmissionsTotal    *prometheus.CounterVec
	SnapshotEntries   prometheus.Gauge
}

// NewMetrics creates all metrics and registers them on reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	m := &Metrics{}

	// Interner metrics
	m.InternLookupsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "didl_intern_lookups_total",
			Help: "Total number of intern calls by cache and result",
		},
		[]string{"cache", "result"},
	)

	m.InternClearedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "didl_intern_cleared_entries_total",
			Help: "Total number of canonical entries dropped by Clear",
		},
		[]string{"cache"},
	)

	// Element metrics
	m.ElementsParsedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "didl_elements_parsed_total",
			Help: "Total number of metadata elements constructed, by variant",
		},
		[]string{"kind"},
	)

	m.ParseErrorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "didl_parse_errors_total",
			Help: "Total number of element construction failures, by error code",
		},
		[]string{"code"},
	)

	m.UnknownPropsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "didl_unknown_properties_total",
			Help: "Total number of properties with no registry mapping",
		},
	)

	// Emission metrics
	m.DocumentsWrittenTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "didl_documents_written_total",
			Help: "Total number of documents serialized",
		},
		[]string{"status"},
	)

	m.WriteDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "didl_write_duration_seconds",
			Help:    "Duration of document serialization in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	// Sort metrics
	m.ComparatorsCompiledTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "didl_sort_comparators_compiled_total",
			Help: "Total number of sort expressions compiled",
		},
		[]string{"status"},
	)

	// Moderation metrics
	m.UpdateMergesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "didl_update_merges_total",
			Help: "Total number of update-id fragment merges",
		},
		[]string{"status"},
	)

	m.EmissionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "didl_moderated_emissions_total",
			Help: "Total number of moderated emission attempts by result",
		},
		[]string{"result"},
	)

	m.SnapshotEntries = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "didl_moderated_snapshot_entries",
			Help: "Number of entity ids in the pending update snapshot",
		},
	)

	return m
}

// RecordParse records an element construction outcome
func (m *Metrics) RecordParse(kind string, code string) {
	if code != "" {
		m.ParseErrorsTotal.WithLabelValues(code).Inc()
		return
	}
	m.ElementsParsedTotal.WithLabelValues(kind).Inc()
}

// RecordUnknownProperty records a property with no registry mapping
func (m *Metrics) RecordUnknownProperty() {
	m.UnknownPropsTotal.Inc()
}

// RecordWrite records a document serialization
func (m *Metrics) RecordWrite(status string, duration time.Duration) {
	m.DocumentsWrittenTotal.WithLabelValues(status).Inc()
	m.WriteDuration.Observe(duration.Seconds())
}

// RecordCompile records a sort expression compilation
func (m *Metrics) RecordCompile(status string) {
	m.ComparatorsCompiledTotal.WithLabelValues(status).Inc()
}

// RecordMerge records an update-id merge and the resulting snapshot size
func (m *Metrics) RecordMerge(status string, entries int) {
	m.UpdateMergesTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.SnapshotEntries.Set(float64(entries))
	}
}

// RecordEmission records a moderated emission attempt
func (m *Metrics) RecordEmission(emitted bool) {
	result := "throttled"
	if emitted {
		result = "emitted"
		m.SnapshotEntries.Set(0)
	}
	m.EmissionsTotal.WithLabelValues(result).Inc()
}

// InternObserver returns an intern.Observer reporting under the given cache label
func (m *Metrics) InternObserver(cache string) intern.Observer {
	return &internObserver{
		hits:    m.InternLookupsTotal.WithLabelValues(cache, "hit"),
		misses:  m.InternLookupsTotal.WithLabelValues(cache, "miss"),
		cleared: m.InternClearedTotal.WithLabelValues(cache),
	}
}

type internObserver struct {
	hits    prometheus.Counter
	misses  prometheus.Counter
	cleared prometheus.Counter
}

func (o *internObserver) Hit()  { o.hits.Inc() }
func (o *internObserver) Miss() { o.misses.Inc() }

func (o *internObserver) Cleared(entries int) {
	o.cleared.Add(float64(entries))
}
