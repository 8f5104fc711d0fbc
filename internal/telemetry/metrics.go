// Package telemetry records search engine activity: Prometheus metrics for
// the engine itself and a local query log for the commands that drive it.
// Nothing is reported externally.
package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/Aman-CERP/lexsearch/internal/search"
	"github.com/Aman-CERP/lexsearch/internal/store"
)

// Metrics implements search.Observer on a private Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry
	tagName  func(store.Tag) string

	SearchesTotal       *prometheus.CounterVec
	SearchesSubmitted   *prometheus.CounterVec
	ObjectsIndexedTotal *prometheus.CounterVec
	InvalidationsTotal  prometheus.Counter
	BuildDuration       *prometheus.HistogramVec
}

var _ search.Observer = (*Metrics)(nil)

// MetricsOption configures Metrics.
type MetricsOption func(*Metrics)

// WithTagNames labels indexed-object counts with field names instead of
// numeric tags.
func WithTagNames(fn func(store.Tag) string) MetricsOption {
	return func(m *Metrics) {
		m.tagName = fn
	}
}

// NewMetrics creates the metric set on a fresh registry.
func NewMetrics(opts ...MetricsOption) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tagName: func(tag store.Tag) string {
			return strconv.Itoa(int(tag))
		},
	}
	for _, opt := range opts {
		opt(m)
	}

	factory := promauto.With(m.registry)
	m.SearchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexsearch_searches_total",
			Help: "Searches that finished, by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)
	m.SearchesSubmitted = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexsearch_searches_submitted_total",
			Help: "Searches accepted by the engine, by mode",
		},
		[]string{"mode"},
	)
	m.ObjectsIndexedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexsearch_objects_indexed_total",
			Help: "Objects folded into the string index, by field",
		},
		[]string{"tag"},
	)
	m.InvalidationsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "lexsearch_invalidations_total",
			Help: "Whole-index invalidations",
		},
	)
	m.BuildDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lexsearch_build_duration_seconds",
			Help:    "Time from submission to outcome of a search",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"mode"},
	)
	return m
}

// SearchSubmitted implements search.Observer.
func (m *Metrics) SearchSubmitted(mode search.Mode) {
	m.SearchesSubmitted.WithLabelValues(string(mode)).Inc()
}

// SearchFinished implements search.Observer. Superseded requests count but
// do not contribute a duration.
func (m *Metrics) SearchFinished(mode search.Mode, outcome search.Outcome, elapsed time.Duration) {
	m.SearchesTotal.WithLabelValues(string(mode), string(outcome)).Inc()
	if outcome == search.OutcomeCompleted {
		m.BuildDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	}
}

// ObjectsIndexed implements search.Observer.
func (m *Metrics) ObjectsIndexed(tag store.Tag, count int) {
	m.ObjectsIndexedTotal.WithLabelValues(m.tagName(tag)).Add(float64(count))
}

// IndexInvalidated implements search.Observer.
func (m *Metrics) IndexInvalidated() {
	m.InvalidationsTotal.Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Gather returns the current metric families.
func (m *Metrics) Gather() ([]*dto.MetricFamily, error) {
	return m.registry.Gather()
}

// Sample is one flattened metric value.
type Sample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

// Samples flattens counters to name/labels/value triples and histograms to
// their sample count, for plain-text reporting.
func (m *Metrics) Samples() ([]Sample, error) {
	families, err := m.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			s := Sample{Name: mf.GetName()}
			if len(metric.GetLabel()) > 0 {
				s.Labels = make(map[string]string, len(metric.GetLabel()))
				for _, lp := range metric.GetLabel() {
					s.Labels[lp.GetName()] = lp.GetValue()
				}
			}
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				s.Value = metric.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				s.Value = metric.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				s.Name += "_count"
				s.Value = float64(metric.GetHistogram().GetSampleCount())
			default:
				continue
			}
			out = append(out, s)
		}
	}
	return out, nil
}
