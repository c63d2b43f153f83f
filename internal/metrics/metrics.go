// Package metrics holds the Prometheus collectors for the QA pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aurora_qa"

// Answer sources.
const (
	SourceExtractor   = "extractor"
	SourceFallback    = "fallback"
	SourceNotFound    = "not_found"
	SourceUnavailable = "unavailable"
)

// Provider fetch results.
const (
	FetchOK    = "ok"
	FetchError = "error"
	FetchStale = "stale"
)

// Metrics is the set of collectors. A nil *Metrics is valid and records
// nothing.
//
// Collectors:
//   - aurora_qa_questions_total{type}
//   - aurora_qa_resolutions_total{outcome}
//   - aurora_qa_answers_total{source}
//   - aurora_qa_provider_fetch_total{result}
//   - aurora_qa_snapshot_age_seconds
type Metrics struct {
	QuestionsTotal     *prometheus.CounterVec
	ResolutionsTotal   *prometheus.CounterVec
	AnswersTotal       *prometheus.CounterVec
	ProviderFetchTotal *prometheus.CounterVec
	SnapshotAge        prometheus.Gauge
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		QuestionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions answered, by question type.",
		}, []string{"type"}),
		ResolutionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Member resolutions, by outcome.",
		}, []string{"outcome"}),
		AnswersTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answers produced, by source.",
		}, []string{"source"}),
		ProviderFetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fetch_total",
			Help:      "Snapshot refreshes against the message provider, by result.",
		}, []string{"result"}),
		SnapshotAge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_age_seconds",
			Help:      "Age of the snapshot used for the most recent request.",
		}),
	}
}

func (m *Metrics) ObserveQuestion(questionType string) {
	if m == nil {
		return
	}
	m.QuestionsTotal.WithLabelValues(questionType).Inc()
}

func (m *Metrics) ObserveResolution(outcome string) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAnswer(source string) {
	if m == nil {
		return
	}
	m.AnswersTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveFetch(result string) {
	if m == nil {
		return
	}
	m.ProviderFetchTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) SetSnapshotAge(age time.Duration) {
	if m == nil {
		return
	}
	m.SnapshotAge.Set(age.Seconds())
}
