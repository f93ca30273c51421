// Package metrics defines the Prometheus collectors recorded during a
// preprocessing run and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the preprocessing pipeline.
type Metrics struct {
	registry *prometheus.Registry

	StageDuration        *prometheus.HistogramVec
	ImagesProcessed      prometheus.Counter
	CaptionsRewritten    prometheus.Counter
	TokensCounted        prometheus.Counter
	UnkTokens            prometheus.Counter
	VocabSize            prometheus.Gauge
	SplitAssignments     *prometheus.CounterVec
	LemmaRequestsTotal   *prometheus.CounterVec
	LemmaRequestDuration prometheus.Histogram
	LemmaCacheHits       prometheus.Counter
	LemmaCacheMisses     prometheus.Counter
	ArtifactBytes        *prometheus.GaugeVec
}

// New creates all collectors and registers them on a private registry, so
// several pipelines (as in tests) never collide on the global one.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prepro_stage_duration_seconds",
				Help:    "Duration of each pipeline stage in seconds.",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
			},
			[]string{"stage"},
		),
		ImagesProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "prepro_images_processed_total",
				Help: "Images carried into the output artifacts.",
			},
		),
		CaptionsRewritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "prepro_captions_rewritten_total",
				Help: "Caption records rewritten against the vocabulary.",
			},
		),
		TokensCounted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "prepro_tokens_counted_total",
				Help: "Token occurrences seen by the frequency counter.",
			},
		),
		UnkTokens: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "prepro_unk_tokens_total",
				Help: "Token occurrences replaced by the sentinel word.",
			},
		),
		VocabSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "prepro_vocab_size",
				Help: "Size of the final vocabulary including the sentinel.",
			},
		),
		SplitAssignments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prepro_split_assignments_total",
				Help: "Images per assigned split label.",
			},
			[]string{"split"},
		),
		LemmaRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prepro_lemma_requests_total",
				Help: "Lemmatizer requests by status (ok, error).",
			},
			[]string{"status"},
		),
		LemmaRequestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "prepro_lemma_request_duration_seconds",
				Help:    "Lemmatizer request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
		LemmaCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "prepro_lemma_cache_hits_total",
				Help: "Lemmas served from the Redis cache.",
			},
		),
		LemmaCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "prepro_lemma_cache_misses_total",
				Help: "Lemmas that had to be fetched from the lemmatizer.",
			},
		),
		ArtifactBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "prepro_artifact_bytes",
				Help: "Size of each written artifact in bytes.",
			},
			[]string{"artifact"},
		),
	}

	m.registry.MustRegister(
		m.StageDuration,
		m.ImagesProcessed,
		m.CaptionsRewritten,
		m.TokensCounted,
		m.UnkTokens,
		m.VocabSize,
		m.SplitAssignments,
		m.LemmaRequestsTotal,
		m.LemmaRequestDuration,
		m.LemmaCacheHits,
		m.LemmaCacheMisses,
		m.ArtifactBytes,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
