// Package metrics records run statistics as Prometheus collectors and writes
// them to a node-exporter textfile.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jmylchreest/winnow/pkg/report"
)

const namespace = "winnow"

// Metrics holds the collectors for comparison runs on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	RunsTotal           prometheus.Counter
	Files               prometheus.Gauge
	Tokens              prometheus.Gauge
	Fingerprints        prometheus.Gauge
	SharedFingerprints  prometheus.Gauge
	IgnoredFingerprints prometheus.Gauge
	CandidatePairs      prometheus.Gauge
	Pairs               prometheus.Gauge
	Fragments           prometheus.Gauge
	PhaseDuration       *prometheus.GaugeVec
	Similarity          prometheus.Histogram
	LastRunTimestamp    prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of comparison runs.",
		}),
		Files:               gauge("files", "Files compared in the last run."),
		Tokens:              gauge("tokens", "Tokens across all files in the last run."),
		Fingerprints:        gauge("fingerprints", "Distinct fingerprints in the last run."),
		SharedFingerprints:  gauge("shared_fingerprints", "Fingerprints present in more than one file."),
		IgnoredFingerprints: gauge("ignored_fingerprints", "Fingerprints ignored as too common or templated."),
		CandidatePairs:      gauge("candidate_pairs", "File pairs sharing at least one fingerprint."),
		Pairs:               gauge("pairs", "Pairs in the last report."),
		Fragments:           gauge("fragments", "Fragments across the reported pairs."),
		PhaseDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of each phase of the last run.",
		}, []string{"phase"}),
		Similarity: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pair_similarity",
			Help:      "Similarity of reported pairs.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		}),
		LastRunTimestamp: gauge("last_run_timestamp_seconds", "Unix time the last report was finished."),
	}

	m.Registry.MustRegister(
		m.RunsTotal,
		m.Files,
		m.Tokens,
		m.Fingerprints,
		m.SharedFingerprints,
		m.IgnoredFingerprints,
		m.CandidatePairs,
		m.Pairs,
		m.Fragments,
		m.PhaseDuration,
		m.Similarity,
		m.LastRunTimestamp,
	)
	return m
}

// Observe records a finished report.
func (m *Metrics) Observe(r *report.Report) {
	s := r.Stats()
	m.RunsTotal.Inc()
	m.Files.Set(float64(s.Files))
	m.Tokens.Set(float64(s.Tokens))
	m.Fingerprints.Set(float64(s.Fingerprints))
	m.SharedFingerprints.Set(float64(s.SharedFingerprints))
	m.IgnoredFingerprints.Set(float64(s.IgnoredFingerprints))
	m.CandidatePairs.Set(float64(s.CandidatePairs))
	m.Pairs.Set(float64(s.Pairs))
	m.Fragments.Set(float64(s.Fragments))
	m.PhaseDuration.WithLabelValues("fingerprint").Set(s.FingerprintDuration.Seconds())
	m.PhaseDuration.WithLabelValues("compare").Set(s.CompareDuration.Seconds())
	for _, p := range r.Pairs() {
		m.Similarity.Observe(p.Similarity)
	}
	m.LastRunTimestamp.Set(float64(r.CreatedAt().Unix()))
}

// WriteTextfile writes every collector to path in the text exposition
// format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
