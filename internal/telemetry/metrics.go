package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the counters, gauges and histograms the orchestrator
// updates once per generation.
type Metrics struct {
	Generations       prometheus.Counter
	SpeciesCount      prometheus.Gauge
	GenerationSeconds prometheus.Histogram
	EdgeCount         prometheus.Gauge
}

// NewMetrics registers and returns a fresh Metrics bundle on reg. Pass
// prometheus.NewRegistry() for an isolated registry in tests, or
// prometheus.DefaultRegisterer in production.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neuroevo",
			Name:      "generations_total",
			Help:      "Total number of generations completed.",
		}),
		SpeciesCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "neuroevo",
			Name:      "species_count",
			Help:      "Current number of species in the population.",
		}),
		GenerationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "neuroevo",
			Name:      "generation_duration_seconds",
			Help:      "Wall-clock duration of one step_generation call.",
			Buckets:   prometheus.DefBuckets,
		}),
		EdgeCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "neuroevo",
			Name:      "edge_count",
			Help:      "Total edges summed across all species topologies.",
		}),
	}
	reg.MustRegister(m.Generations, m.SpeciesCount, m.GenerationSeconds, m.EdgeCount)
	return m
}
