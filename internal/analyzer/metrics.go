package analyzer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors of an Analyzer, registered on their
// own registry so runs can be exported to a textfile.
type Metrics struct {
	reg *prometheus.Registry

	// filesTotal counts source files by language and status (extracted, skipped).
	filesTotal *prometheus.CounterVec
	// triplesTotal counts emitted triples by relationship type.
	triplesTotal *prometheus.CounterVec
	// droppedTotal counts dropped references by kind.
	droppedTotal *prometheus.CounterVec
	// runSeconds measures whole runs.
	runSeconds prometheus.Histogram
}

// NewMetrics returns collectors registered on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		filesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codekg",
			Subsystem: "analyzer",
			Name:      "files_total",
			Help:      "Source files processed by language and status",
		}, []string{"language", "status"}),
		triplesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codekg",
			Subsystem: "analyzer",
			Name:      "triples_total",
			Help:      "Triples emitted by relationship type",
		}, []string{"rel"}),
		droppedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codekg",
			Subsystem: "analyzer",
			Name:      "dropped_total",
			Help:      "References dropped because they did not resolve, by kind",
		}, []string{"kind"}),
		runSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "codekg",
			Subsystem: "analyzer",
			Name:      "run_seconds",
			Help:      "Duration of analyzer runs",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// WriteTextfile writes the current metric values in the text exposition
// format, for the node exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
