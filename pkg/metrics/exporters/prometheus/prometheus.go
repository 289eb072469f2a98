package prometheus

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Azure/azure-io500/pkg/phase"
	"github.com/Azure/azure-io500/pkg/score"
)

const (
	// ExporterName is the name of the exporter
	ExporterName = "prometheus"
	// FileName is the name of the textfile the metrics are written to
	FileName = "metrics.prom"

	namespace = "io500"

	phaseKey = "phase"
	groupKey = "group"
)

// Exporter writes the scores of a run in the Prometheus text format, for
// the node exporter textfile collector.
type Exporter struct {
	path     string
	registry *prometheus.Registry

	phaseScore    *prometheus.GaugeVec
	phaseDuration *prometheus.GaugeVec
	groupScore    *prometheus.GaugeVec
	score         prometheus.Gauge
	valid         prometheus.Gauge
}

// NewExporter returns an exporter writing to path.
func NewExporter(path string) *Exporter {
	e := &Exporter{
		path:     path,
		registry: prometheus.NewRegistry(),
		phaseScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_score",
			Help:      "Score of a phase, GiB/s for bandwidth phases and kIOPS for metadata phases",
		}, []string{phaseKey, groupKey}),
		phaseDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Runtime of a phase",
		}, []string{phaseKey}),
		groupScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "group_score",
			Help:      "Aggregated score of a scoring group",
		}, []string{groupKey}),
		score: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "score",
			Help:      "Overall score of the run",
		}),
		valid: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_valid",
			Help:      "1 if the run is valid, 0 otherwise",
		}),
	}
	e.registry.MustRegister(e.phaseScore, e.phaseDuration, e.groupScore, e.score, e.valid)
	return e
}

// Registry returns the registry holding the metrics of the exporter.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Export sets the metrics of the run and writes them to the textfile.
func (e *Exporter) Export(results *phase.Results, summary *score.Summary, valid bool) error {
	for _, res := range results.All() {
		e.phaseDuration.WithLabelValues(res.Name).Set(res.Duration.Seconds())
		if res.Group == phase.NoScore {
			continue
		}
		e.phaseScore.WithLabelValues(res.Name, res.Group.String()).Set(res.Score)
	}
	for _, gs := range summary.Groups {
		e.groupScore.WithLabelValues(gs.Group.String()).Set(gs.Score)
	}
	e.score.Set(summary.Overall)
	if valid {
		e.valid.Set(1)
	} else {
		e.valid.Set(0)
	}

	if err := prometheus.WriteToTextfile(e.path, e.registry); err != nil {
		return errors.Wrapf(err, "failed to write metrics to %s", e.path)
	}
	return nil
}
