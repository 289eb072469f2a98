package metrics

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-io500/pkg/metrics/exporters/prometheus"
	"github.com/Azure/azure-io500/pkg/phase"
	"github.com/Azure/azure-io500/pkg/score"
)

const (
	// NoneBackend disables the export of metrics
	NoneBackend = "none"
)

// Exporter publishes the scores of a completed run.
type Exporter interface {
	Export(results *phase.Results, summary *score.Summary, valid bool) error
}

type noopExporter struct{}

func (noopExporter) Export(*phase.Results, *score.Summary, bool) error { return nil }

// InitMetricsExporter returns the exporter of the given backend. File based
// exporters write into resultDir.
func InitMetricsExporter(metricsBackend, resultDir string) (Exporter, error) {
	mb := strings.ToLower(metricsBackend)
	switch mb {
	case prometheus.ExporterName:
		return prometheus.NewExporter(filepath.Join(resultDir, prometheus.FileName)), nil
	case NoneBackend, "":
		return noopExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported metrics backend: %v", metricsBackend)
	}
}
