package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Azure/azure-io500/pkg/phase"
	"github.com/Azure/azure-io500/pkg/score"
)

func TestInitMetricsExporter(t *testing.T) {
	tests := []struct {
		name           string
		metricsBackend string
		wantFile       bool
	}{
		{
			name:           "prometheus",
			metricsBackend: "prometheus",
			wantFile:       true,
		},
		{
			name:           "Prometheus",
			metricsBackend: "Prometheus",
			wantFile:       true,
		},
		{
			name:           "none",
			metricsBackend: "none",
		},
		{
			name:           "empty",
			metricsBackend: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			e, err := InitMetricsExporter(tt.metricsBackend, dir)
			if err != nil {
				t.Fatalf("InitMetricsExporter() error = %v, expected nil", err)
			}
			if err := e.Export(phase.NewResults(), &score.Summary{}, true); err != nil {
				t.Fatalf("Export() error = %v, expected nil", err)
			}
			_, err = os.Stat(filepath.Join(dir, "metrics.prom"))
			if tt.wantFile && err != nil {
				t.Errorf("expected metrics file, got %v", err)
			}
			if !tt.wantFile && !os.IsNotExist(err) {
				t.Errorf("expected no metrics file, got %v", err)
			}
		})
	}
}

func TestInitMetricsExporterError(t *testing.T) {
	if _, err := InitMetricsExporter("unknown", t.TempDir()); err == nil {
		t.Errorf("InitMetricsExporter() error = nil, expected error")
	}
}
