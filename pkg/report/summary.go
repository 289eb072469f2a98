package report

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/Azure/azure-io500/pkg/phase"
	"github.com/Azure/azure-io500/pkg/score"
	"github.com/Azure/azure-io500/pkg/version"
)

// SummaryFileName is the name of the machine readable summary of a run
const SummaryFileName = "result.yaml"

// RunSummary is the machine readable summary of a run.
type RunSummary struct {
	Version    string         `yaml:"version"`
	Timestamp  string         `yaml:"timestamp"`
	ConfigHash string         `yaml:"configHash"`
	Phases     []PhaseSummary `yaml:"phases"`
	Groups     []GroupSummary `yaml:"groups"`
	Score      float64        `yaml:"score"`
	Valid      bool           `yaml:"valid"`
}

// PhaseSummary is the outcome of a single phase.
type PhaseSummary struct {
	Name     string  `yaml:"name"`
	Group    string  `yaml:"group"`
	Score    float64 `yaml:"score"`
	Start    string  `yaml:"start"`
	Duration float64 `yaml:"durationSeconds"`
}

// GroupSummary is the aggregate of a scoring group.
type GroupSummary struct {
	Group string  `yaml:"group"`
	Score float64 `yaml:"score"`
}

// NewRunSummary collects the results of a run.
func NewRunSummary(timestamp, configHash string, results *phase.Results, summary *score.Summary, valid bool) *RunSummary {
	s := &RunSummary{
		Version:    version.BuildVersion,
		Timestamp:  timestamp,
		ConfigHash: configHash,
		Score:      summary.Overall,
		Valid:      valid,
	}
	for _, res := range results.All() {
		s.Phases = append(s.Phases, PhaseSummary{
			Name:     res.Name,
			Group:    res.Group.String(),
			Score:    res.Score,
			Start:    res.Start.Format(TimestampFormat),
			Duration: res.Duration.Seconds(),
		})
	}
	for _, gs := range summary.Groups {
		s.Groups = append(s.Groups, GroupSummary{Group: gs.Group.String(), Score: gs.Score})
	}
	return s
}

// WriteFile writes the summary as yaml.
func (s *RunSummary) WriteFile(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "failed to marshal the run summary")
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
