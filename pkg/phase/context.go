package phase

import (
	"time"

	"github.com/Azure/azure-io500/pkg/config"
	"github.com/Azure/azure-io500/pkg/coordination"
)

// RunContext is the state of one benchmark run, shared by the phases, the
// orchestrator and the score aggregation of a single process.
type RunContext struct {
	// Rank and Size identify the process within the collective
	Rank int
	Size int

	// StonewallThreshold is the minimum runtime of phases that verify it
	StonewallThreshold time.Duration

	// DryRun skips the workloads and the stonewall verification
	DryRun bool

	// Verbosity above zero reports per-phase timing
	Verbosity int

	// Config is the parsed benchmark configuration
	Config *config.Config

	// Coordinator gives access to the collective primitives
	Coordinator coordination.Provider

	// Timestamp identifies the run, identical on every rank
	Timestamp string
	// DataDir is the directory the workloads write into
	DataDir string
	// ResultDir is the directory of the result files
	ResultDir string

	invalid bool
}

// NewRunContext returns the context of a run for the process identified by
// the coordinator.
func NewRunContext(cfg *config.Config, coordinator coordination.Provider) *RunContext {
	return &RunContext{
		Rank:        coordinator.Rank(),
		Size:        coordinator.Size(),
		Config:      cfg,
		Coordinator: coordinator,
	}
}

// IsLeader returns true for the process that aggregates and reports scores.
func (rc *RunContext) IsLeader() bool {
	return rc.Rank == coordination.LeaderRank
}

// Invalidate marks the run as invalid. A run never becomes valid again.
func (rc *RunContext) Invalidate() {
	rc.invalid = true
}

// IsValidRun returns false once the run has been invalidated.
func (rc *RunContext) IsValidRun() bool {
	return !rc.invalid
}
