package phase

import (
	"context"
	"fmt"

	"github.com/Azure/azure-io500/pkg/config"
)

// Group classifies how the score of a phase contributes to the final score.
type Group int

const (
	// NoScore phases never contribute to the final score
	NoScore Group = iota
	// MetadataScore phases report a metadata operation rate (kIOPS)
	MetadataScore
	// BandwidthScore phases report a bandwidth (GiB/s)
	BandwidthScore

	groupLast
)

var groupNames = [groupLast]string{
	NoScore:        "NO SCORE",
	MetadataScore:  "MD",
	BandwidthScore: "BW",
}

// String returns the key the group is reported under.
func (g Group) String() string {
	if !g.valid() {
		return fmt.Sprintf("Group(%d)", int(g))
	}
	return groupNames[g]
}

func (g Group) valid() bool {
	return g >= NoScore && g < groupLast
}

// ScoringGroups returns the groups that contribute to the final score, in
// the order they are reported.
func ScoringGroups() []Group {
	groups := make([]Group, 0, groupLast-1)
	for g := NoScore + 1; g < groupLast; g++ {
		groups = append(groups, g)
	}
	return groups
}

// Descriptor is a single phase of the benchmark.
type Descriptor struct {
	// Name is the name of the phase, also the name of its configuration section
	Name string

	// Description is the description of the phase
	Description string

	// Group determines whether and how the phase contributes to the score
	Group Group

	// Options are the configuration options of the phase section
	Options []config.Option

	// Validate checks the preconditions of the phase. It is called for every
	// phase before any phase runs.
	Validate func(rc *RunContext) error

	// Run executes the phase and returns its score. Phases without Run are
	// configuration-only and are skipped when the benchmark runs.
	Run func(ctx context.Context, rc *RunContext) (float64, error)

	// VerifyStonewall marks phases whose runtime must reach the stonewall time
	VerifyStonewall bool
}

// Runnable returns true if the phase is executed when the benchmark runs.
func (d Descriptor) Runnable() bool {
	return d.Run != nil
}
