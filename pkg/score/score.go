package score

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/Azure/azure-io500/pkg/phase"
)

// ErrEmptyGroup is returned when no phase contributed to a scoring group.
var ErrEmptyGroup = errors.New("no phase contributed to the score group")

// GroupScore is the aggregate of the phases of one group.
type GroupScore struct {
	Group phase.Group
	// Terms are the scores of the phases of the group, in registry order
	Terms []float64
	Score float64
}

// Summary is the hierarchical score of a run.
type Summary struct {
	// Groups holds one aggregate per scoring group, in group order
	Groups  []GroupScore
	Overall float64
}

// Aggregate reduces the phase scores of a run. Each group scores
// (Σ t²)^(1/n) over its n phases, the overall score is the root of the sum
// of the squared group scores.
func Aggregate(registry *phase.Registry, results *phase.Results) (*Summary, error) {
	summary := &Summary{}
	var overall float64
	for _, g := range phase.ScoringGroups() {
		gs, err := aggregateGroup(registry, results, g)
		if err != nil {
			return nil, err
		}
		summary.Groups = append(summary.Groups, *gs)
		overall += gs.Score * gs.Score
	}
	summary.Overall = math.Sqrt(overall)
	return summary, nil
}

func aggregateGroup(registry *phase.Registry, results *phase.Results, g phase.Group) (*GroupScore, error) {
	gs := &GroupScore{Group: g}
	var sum float64
	for _, p := range registry.InGroup(g) {
		res, ok := results.Get(p.Name)
		if !ok {
			return nil, errors.Errorf("score of phase %s is not recorded", p.Name)
		}
		gs.Terms = append(gs.Terms, res.Score)
		sum += res.Score * res.Score
	}
	if len(gs.Terms) == 0 {
		return nil, errors.Wrapf(ErrEmptyGroup, "group %s", g)
	}
	gs.Score = math.Pow(sum, 1.0/float64(len(gs.Terms)))
	return gs, nil
}

// Formula returns how the group score was computed, e.g.
// "MD = ((10.000*10.000) + (0.000*0.000))^0.500000".
func (gs GroupScore) Formula() string {
	terms := make([]string, 0, len(gs.Terms))
	for _, t := range gs.Terms {
		terms = append(terms, fmt.Sprintf("(%.3f*%.3f)", t, t))
	}
	return fmt.Sprintf("%s = (%s)^%f", gs.Group, strings.Join(terms, " + "), 1.0/float64(len(gs.Terms)))
}

// Get returns the aggregate of a group.
func (s *Summary) Get(g phase.Group) (GroupScore, bool) {
	for _, gs := range s.Groups {
		if gs.Group == g {
			return gs, true
		}
	}
	return GroupScore{}, false
}

// IsEmptyGroup returns true if the given error is an empty group error.
func IsEmptyGroup(err error) bool {
	return errors.Is(err, ErrEmptyGroup)
}
