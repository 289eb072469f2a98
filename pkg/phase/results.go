package phase

import (
	"time"

	"github.com/pkg/errors"
)

// Result is the outcome of a phase that ran.
type Result struct {
	Name     string
	Group    Group
	Score    float64
	Start    time.Time
	Duration time.Duration
}

// Results holds the results of the phases that ran, in run order. The score
// of a phase is recorded exactly once.
type Results struct {
	order   []string
	results map[string]Result
}

// NewResults returns an empty result table.
func NewResults() *Results {
	return &Results{results: make(map[string]Result)}
}

// Record stores the result of a phase.
func (r *Results) Record(res Result) error {
	if _, ok := r.results[res.Name]; ok {
		return errors.Errorf("score of phase %s is already recorded", res.Name)
	}
	r.order = append(r.order, res.Name)
	r.results[res.Name] = res
	return nil
}

// Get returns the result of a phase.
func (r *Results) Get(name string) (Result, bool) {
	res, ok := r.results[name]
	return res, ok
}

// All returns every result in run order.
func (r *Results) All() []Result {
	out := make([]Result, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.results[name])
	}
	return out
}

// Len returns the number of recorded results.
func (r *Results) Len() int {
	return len(r.order)
}
