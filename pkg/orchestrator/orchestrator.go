package orchestrator

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/Azure/azure-io500/pkg/phase"
	"github.com/Azure/azure-io500/pkg/report"
)

// Orchestrator drives the phases of a registry through the collective:
// every phase is validated first, then the runnable phases run one after
// the other, each behind a barrier.
type Orchestrator struct {
	clock    clock.Clock
	reporter *report.Writer
}

// New returns an orchestrator reporting through the given writer.
func New(reporter *report.Writer, c clock.Clock) *Orchestrator {
	if c == nil {
		c = clock.RealClock{}
	}
	return &Orchestrator{
		clock:    c,
		reporter: reporter,
	}
}

// Execute validates and runs every phase of the registry. It returns the
// results of the phases that ran and whether the run is valid. Validation
// and run errors are fatal; a stonewall violation only invalidates the run.
func (o *Orchestrator) Execute(ctx context.Context, registry *phase.Registry, rc *phase.RunContext) (*phase.Results, bool, error) {
	phases := registry.Phases()

	// Validate all phases before executing any of them
	for _, p := range phases {
		if p.Validate == nil {
			continue
		}
		if err := p.Validate(rc); err != nil {
			return nil, false, errors.Wrapf(err, "failed to validate phase %s", p.Name)
		}
	}
	o.reporter.Newline()

	results := phase.NewResults()
	for _, p := range phases {
		if !p.Runnable() {
			continue
		}
		res, err := o.runPhase(ctx, p, rc)
		if err != nil {
			return nil, false, err
		}
		if err := results.Record(*res); err != nil {
			return nil, false, err
		}
	}

	if err := rc.Coordinator.Barrier(ctx); err != nil {
		return nil, false, errors.Wrap(err, "failed to synchronize after the last phase")
	}
	return results, rc.IsValidRun(), nil
}

func (o *Orchestrator) runPhase(ctx context.Context, p phase.Descriptor, rc *phase.RunContext) (*phase.Result, error) {
	logger := log.WithField("phase", p.Name)

	// no process may start this phase while another is still in the previous one
	if err := rc.Coordinator.Barrier(ctx); err != nil {
		return nil, errors.Wrapf(err, "failed to synchronize before phase %s", p.Name)
	}
	o.reporter.Section(p.Name)

	start := o.clock.Now()
	if rc.Verbosity > 0 {
		o.reporter.Timestamp("t_start", start)
	}
	logger.Debug("running phase")

	score, err := p.Run(ctx, rc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to run phase %s", p.Name)
	}
	if p.Group != phase.NoScore {
		o.reporter.Pair("score", "%f", score)
	}
	runtime := o.clock.Since(start)

	// This is an additional sanity check
	if p.VerifyStonewall && rc.IsLeader() && !rc.DryRun && runtime < rc.StonewallThreshold {
		rc.Invalidate()
		logger.WithFields(log.Fields{
			"runtime":   runtime.Seconds(),
			"threshold": rc.StonewallThreshold.Seconds(),
		}).Warn("runtime of phase is below stonewall time, the run is invalid")
	}

	if rc.Verbosity > 0 {
		o.reporter.Pair("t_delta", "%.4f", runtime.Seconds())
		o.reporter.Timestamp("t_end", o.clock.Now())
	}
	logger.WithFields(log.Fields{"score": score, "runtime": runtime.Seconds()}).Debug("phase completed")

	return &phase.Result{
		Name:     p.Name,
		Group:    p.Group,
		Score:    score,
		Start:    start,
		Duration: runtime,
	}, nil
}
