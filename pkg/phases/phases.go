// Package phases defines the phases of the io500 benchmark and the order
// they run in.
package phases

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/Azure/azure-io500/pkg/config"
	"github.com/Azure/azure-io500/pkg/phase"
	"github.com/Azure/azure-io500/pkg/workload"
)

const noRunOption = "noRun"

// benchmark holds the state shared between phases of a run: the workload
// options parsed by the configuration phases and the amount of work done by
// the write phases, which the later phases read back.
type benchmark struct {
	clock clock.PassiveClock

	dropCaches    bool
	timestampFile string
	disabled      map[string]bool

	iorEasy    iorState
	iorHard    iorState
	mdtestEasy mdtestState
	mdtestHard mdtestState
}

type iorState struct {
	opts    workload.IOROptions
	written int64
}

type mdtestState struct {
	opts    workload.MDTestOptions
	written int64
}

// New returns the registry of every benchmark phase, in execution order.
func New() (*phase.Registry, error) {
	return newBenchmark(nil).registry()
}

func newBenchmark(c clock.PassiveClock) *benchmark {
	if c == nil {
		c = clock.RealClock{}
	}
	return &benchmark{
		clock:    c,
		disabled: map[string]bool{},
	}
}

func (b *benchmark) registry() (*phase.Registry, error) {
	return phase.NewRegistry(
		b.optPhase(),
		b.debugPhase(),
		b.iorEasyPhase(),
		b.iorWritePhase(iorEasyWritePhaseName, "Write the ior-easy files", &b.iorEasy),
		b.mdtestEasyPhase(),
		b.mdtestWritePhase(mdtestEasyWritePhaseName, "Create the mdtest-easy files", &b.mdtestEasy),
		b.timestampPhase(),
		b.iorHardPhase(),
		b.iorWritePhase(iorHardWritePhaseName, "Write the ior-hard shared file", &b.iorHard),
		b.mdtestHardPhase(),
		b.mdtestWritePhase(mdtestHardWritePhaseName, "Create the mdtest-hard files", &b.mdtestHard),
		b.findPhase(),
		b.iorReadPhase(iorEasyReadPhaseName, "Read back the ior-easy files", &b.iorEasy),
		b.mdtestStatPhase(mdtestEasyStatPhaseName, "Stat the mdtest-easy files", &b.mdtestEasy),
		b.iorReadPhase(iorHardReadPhaseName, "Read back the ior-hard shared file", &b.iorHard),
		b.mdtestStatPhase(mdtestHardStatPhaseName, "Stat the mdtest-hard files", &b.mdtestHard),
		b.mdtestDeletePhase(mdtestEasyDeletePhaseName, "Remove the mdtest-easy files", &b.mdtestEasy),
		b.mdtestReadPhase(mdtestHardReadPhaseName, "Read the mdtest-hard files", &b.mdtestHard),
		b.mdtestDeletePhase(mdtestHardDeletePhaseName, "Remove the mdtest-hard files", &b.mdtestHard),
	)
}

// scoringPhase returns a phase contributing to the given group. Its section
// accepts noRun, which turns the phase into a no-op scoring zero.
func (b *benchmark) scoringPhase(d phase.Descriptor) phase.Descriptor {
	name := d.Name
	d.Options = append([]config.Option{{
		Name:        noRunOption,
		Default:     "FALSE",
		Description: "Disable running of this phase",
	}}, d.Options...)

	validate := d.Validate
	d.Validate = func(rc *phase.RunContext) error {
		noRun, err := rc.Config.Bool(name, noRunOption)
		if err != nil {
			return err
		}
		b.disabled[name] = noRun
		if validate == nil {
			return nil
		}
		return validate(rc)
	}

	run := d.Run
	d.Run = func(ctx context.Context, rc *phase.RunContext) (float64, error) {
		if b.disabled[name] {
			rc.Invalidate()
			log.WithField("phase", name).Warn("phase is disabled, this is not a qualifying run")
			return 0, nil
		}
		return run(ctx, rc)
	}
	return d
}

// maybeDropCaches drops the caches before a phase reading data back.
func (b *benchmark) maybeDropCaches(rc *phase.RunContext, name string) {
	if !b.dropCaches || rc.DryRun {
		return
	}
	if err := workload.DropCaches(); err != nil {
		log.WithError(err).WithField("phase", name).Warn("failed to drop caches")
	}
}

func positive(section, key string, v int64) error {
	if v <= 0 {
		return config.InvalidOptionError(section, key, errors.Errorf("must be positive, got %d", v))
	}
	return nil
}
