package phases

import (
	"context"
	"path/filepath"

	"github.com/Azure/azure-io500/pkg/config"
	"github.com/Azure/azure-io500/pkg/phase"
	"github.com/Azure/azure-io500/pkg/workload"
)

const (
	mdtestEasyPhaseName       = "mdtest-easy"
	mdtestEasyWritePhaseName  = "mdtest-easy-write"
	mdtestEasyStatPhaseName   = "mdtest-easy-stat"
	mdtestEasyDeletePhaseName = "mdtest-easy-delete"
	mdtestHardPhaseName       = "mdtest-hard"
	mdtestHardWritePhaseName  = "mdtest-hard-write"
	mdtestHardStatPhaseName   = "mdtest-hard-stat"
	mdtestHardReadPhaseName   = "mdtest-hard-read"
	mdtestHardDeletePhaseName = "mdtest-hard-delete"

	// mdtestHardFileSize is the fixed size of the mdtest-hard files
	mdtestHardFileSize = 3901
)

func mdtestOptions() []config.Option {
	return []config.Option{
		{Name: "n", Default: "1000000", Description: "The maximum number of files per process"},
	}
}

func (b *benchmark) mdtestEasyPhase() phase.Descriptor {
	return phase.Descriptor{
		Name:        mdtestEasyPhaseName,
		Description: "Options of the mdtest-easy phases, empty files in a directory per process",
		Options:     mdtestOptions(),
		Validate: func(rc *phase.RunContext) error {
			return b.validateMDTest(rc, mdtestEasyPhaseName, &b.mdtestEasy, false, 0)
		},
	}
}

func (b *benchmark) mdtestHardPhase() phase.Descriptor {
	return phase.Descriptor{
		Name:        mdtestHardPhaseName,
		Description: "Options of the mdtest-hard phases, small files in a single shared directory",
		Options:     mdtestOptions(),
		Validate: func(rc *phase.RunContext) error {
			return b.validateMDTest(rc, mdtestHardPhaseName, &b.mdtestHard, true, mdtestHardFileSize)
		},
	}
}

func (b *benchmark) validateMDTest(rc *phase.RunContext, name string, s *mdtestState, shared bool, fileSize int64) error {
	n, err := rc.Config.Quantity(name, "n")
	if err != nil {
		return err
	}
	if err := positive(name, "n", n); err != nil {
		return err
	}

	s.opts = workload.MDTestOptions{
		Dir:      filepath.Join(rc.DataDir, name),
		Shared:   shared,
		FileSize: fileSize,
		Files:    n,
		Clock:    b.clock,
	}
	return nil
}

func (b *benchmark) mdtestWritePhase(name, description string, s *mdtestState) phase.Descriptor {
	return b.scoringPhase(phase.Descriptor{
		Name:            name,
		Description:     description,
		Group:           phase.MetadataScore,
		VerifyStonewall: true,
		Run: func(ctx context.Context, rc *phase.RunContext) (float64, error) {
			opts := s.opts
			opts.Stonewall = rc.StonewallThreshold
			opts.DryRun = rc.DryRun

			res, err := workload.MDTestWrite(ctx, rc.Coordinator, opts)
			if err != nil {
				return 0, err
			}
			s.written = res.Ops
			return res.Rate(), nil
		},
	})
}

type mdtestFunc func(ctx context.Context, c workload.Collective, o workload.MDTestOptions, files int64) (*workload.Result, error)

func (b *benchmark) mdtestPhase(name, description string, s *mdtestState, dropCaches bool, fn mdtestFunc) phase.Descriptor {
	return b.scoringPhase(phase.Descriptor{
		Name:        name,
		Description: description,
		Group:       phase.MetadataScore,
		Run: func(ctx context.Context, rc *phase.RunContext) (float64, error) {
			if dropCaches {
				b.maybeDropCaches(rc, name)
			}

			opts := s.opts
			opts.DryRun = rc.DryRun
			res, err := fn(ctx, rc.Coordinator, opts, s.written)
			if err != nil {
				return 0, err
			}
			return res.Rate(), nil
		},
	})
}

func (b *benchmark) mdtestStatPhase(name, description string, s *mdtestState) phase.Descriptor {
	return b.mdtestPhase(name, description, s, true, workload.MDTestStat)
}

func (b *benchmark) mdtestReadPhase(name, description string, s *mdtestState) phase.Descriptor {
	return b.mdtestPhase(name, description, s, true, workload.MDTestRead)
}

func (b *benchmark) mdtestDeletePhase(name, description string, s *mdtestState) phase.Descriptor {
	return b.mdtestPhase(name, description, s, false, workload.MDTestDelete)
}
