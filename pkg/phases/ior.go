package phases

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/Azure/azure-io500/pkg/config"
	"github.com/Azure/azure-io500/pkg/phase"
	"github.com/Azure/azure-io500/pkg/workload"
)

const (
	iorEasyPhaseName      = "ior-easy"
	iorEasyWritePhaseName = "ior-easy-write"
	iorEasyReadPhaseName  = "ior-easy-read"
	iorHardPhaseName      = "ior-hard"
	iorHardWritePhaseName = "ior-hard-write"
	iorHardReadPhaseName  = "ior-hard-read"

	// iorHardTransferSize is the fixed record size of the shared file
	iorHardTransferSize = 47008
)

func (b *benchmark) iorEasyPhase() phase.Descriptor {
	return phase.Descriptor{
		Name:        iorEasyPhaseName,
		Description: "Options of the ior-easy phases, a file per process written sequentially",
		Options: []config.Option{
			{Name: "transferSize", Default: "2Mi", Description: "The size of a single transfer"},
			{Name: "blockSize", Default: "9920000Mi", Description: "The maximum size of the file of a process"},
		},
		Validate: b.validateIOREasy,
	}
}

func (b *benchmark) validateIOREasy(rc *phase.RunContext) error {
	transferSize, err := rc.Config.Quantity(iorEasyPhaseName, "transferSize")
	if err != nil {
		return err
	}
	if err := positive(iorEasyPhaseName, "transferSize", transferSize); err != nil {
		return err
	}
	blockSize, err := rc.Config.Quantity(iorEasyPhaseName, "blockSize")
	if err != nil {
		return err
	}
	if err := positive(iorEasyPhaseName, "blockSize", blockSize); err != nil {
		return err
	}
	if blockSize%transferSize != 0 {
		return config.InvalidOptionError(iorEasyPhaseName, "blockSize", errors.Errorf("must be a multiple of transferSize %d, got %d", transferSize, blockSize))
	}

	b.iorEasy.opts = workload.IOROptions{
		Dir:          filepath.Join(rc.DataDir, iorEasyPhaseName),
		TransferSize: transferSize,
		Transfers:    blockSize / transferSize,
		Clock:        b.clock,
	}
	return nil
}

func (b *benchmark) iorHardPhase() phase.Descriptor {
	return phase.Descriptor{
		Name:        iorHardPhaseName,
		Description: "Options of the ior-hard phases, a single shared file of interleaved records",
		Options: []config.Option{
			{Name: "segmentCount", Default: "10000000", Description: "The maximum number of records per process"},
		},
		Validate: b.validateIORHard,
	}
}

func (b *benchmark) validateIORHard(rc *phase.RunContext) error {
	segmentCount, err := rc.Config.Quantity(iorHardPhaseName, "segmentCount")
	if err != nil {
		return err
	}
	if err := positive(iorHardPhaseName, "segmentCount", segmentCount); err != nil {
		return err
	}

	b.iorHard.opts = workload.IOROptions{
		Dir:          filepath.Join(rc.DataDir, iorHardPhaseName),
		Shared:       true,
		TransferSize: iorHardTransferSize,
		Transfers:    segmentCount,
		Clock:        b.clock,
	}
	return nil
}

func (b *benchmark) iorWritePhase(name, description string, s *iorState) phase.Descriptor {
	return b.scoringPhase(phase.Descriptor{
		Name:            name,
		Description:     description,
		Group:           phase.BandwidthScore,
		VerifyStonewall: true,
		Run: func(ctx context.Context, rc *phase.RunContext) (float64, error) {
			opts := s.opts
			opts.Stonewall = rc.StonewallThreshold
			opts.DryRun = rc.DryRun

			res, err := workload.IORWrite(ctx, rc.Coordinator, opts)
			if err != nil {
				return 0, err
			}
			s.written = res.Ops
			return res.Bandwidth(), nil
		},
	})
}

func (b *benchmark) iorReadPhase(name, description string, s *iorState) phase.Descriptor {
	return b.scoringPhase(phase.Descriptor{
		Name:        name,
		Description: description,
		Group:       phase.BandwidthScore,
		Run: func(ctx context.Context, rc *phase.RunContext) (float64, error) {
			b.maybeDropCaches(rc, name)

			opts := s.opts
			opts.DryRun = rc.DryRun
			res, err := workload.IORRead(ctx, rc.Coordinator, opts, s.written)
			if err != nil {
				return 0, err
			}
			return res.Bandwidth(), nil
		},
	})
}
