package phases

import (
	"context"
	"path/filepath"

	"github.com/Azure/azure-io500/pkg/phase"
	"github.com/Azure/azure-io500/pkg/workload"
)

const (
	timestampPhaseName = "timestamp"
	findPhaseName      = "find"

	timestampFileName = "timestampfile"
)

func (b *benchmark) timestampPhase() phase.Descriptor {
	return phase.Descriptor{
		Name:        timestampPhaseName,
		Description: "Create the reference file of the find phase",
		Group:       phase.NoScore,
		Validate: func(rc *phase.RunContext) error {
			b.timestampFile = filepath.Join(rc.DataDir, timestampFileName)
			return nil
		},
		Run: func(ctx context.Context, rc *phase.RunContext) (float64, error) {
			if !rc.IsLeader() || rc.DryRun {
				return 0, nil
			}
			return 0, workload.Touch(b.timestampFile, b.clock.Now())
		},
	}
}

func (b *benchmark) findPhase() phase.Descriptor {
	return b.scoringPhase(phase.Descriptor{
		Name:        findPhaseName,
		Description: "Find the mdtest-hard files newer than the timestamp file",
		Group:       phase.MetadataScore,
		Run: func(ctx context.Context, rc *phase.RunContext) (float64, error) {
			res, err := workload.Find(ctx, rc.Coordinator, workload.FindOptions{
				Dir:    rc.DataDir,
				Newer:  b.timestampFile,
				Name:   "01",
				Size:   mdtestHardFileSize,
				DryRun: rc.DryRun,
				Clock:  b.clock,
			})
			if err != nil {
				return 0, err
			}
			return res.Rate(), nil
		},
	})
}
