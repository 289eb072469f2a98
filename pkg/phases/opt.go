package phases

import (
	"time"

	"github.com/pkg/errors"

	"github.com/Azure/azure-io500/pkg/config"
	"github.com/Azure/azure-io500/pkg/phase"
)

const (
	// GlobalSection is the section of the options shared by every phase
	GlobalSection = "global"
	// DebugSection is the section of the options for testing a setup
	DebugSection = "debug"

	DataDirOption            = "datadir"
	ResultDirOption          = "resultdir"
	TimestampDataDirOption   = "timestamp-datadir"
	TimestampResultDirOption = "timestamp-resultdir"
	DropCachesOption         = "drop-caches"
	StonewallTimeOption      = "stonewall-time"
)

func (b *benchmark) optPhase() phase.Descriptor {
	return phase.Descriptor{
		Name:        GlobalSection,
		Description: "Options shared by every phase",
		Options: []config.Option{
			{Name: DataDirOption, Required: true, Description: "The directory where the benchmark data is written"},
			{Name: ResultDirOption, Default: "./results", Description: "The directory where the results are written"},
			{Name: TimestampDataDirOption, Default: "TRUE", Description: "Use a timestamped subdirectory of the data directory"},
			{Name: TimestampResultDirOption, Default: "TRUE", Description: "Use a timestamped subdirectory of the result directory"},
			{Name: DropCachesOption, Default: "FALSE", Description: "Drop the caches before phases reading data back, requires root"},
		},
		Validate: b.validateOpt,
	}
}

func (b *benchmark) validateOpt(rc *phase.RunContext) error {
	for _, key := range []string{TimestampDataDirOption, TimestampResultDirOption} {
		if _, err := rc.Config.Bool(GlobalSection, key); err != nil {
			return err
		}
	}
	dropCaches, err := rc.Config.Bool(GlobalSection, DropCachesOption)
	if err != nil {
		return err
	}
	b.dropCaches = dropCaches

	if rc.DataDir == "" {
		return errors.New("data directory is not set up")
	}
	return nil
}

func (b *benchmark) debugPhase() phase.Descriptor {
	return phase.Descriptor{
		Name:        DebugSection,
		Description: "Options for testing a setup",
		Options: []config.Option{
			{Name: StonewallTimeOption, Default: "300", Description: "Minimum runtime in seconds of the write phases"},
		},
		Validate: b.validateDebug,
	}
}

func (b *benchmark) validateDebug(rc *phase.RunContext) error {
	seconds, err := rc.Config.Int(DebugSection, StonewallTimeOption)
	if err != nil {
		return err
	}
	if seconds < 0 {
		return config.InvalidOptionError(DebugSection, StonewallTimeOption, errors.Errorf("must not be negative, got %d", seconds))
	}
	rc.StonewallThreshold = time.Duration(seconds) * time.Second
	return nil
}
