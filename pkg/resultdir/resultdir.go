// Package resultdir sets up the directories of a run. Every rank agrees on
// the timestamp of the leader, so all of them derive the same paths.
package resultdir

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/Azure/azure-io500/pkg/config"
	"github.com/Azure/azure-io500/pkg/coordination"
	"github.com/Azure/azure-io500/pkg/phases"
)

// TimestampLayout is the layout of the timestamp identifying a run
const TimestampLayout = "2006.01.02-15.04.05"

// Options configures the directories of a run.
type Options struct {
	ResultDir string
	DataDir   string

	// TimestampResultDir places the results in a subdirectory named after the run timestamp
	TimestampResultDir bool
	// TimestampDataDir places the data in a subdirectory named after the run timestamp
	TimestampDataDir bool
}

// Dirs are the directories of a run.
type Dirs struct {
	Timestamp string
	ResultDir string
	DataDir   string
}

// FromConfig returns the options of the [global] section.
func FromConfig(cfg *config.Config) (Options, error) {
	o := Options{
		ResultDir: cfg.String(phases.GlobalSection, phases.ResultDirOption),
		DataDir:   cfg.String(phases.GlobalSection, phases.DataDirOption),
	}
	var err error
	if o.TimestampResultDir, err = cfg.Bool(phases.GlobalSection, phases.TimestampResultDirOption); err != nil {
		return o, err
	}
	if o.TimestampDataDir, err = cfg.Bool(phases.GlobalSection, phases.TimestampDataDirOption); err != nil {
		return o, err
	}
	return o, nil
}

// Setup agrees on the run timestamp and creates the directories of the run.
// The leader creates the directories, every rank returns once they exist.
func Setup(ctx context.Context, p coordination.Provider, c clock.PassiveClock, o Options) (*Dirs, error) {
	if o.DataDir == "" {
		return nil, errors.New("data directory is required")
	}
	if o.ResultDir == "" {
		return nil, errors.New("result directory is required")
	}
	if c == nil {
		c = clock.RealClock{}
	}

	var ts []byte
	if coordination.IsLeader(p) {
		ts = []byte(c.Now().Format(TimestampLayout))
	}
	ts, err := p.Broadcast(ctx, ts, coordination.LeaderRank)
	if err != nil {
		return nil, errors.Wrap(err, "failed to broadcast the run timestamp")
	}

	dirs := &Dirs{
		Timestamp: string(ts),
		ResultDir: o.ResultDir,
		DataDir:   o.DataDir,
	}
	if o.TimestampResultDir {
		dirs.ResultDir = timestamped(o.ResultDir, dirs.Timestamp)
	}
	if o.TimestampDataDir {
		dirs.DataDir = timestamped(o.DataDir, dirs.Timestamp)
	}

	if coordination.IsLeader(p) {
		log.WithFields(log.Fields{
			"resultDir": dirs.ResultDir,
			"dataDir":   dirs.DataDir,
		}).Debug("creating run directories")
		if err := os.MkdirAll(dirs.ResultDir, 0700); err != nil {
			return nil, errors.Wrapf(err, "failed to create result directory %s", dirs.ResultDir)
		}
		if err := os.MkdirAll(dirs.DataDir, 0755); err != nil {
			return nil, errors.Wrapf(err, "failed to create data directory %s", dirs.DataDir)
		}
	}
	if err := p.Barrier(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to synchronize after creating the run directories")
	}
	return dirs, nil
}

// timestamped appends the timestamp to dir. The directory is kept as
// configured, it is printed in the report.
func timestamped(dir, ts string) string {
	return fmt.Sprintf("%s/%s", dir, ts)
}
