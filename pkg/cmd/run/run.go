package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"k8s.io/utils/clock"

	"github.com/Azure/azure-io500/pkg/config"
	"github.com/Azure/azure-io500/pkg/coordination"
	"github.com/Azure/azure-io500/pkg/metrics"
	"github.com/Azure/azure-io500/pkg/orchestrator"
	"github.com/Azure/azure-io500/pkg/phase"
	"github.com/Azure/azure-io500/pkg/phases"
	"github.com/Azure/azure-io500/pkg/report"
	"github.com/Azure/azure-io500/pkg/resultdir"
	"github.com/Azure/azure-io500/pkg/score"
)

type runOptions struct {
	configFile     string
	verbosity      int
	dryRun         bool
	metricsBackend string

	stdout      io.Writer
	clock       clock.Clock
	newProvider func(ctx context.Context) (coordination.Provider, error)
}

// NewRunCmd returns a new run command
func NewRunCmd() *cobra.Command {
	o := &runOptions{
		stdout:      os.Stdout,
		clock:       clock.RealClock{},
		newProvider: coordination.FromEnv,
	}

	cmd := &cobra.Command{
		Use:   "run <config.ini>",
		Short: "Run the io500 benchmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.configFile = args[0]
			return o.run(cmd.Context())
		},
	}

	if registry, err := phases.New(); err == nil {
		cmd.Long = describe(cmd.Name(), registry)
	}

	f := cmd.Flags()
	f.IntVarP(&o.verbosity, "verbosity", "v", 0, "Report the timing of each phase when greater than 0")
	f.BoolVar(&o.dryRun, "dry-run", false, "Validate the configuration and run every phase without doing any I/O")
	f.StringVar(&o.metricsBackend, "metrics-backend", "prometheus", fmt.Sprintf("Backend used to export the scores (prometheus|%s)", metrics.NoneBackend))

	return cmd
}

// describe lists the runnable phases in order.
func describe(use string, registry *phase.Registry) string {
	long := fmt.Sprintf("The \"%s\" command executes the following phases in order:", use)

	// Add extra padding to align the phase names
	longest := 0
	for _, p := range registry.Phases() {
		if p.Runnable() && longest < len(p.Name) {
			longest = len(p.Name)
		}
	}
	for _, p := range registry.Phases() {
		if !p.Runnable() {
			continue
		}
		paddingCount := longest - len(p.Name)
		long += fmt.Sprintf("\n%s%s  %s", p.Name, strings.Repeat(" ", paddingCount), p.Description)
	}
	return long
}

func (o *runOptions) run(ctx context.Context) error {
	registry, err := phases.New()
	if err != nil {
		return errors.Wrap(err, "failed to set up the phases")
	}
	cfg, err := config.ParseFile(o.configFile, registry.Schema())
	if err != nil {
		return errors.Wrapf(err, "failed to parse %s", o.configFile)
	}

	provider, err := o.newProvider(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to join the collective")
	}
	defer func() {
		if err := provider.Close(ctx); err != nil {
			log.WithError(err).Warn("failed to close the coordination provider")
		}
	}()

	rc := phase.NewRunContext(cfg, provider)
	rc.DryRun = o.dryRun
	rc.Verbosity = o.verbosity
	reporter := report.NewWriter(o.stdout, rc.IsLeader())

	dirOpts, err := resultdir.FromConfig(cfg)
	if err != nil {
		return err
	}
	dirs, err := resultdir.Setup(ctx, provider, o.clock, dirOpts)
	if err != nil {
		return errors.Wrap(err, "failed to set up the run directories")
	}
	rc.Timestamp = dirs.Timestamp
	rc.DataDir = dirs.DataDir
	rc.ResultDir = dirs.ResultDir

	exporter, err := metrics.InitMetricsExporter(o.metricsBackend, dirs.ResultDir)
	if err != nil {
		return err
	}

	reporter.Pair("result-dir", "%s", dirs.ResultDir)
	reporter.Pair("config-hash", "%s", cfg.Hash())
	if err := provider.Barrier(ctx); err != nil {
		return errors.Wrap(err, "failed to synchronize before the run")
	}
	if o.verbosity > 0 {
		reporter.Comment("START", o.clock.Now())
	}

	log.WithFields(log.Fields{
		"rank":    rc.Rank,
		"size":    rc.Size,
		"dataDir": rc.DataDir,
		"dryRun":  rc.DryRun,
	}).Info("starting the benchmark")
	results, valid, err := orchestrator.New(reporter, o.clock).Execute(ctx, registry, rc)
	if err != nil {
		return err
	}

	if o.verbosity > 0 {
		reporter.Comment("END", o.clock.Now())
	}
	if !rc.IsLeader() {
		return nil
	}

	summary, err := score.Aggregate(registry, results)
	if err != nil {
		return errors.Wrap(err, "failed to compute the score")
	}
	reporter.Score(summary, valid)
	if err := reporter.Err(); err != nil {
		return errors.Wrap(err, "failed to write the report")
	}

	summaryFile := filepath.Join(dirs.ResultDir, report.SummaryFileName)
	if err := report.NewRunSummary(dirs.Timestamp, cfg.Hash(), results, summary, valid).WriteFile(summaryFile); err != nil {
		return err
	}
	if err := exporter.Export(results, summary, valid); err != nil {
		return errors.Wrap(err, "failed to export metrics")
	}
	log.WithFields(log.Fields{"score": summary.Overall, "valid": valid}).Info("benchmark completed")
	return nil
}
