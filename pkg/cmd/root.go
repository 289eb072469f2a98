package cmd

import (
	"github.com/Azure/azure-io500/pkg/cmd/options"
	"github.com/Azure/azure-io500/pkg/cmd/run"
	"github.com/Azure/azure-io500/pkg/cmd/version"
	"github.com/Azure/azure-io500/pkg/logger"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	rootName             = "io500"
	rootShortDescription = "io500 runs the IO500 storage benchmark"
	rootLongDescription  = rootShortDescription + " across a collective of processes and reports its score."
)

var (
	debug bool
)

// NewRootCmd returns the root command for io500.
func NewRootCmd() *cobra.Command {
	l := logger.New()
	cmd := &cobra.Command{
		Use:   rootName,
		Short: rootShortDescription,
		Long:  rootLongDescription,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			l.Configure()
			if debug {
				log.SetLevel(log.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
		SilenceUsage: true,
	}

	p := cmd.PersistentFlags()
	p.BoolVar(&debug, "debug", false, "Enable debug logging")
	l.AddFlags(p)

	cmd.AddCommand(version.NewVersionCmd())
	cmd.AddCommand(run.NewRunCmd())
	cmd.AddCommand(options.NewOptionsCmd())

	return cmd
}
