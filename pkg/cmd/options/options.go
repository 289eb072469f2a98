package options

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Azure/azure-io500/pkg/config"
	"github.com/Azure/azure-io500/pkg/phases"
)

// NewOptionsCmd returns a new options command
func NewOptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options [config.ini]",
		Short: "Print the supported configuration options",
		Long:  "Print every supported configuration option with its description and value. Without a configuration file the default values are printed.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile := ""
			if len(args) == 1 {
				configFile = args[0]
			}
			return printOptions(os.Stdout, configFile)
		},
	}

	return cmd
}

func printOptions(w io.Writer, configFile string) error {
	registry, err := phases.New()
	if err != nil {
		return errors.Wrap(err, "failed to set up the phases")
	}

	cfg := config.New(registry.Schema())
	if configFile != "" {
		if cfg, err = config.ParseFile(configFile, registry.Schema()); err != nil {
			return errors.Wrapf(err, "failed to parse %s", configFile)
		}
	}
	return cfg.PrintValues(w)
}
