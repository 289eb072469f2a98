package version

import (
	"fmt"

	"github.com/Azure/azure-io500/pkg/version"

	"github.com/spf13/cobra"
)

// NewVersionCmd returns a new version command
func NewVersionCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of io500",
		Long:  "Print the version of io500",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput {
				return version.PrintVersionToStdout()
			}
			fmt.Println(getVersion())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the build information as json")

	return cmd
}

func getVersion() string {
	info := version.Get()
	return fmt.Sprintf("Version: %s\nGitCommit: %s\nBuildTime: %s", info.BuildVersion, info.GitCommit, info.BuildDate)
}
