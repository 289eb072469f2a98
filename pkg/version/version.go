// Package version holds the build information of the io500 binary. The
// variables are set at link time with -ldflags "-X".
package version

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
)

const product = "azure-io500"

var (
	// Vcs is the commit the binary was built from
	Vcs string
	// BuildTime is when the binary was built
	BuildTime string
	// BuildVersion is the release of the benchmark
	BuildVersion string
)

// Info describes the build of the running binary.
type Info struct {
	BuildVersion string `json:"buildVersion"`
	GitCommit    string `json:"gitCommit"`
	BuildDate    string `json:"buildDate"`
	GoVersion    string `json:"goVersion"`
	Platform     string `json:"platform"`
}

// Get returns the build information.
func Get() Info {
	return Info{
		BuildVersion: BuildVersion,
		GitCommit:    Vcs,
		BuildDate:    BuildTime,
		GoVersion:    runtime.Version(),
		Platform:     runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// GetUserAgent identifies a component of the benchmark in HTTP requests,
// e.g. azure-io500/coordinator/v0.1.0 (linux/amd64) 1ebf89c/2022-11-01.
func GetUserAgent(component string) string {
	i := Get()
	return fmt.Sprintf("%s/%s/%s (%s) %s/%s", product, component, i.BuildVersion, i.Platform, i.GitCommit, i.BuildDate)
}

// PrintVersionToStdout prints the build information as json
func PrintVersionToStdout() error {
	return printVersion(os.Stdout)
}

func printVersion(w io.Writer) error {
	return json.NewEncoder(w).Encode(Get())
}
