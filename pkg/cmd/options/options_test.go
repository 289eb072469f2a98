package options

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPrintOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	if err := os.WriteFile(path, []byte("[global]\ndatadir = /scratch/io500\n[mdtest-hard]\nn = 5000\n"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		configFile string
		want       []string
	}{
		{
			name: "defaults",
			want: []string{
				"[global]\n; The directory where the benchmark data is written\ndatadir = \n",
				"resultdir = ./results\n",
				"[debug]\n; Minimum runtime in seconds of the write phases\nstonewall-time = 300\n",
				"[ior-easy]\n",
				"transferSize = 2Mi\n",
				"[find]\n; Disable running of this phase\nnoRun = FALSE\n",
			},
		},
		{
			name:       "configuration file",
			configFile: path,
			want: []string{
				"datadir = /scratch/io500\n",
				"[mdtest-hard]\n; The maximum number of files per process\nn = 5000\n",
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := printOptions(&buf, test.configFile); err != nil {
				t.Fatalf("printOptions() error = %v", err)
			}
			for _, want := range test.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestPrintOptionsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	if err := os.WriteFile(path, []byte("[global]\ndatadir = /tmp\n[io500]\napi = POSIX\n"), 0600); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	err := printOptions(&buf, path)
	if err == nil || !strings.Contains(err.Error(), "[io500] is not a supported section") {
		t.Errorf("expected unsupported section error, got %v", err)
	}
}
