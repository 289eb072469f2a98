package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var testSchema = Schema{
	{
		Name: "global",
		Options: []Option{
			{Name: "datadir", Required: true, Description: "The directory where the benchmark data is written"},
			{Name: "drop-caches", Default: "FALSE"},
		},
	},
	{
		Name: "ior-easy",
		Options: []Option{
			{Name: "transferSize", Default: "2Mi"},
			{Name: "segmentCount", Default: "10"},
		},
	},
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		errorMsg string
	}{
		{
			name: "valid config",
			data: "[global]\ndatadir = /tmp/datadir\n",
		},
		{
			name:     "missing required option",
			data:     "[global]\ndrop-caches = TRUE\n",
			errorMsg: "[global] datadir is required",
		},
		{
			name:     "unknown section",
			data:     "[global]\ndatadir = /tmp\n[mdtest-easy]\nn = 1\n",
			errorMsg: "[mdtest-easy] is not a supported section",
		},
		{
			name:     "unknown key",
			data:     "[global]\ndatadir = /tmp\napi = POSIX\n",
			errorMsg: "[global] api is not a supported option",
		},
		{
			name:     "key outside of a section",
			data:     "datadir = /tmp\n[global]\ndatadir = /tmp\n",
			errorMsg: "[DEFAULT] datadir is not a supported option",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse([]byte(test.data), testSchema)
			if err == nil {
				if test.errorMsg != "" {
					t.Errorf("expected error but got nil")
				}
			} else if err.Error() != test.errorMsg {
				t.Errorf("expected error message: %s, but got: %s", test.errorMsg, err.Error())
			}
		})
	}
}

func TestIsMissingOption(t *testing.T) {
	_, err := Parse([]byte("[global]\n"), testSchema)
	if !IsMissingOption(err) {
		t.Errorf("IsMissingOption(%v) = false, want true", err)
	}
	if IsUnknownOption(err) {
		t.Errorf("IsUnknownOption(%v) = true, want false", err)
	}
}

func TestDefaults(t *testing.T) {
	c, err := Parse([]byte("[global]\ndatadir = /tmp/datadir\n[ior-easy]\nsegmentCount = 42\n"), testSchema)
	if err != nil {
		t.Fatalf("Parse() error = %v, want nil", err)
	}

	if got := c.String("global", "datadir"); got != "/tmp/datadir" {
		t.Errorf("String() = %s, want /tmp/datadir", got)
	}
	dropCaches, err := c.Bool("global", "drop-caches")
	if err != nil || dropCaches {
		t.Errorf("Bool() = %v, %v, want false, nil", dropCaches, err)
	}
	transferSize, err := c.Quantity("ior-easy", "transferSize")
	if err != nil || transferSize != 2*1024*1024 {
		t.Errorf("Quantity() = %d, %v, want %d, nil", transferSize, err, 2*1024*1024)
	}
	segmentCount, err := c.Int("ior-easy", "segmentCount")
	if err != nil || segmentCount != 42 {
		t.Errorf("Int() = %d, %v, want 42, nil", segmentCount, err)
	}
}

func TestInvalidValues(t *testing.T) {
	c, err := Parse([]byte("[global]\ndatadir = /tmp\ndrop-caches = maybe\n[ior-easy]\ntransferSize = lots\nsegmentCount = ten\n"), testSchema)
	if err != nil {
		t.Fatalf("Parse() error = %v, want nil", err)
	}
	if _, err := c.Bool("global", "drop-caches"); err == nil {
		t.Errorf("Bool() error = nil, want error")
	}
	if _, err := c.Quantity("ior-easy", "transferSize"); err == nil {
		t.Errorf("Quantity() error = nil, want error")
	}
	if _, err := c.Int("ior-easy", "segmentCount"); err == nil {
		t.Errorf("Int() error = nil, want error")
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.ini")
	if err := os.WriteFile(path, []byte("[global]\ndatadir = /tmp/datadir\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseFile(path, testSchema); err != nil {
		t.Errorf("ParseFile() error = %v, want nil", err)
	}
	if _, err := ParseFile(filepath.Join(dir, "missing.ini"), testSchema); err == nil {
		t.Errorf("ParseFile() error = nil, want error")
	}
}

func TestHash(t *testing.T) {
	a, err := Parse([]byte("[global]\ndatadir = /tmp/a\n"), testSchema)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse([]byte("[global]\ndatadir = /tmp/a\n[ior-easy]\ntransferSize = 2Mi\n"), testSchema)
	if err != nil {
		t.Fatal(err)
	}
	c, err := Parse([]byte("[global]\ndatadir = /tmp/c\n"), testSchema)
	if err != nil {
		t.Fatal(err)
	}

	if a.Hash() != b.Hash() {
		t.Errorf("expected explicit defaults to hash the same: %s != %s", a.Hash(), b.Hash())
	}
	if a.Hash() == c.Hash() {
		t.Errorf("expected different datadir to change the hash")
	}
	if len(a.Hash()) != 16 {
		t.Errorf("len(Hash()) = %d, want 16", len(a.Hash()))
	}
}

func TestPrintValues(t *testing.T) {
	var buf bytes.Buffer
	if err := New(testSchema).PrintValues(&buf); err != nil {
		t.Fatalf("PrintValues() error = %v, want nil", err)
	}
	out := buf.String()
	for _, want := range []string{
		"[global]\n",
		"; The directory where the benchmark data is written\ndatadir = \n",
		"drop-caches = FALSE\n",
		"[ior-easy]\ntransferSize = 2Mi\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("PrintValues() output missing %q, got:\n%s", want, out)
		}
	}
}
