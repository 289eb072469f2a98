package report

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Azure/azure-io500/pkg/phase"
	"github.com/Azure/azure-io500/pkg/score"
)

func TestPair(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)
	w.Pair("score", "%f", 1.5)
	want := "score                = 1.500000\n"
	if buf.String() != want {
		t.Errorf("Pair() wrote %q, want %q", buf.String(), want)
	}
}

func TestSectionAndTimestamps(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)
	ts := time.Date(2022, 11, 1, 10, 0, 5, 0, time.UTC)

	w.Comment("START", ts)
	w.Section("ior-easy-write")
	w.Timestamp("t_start", ts)

	want := "; START 2022-11-01 10:00:05\n" +
		"\n[ior-easy-write]\n" +
		"t_start              = 2022-11-01 10:00:05\n"
	if buf.String() != want {
		t.Errorf("wrote %q, want %q", buf.String(), want)
	}
}

func TestScore(t *testing.T) {
	summary := &score.Summary{
		Groups: []score.GroupScore{
			{Group: phase.MetadataScore, Terms: []float64{10, 0}, Score: 10},
			{Group: phase.BandwidthScore, Terms: []float64{5}, Score: 5},
		},
		Overall: math.Sqrt(125),
	}

	tests := []struct {
		name  string
		valid bool
		want  string
	}{
		{
			name:  "valid run",
			valid: true,
			want: "\n[SCORE]\n" +
				"MD                   = 10.000\n" +
				"BW                   = 5.000\n" +
				"SCORE                = 11.180 \n",
		},
		{
			name:  "invalid run",
			valid: false,
			want: "\n[SCORE]\n" +
				"MD                   = 10.000\n" +
				"BW                   = 5.000\n" +
				"SCORE                = 11.180  [INVALID]\n",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewWriter(&buf, true).Score(summary, test.valid)
			if buf.String() != test.want {
				t.Errorf("Score() wrote %q, want %q", buf.String(), test.want)
			}
		})
	}
}

func TestNonLeaderWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, false)
	w.Section("find")
	w.Pair("score", "%f", 1.0)
	w.Newline()
	w.Score(&score.Summary{}, true)
	if buf.Len() != 0 {
		t.Errorf("expected no output from a non-leader writer, got %q", buf.String())
	}
	if w.Enabled() {
		t.Errorf("Enabled() = true, want false")
	}
}

type failingWriter struct {
	writes int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	f.writes++
	return 0, errors.New("disk full")
}

func TestErrIsSticky(t *testing.T) {
	f := &failingWriter{}
	w := NewWriter(f, true)
	w.Section("find")
	w.Pair("score", "%f", 1.0)
	if w.Err() == nil || w.Err().Error() != "disk full" {
		t.Errorf("Err() = %v, want disk full", w.Err())
	}
	if f.writes != 1 {
		t.Errorf("expected writes to stop after the first error, got %d writes", f.writes)
	}
}
