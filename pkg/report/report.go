package report

import (
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Azure/azure-io500/pkg/score"
)

const (
	// TimestampFormat is the layout of the timestamps of the report
	TimestampFormat = "2006-01-02 15:04:05"

	scoreSection = "SCORE"
	scoreKey     = "SCORE"
	invalidMark  = " [INVALID]"
)

// Writer writes the line oriented key/value report of a run. Only the leader
// reports; the writer of any other process discards everything.
type Writer struct {
	out     io.Writer
	enabled bool
	err     error
}

// NewWriter returns a writer for the process. Output is enabled for the
// leader only.
func NewWriter(out io.Writer, leader bool) *Writer {
	return &Writer{out: out, enabled: leader}
}

// Enabled returns true if the writer produces output.
func (w *Writer) Enabled() bool {
	return w.enabled
}

// Err returns the first error the underlying writer returned.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) printf(format string, args ...interface{}) {
	if !w.enabled || w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.out, format, args...)
}

// Section starts a new section, e.g. "[ior-easy-write]".
func (w *Writer) Section(name string) {
	w.printf("\n[%s]\n", name)
}

// Pair writes a "key = value" line.
func (w *Writer) Pair(key, format string, args ...interface{}) {
	w.printf("%-20s = %s\n", key, fmt.Sprintf(format, args...))
}

// Timestamp writes a pair with a formatted timestamp as value.
func (w *Writer) Timestamp(key string, t time.Time) {
	w.Pair(key, "%s", t.Format(TimestampFormat))
}

// Comment writes a comment line, e.g. "; START 2022-11-01 10:00:00".
func (w *Writer) Comment(label string, t time.Time) {
	w.printf("; %s %s\n", label, t.Format(TimestampFormat))
}

// Newline writes an empty line.
func (w *Writer) Newline() {
	w.printf("\n")
}

// Score writes the [SCORE] section: one line per scoring group and the
// overall score, marked invalid when the run is not valid.
func (w *Writer) Score(s *score.Summary, valid bool) {
	w.Section(scoreSection)
	for _, gs := range s.Groups {
		log.Debug(gs.Formula())
		w.Pair(gs.Group.String(), "%.3f", gs.Score)
	}
	mark := ""
	if !valid {
		mark = invalidMark
	}
	// the separator is printed even when there is no mark
	w.Pair(scoreKey, "%.3f %s", s.Overall, mark)
}
