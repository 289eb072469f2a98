package logger

import (
	"fmt"
	"io"

	"github.com/mattn/go-colorable"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// Encoder is an enum for the log encoders.
type Encoder string

// Logger is a wrapper for the log encoder.
type Logger struct {
	Encoder string
}

const (
	logEncoderFlag = "log-encoder"

	// EncoderConsole is the console encoder.
	EncoderConsole Encoder = "console"

	// EncoderJSON is the json encoder.
	EncoderJSON Encoder = "json"
)

// New returns a new logger with console encoder as the default.
func New() *Logger {
	return &Logger{
		Encoder: string(EncoderConsole),
	}
}

// AddFlags adds flags for the logger.
func (l *Logger) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&l.Encoder, logEncoderFlag, string(EncoderConsole), fmt.Sprintf("Sets the log encoder (%s|%s)", EncoderConsole, EncoderJSON))
}

// Configure sets up the standard logger according to the encoder. The report
// goes to stdout, so logs always go to stderr.
func (l *Logger) Configure() {
	l.configure(log.StandardLogger(), colorable.NewColorableStderr())
}

func (l *Logger) configure(logger *log.Logger, out io.Writer) {
	logger.SetOutput(out)
	switch Encoder(l.Encoder) {
	case EncoderConsole:
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case EncoderJSON:
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		logger.WithField("encoder", l.Encoder).Warn("unknown log encoder, using console")
	}
}
