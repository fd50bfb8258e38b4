package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

const logTimeFormat = "15:04:05.00"

func newLogger(w io.Writer, level log.Level) *log.Logger {
	l := log.NewWithOptions(w, log.Options{ReportTimestamp: true, TimeFormat: logTimeFormat})
	l.SetLevel(level)
	return l
}

// timed logs msg with the time elapsed since it was called, e.g.
//
//	INFO Laid out 42 cards took=1.234s
func timed(l *log.Logger) func(msg string, kv ...any) {
	start := time.Now()
	return func(msg string, kv ...any) {
		l.Info(msg, append(kv, "took", time.Since(start).Round(time.Millisecond))...)
	}
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext falls back to log.Default so callers never get nil.
func loggerFromContext(ctx context.Context) *log.Logger {
	l, ok := ctx.Value(loggerKey{}).(*log.Logger)
	if !ok {
		return log.Default()
	}
	return l
}
