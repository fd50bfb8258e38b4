package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"InfoAtInfo", log.InfoLevel, func(l *log.Logger) { l.Info("placed card") }, true},
		{"DebugAtInfo", log.InfoLevel, func(l *log.Logger) { l.Debug("drag start") }, false},
		{"DebugAtDebug", log.DebugLevel, func(l *log.Logger) { l.Debug("drag start") }, true},
		{"InfoAtWarn", log.WarnLevel, func(l *log.Logger) { l.Info("placed card") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("logged = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestTimed(t *testing.T) {
	var buf bytes.Buffer
	done := timed(newLogger(&buf, log.InfoLevel))
	done("Laid out 3 cards", "cached", false)

	out := buf.String()
	for _, want := range []string{"Laid out 3 cards", "cached=false", "took="} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("a bare context should yield log.Default()")
	}

	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel)
	got := loggerFromContext(withLogger(context.Background(), custom))
	if got != custom {
		t.Fatal("loggerFromContext did not return the attached logger")
	}
	got.Info("attached")
	if !strings.Contains(buf.String(), "attached") {
		t.Error("attached logger did not write to its buffer")
	}
}
