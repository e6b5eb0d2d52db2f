package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
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
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("x") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("x") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("x") }, true},
		{"warn at error level", log.ErrorLevel, func(l *log.Logger) { l.Warn("x") }, false},
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

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	prog.done("Exported frames", "book", "s.pxl", "count", 3)

	out := buf.String()
	for _, want := range []string{"Exported frames", "book=s.pxl", "count=3", "elapsed="} {
		if !strings.Contains(out, want) {
			t.Errorf("progress output %q missing %q", out, want)
		}
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("loggerFromContext without a logger should return log.Default()")
	}

	custom := newLogger(io.Discard, log.InfoLevel)
	if got := loggerFromContext(withLogger(context.Background(), custom)); got != custom {
		t.Error("loggerFromContext should return the attached logger")
	}
}

func TestConfigLevelYieldsToVerbose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[log]\nlevel = \"warn\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	quiet := New(io.Discard, log.InfoLevel)
	quiet.configPath = path
	if err := quiet.loadConfig(); err != nil {
		t.Fatal(err)
	}
	if got := quiet.Logger.GetLevel(); got != log.WarnLevel {
		t.Errorf("level = %v, want warn from config", got)
	}

	verbose := New(io.Discard, log.InfoLevel)
	verbose.SetLogLevel(log.DebugLevel)
	verbose.configPath = path
	if err := verbose.loadConfig(); err != nil {
		t.Fatal(err)
	}
	if got := verbose.Logger.GetLevel(); got != log.DebugLevel {
		t.Errorf("level = %v, want debug from --verbose", got)
	}
}
