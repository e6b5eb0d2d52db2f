package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	perrors "github.com/pixlkit/pixl/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
addr = ":8080"
heartbeat = "5s"

[storage]
backend = "mongo"
mongo_uri = "mongodb://db:27017"

[events]
backend = "redis"
redis_addr = "cache:6379"
history = 50
retention = "2h"

[log]
level = "debug"
`)

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := Default()
	want.Server.Addr = ":8080"
	want.Server.Heartbeat = Duration{5 * time.Second}
	want.Storage.Backend = StorageMongo
	want.Storage.MongoURI = "mongodb://db:27017"
	want.Events.Backend = EventsRedis
	want.Events.RedisAddr = "cache:6379"
	want.Events.History = 50
	want.Events.Retention = Duration{2 * time.Hour}
	want.Log.Level = "debug"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if got.Level() != log.DebugLevel {
		t.Errorf("Level() = %v, want debug", got.Level())
	}
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	got, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if diff := cmp.Diff(Default(), got); diff != "" {
		t.Errorf("Load(\"\") mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDefaultLocation(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, "pixl"), 0o755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, "pixl", "config.toml"), []byte("[server]\naddr = \":9000\"\n"), 0o644)

	got, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if got.Server.Addr != ":9000" {
		t.Errorf("addr = %q, want :9000", got.Server.Addr)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"syntax", "[server\naddr = 1"},
		{"unknown key", "[server]\nport = 3000\n"},
		{"bad storage backend", "[storage]\nbackend = \"s3\"\n"},
		{"mongo without uri", "[storage]\nbackend = \"mongo\"\n"},
		{"bad events backend", "[events]\nbackend = \"kafka\"\n"},
		{"bad cache backend", "[cache]\nbackend = \"memcached\"\n"},
		{"negative history", "[events]\nhistory = -1\n"},
		{"negative retention", "[events]\nretention = \"-1h\"\n"},
		{"bad level", "[log]\nlevel = \"loud\"\n"},
		{"bad duration", "[server]\nheartbeat = \"soon\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if !perrors.Is(err, perrors.ErrCodeInvalidInput) {
				t.Errorf("Load() error = %v, want INVALID_INPUT", err)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("Load() of an explicit missing file should fail")
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	got, err := DefaultPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/xdg", "pixl", "config.toml"); got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Cache.TTL = Duration{90 * time.Minute}

	var buf bytes.Buffer
	if err := cfg.Write(&buf); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	got, err := Load(writeConfig(t, buf.String()))
	if err != nil {
		t.Fatalf("Load() error: %v\n%s", err, buf.String())
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
