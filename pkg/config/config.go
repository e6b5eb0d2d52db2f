// Package config loads pixl's TOML configuration.
//
// The file lives at $XDG_CONFIG_HOME/pixl/config.toml (or
// ~/.config/pixl/config.toml) unless a path is given explicitly. Every
// key is optional; missing keys keep the values from [Default]. A minimal
// file for a shared deployment:
//
//	[server]
//	addr = ":8080"
//
//	[storage]
//	backend   = "mongo"
//	mongo_uri = "mongodb://db:27017"
//
//	[events]
//	backend    = "redis"
//	redis_addr = "cache:6379"
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	perrors "github.com/pixlkit/pixl/pkg/errors"
)

const appName = "pixl"

// Backend names.
const (
	StorageFile  = "file"
	StorageMongo = "mongo"

	EventsMemory = "memory"
	EventsRedis  = "redis"

	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the full configuration.
type Config struct {
	Server  Server  `toml:"server"`
	Storage Storage `toml:"storage"`
	Events  Events  `toml:"events"`
	Cache   Cache   `toml:"cache"`
	Log     Log     `toml:"log"`
}

// Server configures `pixl serve` and the address other commands talk to.
type Server struct {
	Addr      string   `toml:"addr"`
	URL       string   `toml:"url"`
	Heartbeat Duration `toml:"heartbeat"`
}

// Storage selects where books live.
type Storage struct {
	Backend         string `toml:"backend"`
	Path            string `toml:"path"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// Events selects the event bus.
type Events struct {
	Backend       string `toml:"backend"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	// History is how many events are kept per book.
	History int `toml:"history"`
	// Retention is how long `pixl serve` keeps events; zero keeps them
	// until the History cap pushes them out.
	Retention Duration `toml:"retention"`
}

// Cache configures the export cache.
type Cache struct {
	Backend string   `toml:"backend"`
	Dir     string   `toml:"dir"`
	TTL     Duration `toml:"ttl"`
}

// Log configures logging.
type Log struct {
	Level string `toml:"level"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file exists. Books are
// stored in the home directory.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		Server: Server{
			Addr:      ":3000",
			URL:       "http://localhost:3000",
			Heartbeat: Duration{30 * time.Second},
		},
		Storage: Storage{Backend: StorageFile, Path: home},
		Events:  Events{Backend: EventsMemory, RedisAddr: "localhost:6379", History: 1000, Retention: Duration{24 * time.Hour}},
		Cache:   Cache{Backend: CacheFile, TTL: Duration{24 * time.Hour}},
		Log:     Log{Level: "info"},
	}
}

// DefaultPath returns the config file location following the XDG base
// directory convention.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load reads the config at path over the defaults. With an empty path the
// default location is used, and a missing file there is not an error.
// Unknown keys are rejected so typos do not go unnoticed.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return cfg, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, perrors.New(perrors.ErrCodeInvalidInput, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks backend names and the log level.
func (c Config) Validate() error {
	if err := oneOf("storage.backend", c.Storage.Backend, StorageFile, StorageMongo); err != nil {
		return err
	}
	if c.Storage.Backend == StorageMongo && c.Storage.MongoURI == "" {
		return perrors.New(perrors.ErrCodeInvalidInput, "storage.mongo_uri is required for the mongo backend")
	}
	if err := oneOf("events.backend", c.Events.Backend, EventsMemory, EventsRedis); err != nil {
		return err
	}
	if err := oneOf("cache.backend", c.Cache.Backend, CacheFile, CacheRedis, CacheNone); err != nil {
		return err
	}
	if c.Events.History < 0 {
		return perrors.New(perrors.ErrCodeInvalidInput, "events.history must not be negative")
	}
	if c.Events.Retention.Duration < 0 {
		return perrors.New(perrors.ErrCodeInvalidInput, "events.retention must not be negative")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return perrors.Wrap(perrors.ErrCodeInvalidInput, err, "log.level %q", c.Log.Level)
	}
	return nil
}

// Level returns the configured log level, falling back to info.
func (c Config) Level() log.Level {
	if l, err := log.ParseLevel(c.Log.Level); err == nil {
		return l
	}
	return log.InfoLevel
}

// Write encodes c as TOML.
func (c Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

func oneOf(key, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return perrors.New(perrors.ErrCodeInvalidInput, "%s must be one of %s, got %q", key, strings.Join(allowed, ", "), v)
}
