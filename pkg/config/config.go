// Package config loads the launcher configuration from config.toml.
//
// Every field has a default, so a missing file is not an error. Values set in
// the file override the defaults; command-line flags override the file.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/craftlaunch/pkg/acquire"
	"github.com/matzehuels/craftlaunch/pkg/cache"
	errs "github.com/matzehuels/craftlaunch/pkg/errors"
	"github.com/matzehuels/craftlaunch/pkg/history"
	"github.com/matzehuels/craftlaunch/pkg/layout"
	"github.com/matzehuels/craftlaunch/pkg/manifest"
	"github.com/matzehuels/craftlaunch/pkg/platform"
	"github.com/matzehuels/craftlaunch/pkg/resolve"
	"github.com/matzehuels/craftlaunch/pkg/supervise"
)

// FileName is the configuration file name inside the base directory.
const FileName = "config.toml"

// Backend names.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

// Config is the launcher configuration.
type Config struct {
	BaseDir      string            `toml:"base_dir"`
	ManifestURL  string            `toml:"manifest_url"`
	ResourcesURL string            `toml:"resources_url"`
	Workers      int               `toml:"workers"`
	JavaPath     string            `toml:"java_path"`
	Supervise    supervise.Options `toml:"supervise"`
	Cache        CacheConfig       `toml:"cache"`
	History      HistoryConfig     `toml:"history"`
	Server       ServerConfig      `toml:"server"`
}

// CacheConfig selects where version metadata is cached.
type CacheConfig struct {
	Backend       string        `toml:"backend"`
	ManifestTTL   time.Duration `toml:"manifest_ttl"`
	Prefix        string        `toml:"prefix"`
	RedisAddr     string        `toml:"redis_addr"`
	RedisPassword string        `toml:"redis_password"`
	RedisDB       int           `toml:"redis_db"`
}

// HistoryConfig selects where launch attempts are recorded.
type HistoryConfig struct {
	Backend         string `toml:"backend"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// ServerConfig configures the local control API.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BaseDir:      platform.Current().DefaultBaseDir(),
		ManifestURL:  manifest.DefaultManifestURL,
		ResourcesURL: resolve.DefaultResourcesURL,
		Workers:      acquire.DefaultWorkers,
		Supervise:    supervise.DefaultOptions(),
		Cache: CacheConfig{
			Backend:     BackendFile,
			ManifestTTL: cache.TTLManifest,
		},
		History: HistoryConfig{
			Backend:         BackendFile,
			MongoDatabase:   "craftlaunch",
			MongoCollection: "launches",
		},
		Server: ServerConfig{Addr: "127.0.0.1:25580"},
	}
}

// DefaultPath returns the config file in the platform's default base dir.
func DefaultPath() string {
	return filepath.Join(platform.Current().DefaultBaseDir(), FileName)
}

// Load decodes the file at path over Default. A missing file yields the
// defaults. Unknown keys are rejected so typos do not pass silently.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, errs.New(errs.ErrCodeInvalidConfig, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first invalid value.
func (c Config) Validate() error {
	bad := func(format string, args ...any) error {
		return errs.New(errs.ErrCodeInvalidConfig, format, args...)
	}
	switch {
	case c.BaseDir == "":
		return bad("base_dir must not be empty")
	case c.Workers < 1:
		return bad("workers must be at least 1, got %d", c.Workers)
	case c.Supervise.ObserveSteps < 1:
		return bad("supervise.observe_steps must be at least 1")
	case c.Supervise.StepInterval <= 0:
		return bad("supervise.step_interval must be positive")
	case c.Supervise.CleanExitSteps < 0 || c.Supervise.CleanExitSteps > c.Supervise.ObserveSteps:
		return bad("supervise.clean_exit_steps must be between 0 and observe_steps")
	case c.Supervise.StderrLines < 1:
		return bad("supervise.stderr_lines must be at least 1")
	}

	if !slices.Contains([]string{BackendFile, BackendRedis, BackendNone}, c.Cache.Backend) {
		return bad("cache.backend must be file, redis or none, got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisAddr == "" {
		return bad("cache.redis_addr is required for the redis backend")
	}
	if !slices.Contains([]string{BackendFile, BackendMongo, BackendNone}, c.History.Backend) {
		return bad("history.backend must be file, mongo or none, got %q", c.History.Backend)
	}
	if c.History.Backend == BackendMongo && c.History.MongoURI == "" {
		return bad("history.mongo_uri is required for the mongo backend")
	}
	return nil
}

// Layout returns the on-disk layout rooted at BaseDir.
func (c Config) Layout() layout.Layout { return layout.New(c.BaseDir) }

// OpenCache opens the configured metadata cache and its key layout.
func (c Config) OpenCache(ctx context.Context) (cache.Cache, cache.Keyer, error) {
	var keyer cache.Keyer = cache.NewDefaultKeyer()
	if c.Cache.Prefix != "" {
		keyer = cache.NewScopedKeyer(keyer, c.Cache.Prefix)
	}
	switch c.Cache.Backend {
	case BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.Cache.RedisAddr,
			Password: c.Cache.RedisPassword,
			DB:       c.Cache.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		return rc, keyer, nil
	case BackendNone:
		return cache.NewNullCache(), keyer, nil
	default:
		fc, err := cache.NewFileCache(c.Layout().Cache())
		if err != nil {
			return nil, nil, fmt.Errorf("open cache: %w", err)
		}
		return fc, keyer, nil
	}
}

// OpenHistory opens the configured launch history store.
func (c Config) OpenHistory(ctx context.Context) (history.Store, error) {
	switch c.History.Backend {
	case BackendMongo:
		return history.NewMongoStore(ctx, history.MongoConfig{
			URI:        c.History.MongoURI,
			Database:   c.History.MongoDatabase,
			Collection: c.History.MongoCollection,
		})
	case BackendNone:
		return history.NewNullStore(), nil
	default:
		return history.NewFileStore(c.Layout().History()), nil
	}
}
