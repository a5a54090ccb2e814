package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/craftlaunch/pkg/cache"
	errs "github.com/matzehuels/craftlaunch/pkg/errors"
	"github.com/matzehuels/craftlaunch/pkg/history"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.Workers != def.Workers || cfg.ManifestURL != def.ManifestURL {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
	if err := def.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
base_dir = "/srv/mc"
workers = 4
java_path = "/opt/jdk17/bin/java"

[supervise]
observe_steps = 3
step_interval = "500ms"
clean_exit_steps = 1

[cache]
backend = "none"
manifest_ttl = "10m"

[history]
backend = "none"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseDir != "/srv/mc" || cfg.Workers != 4 || cfg.JavaPath != "/opt/jdk17/bin/java" {
		t.Errorf("top level = %+v", cfg)
	}
	if cfg.Supervise.ObserveSteps != 3 || cfg.Supervise.StepInterval != 500*time.Millisecond || cfg.Supervise.CleanExitSteps != 1 {
		t.Errorf("Supervise = %+v", cfg.Supervise)
	}
	if cfg.Supervise.StderrLines != 10 {
		t.Errorf("unset stderr_lines should keep default, got %d", cfg.Supervise.StderrLines)
	}
	if cfg.Cache.ManifestTTL != 10*time.Minute {
		t.Errorf("ManifestTTL = %v", cfg.Cache.ManifestTTL)
	}
	if cfg.Layout().Base != "/srv/mc" {
		t.Errorf("Layout().Base = %q", cfg.Layout().Base)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "workers = ", "parse"},
		{"unknown key", "wrokers = 3", "wrokers"},
		{"zero workers", "workers = 0", "workers"},
		{"bad cache backend", "[cache]\nbackend = \"memcached\"", "cache.backend"},
		{"redis without addr", "[cache]\nbackend = \"redis\"", "redis_addr"},
		{"mongo without uri", "[history]\nbackend = \"mongo\"", "mongo_uri"},
		{"clean exit beyond window", "[supervise]\nobserve_steps = 2\nclean_exit_steps = 3", "clean_exit_steps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("Load succeeded")
			}
			if !errs.Is(err, errs.ErrCodeInvalidConfig) {
				t.Errorf("code = %v, want %v", errs.GetCode(err), errs.ErrCodeInvalidConfig)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()
	cfg := Default()
	cfg.BaseDir = t.TempDir()

	c, keyer, err := cfg.OpenCache(ctx)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer c.Close()
	if _, ok := c.(*cache.FileCache); !ok {
		t.Errorf("cache = %T, want *cache.FileCache", c)
	}
	if keyer.ManifestKey("u") != cache.NewDefaultKeyer().ManifestKey("u") {
		t.Error("unscoped keyer should match the default")
	}

	cfg.Cache.Backend = BackendNone
	cfg.Cache.Prefix = "lan"
	c, keyer, err = cfg.OpenCache(ctx)
	if err != nil {
		t.Fatalf("OpenCache(none): %v", err)
	}
	if !strings.HasPrefix(keyer.ManifestKey("u"), "lan") {
		t.Errorf("scoped key = %q", keyer.ManifestKey("u"))
	}
	_ = c.Close()

	h, err := cfg.OpenHistory(ctx)
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	if fs, ok := h.(*history.FileStore); !ok || fs.Path() != cfg.Layout().History() {
		t.Errorf("history = %T", h)
	}
}
