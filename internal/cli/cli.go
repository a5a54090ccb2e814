// Package cli implements the craftlaunch command-line interface.
package cli

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/craftlaunch/pkg/acquire"
	"github.com/matzehuels/craftlaunch/pkg/buildinfo"
	"github.com/matzehuels/craftlaunch/pkg/cache"
	"github.com/matzehuels/craftlaunch/pkg/config"
	"github.com/matzehuels/craftlaunch/pkg/fetch"
	"github.com/matzehuels/craftlaunch/pkg/history"
	"github.com/matzehuels/craftlaunch/pkg/jvm"
	"github.com/matzehuels/craftlaunch/pkg/launch"
	"github.com/matzehuels/craftlaunch/pkg/layout"
	"github.com/matzehuels/craftlaunch/pkg/manifest"
	"github.com/matzehuels/craftlaunch/pkg/observability"
	"github.com/matzehuels/craftlaunch/pkg/profile"
	"github.com/matzehuels/craftlaunch/pkg/resolve"
	"github.com/matzehuels/craftlaunch/pkg/supervise"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "craftlaunch"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	baseDir    string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "craftlaunch installs and launches Minecraft",
		Long: `craftlaunch resolves a Minecraft version into its libraries, natives and assets,
downloads what is missing, picks a compatible Java runtime and starts the game,
watching the first seconds of the process for startup failures.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			observability.NewLogHooks(c.Logger).Register()
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default <base-dir>/config.toml)")
	root.PersistentFlags().StringVar(&c.baseDir, "base-dir", "", "installation directory (overrides base_dir)")

	root.AddCommand(c.launchCommand())
	root.AddCommand(c.versionsCommand())
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.javaCommand())
	root.AddCommand(c.profileCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig reads the config file. --base-dir picks both the default config
// location and the installation directory.
func (c *CLI) loadConfig() (config.Config, error) {
	path := c.configPath
	if path == "" {
		if c.baseDir != "" {
			path = layout.New(c.baseDir).Config()
		} else {
			path = config.DefaultPath()
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if c.baseDir != "" {
		cfg.BaseDir = c.baseDir
	}
	c.Logger.Debug("loaded config", "path", path, "base", cfg.BaseDir)
	return cfg, nil
}

// openProfiles opens the profile store of the installation.
func (c *CLI) openProfiles() (*profile.Store, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	return profile.Open(cfg.Layout().Profiles())
}

// =============================================================================
// Services
// =============================================================================

// services bundles the collaborators of commands that talk to upstream.
type services struct {
	cfg     config.Config
	cache   cache.Cache
	catalog *manifest.Catalog
	history history.Store
	logger  *log.Logger
}

// openServices loads the config and opens the metadata cache and catalog.
// refresh bypasses cached metadata.
func (c *CLI) openServices(ctx context.Context, refresh bool) (*services, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	store, keyer, err := cfg.OpenCache(ctx)
	if err != nil {
		return nil, err
	}
	catalog := manifest.NewCatalog(cfg.ManifestURL, store,
		manifest.WithKeyer(keyer),
		manifest.WithRefresh(refresh),
		manifest.WithManifestTTL(cfg.Cache.ManifestTTL),
		manifest.WithLogger(c.Logger),
	)
	return &services{cfg: cfg, cache: store, catalog: catalog, logger: c.Logger}, nil
}

// openHistory opens the configured history store on first use.
func (s *services) openHistory(ctx context.Context) (history.Store, error) {
	if s.history != nil {
		return s.history, nil
	}
	h, err := s.cfg.OpenHistory(ctx)
	if err != nil {
		return nil, err
	}
	s.history = h
	return h, nil
}

// Close releases the cache and history backends.
func (s *services) Close() error {
	var errList []error
	if s.history != nil {
		errList = append(errList, s.history.Close())
	}
	errList = append(errList, s.cache.Close())
	return errors.Join(errList...)
}

func (s *services) layout() layout.Layout { return s.cfg.Layout() }

func (s *services) runtimes() *jvm.Matcher {
	return jvm.NewMatcher(jvm.WithLogger(s.logger))
}

func (s *services) resolver(f *fetch.Fetcher, opts ...resolve.Option) *resolve.Resolver {
	opts = append([]resolve.Option{
		resolve.WithResourcesURL(s.cfg.ResourcesURL),
		resolve.WithLogger(s.logger),
	}, opts...)
	return resolve.NewResolver(s.layout(), f, opts...)
}

// launcher wires a launcher from the config. A nil stdout discards the
// game's standard output.
func (s *services) launcher(ctx context.Context, stdout io.Writer) (*launch.Launcher, error) {
	h, err := s.openHistory(ctx)
	if err != nil {
		return nil, err
	}
	f := fetch.New(fetch.WithLogger(s.logger))
	runnerOpts := []supervise.Option{
		supervise.WithOptions(s.cfg.Supervise),
		supervise.WithLogger(s.logger),
	}
	if stdout != nil {
		runnerOpts = append(runnerOpts, supervise.WithStdout(stdout))
	}
	return launch.New(s.layout(), s.catalog,
		launch.WithResolver(s.resolver(f)),
		launch.WithAcquirer(acquire.NewScheduler(f,
			acquire.WithWorkers(s.cfg.Workers),
			acquire.WithLogger(s.logger),
		)),
		launch.WithRuntimeFinder(s.runtimes()),
		launch.WithRunner(supervise.New(runnerOpts...)),
		launch.WithHistory(h),
		launch.WithLogger(s.logger),
	), nil
}
