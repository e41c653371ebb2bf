// Package cli implements the docwalk command-line interface.
//
// The commands query a document reference graph held in a manifest file,
// Redis or MongoDB:
//   - refs, referencing, descriptors, select: run a query and print the results
//   - list: list the documents a source knows
//   - render: draw the reference graph below a document as DOT or SVG
//   - browse: walk the reference graph interactively
//   - serve: expose queries over HTTP
//   - load: copy a manifest into Redis or MongoDB
//   - config: inspect the configuration
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/docwalk/pkg/buildinfo"
	"github.com/matzehuels/docwalk/pkg/cache"
	"github.com/matzehuels/docwalk/pkg/source"
)

const appName = "docwalk"

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

	configFile string
	sourceFlag string
	config     Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		config: defaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "docwalk queries CAD document reference graphs",
		Long:         `docwalk walks the references between CAD documents (assemblies, parts, drawings, presentations) and answers questions such as "which parts below this assembly can I edit right now?"`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(c.configFile)
			if err != nil {
				return err
			}
			c.config = cfg
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/docwalk/config.toml)")
	root.PersistentFlags().StringVarP(&c.sourceFlag, "source", "s", "", "document source: manifest path, redis:// or mongodb:// URL (env "+envSource+")")

	root.AddCommand(c.refsCommand())
	root.AddCommand(c.referencingCommand())
	root.AddCommand(c.descriptorsCommand())
	root.AddCommand(c.selectCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.loadCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Backend Factory
// =============================================================================

// sourceLocation returns the --source flag, or the configured source.
func (c *CLI) sourceLocation() string {
	if s := strings.TrimSpace(c.sourceFlag); s != "" {
		return s
	}
	return c.config.Source
}

func (c *CLI) sourceOptions() source.Options {
	return source.Options{
		RedisPrefix:     c.config.Redis.Prefix,
		MongoDatabase:   c.config.Mongo.Database,
		MongoCollection: c.config.Mongo.Collection,
		Logger:          c.Logger,
	}
}

// openBackend opens the configured document source.
func (c *CLI) openBackend(ctx context.Context) (source.Backend, error) {
	loc := c.sourceLocation()
	c.Logger.Debug("opening source", "location", loc, "kind", source.Kind(loc))
	return source.Open(ctx, loc, c.sourceOptions())
}

// backendName labels a source location in metrics.
func backendName(location string) string {
	if k := source.Kind(location); k != source.KindManifest {
		return k
	}
	return "memory"
}

// svgCache opens the rendered SVG cache, or a null cache when caching is
// off or the directory cannot be created.
func (c *CLI) svgCache(disabled bool) cache.Cache {
	if disabled || c.config.Cache.Disabled {
		return cache.NewNullCache()
	}
	dir := c.config.Cache.Dir
	if dir == "" {
		d, err := cache.DefaultDir()
		if err != nil {
			c.Logger.Debug("no cache dir", "err", err)
			return cache.NewNullCache()
		}
		dir = d
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("cache disabled", "err", err)
		return cache.NewNullCache()
	}
	return fc
}

// closeBackend closes b and logs a failure.
func (c *CLI) closeBackend(b source.Backend) {
	if err := b.Close(); err != nil {
		c.Logger.Warn("closing source", "err", err)
	}
}
