package cli

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	errs "github.com/matzehuels/docwalk/pkg/errors"
)

const (
	// envSource overrides the configured document source.
	envSource = "DOCWALK_SOURCE"

	defaultAddr = ":8080"
)

// Config is the on-disk CLI configuration.
//
//	source = "plant.toml"
//	non_native = ["foreign-model", "geometry-exchange", "unknown"]
//
//	[redis]
//	prefix = "dw"
//
//	[mongo]
//	database = "docwalk"
//	collection = "documents"
//
//	[serve]
//	addr = ":8080"
//
//	[cache]
//	dir = "~/.cache/docwalk"
//	disabled = false
type Config struct {
	Source    string      `toml:"source"`
	NonNative []string    `toml:"non_native"`
	Redis     RedisConfig `toml:"redis"`
	Mongo     MongoConfig `toml:"mongo"`
	Serve     ServeConfig `toml:"serve"`
	Cache     CacheConfig `toml:"cache"`
}

type RedisConfig struct {
	Prefix string `toml:"prefix"`
}

type MongoConfig struct {
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

type ServeConfig struct {
	Addr string `toml:"addr"`
}

// CacheConfig locates the rendered SVG cache. An empty Dir means
// $XDG_CACHE_HOME/docwalk.
type CacheConfig struct {
	Dir      string `toml:"dir"`
	Disabled bool   `toml:"disabled"`
}

func defaultConfig() Config {
	return Config{Serve: ServeConfig{Addr: defaultAddr}}
}

// configPath returns the config file location using the XDG standard
// (~/.config/docwalk/config.toml).
func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// loadConfig reads the config at path. An empty path means the default
// location, which may be absent; an explicit path must exist. The
// DOCWALK_SOURCE environment variable overrides the file's source.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	explicit := path != ""
	if !explicit {
		p, err := configPath()
		if err != nil {
			applyEnv(&cfg)
			return cfg, nil
		}
		path = p
	}

	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case os.IsNotExist(err) && !explicit:
	case os.IsNotExist(err):
		return cfg, errs.Wrap(errs.ErrCodeFileNotFound, err, "config file %s", path)
	case err != nil:
		return cfg, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse config %s", path)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return cfg, errs.New(errs.ErrCodeInvalidInput, "config %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(envSource)); v != "" {
		cfg.Source = v
	}
}

// configCommand creates the config command group.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the docwalk configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configFile
			if path == "" {
				p, err := configPath()
				if err != nil {
					return err
				}
				path = p
			}
			_, err := cmd.OutOrStdout().Write([]byte(path + "\n"))
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config
			cfg.Source = c.sourceLocation()
			return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
		},
	})

	return cmd
}
