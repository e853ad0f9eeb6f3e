// Package config resolves promptlib settings from flags, environment,
// project and user config files, and defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PROMPTLIB_MODE.
const EnvPrefix = "PROMPTLIB"

// Config holds all configuration for promptlib.
type Config struct {
	// Mode is the install mode, "reference" or "embedded".
	Mode string `mapstructure:"mode"`
	// Root is the workspace root. Empty means the current directory.
	Root string `mapstructure:"root"`
	// Source overrides the packaged asset tree with an on-disk directory.
	Source string `mapstructure:"source"`
	// Manifest overrides the asset tree's manifest.yaml.
	Manifest string `mapstructure:"manifest"`
	// LibraryPath overrides the library location referenced by settings.
	LibraryPath string `mapstructure:"library_path"`
	// Concurrency caps in-flight file operations; 0 means one per CPU.
	Concurrency int  `mapstructure:"concurrency"`
	DryRun      bool `mapstructure:"dry_run"`
	// GitRoot lifts Root to the enclosing git worktree.
	GitRoot bool `mapstructure:"git_root"`

	// Files lists the config files that were read, lowest precedence first.
	Files []string `mapstructure:"-"`
}

var defaultConfig = Config{
	Mode:        "reference",
	Concurrency: 0,
	DryRun:      false,
	GitRoot:     false,
}

// Keys are the recognised configuration keys. Flags with these names are
// bound automatically.
var Keys = []string{"mode", "root", "source", "manifest", "library_path", "concurrency", "dry_run", "git_root"}

// ProjectFiles are looked up, in order, in the workspace directory. The
// first one found is used.
var ProjectFiles = []string{".promptlib.yaml", ".promptlib.yml", ".promptlib.toml", ".promptlib.json"}

// LoadOptions tells Load where to look.
type LoadOptions struct {
	// Flags holds command flags to bind. A flag named "dry-run" binds to
	// dry_run; other flags bind by their name.
	Flags *pflag.FlagSet
	// WorkDir is searched for a project config file. Empty means the
	// directory named by INIT_CWD, or the current directory.
	WorkDir string
	// UserDir holds the user config file. Empty means
	// $XDG_CONFIG_HOME/promptlib.
	UserDir string
}

// Load builds the effective configuration.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	v.SetDefault("mode", defaultConfig.Mode)
	v.SetDefault("root", "")
	v.SetDefault("source", "")
	v.SetDefault("manifest", "")
	v.SetDefault("library_path", "")
	v.SetDefault("concurrency", defaultConfig.Concurrency)
	v.SetDefault("dry_run", defaultConfig.DryRun)
	v.SetDefault("git_root", defaultConfig.GitRoot)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// npm exports INIT_CWD as the directory the install was started from.
	if err := v.BindEnv("root", EnvPrefix+"_ROOT", "INIT_CWD"); err != nil {
		return nil, fmt.Errorf("failed to bind root env: %w", err)
	}

	if opts.Flags != nil {
		if err := bindFlags(v, opts.Flags); err != nil {
			return nil, err
		}
	}

	var files []string
	userDir := opts.UserDir
	if userDir == "" {
		userDir = UserConfigDir()
	}
	if f := firstExisting(userDir, []string{"config.yaml", "config.yml", "config.toml", "config.json"}); f != "" {
		v.SetConfigFile(f)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read user config %s: %w", f, err)
		}
		files = append(files, f)
	}

	workDir := opts.WorkDir
	if workDir == "" {
		workDir = DefaultWorkDir()
	}
	if f := firstExisting(workDir, ProjectFiles); f != "" {
		v.SetConfigFile(f)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read project config %s: %w", f, err)
		}
		files = append(files, f)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Files = files
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no command can work with.
func (c *Config) Validate() error {
	if c.Concurrency < 0 {
		return errors.New("concurrency must not be negative")
	}
	return nil
}

// UserConfigDir returns the directory holding the user config file.
func UserConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "promptlib")
}

// DefaultWorkDir returns INIT_CWD when set, else the current directory.
func DefaultWorkDir() string {
	if dir := os.Getenv("INIT_CWD"); dir != "" {
		return dir
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, key := range Keys {
		name := strings.ReplaceAll(key, "_", "-")
		f := flags.Lookup(name)
		if f == nil {
			f = flags.Lookup(key)
		}
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
		}
	}
	return nil
}

func firstExisting(dir string, names []string) string {
	for _, name := range names {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}
