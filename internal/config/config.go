// Package config loads hornet configuration from TOML, with optional
// per-repository YAML overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	Engine        EngineConfig        `toml:"engine"`
	Interpreters  map[string]string   `toml:"interpreters"`
	Watch         WatchConfig         `toml:"watch"`
	Notifications NotificationsConfig `toml:"notifications"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	StoreRoot string `toml:"store_root"`
	Verbose   bool   `toml:"verbose"`
}

// EngineConfig holds script execution settings
type EngineConfig struct {
	MaxWorkers        int `toml:"max_workers"`
	ScriptTimeoutSecs int `toml:"script_timeout_secs"`
}

// WatchConfig holds watch mode settings
type WatchConfig struct {
	DebounceMillis int    `toml:"debounce_millis"`
	Schedule       string `toml:"schedule"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop bool   `toml:"desktop"`
	Webhook string `toml:"webhook"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			StoreRoot: filepath.Join(home, ".hornet"),
		},
		Engine: EngineConfig{
			MaxWorkers:        4,
			ScriptTimeoutSecs: 60,
		},
		Interpreters: map[string]string{
			".py": "python3",
			".js": "node",
		},
		Watch: WatchConfig{
			DebounceMillis: 500,
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.General.StoreRoot = ExpandPath(cfg.General.StoreRoot)
	if cfg.Engine.MaxWorkers < 1 {
		cfg.Engine.MaxWorkers = 1
	}
	if cfg.Engine.ScriptTimeoutSecs < 1 {
		cfg.Engine.ScriptTimeoutSecs = 1
	}
	return cfg, nil
}

// ScriptTimeout returns the per-script timeout as a duration.
func (c *Config) ScriptTimeout() time.Duration {
	return time.Duration(c.Engine.ScriptTimeoutSecs) * time.Second
}

// RepoOverrides are per-repository settings read from a .hornet.yaml file
// at the target repository root. A nil receiver behaves like an empty file.
type RepoOverrides struct {
	Ignore       []string          `yaml:"ignore"`
	Interpreters map[string]string `yaml:"interpreters"`
	MaxWorkers   int               `yaml:"max_workers"`
	TimeoutSecs  int               `yaml:"timeout_secs"`
}

// LoadRepoOverrides reads .hornet.yaml from the repository root. A missing
// file is not an error and yields nil.
func LoadRepoOverrides(repoRoot string) (*RepoOverrides, error) {
	path := filepath.Join(repoRoot, ".hornet.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var o RepoOverrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &o, nil
}

// IgnorePatterns returns the gitignore-style patterns to exclude from scans.
func (o *RepoOverrides) IgnorePatterns() []string {
	if o == nil {
		return nil
	}
	return o.Ignore
}

// Apply overlays the per-repo settings onto cfg, returning a copy. Zero
// values leave the base configuration untouched.
func (o *RepoOverrides) Apply(cfg *Config) *Config {
	out := *cfg
	if o == nil {
		return &out
	}
	if o.MaxWorkers > 0 {
		out.Engine.MaxWorkers = o.MaxWorkers
	}
	if o.TimeoutSecs > 0 {
		out.Engine.ScriptTimeoutSecs = o.TimeoutSecs
	}
	if len(o.Interpreters) > 0 {
		merged := make(map[string]string, len(cfg.Interpreters)+len(o.Interpreters))
		for ext, cmd := range cfg.Interpreters {
			merged[ext] = cmd
		}
		for ext, cmd := range o.Interpreters {
			merged[ext] = cmd
		}
		out.Interpreters = merged
	}
	return &out
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "hornet", "config.toml")
}
