package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete olx configuration
type Config struct {
	Branch    BranchConfig    `mapstructure:"branch"`
	Templates TemplatesConfig `mapstructure:"templates"`
	Policies  PoliciesConfig  `mapstructure:"policies"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// BranchConfig controls the isolation branch created by new-run -b
type BranchConfig struct {
	// Prefix is the branch namespace; the isolation branch is <prefix>/<name> (default: "run")
	Prefix string `mapstructure:"prefix"`
	// Main is the main line named in the follow-up message (default: "master")
	Main string `mapstructure:"main"`
}

// TemplatesConfig controls where run templates come from
type TemplatesConfig struct {
	// Dir is a directory holding templates.yaml and the templates it lists.
	// Relative paths resolve against the course directory.
	// If empty, the built-in template set is used.
	Dir string `mapstructure:"dir"`
}

// PoliciesConfig controls the policy link created for each run
type PoliciesConfig struct {
	// Dir is the policies directory relative to the course directory (default: "policies")
	Dir string `mapstructure:"dir"`
}

// StorageConfig supplies the object storage settings used by the tempurl
// template helper. Only templates that call tempurl need these.
type StorageConfig struct {
	// Endpoint is the scheme and host, e.g. "https://swift.example.com"
	Endpoint string `mapstructure:"endpoint"`
	// Path is prefixed to every object path, e.g. "/v1/AUTH_course/assets"
	Path string `mapstructure:"path"`
	// SecretKey is the account's TempURL key that signs temporary URLs
	SecretKey string `mapstructure:"secret_key"`
}

// LoggingConfig controls diagnostic logging
type LoggingConfig struct {
	// Enabled controls whether diagnostic logging is written (default: false)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// File is the log file path. If empty, defaults to olx.log in the config directory.
	File string `mapstructure:"file"`
	// MaxSizeMB is the log file size in megabytes that triggers rotation (default: 5)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated log files to keep (default: 2)
	MaxBackups int `mapstructure:"max_backups"`
}

// ResolveFile returns the log file path, defaulting into ConfigDir.
// A leading ~ expands to the user's home directory.
func (l *LoggingConfig) ResolveFile() string {
	if l.File == "" {
		return filepath.Join(ConfigDir(), "olx.log")
	}
	return expandHome(l.File)
}

// ResolveTemplatesDir returns the absolute template directory for a course
// directory, or "" when the built-in template set should be used.
func (t *TemplatesConfig) ResolveTemplatesDir(courseDir string) string {
	if t.Dir == "" {
		return ""
	}
	path := expandHome(t.Dir)
	if !filepath.IsAbs(path) {
		path = filepath.Join(courseDir, path)
	}
	return path
}

// ResolveDir returns the absolute policies directory for a course directory.
func (p *PoliciesConfig) ResolveDir(courseDir string) string {
	path := expandHome(p.Dir)
	if !filepath.IsAbs(path) {
		path = filepath.Join(courseDir, path)
	}
	return path
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Branch: BranchConfig{
			Prefix: "run",
			Main:   "master",
		},
		Templates: TemplatesConfig{
			Dir: "", // Empty means use the built-in templates
		},
		Policies: PoliciesConfig{
			Dir: "policies",
		},
		Logging: LoggingConfig{
			Enabled:    false,
			Level:      "info",
			File:       "",
			MaxSizeMB:  5,
			MaxBackups: 2,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Branch defaults
	viper.SetDefault("branch.prefix", defaults.Branch.Prefix)
	viper.SetDefault("branch.main", defaults.Branch.Main)

	// Template and policy defaults
	viper.SetDefault("templates.dir", defaults.Templates.Dir)
	viper.SetDefault("policies.dir", defaults.Policies.Dir)

	// Storage has no defaults, but the keys must be known for Unmarshal to
	// pick up environment variables.
	viper.SetDefault("storage.endpoint", "")
	viper.SetDefault("storage.path", "")
	viper.SetDefault("storage.secret_key", "")

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.file", defaults.Logging.File)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// BindLegacyEnv binds the environment variables understood by earlier
// releases of the course tooling as fallbacks for the storage settings.
func BindLegacyEnv() {
	_ = viper.BindEnv("storage.endpoint", "OLX_STORAGE_ENDPOINT", "SWIFT_ENDPOINT")
	_ = viper.BindEnv("storage.path", "OLX_STORAGE_PATH", "SWIFT_PATH")
	_ = viper.BindEnv("storage.secret_key", "OLX_STORAGE_SECRET_KEY", "SWIFT_TEMPURL_KEY")
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "olx")
	}
	// Fall back to ~/.config/olx
	home, err := os.UserHomeDir()
	if err != nil {
		return ".olx"
	}
	return filepath.Join(home, ".config", "olx")
}

// ConfigFile returns the path to the user config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LocalConfigName is the per-course config file looked up in the course directory
const LocalConfigName = ".olx"
