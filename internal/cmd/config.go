package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/olx/internal/config"
	"github.com/Iron-Ham/olx/internal/errors"
)

// settableKeys maps each key accepted by "config set" to its value type.
var settableKeys = map[string]string{
	"branch.prefix":       "string",
	"branch.main":         "string",
	"templates.dir":       "string",
	"policies.dir":        "string",
	"storage.endpoint":    "string",
	"storage.path":        "string",
	"storage.secret_key":  "string",
	"logging.enabled":     "bool",
	"logging.level":       "string",
	"logging.file":        "string",
	"logging.max_size_mb": "int",
	"logging.max_backups": "int",
}

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "View or modify olx configuration",
		Long: `View or modify olx configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: a.runConfigShow,
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  usageArgs(cobra.NoArgs),
		RunE:  a.runConfigShow,
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  olx config set branch.main main
  olx config set templates.dir templates
  olx config set logging.enabled true

Valid keys:
  branch.prefix        - Namespace of run branches (run/NAME)
  branch.main          - Main line suggested after a run
  templates.dir        - Template set directory (empty: built-in)
  policies.dir         - Policies directory
  storage.endpoint     - Object storage endpoint for tempurl
  storage.path         - Object storage path prefix for tempurl
  storage.secret_key   - Swift TempURL key that signs tempurl links
  logging.enabled      - Write a diagnostic log (true/false)
  logging.level        - Options: debug, info, warn, error
  logging.file         - Log file path
  logging.max_size_mb  - Log size that triggers rotation
  logging.max_backups  - Rotated log files to keep`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: a.runConfigSet,
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a default config file",
		Long:  `Create a default config file at ~/.config/olx/config.yaml with all available options.`,
		Args:  usageArgs(cobra.NoArgs),
		RunE:  a.runConfigInit,
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the config file path",
		Args:  usageArgs(cobra.NoArgs),
		RunE:  a.runConfigPath,
	})
	return configCmd
}

func (a *app) runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintf(out, "Course directory: %s\n", a.directory)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "branch:")
	fmt.Fprintf(out, "  prefix: %s\n", cfg.Branch.Prefix)
	fmt.Fprintf(out, "  main: %s\n", cfg.Branch.Main)

	fmt.Fprintln(out, "templates:")
	fmt.Fprintf(out, "  dir: %s\n", orDefault(cfg.Templates.Dir, "(built-in)"))

	fmt.Fprintln(out, "policies:")
	fmt.Fprintf(out, "  dir: %s\n", cfg.Policies.Dir)

	fmt.Fprintln(out, "storage:")
	fmt.Fprintf(out, "  endpoint: %s\n", orDefault(cfg.Storage.Endpoint, "(unset)"))
	fmt.Fprintf(out, "  path: %s\n", orDefault(cfg.Storage.Path, "(unset)"))
	fmt.Fprintf(out, "  secret_key: %s\n", redact(cfg.Storage.SecretKey))

	fmt.Fprintln(out, "logging:")
	fmt.Fprintf(out, "  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  file: %s\n", cfg.Logging.ResolveFile())
	fmt.Fprintf(out, "  max_size_mb: %d\n", cfg.Logging.MaxSizeMB)
	fmt.Fprintf(out, "  max_backups: %d\n", cfg.Logging.MaxBackups)

	return nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func redact(secret string) string {
	if secret == "" {
		return "(unset)"
	}
	return "********"
}

func (a *app) runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	keyType, ok := settableKeys[key]
	if !ok {
		return errors.NewUsageError(fmt.Sprintf("unknown configuration key: %s\nRun 'olx config set --help' to see valid keys", key))
	}

	typedValue, err := parseValue(key, keyType, value)
	if err != nil {
		return errors.NewUsageError(err.Error())
	}

	// Validate the effective configuration with the new value applied
	check := viper.New()
	if err := check.MergeConfigMap(viper.AllSettings()); err != nil {
		return errors.Wrap(err, "failed to prepare configuration")
	}
	check.Set(key, typedValue)
	var cfg config.Config
	if err := check.Unmarshal(&cfg); err != nil {
		return errors.Wrap(err, "failed to decode configuration")
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return errors.NewUsageError(config.ValidationErrors(errs).Error())
	}

	// Ensure config directory exists
	if err := os.MkdirAll(config.ConfigDir(), 0755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	// Only the user file's own settings are written back, never values that
	// came from the environment or the course directory.
	configFile := config.ConfigFile()
	file := viper.New()
	file.SetConfigFile(configFile)
	file.SetConfigType("yaml")
	if _, err := os.Stat(configFile); err == nil {
		if err := file.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read %s", configFile)
		}
	}
	file.Set(key, typedValue)
	if err := file.WriteConfigAs(configFile); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	out := cmd.OutOrStdout()
	if strings.HasSuffix(key, "secret_key") {
		fmt.Fprintf(out, "Set %s\n", key)
	} else {
		fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	}
	fmt.Fprintf(out, "Config saved to %s\n", configFile)

	return nil
}

func parseValue(key, keyType, value string) (any, error) {
	switch keyType {
	case "bool":
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return value == "true", nil
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return nil, fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		return intVal, nil
	default:
		return value, nil
	}
}

const defaultConfigContent = `# olx Configuration

# Isolation branches created by "olx new-run --create-branch"
branch:
  # Runs are created on <prefix>/<name>
  prefix: run
  # Main line suggested for switching back after a run
  main: master

# Template set used to render a run's course files.
# A directory containing templates.yaml; relative paths resolve against the
# course directory. Leave empty for the built-in set.
templates:
  dir: ""

# Directory holding the _base policy baseline and the per-run links
policies:
  dir: policies

# Object storage used by the tempurl template helper.
# SWIFT_ENDPOINT, SWIFT_PATH and SWIFT_TEMPURL_KEY are honored as fallbacks.
storage:
  endpoint: ""
  path: ""
  secret_key: ""

# Diagnostic logging (never written to the terminal)
logging:
  enabled: false
  # Options: debug, info, warn, error
  level: info
  # Defaults to olx.log in the config directory
  file: ""
  max_size_mb: 5
  max_backups: 2
`

func (a *app) runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'olx config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	if err := os.WriteFile(configFile, []byte(defaultConfigContent), 0644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize olx's behavior.")

	return nil
}

func (a *app) runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", config.ConfigFile())
	}

	fmt.Fprintln(out, "\nSearch paths, lowest precedence first:")
	fmt.Fprintf(out, "  1. %s\n", config.ConfigFile())
	fmt.Fprintf(out, "  2. %s\n", filepath.Join(a.directory, config.LocalConfigName+".yaml"))
	fmt.Fprintln(out, "  3. --config flag")
	fmt.Fprintf(out, "  4. %s (environment, never overriding)\n", filepath.Join(a.directory, ".env"))
	fmt.Fprintln(out, "\nEnvironment variables: OLX_* (e.g., OLX_BRANCH_PREFIX)")

	return nil
}
