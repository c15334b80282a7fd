// Package cmd implements the olx command line.
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/olx/internal/config"
	"github.com/Iron-Ham/olx/internal/console"
	"github.com/Iron-Ham/olx/internal/errors"
	"github.com/Iron-Ham/olx/internal/logging"
)

// app holds the state shared by the commands of one invocation.
type app struct {
	configFile string
	directory  string

	console *console.Console
	cfg     *config.Config
	// logger carries the invocation id; root owns the log file.
	logger *logging.Logger
	root   *logging.Logger
}

func newApp(stderr io.Writer) *app {
	nop := logging.NopLogger()
	return &app{
		console: console.New(stderr),
		logger:  nop,
		root:    nop,
	}
}

func (a *app) close() {
	_ = a.root.Close()
}

func (a *app) mainBranch() string {
	if a.cfg != nil {
		return a.cfg.Branch.Main
	}
	return config.Default().Branch.Main
}

func newRootCmd(a *app, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   CanonicalName,
		Short: "Course run scaffolding for OLX course repositories",
		Long: `olx scaffolds new runs of an OLX course: it renders the run's course
files from templates, links the run's policies to the shared baseline, and
can isolate and commit the result on its own git branch.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return errors.NewUsageError(fmt.Sprintf("unknown command %q for %q\nRun '%s --help' for usage.",
					args[0], cmd.CommandPath(), cmd.CommandPath()))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errors.NewUsageError("a command is required")
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.SetOut(stderr)
	rootCmd.SetErr(stderr)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(cmd, err)
	})

	// Global flags
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (merged over $XDG_CONFIG_HOME/olx/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&a.directory, "directory", "C", ".", "course directory")

	rootCmd.AddCommand(newNewRunCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	return rootCmd
}

// usageArgs wraps a cobra argument validator so its failures are usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError(cmd, err)
		}
		return nil
	}
}

func usageError(cmd *cobra.Command, err error) error {
	return errors.NewUsageError(fmt.Sprintf("Error: %v\nRun '%s --help' for usage.", err, cmd.CommandPath())).
		WithCause(err)
}

// Execute runs the command line given by argv, argv[0] included, writing all
// output to stderr. Errors are returned, not printed.
func Execute(argv []string, stderr io.Writer) error {
	a := newApp(stderr)
	defer a.close()
	return execute(a, argv, stderr)
}

func execute(a *app, argv []string, stderr io.Writer) error {
	rootCmd := newRootCmd(a, stderr)
	rootCmd.SetArgs(Normalize(argv).Argv())
	return rootCmd.Execute()
}

// Main runs the command line, reports any failure on stderr, and returns the
// process exit status.
func Main(argv []string, stderr io.Writer) int {
	a := newApp(stderr)
	defer a.close()

	err := execute(a, argv, stderr)
	if err == nil {
		return errors.ExitOK
	}

	a.logger.Error("invocation failed", "error", err, "exit_code", errors.ExitCode(err))
	a.console.Error(err)
	var stageErr *errors.StageError
	if errors.As(err, &stageErr) && stageErr.Branch != "" {
		a.console.BranchLeftBehind(stageErr.Branch, a.mainBranch())
	}
	return errors.ExitCode(err)
}

// initConfig loads configuration from, lowest to highest precedence: defaults,
// the user config file, the course's .olx.yaml, --config, a course .env file,
// and OLX_* environment variables.
func (a *app) initConfig() error {
	dir, err := filepath.Abs(a.directory)
	if err != nil {
		return errors.Wrap(err, "failed to resolve course directory")
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return errors.NewUsageError(fmt.Sprintf("course directory %s does not exist", a.directory))
	}
	a.directory = dir

	// Start from a clean slate so repeated invocations in one process don't
	// see each other's settings.
	viper.Reset()
	config.SetDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(config.ConfigDir())
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.Wrap(err, "failed to read user config")
		}
	}

	local := filepath.Join(dir, config.LocalConfigName+".yaml")
	if _, err := os.Stat(local); err == nil {
		if err := mergeConfigFile(local); err != nil {
			return err
		}
	}
	if a.configFile != "" {
		if err := mergeConfigFile(a.configFile); err != nil {
			return err
		}
	}

	// .env never overrides variables that are already set
	envFile := filepath.Join(dir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return errors.Wrapf(err, "failed to load %s", envFile)
		}
	}

	viper.SetEnvPrefix("OLX")
	// Replace dots with underscores for nested keys in env vars
	// e.g., OLX_BRANCH_PREFIX for branch.prefix
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	config.BindLegacyEnv()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	a.cfg = cfg

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		logger, err = logging.NewLogger(cfg.Logging.ResolveFile(), cfg.Logging.Level, logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		})
		if err != nil {
			return errors.Wrap(err, "failed to open log file")
		}
	}
	a.root = logger
	a.logger = logger.WithInvocation(uuid.NewString())
	a.logger.Debug("configuration loaded", "course_dir", dir, "config_file", viper.ConfigFileUsed())
	return nil
}

func mergeConfigFile(path string) error {
	viper.SetConfigFile(path)
	if err := viper.MergeInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read config %s", path)
	}
	return nil
}
