// Package cli wires the queenbee cobra commands together and resolves the
// configuration every subcommand runs with.
package cli

import (
	"context"
	"fmt"
	"io"

	configcmd "github.com/AntoineDao/queenbee/internal/cli/config"
	dagcmd "github.com/AntoineDao/queenbee/internal/cli/dag"
	recipecmd "github.com/AntoineDao/queenbee/internal/cli/recipe"
	"github.com/AntoineDao/queenbee/internal/cli/shared"
	"github.com/AntoineDao/queenbee/internal/config"
	"github.com/AntoineDao/queenbee/internal/ctxlog"
	clierrors "github.com/AntoineDao/queenbee/internal/errors"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "queenbee",
	Short: "Validate queenbee DAG workflows and recipes",
	Long: `queenbee statically validates declarative DAG workflow documents.

A DAG document declares inputs, outputs and tasks. Tasks bind arguments to
DAG inputs, to outputs of other tasks or to loop items. queenbee checks that
every reference resolves, that dependencies exist and form no cycle and, when
template directories are configured, that each task satisfies the IO contract
of the template it invokes. Nothing is ever executed.

Configuration precedence (highest to lowest):
  1. Command-line flags
  2. Environment variables (QUEENBEE_*)
  3. Project config (.queenbee/config.yml)
  4. User config (~/.config/queenbee/config.yml)
  5. Built-in defaults`,
	Example: `  # Validate DAG documents
  queenbee dag validate daylight.yaml annual.yaml

  # Validate against function templates and require explicit dependencies
  queenbee dag validate --templates ./templates --strict daylight.yaml

  # Show the task levels of a DAG
  queenbee dag visualize daylight.yaml

  # Validate a recipe
  queenbee recipe validate recipe.yaml`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Project config file (default .queenbee/config.yml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides log_level)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringSlice("templates", nil, "Template directories (overrides template_dirs)")
	rootCmd.PersistentFlags().Int("max-parallel", 0, "Documents processed at once (overrides max_parallel)")

	rootCmd.AddGroup(
		&cobra.Group{ID: shared.GroupValidation, Title: "Validation:"},
		&cobra.Group{ID: shared.GroupConfiguration, Title: "Configuration:"},
	)

	dagcmd.DagCmd.GroupID = shared.GroupValidation
	recipecmd.RecipeCmd.GroupID = shared.GroupValidation
	configcmd.ConfigCmd.GroupID = shared.GroupConfiguration
	versionCmd.GroupID = shared.GroupConfiguration

	rootCmd.AddCommand(dagcmd.DagCmd, recipecmd.RecipeCmd, configcmd.ConfigCmd, versionCmd)
}

// setup loads the configuration, applies flag overrides and installs the
// logger and settings on the command context.
func setup(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	configPath, _ := flags.GetString("config")
	cfg, err := config.LoadWithOptions(config.LoadOptions{
		ProjectConfigPath: configPath,
		WarningWriter:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return clierrors.ConfigLoadFailed(err)
	}

	if flags.Changed("log-level") {
		level, _ := flags.GetString("log-level")
		switch level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			return clierrors.UnsupportedFormat("--log-level", level, "debug", "info", "warn", "error")
		}
		cfg.Sources["log_level"] = config.SourceFlag
	}
	if flags.Changed("no-color") {
		cfg.NoColor, _ = flags.GetBool("no-color")
		cfg.Sources["no_color"] = config.SourceFlag
	}
	if flags.Changed("templates") {
		cfg.TemplateDirs, _ = flags.GetStringSlice("templates")
		cfg.Sources["template_dirs"] = config.SourceFlag
	}
	if flags.Changed("max-parallel") {
		n, _ := flags.GetInt("max-parallel")
		if n < 1 || n > 64 {
			return clierrors.NewArgumentError(
				fmt.Sprintf("--max-parallel must be between 1 and 64, got %d", n),
			)
		}
		cfg.MaxParallel = n
		cfg.Sources["max_parallel"] = config.SourceFlag
	}

	if cfg.NoColor {
		color.NoColor = true
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := ctxlog.New(cmd.ErrOrStderr(), cfg.LogLevel)
	ctx = ctxlog.WithLogger(ctx, logger)
	ctx = shared.WithSettings(ctx, &shared.Settings{Config: cfg})
	cmd.SetContext(ctx)

	logger.Debug("Configuration loaded.", "template_dirs", cfg.TemplateDirs, "max_parallel", cfg.MaxParallel, "strict", cfg.StrictDependencies)
	return nil
}

// ExecuteContext runs the root command and prints any error to stderr.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		printError(rootCmd.ErrOrStderr(), err)
	}
	return err
}

func printError(w io.Writer, err error) {
	if cliErr := clierrors.AsCLIError(err); cliErr != nil {
		clierrors.FprintError(w, cliErr)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	fmt.Fprintf(w, "Run '%s --help' for usage.\n", rootCmd.CommandPath())
}
