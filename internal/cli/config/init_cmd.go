package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/AntoineDao/queenbee/internal/config"
	clierrors "github.com/AntoineDao/queenbee/internal/errors"
	"github.com/AntoineDao/queenbee/internal/output"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create a commented configuration file",
	Long: `Create a configuration file holding every option with its default value.

By default the project config .queenbee/config.yml is created in the current
directory, or under [path] when given. Use --user to create the user-level
config instead (~/.config/queenbee/config.yml).

An existing file is left unchanged unless --force is given.

Path argument:
  The path can be relative, absolute, or start with "~". It is created if it
  does not exist.`,
	Example: `  # Create .queenbee/config.yml in the current directory
  queenbee config init

  # Create it in another project
  queenbee config init ~/projects/daylight

  # Create the user-level config
  queenbee config init --user

  # Overwrite an existing file
  queenbee config init --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().Bool("user", false, "Create the user-level config instead of the project config")
	initCmd.Flags().BoolP("force", "f", false, "Overwrite an existing config file")
	ConfigCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetBool("user")
	force, _ := cmd.Flags().GetBool("force")

	if user && len(args) > 0 {
		return clierrors.NewArgumentError("a path cannot be combined with --user")
	}

	target, err := initTarget(args, user)
	if err != nil {
		if cliErr := clierrors.AsCLIError(err); cliErr != nil {
			return cliErr
		}
		return clierrors.Wrap(err, clierrors.Configuration)
	}

	created, err := writeConfigTemplate(target, force)
	if err != nil {
		return clierrors.Wrap(err, clierrors.Configuration)
	}
	reportInit(cmd.OutOrStdout(), target, created)
	return nil
}

// initTarget resolves the config file that init writes.
func initTarget(args []string, user bool) (string, error) {
	if user {
		path, err := config.UserConfigPath()
		if err != nil {
			return "", clierrors.NewConfigError(
				fmt.Sprintf("cannot locate the user config directory: %v", err),
				"Set XDG_CONFIG_HOME or HOME",
				"Or create a project config with 'queenbee config init [path]'",
			)
		}
		return path, nil
	}

	root := ""
	if len(args) > 0 {
		root = args[0]
	}
	dir, err := projectDir(root)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, config.ProjectConfigPath()), nil
}

// projectDir resolves the [path] argument to an absolute directory. An empty
// argument means the current directory.
func projectDir(raw string) (string, error) {
	expanded, err := config.ExpandHome(raw)
	if err != nil {
		return "", err
	}
	dir, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", raw, err)
	}
	return dir, nil
}

// writeConfigTemplate writes the default template to path. It returns false
// without writing when path exists and force is not set.
func writeConfigTemplate(path string, force bool) (bool, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(config.GetDefaultConfigTemplate()), 0o644); err != nil {
		return false, fmt.Errorf("writing config file: %w", err)
	}
	return true, nil
}

func reportInit(out io.Writer, path string, created bool) {
	if created {
		output.PrintSuccess(out, fmt.Sprintf("Created %s", path))
		return
	}
	fmt.Fprintf(out, "Config already exists at %s (use --force to overwrite)\n", path)
}
