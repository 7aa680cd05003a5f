package cli

import (
	"fmt"
	"io"

	"github.com/AntoineDao/queenbee/internal/build"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Aliases: []string{"v"},
	Short:   "Display version information (v)",
	Long:    "Display version, commit, build date, and Go version information for queenbee",
	Example: `  # Show version info
  queenbee version

  # Plain output (for scripts)
  queenbee version --plain`,
	// Version needs no configuration.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		plain, _ := cmd.Flags().GetBool("plain")
		if plain {
			printPlainVersion(cmd.OutOrStdout())
			return
		}
		printPrettyVersion(cmd.OutOrStdout())
	},
}

func init() {
	versionCmd.Flags().Bool("plain", false, "Plain output without formatting")
}

// printPlainVersion prints a simple version output for scripting
func printPlainVersion(w io.Writer) {
	info := build.Current()
	fmt.Fprintf(w, "queenbee %s\n", info.Version)
	fmt.Fprintf(w, "commit: %s\n", info.Commit)
	fmt.Fprintf(w, "built: %s\n", info.BuildDate)
	fmt.Fprintf(w, "go: %s\n", info.GoVersion)
	fmt.Fprintf(w, "platform: %s\n", info.Platform)
}

func printPrettyVersion(w io.Writer) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	info := build.Current()
	if build.IsDevBuild() {
		fmt.Fprintf(w, "%s %s %s\n", cyan("queenbee"), info.Version, dim("(development build)"))
	} else {
		fmt.Fprintf(w, "%s %s\n", cyan("queenbee"), info.Version)
	}
	fmt.Fprintf(w, "  %s %s\n", dim("commit:  "), info.Commit)
	fmt.Fprintf(w, "  %s %s\n", dim("built:   "), info.BuildDate)
	fmt.Fprintf(w, "  %s %s\n", dim("go:      "), info.GoVersion)
	fmt.Fprintf(w, "  %s %s\n", dim("platform:"), info.Platform)
}
