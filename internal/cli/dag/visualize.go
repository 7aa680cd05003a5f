package dag

import (
	"fmt"
	"io"
	"strings"

	"github.com/AntoineDao/queenbee/internal/cli/shared"
	"github.com/AntoineDao/queenbee/internal/dag"
	clierrors "github.com/AntoineDao/queenbee/internal/errors"
	"github.com/AntoineDao/queenbee/internal/output"
	"github.com/spf13/cobra"
)

var visualizeCmd = &cobra.Command{
	Use:   "visualize <file>",
	Short: "Render the task levels of a DAG",
	Long: `Render a DAG document as an ASCII diagram, a one-line summary or a
Graphviz DOT graph.

Tasks are grouped into levels: level 0 holds tasks without dependencies and
every other task sits one level below its deepest dependency.

The DAG is validated before rendering. If validation fails the errors are
printed instead of the diagram, unless --force is given.

Exit codes:
  0 - Visualization successful
  1 - The DAG failed validation
  3 - Unknown output format`,
	Example: `  # Visualize a DAG
  queenbee dag visualize daylight.yaml

  # One line per run
  queenbee dag visualize --format compact daylight.yaml

  # Render with Graphviz
  queenbee dag visualize --format dot daylight.yaml | dot -Tsvg > daylight.svg`,
	Args: cobra.ExactArgs(1),
	RunE: runVisualize,
}

func init() {
	visualizeCmd.Flags().String("format", "ascii", "Output format: ascii, compact or dot")
	visualizeCmd.Flags().Bool("force", false, "Render even when validation fails")
	DagCmd.AddCommand(visualizeCmd)
}

func runVisualize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := shared.SettingsFrom(ctx).Config
	filePath := args[0]

	format, _ := cmd.Flags().GetString("format")
	force, _ := cmd.Flags().GetBool("force")
	if format != "ascii" && format != "compact" && format != "dot" {
		return clierrors.UnsupportedFormat("--format", format, "ascii", "compact", "dot")
	}

	if err := validateFileArg(filePath); err != nil {
		return err
	}

	parsed, err := dag.ParseDAGFile(filePath)
	if err != nil {
		return clierrors.ParseFailed(filePath, err)
	}

	reg, err := shared.LoadRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	report := dag.ValidateDAG(parsed.DAG, validatorOptions(parsed, reg, cfg.StrictDependencies)...)
	if report.HasErrors() && !force {
		output.WriteText(cmd.ErrOrStderr(), []output.Result{output.FromReport(filePath, report)}, output.TextOptions{})
		return clierrors.ValidationFailed(1, 1)
	}

	return writeVisualization(cmd.OutOrStdout(), parsed.DAG, format)
}

// renderVisualization renders d in the named format.
func renderVisualization(d *dag.DAG, format string) string {
	switch format {
	case "compact":
		return dag.RenderCompact(d)
	case "dot":
		return dag.RenderDOT(d)
	default:
		return dag.RenderASCII(d)
	}
}

func writeVisualization(w io.Writer, d *dag.DAG, format string) error {
	out := renderVisualization(d, format)
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err := fmt.Fprint(w, out)
	return err
}
