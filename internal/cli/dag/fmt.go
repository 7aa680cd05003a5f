package dag

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/AntoineDao/queenbee/internal/cli/shared"
	"github.com/AntoineDao/queenbee/internal/dag"
	clierrors "github.com/AntoineDao/queenbee/internal/errors"
	"github.com/AntoineDao/queenbee/internal/output"
	"github.com/spf13/cobra"
)

var fmtCmd = &cobra.Command{
	Use:   "fmt <file>...",
	Short: "Re-serialize DAG documents in canonical form",
	Long: `Parse DAG documents and write them back in canonical form: derived
defaults made explicit and references always in mapping form.

Without flags the canonical document is printed to stdout. With --write the
files are rewritten in place (atomically). With --check nothing is written
and the command fails when any file is not already canonical.

Exit codes:
  0 - Success (or all files canonical with --check)
  1 - A file could not be parsed, or is not canonical (--check)
  3 - Unknown format or conflicting flags`,
	Example: `  # Print the canonical form
  queenbee dag fmt daylight.yaml

  # Rewrite files in place
  queenbee dag fmt -w dags/*.yaml

  # Fail CI when a file is not canonical
  queenbee dag fmt --check dags/*.yaml

  # Convert a YAML document to JSON
  queenbee dag fmt --output-format json daylight.yaml > daylight.json`,
	Args: shared.RequireDocuments,
	RunE: runFmt,
}

func init() {
	fmtCmd.Flags().BoolP("write", "w", false, "Write the result back to the source file")
	fmtCmd.Flags().Bool("check", false, "Report files that are not canonical without writing")
	fmtCmd.Flags().String("output-format", "", "Encoding for stdout: yaml or json (default: from file extension)")
	DagCmd.AddCommand(fmtCmd)
}

func runFmt(cmd *cobra.Command, args []string) error {
	write, _ := cmd.Flags().GetBool("write")
	check, _ := cmd.Flags().GetBool("check")
	outFormat, _ := cmd.Flags().GetString("output-format")

	if write && check {
		return clierrors.NewArgumentError("--write and --check cannot be used together")
	}
	if outFormat != "" && outFormat != string(dag.FormatYAML) && outFormat != string(dag.FormatJSON) {
		return clierrors.UnsupportedFormat("--output-format", outFormat, "yaml", "json")
	}
	if write && outFormat != "" {
		return clierrors.NewArgumentError(
			"--output-format cannot be used with --write",
			"Files are always rewritten in the encoding of their extension",
		)
	}

	if err := validateFileArgs(args); err != nil {
		return err
	}

	var unformatted int
	for _, file := range args {
		changed, err := formatFile(cmd.OutOrStdout(), file, fmtOptions{
			Write:  write,
			Check:  check,
			Format: dag.Format(outFormat),
		})
		if err != nil {
			return err
		}
		if changed && check {
			unformatted++
			output.PrintFailure(cmd.OutOrStdout(), file)
		}
	}

	if unformatted > 0 {
		return clierrors.NewValidationError(
			fmt.Sprintf("%d of %d file(s) are not canonical", unformatted, len(args)),
			"Run 'queenbee dag fmt -w' on them",
		)
	}
	return nil
}

type fmtOptions struct {
	Write  bool
	Check  bool
	Format dag.Format
}

// formatFile canonicalizes one file and reports whether its content differs
// from the canonical form.
func formatFile(w io.Writer, file string, opts fmtOptions) (bool, error) {
	original, err := os.ReadFile(file)
	if err != nil {
		return false, clierrors.WrapWithMessage(err, clierrors.Prerequisite, "reading "+file)
	}

	parsed, err := dag.ParseDAGBytes(original)
	if err != nil {
		return false, clierrors.ParseFailed(file, err)
	}

	format := opts.Format
	if format == "" {
		format = dag.FormatForPath(file)
	}
	canonical, err := dag.MarshalDAG(parsed.DAG, format)
	if err != nil {
		return false, clierrors.NewRuntimeError(
			fmt.Sprintf("cannot encode %s as %s: %v", file, format, err),
			"Use --output-format yaml or json",
		)
	}
	changed := !bytes.Equal(original, canonical)

	switch {
	case opts.Check:
	case opts.Write:
		if changed {
			if err := dag.WriteDAGFile(file, parsed.DAG); err != nil {
				return changed, clierrors.Wrap(err, clierrors.Runtime)
			}
		}
	default:
		if _, err := w.Write(canonical); err != nil {
			return changed, err
		}
	}
	return changed, nil
}
