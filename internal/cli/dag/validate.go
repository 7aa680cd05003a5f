package dag

import (
	"context"
	"io"
	"os"

	"github.com/AntoineDao/queenbee/internal/cli/shared"
	"github.com/AntoineDao/queenbee/internal/config"
	"github.com/AntoineDao/queenbee/internal/ctxlog"
	"github.com/AntoineDao/queenbee/internal/dag"
	clierrors "github.com/AntoineDao/queenbee/internal/errors"
	"github.com/AntoineDao/queenbee/internal/output"
	"github.com/AntoineDao/queenbee/internal/progress"
	"github.com/AntoineDao/queenbee/internal/registry"
	"github.com/AntoineDao/queenbee/internal/watch"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate DAG documents",
	Long: `Validate one or more DAG documents.

Each document is parsed first. Construction problems (a parameter with no
default that is not required, an argument with both or neither of value and
from, a malformed reference) stop parsing of that document. Parsed DAGs then
go through every graph check, and all problems are reported together:
  - unique task names
  - dependencies naming existing tasks
  - references resolving to DAG inputs, task outputs or loop items
  - no dependency cycles
  - with --strict, task references naming a transitive dependency
  - with template directories, task bindings matching template IO contracts

Documents are validated concurrently (see max_parallel).

Exit codes:
  0 - All documents are valid
  1 - At least one document failed validation
  4 - A file does not exist`,
	Example: `  # Validate a DAG document
  queenbee dag validate daylight.yaml

  # Validate several documents as JSON for CI
  queenbee dag validate --format json dags/*.yaml

  # Re-validate whenever a document or template changes
  queenbee dag validate --watch --templates ./templates daylight.yaml`,
	Args: shared.RequireDocuments,
	RunE: runValidate,
}

func init() {
	addValidateFlags(validateCmd)
	DagCmd.AddCommand(validateCmd)
}

func addValidateFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("strict", false, "Require task references to name a transitive dependency (overrides strict_dependencies)")
	cmd.Flags().String("format", "", "Output format: text or json (overrides output_format)")
	cmd.Flags().BoolP("quiet", "q", false, "Only print documents with errors")
	cmd.Flags().BoolP("watch", "w", false, "Re-validate when a document or template changes")
}

// validateOptions are the resolved settings of one validate invocation.
type validateOptions struct {
	Strict      bool
	Format      string
	Quiet       bool
	MaxParallel int
}

func resolveValidateOptions(cmd *cobra.Command, cfg *config.Configuration) (validateOptions, error) {
	opts := validateOptions{
		Strict:      cfg.StrictDependencies,
		Format:      cfg.OutputFormat,
		MaxParallel: cfg.MaxParallel,
	}
	if cmd.Flags().Changed("strict") {
		opts.Strict, _ = cmd.Flags().GetBool("strict")
	}
	if cmd.Flags().Changed("format") {
		opts.Format, _ = cmd.Flags().GetString("format")
	}
	opts.Quiet, _ = cmd.Flags().GetBool("quiet")

	if opts.Format != "text" && opts.Format != "json" {
		return opts, clierrors.UnsupportedFormat("--format", opts.Format, "text", "json")
	}
	return opts, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := shared.SettingsFrom(ctx).Config

	if err := validateFileArgs(args); err != nil {
		return err
	}
	opts, err := resolveValidateOptions(cmd, cfg)
	if err != nil {
		return err
	}

	if watchMode, _ := cmd.Flags().GetBool("watch"); watchMode {
		return runValidateWatch(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), args, cfg, opts)
	}

	reg, err := shared.LoadRegistry(ctx, cfg)
	if err != nil {
		return err
	}

	results, err := validateFiles(ctx, args, reg, opts)
	if err != nil {
		return clierrors.WrapWithMessage(err, clierrors.Runtime, "validation aborted")
	}
	if err := renderResults(cmd.OutOrStdout(), results, opts); err != nil {
		return err
	}

	if failed := output.Failed(results); failed > 0 {
		return clierrors.ValidationFailed(failed, len(results))
	}
	return nil
}

// validateFiles parses and validates files concurrently, at most
// opts.MaxParallel at a time. Results keep the order of files. A document
// that fails to parse is a failed result, not an error; the returned error
// is only set when ctx is cancelled.
func validateFiles(ctx context.Context, files []string, reg *registry.Registry, opts validateOptions) ([]output.Result, error) {
	logger := ctxlog.FromContext(ctx)
	results := make([]output.Result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	if opts.MaxParallel > 0 {
		g.SetLimit(opts.MaxParallel)
	}
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = validateFile(file, reg, opts.Strict)
			logger.Debug("Validated document.", "file", file, "valid", results[i].Valid)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func validateFile(file string, reg *registry.Registry, strict bool) output.Result {
	parsed, err := dag.ParseDAGFile(file)
	if err != nil {
		return output.FromError(file, err)
	}
	report := dag.ValidateDAG(parsed.DAG, validatorOptions(parsed, reg, strict)...)
	return output.FromReport(file, report)
}

func renderResults(w io.Writer, results []output.Result, opts validateOptions) error {
	if opts.Format == "json" {
		return output.WriteJSON(w, results)
	}
	width := 0
	if f, ok := w.(*os.File); ok && f == os.Stdout {
		width = output.GetTerminalWidth()
	}
	output.WriteText(w, results, output.TextOptions{Width: width, Quiet: opts.Quiet})
	return nil
}

// runValidateWatch validates once and then again after each change to the
// documents or the template directories, until ctx is cancelled.
func runValidateWatch(ctx context.Context, stdout, stderr io.Writer, files []string, cfg *config.Configuration, opts validateOptions) error {
	paths := append([]string(nil), files...)
	for _, dir := range cfg.TemplateDirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			paths = append(paths, dir)
		}
	}

	caps := progress.DetectTerminalCapabilities()
	w, err := watch.New(paths, watch.Options{
		Debounce:   cfg.WatchDebounce,
		Extensions: templateExtensions,
		Indicator:  progress.NewIndicator(stderr, caps),
	})
	if err != nil {
		return clierrors.WrapWithMessage(err, clierrors.Runtime, "starting watcher")
	}
	defer w.Close()

	width := caps.Width
	return w.Run(ctx, func(ctx context.Context) error {
		if width > 0 {
			output.PrintSeparator(stdout, width, "queenbee")
		}
		// Templates are reloaded on every run since they are watched too.
		reg, err := shared.LoadRegistry(ctx, cfg)
		if err != nil {
			clierrors.FprintError(stderr, clierrors.AsCLIError(err))
			return nil
		}
		results, err := validateFiles(ctx, files, reg, opts)
		if err != nil {
			return err
		}
		return renderResults(stdout, results, opts)
	})
}
