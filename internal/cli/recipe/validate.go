package recipe

import (
	"context"
	"os"

	"github.com/AntoineDao/queenbee/internal/cli/shared"
	"github.com/AntoineDao/queenbee/internal/ctxlog"
	"github.com/AntoineDao/queenbee/internal/dag"
	clierrors "github.com/AntoineDao/queenbee/internal/errors"
	"github.com/AntoineDao/queenbee/internal/output"
	"github.com/AntoineDao/queenbee/internal/recipe"
	"github.com/AntoineDao/queenbee/internal/registry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate recipes",
	Long: `Validate one or more recipes.

Each recipe must name its entrypoint, which has to match exactly one of its
DAGs, and template names must be unique across its DAGs and functions. Every
DAG is then validated like 'queenbee dag validate' does, with the recipe's own
templates layered over the configured template directories. One result is
reported per DAG.

Exit codes:
  0 - All recipes are valid
  1 - At least one recipe failed validation
  4 - A file does not exist`,
	Example: `  # Validate a recipe
  queenbee recipe validate annual-daylight.yaml

  # Validate against shared templates with strict dependencies
  queenbee recipe validate --templates ./templates --strict recipes/*.yaml`,
	Args: shared.RequireDocuments,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().Bool("strict", false, "Require task references to name a transitive dependency (overrides strict_dependencies)")
	validateCmd.Flags().String("format", "", "Output format: text or json (overrides output_format)")
	validateCmd.Flags().BoolP("quiet", "q", false, "Only print DAGs with errors")
	RecipeCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := shared.SettingsFrom(ctx).Config

	strict := cfg.StrictDependencies
	if cmd.Flags().Changed("strict") {
		strict, _ = cmd.Flags().GetBool("strict")
	}
	format := cfg.OutputFormat
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	if format != "text" && format != "json" {
		return clierrors.UnsupportedFormat("--format", format, "text", "json")
	}
	quiet, _ := cmd.Flags().GetBool("quiet")

	for _, file := range args {
		if _, err := os.Stat(file); err != nil {
			return clierrors.DocumentNotFound(file)
		}
	}

	base, err := shared.LoadRegistry(ctx, cfg)
	if err != nil {
		return err
	}

	results, err := validateRecipes(ctx, args, base, strict, cfg.MaxParallel)
	if err != nil {
		return clierrors.WrapWithMessage(err, clierrors.Runtime, "validation aborted")
	}

	if format == "json" {
		if err := output.WriteJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else {
		output.WriteText(cmd.OutOrStdout(), results, output.TextOptions{Quiet: quiet})
	}

	if failed := output.Failed(results); failed > 0 {
		return clierrors.ValidationFailed(failed, len(results))
	}
	return nil
}

// validateRecipes validates files concurrently and flattens the per-DAG
// results in file order.
func validateRecipes(ctx context.Context, files []string, base *registry.Registry, strict bool, maxParallel int) ([]output.Result, error) {
	perFile := make([][]output.Result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	if maxParallel > 0 {
		g.SetLimit(maxParallel)
	}
	for i, file := range files {
		g.Go(func() error {
			res, err := validateRecipe(gctx, file, base, strict)
			if err != nil {
				return err
			}
			perFile[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var results []output.Result
	for _, res := range perFile {
		results = append(results, res...)
	}
	return results, nil
}

// validateRecipe returns one result per DAG, or a single failed result when
// the recipe cannot be parsed or checked. Only cancellation is an error.
func validateRecipe(ctx context.Context, file string, base *registry.Registry, strict bool) ([]output.Result, error) {
	r, err := recipe.ParseFile(file)
	if err != nil {
		return []output.Result{output.FromError(file, err)}, nil
	}

	res, err := recipe.Validate(ctx, r, base, dag.WithStrictDependencies(strict))
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return []output.Result{output.FromError(file, err)}, nil
	}

	ctxlog.FromContext(ctx).Debug("Validated recipe.", "file", file, "recipe", r.Name, "dags", len(res.Reports))
	results := make([]output.Result, 0, len(res.Reports))
	for _, rep := range res.Reports {
		results = append(results, output.FromReport(file, rep))
	}
	return results, nil
}
