// Package recipe provides CLI commands for recipe validation.
package recipe

import "github.com/spf13/cobra"

// RecipeCmd is the parent command for recipe operations.
var RecipeCmd = &cobra.Command{
	Use:   "recipe",
	Short: "Validate recipes",
	Long: `Validate recipes: documents bundling an entrypoint DAG with the nested DAGs
and function templates it uses.

Templates declared in a recipe take precedence over templates of the same name
found in the configured template directories.`,
}
