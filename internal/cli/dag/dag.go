// Package dag provides CLI commands for DAG validation, visualization and formatting.
package dag

import "github.com/spf13/cobra"

// DagCmd is the parent command for all DAG operations.
var DagCmd = &cobra.Command{
	Use:   "dag",
	Short: "Validate, visualize and format DAG documents",
	Long: `Validate, visualize and format DAG (Directed Acyclic Graph) workflow documents.

Available subcommands:
  validate   - Validate one or more DAG documents
  visualize  - Render the task levels of a DAG as ASCII or Graphviz DOT
  fmt        - Re-serialize DAG documents in canonical form`,
}
