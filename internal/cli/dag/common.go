package dag

import (
	"fmt"
	"os"

	"github.com/AntoineDao/queenbee/internal/dag"
	clierrors "github.com/AntoineDao/queenbee/internal/errors"
	"github.com/AntoineDao/queenbee/internal/registry"
)

// templateExtensions are the files that count as templates when watching.
var templateExtensions = []string{".yaml", ".yml", ".json", ".hcl"}

func validateFileArg(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return clierrors.DocumentNotFound(filePath)
		}
		return clierrors.WrapWithMessage(err, clierrors.Prerequisite, "accessing file")
	}

	if info.IsDir() {
		return clierrors.NewArgumentError(
			fmt.Sprintf("expected file, got directory: %s", filePath),
			"Pass DAG documents, not directories",
		)
	}

	return nil
}

func validateFileArgs(paths []string) error {
	for _, p := range paths {
		if err := validateFileArg(p); err != nil {
			return err
		}
	}
	return nil
}

// validatorOptions builds the validator configuration for one parsed document.
func validatorOptions(result *dag.ParseResult, reg *registry.Registry, strict bool) []dag.Option {
	opts := []dag.Option{
		dag.WithLocations(result.NodeInfos),
		dag.WithStrictDependencies(strict),
	}
	if reg != nil {
		opts = append(opts, dag.WithRegistry(reg))
	}
	return opts
}
