package cli

import (
	"context"
	"errors"

	clierrors "github.com/AntoineDao/queenbee/internal/errors"
)

// Exit codes for the queenbee CLI
// These codes support programmatic composition and CI/CD integration
const (
	// ExitSuccess indicates successful command execution
	ExitSuccess = 0

	// ExitValidationFailed indicates at least one document failed validation
	ExitValidationFailed = 1

	// ExitConfigurationError indicates invalid configuration or template directories
	ExitConfigurationError = 2

	// ExitInvalidArguments indicates invalid command arguments
	ExitInvalidArguments = 3

	// ExitMissingDependencies indicates required files are missing
	ExitMissingDependencies = 4

	// ExitRuntimeError indicates an unexpected failure while running
	ExitRuntimeError = 5

	// ExitInterrupted indicates the command was cancelled by a signal
	ExitInterrupted = 130
)

// ExitCode maps an error returned by Execute to a process exit code.
// Errors that are not CLIErrors come from cobra's argument and flag parsing.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}

	cliErr := clierrors.AsCLIError(err)
	if cliErr == nil {
		return ExitInvalidArguments
	}

	switch cliErr.Category {
	case clierrors.Validation:
		return ExitValidationFailed
	case clierrors.Configuration:
		return ExitConfigurationError
	case clierrors.Argument:
		return ExitInvalidArguments
	case clierrors.Prerequisite:
		return ExitMissingDependencies
	default:
		return ExitRuntimeError
	}
}
