package errors

import "fmt"

// Common error messages for the queenbee CLI.
// These templates ensure consistent, actionable error messages.

// DocumentNotFound creates an error for a DAG or recipe file that does not exist.
func DocumentNotFound(path string) *CLIError {
	return NewPrerequisiteError(
		fmt.Sprintf("file not found: %s", path),
		"Check the path and try again",
		"Paths are resolved relative to the current directory",
	)
}

// MissingDocumentArgument creates an error for a command run without file arguments.
func MissingDocumentArgument(usage string) *CLIError {
	return NewArgumentErrorWithUsage(
		"at least one file is required",
		usage,
		"Pass one or more YAML or JSON documents",
	)
}

// UnsupportedFormat creates an error for an unknown --format value.
func UnsupportedFormat(flag, got string, allowed ...string) *CLIError {
	return NewArgumentError(
		fmt.Sprintf("unsupported %s %q", flag, got),
		fmt.Sprintf("Use one of: %v", allowed),
	)
}

// ParseFailed creates an error for a document that could not be parsed or constructed.
func ParseFailed(path string, err error) *CLIError {
	return WrapWithMessage(err, Validation,
		fmt.Sprintf("failed to parse %s", path),
		"Fix the reported entity; construction errors stop parsing at the first problem",
	)
}

// ValidationFailed creates an error summarizing rejected documents.
func ValidationFailed(failed, total int) *CLIError {
	return NewValidationError(
		fmt.Sprintf("%d of %d document(s) failed validation", failed, total),
		"Fix the errors listed above and re-run the command",
		"Use --strict to also require explicit dependencies for task references",
	)
}

// TemplateLoadFailed creates an error for template directories that could not be loaded.
func TemplateLoadFailed(err error) *CLIError {
	return WrapWithMessage(err, Configuration,
		"failed to load templates",
		"Check template_dirs in .queenbee/config.yml or the --templates flag",
		"Each template file must hold a function, a functions list or a DAG",
	)
}

// ConfigLoadFailed creates an error for an invalid configuration.
func ConfigLoadFailed(err error) *CLIError {
	return WrapWithMessage(err, Configuration,
		"failed to load configuration",
		"Check .queenbee/config.yml and QUEENBEE_* environment variables",
	)
}
