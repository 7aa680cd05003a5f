package config

import "time"

// GetDefaultConfigTemplate returns a fully commented config template
// that helps users understand all available options
func GetDefaultConfigTemplate() string {
	return `# queenbee configuration

# Template settings
template_dirs: []                     # Directories holding function and DAG templates
strict_dependencies: false            # Task references must name a transitive dependency

# Execution settings
max_parallel: 4                       # Files parsed and validated at once (1-64)
watch_debounce: 300ms                 # Quiet period before --watch re-validates

# Output settings
log_level: warn                       # debug | info | warn | error
output_format: text                   # text | json
no_color: false                       # Disable colored output
`
}

// GetDefaults returns the default configuration values
func GetDefaults() map[string]interface{} {
	return map[string]interface{}{
		"template_dirs":       []string{},
		"strict_dependencies": false,
		"max_parallel":        4,
		"log_level":           "warn",
		"output_format":       "text",
		"no_color":            false,
		"watch_debounce":      300 * time.Millisecond,
	}
}
