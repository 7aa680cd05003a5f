// Package registry resolves task template names to their IO contracts.
//
// Templates are Functions (a single command with declared inputs and
// outputs) or DAGs used as nested templates. They are loaded from YAML, JSON
// or HCL files found under the configured template directories. Registry
// implements dag.TemplateRegistry.
package registry
