// Package dag provides the workflow DAG model, its YAML parser and writer,
// the multi-pass validation engine, and ASCII/DOT visualization.
//
// The package supports:
//   - Parsing DAG documents (YAML or JSON) into an immutable model, failing on
//     the first construction error with its path and source position
//   - Resolving `from` references against DAG inputs, task outputs and loop items
//   - Validating the graph in passes (uniqueness, dependency closure, reference
//     resolution, cycles, optional declared dependencies, template compatibility)
//     and collecting every failure into a Report
//   - Rendering tasks by topological level
//
// The package performs no execution. Templates are resolved through the
// TemplateRegistry interface, implemented by the registry package.
package dag
