package dag

import (
	"errors"
	"fmt"
	"strings"
)

// Location is a source position attached to an error when the DAG was parsed from a file.
type Location struct {
	Line   int
	Column int
}

// Position returns the location. Error types embedding Location inherit it.
func (l Location) Position() Location {
	return l
}

func (l Location) prefix() string {
	if l.Line > 0 {
		return fmt.Sprintf("line %d, column %d: ", l.Line, l.Column)
	}
	return ""
}

// ConstructionError means a single entity violates an invariant checkable
// from its own fields. The entity cannot exist.
type ConstructionError struct {
	// Entity is the kind of entity, e.g. "parameter" or "task".
	Entity string
	// Name is the entity name, when it has one.
	Name string
	// Task is the owning task, for entities nested in a task.
	Task    string
	Path    string
	Message string
	Location
}

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Location.prefix())
	if e.Task != "" {
		fmt.Fprintf(&sb, "task %q: ", e.Task)
	}
	sb.WriteString(e.Entity)
	if e.Name != "" {
		fmt.Fprintf(&sb, " %q", e.Name)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	return sb.String()
}

func withTask(err error, task string) error {
	var ce *ConstructionError
	if errors.As(err, &ce) && ce.Task == "" {
		ce.Task = task
	}
	return err
}

// NotFoundError is returned by the by-name lookups of IO blocks.
type NotFoundError struct {
	Kind      string
	Name      string
	Available []string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("no %s named %q exists (none declared)", e.Kind, e.Name)
	}
	return fmt.Sprintf("no %s named %q exists; available: [%s]", e.Kind, e.Name, strings.Join(e.Available, ", "))
}

// UnknownTaskError is returned by GetTask for names not in the DAG.
type UnknownTaskError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("invalid task name: %s", e.Name)
}

// DuplicateNameError reports one task name shared by several tasks.
type DuplicateNameError struct {
	Name string
	// Indexes are the positions of every task carrying Name.
	Indexes []int
	Location
}

// Error implements the error interface.
func (e *DuplicateNameError) Error() string {
	idx := make([]string, len(e.Indexes))
	for i, n := range e.Indexes {
		idx[i] = fmt.Sprintf("tasks[%d]", n)
	}
	return fmt.Sprintf("%sduplicate task name %q (%s)", e.Location.prefix(), e.Name, strings.Join(idx, ", "))
}

// UnresolvedDependencyError reports dependencies naming tasks that do not exist.
type UnresolvedDependencyError struct {
	Task    string
	Missing []string
	Location
}

// Error implements the error interface.
func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("%sDAG task %q has unresolved dependencies: [%s]",
		e.Location.prefix(), e.Task, strings.Join(e.Missing, ", "))
}

// UnresolvedReferenceError reports a `from` reference with no matching source.
type UnresolvedReferenceError struct {
	// Owner describes what holds the reference, e.g. `task "t1" argument "n"`.
	Owner     string
	Path      string
	Reference Reference
	Reason    string
	Location
}

// Error implements the error interface.
func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("%s%s: cannot resolve %s: %s", e.Location.prefix(), e.Owner, e.Reference, e.Reason)
}

// CycleError reports a cycle in task dependencies.
type CycleError struct {
	// Path lists the task names forming the cycle, first name repeated last.
	Path []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return "cycle detected in task dependencies"
	}
	return fmt.Sprintf("cycle detected in task dependencies: %s", strings.Join(e.Path, " -> "))
}

// UndeclaredDependencyError reports a task consuming another task's output
// without depending on it, directly or transitively.
type UndeclaredDependencyError struct {
	Task      string
	Producer  string
	Reference Reference
	Location
}

// Error implements the error interface.
func (e *UndeclaredDependencyError) Error() string {
	return fmt.Sprintf("%stask %q references %s but does not depend on task %q",
		e.Location.prefix(), e.Task, e.Reference, e.Producer)
}

// UnknownTemplateError reports a task whose template the registry cannot resolve.
type UnknownTemplateError struct {
	Task     string
	Template string
	Err      error
	Location
}

// Error implements the error interface.
func (e *UnknownTemplateError) Error() string {
	return fmt.Sprintf("%stask %q: unknown template %q: %v", e.Location.prefix(), e.Task, e.Template, e.Err)
}

// Unwrap returns the registry error.
func (e *UnknownTemplateError) Unwrap() error {
	return e.Err
}

// TemplateMismatchError reports task bindings that do not satisfy the template IO contract.
type TemplateMismatchError struct {
	Task     string
	Template string
	// Kind is one of "input parameter", "input artifact", "output parameter", "output artifact".
	Kind    string
	Name    string
	Message string
	Location
}

// Error implements the error interface.
func (e *TemplateMismatchError) Error() string {
	return fmt.Sprintf("%stask %q (template %q): %s %q %s",
		e.Location.prefix(), e.Task, e.Template, e.Kind, e.Name, e.Message)
}

// PassError aggregates every failure found by one validation pass.
type PassError struct {
	Pass   string
	Errors []error
}

// Error implements the error interface.
func (e *PassError) Error() string {
	lines := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		lines[i] = "  - " + err.Error()
	}
	return fmt.Sprintf("%s: %d error(s)\n%s", e.Pass, len(e.Errors), strings.Join(lines, "\n"))
}

// Unwrap exposes the member errors to errors.Is and errors.As.
func (e *PassError) Unwrap() []error {
	return e.Errors
}

// ParseError is a document-level parse failure with location information.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Column == 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}
