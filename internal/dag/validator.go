package dag

import (
	"errors"
	"fmt"
	"strings"
)

// Pass names, in the order Validate runs them.
const (
	PassConstruction         = "construction"
	PassUniqueness           = "uniqueness"
	PassDependencies         = "dependencies"
	PassReferences           = "references"
	PassCycles               = "cycles"
	PassDeclaredDependencies = "declared-dependencies"
	PassTemplates            = "templates"
)

// Validator runs the graph-level passes over a constructed DAG.
// It holds no mutable state and is safe for concurrent use.
type Validator struct {
	registry   TemplateRegistry
	strictDeps bool
	infos      map[string]NodeInfo
}

// Option configures a Validator.
type Option func(*Validator)

// WithRegistry enables the template compatibility pass.
func WithRegistry(r TemplateRegistry) Option {
	return func(v *Validator) {
		v.registry = r
	}
}

// WithStrictDependencies requires every task-sourced reference to point at a
// task the consumer depends on, directly or transitively.
func WithStrictDependencies(strict bool) Option {
	return func(v *Validator) {
		v.strictDeps = strict
	}
}

// WithLocations attaches source positions from a ParseResult to reported errors.
func WithLocations(infos map[string]NodeInfo) Option {
	return func(v *Validator) {
		v.infos = infos
	}
}

// NewValidator creates a Validator.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateDAG validates d with a Validator built from opts.
func ValidateDAG(d *DAG, opts ...Option) *Report {
	return NewValidator(opts...).Validate(d)
}

// Report is the verdict of one validation run.
type Report struct {
	DAG string
	// Passes holds one aggregate per pass that found problems, in run order.
	Passes []*PassError
}

// HasErrors reports whether any pass failed.
func (r *Report) HasErrors() bool {
	return len(r.Passes) > 0
}

// Errors returns every individual failure across passes.
func (r *Report) Errors() []error {
	var out []error
	for _, p := range r.Passes {
		out = append(out, p.Errors...)
	}
	return out
}

// Err returns nil for an accepted DAG, or an error joining every pass aggregate.
func (r *Report) Err() error {
	if !r.HasErrors() {
		return nil
	}
	errs := make([]error, len(r.Passes))
	for i, p := range r.Passes {
		errs[i] = p
	}
	return errors.Join(errs...)
}

func (r *Report) add(pass string, errs []error) {
	if len(errs) > 0 {
		r.Passes = append(r.Passes, &PassError{Pass: pass, Errors: errs})
	}
}

// Validate runs every pass over d and collects all failures. It never
// mutates d, so re-validating an unchanged DAG yields the same report.
func (v *Validator) Validate(d *DAG) *Report {
	report := &Report{DAG: d.Name}
	ix := NewTaskIndex(d.Tasks)

	report.add(PassConstruction, v.checkConstruction(d))
	report.add(PassUniqueness, v.checkUniqueNames(d))
	report.add(PassDependencies, v.checkDependencies(d, ix))
	report.add(PassReferences, v.checkReferences(d, ix))
	report.add(PassCycles, v.detectCycles(d, ix))
	if v.strictDeps {
		report.add(PassDeclaredDependencies, v.checkDeclaredDependencies(d, ix))
	}
	if v.registry != nil {
		report.add(PassTemplates, v.checkTemplates(d))
	}

	return report
}

// loc finds the closest recorded position for path, walking up to parents.
func (v *Validator) loc(path string) Location {
	for path != "" {
		if info, ok := v.infos[path]; ok {
			return Location{Line: info.Line, Column: info.Column}
		}
		cut := strings.LastIndexAny(path, ".[")
		if cut <= 0 {
			break
		}
		path = path[:cut]
	}
	return Location{}
}

// checkConstruction re-runs the per-entity checks for DAGs assembled in Go
// rather than parsed. Unlike DAG.Check it reports every failing entity.
func (v *Validator) checkConstruction(d *DAG) []error {
	var errs []error

	collect := func(err error, path string) {
		if err == nil {
			return
		}
		var ce *ConstructionError
		if errors.As(err, &ce) {
			ce.Path = path
			ce.Location = v.loc(path)
		}
		errs = append(errs, err)
	}

	if d.Name == "" {
		collect(&ConstructionError{Entity: "dag", Message: "name is required"}, "name")
	}
	collect(d.Inputs.Check(), "inputs")
	collect(d.Outputs.Check(), "outputs")
	for i, t := range d.Tasks {
		collect(t.Check(), fmt.Sprintf("tasks[%d]", i))
	}

	return errs
}

// checkUniqueNames reports each task name used more than once.
func (v *Validator) checkUniqueNames(d *DAG) []error {
	var errs []error
	for _, name := range duplicateNames(d.Tasks) {
		dup := &DuplicateNameError{Name: name}
		for i, t := range d.Tasks {
			if t.Name == name {
				dup.Indexes = append(dup.Indexes, i)
			}
		}
		dup.Location = v.loc(fmt.Sprintf("tasks[%d].name", dup.Indexes[1]))
		errs = append(errs, dup)
	}
	return errs
}

// checkDependencies verifies every dependency names a task in the DAG.
// It does not look for cycles; detectCycles does.
func (v *Validator) checkDependencies(d *DAG, ix *TaskIndex) []error {
	var errs []error
	for i, t := range d.Tasks {
		var missing []string
		for _, dep := range t.Dependencies {
			if !ix.Has(dep) {
				missing = append(missing, dep)
			}
		}
		if len(missing) > 0 {
			errs = append(errs, &UnresolvedDependencyError{
				Task: t.Name, Missing: missing, Location: v.loc(fmt.Sprintf("tasks[%d].dependencies", i)),
			})
		}
	}
	return errs
}

// checkReferences resolves every DAG-input and task-output reference held by
// task arguments, task loops and DAG outputs. Task references resolve against
// all tasks of the DAG, not only declared dependencies.
func (v *Validator) checkReferences(d *DAG, ix *TaskIndex) []error {
	var errs []error

	unresolved := func(owner, path string, ref Reference, err error) {
		errs = append(errs, &UnresolvedReferenceError{
			Owner: owner, Path: path, Reference: ref, Reason: err.Error(), Location: v.loc(path),
		})
	}

	for i, t := range d.Tasks {
		args := t.Arguments

		for _, p := range args.mustParameters(SourceDAG) {
			if _, err := d.Inputs.ParameterByName(p.From.Variable); err != nil {
				unresolved(argOwner(t, p.Name), paramArgPath(i, args, p.Name), *p.From, err)
			}
		}
		for _, a := range args.mustArtifacts(SourceDAG) {
			if _, err := d.Inputs.ArtifactByName(a.From.Variable); err != nil {
				unresolved(argOwner(t, a.Name), artifactArgPath(i, args, a.Name), *a.From, err)
			}
		}
		for _, p := range args.mustParameters(SourceTask) {
			if _, err := ix.FindTaskOutput(*p.From); err != nil {
				unresolved(argOwner(t, p.Name), paramArgPath(i, args, p.Name), *p.From, err)
			}
		}
		for _, a := range args.mustArtifacts(SourceTask) {
			if _, err := ix.FindTaskOutput(*a.From); err != nil {
				unresolved(argOwner(t, a.Name), artifactArgPath(i, args, a.Name), *a.From, err)
			}
		}

		if t.Loop != nil && t.Loop.From != nil {
			if err := v.resolveLoop(d, ix, *t.Loop.From); err != nil {
				owner := fmt.Sprintf("task %q loop", t.Name)
				unresolved(owner, fmt.Sprintf("tasks[%d].loop.from", i), *t.Loop.From, err)
			}
		}
	}

	// Non-task sources in DAG outputs are construction errors, reported elsewhere.
	for j, p := range d.Outputs.Parameters {
		if !p.From.IsTask() {
			continue
		}
		if _, err := ix.FindTaskOutput(p.From); err != nil {
			unresolved(fmt.Sprintf("DAG output parameter %q", p.Name), fmt.Sprintf("outputs.parameters[%d].from", j), p.From, err)
		}
	}
	for j, a := range d.Outputs.Artifacts {
		if !a.From.IsTask() {
			continue
		}
		if _, err := ix.FindTaskOutput(a.From); err != nil {
			unresolved(fmt.Sprintf("DAG output artifact %q", a.Name), fmt.Sprintf("outputs.artifacts[%d].from", j), a.From, err)
		}
	}

	return errs
}

// resolveLoop resolves a loop source, which must be list-valued when the
// declaration says what it is.
func (v *Validator) resolveLoop(d *DAG, ix *TaskIndex, ref Reference) error {
	switch ref.Source() {
	case SourceDAG:
		p, err := d.Inputs.ParameterByName(ref.Variable)
		if err != nil {
			return err
		}
		if p.Type != "" && p.Type != ParamArray {
			return fmt.Errorf("input parameter %q is of type %s, not a list", p.Name, p.Type)
		}
		return nil
	case SourceTask:
		_, err := ix.FindTaskOutput(ref)
		return err
	default:
		return fmt.Errorf("loops cannot take their list from %s", ref.Kind)
	}
}

func argOwner(t Task, arg string) string {
	return fmt.Sprintf("task %q argument %q", t.Name, arg)
}

func paramArgPath(task int, args Arguments, name string) string {
	for j, p := range args.Parameters {
		if p.Name == name {
			return fmt.Sprintf("tasks[%d].arguments.parameters[%d].from", task, j)
		}
	}
	return fmt.Sprintf("tasks[%d].arguments.parameters", task)
}

func artifactArgPath(task int, args Arguments, name string) string {
	for j, a := range args.Artifacts {
		if a.Name == name {
			return fmt.Sprintf("tasks[%d].arguments.artifacts[%d].from", task, j)
		}
	}
	return fmt.Sprintf("tasks[%d].arguments.artifacts", task)
}

// detectCycles runs a depth-first search over task dependencies and reports
// one cycle per back edge, so cycles sharing tasks are each reported.
// Unknown dependencies are ignored here.
func (v *Validator) detectCycles(d *DAG, ix *TaskIndex) []error {
	var errs []error

	visited := make(map[string]bool, len(d.Tasks))
	onStack := make(map[string]bool)

	var visit func(name string, path []string)
	visit = func(name string, path []string) {
		visited[name] = true
		onStack[name] = true
		path = append(path, name)

		if task, err := ix.Lookup(name); err == nil {
			for _, dep := range task.Dependencies {
				switch {
				case !ix.Has(dep):
				case onStack[dep]:
					errs = append(errs, &CycleError{Path: buildCyclePath(path, dep)})
				case !visited[dep]:
					visit(dep, path)
				}
			}
		}

		onStack[name] = false
	}

	for _, t := range d.Tasks {
		if !visited[t.Name] {
			visit(t.Name, nil)
		}
	}

	return errs
}

// buildCyclePath cuts the DFS path down to the cycle starting at cycleStart.
func buildCyclePath(path []string, cycleStart string) []string {
	for i, name := range path {
		if name == cycleStart {
			cycle := append([]string{}, path[i:]...)
			return append(cycle, cycleStart)
		}
	}
	return append(append([]string{}, path...), cycleStart)
}

// checkDeclaredDependencies reports task-sourced references whose producer
// is not among the consumer's transitive dependencies.
func (v *Validator) checkDeclaredDependencies(d *DAG, ix *TaskIndex) []error {
	var errs []error

	closure := make(map[string]map[string]bool, len(d.Tasks))
	var upstream func(name string, seen map[string]bool) map[string]bool
	upstream = func(name string, seen map[string]bool) map[string]bool {
		if c, ok := closure[name]; ok {
			return c
		}
		out := make(map[string]bool)
		if seen[name] {
			return out
		}
		seen[name] = true
		if task, err := ix.Lookup(name); err == nil {
			for _, dep := range task.Dependencies {
				out[dep] = true
				for n := range upstream(dep, seen) {
					out[n] = true
				}
			}
		}
		closure[name] = out
		return out
	}

	for i, t := range d.Tasks {
		deps := upstream(t.Name, make(map[string]bool))
		check := func(ref Reference, path string) {
			if !ix.Has(ref.Name) || deps[ref.Name] {
				return
			}
			errs = append(errs, &UndeclaredDependencyError{
				Task: t.Name, Producer: ref.Name, Reference: ref, Location: v.loc(path),
			})
		}

		for _, p := range t.Arguments.mustParameters(SourceTask) {
			check(*p.From, paramArgPath(i, t.Arguments, p.Name))
		}
		for _, a := range t.Arguments.mustArtifacts(SourceTask) {
			check(*a.From, artifactArgPath(i, t.Arguments, a.Name))
		}
		if t.Loop != nil && t.Loop.From != nil && t.Loop.From.IsTask() {
			check(*t.Loop.From, fmt.Sprintf("tasks[%d].loop.from", i))
		}
	}

	return errs
}

// checkTemplates resolves each task's template and cross-checks its bindings.
func (v *Validator) checkTemplates(d *DAG) []error {
	var errs []error
	for i, t := range d.Tasks {
		loc := v.loc(fmt.Sprintf("tasks[%d].template", i))
		sig, err := v.registry.Lookup(t.Template)
		if err != nil {
			errs = append(errs, &UnknownTemplateError{Task: t.Name, Template: t.Template, Err: err, Location: loc})
			continue
		}
		for _, mismatch := range t.CheckTemplate(sig) {
			var tm *TemplateMismatchError
			if errors.As(mismatch, &tm) {
				tm.Location = loc
			}
			errs = append(errs, mismatch)
		}
	}
	return errs
}
