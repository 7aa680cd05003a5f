// Package recipe handles multi-DAG recipe documents: an entrypoint DAG, the
// DAGs it nests and the functions its tasks invoke.
package recipe

import (
	"context"
	"fmt"
	"os"

	"github.com/AntoineDao/queenbee/internal/ctxlog"
	"github.com/AntoineDao/queenbee/internal/dag"
	"github.com/AntoineDao/queenbee/internal/registry"
	"gopkg.in/yaml.v3"
)

// Recipe is a named bundle of DAGs and functions with one entrypoint DAG.
type Recipe struct {
	Name        string
	Description string
	Entrypoint  string
	DAGs        []*dag.DAG
	Functions   []*registry.Function

	// Source is the file the recipe was read from, if any.
	Source string

	// locations holds the node positions of each DAG, aligned with DAGs.
	locations []map[string]dag.NodeInfo
}

type rawRecipe struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Entrypoint  string      `yaml:"entrypoint"`
	DAGs        []yaml.Node `yaml:"dags"`
	Functions   []yaml.Node `yaml:"functions"`
}

// ParseFile reads and parses a recipe document.
func ParseFile(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recipe file: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.Source = path
	return r, nil
}

// Parse parses a recipe from YAML or JSON bytes. Every DAG and function is
// constructed, so construction errors surface here; Check and Validate do
// the rest.
func Parse(data []byte) (*Recipe, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing recipe: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, &dag.ParseError{Line: 1, Message: "expected mapping node at root"}
	}

	var raw rawRecipe
	if err := doc.Content[0].Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding recipe: %w", err)
	}

	r := &Recipe{Name: raw.Name, Description: raw.Description, Entrypoint: raw.Entrypoint}
	for i := range raw.DAGs {
		parsed, err := dag.ParseDAGNode(&raw.DAGs[i])
		if err != nil {
			return nil, fmt.Errorf("dags[%d]: %w", i, err)
		}
		r.DAGs = append(r.DAGs, parsed.DAG)
		r.locations = append(r.locations, parsed.NodeInfos)
	}
	for i := range raw.Functions {
		f, err := registry.ParseFunctionNode(&raw.Functions[i])
		if err != nil {
			return nil, fmt.Errorf("functions[%d]: %w", i, err)
		}
		r.Functions = append(r.Functions, f)
	}
	return r, nil
}

// Check enforces the recipe-level invariants: a name, an entrypoint naming
// exactly one DAG, and one template per name across DAGs and functions.
func (r *Recipe) Check() error {
	if r.Name == "" {
		return &dag.ConstructionError{Entity: "recipe", Path: "name", Message: "name is required"}
	}
	if r.Entrypoint == "" {
		return &dag.ConstructionError{Entity: "recipe", Name: r.Name, Path: "entrypoint", Message: "entrypoint is required"}
	}

	matches := 0
	for _, d := range r.DAGs {
		if d.Name == r.Entrypoint {
			matches++
		}
	}
	if matches != 1 {
		return &dag.ConstructionError{
			Entity:  "recipe",
			Name:    r.Name,
			Path:    "entrypoint",
			Message: fmt.Sprintf("entrypoint %q should refer to 1 DAG but found: %d", r.Entrypoint, matches),
		}
	}

	seen := make(map[string]string, len(r.DAGs)+len(r.Functions))
	claim := func(name, path string) error {
		if prev, ok := seen[name]; ok {
			return &dag.ConstructionError{
				Entity:  "recipe",
				Name:    r.Name,
				Path:    path,
				Message: fmt.Sprintf("template name %q is used by both %s and %s", name, prev, path),
			}
		}
		seen[name] = path
		return nil
	}
	for i, d := range r.DAGs {
		if err := claim(d.Name, fmt.Sprintf("dags[%d]", i)); err != nil {
			return err
		}
	}
	for i, f := range r.Functions {
		if err := claim(f.Name, fmt.Sprintf("functions[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

// EntrypointDAG returns the DAG the recipe starts from.
func (r *Recipe) EntrypointDAG() (*dag.DAG, error) {
	for _, d := range r.DAGs {
		if d.Name == r.Entrypoint {
			return d, nil
		}
	}
	return nil, fmt.Errorf("recipe %q has no DAG named %q", r.Name, r.Entrypoint)
}

// Registry returns base extended with the recipe's own functions and DAGs.
// Recipe templates shadow same-named templates from base. base may be nil.
func (r *Recipe) Registry(base *registry.Registry) *registry.Registry {
	var reg *registry.Registry
	if base != nil {
		reg = base.Clone()
	} else {
		reg = registry.New()
	}
	for _, f := range r.Functions {
		reg.Shadow(registry.FunctionEntry(f))
	}
	for _, d := range r.DAGs {
		reg.Shadow(registry.DAGEntry(d, r.Source))
	}
	return reg
}

// Result holds the verdict for every DAG of a recipe, in document order.
type Result struct {
	Recipe  string
	Reports []*dag.Report
}

// HasErrors reports whether any DAG failed validation.
func (res *Result) HasErrors() bool {
	for _, rep := range res.Reports {
		if rep.HasErrors() {
			return true
		}
	}
	return false
}

// Validate checks the recipe and then validates each of its DAGs against the
// recipe registry built from base. opts are applied to every DAG validator;
// the registry option is always set last.
func Validate(ctx context.Context, r *Recipe, base *registry.Registry, opts ...dag.Option) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	if err := r.Check(); err != nil {
		return nil, err
	}

	reg := r.Registry(base)
	logger.Debug("Validating recipe.", "recipe", r.Name, "dags", len(r.DAGs), "templates", reg.Len())

	res := &Result{Recipe: r.Name}
	for i, d := range r.DAGs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dagOpts := append([]dag.Option{}, opts...)
		if i < len(r.locations) {
			dagOpts = append(dagOpts, dag.WithLocations(r.locations[i]))
		}
		dagOpts = append(dagOpts, dag.WithRegistry(reg))

		report := dag.ValidateDAG(d, dagOpts...)
		logger.Debug("Validated recipe DAG.", "dag", d.Name, "errors", len(report.Errors()))
		res.Reports = append(res.Reports, report)
	}
	return res, nil
}
