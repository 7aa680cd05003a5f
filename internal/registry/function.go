package registry

import (
	"fmt"
	"strings"

	"github.com/AntoineDao/queenbee/internal/dag"
	"gopkg.in/yaml.v3"
)

// FunctionOutput is a value a function writes to a path in its run folder.
type FunctionOutput struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Path        string `yaml:"path" json:"path"`
}

// FunctionOutputs lists what a function produces.
type FunctionOutputs struct {
	Parameters []FunctionOutput `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Artifacts  []FunctionOutput `yaml:"artifacts,omitempty" json:"artifacts,omitempty"`
}

// Function is a template wrapping a single shell command.
type Function struct {
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Inputs      dag.Inputs      `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Command     string          `yaml:"command" json:"command"`
	Outputs     FunctionOutputs `yaml:"outputs,omitempty" json:"outputs,omitempty"`

	// Source is the file the function was loaded from, if any.
	Source string `yaml:"-" json:"-"`
}

// Signature returns the IO contract tasks see when they invoke f.
func (f *Function) Signature() *dag.Signature {
	sig := &dag.Signature{Name: f.Name, Inputs: f.Inputs}
	for _, p := range f.Outputs.Parameters {
		sig.OutputParameters = append(sig.OutputParameters, p.Name)
	}
	for _, a := range f.Outputs.Artifacts {
		sig.OutputArtifacts = append(sig.OutputArtifacts, a.Name)
	}
	return sig
}

// Check validates the declaration and every {{inputs.*}} reference held by
// the command and by input and output paths.
func (f *Function) Check() error {
	if f.Name == "" {
		return fmt.Errorf("function name is required")
	}
	if strings.TrimSpace(f.Command) == "" {
		return fmt.Errorf("function %q: command is required", f.Name)
	}
	if err := f.Inputs.Check(); err != nil {
		return fmt.Errorf("function %q: %w", f.Name, err)
	}
	if err := checkOutputNames(f.Outputs); err != nil {
		return fmt.Errorf("function %q: %w", f.Name, err)
	}

	var problems []string
	check := func(where, text string) {
		for _, p := range f.unresolvedInputs(text) {
			problems = append(problems, fmt.Sprintf("%s: %s", where, p))
		}
	}

	check("command", f.Command)
	for _, a := range f.Inputs.Artifacts {
		check(fmt.Sprintf("input artifact %q path", a.Name), a.Path)
	}
	for _, o := range f.Outputs.Parameters {
		check(fmt.Sprintf("output parameter %q path", o.Name), o.Path)
	}
	for _, o := range f.Outputs.Artifacts {
		check(fmt.Sprintf("output artifact %q path", o.Name), o.Path)
	}

	if len(problems) > 0 {
		return fmt.Errorf("function %q: invalid referenced value(s):\n\t- %s", f.Name, strings.Join(problems, "\n\t- "))
	}
	return nil
}

// unresolvedInputs returns a description of each reference in text that is
// not an input parameter of f.
func (f *Function) unresolvedInputs(text string) []string {
	var out []string
	for _, expr := range dag.ReferenceExpressions(text) {
		ref, err := dag.ParseReferenceString(expr)
		if err != nil {
			out = append(out, fmt.Sprintf("{{%s}}: %v", expr, err))
			continue
		}
		if ref.Source() != dag.SourceDAG {
			out = append(out, fmt.Sprintf("{{%s}}: functions can only reference their own inputs", expr))
			continue
		}
		if _, err := f.Inputs.ParameterByName(ref.Variable); err != nil {
			out = append(out, fmt.Sprintf("{{%s}}: cannot find %q in inputs", expr, ref.Variable))
		}
	}
	return out
}

func checkOutputNames(o FunctionOutputs) error {
	for _, list := range []struct {
		kind  string
		items []FunctionOutput
	}{{"output parameter", o.Parameters}, {"output artifact", o.Artifacts}} {
		seen := make(map[string]bool, len(list.items))
		for _, item := range list.items {
			if item.Name == "" {
				return fmt.Errorf("%s name is required", list.kind)
			}
			if item.Path == "" {
				return fmt.Errorf("%s %q: path is required", list.kind, item.Name)
			}
			if seen[item.Name] {
				return fmt.Errorf("duplicate %s name %q", list.kind, item.Name)
			}
			seen[item.Name] = true
		}
	}
	return nil
}

type rawFunction struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Inputs      yaml.Node       `yaml:"inputs"`
	Command     string          `yaml:"command"`
	Outputs     FunctionOutputs `yaml:"outputs"`
}

// ParseFunctionNode builds and checks a Function from a YAML mapping node.
// Inputs follow the same derivation rules as DAG inputs.
func ParseFunctionNode(node *yaml.Node) (*Function, error) {
	var raw rawFunction
	if err := node.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding function: %w", err)
	}

	f := &Function{
		Name:        raw.Name,
		Description: raw.Description,
		Command:     raw.Command,
		Outputs:     raw.Outputs,
	}
	if raw.Inputs.Kind != 0 {
		inputs, err := dag.ParseInputsNode(&raw.Inputs)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", raw.Name, err)
		}
		f.Inputs = inputs
	}

	if err := f.Check(); err != nil {
		return nil, err
	}
	return f, nil
}
