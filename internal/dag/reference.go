package dag

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// RefKind identifies which resolution table a Reference is resolved against.
type RefKind int

const (
	// RefInputParameter points at a parameter in the enclosing DAG's inputs.
	RefInputParameter RefKind = iota + 1
	// RefInputArtifact points at an artifact in the enclosing DAG's inputs.
	RefInputArtifact
	// RefTaskParameter points at an output parameter of another task.
	RefTaskParameter
	// RefTaskArtifact points at an output artifact of another task.
	RefTaskArtifact
	// RefItemParameter points at the current loop item.
	RefItemParameter
)

// String returns the reference kind name.
func (k RefKind) String() string {
	switch k {
	case RefInputParameter:
		return "InputParameterReference"
	case RefInputArtifact:
		return "InputArtifactReference"
	case RefTaskParameter:
		return "TaskParameterReference"
	case RefTaskArtifact:
		return "TaskArtifactReference"
	case RefItemParameter:
		return "ItemParameterReference"
	default:
		return "UnknownReference"
	}
}

// RefSource is the coarse origin of a reference: the DAG, a task or a loop item.
type RefSource string

const (
	SourceDAG  RefSource = "dag"
	SourceTask RefSource = "task"
	SourceItem RefSource = "item"
)

// Slot says whether a reference feeds a parameter or an artifact.
// The document form of a reference does not carry this; the field it appears in does.
type Slot int

const (
	ParameterSlot Slot = iota
	ArtifactSlot
)

func (s Slot) String() string {
	if s == ArtifactSlot {
		return "artifacts"
	}
	return "parameters"
}

// Reference is a typed pointer from an argument or output to its data source.
type Reference struct {
	Kind RefKind
	// Name is the producing task. Only set for task references.
	Name string
	// Variable is the target parameter or artifact name.
	Variable string
}

// InputParameter returns a reference to a DAG input parameter.
func InputParameter(variable string) Reference {
	return Reference{Kind: RefInputParameter, Variable: variable}
}

// InputArtifact returns a reference to a DAG input artifact.
func InputArtifact(variable string) Reference {
	return Reference{Kind: RefInputArtifact, Variable: variable}
}

// TaskParameter returns a reference to a task's output parameter.
func TaskParameter(task, variable string) Reference {
	return Reference{Kind: RefTaskParameter, Name: task, Variable: variable}
}

// TaskArtifact returns a reference to a task's output artifact.
func TaskArtifact(task, variable string) Reference {
	return Reference{Kind: RefTaskArtifact, Name: task, Variable: variable}
}

// ItemParameter returns a reference to the current loop item.
func ItemParameter(variable string) Reference {
	return Reference{Kind: RefItemParameter, Variable: variable}
}

// Source classifies the reference by origin.
func (r Reference) Source() RefSource {
	switch r.Kind {
	case RefInputParameter, RefInputArtifact:
		return SourceDAG
	case RefTaskParameter, RefTaskArtifact:
		return SourceTask
	case RefItemParameter:
		return SourceItem
	default:
		return ""
	}
}

// Slot returns whether the reference targets a parameter or an artifact.
func (r Reference) Slot() Slot {
	if r.Kind == RefInputArtifact || r.Kind == RefTaskArtifact {
		return ArtifactSlot
	}
	return ParameterSlot
}

// IsTask reports whether the reference points at a task output.
func (r Reference) IsTask() bool {
	return r.Source() == SourceTask
}

// Equal reports whether two references point at the same source.
func (r Reference) Equal(other Reference) bool {
	return r.Kind == other.Kind && r.Name == other.Name && r.Variable == other.Variable
}

// String renders the reference in template form, e.g. {{tasks.parameters.t1.n}}.
func (r Reference) String() string {
	switch r.Source() {
	case SourceDAG:
		return fmt.Sprintf("{{inputs.%s.%s}}", r.Slot(), r.Variable)
	case SourceTask:
		return fmt.Sprintf("{{tasks.%s.%s.%s}}", r.Slot(), r.Name, r.Variable)
	case SourceItem:
		if r.Variable == "" {
			return "{{item}}"
		}
		return fmt.Sprintf("{{item.%s}}", r.Variable)
	default:
		return "{{?}}"
	}
}

// docType is the `type` discriminator used in the document form.
func (r Reference) docType() string {
	switch r.Source() {
	case SourceDAG:
		return "inputs"
	case SourceTask:
		return "tasks"
	case SourceItem:
		return "item"
	default:
		return ""
	}
}

// rawReference is the document form of `from`.
type rawReference struct {
	Type     string `yaml:"type,omitempty" json:"type,omitempty"`
	Name     string `yaml:"name,omitempty" json:"name,omitempty"`
	Variable string `yaml:"variable,omitempty" json:"variable,omitempty"`

	// Template holds the string form when `from` was written as "{{...}}".
	Template string `yaml:"-" json:"-"`
}

// UnmarshalYAML accepts either a mapping or a template string.
func (r *rawReference) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		r.Template = node.Value
		return nil
	}
	type plain rawReference
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*r = rawReference(p)
	return nil
}

// MarshalYAML writes the mapping form.
func (r Reference) MarshalYAML() (interface{}, error) {
	return rawReference{Type: r.docType(), Name: r.Name, Variable: r.Variable}, nil
}

// MarshalJSON writes the mapping form.
func (r Reference) MarshalJSON() ([]byte, error) {
	return json.Marshal(rawReference{Type: r.docType(), Name: r.Name, Variable: r.Variable})
}

// parseReference classifies a document-form reference for the given slot.
// An explicit type wins; without one, a task name means a task reference and
// its absence means a DAG input reference.
func parseReference(raw rawReference, slot Slot) (Reference, error) {
	if raw.Template != "" {
		refs, err := ReferencesFromString(raw.Template)
		if err != nil {
			return Reference{}, err
		}
		if len(refs) != 1 {
			return Reference{}, fmt.Errorf("expected exactly one reference in %q, found %d", raw.Template, len(refs))
		}
		return refs[0].withSlot(slot)
	}

	switch raw.Type {
	case "inputs", "input":
		if raw.Name != "" {
			return Reference{}, fmt.Errorf("input reference must not set a task name (got %q)", raw.Name)
		}
		return Reference{Kind: RefInputParameter, Variable: raw.Variable}.withSlot(slot)
	case "tasks", "task":
		if raw.Name == "" {
			return Reference{}, fmt.Errorf("task reference to %q is missing the task name", raw.Variable)
		}
		return Reference{Kind: RefTaskParameter, Name: raw.Name, Variable: raw.Variable}.withSlot(slot)
	case "item":
		return Reference{Kind: RefItemParameter, Variable: raw.Variable}.withSlot(slot)
	case "":
		if raw.Name != "" {
			return Reference{Kind: RefTaskParameter, Name: raw.Name, Variable: raw.Variable}.withSlot(slot)
		}
		return Reference{Kind: RefInputParameter, Variable: raw.Variable}.withSlot(slot)
	default:
		return Reference{}, fmt.Errorf("unknown reference type %q; expected one of inputs, tasks, item", raw.Type)
	}
}

// withSlot converts a parameter-kind reference to the kind matching slot.
func (r Reference) withSlot(slot Slot) (Reference, error) {
	if slot == ParameterSlot {
		switch r.Kind {
		case RefInputArtifact:
			r.Kind = RefInputParameter
		case RefTaskArtifact:
			r.Kind = RefTaskParameter
		}
		if r.Variable == "" && r.Kind != RefItemParameter {
			return Reference{}, fmt.Errorf("%s is missing a variable", r.Kind)
		}
		return r, nil
	}

	switch r.Kind {
	case RefInputParameter, RefInputArtifact:
		r.Kind = RefInputArtifact
	case RefTaskParameter, RefTaskArtifact:
		r.Kind = RefTaskArtifact
	case RefItemParameter:
		return Reference{}, fmt.Errorf("item references cannot feed artifacts")
	}
	if r.Variable == "" {
		return Reference{}, fmt.Errorf("%s is missing a variable", r.Kind)
	}
	return r, nil
}

var refPattern = regexp.MustCompile(`{{\s*([_a-zA-Z0-9.\-\$#\?]*)\s*}}`)

// ReferencesFromString extracts every {{...}} reference embedded in s.
//
// Accepted forms:
//
//	{{input.count}}  {{inputs.parameters.count}}  {{inputs.artifacts.model}}
//	{{tasks.t1.n}}   {{tasks.parameters.t1.n}}    {{tasks.artifacts.t1.out}}
//	{{item}}         {{item.country.city}}
func ReferencesFromString(s string) ([]Reference, error) {
	var refs []Reference
	for _, expr := range ReferenceExpressions(s) {
		ref, err := ParseReferenceString(expr)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// ReferenceExpressions returns the trimmed text inside each {{...}} in s,
// in order of appearance.
func ReferenceExpressions(s string) []string {
	matches := refPattern.FindAllStringSubmatch(s, -1)
	exprs := make([]string, 0, len(matches))
	for _, m := range matches {
		exprs = append(exprs, m[1])
	}
	return exprs
}

// ParseReferenceString parses the body of a single template reference.
// Surrounding braces are optional.
func ParseReferenceString(s string) (Reference, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "{{"), "}}")
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ".")

	switch parts[0] {
	case "input", "inputs":
		if len(parts) == 2 {
			return InputParameter(parts[1]), nil
		}
		if len(parts) == 3 {
			switch parts[1] {
			case "parameters":
				return InputParameter(parts[2]), nil
			case "artifacts":
				return InputArtifact(parts[2]), nil
			}
		}
		return Reference{}, fmt.Errorf(`input reference should be in format "input.variable" but found: %s`, s)
	case "tasks":
		if len(parts) == 3 {
			return TaskParameter(parts[1], parts[2]), nil
		}
		if len(parts) == 4 {
			switch parts[1] {
			case "parameters":
				return TaskParameter(parts[2], parts[3]), nil
			case "artifacts":
				return TaskArtifact(parts[2], parts[3]), nil
			}
		}
		return Reference{}, fmt.Errorf(`task reference should be in format "tasks.task-name.variable" but found: %s`, s)
	case "item":
		return ItemParameter(strings.Join(parts[1:], ".")), nil
	default:
		return Reference{}, fmt.Errorf("reference of type %q not recognized: %s", parts[0], s)
	}
}
