package dag

import (
	"encoding/json"
	"fmt"
)

// DefaultSubFolders is the loop key path used when a loop omits sub_folders.
var DefaultSubFolders = []string{"item"}

// Loop makes a task run once per element of a list.
type Loop struct {
	// From points at a list-valued DAG input or task output parameter.
	From *Reference `yaml:"from,omitempty" json:"from,omitempty"`
	// Value is an inline list of strings, numbers or objects. An empty
	// non-nil list is a valid source that yields no iterations.
	Value []any `yaml:"value,omitempty" json:"value,omitempty"`
	// SubFolders is the ordered key path used when list items are objects.
	SubFolders []string `yaml:"sub_folders,omitempty" json:"sub_folders,omitempty"`
}

// Check enforces that a loop has exactly one list source.
func (l Loop) Check() error {
	if l.From == nil && l.Value == nil {
		return &ConstructionError{Entity: "loop", Message: `one of "from" or "value" is required`}
	}
	if l.From != nil && l.Value != nil {
		return &ConstructionError{Entity: "loop", Message: `only one of "from" or "value" may be specified`}
	}
	if l.From != nil && l.From.Kind != RefInputParameter && l.From.Kind != RefTaskParameter {
		return &ConstructionError{
			Entity:  "loop",
			Message: fmt.Sprintf("can only loop over a DAG input or task output parameter, got %s", l.From.Kind),
		}
	}
	return nil
}

// loopDoc is the serialized form of Loop. Value is a pointer so that an
// empty inline list is written out instead of dropped.
type loopDoc struct {
	From       *Reference `yaml:"from,omitempty" json:"from,omitempty"`
	Value      *[]any     `yaml:"value,omitempty" json:"value,omitempty"`
	SubFolders []string   `yaml:"sub_folders,omitempty" json:"sub_folders,omitempty"`
}

func (l Loop) doc() loopDoc {
	d := loopDoc{From: l.From, SubFolders: l.SubFolders}
	if l.Value != nil {
		v := l.Value
		d.Value = &v
	}
	return d
}

// MarshalYAML implements yaml.Marshaler.
func (l Loop) MarshalYAML() (interface{}, error) {
	return l.doc(), nil
}

// MarshalJSON implements json.Marshaler.
func (l Loop) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.doc())
}

// Task is one node of a DAG. It binds a template to concrete arguments.
type Task struct {
	// Name must be unique within the owning DAG.
	Name string `yaml:"name" json:"name"`
	// Template is resolved by the template registry, not by the DAG.
	Template     string      `yaml:"template" json:"template"`
	Arguments    Arguments   `yaml:"arguments,omitempty" json:"arguments,omitempty"`
	Dependencies []string    `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Loop         *Loop       `yaml:"loop,omitempty" json:"loop,omitempty"`
	Outputs      TaskOutputs `yaml:"outputs,omitempty" json:"outputs,omitempty"`
}

func (t Task) itemName() string { return t.Name }

// IsRoot reports whether the task has no dependencies.
func (t Task) IsRoot() bool {
	return len(t.Dependencies) == 0
}

// Check enforces the invariants a task carries on its own fields,
// including that item references only appear in looped tasks.
func (t Task) Check() error {
	if t.Name == "" {
		return &ConstructionError{Entity: "task", Message: "name is required"}
	}
	if t.Template == "" {
		return &ConstructionError{Entity: "task", Name: t.Name, Message: "template is required"}
	}
	if err := t.Arguments.Check(); err != nil {
		return withTask(err, t.Name)
	}
	if err := t.Outputs.Check(); err != nil {
		return withTask(err, t.Name)
	}
	if t.Loop != nil {
		if err := t.Loop.Check(); err != nil {
			return withTask(err, t.Name)
		}
		return nil
	}
	if items := t.Arguments.mustParameters(SourceItem); len(items) > 0 {
		return &ConstructionError{
			Entity:  "task",
			Name:    t.Name,
			Message: fmt.Sprintf(`cannot use "item" references in argument parameters if no "loop" is specified (argument %q)`, items[0].Name),
		}
	}
	return nil
}

// DAG is a directed acyclic graph of tasks forming one workflow level.
// It owns its tasks and IO declarations; tasks refer to each other by name.
type DAG struct {
	Name    string  `yaml:"name" json:"name"`
	Inputs  Inputs  `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Outputs Outputs `yaml:"outputs,omitempty" json:"outputs,omitempty"`
	// FailFast is read by the execution engine only.
	FailFast bool   `yaml:"fail_fast" json:"fail_fast"`
	Tasks    []Task `yaml:"tasks" json:"tasks"`
}

// Check runs every construction-time check on the DAG and its entities.
// It stops at the first failure.
func (d *DAG) Check() error {
	if d.Name == "" {
		return &ConstructionError{Entity: "dag", Message: "name is required"}
	}
	if err := d.Inputs.Check(); err != nil {
		return err
	}
	if err := d.Outputs.Check(); err != nil {
		return err
	}
	for _, t := range d.Tasks {
		if err := t.Check(); err != nil {
			return err
		}
	}
	return nil
}

// TaskNames returns the task names in declaration order.
func (d *DAG) TaskNames() []string {
	out := make([]string, len(d.Tasks))
	for i, t := range d.Tasks {
		out[i] = t.Name
	}
	return out
}
