package dag

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ParamType is the value type of a parameter declaration.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamArray   ParamType = "array"
	ParamObject  ParamType = "object"
)

// ArtifactType is the kind of filesystem entry an artifact declares.
type ArtifactType string

const (
	ArtifactFile   ArtifactType = "file"
	ArtifactFolder ArtifactType = "folder"
	ArtifactPath   ArtifactType = "path"
)

// Parameter declares a scalar, array or object input.
type Parameter struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Type        ParamType      `yaml:"type,omitempty" json:"type,omitempty"`
	Default     any            `yaml:"default,omitempty" json:"default,omitempty"`
	Required    bool           `yaml:"required" json:"required"`
	Spec        map[string]any `yaml:"spec,omitempty" json:"spec,omitempty"`
}

// ArtifactSource describes where an artifact default would be fetched from.
// Fetching is done by the execution engine; here it is data only.
type ArtifactSource struct {
	Type     string `yaml:"type" json:"type"`
	URL      string `yaml:"url,omitempty" json:"url,omitempty"`
	Bucket   string `yaml:"bucket,omitempty" json:"bucket,omitempty"`
	Key      string `yaml:"key,omitempty" json:"key,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Path     string `yaml:"path,omitempty" json:"path,omitempty"`
}

// Artifact declares a file, folder or path input.
type Artifact struct {
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Type        ArtifactType    `yaml:"type,omitempty" json:"type,omitempty"`
	Default     *ArtifactSource `yaml:"default,omitempty" json:"default,omitempty"`
	Required    bool            `yaml:"required" json:"required"`
	Path        string          `yaml:"path,omitempty" json:"path,omitempty"`
}

// Inputs is the input IO block of a DAG or a template.
type Inputs struct {
	Parameters []Parameter `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Artifacts  []Artifact  `yaml:"artifacts,omitempty" json:"artifacts,omitempty"`
}

// OutputParameter exposes a task output parameter as a DAG output.
type OutputParameter struct {
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	From        Reference `yaml:"from" json:"from"`
}

// OutputArtifact exposes a task output artifact as a DAG output.
type OutputArtifact struct {
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	From        Reference `yaml:"from" json:"from"`
}

// Outputs is the output IO block of a DAG.
type Outputs struct {
	Parameters []OutputParameter `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Artifacts  []OutputArtifact  `yaml:"artifacts,omitempty" json:"artifacts,omitempty"`
}

// TaskOutputParameter names an output parameter a task exposes downstream.
type TaskOutputParameter struct {
	Name string `yaml:"name" json:"name"`
}

// TaskOutputArtifact names an output artifact a task exposes downstream.
type TaskOutputArtifact struct {
	Name string `yaml:"name" json:"name"`
	// Path is where the artifact is saved relative to the DAG folder.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// TaskOutputs is the output IO block of a task.
type TaskOutputs struct {
	Parameters []TaskOutputParameter `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Artifacts  []TaskOutputArtifact  `yaml:"artifacts,omitempty" json:"artifacts,omitempty"`
}

func (p Parameter) itemName() string           { return p.Name }
func (a Artifact) itemName() string            { return a.Name }
func (o OutputParameter) itemName() string     { return o.Name }
func (o OutputArtifact) itemName() string      { return o.Name }
func (o TaskOutputParameter) itemName() string { return o.Name }
func (o TaskOutputArtifact) itemName() string  { return o.Name }

type named interface {
	itemName() string
}

// byName returns the first item called name.
func byName[T named](items []T, kind, name string) (T, error) {
	for _, item := range items {
		if item.itemName() == name {
			return item, nil
		}
	}
	var zero T
	return zero, &NotFoundError{Kind: kind, Name: name, Available: names(items)}
}

func names[T named](items []T) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.itemName()
	}
	return out
}

// duplicateNames returns names occurring more than once, in first-seen order.
func duplicateNames[T named](items []T) []string {
	counts := make(map[string]int, len(items))
	var order []string
	for _, item := range items {
		n := item.itemName()
		if counts[n] == 0 {
			order = append(order, n)
		}
		counts[n]++
	}
	var dups []string
	for _, n := range order {
		if counts[n] > 1 {
			dups = append(dups, n)
		}
	}
	return dups
}

// ParameterByName returns the input parameter called name.
func (in Inputs) ParameterByName(name string) (Parameter, error) {
	return byName(in.Parameters, "input parameter", name)
}

// ArtifactByName returns the input artifact called name.
func (in Inputs) ArtifactByName(name string) (Artifact, error) {
	return byName(in.Artifacts, "input artifact", name)
}

// ParameterByName returns the output parameter called name.
func (o Outputs) ParameterByName(name string) (OutputParameter, error) {
	return byName(o.Parameters, "output parameter", name)
}

// ArtifactByName returns the output artifact called name.
func (o Outputs) ArtifactByName(name string) (OutputArtifact, error) {
	return byName(o.Artifacts, "output artifact", name)
}

// ParameterByName returns the task output parameter called name.
func (o TaskOutputs) ParameterByName(name string) (TaskOutputParameter, error) {
	return byName(o.Parameters, "task output parameter", name)
}

// ArtifactByName returns the task output artifact called name.
func (o TaskOutputs) ArtifactByName(name string) (TaskOutputArtifact, error) {
	return byName(o.Artifacts, "task output artifact", name)
}

// Check enforces the invariants a parameter declaration carries on its own.
func (p Parameter) Check() error {
	if p.Name == "" {
		return &ConstructionError{Entity: "parameter", Message: "name is required"}
	}
	if p.Default == nil && !p.Required {
		return &ConstructionError{
			Entity:  "parameter",
			Name:    p.Name,
			Message: "required should be true if no default is provided",
		}
	}
	switch p.Type {
	case "", ParamString, ParamInteger, ParamNumber, ParamBoolean, ParamArray, ParamObject:
	default:
		return &ConstructionError{Entity: "parameter", Name: p.Name, Message: fmt.Sprintf("unknown parameter type %q", p.Type)}
	}
	if p.Default != nil && p.Type != "" && !valueMatchesType(p.Default, p.Type) {
		return &ConstructionError{
			Entity:  "parameter",
			Name:    p.Name,
			Message: fmt.Sprintf("default %v is not of type %s", p.Default, p.Type),
		}
	}
	if p.Spec != nil {
		if err := checkSpec(p); err != nil {
			return &ConstructionError{Entity: "parameter", Name: p.Name, Message: err.Error()}
		}
	}
	return nil
}

// Check enforces the invariants an artifact declaration carries on its own.
func (a Artifact) Check() error {
	if a.Name == "" {
		return &ConstructionError{Entity: "artifact", Message: "name is required"}
	}
	if a.Default == nil && !a.Required {
		return &ConstructionError{
			Entity:  "artifact",
			Name:    a.Name,
			Message: "required should be true if no default is provided",
		}
	}
	switch a.Type {
	case "", ArtifactFile, ArtifactFolder, ArtifactPath:
	default:
		return &ConstructionError{Entity: "artifact", Name: a.Name, Message: fmt.Sprintf("unknown artifact type %q", a.Type)}
	}
	if a.Default != nil {
		switch a.Default.Type {
		case "http", "s3", "project-folder":
		default:
			return &ConstructionError{
				Entity:  "artifact",
				Name:    a.Name,
				Message: fmt.Sprintf("unknown artifact source type %q; expected http, s3 or project-folder", a.Default.Type),
			}
		}
	}
	return nil
}

// Check validates every declaration and name uniqueness within each list.
func (in Inputs) Check() error {
	for _, p := range in.Parameters {
		if err := p.Check(); err != nil {
			return err
		}
	}
	for _, a := range in.Artifacts {
		if err := a.Check(); err != nil {
			return err
		}
	}
	return checkUniqueIO("inputs", duplicateNames(in.Parameters), duplicateNames(in.Artifacts))
}

// Check validates DAG output declarations: unique names, task-sourced refs only.
func (o Outputs) Check() error {
	for _, p := range o.Parameters {
		if p.From.Kind != RefTaskParameter {
			return &ConstructionError{
				Entity:  "output parameter",
				Name:    p.Name,
				Message: fmt.Sprintf("must come from a TaskParameterReference, got %s", p.From.Kind),
			}
		}
	}
	for _, a := range o.Artifacts {
		if a.From.Kind != RefTaskArtifact {
			return &ConstructionError{
				Entity:  "output artifact",
				Name:    a.Name,
				Message: fmt.Sprintf("must come from a TaskArtifactReference, got %s", a.From.Kind),
			}
		}
	}
	return checkUniqueIO("outputs", duplicateNames(o.Parameters), duplicateNames(o.Artifacts))
}

// Check validates task output names are unique.
func (o TaskOutputs) Check() error {
	return checkUniqueIO("task outputs", duplicateNames(o.Parameters), duplicateNames(o.Artifacts))
}

func checkUniqueIO(block string, params, artifacts []string) error {
	if len(params) > 0 {
		return &ConstructionError{Entity: block, Message: fmt.Sprintf("duplicate parameter names: %v", params)}
	}
	if len(artifacts) > 0 {
		return &ConstructionError{Entity: block, Message: fmt.Sprintf("duplicate artifact names: %v", artifacts)}
	}
	return nil
}

// valueMatchesType reports whether a decoded YAML/JSON value fits t.
func valueMatchesType(v any, t ParamType) bool {
	switch t {
	case ParamString:
		_, ok := v.(string)
		return ok
	case ParamInteger:
		switch n := v.(type) {
		case int, int64, uint64:
			return true
		case float64:
			return n == float64(int64(n))
		}
		return false
	case ParamNumber:
		switch v.(type) {
		case int, int64, uint64, float64:
			return true
		}
		return false
	case ParamBoolean:
		_, ok := v.(bool)
		return ok
	case ParamArray:
		_, ok := v.([]any)
		return ok
	case ParamObject:
		_, ok := v.(map[string]any)
		return ok
	default:
		return false
	}
}

// checkSpec compiles the parameter's JSON Schema and validates its default.
func checkSpec(p Parameter) error {
	schema := make(map[string]any, len(p.Spec)+1)
	for k, v := range p.Spec {
		schema[k] = v
	}
	if _, ok := schema["type"]; !ok && p.Type != "" {
		schema["type"] = string(p.Type)
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("encoding spec: %w", err)
	}
	compiled, err := jsonschema.CompileString(p.Name+".schema.json", string(raw))
	if err != nil {
		return fmt.Errorf("invalid spec: %w", err)
	}

	if p.Default == nil {
		return nil
	}
	value, err := normalizeJSON(p.Default)
	if err != nil {
		return fmt.Errorf("encoding default: %w", err)
	}
	if err := compiled.Validate(value); err != nil {
		return fmt.Errorf("default does not match spec: %w", err)
	}
	return nil
}

// normalizeJSON round-trips v through encoding/json so the schema validator
// sees the value shapes it expects.
func normalizeJSON(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
