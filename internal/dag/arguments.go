package dag

import "fmt"

// ParameterArgument binds a template input parameter to a reference or a literal.
type ParameterArgument struct {
	Name  string     `yaml:"name" json:"name"`
	From  *Reference `yaml:"from,omitempty" json:"from,omitempty"`
	Value any        `yaml:"value,omitempty" json:"value,omitempty"`
}

// ArtifactArgument binds a template input artifact to a reference.
type ArtifactArgument struct {
	Name string     `yaml:"name" json:"name"`
	From *Reference `yaml:"from" json:"from"`
	// Subpath selects an entry inside a folder-valued source.
	Subpath string `yaml:"subpath,omitempty" json:"subpath,omitempty"`
}

// Arguments are the bindings a task passes to its template.
type Arguments struct {
	Parameters []ParameterArgument `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Artifacts  []ArtifactArgument  `yaml:"artifacts,omitempty" json:"artifacts,omitempty"`
}

func (a ParameterArgument) itemName() string { return a.Name }
func (a ArtifactArgument) itemName() string  { return a.Name }

// Check enforces that exactly one of from/value is set.
func (a ParameterArgument) Check() error {
	if a.Name == "" {
		return &ConstructionError{Entity: "parameter argument", Message: "name is required"}
	}
	if a.From == nil && a.Value == nil {
		return &ConstructionError{
			Entity:  "parameter argument",
			Name:    a.Name,
			Message: `value must be specified if no "from" source is specified`,
		}
	}
	if a.From != nil && a.Value != nil {
		return &ConstructionError{
			Entity:  "parameter argument",
			Name:    a.Name,
			Message: `only one of "from" or "value" may be specified`,
		}
	}
	if a.From != nil && a.From.Slot() != ParameterSlot {
		return &ConstructionError{
			Entity:  "parameter argument",
			Name:    a.Name,
			Message: fmt.Sprintf("cannot take a value from %s", a.From.Kind),
		}
	}
	return nil
}

// Check enforces that an artifact argument has a DAG or task source.
func (a ArtifactArgument) Check() error {
	if a.Name == "" {
		return &ConstructionError{Entity: "artifact argument", Message: "name is required"}
	}
	if a.From == nil {
		return &ConstructionError{Entity: "artifact argument", Name: a.Name, Message: `"from" is required`}
	}
	if a.From.Kind != RefInputArtifact && a.From.Kind != RefTaskArtifact {
		return &ConstructionError{
			Entity:  "artifact argument",
			Name:    a.Name,
			Message: fmt.Sprintf("cannot take a value from %s", a.From.Kind),
		}
	}
	return nil
}

// Check validates every argument and name uniqueness.
func (args Arguments) Check() error {
	for _, p := range args.Parameters {
		if err := p.Check(); err != nil {
			return err
		}
	}
	for _, a := range args.Artifacts {
		if err := a.Check(); err != nil {
			return err
		}
	}
	return checkUniqueIO("arguments", duplicateNames(args.Parameters), duplicateNames(args.Artifacts))
}

// ParameterByName returns the parameter argument called name.
func (args Arguments) ParameterByName(name string) (ParameterArgument, error) {
	return byName(args.Parameters, "parameter argument", name)
}

// ArtifactByName returns the artifact argument called name.
func (args Arguments) ArtifactByName(name string) (ArtifactArgument, error) {
	return byName(args.Artifacts, "artifact argument", name)
}

// ParametersByRefSource returns the parameter arguments whose reference
// originates from src. Literal-valued arguments never match.
func (args Arguments) ParametersByRefSource(src RefSource) ([]ParameterArgument, error) {
	switch src {
	case SourceDAG, SourceTask, SourceItem:
	default:
		return nil, fmt.Errorf(`reference source should be one of ["dag", "task", "item"], not %q`, src)
	}

	var out []ParameterArgument
	for _, p := range args.Parameters {
		if p.From != nil && p.From.Source() == src {
			out = append(out, p)
		}
	}
	return out, nil
}

// ArtifactsByRefSource returns the artifact arguments whose reference
// originates from src.
func (args Arguments) ArtifactsByRefSource(src RefSource) ([]ArtifactArgument, error) {
	switch src {
	case SourceDAG, SourceTask:
	default:
		return nil, fmt.Errorf(`reference source should be one of ["dag", "task"], not %q`, src)
	}

	var out []ArtifactArgument
	for _, a := range args.Artifacts {
		if a.From != nil && a.From.Source() == src {
			out = append(out, a)
		}
	}
	return out, nil
}

// mustParameters is ParametersByRefSource for sources known to be valid.
func (args Arguments) mustParameters(src RefSource) []ParameterArgument {
	out, err := args.ParametersByRefSource(src)
	if err != nil {
		panic(err)
	}
	return out
}

// mustArtifacts is ArtifactsByRefSource for sources known to be valid.
func (args Arguments) mustArtifacts(src RefSource) []ArtifactArgument {
	out, err := args.ArtifactsByRefSource(src)
	if err != nil {
		panic(err)
	}
	return out
}
