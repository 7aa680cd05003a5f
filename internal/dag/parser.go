package dag

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseResult contains the parsed DAG and source location information.
type ParseResult struct {
	DAG       *DAG
	NodeInfos map[string]NodeInfo // Maps path (e.g., "tasks[0].arguments.parameters[1].from") to location
}

// NodeInfo stores source location information for a YAML node.
type NodeInfo struct {
	Line   int
	Column int
}

// ParseDAGFile parses a DAG document from a YAML or JSON file.
// Construction errors fail the parse; graph-level problems are left to Validate.
func ParseDAGFile(path string) (*ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading DAG file: %w", err)
	}

	return ParseDAGBytes(data)
}

// ParseDAGBytes parses a DAG document from YAML (or JSON) bytes.
func ParseDAGBytes(data []byte) (*ParseResult, error) {
	var rootNode yaml.Node
	if err := yaml.Unmarshal(data, &rootNode); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	if rootNode.Kind != yaml.DocumentNode || len(rootNode.Content) == 0 {
		return nil, fmt.Errorf("parsing YAML: empty document")
	}

	return ParseDAGNode(rootNode.Content[0])
}

// ParseDAGNode builds a DAG from an already-decoded mapping node. Paths in
// the returned NodeInfos are relative to node.
func ParseDAGNode(node *yaml.Node) (*ParseResult, error) {
	if node.Kind != yaml.MappingNode {
		return nil, &ParseError{Line: node.Line, Column: node.Column, Message: "expected mapping node at root"}
	}

	result := &ParseResult{NodeInfos: make(map[string]NodeInfo)}
	indexNode(node, "", result.NodeInfos)

	var raw rawDAG
	if err := node.Decode(&raw); err != nil {
		return nil, decodeError(node, err)
	}

	b := &builder{infos: result.NodeInfos}
	d, err := b.dag(raw)
	if err != nil {
		return nil, err
	}
	result.DAG = d
	return result, nil
}

// indexNode records the position of every node under path.
func indexNode(node *yaml.Node, path string, infos map[string]NodeInfo) {
	if path != "" {
		infos[path] = NodeInfo{Line: node.Line, Column: node.Column}
	}

	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			child := key
			if path != "" {
				child = path + "." + key
			}
			indexNode(node.Content[i+1], child, infos)
		}
	case yaml.SequenceNode:
		for i, item := range node.Content {
			indexNode(item, fmt.Sprintf("%s[%d]", path, i), infos)
		}
	}
}

func decodeError(node *yaml.Node, err error) error {
	msg := err.Error()
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
		msg = typeErr.Errors[0]
	}

	// yaml.v3 prefixes type errors with "line N: ".
	perr := &ParseError{Line: node.Line, Column: node.Column, Message: msg}
	var line int
	if n, _ := fmt.Sscanf(msg, "line %d:", &line); n == 1 {
		perr.Line, perr.Column = line, 0
		perr.Message = strings.TrimSpace(msg[strings.Index(msg, ":")+1:])
	}
	return perr
}

type rawDAG struct {
	Name     string     `yaml:"name"`
	Inputs   rawInputs  `yaml:"inputs"`
	Outputs  rawOutputs `yaml:"outputs"`
	FailFast *bool      `yaml:"fail_fast"`
	Tasks    []rawTask  `yaml:"tasks"`
}

type rawParameter struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Type        ParamType      `yaml:"type"`
	Default     any            `yaml:"default"`
	Required    *bool          `yaml:"required"`
	Spec        map[string]any `yaml:"spec"`
}

type rawArtifact struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Type        ArtifactType    `yaml:"type"`
	Default     *ArtifactSource `yaml:"default"`
	Required    *bool           `yaml:"required"`
	Path        string          `yaml:"path"`
}

type rawInputs struct {
	Parameters []rawParameter `yaml:"parameters"`
	Artifacts  []rawArtifact  `yaml:"artifacts"`
}

type rawOutput struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	From        *rawReference `yaml:"from"`
}

type rawOutputs struct {
	Parameters []rawOutput `yaml:"parameters"`
	Artifacts  []rawOutput `yaml:"artifacts"`
}

type rawParameterArgument struct {
	Name  string        `yaml:"name"`
	From  *rawReference `yaml:"from"`
	Value any           `yaml:"value"`
}

type rawArtifactArgument struct {
	Name    string        `yaml:"name"`
	From    *rawReference `yaml:"from"`
	Subpath string        `yaml:"subpath"`
}

type rawArguments struct {
	Parameters []rawParameterArgument `yaml:"parameters"`
	Artifacts  []rawArtifactArgument  `yaml:"artifacts"`
}

type rawLoop struct {
	From       *rawReference `yaml:"from"`
	Value      []any         `yaml:"value"`
	SubFolders []string      `yaml:"sub_folders"`
}

type rawTask struct {
	Name         string       `yaml:"name"`
	Template     string       `yaml:"template"`
	Arguments    rawArguments `yaml:"arguments"`
	Dependencies []string     `yaml:"dependencies"`
	Loop         *rawLoop     `yaml:"loop"`
	Outputs      TaskOutputs  `yaml:"outputs"`
}

// builder turns raw documents into model entities, failing on the first
// construction error and tagging it with its path and position.
type builder struct {
	infos map[string]NodeInfo
}

func (b *builder) fail(err error, path string) error {
	var ce *ConstructionError
	if errors.As(err, &ce) {
		if ce.Path == "" {
			ce.Path = path
		}
		if info, ok := b.infos[ce.Path]; ok {
			ce.Location = Location{Line: info.Line, Column: info.Column}
		}
	}
	return err
}

func (b *builder) ref(raw *rawReference, slot Slot, entity, name, path string) (*Reference, error) {
	if raw == nil {
		return nil, nil
	}
	ref, err := parseReference(*raw, slot)
	if err != nil {
		return nil, b.fail(&ConstructionError{Entity: entity, Name: name, Message: err.Error()}, path)
	}
	return &ref, nil
}

func (b *builder) dag(raw rawDAG) (*DAG, error) {
	d := &DAG{Name: raw.Name, FailFast: true}
	if raw.FailFast != nil {
		d.FailFast = *raw.FailFast
	}
	if d.Name == "" {
		return nil, b.fail(&ConstructionError{Entity: "dag", Message: "name is required"}, "name")
	}

	inputs, err := b.inputs(raw.Inputs, "inputs")
	if err != nil {
		return nil, err
	}
	d.Inputs = inputs

	outputs, err := b.outputs(raw.Outputs)
	if err != nil {
		return nil, err
	}
	d.Outputs = outputs

	for i, rt := range raw.Tasks {
		task, err := b.task(rt, fmt.Sprintf("tasks[%d]", i))
		if err != nil {
			return nil, err
		}
		d.Tasks = append(d.Tasks, task)
	}

	return d, nil
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// inputs builds an input IO block. Template loaders reach it through ParseInputsNode.
func (b *builder) inputs(raw rawInputs, prefix string) (Inputs, error) {
	var in Inputs
	for i, rp := range raw.Parameters {
		p := Parameter{
			Name:        rp.Name,
			Description: rp.Description,
			Type:        rp.Type,
			Default:     rp.Default,
			Spec:        rp.Spec,
		}
		if rp.Required != nil {
			p.Required = *rp.Required
		} else {
			p.Required = rp.Default == nil
		}
		if err := p.Check(); err != nil {
			return Inputs{}, b.fail(err, joinPath(prefix, fmt.Sprintf("parameters[%d]", i)))
		}
		in.Parameters = append(in.Parameters, p)
	}

	for i, ra := range raw.Artifacts {
		a := Artifact{
			Name:        ra.Name,
			Description: ra.Description,
			Type:        ra.Type,
			Default:     ra.Default,
			Path:        ra.Path,
		}
		if ra.Required != nil {
			a.Required = *ra.Required
		} else {
			a.Required = ra.Default == nil
		}
		if err := a.Check(); err != nil {
			return Inputs{}, b.fail(err, joinPath(prefix, fmt.Sprintf("artifacts[%d]", i)))
		}
		in.Artifacts = append(in.Artifacts, a)
	}

	if err := in.Check(); err != nil {
		return Inputs{}, b.fail(err, prefix)
	}
	return in, nil
}

func (b *builder) outputs(raw rawOutputs) (Outputs, error) {
	var out Outputs
	for i, ro := range raw.Parameters {
		path := fmt.Sprintf("outputs.parameters[%d]", i)
		if ro.From == nil {
			return Outputs{}, b.fail(&ConstructionError{Entity: "output parameter", Name: ro.Name, Message: `"from" is required`}, path)
		}
		ref, err := b.ref(ro.From, ParameterSlot, "output parameter", ro.Name, path+".from")
		if err != nil {
			return Outputs{}, err
		}
		out.Parameters = append(out.Parameters, OutputParameter{Name: ro.Name, Description: ro.Description, From: *ref})
	}
	for i, ro := range raw.Artifacts {
		path := fmt.Sprintf("outputs.artifacts[%d]", i)
		if ro.From == nil {
			return Outputs{}, b.fail(&ConstructionError{Entity: "output artifact", Name: ro.Name, Message: `"from" is required`}, path)
		}
		ref, err := b.ref(ro.From, ArtifactSlot, "output artifact", ro.Name, path+".from")
		if err != nil {
			return Outputs{}, err
		}
		out.Artifacts = append(out.Artifacts, OutputArtifact{Name: ro.Name, Description: ro.Description, From: *ref})
	}

	if err := out.Check(); err != nil {
		return Outputs{}, b.fail(err, "outputs")
	}
	return out, nil
}

func (b *builder) task(raw rawTask, prefix string) (Task, error) {
	t := Task{
		Name:         raw.Name,
		Template:     raw.Template,
		Dependencies: raw.Dependencies,
		Outputs:      raw.Outputs,
	}

	for i, rp := range raw.Arguments.Parameters {
		path := fmt.Sprintf("%s.arguments.parameters[%d]", prefix, i)
		ref, err := b.ref(rp.From, ParameterSlot, "parameter argument", rp.Name, path+".from")
		if err != nil {
			return Task{}, withTask(err, t.Name)
		}
		arg := ParameterArgument{Name: rp.Name, From: ref, Value: rp.Value}
		if err := arg.Check(); err != nil {
			return Task{}, b.fail(withTask(err, t.Name), path)
		}
		t.Arguments.Parameters = append(t.Arguments.Parameters, arg)
	}

	for i, ra := range raw.Arguments.Artifacts {
		path := fmt.Sprintf("%s.arguments.artifacts[%d]", prefix, i)
		ref, err := b.ref(ra.From, ArtifactSlot, "artifact argument", ra.Name, path+".from")
		if err != nil {
			return Task{}, withTask(err, t.Name)
		}
		arg := ArtifactArgument{Name: ra.Name, From: ref, Subpath: ra.Subpath}
		if err := arg.Check(); err != nil {
			return Task{}, b.fail(withTask(err, t.Name), path)
		}
		t.Arguments.Artifacts = append(t.Arguments.Artifacts, arg)
	}

	if raw.Loop != nil {
		ref, err := b.ref(raw.Loop.From, ParameterSlot, "loop", "", prefix+".loop.from")
		if err != nil {
			return Task{}, withTask(err, t.Name)
		}
		t.Loop = &Loop{From: ref, Value: raw.Loop.Value, SubFolders: raw.Loop.SubFolders}
		if len(t.Loop.SubFolders) == 0 {
			t.Loop.SubFolders = append([]string(nil), DefaultSubFolders...)
		}
	}

	if err := t.Check(); err != nil {
		return Task{}, b.fail(err, prefix)
	}
	return t, nil
}

// ParseInputsNode builds an input IO block from a mapping node, applying the
// same construction checks as DAG inputs. Template loaders use it for
// Function inputs.
func ParseInputsNode(node *yaml.Node) (Inputs, error) {
	infos := make(map[string]NodeInfo)
	indexNode(node, "", infos)

	var raw rawInputs
	if err := node.Decode(&raw); err != nil {
		return Inputs{}, decodeError(node, err)
	}
	b := &builder{infos: infos}
	return b.inputs(raw, "")
}
