package registry

import (
	"fmt"
	"math/big"

	"github.com/AntoineDao/queenbee/internal/dag"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// hclManifest is the top-level structure of an HCL function manifest.
// A manifest may declare any number of functions.
type hclManifest struct {
	Functions []*hclFunction `hcl:"function,block"`
	Remain    hcl.Body       `hcl:",remain"`
}

type hclFunction struct {
	Name        string          `hcl:"name,label"`
	Description string          `hcl:"description,optional"`
	Command     string          `hcl:"command"`
	Parameters  []*hclParameter `hcl:"parameter,block"`
	Artifacts   []*hclArtifact  `hcl:"artifact,block"`
	Outputs     []*hclOutput    `hcl:"output,block"`
}

type hclParameter struct {
	Name        string     `hcl:"name,label"`
	Description string     `hcl:"description,optional"`
	Type        string     `hcl:"type,optional"`
	Default     *cty.Value `hcl:"default,optional"`
	Required    *bool      `hcl:"required,optional"`
}

type hclArtifact struct {
	Name        string `hcl:"name,label"`
	Description string `hcl:"description,optional"`
	Type        string `hcl:"type,optional"`
	Path        string `hcl:"path"`
}

// hclOutput is `output "parameter" "name" { path = "..." }` or
// `output "artifact" "name" { ... }`.
type hclOutput struct {
	Kind        string `hcl:"kind,label"`
	Name        string `hcl:"name,label"`
	Description string `hcl:"description,optional"`
	Path        string `hcl:"path"`
}

// parseHCLFunctions decodes every function block of an HCL manifest.
func parseHCLFunctions(parser *hclparse.Parser, path string) ([]*Function, error) {
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var manifest hclManifest
	diags = gohcl.DecodeBody(file.Body, nil, &manifest)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	functions := make([]*Function, 0, len(manifest.Functions))
	for _, hf := range manifest.Functions {
		f, err := hf.translate()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := f.Check(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		f.Source = path
		functions = append(functions, f)
	}
	return functions, nil
}

func (hf *hclFunction) translate() (*Function, error) {
	f := &Function{Name: hf.Name, Description: hf.Description, Command: hf.Command}

	for _, hp := range hf.Parameters {
		p := dag.Parameter{Name: hp.Name, Description: hp.Description, Type: dag.ParamType(hp.Type)}
		if hp.Default != nil {
			v, err := ctyToGo(*hp.Default)
			if err != nil {
				return nil, fmt.Errorf("function %q parameter %q default: %w", hf.Name, hp.Name, err)
			}
			p.Default = v
		}
		if hp.Required != nil {
			p.Required = *hp.Required
		} else {
			p.Required = p.Default == nil
		}
		f.Inputs.Parameters = append(f.Inputs.Parameters, p)
	}

	for _, ha := range hf.Artifacts {
		f.Inputs.Artifacts = append(f.Inputs.Artifacts, dag.Artifact{
			Name:        ha.Name,
			Description: ha.Description,
			Type:        dag.ArtifactType(ha.Type),
			Path:        ha.Path,
			Required:    true,
		})
	}

	for _, ho := range hf.Outputs {
		out := FunctionOutput{Name: ho.Name, Description: ho.Description, Path: ho.Path}
		switch ho.Kind {
		case "parameter":
			f.Outputs.Parameters = append(f.Outputs.Parameters, out)
		case "artifact":
			f.Outputs.Artifacts = append(f.Outputs.Artifacts, out)
		default:
			return nil, fmt.Errorf("function %q output %q: kind must be \"parameter\" or \"artifact\", got %q", hf.Name, ho.Name, ho.Kind)
		}
	}

	return f, nil
}

// ctyToGo converts a cty value into the shapes the YAML decoder produces:
// whole numbers become int, other numbers float64.
func ctyToGo(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}

	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty == cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return int(i), nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			converted, err := ctyToGo(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = converted
		}
		return out, nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := []any{}
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			converted, err := ctyToGo(v)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
