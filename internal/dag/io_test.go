package dag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameter_Check(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		param   Parameter
		wantErr string
	}{
		"required without default": {
			param: Parameter{Name: "count", Required: true},
		},
		"optional with default": {
			param: Parameter{Name: "count", Default: 3},
		},
		"not required and no default": {
			param:   Parameter{Name: "count"},
			wantErr: "required should be true if no default is provided",
		},
		"missing name": {
			param:   Parameter{Required: true},
			wantErr: "name is required",
		},
		"falsy default still counts as a default": {
			param: Parameter{Name: "flag", Type: ParamBoolean, Default: false},
		},
		"default of wrong type": {
			param:   Parameter{Name: "count", Type: ParamInteger, Default: "three"},
			wantErr: "is not of type integer",
		},
		"whole float accepted as integer": {
			param: Parameter{Name: "count", Type: ParamInteger, Default: 4.0},
		},
		"unknown type": {
			param:   Parameter{Name: "count", Type: "decimal", Required: true},
			wantErr: "unknown parameter type",
		},
		"default within spec bounds": {
			param: Parameter{
				Name:    "count",
				Type:    ParamInteger,
				Default: 5,
				Spec:    map[string]any{"minimum": 1, "maximum": 10},
			},
		},
		"default outside spec bounds": {
			param: Parameter{
				Name:    "count",
				Type:    ParamInteger,
				Default: 50,
				Spec:    map[string]any{"minimum": 1, "maximum": 10},
			},
			wantErr: "default does not match spec",
		},
		"spec that does not compile": {
			param: Parameter{
				Name:     "count",
				Required: true,
				Spec:     map[string]any{"type": 12},
			},
			wantErr: "invalid spec",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tt.param.Check()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ce *ConstructionError
			require.True(t, errors.As(err, &ce), "want ConstructionError, got %T", err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestArtifact_Check(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		artifact Artifact
		wantErr  string
	}{
		"required folder": {
			artifact: Artifact{Name: "model", Type: ArtifactFolder, Required: true},
		},
		"default from http": {
			artifact: Artifact{Name: "model", Default: &ArtifactSource{Type: "http", URL: "https://example.com/m.zip"}},
		},
		"not required and no default": {
			artifact: Artifact{Name: "model"},
			wantErr:  "required should be true",
		},
		"unknown artifact type": {
			artifact: Artifact{Name: "model", Type: "blob", Required: true},
			wantErr:  "unknown artifact type",
		},
		"unknown source type": {
			artifact: Artifact{Name: "model", Default: &ArtifactSource{Type: "ftp"}},
			wantErr:  "unknown artifact source type",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tt.artifact.Check()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInputs_ByName(t *testing.T) {
	t.Parallel()

	in := Inputs{
		Parameters: []Parameter{{Name: "count", Required: true}, {Name: "label", Default: "x"}},
		Artifacts:  []Artifact{{Name: "model", Required: true}},
	}

	p, err := in.ParameterByName("label")
	require.NoError(t, err)
	assert.Equal(t, "x", p.Default)

	a, err := in.ArtifactByName("model")
	require.NoError(t, err)
	assert.Equal(t, "model", a.Name)

	_, err = in.ParameterByName("model")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "model", nf.Name)
	assert.Equal(t, []string{"count", "label"}, nf.Available)

	_, err = Inputs{}.ArtifactByName("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none declared")
}

func TestIOBlocks_DuplicateNames(t *testing.T) {
	t.Parallel()

	in := Inputs{Parameters: []Parameter{{Name: "a", Required: true}, {Name: "a", Required: true}}}
	err := in.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate parameter names: [a]")

	out := TaskOutputs{Artifacts: []TaskOutputArtifact{{Name: "o", Path: "a"}, {Name: "o", Path: "b"}}}
	err = out.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate artifact names: [o]")
}

func TestOutputs_Check(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		outputs Outputs
		wantErr string
	}{
		"task sourced": {
			outputs: Outputs{
				Parameters: []OutputParameter{{Name: "result", From: TaskParameter("t1", "n")}},
				Artifacts:  []OutputArtifact{{Name: "grid", From: TaskArtifact("t1", "grid")}},
			},
		},
		"parameter from DAG input": {
			outputs: Outputs{Parameters: []OutputParameter{{Name: "result", From: InputParameter("count")}}},
			wantErr: "must come from a TaskParameterReference",
		},
		"artifact from parameter reference": {
			outputs: Outputs{Artifacts: []OutputArtifact{{Name: "grid", From: TaskParameter("t1", "grid")}}},
			wantErr: "must come from a TaskArtifactReference",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tt.outputs.Check()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
