package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/AntoineDao/queenbee/internal/ctxlog"
	"github.com/AntoineDao/queenbee/internal/dag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() context.Context {
	return ctxlog.WithLogger(context.Background(), ctxlog.Discard())
}

func TestLoadDirs_Templates(t *testing.T) {
	t.Parallel()

	reg := New()
	require.NoError(t, reg.LoadDirs(testContext(), []string{filepath.Join("testdata", "templates")}, 2))

	assert.Equal(t, []string{
		"echo",
		"honeybee-radiance/create-octree",
		"honeybee-radiance/post-process",
		"honeybee-radiance/ray-tracing",
		"honeybee-radiance/split-grid",
		"nested-echo",
	}, reg.Names())

	sig, err := reg.Lookup("honeybee-radiance/create-octree")
	require.NoError(t, err)
	assert.Equal(t, []string{"scene-file"}, sig.OutputArtifacts)
	require.Len(t, sig.Inputs.Artifacts, 2)
	assert.True(t, sig.Inputs.Artifacts[0].Required)

	options, err := sig.Inputs.ParameterByName("options")
	require.NoError(t, err)
	assert.False(t, options.Required)
	assert.Equal(t, "-i", options.Default)

	split, err := reg.Lookup("honeybee-radiance/split-grid")
	require.NoError(t, err)
	weights, err := split.Inputs.ParameterByName("weights")
	require.NoError(t, err)
	assert.Equal(t, []any{0.5, 1, 2}, weights.Default)

	entry, ok := reg.Entry("nested-echo")
	require.True(t, ok)
	assert.Equal(t, KindDAG, entry.Kind)
	assert.Equal(t, []string{"result"}, entry.Signature.OutputParameters)

	echo, ok := reg.Entry("echo")
	require.True(t, ok)
	assert.Equal(t, KindFunction, echo.Kind)
	assert.Equal(t, filepath.Join("testdata", "templates", "echo.yaml"), echo.Source)
}

func TestLoadDirs_MissingDirIsSkipped(t *testing.T) {
	t.Parallel()

	reg := New()
	require.NoError(t, reg.LoadDirs(testContext(), []string{filepath.Join(t.TempDir(), "absent")}, 0))
	assert.Zero(t, reg.Len())
}

func TestLoadDirs_Errors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		files   map[string]string
		wantErr string
	}{
		"duplicate template across files": {
			files: map[string]string{
				"a.yaml": "name: echo\ncommand: echo hi\n",
				"b.yaml": "name: echo\ncommand: echo bye\n",
			},
			wantErr: `template "echo" is defined more than once`,
		},
		"unknown input in command": {
			files: map[string]string{
				"f.yaml": "name: f\ncommand: run {{inputs.missing}}\n",
			},
			wantErr: `cannot find "missing" in inputs`,
		},
		"task reference in command": {
			files: map[string]string{
				"f.yaml": "name: f\ncommand: run {{tasks.t1.n}}\n",
			},
			wantErr: "functions can only reference their own inputs",
		},
		"not a template": {
			files: map[string]string{
				"f.yaml": "foo: bar\n",
			},
			wantErr: "not a template",
		},
		"invalid DAG template": {
			files: map[string]string{
				"d.yaml": "name: d\ntasks:\n  - name: t1\n",
			},
			wantErr: "template is required",
		},
		"bad HCL": {
			files: map[string]string{
				"f.hcl": "function \"x\" {\n",
			},
			wantErr: "failed to parse HCL file",
		},
		"HCL output with unknown kind": {
			files: map[string]string{
				"f.hcl": "function \"x\" {\n  command = \"run\"\n  output \"blob\" \"y\" {\n    path = \"y\"\n  }\n}\n",
			},
			wantErr: `kind must be "parameter" or "artifact"`,
		},
		"HCL missing command": {
			files: map[string]string{
				"f.hcl": "function \"x\" {\n}\n",
			},
			wantErr: "failed to decode HCL file",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			for file, content := range tt.files {
				require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
			}

			err := New().LoadDirs(testContext(), []string{dir}, 4)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegistry_AddAndLookup(t *testing.T) {
	t.Parallel()

	reg := New()
	f := &Function{Name: "f", Command: "run"}
	require.NoError(t, reg.AddFunction(f))

	var dup *DuplicateTemplateError
	err := reg.AddFunction(f)
	require.True(t, errors.As(err, &dup))
	assert.Contains(t, err.Error(), "inline")

	_, err = reg.Lookup("g")
	assert.ErrorContains(t, err, `no template named "g"`)

	clone := reg.Clone()
	clone.Shadow(DAGEntry(&dag.DAG{Name: "f"}, "recipe.yaml"))
	e, _ := clone.Entry("f")
	assert.Equal(t, KindDAG, e.Kind)
	e, _ = reg.Entry("f")
	assert.Equal(t, KindFunction, e.Kind, "shadowing a clone leaves the original untouched")

	assert.ErrorContains(t, reg.AddDAG(&dag.DAG{}, ""), "without a name")
}

func TestRegistry_ValidatesDAGTemplates(t *testing.T) {
	t.Parallel()

	reg := New()
	require.NoError(t, reg.LoadDirs(testContext(), []string{filepath.Join("testdata", "templates")}, 1))

	result, err := dag.ParseDAGBytes([]byte(`name: uses-nested
inputs:
  parameters:
    - name: count
tasks:
  - name: outer
    template: nested-echo
    arguments:
      parameters:
        - name: count
          from: "{{inputs.count}}"
    outputs:
      parameters:
        - name: result
  - name: bad
    template: echo
`))
	require.NoError(t, err)

	report := dag.ValidateDAG(result.DAG, dag.WithRegistry(reg))
	require.True(t, report.HasErrors())
	errs := report.Errors()
	require.Len(t, errs, 1)

	var mismatch *dag.TemplateMismatchError
	require.True(t, errors.As(errs[0], &mismatch))
	assert.Equal(t, "bad", mismatch.Task)
	assert.Equal(t, "n", mismatch.Name)
}
