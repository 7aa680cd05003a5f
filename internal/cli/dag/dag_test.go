package dag

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/AntoineDao/queenbee/internal/cli/shared"
	"github.com/AntoineDao/queenbee/internal/config"
	"github.com/AntoineDao/queenbee/internal/ctxlog"
	internaldag "github.com/AntoineDao/queenbee/internal/dag"
	clierrors "github.com/AntoineDao/queenbee/internal/errors"
	"github.com/AntoineDao/queenbee/internal/output"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

const validDAG = `name: pipeline
inputs:
  parameters:
    - name: greeting
      default: hello
tasks:
  - name: first
    template: echo
    arguments:
      parameters:
        - name: message
          from: "{{inputs.greeting}}"
    outputs:
      parameters:
        - name: value
  - name: second
    template: echo
    dependencies: [first]
    arguments:
      parameters:
        - name: message
          from: "{{tasks.first.value}}"
`

const cyclicDAG = `name: loop
tasks:
  - name: a
    template: echo
    dependencies: [b]
  - name: b
    template: echo
    dependencies: [a]
`

const undeclaredDAG = `name: loose
tasks:
  - name: first
    template: echo
    outputs:
      parameters:
        - name: value
  - name: second
    template: echo
    arguments:
      parameters:
        - name: message
          from: "{{tasks.first.value}}"
`

const echoFunction = `name: echo
inputs:
  parameters:
    - name: message
      default: hi
command: echo {{inputs.message}}
outputs:
  parameters:
    - name: value
      path: out.txt
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testContext() context.Context {
	return ctxlog.WithLogger(context.Background(), ctxlog.Discard())
}

func TestDagCmd_Structure(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "dag", DagCmd.Use)
	names := make(map[string]bool)
	for _, c := range DagCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"validate", "visualize", "fmt"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}

	for _, cmd := range []*cobra.Command{validateCmd, visualizeCmd, fmtCmd} {
		assert.NotEmpty(t, cmd.Short, cmd.Name())
		assert.NotEmpty(t, cmd.Long, cmd.Name())
		assert.NotEmpty(t, cmd.Example, cmd.Name())
	}
}

func TestValidateFileArg(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := writeFile(t, dir, "d.yaml", validDAG)

	tests := map[string]struct {
		path    string
		wantErr string
	}{
		"existing file": {path: file},
		"missing file":  {path: filepath.Join(dir, "nope.yaml"), wantErr: "file not found"},
		"directory":     {path: dir, wantErr: "expected file, got directory"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := validateFileArg(tt.path)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolveValidateOptions(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		args    []string
		cfg     func(c *config.Configuration)
		want    validateOptions
		wantErr bool
	}{
		"defaults from config": {
			want: validateOptions{Format: "text", MaxParallel: 4},
		},
		"config values": {
			cfg: func(c *config.Configuration) {
				c.StrictDependencies = true
				c.OutputFormat = "json"
				c.MaxParallel = 2
			},
			want: validateOptions{Strict: true, Format: "json", MaxParallel: 2},
		},
		"flags override config": {
			args: []string{"--strict=false", "--format", "json", "--quiet"},
			cfg: func(c *config.Configuration) {
				c.StrictDependencies = true
			},
			want: validateOptions{Format: "json", Quiet: true, MaxParallel: 4},
		},
		"unknown format": {
			args:    []string{"--format", "xml"},
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cmd := &cobra.Command{Use: "validate"}
			addValidateFlags(cmd)
			require.NoError(t, cmd.Flags().Parse(tt.args))

			cfg := config.Default()
			if tt.cfg != nil {
				tt.cfg(cfg)
			}

			got, err := resolveValidateOptions(cmd, cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, clierrors.Argument, clierrors.AsCLIError(err).Category)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "valid.yaml", validDAG),
		writeFile(t, dir, "cyclic.yaml", cyclicDAG),
		writeFile(t, dir, "broken.yaml", "name: [unterminated\n"),
		writeFile(t, dir, "loose.yaml", undeclaredDAG),
	}

	tests := map[string]struct {
		strict    bool
		wantValid []bool
	}{
		"lenient": {wantValid: []bool{true, false, false, true}},
		"strict":  {strict: true, wantValid: []bool{true, false, false, false}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			results, err := validateFiles(testContext(), files, nil, validateOptions{Strict: tt.strict, MaxParallel: 2})
			require.NoError(t, err)
			require.Len(t, results, len(files))

			for i, r := range results {
				assert.Equal(t, files[i], r.File, "results keep input order")
				assert.Equal(t, tt.wantValid[i], r.Valid, r.File)
			}

			assert.Equal(t, internaldag.PassCycles, results[1].Diagnostics[0].Pass)
			assert.Equal(t, "parse", results[2].Diagnostics[0].Pass)
		})
	}
}

func TestValidateFiles_Cancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := writeFile(t, dir, "valid.yaml", validDAG)

	ctx, cancel := context.WithCancel(testContext())
	cancel()

	_, err := validateFiles(ctx, []string{file}, nil, validateOptions{MaxParallel: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateFiles_WithTemplates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	templates := filepath.Join(dir, "templates")
	require.NoError(t, os.Mkdir(templates, 0o755))
	writeFile(t, templates, "echo.yaml", echoFunction)

	unknown := `name: typo
tasks:
  - name: first
    template: ecko
`
	files := []string{
		writeFile(t, dir, "valid.yaml", validDAG),
		writeFile(t, dir, "unknown.yaml", unknown),
	}

	cfg := config.Default()
	cfg.TemplateDirs = []string{templates}
	reg, err := shared.LoadRegistry(testContext(), cfg)
	require.NoError(t, err)
	require.NotNil(t, reg)

	results, err := validateFiles(testContext(), files, reg, validateOptions{MaxParallel: 2})
	require.NoError(t, err)

	assert.True(t, results[0].Valid)
	require.False(t, results[1].Valid)
	assert.Equal(t, internaldag.PassTemplates, results[1].Diagnostics[0].Pass)
	assert.Equal(t, "UnknownTemplateError", results[1].Diagnostics[0].Kind)
}

func TestRenderResults(t *testing.T) {
	t.Parallel()

	results := []output.Result{
		{File: "a.yaml", DAG: "a", Valid: true},
		{File: "b.yaml", DAG: "b", Diagnostics: []output.Diagnostic{{Pass: "cycles", Kind: "CycleError", Message: "cycle"}}},
	}

	t.Run("text", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		require.NoError(t, renderResults(&buf, results, validateOptions{Format: "text", Quiet: true}))
		assert.NotContains(t, buf.String(), "a.yaml")
		assert.Contains(t, buf.String(), "b.yaml (b): 1 error(s)")
		assert.Contains(t, buf.String(), "2 document(s) validated, 1 failed")
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		require.NoError(t, renderResults(&buf, results, validateOptions{Format: "json"}))

		var decoded []output.Result
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, results, decoded)
	})
}
