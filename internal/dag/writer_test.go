package dag

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalDAG_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		fixture string
		format  Format
	}{
		"scenario as yaml": {fixture: "scenario.yaml", format: FormatYAML},
		"daylight as yaml": {fixture: "daylight.yaml", format: FormatYAML},
		"scenario as json": {fixture: "scenario.yaml", format: FormatJSON},
		"daylight as json": {fixture: "daylight.yaml", format: FormatJSON},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			first, err := ParseDAGFile(filepath.Join("testdata", tt.fixture))
			require.NoError(t, err)
			require.False(t, ValidateDAG(first.DAG).HasErrors())

			data, err := MarshalDAG(first.DAG, tt.format)
			require.NoError(t, err)

			second, err := ParseDAGBytes(data)
			require.NoError(t, err, "re-parse of:\n%s", data)

			if tt.format == FormatYAML {
				if diff := cmp.Diff(first.DAG, second.DAG); diff != "" {
					t.Errorf("round trip mismatch (-first +second):\n%s", diff)
				}
			} else {
				// JSON has a single number type; compare structure without literal values.
				assert.Equal(t, first.DAG.TaskNames(), second.DAG.TaskNames())
				assert.Equal(t, first.DAG.Outputs, second.DAG.Outputs)
			}

			report := ValidateDAG(second.DAG, WithStrictDependencies(true))
			assert.False(t, report.HasErrors(), "re-parsed DAG: %v", report.Err())
		})
	}
}

func TestMarshalDAG_StableOutput(t *testing.T) {
	t.Parallel()

	result, err := ParseDAGFile(filepath.Join("testdata", "daylight.yaml"))
	require.NoError(t, err)

	once, err := MarshalDAG(result.DAG, FormatYAML)
	require.NoError(t, err)

	again, err := ParseDAGBytes(once)
	require.NoError(t, err)
	twice, err := MarshalDAG(again.DAG, FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, string(once), string(twice))
	assert.Contains(t, string(once), "sub_folders:\n")
	assert.NotContains(t, string(once), "{{", "references are written in mapping form")
}

func TestMarshalDAG_Errors(t *testing.T) {
	t.Parallel()

	_, err := MarshalDAG(nil, FormatYAML)
	assert.ErrorContains(t, err, "dag is nil")

	_, err = MarshalDAG(scenarioDAG(), "toml")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestWriteDAGFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	for _, name := range []string{"nested/out.yaml", "out.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteDAGFile(path, scenarioDAG()))

		_, err := os.Stat(path + ".tmp")
		assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

		parsed, err := ParseDAGFile(path)
		require.NoError(t, err)
		assert.Equal(t, "scenario", parsed.DAG.Name)
		assert.False(t, ValidateDAG(parsed.DAG).HasErrors())
	}
}

func TestFormatForPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatJSON, FormatForPath("a/b.JSON"))
	assert.Equal(t, FormatYAML, FormatForPath("a/b.yml"))
	assert.Equal(t, FormatYAML, FormatForPath("noext"))
}
