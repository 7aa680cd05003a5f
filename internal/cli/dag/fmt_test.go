package dag

import (
	"bytes"
	"os"
	"testing"

	internaldag "github.com/AntoineDao/queenbee/internal/dag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFile(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		opts        fmtOptions
		wantStdout  bool
		wantRewrite bool
	}{
		"print": {
			opts:       fmtOptions{},
			wantStdout: true,
		},
		"print as json": {
			opts:       fmtOptions{Format: internaldag.FormatJSON},
			wantStdout: true,
		},
		"check": {
			opts: fmtOptions{Check: true},
		},
		"write": {
			opts:        fmtOptions{Write: true},
			wantRewrite: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			file := writeFile(t, t.TempDir(), "d.yaml", validDAG)

			var buf bytes.Buffer
			changed, err := formatFile(&buf, file, tt.opts)
			require.NoError(t, err)
			assert.True(t, changed, "shorthand references are not canonical")

			if tt.wantStdout {
				reparsed, err := internaldag.ParseDAGBytes(buf.Bytes())
				require.NoError(t, err)
				assert.Equal(t, []string{"first", "second"}, reparsed.DAG.TaskNames())
			} else {
				assert.Empty(t, buf.String())
			}

			data, err := os.ReadFile(file)
			require.NoError(t, err)
			if tt.wantRewrite {
				assert.NotEqual(t, validDAG, string(data))
				again, err := formatFile(&buf, file, fmtOptions{Check: true})
				require.NoError(t, err)
				assert.False(t, again, "formatting is idempotent")
			} else {
				assert.Equal(t, validDAG, string(data))
			}
		})
	}
}

func TestFormatFile_ParseError(t *testing.T) {
	t.Parallel()

	file := writeFile(t, t.TempDir(), "d.yaml", "name: d\ntasks:\n  - name: t\n")

	_, err := formatFile(&bytes.Buffer{}, file, fmtOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse "+file)
}
