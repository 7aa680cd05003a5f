package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AntoineDao/queenbee/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_Relevant(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "dag.yaml")
	tmplDir := filepath.Join(dir, "templates")
	require.NoError(t, os.WriteFile(file, []byte("name: d\n"), 0o644))
	require.NoError(t, os.Mkdir(tmplDir, 0o755))

	w, err := New([]string{file, tmplDir}, Options{Extensions: []string{".yaml", ".hcl"}})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	tests := map[string]struct {
		name string
		want bool
	}{
		"watched file":            {name: file, want: true},
		"sibling of watched file": {name: filepath.Join(dir, "other.yaml"), want: false},
		"template in watched dir": {name: filepath.Join(tmplDir, "f.hcl"), want: true},
		"wrong extension in dir":  {name: filepath.Join(tmplDir, "notes.txt"), want: false},
		"uncleaned watched path":  {name: filepath.Join(dir, ".", "dag.yaml"), want: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, w.relevant(tt.name))
		})
	}

	abs, err := filepath.Abs(file)
	require.NoError(t, err)
	assert.Equal(t, []string{abs}, w.Files())
}

func TestNew_MissingPath(t *testing.T) {
	t.Parallel()

	_, err := New([]string{filepath.Join(t.TempDir(), "absent.yaml")}, Options{})
	assert.Error(t, err)
}

func TestWatcher_RunRerunsOnChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "dag.yaml")
	require.NoError(t, os.WriteFile(file, []byte("name: a\n"), 0o644))

	w, err := New([]string{file}, Options{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithCancel(ctxlog.WithLogger(context.Background(), ctxlog.Discard()))
	defer cancel()

	var runs atomic.Int32
	started := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) error {
			runs.Add(1)
			started <- struct{}{}
			return nil
		})
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("initial run did not happen")
	}

	require.NoError(t, os.WriteFile(file, []byte("name: b\n"), 0o644))

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("no re-run after change")
	}

	cancel()
	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, runs.Load(), int32(2))
}
