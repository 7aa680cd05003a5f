package shared

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/AntoineDao/queenbee/internal/config"
	"github.com/AntoineDao/queenbee/internal/ctxlog"
	clierrors "github.com/AntoineDao/queenbee/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsFrom(t *testing.T) {
	t.Parallel()

	fallback := SettingsFrom(context.Background())
	assert.Equal(t, 4, fallback.Config.MaxParallel)
	assert.Equal(t, config.SourceDefault, fallback.Config.Sources["log_level"])

	cfg := config.Default()
	cfg.StrictDependencies = true
	ctx := WithSettings(context.Background(), &Settings{Config: cfg})
	assert.True(t, SettingsFrom(ctx).Config.StrictDependencies)
}

func TestLoadRegistry(t *testing.T) {
	t.Parallel()

	ctx := ctxlog.WithLogger(context.Background(), ctxlog.Discard())

	t.Run("no template dirs", func(t *testing.T) {
		t.Parallel()

		reg, err := LoadRegistry(ctx, config.Default())
		require.NoError(t, err)
		assert.Nil(t, reg)
	})

	t.Run("function template", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		fn := "name: echo\ncommand: echo hi\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "echo.yaml"), []byte(fn), 0o644))

		cfg := config.Default()
		cfg.TemplateDirs = []string{dir}
		reg, err := LoadRegistry(ctx, cfg)
		require.NoError(t, err)
		require.NotNil(t, reg)
		assert.Equal(t, []string{"echo"}, reg.Names())
	})

	t.Run("invalid template", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: bad\n"), 0o644))

		cfg := config.Default()
		cfg.TemplateDirs = []string{dir}
		_, err := LoadRegistry(ctx, cfg)
		require.Error(t, err)
		assert.Equal(t, clierrors.Configuration, clierrors.AsCLIError(err).Category)
	})
}
