package shared

import (
	"context"

	"github.com/AntoineDao/queenbee/internal/config"
	clierrors "github.com/AntoineDao/queenbee/internal/errors"
	"github.com/AntoineDao/queenbee/internal/registry"
)

// LoadRegistry loads the configured template directories. It returns nil
// when none are configured, which disables template checks.
func LoadRegistry(ctx context.Context, cfg *config.Configuration) (*registry.Registry, error) {
	if len(cfg.TemplateDirs) == 0 {
		return nil, nil
	}
	reg := registry.New()
	if err := reg.LoadDirs(ctx, cfg.TemplateDirs, cfg.MaxParallel); err != nil {
		return nil, clierrors.TemplateLoadFailed(err)
	}
	return reg, nil
}
