// Package shared provides constants and types used across CLI subpackages.
package shared

import (
	"context"

	"github.com/AntoineDao/queenbee/internal/config"
	clierrors "github.com/AntoineDao/queenbee/internal/errors"
	"github.com/spf13/cobra"
)

// Command group IDs for the root help output.
const (
	GroupValidation    = "validation"
	GroupConfiguration = "configuration"
)

// Settings is the resolved configuration the root command hands to subcommands.
type Settings struct {
	Config *config.Configuration
}

type settingsKey struct{}

// WithSettings returns a context carrying s.
func WithSettings(ctx context.Context, s *Settings) context.Context {
	return context.WithValue(ctx, settingsKey{}, s)
}

// SettingsFrom returns the settings stored in ctx, or built-in defaults when
// the command runs without the root command's setup.
func SettingsFrom(ctx context.Context) *Settings {
	if ctx != nil {
		if s, ok := ctx.Value(settingsKey{}).(*Settings); ok && s != nil {
			return s
		}
	}
	return &Settings{Config: config.Default()}
}

// RequireDocuments is a cobra.PositionalArgs that rejects an empty file list.
func RequireDocuments(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return clierrors.MissingDocumentArgument(cmd.UseLine())
	}
	return nil
}
