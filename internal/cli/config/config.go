// Package config provides the queenbee config commands: init and show.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/AntoineDao/queenbee/internal/cli/shared"
	"github.com/AntoineDao/queenbee/internal/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ConfigCmd is the parent command for configuration management.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage queenbee configuration",
	Long: `Manage queenbee configuration settings.

Configuration is loaded with the following priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (QUEENBEE_*)
  3. Project config (.queenbee/config.yml)
  4. User config (~/.config/queenbee/config.yml)
  5. Built-in defaults`,
	Example: `  # Show the effective configuration and where each value came from
  queenbee config show

  # Create a project config
  queenbee config init`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the effective configuration after all layers are merged, followed
by the layer each value came from.`,
	Example: `  # YAML output
  queenbee config show

  # JSON output
  queenbee config show --json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	configShowCmd.Flags().Bool("json", false, "Output in JSON format")
	ConfigCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg := shared.SettingsFrom(cmd.Context()).Config
	asJSON, _ := cmd.Flags().GetBool("json")

	if asJSON {
		return writeConfigJSON(cmd.OutOrStdout(), cfg)
	}
	return writeConfigYAML(cmd.OutOrStdout(), cfg)
}

// effectiveValues flattens cfg to its config-file keys.
func effectiveValues(cfg *config.Configuration) map[string]any {
	dirs := cfg.TemplateDirs
	if dirs == nil {
		dirs = []string{}
	}
	return map[string]any{
		"template_dirs":       dirs,
		"strict_dependencies": cfg.StrictDependencies,
		"max_parallel":        cfg.MaxParallel,
		"log_level":           cfg.LogLevel,
		"output_format":       cfg.OutputFormat,
		"no_color":            cfg.NoColor,
		"watch_debounce":      cfg.WatchDebounce.String(),
	}
}

// sourceOf returns the layer that supplied key, treating unrecorded keys as defaults.
func sourceOf(cfg *config.Configuration, key string) config.ConfigSource {
	if src, ok := cfg.Sources[key]; ok {
		return src
	}
	return config.SourceDefault
}

func writeConfigYAML(w io.Writer, cfg *config.Configuration) error {
	values := effectiveValues(cfg)
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshaling configuration: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	fmt.Fprintf(w, "\n%s\n", bold("Configuration Sources"))
	for _, k := range keys {
		fmt.Fprintf(w, "  %-20s %s\n", k, dim(string(sourceOf(cfg, k))))
	}
	return nil
}

func writeConfigJSON(w io.Writer, cfg *config.Configuration) error {
	values := effectiveValues(cfg)
	sources := make(map[string]config.ConfigSource, len(values))
	for k := range values {
		sources[k] = sourceOf(cfg, k)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Config  map[string]any                 `json:"config"`
		Sources map[string]config.ConfigSource `json:"sources"`
	}{values, sources})
}
