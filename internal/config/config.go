// Package config provides hierarchical configuration management for queenbee using koanf.
// Configuration is loaded with priority: environment variables > project config (.queenbee/config.yml)
// > user config (~/.config/queenbee/config.yml) > defaults. The project config may also be the
// legacy JSON file .queenbee/config.json.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables that override config keys.
const EnvPrefix = "QUEENBEE_"

// ConfigSource tracks where a configuration value came from
type ConfigSource string

const (
	SourceDefault ConfigSource = "default"
	SourceUser    ConfigSource = "user"
	SourceProject ConfigSource = "project"
	SourceEnv     ConfigSource = "env"
	SourceFlag    ConfigSource = "flag"
)

// Configuration represents the queenbee CLI configuration
type Configuration struct {
	// TemplateDirs are searched for function and DAG templates. When empty,
	// tasks are validated without template compatibility checks.
	TemplateDirs []string `koanf:"template_dirs" validate:"dive,required"`

	// StrictDependencies reports task references to producers that are not
	// transitive dependencies of the consuming task.
	StrictDependencies bool `koanf:"strict_dependencies"`

	// MaxParallel bounds how many files are parsed and validated at once.
	MaxParallel int `koanf:"max_parallel" validate:"min=1,max=64"`

	LogLevel     string `koanf:"log_level" validate:"oneof=debug info warn error"`
	OutputFormat string `koanf:"output_format" validate:"oneof=text json"`
	NoColor      bool   `koanf:"no_color"`

	// WatchDebounce is how long --watch waits for writes to settle before re-validating.
	WatchDebounce time.Duration `koanf:"watch_debounce" validate:"gte=0"`

	// Sources records which layer supplied each key.
	Sources map[string]ConfigSource `koanf:"-"`
}

// LoadOptions configures how configuration is loaded
type LoadOptions struct {
	// ProjectConfigPath overrides the project config path (default: .queenbee/config.yml)
	ProjectConfigPath string
	// UserConfigPath overrides the user config path (default: XDG config dir)
	UserConfigPath string
	// SkipUserConfig ignores the user config entirely
	SkipUserConfig bool
	// WarningWriter receives deprecation warnings (default: os.Stderr)
	WarningWriter io.Writer
	// SkipWarnings suppresses deprecation warnings
	SkipWarnings bool
}

// Load loads configuration from user, project, and environment sources.
// Priority: Environment variables > Project config > User config > Defaults
func Load(projectConfigPath string) (*Configuration, error) {
	return LoadWithOptions(LoadOptions{ProjectConfigPath: projectConfigPath})
}

// LoadWithOptions loads configuration with custom options
func LoadWithOptions(opts LoadOptions) (*Configuration, error) {
	l := &loader{k: koanf.New("."), sources: make(map[string]ConfigSource)}
	warningWriter := getWarningWriter(opts.WarningWriter)

	if err := l.layer(SourceDefault, loadDefaults); err != nil {
		return nil, err
	}

	if !opts.SkipUserConfig {
		err := l.layer(SourceUser, func(k *koanf.Koanf) error {
			return loadUserConfig(k, opts.UserConfigPath)
		})
		if err != nil {
			return nil, err
		}
	}

	err := l.layer(SourceProject, func(k *koanf.Koanf) error {
		return loadProjectConfig(k, opts.ProjectConfigPath, warningWriter, opts.SkipWarnings)
	})
	if err != nil {
		return nil, err
	}

	if err := l.layer(SourceEnv, loadEnvironmentConfig); err != nil {
		return nil, err
	}

	cfg, err := finalizeConfig(l.k)
	if err != nil {
		return nil, err
	}
	cfg.Sources = l.sources
	return cfg, nil
}

// loader merges configuration layers and remembers which layer set each key.
type loader struct {
	k       *koanf.Koanf
	sources map[string]ConfigSource
}

// layer loads one source into its own koanf instance and merges it on top.
func (l *loader) layer(source ConfigSource, load func(k *koanf.Koanf) error) error {
	layer := koanf.New(".")
	if err := load(layer); err != nil {
		return err
	}
	for _, key := range layer.Keys() {
		l.sources[key] = source
	}
	return l.k.Merge(layer)
}

// getWarningWriter returns the warning writer or defaults to stderr
func getWarningWriter(w io.Writer) io.Writer {
	if w == nil {
		return os.Stderr
	}
	return w
}

// loadDefaults applies default configuration values
func loadDefaults(k *koanf.Koanf) error {
	for key, value := range GetDefaults() {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("setting default %s: %w", key, err)
		}
	}
	return nil
}

// loadUserConfig loads the user-level YAML config if it exists.
func loadUserConfig(k *koanf.Koanf, customPath string) error {
	path := customPath
	if path == "" {
		path, _ = UserConfigPath()
	}
	if !fileExists(path) {
		return nil
	}
	if err := loadYAMLConfig(k, path, "user"); err != nil {
		return fmt.Errorf("loading user YAML config: %w", err)
	}
	return nil
}

// loadProjectConfig loads project-level config (YAML preferred, legacy JSON supported).
// Warns if both exist (YAML used, JSON ignored) or if only legacy JSON exists.
func loadProjectConfig(k *koanf.Koanf, customPath string, warningWriter io.Writer, skipWarnings bool) error {
	projectYAMLPath := ProjectConfigPath()
	legacyProjectPath := LegacyProjectConfigPath()
	if customPath != "" {
		projectYAMLPath = customPath
		legacyProjectPath = filepath.Join(filepath.Dir(customPath), "config.json")
	}

	projectYAMLExists := fileExists(projectYAMLPath)
	legacyProjectExists := fileExists(legacyProjectPath)

	if projectYAMLExists {
		if err := loadYAMLConfig(k, projectYAMLPath, "project"); err != nil {
			return fmt.Errorf("loading project YAML config: %w", err)
		}
		if legacyProjectExists && !skipWarnings {
			fmt.Fprintf(warningWriter, "Warning: Legacy JSON config found at %s (ignored, using %s)\n", legacyProjectPath, projectYAMLPath)
			fmt.Fprintf(warningWriter, "  Remove the legacy file to silence this warning.\n\n")
		}
	} else if legacyProjectExists {
		if err := loadLegacyJSONConfig(k, legacyProjectPath, warningWriter, skipWarnings); err != nil {
			return fmt.Errorf("loading legacy project JSON config: %w", err)
		}
	}
	return nil
}

// loadYAMLConfig checks and loads a YAML config file
func loadYAMLConfig(k *koanf.Koanf, path, configType string) error {
	if err := checkYAMLFile(path); err != nil {
		return fmt.Errorf("checking %s config: %w", configType, err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load %s config %s: %w", configType, path, err)
	}
	return nil
}

// loadLegacyJSONConfig loads legacy JSON and warns about migration
func loadLegacyJSONConfig(k *koanf.Koanf, path string, warningWriter io.Writer, skipWarnings bool) error {
	if err := k.Load(file.Provider(path), json.Parser()); err != nil {
		return fmt.Errorf("failed to load legacy project config %s: %w", path, err)
	}
	if !skipWarnings {
		fmt.Fprintf(warningWriter, "Warning: Using deprecated JSON config at %s\n", path)
		fmt.Fprintf(warningWriter, "  Rename it to %s and convert it to YAML.\n\n", ProjectConfigPath())
	}
	return nil
}

// loadEnvironmentConfig loads environment variable overrides
func loadEnvironmentConfig(k *koanf.Koanf) error {
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envTransform), nil); err != nil {
		return fmt.Errorf("failed to load environment config: %w", err)
	}
	return nil
}

// finalizeConfig unmarshals, validates, and applies final transformations
func finalizeConfig(k *koanf.Koanf) (*Configuration, error) {
	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	for i, dir := range cfg.TemplateDirs {
		cfg.TemplateDirs[i] = strings.TrimSpace(dir)
	}

	if err := checkValues(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	for i, dir := range cfg.TemplateDirs {
		expanded, err := ExpandHome(dir)
		if err != nil {
			return nil, fmt.Errorf("template_dirs[%d]: %w", i, err)
		}
		cfg.TemplateDirs[i] = expanded
	}

	return &cfg, nil
}

// fileExists returns true if the file exists and is readable
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// envTransform converts environment variable names to config keys
// Example: QUEENBEE_MAX_PARALLEL -> max_parallel
// List keys take comma-separated values: QUEENBEE_TEMPLATE_DIRS=a,b
func envTransform(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == "template_dirs" {
		var dirs []string
		for _, d := range strings.Split(value, ",") {
			if d = strings.TrimSpace(d); d != "" {
				dirs = append(dirs, d)
			}
		}
		return key, dirs
	}
	return key, value
}

// Default returns the built-in configuration without reading any file or
// environment variable. It panics if the built-in defaults do not load.
func Default() *Configuration {
	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		panic(fmt.Sprintf("config: loading built-in defaults: %v", err))
	}

	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		panic(fmt.Sprintf("config: decoding built-in defaults: %v", err))
	}
	cfg.Sources = make(map[string]ConfigSource)
	for _, key := range k.Keys() {
		cfg.Sources[key] = SourceDefault
	}
	return &cfg
}
