package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FileError is a problem in one configuration file. Line is set when the
// YAML parser or the key check can place it.
type FileError struct {
	Path    string
	Line    int
	Column  int
	Key     string
	Message string
}

func (e *FileError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Path)
	if e.Line > 0 {
		fmt.Fprintf(&sb, ":%d:%d", e.Line, e.Column)
	}
	sb.WriteString(": ")
	if e.Key != "" {
		sb.WriteString(e.Key)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	return sb.String()
}

var yamlLinePattern = regexp.MustCompile(`^yaml: line (\d+): (.*)$`)

// checkYAMLFile rejects a config file that is not a YAML mapping or that sets
// keys queenbee does not know. Empty files pass.
func checkYAMLFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &FileError{Path: path, Message: err.Error()}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return yamlSyntaxError(path, err)
	}
	if len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return nil
	}
	if root.Kind != yaml.MappingNode {
		return &FileError{Path: path, Line: root.Line, Column: root.Column, Message: "expected a mapping of settings"}
	}

	known := knownKeys()
	var errs []error
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i]
		if slices.Contains(known, key.Value) {
			continue
		}
		errs = append(errs, &FileError{
			Path:    path,
			Line:    key.Line,
			Column:  key.Column,
			Key:     key.Value,
			Message: unknownKeyMessage(key.Value, known),
		})
	}
	return errors.Join(errs...)
}

func yamlSyntaxError(path string, err error) error {
	if m := yamlLinePattern.FindStringSubmatch(err.Error()); m != nil {
		line, _ := strconv.Atoi(m[1])
		return &FileError{Path: path, Line: line, Column: 1, Message: m[2]}
	}
	return &FileError{Path: path, Message: strings.TrimPrefix(err.Error(), "yaml: ")}
}

// knownKeys returns the settings keys in sorted order.
func knownKeys() []string {
	keys := make([]string, 0, len(GetDefaults()))
	for k := range GetDefaults() {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// unknownKeyMessage suggests the closest known key when one is a likely typo.
func unknownKeyMessage(key string, known []string) string {
	best, bestDist := "", 3
	for _, k := range known {
		if d := levenshtein.Distance(key, k, nil); d < bestDist {
			best, bestDist = k, d
		}
	}
	if best == "" {
		return fmt.Sprintf("unknown setting (known: %s)", strings.Join(known, ", "))
	}
	return fmt.Sprintf("unknown setting, did you mean %q?", best)
}

var validate = newValidator()

// newValidator reports fields by their config key rather than the Go field name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkValues validates the merged configuration and reports every bad key.
func checkValues(cfg *Configuration) error {
	err := validate.Struct(cfg)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, fmt.Errorf("%s %s", fe.Field(), describeConstraint(fe)))
	}
	return errors.Join(errs...)
}

func describeConstraint(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "min":
		return fmt.Sprintf("must be at least %s (got %v)", fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("must be at most %s (got %v)", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("must not be negative (got %v)", fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of %s (got %q)", strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	default:
		return fmt.Sprintf("fails %q", fe.Tag())
	}
}
