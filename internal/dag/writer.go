package dag

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a document encoding for DAG files.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatForPath picks the encoding from a file extension, defaulting to YAML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// MarshalDAG encodes d in the document form accepted by ParseDAGBytes.
// References are always written in mapping form.
func MarshalDAG(d *DAG, format Format) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("dag is nil")
	}

	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling DAG to JSON: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML, "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return nil, fmt.Errorf("marshaling DAG to YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("marshaling DAG to YAML: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// WriteDAGFile writes d to path in the encoding matching the extension.
// Uses atomic write (temp file + rename) to prevent corruption on crash.
func WriteDAGFile(path string, d *DAG) error {
	data, err := MarshalDAG(d, FormatForPath(path))
	if err != nil {
		return err
	}

	if err := atomicWriteToFile(path, data); err != nil {
		return fmt.Errorf("writing DAG file: %w", err)
	}

	return nil
}

// atomicWriteToFile writes data to path using temp file + rename pattern.
// Ensures no partial writes occur on crash.
func atomicWriteToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) // Best effort cleanup
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
