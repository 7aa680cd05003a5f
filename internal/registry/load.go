package registry

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AntoineDao/queenbee/internal/ctxlog"
	"github.com/AntoineDao/queenbee/internal/dag"
	"github.com/hashicorp/hcl/v2/hclparse"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// templateExtensions are the file types LoadDirs picks up.
var templateExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
	".hcl":  true,
}

// FileTemplates is what one template file contributes.
type FileTemplates struct {
	Path      string
	Functions []*Function
	DAGs      []*dag.DAG
}

// LoadDirs walks every directory in dirs, parses each template file and
// registers its functions and DAGs. Files are parsed concurrently, at most
// maxParallel at a time; registration happens in sorted path order so a
// duplicate name is always reported against the same pair of files.
func (r *Registry) LoadDirs(ctx context.Context, dirs []string, maxParallel int) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Registry loading templates.", "dirs", dirs)

	files, err := findTemplateFiles(dirs)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Debug("No template files found.", "dirs", dirs)
		return nil
	}

	results := make([]FileTemplates, len(files))
	g, gctx := errgroup.WithContext(ctx)
	if maxParallel > 0 {
		g.SetLimit(maxParallel)
	}
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := LoadFile(path)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, res := range results {
		for _, f := range res.Functions {
			if err := r.AddFunction(f); err != nil {
				return err
			}
		}
		for _, d := range res.DAGs {
			if err := r.AddDAG(d, res.Path); err != nil {
				return err
			}
		}
		logger.Debug("Loaded template file.", "file", res.Path, "functions", len(res.Functions), "dags", len(res.DAGs))
	}

	logger.Info("Registry loaded.", "templates", r.Len(), "files", len(files))
	return nil
}

// LoadFile parses one template file. HCL files hold function blocks; YAML and
// JSON files hold a single function, a `functions` list, or a DAG.
func LoadFile(path string) (FileTemplates, error) {
	res := FileTemplates{Path: path}

	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		functions, err := parseHCLFunctions(hclparse.NewParser(), path)
		if err != nil {
			return res, err
		}
		res.Functions = functions
		return res, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("reading template file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return res, fmt.Errorf("%s: parsing YAML: %w", path, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return res, fmt.Errorf("%s: expected a mapping document", path)
	}
	root := doc.Content[0]

	switch {
	case mappingValue(root, "functions") != nil:
		list := mappingValue(root, "functions")
		if list.Kind != yaml.SequenceNode {
			return res, fmt.Errorf("%s: functions must be a list", path)
		}
		for _, item := range list.Content {
			f, err := ParseFunctionNode(item)
			if err != nil {
				return res, fmt.Errorf("%s: %w", path, err)
			}
			f.Source = path
			res.Functions = append(res.Functions, f)
		}
	case mappingValue(root, "command") != nil:
		f, err := ParseFunctionNode(root)
		if err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
		f.Source = path
		res.Functions = append(res.Functions, f)
	case mappingValue(root, "tasks") != nil:
		parsed, err := dag.ParseDAGNode(root)
		if err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
		res.DAGs = append(res.DAGs, parsed.DAG)
	default:
		return res, fmt.Errorf("%s: not a template: expected `command`, `functions` or `tasks`", path)
	}

	return res, nil
}

// mappingValue returns the value node for key in a mapping node, or nil.
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// findTemplateFiles walks all given paths and returns a sorted, de-duplicated
// list of template files. Missing paths are skipped.
func findTemplateFiles(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if _, ok := seen[path]; !ok {
				seen[path] = struct{}{}
				files = append(files, path)
			}
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !templateExtensions[strings.ToLower(filepath.Ext(p))] {
				return nil
			}
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}
