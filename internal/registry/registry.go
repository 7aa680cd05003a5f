package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/AntoineDao/queenbee/internal/dag"
)

// Kind distinguishes the two template flavours a task can invoke.
type Kind string

const (
	KindFunction Kind = "function"
	KindDAG      Kind = "dag"
)

// Entry is one registered template.
type Entry struct {
	Name      string
	Kind      Kind
	Source    string
	Signature *dag.Signature
}

// Registry resolves template names to IO contracts. It implements
// dag.TemplateRegistry and is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

var _ dag.TemplateRegistry = (*Registry)(nil)

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// DuplicateTemplateError reports two templates registered under one name.
type DuplicateTemplateError struct {
	Name     string
	Existing string
	Incoming string
}

// Error implements the error interface.
func (e *DuplicateTemplateError) Error() string {
	return fmt.Sprintf("template %q is defined more than once (%s and %s)", e.Name, sourceOrInline(e.Existing), sourceOrInline(e.Incoming))
}

func sourceOrInline(s string) string {
	if s == "" {
		return "inline"
	}
	return s
}

// AddFunction registers f under its name.
func (r *Registry) AddFunction(f *Function) error {
	return r.add(FunctionEntry(f))
}

// AddDAG registers d as a nested template. source may be empty.
func (r *Registry) AddDAG(d *dag.DAG, source string) error {
	return r.add(DAGEntry(d, source))
}

func (r *Registry) add(e *Entry) error {
	if e.Name == "" {
		return fmt.Errorf("cannot register a %s template without a name", e.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[e.Name]; ok {
		return &DuplicateTemplateError{Name: e.Name, Existing: existing.Source, Incoming: e.Source}
	}
	r.entries[e.Name] = e
	return nil
}

// Lookup returns the IO contract of the template called name.
func (r *Registry) Lookup(name string) (*dag.Signature, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("no template named %q is registered (%d known)", name, len(r.entries))
	}
	return e.Signature, nil
}

// Entry returns the registration record for name.
func (r *Registry) Entry(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	return e, ok
}

// Names returns every registered template name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered templates.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Clone returns an independent copy of r. Entries are shared; they are never mutated.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := New()
	for k, v := range r.entries {
		c.entries[k] = v
	}
	return c
}

// Shadow registers e, replacing any entry of the same name. Recipes use it so
// their own templates win over the configured template directories.
func (r *Registry) Shadow(e *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.Name] = e
}

// FunctionEntry wraps f as a registry entry.
func FunctionEntry(f *Function) *Entry {
	return &Entry{Name: f.Name, Kind: KindFunction, Source: f.Source, Signature: f.Signature()}
}

// DAGEntry wraps d as a registry entry.
func DAGEntry(d *dag.DAG, source string) *Entry {
	return &Entry{Name: d.Name, Kind: KindDAG, Source: source, Signature: d.Signature()}
}
