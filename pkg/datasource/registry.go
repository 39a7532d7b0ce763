package datasource

import (
	"context"
	"fmt"
	"slices"
	"sync"

	templating "github.com/goliatone/go-templating"
)

// Registry resolves datasource references by name and implements
// templating.DatasourceProvider. An empty reference selects the default.
type Registry struct {
	mu          sync.RWMutex
	sources     map[string]templating.Datasource
	defaultName string
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: map[string]templating.Datasource{}}
}

// Register stores source under name guarding against duplicates. The first
// registered source becomes the default.
func (r *Registry) Register(name string, source templating.Datasource) error {
	if name == "" {
		return fmt.Errorf("datasource: name must not be empty")
	}
	if source == nil {
		return fmt.Errorf("datasource: %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sources == nil {
		r.sources = map[string]templating.Datasource{}
	}
	if _, exists := r.sources[name]; exists {
		return fmt.Errorf("datasource: %q already registered", name)
	}
	r.sources[name] = source
	if r.defaultName == "" {
		r.defaultName = name
	}
	return nil
}

// SetDefault selects the datasource used for empty references.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[name]; !ok {
		return fmt.Errorf("%w: %q", templating.ErrDatasourceNotFound, name)
	}
	r.defaultName = name
	return nil
}

// Get implements templating.DatasourceProvider.
func (r *Registry) Get(ctx context.Context, ref string) (templating.Datasource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ref == "" {
		ref = r.defaultName
	}
	source, ok := r.sources[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %q", templating.ErrDatasourceNotFound, ref)
	}
	return source, nil
}

// Names returns the registered names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
