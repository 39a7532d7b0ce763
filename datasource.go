package templating

import (
	"context"
	"fmt"
	"sync"
)

// QueryOptions accompanies a metric find query.
type QueryOptions struct {
	// Variable is a copy of the variable issuing the query.
	Variable *QueryVariable
	// SearchFilter narrows results when the user is searching options.
	SearchFilter string
	// Variables is the state snapshot the query was issued against.
	Variables State
	// RequestID identifies one refresh of the variable.
	RequestID string
}

// Datasource executes variable queries and returns raw candidate records in
// the order they should be considered.
type Datasource interface {
	MetricFindQuery(ctx context.Context, query string, opts QueryOptions) ([]MetricFindValue, error)
}

// DatasourceFunc adapts a function to Datasource.
type DatasourceFunc func(ctx context.Context, query string, opts QueryOptions) ([]MetricFindValue, error)

// MetricFindQuery implements Datasource.
func (f DatasourceFunc) MetricFindQuery(ctx context.Context, query string, opts QueryOptions) ([]MetricFindValue, error) {
	return f(ctx, query, opts)
}

// DatasourceProvider resolves a variable's datasource reference. An empty
// reference selects the default datasource.
type DatasourceProvider interface {
	Get(ctx context.Context, ref string) (Datasource, error)
}

// StaticDatasources is a DatasourceProvider backed by a map. The entry keyed
// by "" is the default datasource.
type StaticDatasources struct {
	mu      sync.RWMutex
	sources map[string]Datasource
}

// NewStaticDatasources constructs a provider from sources.
func NewStaticDatasources(sources map[string]Datasource) *StaticDatasources {
	copied := make(map[string]Datasource, len(sources))
	for ref, source := range sources {
		if source != nil {
			copied[ref] = source
		}
	}
	return &StaticDatasources{sources: copied}
}

// Set registers source under ref, replacing any previous entry.
func (s *StaticDatasources) Set(ref string, source Datasource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sources == nil {
		s.sources = map[string]Datasource{}
	}
	s.sources[ref] = source
}

// Get implements DatasourceProvider.
func (s *StaticDatasources) Get(_ context.Context, ref string) (Datasource, error) {
	s.mu.RLock()
	source := s.sources[ref]
	s.mu.RUnlock()
	if source == nil {
		return nil, fmt.Errorf("%w: %q", ErrDatasourceNotFound, ref)
	}
	return source, nil
}
