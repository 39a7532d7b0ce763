package templating

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// QueryAdapterOption configures the query variable adapter.
type QueryAdapterOption func(*queryAdapterConfig)

type queryAdapterConfig struct {
	datasources DatasourceProvider
	regexes     *RegexCache
	staleGuard  bool
	logger      DispatchLogger
	executor    *QueryExecutor
}

// QueryWithDatasources sets the provider used to resolve datasource
// references.
func QueryWithDatasources(provider DatasourceProvider) QueryAdapterOption {
	return func(cfg *queryAdapterConfig) {
		cfg.datasources = provider
	}
}

// QueryWithRegexCache memoizes compiled variable regexes in cache.
func QueryWithRegexCache(cache *RegexCache) QueryAdapterOption {
	return func(cfg *queryAdapterConfig) {
		cfg.regexes = cache
	}
}

// QueryWithStaleResponseGuard drops results of a refresh that was
// superseded by a newer refresh of the same variable.
func QueryWithStaleResponseGuard(enabled bool) QueryAdapterOption {
	return func(cfg *queryAdapterConfig) {
		cfg.staleGuard = enabled
	}
}

// QueryWithLogger records query executions.
func QueryWithLogger(logger DispatchLogger) QueryAdapterOption {
	return func(cfg *queryAdapterConfig) {
		cfg.logger = logger
	}
}

// QueryWithExecutor shares an existing executor with the adapter. Other
// executor related options are ignored.
func QueryWithExecutor(executor *QueryExecutor) QueryAdapterOption {
	return func(cfg *queryAdapterConfig) {
		cfg.executor = executor
	}
}

func applyQueryAdapterOptions(opts []QueryAdapterOption) queryAdapterConfig {
	cfg := queryAdapterConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.regexes == nil {
		cfg.regexes, _ = NewRegexCache(DefaultRegexCacheSize, 0)
	}
	if cfg.logger == nil {
		cfg.logger = noopDispatchLogger{}
	}
	if cfg.executor == nil {
		cfg.executor = &QueryExecutor{
			Datasources: cfg.datasources,
			Logger:      cfg.logger,
		}
		if cfg.staleGuard {
			cfg.executor.guard = &generations{}
		}
	}
	return cfg
}

// InitialQueryVariable returns the defaults of a query variable.
func InitialQueryVariable() *QueryVariable {
	return &QueryVariable{
		VariableBase: VariableBase{
			Type:    VariableTypeQuery,
			Index:   -1,
			Hide:    HideNone,
			Options: []VariableOption{},
		},
		Sort:    SortDisabled,
		Refresh: RefreshNever,
		Tags:    []VariableTag{},
	}
}

// NewQueryVariableAdapter returns the adapter of variables whose options are
// derived from a datasource query.
func NewQueryVariableAdapter(opts ...QueryAdapterOption) *Adapter {
	cfg := applyQueryAdapterOptions(opts)
	executor := cfg.executor
	return &Adapter{
		Type:         VariableTypeQuery,
		Label:        "Query",
		Description:  "Variable values are fetched from a datasource query",
		InitialState: InitialQueryVariable(),
		Reducer:      NewQueryVariableReducer(cfg.regexes),
		DependsOn: func(variable, other VariableModel) bool {
			query, ok := variable.(*QueryVariable)
			if !ok || other == nil {
				return false
			}
			return ContainsVariable(other.Common().Name, query.Query, query.Datasource, query.Regex)
		},
		SetValue: func(ctx context.Context, d Dispatcher, variable VariableModel, option VariableOption, emitChanges bool) error {
			return SetOptionAsCurrent(ctx, d, variable.Common().ID(), option, emitChanges)
		},
		SetValueFromURL: func(ctx context.Context, d Dispatcher, variable VariableModel, urlValue string) error {
			return SetOptionFromURL(ctx, d, variable.Common().ID(), urlValue)
		},
		UpdateOptions: func(ctx context.Context, d Dispatcher, variable VariableModel) error {
			return executor.UpdateOptions(ctx, d, variable.Common().ID(), "")
		},
		GetSaveModel: func(variable VariableModel) (SaveModel, error) {
			model, err := NewSaveModel(variable)
			if err != nil {
				return nil, err
			}
			if refreshable, ok := variable.(Refreshable); ok && refreshable.RefreshPolicy() != RefreshNever {
				model["options"] = []any{}
			}
			return model, nil
		},
		GetValueForURL: ValueForURL,
	}
}

// QueryExecutor runs variable queries against datasources and feeds the
// results through the dispatcher.
type QueryExecutor struct {
	Datasources DatasourceProvider
	Logger      DispatchLogger

	guard *generations
}

// NewQueryExecutor constructs an executor. When guardStale is set, results
// of superseded refreshes are dropped.
func NewQueryExecutor(provider DatasourceProvider, logger DispatchLogger, guardStale bool) *QueryExecutor {
	executor := &QueryExecutor{Datasources: provider, Logger: logger}
	if guardStale {
		executor.guard = &generations{}
	}
	return executor
}

// UpdateOptions refreshes the options (and tags, when enabled) of a query
// variable. The selection is reconciled afterwards unless searchFilter is
// set.
func (e *QueryExecutor) UpdateOptions(ctx context.Context, d Dispatcher, id Identifier, searchFilter string) error {
	variable, source, err := e.prepare(ctx, d, id)
	if err != nil {
		return err
	}

	generation := e.guard.next(id.Name)
	opts := QueryOptions{
		Variable:     variable,
		SearchFilter: searchFilter,
		Variables:    d.Snapshot(),
		RequestID:    uuid.NewString(),
	}

	results, err := e.find(ctx, source, id, variable.Query, opts)
	if err != nil {
		return err
	}
	if !e.guard.current(id.Name, generation) {
		e.logger().LogDispatch(DispatchLogEvent{
			Action:    ActionUpdateVariableOptions,
			Variable:  id,
			RequestID: opts.RequestID,
			Err:       ErrStaleResponse,
		})
		return nil
	}
	if err := d.Dispatch(ctx, UpdateVariableOptions{ID: id, Results: results}); err != nil {
		return err
	}

	if variable.UseTags {
		tagResults, err := e.find(ctx, source, id, variable.TagsQuery, opts)
		if err != nil {
			return err
		}
		if err := d.Dispatch(ctx, UpdateVariableTags{ID: id, Results: tagResults}); err != nil {
			return err
		}
	}

	if searchFilter != "" {
		return nil
	}
	return ValidateVariableSelectionState(ctx, d, id, "")
}

// TagValues returns the values of one tag, running the variable's tag
// values query with $tag bound to tagKey.
func (e *QueryExecutor) TagValues(ctx context.Context, d Dispatcher, id Identifier, tagKey string) ([]string, error) {
	variable, source, err := e.prepare(ctx, d, id)
	if err != nil {
		return nil, err
	}
	query := strings.ReplaceAll(variable.TagValuesQuery, "$tag", tagKey)
	results, err := e.find(ctx, source, id, query, QueryOptions{
		Variable:  variable,
		Variables: d.Snapshot(),
		RequestID: uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(results))
	for _, tag := range ResolveTags(results) {
		values = append(values, tag.Text)
	}
	return values, nil
}

func (e *QueryExecutor) prepare(ctx context.Context, d Dispatcher, id Identifier) (*QueryVariable, Datasource, error) {
	instance, err := VariableFor(d, id.Name)
	if err != nil {
		return nil, nil, err
	}
	variable, ok := instance.(*QueryVariable)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s is not a query variable", ErrUnhandledAction, id)
	}
	if e.Datasources == nil {
		return nil, nil, fmt.Errorf("%w: %q (no provider configured)", ErrDatasourceNotFound, variable.Datasource)
	}
	source, err := e.Datasources.Get(ctx, variable.Datasource)
	if err != nil {
		return nil, nil, err
	}
	return variable, source, nil
}

func (e *QueryExecutor) find(ctx context.Context, source Datasource, id Identifier, query string, opts QueryOptions) ([]MetricFindValue, error) {
	start := time.Now()
	results, err := source.MetricFindQuery(ctx, query, opts)
	if err != nil {
		err = fmt.Errorf("templating: query %s: %w", id, err)
	}
	e.logger().LogDispatch(DispatchLogEvent{
		Action:    ActionMetricFindQuery,
		Variable:  id,
		RequestID: opts.RequestID,
		Duration:  time.Since(start),
		Err:       err,
	})
	return results, err
}

func (e *QueryExecutor) logger() DispatchLogger {
	if e.Logger == nil {
		return noopDispatchLogger{}
	}
	return e.Logger
}

// generations tracks the latest refresh of each variable. A nil tracker
// treats every refresh as current.
type generations struct {
	mu     sync.Mutex
	latest map[string]uint64
}

func (g *generations) next(name string) uint64 {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.latest == nil {
		g.latest = map[string]uint64{}
	}
	g.latest[name]++
	return g.latest[name]
}

func (g *generations) current(name string, generation uint64) bool {
	if g == nil {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.latest[name] == generation
}
