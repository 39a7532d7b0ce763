package templating

import (
	"context"
	"fmt"
	"slices"
	"sync"

	json "github.com/goccy/go-json"
)

// Dispatcher is the boundary adapters hand effects to. Dispatch applies an
// intent through the target kind's reducer and returns once the new state is
// published.
type Dispatcher interface {
	Dispatch(ctx context.Context, action Action) error
	Snapshot() State
	Adapter(kind VariableType) (*Adapter, error)
	NotifyChanged(ctx context.Context, id Identifier) error
}

// SaveModel is the persistable form of a variable. It never contains
// transient fields and shares no structure with live state.
type SaveModel map[string]any

// Adapter bundles everything kind specific about a variable: defaults, the
// reducer, opaque UI bindings and the lifecycle operations.
type Adapter struct {
	Type        VariableType
	Label       string
	Description string

	InitialState VariableModel
	Reducer      Reducer

	// Picker and Editor are UI bindings this package never inspects.
	Picker any
	Editor any

	DependsOn       func(variable, other VariableModel) bool
	SetValue        func(ctx context.Context, d Dispatcher, variable VariableModel, option VariableOption, emitChanges bool) error
	SetValueFromURL func(ctx context.Context, d Dispatcher, variable VariableModel, urlValue string) error
	UpdateOptions   func(ctx context.Context, d Dispatcher, variable VariableModel) error
	GetSaveModel    func(variable VariableModel) (SaveModel, error)
	GetValueForURL  func(variable VariableModel) string
}

// NewVariable returns a fresh copy of the adapter's initial state.
func (a *Adapter) NewVariable(name string) VariableModel {
	variable := a.InitialState.Clone()
	base := variable.Common()
	base.Name = name
	base.Type = a.Type
	return variable
}

func (a *Adapter) validate() error {
	switch {
	case a == nil:
		return fmt.Errorf("templating: adapter is nil")
	case a.Type == "":
		return fmt.Errorf("templating: adapter type must not be empty")
	case a.InitialState == nil:
		return fmt.Errorf("templating: adapter %q: initial state is required", a.Type)
	case a.Reducer == nil:
		return fmt.Errorf("templating: adapter %q: reducer is required", a.Type)
	case a.DependsOn == nil, a.SetValue == nil, a.SetValueFromURL == nil,
		a.UpdateOptions == nil, a.GetSaveModel == nil, a.GetValueForURL == nil:
		return fmt.Errorf("templating: adapter %q: all operations are required", a.Type)
	}
	return nil
}

// Registry maps variable kinds to their adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[VariableType]*Adapter
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[VariableType]*Adapter)}
}

// DefaultRegistry returns a registry holding the custom and query adapters.
func DefaultRegistry(queryOpts ...QueryAdapterOption) *Registry {
	registry := NewRegistry()
	_ = registry.Register(NewCustomVariableAdapter())
	_ = registry.Register(NewQueryVariableAdapter(queryOpts...))
	return registry
}

// Register stores adapter under its type guarding against duplicates.
func (r *Registry) Register(adapter *Adapter) error {
	if err := adapter.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.adapters == nil {
		r.adapters = make(map[VariableType]*Adapter)
	}
	if _, exists := r.adapters[adapter.Type]; exists {
		return fmt.Errorf("%w: %s", ErrAdapterExists, adapter.Type)
	}
	r.adapters[adapter.Type] = adapter
	return nil
}

// Get returns the adapter registered for kind.
func (r *Registry) Get(kind VariableType) (*Adapter, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, kind)
	}
	r.mu.RLock()
	adapter := r.adapters[kind]
	r.mu.RUnlock()
	if adapter == nil {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, kind)
	}
	return adapter, nil
}

// Types returns the registered kinds sorted alphabetically.
func (r *Registry) Types() []VariableType {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]VariableType, 0, len(r.adapters))
	for kind := range r.adapters {
		types = append(types, kind)
	}
	slices.Sort(types)
	return types
}

// ValueForURL returns the URL token of the current selection. The "All"
// sentinel is emitted as its text so reloading restores "All".
func ValueForURL(variable VariableModel) string {
	current := variable.Common().Current
	if current.Text == AllVariableText {
		return AllVariableText
	}
	return current.Value
}

// NewSaveModel encodes variable into a SaveModel without index, initLock and
// global.
func NewSaveModel(variable VariableModel) (SaveModel, error) {
	payload, err := json.Marshal(variable.Clone())
	if err != nil {
		return nil, fmt.Errorf("templating: save model %s: %w", variable.Common().ID(), err)
	}
	model := SaveModel{}
	if err := json.Unmarshal(payload, &model); err != nil {
		return nil, fmt.Errorf("templating: save model %s: %w", variable.Common().ID(), err)
	}
	delete(model, "index")
	delete(model, "initLock")
	delete(model, "global")
	return model, nil
}

// VariableFor returns a copy of the named variable from d's current state.
func VariableFor(d Dispatcher, name string) (VariableModel, error) {
	variable, ok := d.Snapshot().Get(name)
	if !ok {
		return nil, &LookupError{Name: name}
	}
	return variable, nil
}
