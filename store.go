package templating

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/goliatone/go-templating/pkg/activity"
)

// ChangeListener is called after NotifyChanged with a copy of the variable
// whose selection changed.
type ChangeListener func(ctx context.Context, variable VariableModel)

// Store owns the variable state and serializes intents through the
// registered reducers. It implements Dispatcher.
type Store struct {
	mu       sync.RWMutex
	state    State
	registry *Registry
	logger   DispatchLogger
	metrics  MetricsCollector
	emitter  *activity.Emitter

	listenersMu sync.RWMutex
	listeners   map[int]ChangeListener
	nextID      int
}

// NewStore constructs a store. Variables passed through WithVariables are
// published as the initial state.
func NewStore(opts ...Option) *Store {
	cfg := applyOptions(opts)
	return &Store{
		state:     NewState(cfg.variables...),
		registry:  cfg.registry,
		logger:    cfg.logger,
		metrics:   cfg.metrics,
		emitter:   activity.NewEmitter(cfg.activityHooks, cfg.activityConfig),
		listeners: map[int]ChangeListener{},
	}
}

// Registry returns the adapter registry used by the store.
func (s *Store) Registry() *Registry {
	return s.registry
}

// Snapshot returns the currently published state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Variable returns a copy of the named variable.
func (s *Store) Variable(name string) (VariableModel, error) {
	return VariableFor(s, name)
}

// Adapter returns the adapter registered for kind.
func (s *Store) Adapter(kind VariableType) (*Adapter, error) {
	return s.registry.Get(kind)
}

// Dispatch applies action through the reducer of the target kind. Actions
// with an empty target kind are routed by the stored variable's kind.
func (s *Store) Dispatch(ctx context.Context, action Action) error {
	if action == nil {
		return fmt.Errorf("templating: dispatch: action is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	id, after, err := s.apply(action)
	duration := time.Since(start)

	s.logger.LogDispatch(DispatchLogEvent{
		Action:   action.Type(),
		Variable: id,
		Duration: duration,
		Err:      err,
	})
	s.metrics.ObserveDispatch(action.Type(), id.Type, duration, err)
	if err != nil {
		return err
	}

	s.afterDispatch(ctx, action, id, after)
	return nil
}

func (s *Store) apply(action Action) (Identifier, VariableModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := action.Target()
	add, adding := action.(AddVariable)
	if adding && id.Type == "" && add.Model != nil {
		id.Type = add.Model.Common().Type
	}
	if id.Type == "" {
		instance, err := s.state.instance(id.Name)
		if err != nil {
			return id, nil, err
		}
		id.Type = instance.Common().Type
	}
	adapter, err := s.registry.Get(id.Type)
	if err != nil {
		return id, nil, err
	}
	if adding {
		if add.Model == nil {
			add.Model = adapter.NewVariable(id.Name)
		} else if err := checkKind(adapter, add.Model); err != nil {
			return id, nil, fmt.Errorf("templating: add %s: %w", id, err)
		}
		add.ID = id
		action = add
	}

	next, err := adapter.Reducer(s.state, action)
	if err != nil {
		return id, nil, err
	}
	s.state = next
	after, _ := next.Get(id.Name)
	return id, after, nil
}

// checkKind rejects models built for another kind than the adapter's.
func checkKind(adapter *Adapter, model VariableModel) error {
	if kind := model.Common().Type; kind != "" && kind != adapter.Type {
		return fmt.Errorf("%w: model is %s", ErrKindMismatch, kind)
	}
	if want, got := reflect.TypeOf(adapter.InitialState), reflect.TypeOf(model); want != nil && want != got {
		return fmt.Errorf("%w: model is %s, want %s", ErrKindMismatch, got, want)
	}
	return nil
}

func (s *Store) afterDispatch(ctx context.Context, action Action, id Identifier, after VariableModel) {
	switch action.Type() {
	case ActionAddVariable:
		s.emit(ctx, activity.BuildVariableCreatedEvent(eventInput(id, after)))
	case ActionRemoveVariable:
		s.emit(ctx, activity.BuildVariableRemovedEvent(eventInput(id, nil)))
	case ActionUpdateVariableOptions, ActionCreateCustomOptionsFromQuery:
		input := eventInput(id, after)
		s.metrics.ObserveOptions(id, input.OptionCount)
		s.emit(ctx, activity.BuildVariableOptionsUpdatedEvent(input))
	}
}

// NotifyChanged announces that the selection of id changed to activity
// hooks and subscribed listeners.
func (s *Store) NotifyChanged(ctx context.Context, id Identifier) error {
	variable, err := VariableFor(s, id.Name)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.emit(ctx, activity.BuildVariableValueChangedEvent(eventInput(variable.Common().ID(), variable)))

	s.listenersMu.RLock()
	listeners := make([]ChangeListener, 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	s.listenersMu.RUnlock()

	for _, listener := range listeners {
		listener(ctx, variable.Clone())
	}
	return nil
}

// Subscribe registers listener for selection changes. The returned function
// removes it.
func (s *Store) Subscribe(listener ChangeListener) func() {
	if listener == nil {
		return func() {}
	}
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *Store) emit(ctx context.Context, event activity.Event) {
	if !s.emitter.Enabled() {
		return
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.logger.LogDispatch(DispatchLogEvent{
			Action:   ActionEmitActivity,
			Variable: Identifier{Name: event.ObjectID},
			Err:      err,
		})
	}
}

func eventInput(id Identifier, variable VariableModel) activity.VariableEventInput {
	input := activity.VariableEventInput{Name: id.Name, Kind: string(id.Type)}
	if variable == nil {
		return input
	}
	base := variable.Common()
	input.Text = base.Current.Text
	input.Value = base.Current.Value
	input.OptionCount = len(base.Options)
	return input
}
