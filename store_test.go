package templating

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-templating/pkg/activity"
)

type recordingLogger struct {
	mu     sync.Mutex
	events []DispatchLogEvent
}

func (l *recordingLogger) LogDispatch(event DispatchLogEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *recordingLogger) actions() []ActionType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ActionType, len(l.events))
	for i, event := range l.events {
		out[i] = event.Action
	}
	return out
}

func (l *recordingLogger) find(action ActionType) []DispatchLogEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []DispatchLogEvent
	for _, event := range l.events {
		if event.Action == action {
			out = append(out, event)
		}
	}
	return out
}

type recordingMetrics struct {
	mu         sync.Mutex
	dispatches []string
	options    map[string]int
}

func (m *recordingMetrics) ObserveDispatch(action ActionType, kind VariableType, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.dispatches = append(m.dispatches, string(action)+"|"+string(kind)+"|"+outcome)
}

func (m *recordingMetrics) ObserveOptions(id Identifier, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.options == nil {
		m.options = map[string]int{}
	}
	m.options[id.String()] = count
}

var envID = Identifier{Type: VariableTypeCustom, Name: "env"}

func addCustom(t *testing.T, store *Store, name, query string) {
	t.Helper()
	model := InitialCustomVariable()
	model.Query = query
	if err := store.Dispatch(t.Context(), AddVariable{ID: Identifier{Type: VariableTypeCustom, Name: name}, Model: model}); err != nil {
		t.Fatalf("add %s: %v", name, err)
	}
}

func TestStoreSeedsVariables(t *testing.T) {
	store := NewStore(WithVariables(customVariable("a", "1"), customVariable("b", "2")))

	if diff := cmp.Diff([]string{"a", "b"}, store.Snapshot().Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	variable, err := store.Variable("b")
	if err != nil {
		t.Fatalf("variable: %v", err)
	}
	if variable.Common().Index != 1 || variable.Common().Current.Value != "2" {
		t.Fatalf("unexpected seeded variable: %+v", variable.Common())
	}
	if _, err := store.Variable("missing"); !errors.Is(err, ErrVariableNotFound) {
		t.Fatalf("expected ErrVariableNotFound, got %v", err)
	}
}

func TestStoreAddUsesAdapterDefaults(t *testing.T) {
	store := NewStore()
	if err := store.Dispatch(t.Context(), AddVariable{ID: queryID}); err != nil {
		t.Fatalf("add: %v", err)
	}
	variable, err := store.Variable("server")
	if err != nil {
		t.Fatalf("variable: %v", err)
	}
	query, ok := variable.(*QueryVariable)
	if !ok {
		t.Fatalf("expected query variable, got %T", variable)
	}
	if query.Name != "server" || query.Index != 0 || query.Refresh != RefreshNever || query.Options == nil {
		t.Fatalf("unexpected defaults: %+v", query)
	}
}

func TestStoreRoutesByStoredKind(t *testing.T) {
	store := NewStore()
	addCustom(t, store, "env", "a,b")

	option := VariableOption{Text: "b", Value: "b"}
	if err := store.Dispatch(t.Context(), SetCurrentVariableValue{ID: Identifier{Name: "env"}, Option: option}); err != nil {
		t.Fatalf("set current: %v", err)
	}
	variable, _ := store.Variable("env")
	if variable.Common().Current != option {
		t.Fatalf("expected current %v, got %v", option, variable.Common().Current)
	}

	if err := store.Dispatch(t.Context(), SetCurrentVariableValue{ID: Identifier{Name: "missing"}}); !errors.Is(err, ErrVariableNotFound) {
		t.Fatalf("expected ErrVariableNotFound, got %v", err)
	}
	if err := store.Dispatch(t.Context(), AddVariable{ID: Identifier{Type: "textbox", Name: "t"}}); !errors.Is(err, ErrAdapterNotFound) {
		t.Fatalf("expected ErrAdapterNotFound, got %v", err)
	}
}

func TestStoreAddChecksModelKind(t *testing.T) {
	store := NewStore()

	query := InitialQueryVariable()
	if err := store.Dispatch(t.Context(), AddVariable{ID: Identifier{Name: "server"}, Model: query}); err != nil {
		t.Fatalf("add without target kind: %v", err)
	}
	variable, err := store.Variable("server")
	if err != nil {
		t.Fatalf("variable: %v", err)
	}
	if _, ok := variable.(*QueryVariable); !ok || variable.Common().Type != VariableTypeQuery {
		t.Fatalf("expected query variable, got %T of kind %q", variable, variable.Common().Type)
	}

	if err := store.Dispatch(t.Context(), AddVariable{ID: envID, Model: InitialQueryVariable()}); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch, got %v", err)
	}
	untyped := &QueryVariable{}
	if err := store.Dispatch(t.Context(), AddVariable{ID: envID, Model: untyped}); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch for untyped model, got %v", err)
	}
	if store.Snapshot().Has("env") {
		t.Fatalf("mismatched model must not be added")
	}
}

func TestStoreDispatchGuards(t *testing.T) {
	store := NewStore()
	if err := store.Dispatch(t.Context(), nil); err == nil {
		t.Fatalf("expected nil action to fail")
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if err := store.Dispatch(ctx, AddVariable{ID: envID}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if store.Snapshot().Len() != 0 {
		t.Fatalf("cancelled dispatch must not change state")
	}
}

func TestStoreSnapshotsAreStable(t *testing.T) {
	store := NewStore()
	addCustom(t, store, "env", "a,b")
	before := store.Snapshot()

	if err := store.Dispatch(t.Context(), CreateCustomOptionsFromQuery{ID: envID}); err != nil {
		t.Fatalf("create options: %v", err)
	}
	variable, _ := before.Get("env")
	if len(variable.Common().Options) != 0 {
		t.Fatalf("published snapshot changed after dispatch")
	}
}

func TestStoreEmitsActivity(t *testing.T) {
	hook := &activity.CaptureHook{}
	store := NewStore(
		WithActivityHooks(activity.Hooks{hook}),
		WithActivityConfig(activity.Config{Enabled: true, Dashboard: "ops"}),
	)
	ctx := activity.ContextWithActor(t.Context(), activity.Actor{ActorID: "actor-1", TenantID: "tenant-1"})

	model := InitialCustomVariable()
	model.Query = "a,b,c"
	if err := store.Dispatch(ctx, AddVariable{ID: envID, Model: model}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := UpdateCustomVariableOptions(ctx, store, envID); err != nil {
		t.Fatalf("update options: %v", err)
	}
	if err := SetOptionAsCurrent(ctx, store, envID, VariableOption{Text: "b", Value: "b"}, true); err != nil {
		t.Fatalf("set current: %v", err)
	}
	if err := store.Dispatch(ctx, RemoveVariable{ID: envID}); err != nil {
		t.Fatalf("remove: %v", err)
	}

	want := []string{
		activity.VerbVariableCreated,
		activity.VerbVariableOptionsUpdated,
		activity.VerbVariableValueChanged,
		activity.VerbVariableRemoved,
	}
	if diff := cmp.Diff(want, hook.Verbs()); diff != "" {
		t.Fatalf("verbs mismatch (-want +got):\n%s", diff)
	}

	events := hook.Events()
	for _, event := range events {
		if event.Channel != activity.DefaultChannel || event.Dashboard != "ops" {
			t.Fatalf("expected defaults applied, got %+v", event)
		}
		if event.ActorID != "actor-1" || event.TenantID != "tenant-1" {
			t.Fatalf("expected actor from context, got %+v", event)
		}
		if event.ObjectType != activity.ObjectTypeVariable || event.ObjectID != "env" {
			t.Fatalf("unexpected object: %+v", event)
		}
	}
	if got := events[1].Metadata["option_count"]; got != 3 {
		t.Fatalf("expected option_count 3, got %v", got)
	}
	if got := events[2].Metadata["value"]; got != "b" {
		t.Fatalf("expected changed value b, got %v", got)
	}
}

func TestStoreLogsActivityFailures(t *testing.T) {
	logger := &recordingLogger{}
	hook := &activity.CaptureHook{Err: errors.New("sink down")}
	store := NewStore(WithActivityHooks(activity.Hooks{hook}), WithDispatchLogger(logger))

	if err := store.Dispatch(t.Context(), AddVariable{ID: envID}); err != nil {
		t.Fatalf("activity failures must not fail dispatch: %v", err)
	}
	failures := logger.find(ActionEmitActivity)
	if len(failures) != 1 || failures[0].Err == nil || failures[0].Variable.Name != "env" {
		t.Fatalf("expected one logged activity failure, got %+v", failures)
	}
}

func TestStoreWithoutHooksEmitsNothing(t *testing.T) {
	hook := &activity.CaptureHook{}
	store := NewStore(WithActivityConfig(activity.Config{Enabled: true}))
	addCustom(t, store, "env", "a")
	if len(hook.Events()) != 0 {
		t.Fatalf("unexpected events")
	}
}

func TestStoreLogsAndMeasuresDispatches(t *testing.T) {
	logger := &recordingLogger{}
	metrics := &recordingMetrics{}
	store := NewStore(WithDispatchLogger(logger), WithMetrics(metrics))

	addCustom(t, store, "env", "a,b")
	if err := UpdateCustomVariableOptions(t.Context(), store, envID); err != nil {
		t.Fatalf("update options: %v", err)
	}
	_ = store.Dispatch(t.Context(), RemoveVariable{ID: Identifier{Type: VariableTypeCustom, Name: "missing"}})

	wantActions := []ActionType{
		ActionAddVariable,
		ActionCreateCustomOptionsFromQuery,
		ActionSetCurrentVariableValue,
		ActionRemoveVariable,
	}
	if diff := cmp.Diff(wantActions, logger.actions()); diff != "" {
		t.Fatalf("logged actions mismatch (-want +got):\n%s", diff)
	}
	if err := logger.find(ActionRemoveVariable)[0].Err; !errors.Is(err, ErrVariableNotFound) {
		t.Fatalf("expected failure to be logged, got %v", err)
	}

	wantDispatches := []string{
		"templating/addVariable|custom|ok",
		"templating/createCustomOptionsFromQuery|custom|ok",
		"templating/setCurrentVariableValue|custom|ok",
		"templating/removeVariable|custom|error",
	}
	if diff := cmp.Diff(wantDispatches, metrics.dispatches); diff != "" {
		t.Fatalf("dispatch metrics mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int{"custom/env": 2}, metrics.options); diff != "" {
		t.Fatalf("option metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreSubscribe(t *testing.T) {
	store := NewStore()
	addCustom(t, store, "env", "a,b")

	var got []string
	unsubscribe := store.Subscribe(func(_ context.Context, variable VariableModel) {
		got = append(got, variable.Common().Current.Value)
	})

	if err := SetOptionAsCurrent(t.Context(), store, envID, VariableOption{Text: "a", Value: "a"}, true); err != nil {
		t.Fatalf("set current: %v", err)
	}
	if err := SetOptionAsCurrent(t.Context(), store, envID, VariableOption{Text: "b", Value: "b"}, false); err != nil {
		t.Fatalf("set current: %v", err)
	}
	unsubscribe()
	unsubscribe()
	if err := store.NotifyChanged(t.Context(), envID); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if diff := cmp.Diff([]string{"a"}, got); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
	if err := store.NotifyChanged(t.Context(), Identifier{Name: "missing"}); !errors.Is(err, ErrVariableNotFound) {
		t.Fatalf("expected ErrVariableNotFound, got %v", err)
	}
}

func TestStoreConcurrentDispatch(t *testing.T) {
	store := NewStore()
	addCustom(t, store, "env", "a,b")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value := "a"
			if i%2 == 0 {
				value = "b"
			}
			_ = store.Dispatch(context.Background(), SetCurrentVariableValue{ID: envID, Option: VariableOption{Text: value, Value: value}})
			_ = store.Snapshot().Names()
		}(i)
	}
	wg.Wait()

	variable, _ := store.Variable("env")
	if value := variable.Common().Current.Value; value != "a" && value != "b" {
		t.Fatalf("unexpected final value %q", value)
	}
}
