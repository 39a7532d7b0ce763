package templating

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewSaveModelExcludesTransientFields(t *testing.T) {
	variable := InitialCustomVariable()
	variable.Name = "env"
	variable.Index = 3
	variable.Global = true
	variable.InitLock = NewInitLock()
	variable.Query = "a,b"
	variable.Current = VariableOption{Text: "a", Value: "a"}
	variable.Options = ParseCustomOptions(variable.Query, false)

	model, err := NewSaveModel(variable)
	if err != nil {
		t.Fatalf("save model: %v", err)
	}
	for _, key := range []string{"index", "initLock", "global"} {
		if _, ok := model[key]; ok {
			t.Fatalf("save model must not contain %q: %v", key, model)
		}
	}
	if model["name"] != "env" || model["type"] != string(VariableTypeCustom) || model["query"] != "a,b" {
		t.Fatalf("unexpected save model: %v", model)
	}
	current, ok := model["current"].(map[string]any)
	if !ok || current["value"] != "a" {
		t.Fatalf("expected current selection to be saved, got %v", model["current"])
	}
}

func TestNewSaveModelIsIndependent(t *testing.T) {
	variable := InitialCustomVariable()
	variable.Name = "env"
	variable.Options = []VariableOption{{Text: "a", Value: "a"}}

	model, err := NewSaveModel(variable)
	if err != nil {
		t.Fatalf("save model: %v", err)
	}
	options := model["options"].([]any)
	options[0].(map[string]any)["text"] = "mutated"
	if variable.Options[0].Text != "a" {
		t.Fatalf("mutating the save model changed the live variable")
	}

	variable.Options[0].Value = "changed"
	if options[0].(map[string]any)["value"] != "a" {
		t.Fatalf("mutating the live variable changed the save model")
	}
}

func TestQuerySaveModelClearsRefreshedOptions(t *testing.T) {
	adapter := NewQueryVariableAdapter()
	cases := []struct {
		refresh VariableRefresh
		want    int
	}{
		{RefreshNever, 2},
		{RefreshOnDashboardLoad, 0},
		{RefreshOnTimeRangeChanged, 0},
	}
	for _, tc := range cases {
		variable := InitialQueryVariable()
		variable.Name = "server"
		variable.Refresh = tc.refresh
		variable.Options = []VariableOption{{Text: "a", Value: "a"}, {Text: "b", Value: "b"}}

		model, err := adapter.GetSaveModel(variable)
		if err != nil {
			t.Fatalf("save model: %v", err)
		}
		options, ok := model["options"].([]any)
		if !ok || len(options) != tc.want {
			t.Fatalf("refresh %d: expected %d saved options, got %v", tc.refresh, tc.want, model["options"])
		}
		if len(variable.Options) != 2 {
			t.Fatalf("refresh %d: live options were cleared", tc.refresh)
		}
	}
}

func TestValueForURL(t *testing.T) {
	variable := allSelected("host", "a", "b")
	if got := ValueForURL(variable); got != AllVariableText {
		t.Fatalf("expected All to be emitted as its text, got %q", got)
	}
	variable.Current = VariableOption{Text: "Host A", Value: "a"}
	if got := ValueForURL(variable); got != "a" {
		t.Fatalf("expected value, got %q", got)
	}
}

func TestAdapterNewVariable(t *testing.T) {
	adapter := NewQueryVariableAdapter()
	first := adapter.NewVariable("a").(*QueryVariable)
	first.Options = append(first.Options, VariableOption{Text: "x"})

	second := adapter.NewVariable("b").(*QueryVariable)
	if second.Name != "b" || second.Type != VariableTypeQuery || len(second.Options) != 0 {
		t.Fatalf("unexpected new variable: %+v", second.VariableBase)
	}
	if len(adapter.InitialState.Common().Options) != 0 {
		t.Fatalf("initial state was modified")
	}
}

func TestAdapterDependsOn(t *testing.T) {
	query := NewQueryVariableAdapter()
	custom := NewCustomVariableAdapter()

	env := customVariable("env", "prod")
	dependent := InitialQueryVariable()
	dependent.Name = "host"
	dependent.Query = `label_values(up{env="$env"}, host)`

	regexOnly := InitialQueryVariable()
	regexOnly.Regex = "/${env:regex}-.*/"

	if !query.DependsOn(dependent, env) {
		t.Fatalf("expected query referencing $env to depend on env")
	}
	if !query.DependsOn(regexOnly, env) {
		t.Fatalf("expected regex reference to count as a dependency")
	}
	if query.DependsOn(dependent, customVariable("region", "")) {
		t.Fatalf("unexpected dependency on region")
	}
	if query.DependsOn(env, dependent) {
		t.Fatalf("custom variables are not query variables")
	}
	if query.DependsOn(dependent, nil) {
		t.Fatalf("nil other must not be a dependency")
	}
	if custom.DependsOn(env, dependent) {
		t.Fatalf("custom variables never depend on others")
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(NewCustomVariableAdapter()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(NewCustomVariableAdapter()); !errors.Is(err, ErrAdapterExists) {
		t.Fatalf("expected ErrAdapterExists, got %v", err)
	}
	if err := registry.Register(&Adapter{Type: "broken"}); err == nil {
		t.Fatalf("expected incomplete adapter to be rejected")
	}
	if err := registry.Register(nil); err == nil {
		t.Fatalf("expected nil adapter to be rejected")
	}

	adapter, err := registry.Get(VariableTypeCustom)
	if err != nil || adapter.Type != VariableTypeCustom {
		t.Fatalf("get custom: %v", err)
	}
	if _, err := registry.Get(VariableTypeQuery); !errors.Is(err, ErrAdapterNotFound) {
		t.Fatalf("expected ErrAdapterNotFound, got %v", err)
	}

	var nilRegistry *Registry
	if _, err := nilRegistry.Get(VariableTypeQuery); !errors.Is(err, ErrAdapterNotFound) {
		t.Fatalf("expected nil registry lookup to fail, got %v", err)
	}
}

func TestDefaultRegistry(t *testing.T) {
	want := []VariableType{VariableTypeCustom, VariableTypeQuery}
	if diff := cmp.Diff(want, DefaultRegistry().Types()); diff != "" {
		t.Fatalf("types mismatch (-want +got):\n%s", diff)
	}
}
