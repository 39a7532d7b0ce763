package activity

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestVariableEventBuilders(t *testing.T) {
	input := VariableEventInput{
		Name:        " server ",
		Kind:        "query",
		Dashboard:   "ops",
		Text:        "All",
		Value:       "$__all",
		OptionCount: 4,
		Metadata:    map[string]any{"source": "url"},
	}

	cases := []struct {
		name  string
		build func(VariableEventInput) Event
		want  Event
	}{
		{
			name:  "created",
			build: BuildVariableCreatedEvent,
			want: Event{
				Verb: VerbVariableCreated, ObjectType: ObjectTypeVariable, ObjectID: "server", Dashboard: "ops",
				Metadata: map[string]any{"source": "url", "kind": "query"},
			},
		},
		{
			name:  "removed",
			build: BuildVariableRemovedEvent,
			want: Event{
				Verb: VerbVariableRemoved, ObjectType: ObjectTypeVariable, ObjectID: "server", Dashboard: "ops",
				Metadata: map[string]any{"source": "url", "kind": "query"},
			},
		},
		{
			name:  "value changed",
			build: BuildVariableValueChangedEvent,
			want: Event{
				Verb: VerbVariableValueChanged, ObjectType: ObjectTypeVariable, ObjectID: "server", Dashboard: "ops",
				Metadata: map[string]any{"source": "url", "kind": "query", "text": "All", "value": "$__all"},
			},
		},
		{
			name:  "options updated",
			build: BuildVariableOptionsUpdatedEvent,
			want: Event{
				Verb: VerbVariableOptionsUpdated, ObjectType: ObjectTypeVariable, ObjectID: "server", Dashboard: "ops",
				Metadata: map[string]any{"source": "url", "kind": "query", "option_count": 4},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.build(input)
			if diff := cmp.Diff(tc.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("event mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, ok := input.Metadata["kind"]; ok {
		t.Fatalf("builders must not mutate input metadata")
	}
}

func TestBuildVariableEventWithoutKind(t *testing.T) {
	got := BuildVariableCreatedEvent(VariableEventInput{Name: "env"})
	if got.Metadata != nil {
		t.Fatalf("expected nil metadata, got %#v", got.Metadata)
	}
}
