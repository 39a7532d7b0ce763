package activity

import "strings"

// Verbs of variable lifecycle events.
const (
	VerbVariableCreated        = "variable.created"
	VerbVariableRemoved        = "variable.removed"
	VerbVariableValueChanged   = "variable.value.changed"
	VerbVariableOptionsUpdated = "variable.options.updated"
)

// ObjectTypeVariable is the object type of every variable event.
const ObjectTypeVariable = "variable"

// VariableEventInput describes the common fields of variable events.
type VariableEventInput struct {
	Name        string
	Kind        string
	Dashboard   string
	Text        string
	Value       string
	OptionCount int
	Metadata    map[string]any
}

// BuildVariableCreatedEvent constructs the event of a variable being added.
func BuildVariableCreatedEvent(input VariableEventInput) Event {
	return buildVariableEvent(VerbVariableCreated, input)
}

// BuildVariableRemovedEvent constructs the event of a variable being removed.
func BuildVariableRemovedEvent(input VariableEventInput) Event {
	return buildVariableEvent(VerbVariableRemoved, input)
}

// BuildVariableValueChangedEvent constructs the event announcing a new
// current selection.
func BuildVariableValueChangedEvent(input VariableEventInput) Event {
	event := buildVariableEvent(VerbVariableValueChanged, input)
	event.Metadata = ensureMetadata(event.Metadata)
	event.Metadata["text"] = input.Text
	event.Metadata["value"] = input.Value
	return event
}

// BuildVariableOptionsUpdatedEvent constructs the event of a variable's
// options being replaced.
func BuildVariableOptionsUpdatedEvent(input VariableEventInput) Event {
	event := buildVariableEvent(VerbVariableOptionsUpdated, input)
	event.Metadata = ensureMetadata(event.Metadata)
	event.Metadata["option_count"] = input.OptionCount
	return event
}

func buildVariableEvent(verb string, input VariableEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if kind := strings.TrimSpace(input.Kind); kind != "" {
		metadata = ensureMetadata(metadata)
		metadata["kind"] = kind
	}
	return Event{
		Verb:       verb,
		ObjectType: ObjectTypeVariable,
		ObjectID:   strings.TrimSpace(input.Name),
		Dashboard:  strings.TrimSpace(input.Dashboard),
		Metadata:   metadata,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
