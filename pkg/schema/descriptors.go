// Package schema describes the persisted fields of each variable kind so
// editors can render generic forms without knowing the concrete types.
package schema

import (
	"fmt"
	"sort"
	"strings"

	templating "github.com/goliatone/go-templating"
)

// FieldDescriptor describes a save model path and the inferred type.
type FieldDescriptor struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// Kind lists the fields of one variable kind.
type Kind struct {
	Type        templating.VariableType `json:"type"`
	Label       string                  `json:"label"`
	Description string                  `json:"description,omitempty"`
	Fields      []FieldDescriptor       `json:"fields"`
}

// DescribeRegistry derives the fields of every registered kind from the save
// model of its initial state. Kinds are returned sorted by type.
func DescribeRegistry(registry *templating.Registry) ([]Kind, error) {
	kinds := make([]Kind, 0)
	for _, kind := range registry.Types() {
		adapter, err := registry.Get(kind)
		if err != nil {
			return nil, err
		}
		model, err := adapter.GetSaveModel(adapter.NewVariable(""))
		if err != nil {
			return nil, fmt.Errorf("schema: describe %s: %w", kind, err)
		}
		kinds = append(kinds, Kind{
			Type:        kind,
			Label:       adapter.Label,
			Description: adapter.Description,
			Fields:      Describe(model),
		})
	}
	return kinds, nil
}

// Describe flattens a save model into descriptors sorted by path. Nested
// objects produce dotted paths; arrays are described by their first element.
func Describe(model map[string]any) []FieldDescriptor {
	fields := describe(model, "")
	if fields == nil {
		fields = []FieldDescriptor{}
	}
	return fields
}

func describe(value any, prefix string) []FieldDescriptor {
	if value == nil {
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{Path: prefix, Type: "nil"}}
	}

	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 {
			if prefix == "" {
				return nil
			}
			return []FieldDescriptor{{Path: prefix, Type: "map[string]any"}}
		}
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var fields []FieldDescriptor
		for _, key := range keys {
			fields = append(fields, describe(typed[key], joinPath(prefix, key))...)
		}
		return fields
	case templating.SaveModel:
		return describe(map[string]any(typed), prefix)
	case []any:
		element := "any"
		if len(typed) > 0 {
			element = typeName(typed[0])
		}
		return []FieldDescriptor{{Path: prefix, Type: "[]" + element}}
	default:
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{Path: prefix, Type: typeName(typed)}}
	}
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "nil"
	case map[string]any:
		return "object"
	case float64:
		return "number"
	}
	return fmt.Sprintf("%T", value)
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
