package templating

import (
	"fmt"
	"regexp"
	"strings"
)

// Reducer is the pure state transition of one variable kind. It returns the
// next state, or the unchanged state and an error when the intent cannot be
// applied.
type Reducer func(state State, action Action) (State, error)

var customOptionPart = regexp.MustCompile(`(?:\\,|[^,])+`)

// SharedReducer applies the intents every kind supports.
func SharedReducer(state State, action Action) (State, error) {
	switch a := action.(type) {
	case AddVariable:
		if a.Model == nil {
			return state, fmt.Errorf("templating: add %s: model is required", a.ID)
		}
		if state.Has(a.ID.Name) {
			return state, fmt.Errorf("%w: %s", ErrVariableExists, a.ID.Name)
		}
		variable := a.Model.Clone()
		base := variable.Common()
		base.Name = a.ID.Name
		base.Type = a.ID.Type
		base.Index = state.Len()
		return state.with(variable), nil
	case RemoveVariable:
		if !state.Has(a.ID.Name) {
			return state, &LookupError{Name: a.ID.Name}
		}
		return state.without(a.ID.Name), nil
	case SetCurrentVariableValue:
		instance, err := state.instance(a.ID.Name)
		if err != nil {
			return state, err
		}
		variable := instance.Clone()
		base := variable.Common()
		base.Current = a.Option
		for i := range base.Options {
			base.Options[i].Selected = base.Options[i].Value == a.Option.Value
		}
		return state.with(variable), nil
	case ChangeVariableInitLock:
		instance, err := state.instance(a.ID.Name)
		if err != nil {
			return state, err
		}
		variable := instance.Clone()
		variable.Common().InitLock = a.Lock
		return state.with(variable), nil
	default:
		return state, fmt.Errorf("%w: %s for %s", ErrUnhandledAction, action.Type(), action.Target())
	}
}

// NewQueryVariableReducer returns the reducer of the query kind. Compiled
// regexes are memoized in regexes when it is non-nil.
func NewQueryVariableReducer(regexes *RegexCache) Reducer {
	return func(state State, action Action) (State, error) {
		switch a := action.(type) {
		case UpdateVariableOptions:
			variable, err := queryInstance(state, a.ID)
			if err != nil {
				return state, err
			}
			options, err := ResolveOptions(a.Results, ResolveConfig{
				Variable:   variable.Name,
				Regex:      variable.Regex,
				Sort:       variable.Sort,
				IncludeAll: variable.IncludeAll,
				State:      state,
				Regexes:    regexes,
			})
			if err != nil {
				return state, err
			}
			variable.Options = options
			return state.with(variable), nil
		case UpdateVariableTags:
			variable, err := queryInstance(state, a.ID)
			if err != nil {
				return state, err
			}
			variable.Tags = ResolveTags(a.Results)
			return state.with(variable), nil
		default:
			return SharedReducer(state, action)
		}
	}
}

// CustomVariableReducer is the reducer of the custom kind.
func CustomVariableReducer(state State, action Action) (State, error) {
	switch a := action.(type) {
	case CreateCustomOptionsFromQuery:
		instance, err := state.instance(a.ID.Name)
		if err != nil {
			return state, err
		}
		variable, ok := instance.Clone().(*CustomVariable)
		if !ok {
			return state, fmt.Errorf("%w: %s is not a custom variable", ErrUnhandledAction, a.ID)
		}
		variable.Options = ParseCustomOptions(variable.Query, variable.IncludeAll)
		return state.with(variable), nil
	default:
		return SharedReducer(state, action)
	}
}

// ParseCustomOptions splits a custom variable query on commas not preceded
// by a backslash.
func ParseCustomOptions(query string, includeAll bool) []VariableOption {
	parts := customOptionPart.FindAllString(query, -1)
	options := make([]VariableOption, 0, len(parts)+1)
	if includeAll {
		options = append(options, VariableOption{Text: AllVariableText, Value: AllVariableValue})
	}
	for _, part := range parts {
		text := strings.TrimSpace(strings.ReplaceAll(part, `\,`, ","))
		options = append(options, VariableOption{Text: text, Value: text})
	}
	return options
}

func queryInstance(state State, id Identifier) (*QueryVariable, error) {
	instance, err := state.instance(id.Name)
	if err != nil {
		return nil, err
	}
	variable, ok := instance.Clone().(*QueryVariable)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a query variable", ErrUnhandledAction, id)
	}
	return variable, nil
}
