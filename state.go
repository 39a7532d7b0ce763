package templating

import (
	"maps"
	"slices"
)

// State is an immutable, ordered collection of variable instances keyed by
// name. Reducers produce new State values; published values are never
// mutated.
type State struct {
	order  []string
	byName map[string]VariableModel
}

// NewState builds a State from variables in order. Indexes are reassigned
// by position and later duplicates replace earlier ones.
func NewState(variables ...VariableModel) State {
	state := State{}
	for _, variable := range variables {
		if variable == nil {
			continue
		}
		state = state.with(variable.Clone())
	}
	return state.reindex()
}

// Len returns the number of variables.
func (s State) Len() int {
	return len(s.order)
}

// Names returns variable names in order.
func (s State) Names() []string {
	return slices.Clone(s.order)
}

// Has reports whether name is part of the state.
func (s State) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Get returns a copy of the named variable.
func (s State) Get(name string) (VariableModel, bool) {
	variable, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return variable.Clone(), true
}

// Variables returns copies of every variable in order.
func (s State) Variables() []VariableModel {
	out := make([]VariableModel, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.byName[name].Clone())
	}
	return out
}

// instance returns the stored variable without copying. Callers must clone
// before mutating.
func (s State) instance(name string) (VariableModel, error) {
	variable, ok := s.byName[name]
	if !ok {
		return nil, &LookupError{Name: name}
	}
	return variable, nil
}

func (s State) with(variable VariableModel) State {
	name := variable.Common().Name
	next := State{
		order:  slices.Clone(s.order),
		byName: maps.Clone(s.byName),
	}
	if next.byName == nil {
		next.byName = map[string]VariableModel{}
	}
	if _, exists := next.byName[name]; !exists {
		next.order = append(next.order, name)
	}
	next.byName[name] = variable
	return next
}

func (s State) without(name string) State {
	if _, ok := s.byName[name]; !ok {
		return s
	}
	next := State{
		order:  slices.DeleteFunc(slices.Clone(s.order), func(n string) bool { return n == name }),
		byName: maps.Clone(s.byName),
	}
	delete(next.byName, name)
	return next.reindex()
}

func (s State) reindex() State {
	for i, name := range s.order {
		variable := s.byName[name]
		if variable.Common().Index == i {
			continue
		}
		updated := variable.Clone()
		updated.Common().Index = i
		s.byName[name] = updated
	}
	return s
}
