package templating

import "context"

// InitialCustomVariable returns the defaults of a custom variable.
func InitialCustomVariable() *CustomVariable {
	return &CustomVariable{
		VariableBase: VariableBase{
			Type:    VariableTypeCustom,
			Index:   -1,
			Hide:    HideNone,
			Options: []VariableOption{},
		},
	}
}

// NewCustomVariableAdapter returns the adapter of variables defined by a
// static list of values. Custom variables never depend on other variables.
func NewCustomVariableAdapter() *Adapter {
	return &Adapter{
		Type:         VariableTypeCustom,
		Label:        "Custom",
		Description:  "Define variable values manually",
		InitialState: InitialCustomVariable(),
		Reducer:      CustomVariableReducer,
		DependsOn: func(VariableModel, VariableModel) bool {
			return false
		},
		SetValue: func(ctx context.Context, d Dispatcher, variable VariableModel, option VariableOption, emitChanges bool) error {
			return SetOptionAsCurrent(ctx, d, variable.Common().ID(), option, emitChanges)
		},
		SetValueFromURL: func(ctx context.Context, d Dispatcher, variable VariableModel, urlValue string) error {
			return SetOptionFromURL(ctx, d, variable.Common().ID(), urlValue)
		},
		UpdateOptions: func(ctx context.Context, d Dispatcher, variable VariableModel) error {
			return UpdateCustomVariableOptions(ctx, d, variable.Common().ID())
		},
		GetSaveModel:   NewSaveModel,
		GetValueForURL: ValueForURL,
	}
}

// UpdateCustomVariableOptions re-derives the options of a custom variable
// from its query and reconciles the current selection.
func UpdateCustomVariableOptions(ctx context.Context, d Dispatcher, id Identifier) error {
	if err := d.Dispatch(ctx, CreateCustomOptionsFromQuery{ID: id}); err != nil {
		return err
	}
	return ValidateVariableSelectionState(ctx, d, id, "")
}
