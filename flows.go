package templating

import (
	"context"
	"errors"
)

// Refreshable is implemented by kinds whose options are re-derived
// according to a refresh policy.
type Refreshable interface {
	RefreshPolicy() VariableRefresh
}

// RefreshPolicy implements Refreshable.
func (v *QueryVariable) RefreshPolicy() VariableRefresh {
	return v.Refresh
}

// SetOptionAsCurrent commits option as the current selection of id and,
// when emitChanges is set, notifies consumers of the change.
func SetOptionAsCurrent(ctx context.Context, d Dispatcher, id Identifier, option VariableOption, emitChanges bool) error {
	if err := d.Dispatch(ctx, SetCurrentVariableValue{ID: id, Option: option}); err != nil {
		return err
	}
	if !emitChanges {
		return nil
	}
	return d.NotifyChanged(ctx, id)
}

// SetOptionFromURL maps a URL token onto a selection of id. Tokens matching
// no option are committed verbatim as both text and value.
func SetOptionFromURL(ctx context.Context, d Dispatcher, id Identifier, urlValue string) error {
	variable, err := VariableFor(d, id.Name)
	if err != nil {
		return err
	}
	adapter, err := d.Adapter(variable.Common().Type)
	if err != nil {
		return err
	}

	if refreshable, ok := variable.(Refreshable); ok && refreshable.RefreshPolicy() != RefreshNever {
		if err := adapter.UpdateOptions(ctx, d, variable); err != nil {
			return err
		}
		if variable, err = VariableFor(d, id.Name); err != nil {
			return err
		}
	}

	option, found := findOption(variable.Common().Options, func(o VariableOption) bool {
		return o.Text == urlValue || o.Value == urlValue
	})
	if !found {
		option = VariableOption{Text: urlValue, Value: urlValue}
	}
	return adapter.SetValue(ctx, d, variable, option, false)
}

// ValidateVariableSelectionState reconciles the current selection of id with
// its options: the option whose text equals the current text wins, then the
// option whose text equals defaultText, then the first option.
func ValidateVariableSelectionState(ctx context.Context, d Dispatcher, id Identifier, defaultText string) error {
	variable, err := VariableFor(d, id.Name)
	if err != nil {
		return err
	}
	adapter, err := d.Adapter(variable.Common().Type)
	if err != nil {
		return err
	}
	base := variable.Common()

	if option, ok := findOption(base.Options, func(o VariableOption) bool { return o.Text == base.Current.Text }); ok {
		return adapter.SetValue(ctx, d, variable, option, false)
	}
	if defaultText != "" {
		if option, ok := findOption(base.Options, func(o VariableOption) bool { return o.Text == defaultText }); ok {
			return adapter.SetValue(ctx, d, variable, option, false)
		}
	}
	if len(base.Options) > 0 {
		return adapter.SetValue(ctx, d, variable, base.Options[0], false)
	}
	return nil
}

// ProcessVariable initializes one variable: it holds an init lock while the
// URL token from urlValues is applied or, for variables refreshed on load,
// while options are refreshed. The lock is released and cleared afterwards.
func ProcessVariable(ctx context.Context, d Dispatcher, name string, urlValues map[string]string) (err error) {
	variable, err := VariableFor(d, name)
	if err != nil {
		return err
	}
	id := variable.Common().ID()
	adapter, err := d.Adapter(id.Type)
	if err != nil {
		return err
	}

	lock := NewInitLock()
	if err := d.Dispatch(ctx, ChangeVariableInitLock{ID: id, Lock: lock}); err != nil {
		return err
	}
	defer func() {
		lock.Release()
		clearErr := d.Dispatch(context.WithoutCancel(ctx), ChangeVariableInitLock{ID: id})
		if err == nil {
			err = clearErr
		}
	}()

	if token, ok := urlValues[name]; ok {
		return adapter.SetValueFromURL(ctx, d, variable, token)
	}
	if refreshable, ok := variable.(Refreshable); ok {
		switch refreshable.RefreshPolicy() {
		case RefreshOnDashboardLoad, RefreshOnTimeRangeChanged:
			return adapter.UpdateOptions(ctx, d, variable)
		}
	}
	return nil
}

// ProcessVariables runs ProcessVariable for every variable in state order
// and joins the failures.
func ProcessVariables(ctx context.Context, d Dispatcher, urlValues map[string]string) error {
	var errs []error
	for _, name := range d.Snapshot().Names() {
		if err := ProcessVariable(ctx, d, name, urlValues); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func findOption(options []VariableOption, match func(VariableOption) bool) (VariableOption, bool) {
	for _, option := range options {
		if match(option) {
			return option, true
		}
	}
	return VariableOption{}, false
}
