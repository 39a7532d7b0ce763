// Package urlsync maps variable selections to and from URL query
// parameters of the form var-<name>=<token>.
package urlsync

import (
	"context"
	"errors"
	"net/url"
	"strings"

	templating "github.com/goliatone/go-templating"
)

// Prefix starts every variable query parameter.
const Prefix = "var-"

// Key returns the query parameter carrying the selection of name.
func Key(name string) string {
	return Prefix + name
}

// Tokens extracts the variable tokens of values keyed by variable name. The
// first value of repeated parameters wins.
func Tokens(values url.Values) map[string]string {
	tokens := map[string]string{}
	for key, list := range values {
		name, ok := strings.CutPrefix(key, Prefix)
		if !ok || name == "" || len(list) == 0 {
			continue
		}
		tokens[name] = list[0]
	}
	return tokens
}

// Apply sets the selection of every variable that has a token in values and
// does not skip URL sync. Variables without a token are left untouched.
func Apply(ctx context.Context, d templating.Dispatcher, values url.Values) error {
	tokens := Tokens(values)
	var errs []error
	for _, variable := range d.Snapshot().Variables() {
		base := variable.Common()
		token, ok := tokens[base.Name]
		if !ok || base.SkipURLSync {
			continue
		}
		adapter, err := d.Adapter(base.Type)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := adapter.SetValueFromURL(ctx, d, variable, token); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Values encodes the selection of every variable that does not skip URL
// sync.
func Values(d templating.Dispatcher) (url.Values, error) {
	values := url.Values{}
	for _, variable := range d.Snapshot().Variables() {
		base := variable.Common()
		if base.SkipURLSync {
			continue
		}
		adapter, err := d.Adapter(base.Type)
		if err != nil {
			return nil, err
		}
		values.Set(Key(base.Name), adapter.GetValueForURL(variable))
	}
	return values, nil
}
