package templating

import (
	"errors"
	"fmt"
)

var (
	// ErrVariableNotFound indicates an intent targeted a variable that is not
	// part of the state.
	ErrVariableNotFound = errors.New("templating: variable not found")
	// ErrVariableExists indicates an attempt to add a variable whose name is
	// already taken.
	ErrVariableExists = errors.New("templating: variable already exists")
	// ErrAdapterNotFound indicates no adapter is registered for a kind.
	ErrAdapterNotFound = errors.New("templating: adapter not registered")
	// ErrAdapterExists indicates a kind was registered twice.
	ErrAdapterExists = errors.New("templating: adapter already registered")
	// ErrInvalidRegex indicates a variable regex failed to compile.
	ErrInvalidRegex = errors.New("templating: invalid variable regex")
	// ErrDatasourceNotFound indicates a datasource reference could not be
	// resolved.
	ErrDatasourceNotFound = errors.New("templating: datasource not found")
	// ErrStaleResponse marks query results superseded by a newer refresh.
	ErrStaleResponse = errors.New("templating: stale query response")
	// ErrKindMismatch indicates a variable model does not belong to the kind
	// it was added as.
	ErrKindMismatch = errors.New("templating: variable kind mismatch")
	// ErrUnhandledAction indicates a reducer received an intent it does not
	// recognise.
	ErrUnhandledAction = errors.New("templating: unhandled action")
)

// RegexError is the configuration fault raised when a variable regex cannot
// be compiled.
type RegexError struct {
	Variable string
	Pattern  string
	Err      error
}

func (e *RegexError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Variable == "" {
		return fmt.Sprintf("templating: regex %q: %v", e.Pattern, e.Err)
	}
	return fmt.Sprintf("templating: variable %q regex %q: %v", e.Variable, e.Pattern, e.Err)
}

func (e *RegexError) Unwrap() []error {
	if e == nil {
		return nil
	}
	return []error{ErrInvalidRegex, e.Err}
}

// LookupError is the fault raised when an intent names an unknown variable.
type LookupError struct {
	Name string
}

func (e *LookupError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("templating: variable %q not found in state", e.Name)
}

func (e *LookupError) Unwrap() error {
	return ErrVariableNotFound
}

func wrapRegexError(variable, pattern string, err error) error {
	if err == nil {
		return nil
	}
	var regexErr *RegexError
	if errors.As(err, &regexErr) {
		if regexErr.Variable == "" {
			regexErr.Variable = variable
		}
		return regexErr
	}
	return &RegexError{Variable: variable, Pattern: pattern, Err: err}
}
