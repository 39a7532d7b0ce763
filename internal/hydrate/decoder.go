package hydrate

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	templating "github.com/goliatone/go-templating"
	"github.com/goliatone/go-templating/layering"
)

var (
	// ErrMissingType is returned when a definition has no "type" field.
	ErrMissingType = errors.New("hydrate: variable type is required")
	// ErrMissingName is returned when a definition has no "name" field.
	ErrMissingName = errors.New("hydrate: variable name is required")
)

// Context carries identifiers tied to the definitions being decoded.
type Context struct {
	Dashboard string
	Source    string
}

// PreHook lets callers mutate or normalise a definition before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the decoded variable.
type PostHook func(Context, templating.VariableModel) error

// DecoderOption configures a Decoder instance.
type DecoderOption func(*Decoder)

// Decoder turns variable definitions into variable models of the kind named
// by their "type" field. Definitions are merged over the kind's initial
// state, so omitted fields keep their defaults.
type Decoder struct {
	registry        *templating.Registry
	preHooks        []PreHook
	postHooks       []PostHook
	disallowUnknown bool
}

// WithPreHook applies hook prior to decoding.
func WithPreHook(hook PreHook) DecoderOption {
	return func(d *Decoder) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook(hook PostHook) DecoderOption {
	return func(d *Decoder) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithDisallowUnknownFields rejects definitions carrying fields the kind
// does not know.
func WithDisallowUnknownFields() DecoderOption {
	return func(d *Decoder) {
		d.disallowUnknown = true
	}
}

// NewDecoder constructs a decoder resolving kinds through registry. A nil
// registry selects templating.DefaultRegistry.
func NewDecoder(registry *templating.Registry, opts ...DecoderOption) *Decoder {
	if registry == nil {
		registry = templating.DefaultRegistry()
	}
	d := &Decoder{registry: registry}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Document is the on-disk shape of a variable list.
type Document struct {
	List []map[string]any `json:"list" yaml:"list"`
}

// DecodeJSON decodes a JSON document of the form {"list": [...]}.
func (d *Decoder) DecodeJSON(ctx Context, data []byte) ([]templating.VariableModel, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("hydrate: parse json %q: %w", ctx.Source, err)
	}
	return d.DecodeAll(ctx, doc.List)
}

// DecodeYAML decodes a YAML document with a top level "list" key.
func (d *Decoder) DecodeYAML(ctx Context, data []byte) ([]templating.VariableModel, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("hydrate: parse yaml %q: %w", ctx.Source, err)
	}
	return d.DecodeAll(ctx, doc.List)
}

// DecodeAll decodes definitions in order and stops at the first failure.
func (d *Decoder) DecodeAll(ctx Context, definitions []map[string]any) ([]templating.VariableModel, error) {
	out := make([]templating.VariableModel, 0, len(definitions))
	for i, definition := range definitions {
		variable, err := d.Decode(ctx, definition)
		if err != nil {
			return nil, fmt.Errorf("hydrate: definition %d: %w", i, err)
		}
		out = append(out, variable)
	}
	return out, nil
}

// Decode converts one definition into a variable model.
func (d *Decoder) Decode(ctx Context, payload map[string]any) (templating.VariableModel, error) {
	if payload == nil {
		return nil, fmt.Errorf("hydrate: payload is nil for dashboard %q", ctx.Dashboard)
	}

	current, _ := layering.Clone(payload).(map[string]any)
	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("hydrate: pre-hook for dashboard %q failed: %w", ctx.Dashboard, err)
		}
		if next != nil {
			current = next
		}
	}

	kind := stringField(current, "type")
	if kind == "" {
		return nil, ErrMissingType
	}
	name := stringField(current, "name")
	if name == "" {
		return nil, ErrMissingName
	}
	adapter, err := d.registry.Get(templating.VariableType(kind))
	if err != nil {
		return nil, err
	}

	variable := adapter.NewVariable(name)
	defaults, err := templating.NewSaveModel(variable)
	if err != nil {
		return nil, err
	}
	merged := layering.MergeLayers(current, defaults)

	buffer, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("hydrate: marshal %s: %w", name, err)
	}
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	if d.disallowUnknown {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(variable); err != nil {
		return nil, fmt.Errorf("hydrate: decode %s: %w", name, err)
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, variable); err != nil {
			return nil, fmt.Errorf("hydrate: post-hook for %s failed: %w", name, err)
		}
	}
	return variable, nil
}

func stringField(payload map[string]any, key string) string {
	value, _ := payload[key].(string)
	return strings.TrimSpace(value)
}
