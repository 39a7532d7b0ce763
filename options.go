package templating

import (
	"time"

	"github.com/goliatone/go-templating/pkg/activity"
)

// Option configures a Store.
type Option func(*storeConfig)

type storeConfig struct {
	registry       *Registry
	logger         DispatchLogger
	metrics        MetricsCollector
	activityHooks  activity.Hooks
	activityConfig activity.Config
	variables      []VariableModel
}

func applyOptions(opts []Option) storeConfig {
	cfg := storeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.registry == nil {
		cfg.registry = DefaultRegistry()
	}
	if cfg.logger == nil {
		cfg.logger = noopDispatchLogger{}
	}
	if cfg.metrics == nil {
		cfg.metrics = noopMetrics{}
	}
	return cfg
}

// WithRegistry sets the adapter registry used to route intents.
func WithRegistry(registry *Registry) Option {
	return func(cfg *storeConfig) {
		cfg.registry = registry
	}
}

// WithDispatchLogger attaches a dispatch logger to the store.
func WithDispatchLogger(logger DispatchLogger) Option {
	return func(cfg *storeConfig) {
		if logger == nil {
			cfg.logger = noopDispatchLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithMetrics attaches a metrics collector to the store.
func WithMetrics(collector MetricsCollector) Option {
	return func(cfg *storeConfig) {
		cfg.metrics = collector
	}
}

// WithActivityHooks attaches activity hooks notified about variable
// lifecycle events. Nil hooks are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *storeConfig) {
		cfg.activityHooks = normalized
		if len(normalized) > 0 {
			cfg.activityConfig.Enabled = true
		}
	}
}

// WithActivityConfig overrides activity emission defaults.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *storeConfig) {
		cfg.activityConfig = config
	}
}

// WithVariables seeds the store with variables in order.
func WithVariables(variables ...VariableModel) Option {
	return func(cfg *storeConfig) {
		cfg.variables = append(cfg.variables, variables...)
	}
}

// MetricsCollector observes store activity.
type MetricsCollector interface {
	ObserveDispatch(action ActionType, kind VariableType, duration time.Duration, err error)
	ObserveOptions(id Identifier, count int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveDispatch(ActionType, VariableType, time.Duration, error) {}
func (noopMetrics) ObserveOptions(Identifier, int)                                 {}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
