package datasource

import (
	"errors"
	"maps"
	"time"
)

// DefaultJSQueryTimeout bounds a single JavaScript query evaluation.
const DefaultJSQueryTimeout = 2 * time.Second

// ErrQueryTimeout is returned when a query script runs past its timeout.
var ErrQueryTimeout = errors.New("datasource: query timed out")

type jsEvaluatorConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
	globals  Env
	timeout  time.Duration
}

// JSEvaluatorOption configures the JS evaluator.
type JSEvaluatorOption func(*jsEvaluatorConfig)

// JSWithProgramCache memoizes compiled query scripts.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(cfg *jsEvaluatorConfig) {
		cfg.cache = cache
	}
}

// JSWithFunctionRegistry exposes registry functions to query scripts, both
// by name and through call(name, ...args).
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(cfg *jsEvaluatorConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

// JSWithGlobals binds values visible to every query script. Bindings of the
// query environment (data, vars, search) take precedence.
func JSWithGlobals(globals Env) JSEvaluatorOption {
	return func(cfg *jsEvaluatorConfig) {
		cfg.globals = maps.Clone(globals)
	}
}

// JSWithTimeout interrupts scripts running longer than timeout. A zero or
// negative timeout disables the limit.
func JSWithTimeout(timeout time.Duration) JSEvaluatorOption {
	return func(cfg *jsEvaluatorConfig) {
		cfg.timeout = timeout
	}
}

func applyJSEvaluatorOptions(opts []JSEvaluatorOption) jsEvaluatorConfig {
	cfg := jsEvaluatorConfig{timeout: DefaultJSQueryTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (cfg jsEvaluatorConfig) env(env Env) Env {
	if len(cfg.globals) == 0 {
		return env.withDefaults()
	}
	merged := maps.Clone(cfg.globals)
	maps.Copy(merged, env)
	return merged.withDefaults()
}
