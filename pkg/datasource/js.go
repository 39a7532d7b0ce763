//go:build js_eval

package datasource

import (
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	cfg jsEvaluatorConfig
}

// NewJSEvaluator constructs an Evaluator backed by goja. Each evaluation
// runs in a fresh runtime and is interrupted after the configured timeout.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	return &jsEvaluator{cfg: applyJSEvaluatorOptions(opts)}
}

// JSEvaluatorAvailable reports whether the binary was built with js_eval.
func JSEvaluatorAvailable() bool {
	return true
}

func (e *jsEvaluator) Engine() string {
	return "js"
}

func (e *jsEvaluator) Evaluate(env Env, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("js", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, "", err)
	}
	vm := goja.New()
	if err := e.inject(vm, e.cfg.env(env)); err != nil {
		return nil, wrapEvaluationError("js", expression, "", err)
	}
	if e.cfg.timeout > 0 {
		timer := time.AfterFunc(e.cfg.timeout, func() {
			vm.Interrupt(ErrQueryTimeout)
		})
		defer timer.Stop()
	}
	value, err := vm.RunProgram(program)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			err = fmt.Errorf("%w after %s", ErrQueryTimeout, e.cfg.timeout)
		}
		return nil, wrapEvaluationError("js", expression, "", err)
	}
	return value.Export(), nil
}

func (e *jsEvaluator) loadOrCompile(expression string) (*goja.Program, error) {
	if e.cfg.cache != nil {
		if cached, ok := e.cfg.cache.Get(expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", fmt.Sprintf("(function(){ return (%s); })()", expression), false)
	if err != nil {
		return nil, err
	}
	if e.cfg.cache != nil {
		e.cfg.cache.Set(expression, program)
	}
	return program, nil
}

func (e *jsEvaluator) inject(vm *goja.Runtime, env Env) error {
	for key, value := range env {
		if err := vm.Set(key, value); err != nil {
			return err
		}
	}
	registry := e.cfg.registry
	if registry == nil {
		return nil
	}
	if err := vm.Set("call", func(name string, arguments ...any) (any, error) {
		return registry.Call(name, arguments...)
	}); err != nil {
		return err
	}
	for _, name := range registry.Names() {
		fn := name
		if err := vm.Set(fn, func(arguments ...any) (any, error) {
			return registry.Call(fn, arguments...)
		}); err != nil {
			return err
		}
	}
	return nil
}
