package datasource

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry exposes the registry through call(name, args...).
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Every Env key is
// declared as a dynamically typed variable.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Engine() string {
	return "cel"
}

func (e *celEvaluator) Evaluate(env Env, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	env = env.withDefaults()
	program, err := e.loadOrCompile(expression, env)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, "", err)
	}
	out, _, err := program.Eval(e.activation(env))
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, "", err)
	}
	return celNative(out), nil
}

// loadOrCompile caches programs per expression and declared variable set.
func (e *celEvaluator) loadOrCompile(expression string, env Env) (celgo.Program, error) {
	names := slices.Sorted(maps.Keys(env))
	key := expression + "\x00" + strings.Join(names, ",")
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}

	celEnv, err := e.buildEnv(names)
	if err != nil {
		return nil, err
	}
	ast, issues := celEnv.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := celEnv.Program(ast)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

func (e *celEvaluator) buildEnv(names []string) (*celgo.Env, error) {
	opts := make([]celgo.EnvOption, 0, len(names)+1)
	for _, name := range names {
		if name == "now" {
			opts = append(opts, celgo.Variable(name, celgo.TimestampType))
			continue
		}
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call", celgo.Overload(
			"call_dyn",
			[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
			celgo.DynType,
			celgo.FunctionBinding(functions.FunctionOp(e.callBinding())),
		)))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) activation(env Env) map[string]any {
	activation := make(map[string]any, len(env))
	for key, value := range env {
		if key == "now" {
			if ts, ok := value.(time.Time); ok {
				activation[key] = types.Timestamp{Time: ts}
				continue
			}
		}
		activation[key] = value
	}
	return activation
}

// callBinding implements call(name, [args...]).
func (e *celEvaluator) callBinding() func(...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		if len(values) != 2 {
			return types.NewErr("datasource: call requires a name and an argument list")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("datasource: call name must be string")
		}
		args, _ := celNative(values[1]).([]any)
		result, err := e.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}

// celNative converts CEL lists and maps into []any and map[string]any.
func celNative(value ref.Val) any {
	switch v := value.(type) {
	case traits.Lister:
		size, _ := v.Size().Value().(int64)
		out := make([]any, 0, size)
		for i := int64(0); i < size; i++ {
			out = append(out, celNative(v.Get(types.Int(i))))
		}
		return out
	case traits.Mapper:
		out := map[string]any{}
		it := v.Iterator()
		for it.HasNext() == types.True {
			key := it.Next()
			out[fmt.Sprint(key.Value())] = celNative(v.Get(key))
		}
		return out
	case types.Null:
		return nil
	default:
		return value.Value()
	}
}
