package loader

import (
	"reflect"
	"sync"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELConditionOption configures the CEL condition evaluator.
type CELConditionOption func(*celConditions)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELConditionOption {
	return func(e *celConditions) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry exposes registry through call(name) and
// call(name, [args...]).
func CELWithFunctionRegistry(registry *FunctionRegistry) CELConditionOption {
	return func(e *celConditions) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celConditions struct {
	cache    ProgramCache
	registry *FunctionRegistry

	envOnce sync.Once
	env     *celgo.Env
	envErr  error
}

// NewCELConditions constructs a ConditionEvaluator backed by cel-go.
func NewCELConditions(opts ...CELConditionOption) ConditionEvaluator {
	e := &celConditions{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celConditions) Evaluate(expression string, ctx ConditionContext) (bool, error) {
	if expression == "" {
		return false, wrapConditionError("cel", expression, ctx.Source, errEmptyCondition)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return false, wrapConditionError("cel", expression, ctx.Source, err)
	}
	out, _, err := program.Eval(ctx.environment())
	if err != nil {
		return false, wrapConditionError("cel", expression, ctx.Source, err)
	}
	value, err := asBool(out.Value())
	if err != nil {
		return false, wrapConditionError("cel", expression, ctx.Source, err)
	}
	return value, nil
}

func (e *celConditions) environment() (*celgo.Env, error) {
	e.envOnce.Do(func() {
		opts := []celgo.EnvOption{
			celgo.Variable("props", celgo.MapType(celgo.StringType, celgo.StringType)),
			celgo.Variable("name", celgo.StringType),
			celgo.Variable("markers", celgo.ListType(celgo.StringType)),
			celgo.Variable("source", celgo.StringType),
		}
		if e.registry != nil {
			opts = append(opts, celgo.Function("call",
				celgo.Overload("call_string",
					[]*celgo.Type{celgo.StringType},
					celgo.DynType,
					celgo.UnaryBinding(func(name ref.Val) ref.Val {
						return e.call(name, nil)
					}),
				),
				celgo.Overload("call_string_list",
					[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
					celgo.DynType,
					celgo.BinaryBinding(e.call),
				),
			))
		}
		e.env, e.envErr = celgo.NewEnv(opts...)
	})
	return e.env, e.envErr
}

var anySliceType = reflect.TypeOf([]any{})

func (e *celConditions) call(nameVal, argsVal ref.Val) ref.Val {
	name, ok := nameVal.Value().(string)
	if !ok {
		return types.NewErr("%s", errCallName.Error())
	}
	var args []any
	if argsVal != nil {
		native, err := argsVal.ConvertToNative(anySliceType)
		if err != nil {
			return types.NewErr("loader: call arguments: %v", err)
		}
		args, _ = native.([]any)
	}
	result, err := e.registry.Call(name, args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

func (e *celConditions) loadOrCompile(expression string) (celgo.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}
	env, err := e.environment()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}
