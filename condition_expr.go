package loader

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprConditionOption configures the expr condition evaluator.
type ExprConditionOption func(*exprConditions)

// ExprWithProgramCache wires a ProgramCache into the expr evaluator.
func ExprWithProgramCache(cache ProgramCache) ExprConditionOption {
	return func(e *exprConditions) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry exposes every function in registry by name and
// through call(name, args...).
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprConditionOption {
	return func(e *exprConditions) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type exprConditions struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprConditions constructs a ConditionEvaluator backed by expr-lang/expr.
// It is the loader's default engine.
func NewExprConditions(opts ...ExprConditionOption) ConditionEvaluator {
	e := &exprConditions{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *exprConditions) Evaluate(expression string, ctx ConditionContext) (bool, error) {
	if expression == "" {
		return false, wrapConditionError("expr", expression, ctx.Source, errEmptyCondition)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return false, wrapConditionError("expr", expression, ctx.Source, err)
	}
	result, err := exprlang.Run(program, ctx.environment())
	if err != nil {
		return false, wrapConditionError("expr", expression, ctx.Source, err)
	}
	value, err := asBool(result)
	if err != nil {
		return false, wrapConditionError("expr", expression, ctx.Source, err)
	}
	return value, nil
}

func (e *exprConditions) loadOrCompile(expression string) (*exprvm.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(ConditionContext{}.environment()),
		exprlang.AsBool(),
	}
	if e.registry != nil {
		options = append(options, exprlang.Function("call", e.callBinding()))
		for _, name := range e.registry.Names() {
			options = append(options, exprlang.Function(name, e.registryFunction(name)))
		}
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func (e *exprConditions) callBinding() func(...any) (any, error) {
	return func(arguments ...any) (any, error) {
		if len(arguments) == 0 {
			return nil, errCallName
		}
		name, ok := arguments[0].(string)
		if !ok {
			return nil, errCallName
		}
		return e.registry.Call(name, arguments[1:]...)
	}
}

func (e *exprConditions) registryFunction(name string) func(...any) (any, error) {
	return func(arguments ...any) (any, error) {
		return e.registry.Call(name, arguments...)
	}
}
