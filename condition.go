package loader

import (
	"errors"
	"fmt"
	"sync"
)

// ConditionContext is the data a definition's condition is evaluated
// against. Props holds every property the loader's source exposes, keyed by
// canonical name.
type ConditionContext struct {
	Props   map[string]string
	Name    string
	Markers []string
	Source  string
}

func (ctx ConditionContext) withDefaults() ConditionContext {
	if ctx.Props == nil {
		ctx.Props = map[string]string{}
	}
	if ctx.Markers == nil {
		ctx.Markers = []string{}
	}
	return ctx
}

func (ctx ConditionContext) environment() map[string]any {
	ctx = ctx.withDefaults()
	return map[string]any{
		"props":   ctx.Props,
		"name":    ctx.Name,
		"markers": ctx.Markers,
		"source":  ctx.Source,
	}
}

// ConditionEvaluator decides whether a conditional definition is registered.
type ConditionEvaluator interface {
	Evaluate(expression string, ctx ConditionContext) (bool, error)
}

// ProgramCache stores compiled condition programs keyed by expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

type memoryProgramCache struct {
	programs sync.Map
}

// NewProgramCache returns a concurrency-safe in-memory ProgramCache.
func NewProgramCache() ProgramCache {
	return &memoryProgramCache{}
}

func (c *memoryProgramCache) Get(key string) (any, bool) {
	return c.programs.Load(key)
}

func (c *memoryProgramCache) Set(key string, value any) {
	c.programs.Store(key, value)
}

var (
	errEmptyCondition = errors.New("condition must not be empty")
	errCallName       = errors.New("call requires a function name string")
)

// ConditionError captures the engine and expression alongside the cause.
type ConditionError struct {
	Engine string
	Expr   string
	Source string
	Err    error
}

func (e *ConditionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("loader: %s condition %q in %s: %v", e.Engine, e.Expr, e.Source, e.Err)
}

func (e *ConditionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func wrapConditionError(engine, expr, source string, err error) error {
	if err == nil {
		return nil
	}
	var condErr *ConditionError
	if errors.As(err, &condErr) {
		if condErr.Source == "" {
			condErr.Source = source
		}
		return condErr
	}
	return &ConditionError{Engine: engine, Expr: expr, Source: source, Err: err}
}

func asBool(result any) (bool, error) {
	value, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("condition must yield bool, got %T", result)
	}
	return value, nil
}
