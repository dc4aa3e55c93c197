package loader

import (
	"github.com/goliatone/go-scriptloader/compiler"
	"github.com/goliatone/go-scriptloader/loaderr"
	"github.com/google/uuid"
)

// Entry is a definition paired with the key it is registered under.
type Entry struct {
	Key        string
	Definition *compiler.Definition
}

// KeyFunc derives the registry key for an eligible definition.
type KeyFunc func(*compiler.Definition) string

// DefaultKey uses the definition's fully-qualified name, or a random UUID
// when the source declared none.
func DefaultKey(def *compiler.Definition) string {
	if def != nil && def.Name != "" {
		return def.Name
	}
	return uuid.NewString()
}

// Eligible reports whether def carries the component capability, directly
// or through a specialization.
func Eligible(def *compiler.Definition) bool {
	return def.HasCapability(compiler.MarkerComponent)
}

// Filter selects registrable definitions and names them. Only top-level
// definitions are considered; entries listed in Provides are not expanded.
type Filter struct {
	conditions ConditionEvaluator
	props      map[string]string
	key        KeyFunc
}

// NewFilter builds a filter. nil conditions default to the expr engine and
// a nil key func to DefaultKey.
func NewFilter(conditions ConditionEvaluator, props map[string]string, key KeyFunc) *Filter {
	if conditions == nil {
		conditions = NewExprConditions()
	}
	if key == nil {
		key = DefaultKey
	}
	return &Filter{
		conditions: conditions,
		props:      props,
		key:        key,
	}
}

// Apply returns entries for eligible definitions in input order. A condition
// that fails to evaluate is reported as PARSE_ERROR against its source.
func (f *Filter) Apply(defs []*compiler.Definition) ([]Entry, error) {
	entries := make([]Entry, 0, len(defs))
	for _, def := range defs {
		if !Eligible(def) {
			continue
		}
		if def.Condition != "" {
			ok, err := f.conditions.Evaluate(def.Condition, f.conditionContext(def))
			if err != nil {
				return nil, loaderr.Parse(def.Source, err)
			}
			if !ok {
				continue
			}
		}
		entries = append(entries, Entry{Key: f.key(def), Definition: def})
	}
	return entries, nil
}

func (f *Filter) conditionContext(def *compiler.Definition) ConditionContext {
	markers := make([]string, 0, len(def.Markers))
	for _, marker := range def.Markers {
		markers = append(markers, string(marker))
	}
	return ConditionContext{
		Props:   f.props,
		Name:    def.Name,
		Markers: markers,
		Source:  def.Source,
	}
}
