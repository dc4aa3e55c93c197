package compiler

import (
	"fmt"
	"slices"

	"github.com/dop251/goja"
)

// Marker is a capability tag a definition declares in its descriptor.
type Marker string

const (
	MarkerComponent      Marker = "component"
	MarkerService        Marker = "service"
	MarkerRepository     Marker = "repository"
	MarkerController     Marker = "controller"
	MarkerRestController Marker = "rest-controller"
	MarkerConfiguration  Marker = "configuration"
	// MarkerBean flags definitions that provide extra registrable members.
	// It is not a component specialization.
	MarkerBean Marker = "bean"
)

// specializations maps a marker to the marker it refines.
var specializations = map[Marker]Marker{
	MarkerService:        MarkerComponent,
	MarkerRepository:     MarkerComponent,
	MarkerController:     MarkerComponent,
	MarkerConfiguration:  MarkerComponent,
	MarkerRestController: MarkerController,
}

// Is reports whether m equals target or refines it through the
// specialization chain.
func (m Marker) Is(target Marker) bool {
	seen := map[Marker]struct{}{}
	for current := m; current != ""; current = specializations[current] {
		if current == target {
			return true
		}
		if _, ok := seen[current]; ok {
			return false
		}
		seen[current] = struct{}{}
	}
	return false
}

// Definition is the compiled form of one script source.
type Definition struct {
	// Name is the fully-qualified name declared by the source. May be empty.
	Name       string
	Source     string
	Markers    []Marker
	Condition  string
	Provides   []string
	Attributes map[string]any

	ctx        *Context
	descriptor *goja.Object
	factory    goja.Callable
}

// HasCapability reports whether any declared marker is, or specializes, m.
func (d *Definition) HasCapability(m Marker) bool {
	if d == nil {
		return false
	}
	return slices.ContainsFunc(d.Markers, func(declared Marker) bool {
		return declared.Is(m)
	})
}

// HasFactory reports whether the source supplied a factory function.
func (d *Definition) HasFactory() bool {
	return d != nil && d.factory != nil
}

// New builds an instance through the definition's factory, passing args as
// JavaScript values. Without a factory it returns a copy of Attributes.
func (d *Definition) New(args ...any) (any, error) {
	if d == nil {
		return nil, fmt.Errorf("compiler: definition is nil")
	}
	if d.factory == nil {
		return cloneAttributes(d.Attributes), nil
	}

	d.ctx.vmMu.Lock()
	defer d.ctx.vmMu.Unlock()

	values := make([]goja.Value, len(args))
	for i, arg := range args {
		values[i] = d.ctx.vm.ToValue(arg)
	}
	result, err := d.factory(d.descriptor, values...)
	if err != nil {
		return nil, fmt.Errorf("compiler: factory for %s: %w", d.label(), err)
	}
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return nil, nil
	}
	return result.Export(), nil
}

func (d *Definition) label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Source
}

func cloneAttributes(src map[string]any) map[string]any {
	if len(src) == 0 {
		return map[string]any{}
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
