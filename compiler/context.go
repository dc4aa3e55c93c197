// Package compiler turns script sources into Definitions inside one shared,
// append-only goja runtime.
//
// Each source must call the global define function exactly once:
//
//	define({
//	    name: "com.acme.Greeter",
//	    markers: ["service"],
//	    condition: "props['feature.greeter'] == 'on'",
//	    provides: ["greeterClient"],
//	    attributes: { greeting: "hello" },
//	    factory: function (payload) { return { text: this.attributes.greeting + ", " + payload.who } },
//	});
//
// The global lookup(name) returns the descriptor of a definition loaded by
// an earlier source, and top-level declarations stay visible to every later
// source.
package compiler

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dop251/goja"
	"github.com/goliatone/go-scriptloader/loaderr"
	"github.com/mitchellh/mapstructure"
)

// Context owns the shared runtime and every definition loaded into it.
// Definitions are never removed or replaced.
type Context struct {
	// vmMu serialises runtime access; goja.Runtime is single-threaded.
	vmMu sync.Mutex
	vm   *goja.Runtime

	mu     sync.RWMutex
	defs   []*Definition
	byName map[string]*Definition

	staged *staging
}

type staging struct {
	calls      int
	descriptor *goja.Object
}

type descriptor struct {
	Name       string         `mapstructure:"name"`
	Markers    []string       `mapstructure:"markers"`
	Condition  string         `mapstructure:"condition"`
	Provides   []string       `mapstructure:"provides"`
	Attributes map[string]any `mapstructure:"attributes"`
}

var (
	defaultOnce sync.Once
	defaultCtx  *Context
)

// Default returns the process-wide context, creating it on first use.
func Default() *Context {
	defaultOnce.Do(func() {
		defaultCtx = NewContext()
	})
	return defaultCtx
}

// NewContext builds an empty context with its own runtime.
func NewContext() *Context {
	c := &Context{
		vm:     goja.New(),
		byName: map[string]*Definition{},
	}
	_ = c.vm.Set("define", c.define)
	_ = c.vm.Set("lookup", c.lookup)
	return c
}

// Load compiles and runs the source at path. Any failure, including a read
// error, is reported as PARSE_ERROR and nothing is committed.
func (c *Context) Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, loaderr.Parse(path, err)
	}
	return c.LoadSource(path, string(data))
}

// LoadSource compiles and runs src, using name for diagnostics and as the
// definition's Source.
func (c *Context) LoadSource(name, src string) (*Definition, error) {
	program, err := goja.Compile(name, src, false)
	if err != nil {
		return nil, loaderr.Parse(name, err)
	}

	c.vmMu.Lock()
	defer c.vmMu.Unlock()

	c.staged = &staging{}
	defer func() { c.staged = nil }()

	if _, err := c.vm.RunProgram(program); err != nil {
		return nil, loaderr.Parse(name, err)
	}

	switch c.staged.calls {
	case 0:
		return nil, loaderr.Parse(name, errors.New("source does not call define"))
	case 1:
	default:
		return nil, loaderr.Parse(name, fmt.Errorf("source calls define %d times", c.staged.calls))
	}

	def, err := c.build(name, c.staged.descriptor)
	if err != nil {
		return nil, loaderr.Parse(name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if def.Name != "" {
		if _, exists := c.byName[def.Name]; exists {
			return nil, loaderr.Parse(name, fmt.Errorf("definition %q already loaded", def.Name))
		}
		c.byName[def.Name] = def
	}
	c.defs = append(c.defs, def)
	return def, nil
}

func (c *Context) build(source string, obj *goja.Object) (*Definition, error) {
	var desc descriptor
	if err := mapstructure.Decode(obj.Export(), &desc); err != nil {
		return nil, fmt.Errorf("invalid descriptor: %w", err)
	}

	def := &Definition{
		Name:       desc.Name,
		Source:     source,
		Condition:  desc.Condition,
		Provides:   desc.Provides,
		Attributes: desc.Attributes,
		ctx:        c,
		descriptor: obj,
	}
	for _, marker := range desc.Markers {
		def.Markers = append(def.Markers, Marker(marker))
	}

	if value := obj.Get("factory"); value != nil && !goja.IsUndefined(value) && !goja.IsNull(value) {
		fn, ok := goja.AssertFunction(value)
		if !ok {
			return nil, errors.New("descriptor factory must be a function")
		}
		def.factory = fn
	}
	return def, nil
}

func (c *Context) define(call goja.FunctionCall) goja.Value {
	if c.staged == nil {
		panic(c.vm.NewTypeError("define may only be called while a source is loading"))
	}
	arg := call.Argument(0)
	if goja.IsUndefined(arg) || goja.IsNull(arg) {
		panic(c.vm.NewTypeError("define requires a descriptor object"))
	}
	obj := arg.ToObject(c.vm)
	c.staged.calls++
	c.staged.descriptor = obj
	return obj
}

func (c *Context) lookup(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	c.mu.RLock()
	def, ok := c.byName[name]
	c.mu.RUnlock()
	if !ok {
		return goja.Undefined()
	}
	return def.descriptor
}

// Lookup returns the definition registered under a fully-qualified name.
func (c *Context) Lookup(name string) (*Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.byName[name]
	return def, ok
}

// Definitions returns every loaded definition in load order.
func (c *Context) Definitions() []*Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Definition(nil), c.defs...)
}

// Len reports how many definitions have been loaded.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.defs)
}
