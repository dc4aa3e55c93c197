package registry

import (
	"errors"
	"reflect"
	"testing"

	"github.com/goliatone/go-scriptloader/compiler"
)

func TestMemoryRegisterKeepsOrder(t *testing.T) {
	reg := NewMemory()
	for _, key := range []string{"b", "a", "c"} {
		if err := reg.Register(key, &compiler.Definition{Name: key}); err != nil {
			t.Fatalf("register %s: %v", key, err)
		}
	}
	if got := reg.Keys(); !reflect.DeepEqual(got, []string{"b", "a", "c"}) {
		t.Fatalf("unexpected order %v", got)
	}
	if def, ok := reg.Lookup("a"); !ok || def.Name != "a" {
		t.Fatalf("lookup failed: %+v", def)
	}
	if reg.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", reg.Len())
	}
}

func TestMemoryRejectsCollisions(t *testing.T) {
	reg := NewMemory()
	if err := reg.Register("x", &compiler.Definition{}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := reg.Register("x", &compiler.Definition{})
	if !errors.Is(err, ErrKeyCollision) {
		t.Fatalf("expected collision, got %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("collision must not add an entry")
	}
}

func TestMemoryRejectsInvalidInput(t *testing.T) {
	reg := &Memory{}
	if err := reg.Register("", &compiler.Definition{}); err == nil {
		t.Fatalf("expected empty key error")
	}
	if err := reg.Register("k", nil); err == nil {
		t.Fatalf("expected nil definition error")
	}
	if err := reg.Register("k", &compiler.Definition{}); err != nil {
		t.Fatalf("zero-value registry should lazily initialise: %v", err)
	}
}

func TestFuncAdapter(t *testing.T) {
	var got string
	reg := Func(func(key string, _ *compiler.Definition) error {
		got = key
		return nil
	})
	if err := reg.Register("k", &compiler.Definition{}); err != nil || got != "k" {
		t.Fatalf("adapter did not forward: got=%q err=%v", got, err)
	}
	var nilFunc Func
	if err := nilFunc.Register("k", nil); err == nil {
		t.Fatalf("expected nil func error")
	}
}
