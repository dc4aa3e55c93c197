package envelope

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-scriptloader/compiler"
)

func loadOrder(t *testing.T) *compiler.Context {
	t.Helper()
	ctx := compiler.NewContext()
	_, err := ctx.LoadSource("order.js", `
		define({
			name: "com.acme.Order",
			factory: function (payload) { return { total: payload.qty * 2 }; },
		});
	`)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return ctx
}

func TestDecodeResolvesTypeAgainstContext(t *testing.T) {
	ctx := loadOrder(t)
	decoder := NewDecoder(WithResolver(func() *compiler.Context { return ctx }))

	env, err := decoder.Decode([]byte(`{"@type":"com.acme.Order","topic":"orders","payload":{"qty":21}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Definition == nil || env.Definition.Name != "com.acme.Order" {
		t.Fatalf("expected resolved definition, got %+v", env.Definition)
	}
	if env.ReceivedTime == 0 {
		t.Fatalf("expected received time to be stamped")
	}

	out, err := env.Instantiate()
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	instance := out.(map[string]any)
	if !numberEquals(instance["total"], 42) {
		t.Fatalf("unexpected instance %#v", instance)
	}
}

func TestDecodeUsesPublishedContext(t *testing.T) {
	ctx := loadOrder(t)
	previous := SharedContext()
	SetSharedContext(ctx)
	t.Cleanup(func() { SetSharedContext(previous) })

	env, err := NewDecoder().Decode([]byte(`{"@type":"com.acme.Order"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Definition == nil {
		t.Fatalf("expected definition from shared context")
	}
}

func TestDecodeFailures(t *testing.T) {
	ctx := loadOrder(t)

	_, err := NewDecoder(WithResolver(func() *compiler.Context { return nil })).Decode([]byte(`{"@type":"com.acme.Order"}`))
	if !errors.Is(err, ErrNoContext) {
		t.Fatalf("expected ErrNoContext, got %v", err)
	}

	_, err = NewDecoder(WithResolver(func() *compiler.Context { return ctx })).Decode([]byte(`{"@type":"com.acme.Missing"}`))
	var unknown *UnknownTypeError
	if !errors.As(err, &unknown) || unknown.Type != "com.acme.Missing" {
		t.Fatalf("expected UnknownTypeError, got %v", err)
	}

	_, err = NewDecoder(WithDisallowUnknownFields()).Decode([]byte(`{"bogus":1}`))
	if err == nil {
		t.Fatalf("expected unknown field rejection")
	}

	if _, err := NewDecoder().Decode([]byte(`null`)); err == nil {
		t.Fatalf("expected null payload error")
	}
}

func TestDecodeUntypedSkipsResolution(t *testing.T) {
	decoder := NewDecoder(WithResolver(func() *compiler.Context { return nil }))
	env, err := decoder.Decode([]byte(`{"id":"42","payload":{"a":1}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Definition != nil {
		t.Fatalf("untyped envelope must not resolve")
	}
	if _, err := env.Instantiate(); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
}

func TestDecodeHooks(t *testing.T) {
	decoder := NewDecoder(
		WithUseNumber(),
		WithPreHook(func(raw map[string]any) (map[string]any, error) {
			raw["topic"] = "rewritten"
			return raw, nil
		}),
		WithPostHook(func(env *Envelope) error {
			env.Flag(4)
			return nil
		}),
	)
	env, err := decoder.Decode([]byte(`{"topic":"orig","statusCode":1,"payload":{"n":7}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Topic != "rewritten" {
		t.Fatalf("expected pre-hook rewrite, got %q", env.Topic)
	}
	if !env.HasFlag(1) || !env.HasFlag(4) || env.HasFlag(2) {
		t.Fatalf("unexpected status flags %d", env.StatusCode)
	}
	if _, ok := env.Payload["n"].(json.Number); !ok {
		t.Fatalf("expected json.Number payload, got %T", env.Payload["n"])
	}

	failing := NewDecoder(WithPostHook(func(*Envelope) error { return errors.New("rejected") }))
	if _, err := failing.Decode([]byte(`{}`)); err == nil {
		t.Fatalf("expected post-hook failure")
	}
}

func TestEncodeRoundTripsType(t *testing.T) {
	env := New("com.acme.Order", map[string]any{"qty": 1})
	if env.UUID.String() == "" || env.CreatedTime > time.Now().UnixMilli() {
		t.Fatalf("unexpected defaults %+v", env)
	}
	data, err := Encode(env)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["@type"] != "com.acme.Order" {
		t.Fatalf("expected @type in wire form, got %v", raw["@type"])
	}
	if _, err := Encode(nil); err == nil {
		t.Fatalf("expected nil envelope error")
	}
}

func numberEquals(value any, want float64) bool {
	switch n := value.(type) {
	case int64:
		return float64(n) == want
	case float64:
		return n == want
	default:
		return false
	}
}
