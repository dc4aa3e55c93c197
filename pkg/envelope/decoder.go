package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/goliatone/go-scriptloader/compiler"
)

// PreHook lets callers rewrite the raw payload before decoding.
type PreHook func(map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the decoded envelope.
type PostHook func(*Envelope) error

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// Decoder turns JSON into envelopes and resolves their payload type.
type Decoder struct {
	preHooks        []PreHook
	postHooks       []PostHook
	useNumber       bool
	disallowUnknown bool
	resolver        func() *compiler.Context
	now             func() time.Time
}

// WithPreHook applies hook before decoding.
func WithPreHook(hook PreHook) DecoderOption {
	return func(d *Decoder) {
		if hook != nil {
			d.preHooks = append(d.preHooks, hook)
		}
	}
}

// WithPostHook applies hook after the type has been resolved.
func WithPostHook(hook PostHook) DecoderOption {
	return func(d *Decoder) {
		if hook != nil {
			d.postHooks = append(d.postHooks, hook)
		}
	}
}

// WithUseNumber keeps payload numbers as json.Number.
func WithUseNumber() DecoderOption {
	return func(d *Decoder) {
		d.useNumber = true
	}
}

// WithDisallowUnknownFields rejects unknown envelope fields.
func WithDisallowUnknownFields() DecoderOption {
	return func(d *Decoder) {
		d.disallowUnknown = true
	}
}

// WithResolver overrides where the compiler context comes from. The
// default reads the published shared context.
func WithResolver(resolver func() *compiler.Context) DecoderOption {
	return func(d *Decoder) {
		if resolver != nil {
			d.resolver = resolver
		}
	}
}

// NewDecoder constructs a decoder.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{
		resolver: SharedContext,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode parses data, runs hooks and resolves the payload type. Envelopes
// without a type decode untyped.
func (d *Decoder) Decode(data []byte) (*Envelope, error) {
	var raw map[string]any
	if err := d.newJSONDecoder(data, false).Decode(&raw); err != nil {
		return nil, fmt.Errorf("envelope: decode: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("envelope: payload is null")
	}

	for _, hook := range d.preHooks {
		next, err := hook(raw)
		if err != nil {
			return nil, fmt.Errorf("envelope: pre-hook failed: %w", err)
		}
		if next != nil {
			raw = next
		}
	}

	buffer, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("envelope: re-encode: %w", err)
	}
	env := &Envelope{}
	if err := d.newJSONDecoder(buffer, d.disallowUnknown).Decode(env); err != nil {
		return nil, fmt.Errorf("envelope: decode: %w", err)
	}
	if env.ReceivedTime == 0 {
		env.ReceivedTime = d.now().UnixMilli()
	}

	if env.Type != "" {
		ctx := d.resolver()
		if ctx == nil {
			return nil, ErrNoContext
		}
		def, ok := ctx.Lookup(env.Type)
		if !ok {
			return nil, &UnknownTypeError{Type: env.Type}
		}
		env.Definition = def
	}

	for _, hook := range d.postHooks {
		if err := hook(env); err != nil {
			return nil, fmt.Errorf("envelope: post-hook for %q failed: %w", env.Type, err)
		}
	}
	return env, nil
}

func (d *Decoder) newJSONDecoder(data []byte, strict bool) *json.Decoder {
	decoder := json.NewDecoder(bytes.NewReader(data))
	if d.useNumber {
		decoder.UseNumber()
	}
	if strict {
		decoder.DisallowUnknownFields()
	}
	return decoder
}

// Encode marshals env as JSON.
func Encode(env *Envelope) ([]byte, error) {
	if env == nil {
		return nil, fmt.Errorf("envelope: nil envelope")
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("envelope: encode: %w", err)
	}
	return data, nil
}
