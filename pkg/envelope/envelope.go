// Package envelope carries transport payloads whose concrete type is named
// by a definition loaded into the shared compiler context.
package envelope

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-scriptloader/compiler"
	"github.com/google/uuid"
)

var (
	// ErrNoContext is returned when a typed envelope is decoded before the
	// loader has published its compiler context.
	ErrNoContext = errors.New("envelope: shared compiler context not published")
	// ErrUnresolved is returned when instantiating an envelope without a
	// resolved definition.
	ErrUnresolved = errors.New("envelope: payload type not resolved")
)

var shared atomic.Pointer[compiler.Context]

// SetSharedContext publishes the context used to resolve payload types.
func SetSharedContext(ctx *compiler.Context) {
	shared.Store(ctx)
}

// SharedContext returns the published context, or nil.
func SharedContext() *compiler.Context {
	return shared.Load()
}

// UnknownTypeError reports a payload type missing from the context.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("envelope: unknown payload type %q", e.Type)
}

// Envelope is the generic message wrapper exchanged between services.
type Envelope struct {
	Type         string         `json:"@type,omitempty"`
	ID           string         `json:"id,omitempty"`
	Qualifier    string         `json:"qualifier,omitempty"`
	Topic        string         `json:"topic,omitempty"`
	UUID         uuid.UUID      `json:"uuid"`
	Tag          *uuid.UUID     `json:"tag,omitempty"`
	CreatedTime  int64          `json:"createdTime"`
	ReceivedTime int64          `json:"receivedTime,omitempty"`
	StatusCode   int64          `json:"statusCode"`
	Payload      map[string]any `json:"payload,omitempty"`

	// Definition is set by Decoder when Type resolves.
	Definition *compiler.Definition `json:"-"`
}

// New builds an envelope for a payload of the named type.
func New(typeName string, payload map[string]any) *Envelope {
	return &Envelope{
		Type:        typeName,
		UUID:        uuid.New(),
		CreatedTime: time.Now().UnixMilli(),
		Payload:     payload,
	}
}

// Flag ORs code into the status. Codes are bit flags.
func (e *Envelope) Flag(code int64) {
	e.StatusCode |= code
}

// HasFlag reports whether every bit of code is set.
func (e *Envelope) HasFlag(code int64) bool {
	return code != 0 && e.StatusCode&code == code
}

// Instantiate builds the payload through the resolved definition.
func (e *Envelope) Instantiate() (any, error) {
	if e == nil || e.Definition == nil {
		return nil, ErrUnresolved
	}
	return e.Definition.New(e.Payload)
}
