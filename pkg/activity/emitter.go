package activity

import (
	"context"
	"strings"
)

// DefaultChannel tags events emitted without an explicit channel.
const DefaultChannel = "scriptloader"

// Emitter applies defaults and fans events out to hooks.
type Emitter struct {
	hooks    Hooks
	channel  string
	actorID  string
	tenantID string
}

// NewEmitter builds an emitter. Nil hooks are dropped; an empty channel
// falls back to DefaultChannel. actorID and tenantID stamp events that do
// not carry their own.
func NewEmitter(hooks Hooks, channel, actorID, tenantID string) *Emitter {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultChannel
	}
	var kept Hooks
	for _, hook := range hooks {
		if hook != nil {
			kept = append(kept, hook)
		}
	}
	return &Emitter{
		hooks:    kept,
		channel:  channel,
		actorID:  strings.TrimSpace(actorID),
		tenantID: strings.TrimSpace(tenantID),
	}
}

// Enabled reports whether any hook is attached.
func (e *Emitter) Enabled() bool {
	return e != nil && len(e.hooks) > 0
}

// Emit forwards event after filling in channel, actor and tenant.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if strings.TrimSpace(event.ActorID) == "" {
		event.ActorID = e.actorID
	}
	if strings.TrimSpace(event.TenantID) == "" {
		event.TenantID = e.tenantID
	}
	return e.hooks.Notify(ctx, event)
}
