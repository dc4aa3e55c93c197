package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	metadata := map[string]any{"source": "a.js"}
	event := NormalizeEvent(Event{
		Verb:       "  " + VerbComponentRegistered + " ",
		ObjectType: " " + ObjectComponent,
		ObjectID:   "demo.Greeter  ",
		Channel:    " scriptloader ",
		Metadata:   metadata,
	})

	if event.Verb != VerbComponentRegistered || event.ObjectType != ObjectComponent || event.ObjectID != "demo.Greeter" {
		t.Fatalf("expected trimmed identifiers, got %+v", event)
	}
	if event.Channel != "scriptloader" {
		t.Fatalf("expected trimmed channel, got %q", event.Channel)
	}
	if event.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be stamped")
	}
	event.Metadata["source"] = "b.js"
	if metadata["source"] != "a.js" {
		t.Fatalf("expected metadata to be cloned")
	}
}

func TestHooksNotifyShortCircuitsMissingRequired(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}

	if err := hooks.Notify(context.Background(), Event{Verb: VerbBootstrapCompleted, ObjectType: ObjectBootstrap}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(capture.Events()) != 0 {
		t.Fatalf("expected event without object id to be dropped")
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	first := &CaptureHook{Err: errors.New("first")}
	second := &CaptureHook{}
	var seen []string
	third := HookFunc(func(_ context.Context, event Event) error {
		seen = append(seen, event.ObjectID)
		return errors.New("third")
	})
	hooks := Hooks{first, nil, second, third}

	err := hooks.Notify(context.Background(), Event{
		Verb:       VerbComponentRegistered,
		ObjectType: ObjectComponent,
		ObjectID:   "demo.Greeter",
	})
	if err == nil || err.Error() != "first\nthird" {
		t.Fatalf("expected joined errors, got %v", err)
	}
	if len(first.Events()) != 1 || len(second.Events()) != 1 || len(seen) != 1 {
		t.Fatalf("expected every hook to be notified")
	}
}

func TestEmitterFillsChannelAndActor(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{nil, capture}, "", "bootstrap", "tenant-a")

	if !emitter.Enabled() {
		t.Fatalf("expected emitter to be enabled")
	}
	if err := emitter.Emit(context.Background(), BuildBootstrapCompletedEvent(BootstrapInput{Root: "/srv"})); err != nil {
		t.Fatalf("emit: %v", err)
	}
	events := capture.Events()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].Channel != DefaultChannel || events[0].ActorID != "bootstrap" || events[0].TenantID != "tenant-a" {
		t.Fatalf("expected defaults to be applied, got %+v", events[0])
	}
}

func TestEmitterDisabledWithoutHooks(t *testing.T) {
	var nilEmitter *Emitter
	if nilEmitter.Enabled() {
		t.Fatalf("nil emitter must be disabled")
	}
	if err := nilEmitter.Emit(context.Background(), Event{}); err != nil {
		t.Fatalf("emit on nil emitter: %v", err)
	}
	if NewEmitter(Hooks{nil}, "x", "", "").Enabled() {
		t.Fatalf("emitter with only nil hooks must be disabled")
	}
}

func TestBuildBootstrapFailedEventCarriesClass(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	event := BuildBootstrapFailedEvent(BootstrapInput{
		ErrorClass: "NO_SOURCES_FOUND",
		ErrorCode:  524288,
		Err:        errors.New("no sources"),
		Duration:   1500 * time.Millisecond,
		OccurredAt: at,
	})
	if event.ObjectID != "unresolved" {
		t.Fatalf("expected unresolved object id, got %q", event.ObjectID)
	}
	if event.Metadata["error_class"] != "NO_SOURCES_FOUND" || event.Metadata["error_code"] != 524288 {
		t.Fatalf("unexpected metadata: %+v", event.Metadata)
	}
	if event.Metadata["duration_ms"] != int64(1500) {
		t.Fatalf("expected duration_ms 1500, got %v", event.Metadata["duration_ms"])
	}
	if event.Metadata["error"] != "no sources" || !event.OccurredAt.Equal(at) {
		t.Fatalf("unexpected event: %+v", event)
	}
}
