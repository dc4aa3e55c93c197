package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-scriptloader/pkg/activity"
	"github.com/goliatone/go-scriptloader/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsComponentEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()

	event := activity.BuildComponentRegisteredEvent(activity.ComponentInput{
		Key:        "com.example.Greeter",
		Name:       "com.example.Greeter",
		Source:     "/srv/scripts/greeter.js",
		Markers:    []string{"service"},
		OccurredAt: now,
	})
	event.ActorID = actorID.String()
	event.TenantID = tenantID.String()
	event.Channel = "scriptloader"

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID {
		t.Fatalf("expected actor %s got %s", actorID, record.ActorID)
	}
	if record.UserID != uuid.Nil {
		t.Fatalf("expected nil user got %s", record.UserID)
	}
	if record.TenantID != tenantID {
		t.Fatalf("expected tenant %s got %s", tenantID, record.TenantID)
	}
	if record.Verb != activity.VerbComponentRegistered || record.ObjectType != activity.ObjectComponent || record.ObjectID != "com.example.Greeter" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "scriptloader" {
		t.Fatalf("expected channel scriptloader got %q", record.Channel)
	}
	if !record.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["source"] != "/srv/scripts/greeter.js" {
		t.Fatalf("expected source metadata got %v", record.Data["source"])
	}
}

func TestHookNotifyKeepsNonUUIDActorInData(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbBootstrapCompleted,
		ActorID:    "host-42",
		ObjectType: activity.ObjectBootstrap,
		ObjectID:   "/srv/scripts",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	record := sink.records[0]
	if record.ActorID != uuid.Nil {
		t.Fatalf("expected nil actor got %s", record.ActorID)
	}
	if record.Data["actor"] != "host-42" {
		t.Fatalf("expected actor metadata got %v", record.Data["actor"])
	}
}

func TestHookNotifySkipsMissingVerb(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}

func TestHookNotifyDefaultsTimestampAndPropagatesSinkError(t *testing.T) {
	sinkErr := errors.New("sink down")
	sink := &recordingSink{err: sinkErr}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbBootstrapFailed,
		ObjectType: activity.ObjectBootstrap,
		ObjectID:   "unresolved",
	})
	if !errors.Is(err, sinkErr) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if len(sink.records) != 1 || sink.records[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be defaulted")
	}
}
