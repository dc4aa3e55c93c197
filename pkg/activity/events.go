package activity

import (
	"strings"
	"time"
)

const (
	VerbComponentRegistered = "scriptloader.component.registered"
	VerbBootstrapCompleted  = "scriptloader.bootstrap.completed"
	VerbBootstrapFailed     = "scriptloader.bootstrap.failed"

	ObjectComponent = "scriptloader.component"
	ObjectBootstrap = "scriptloader.bootstrap"
)

// ComponentInput describes a definition that was registered.
type ComponentInput struct {
	Key        string
	Name       string
	Source     string
	Markers    []string
	OccurredAt time.Time
}

// BuildComponentRegisteredEvent builds the event for one registry insertion.
func BuildComponentRegisteredEvent(input ComponentInput) Event {
	metadata := map[string]any{"source": input.Source}
	if input.Name != "" {
		metadata["name"] = input.Name
	}
	if len(input.Markers) > 0 {
		metadata["markers"] = append([]string{}, input.Markers...)
	}
	return Event{
		Verb:       VerbComponentRegistered,
		ObjectType: ObjectComponent,
		ObjectID:   strings.TrimSpace(input.Key),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

// BootstrapInput summarises a finished or aborted bootstrap pass.
type BootstrapInput struct {
	Root       string
	Sources    int
	Registered int
	Duration   time.Duration
	ErrorClass string
	ErrorCode  int
	Err        error
	OccurredAt time.Time
}

// BuildBootstrapCompletedEvent builds the event for a successful pass.
func BuildBootstrapCompletedEvent(input BootstrapInput) Event {
	return Event{
		Verb:       VerbBootstrapCompleted,
		ObjectType: ObjectBootstrap,
		ObjectID:   bootstrapObjectID(input.Root),
		Metadata: map[string]any{
			"sources":     input.Sources,
			"registered":  input.Registered,
			"duration_ms": input.Duration.Milliseconds(),
		},
		OccurredAt: input.OccurredAt,
	}
}

// BuildBootstrapFailedEvent builds the event for an aborted pass.
func BuildBootstrapFailedEvent(input BootstrapInput) Event {
	metadata := map[string]any{
		"duration_ms": input.Duration.Milliseconds(),
	}
	if input.ErrorClass != "" {
		metadata["error_class"] = input.ErrorClass
		metadata["error_code"] = input.ErrorCode
	}
	if input.Err != nil {
		metadata["error"] = input.Err.Error()
	}
	return Event{
		Verb:       VerbBootstrapFailed,
		ObjectType: ObjectBootstrap,
		ObjectID:   bootstrapObjectID(input.Root),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

// The root may be unresolved when configuration itself failed.
func bootstrapObjectID(root string) string {
	root = strings.TrimSpace(root)
	if root == "" {
		return "unresolved"
	}
	return root
}
