package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	meta := map[string]any{"k": "v"}
	paths := []string{"users.list", "users.detail"}
	evt := Event{
		Verb:       " schema.compiled ",
		ActorID:    " actor ",
		TenantID:   " tenant ",
		ObjectType: " query_schema ",
		ObjectID:   " 42 ",
		Channel:    " querykeys ",
		Paths:      paths,
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)

	if got.Verb != "schema.compiled" || got.ObjectType != "query_schema" || got.ObjectID != "42" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "actor" || got.TenantID != "tenant" || got.Channel != "querykeys" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	got.Metadata["k"] = "changed"
	if evt.Metadata["k"] != "v" {
		t.Fatalf("expected original metadata untouched: %+v", evt.Metadata)
	}
	got.Paths[0] = "changed"
	if paths[0] != "users.list" {
		t.Fatalf("expected original paths untouched: %+v", paths)
	}
}

func TestHooksNotifyShortCircuitsMissingRequired(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}
	if err := hooks.Notify(context.Background(), Event{Verb: VerbSchemaMerged}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events))
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	boom1 := errors.New("boom1")
	boom2 := errors.New("boom2")
	capture := &CaptureHook{}
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, _ Event) error {
			ctxSeen = ctx != nil
			return nil
		}),
		capture,
		HookFunc(func(context.Context, Event) error { return boom1 }),
		nil,
		HookFunc(func(context.Context, Event) error { return boom2 }),
	}

	err := hooks.Notify(nil, Event{Verb: VerbSchemaCompiled, ObjectType: ObjectTypeSchema, ObjectID: "1"})
	if !errors.Is(err, boom1) || !errors.Is(err, boom2) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected context fallback to be non-nil")
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected event to be captured once, got %d", len(capture.Events))
	}
}

func TestHooksCloneDropsNil(t *testing.T) {
	if got := (Hooks{nil, nil}).Clone(); got != nil {
		t.Fatalf("expected nil clone, got %v", got)
	}
	capture := &CaptureHook{}
	got := Hooks{nil, capture}.Clone()
	if len(got) != 1 || got[0] != capture {
		t.Fatalf("unexpected clone: %v", got)
	}
}

func TestEmitterDisabledAndEnabled(t *testing.T) {
	capture := &CaptureHook{}
	event := Event{Verb: VerbSchemaCompiled, ObjectType: ObjectTypeSchema, ObjectID: "1"}

	disabled := NewEmitter(Hooks{capture}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	if err := disabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured when disabled")
	}

	enabled := NewEmitter(Hooks{capture}, Config{Enabled: true, ActorID: "svc"})
	if err := enabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected one event captured, got %d", len(capture.Events))
	}
	if capture.Events[0].Channel != DefaultChannel {
		t.Fatalf("expected default channel applied, got %q", capture.Events[0].Channel)
	}
	if capture.Events[0].ActorID != "svc" {
		t.Fatalf("expected default actor applied, got %q", capture.Events[0].ActorID)
	}
}

func TestEmitterPreservesExplicitChannel(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: "default"})
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := emitter.Emit(context.Background(), Event{
		Verb:       VerbSchemaMerged,
		ObjectType: ObjectTypeSchema,
		ObjectID:   "1",
		Channel:    "custom",
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if capture.Events[0].Channel != "custom" {
		t.Fatalf("expected explicit channel preserved, got %q", capture.Events[0].Channel)
	}
	if !capture.Events[0].OccurredAt.Equal(at) {
		t.Fatalf("expected occurred_at preserved, got %v", capture.Events[0].OccurredAt)
	}
}
