package activity

import (
	"strings"
	"time"
)

// Schema lifecycle verbs.
const (
	VerbSchemaCompiled = "schema.compiled"
	VerbSchemaMerged   = "schema.merged"
	VerbSchemaOverride = "schema.override"
)

// ObjectTypeSchema is the object type of every schema event.
const ObjectTypeSchema = "query_schema"

// CompiledInput describes a finished compilation.
type CompiledInput struct {
	TreeID     string
	Queries    int
	Factories  int
	Namespaces int
	Duration   time.Duration
	Metadata   map[string]any
	OccurredAt time.Time
}

// MergedInput describes a finished merge.
type MergedInput struct {
	MergeID    string
	Fragments  int
	Overrides  int
	Metadata   map[string]any
	OccurredAt time.Time
}

// OverrideInput describes one merge replacement.
type OverrideInput struct {
	MergeID    string
	Path       string
	Fragment   int
	Previous   string
	Incoming   string
	OccurredAt time.Time
}

// BuildSchemaCompiledEvent constructs the event emitted after Compile.
func BuildSchemaCompiledEvent(input CompiledInput) Event {
	metadata := ensureMetadata(cloneMap(input.Metadata))
	metadata["queries"] = input.Queries
	metadata["factories"] = input.Factories
	metadata["namespaces"] = input.Namespaces
	if input.Duration > 0 {
		metadata["duration_ms"] = input.Duration.Milliseconds()
	}
	return Event{
		Verb:       VerbSchemaCompiled,
		ObjectType: ObjectTypeSchema,
		ObjectID:   strings.TrimSpace(input.TreeID),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

// BuildSchemaMergedEvent constructs the event emitted after Merge.
func BuildSchemaMergedEvent(input MergedInput) Event {
	metadata := ensureMetadata(cloneMap(input.Metadata))
	metadata["fragments"] = input.Fragments
	metadata["overrides"] = input.Overrides
	return Event{
		Verb:       VerbSchemaMerged,
		ObjectType: ObjectTypeSchema,
		ObjectID:   strings.TrimSpace(input.MergeID),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

// BuildSchemaOverrideEvent constructs the event emitted for a replaced value.
func BuildSchemaOverrideEvent(input OverrideInput) Event {
	metadata := map[string]any{
		"fragment": input.Fragment,
	}
	if input.Previous != "" {
		metadata["previous_kind"] = input.Previous
	}
	if input.Incoming != "" {
		metadata["incoming_kind"] = input.Incoming
	}
	var paths []string
	if path := strings.TrimSpace(input.Path); path != "" {
		paths = []string{path}
	}
	return Event{
		Verb:       VerbSchemaOverride,
		ObjectType: ObjectTypeSchema,
		ObjectID:   strings.TrimSpace(input.MergeID),
		Paths:      paths,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
