package querykeys

import (
	"time"

	"github.com/google/uuid"
)

// Override records a merge replacement: a later fragment replaced a value at
// Path instead of merging into it.
type Override struct {
	Path     string
	Fragment int
	Previous NodeKind
	Incoming NodeKind
}

// Merger composes schema fragments. The zero value is not usable; call
// NewMerger.
type Merger struct {
	cfg config
}

// NewMerger builds a merger. WithLogger, WithOverrideHandler and
// WithActivityHooks apply; compile-only options are ignored.
func NewMerger(opts ...Option) *Merger {
	return &Merger{cfg: applyOptions(opts)}
}

// Merge deep-merges fragments left to right with the default merger.
func Merge(fragments ...Schema) Schema {
	return NewMerger().Merge(fragments...)
}

// Merge deep-merges fragments left to right. Namespaces present on both sides
// are merged recursively; anything else is replaced by the later fragment, so
// the last write wins. Definitions and factories are atomic.
//
// Replacements are not errors. Two fragments that reuse a segment for
// different queries silently keep only the later one; register an override
// handler or logger to surface them.
//
// Inputs are never modified and no input map is reachable from the result.
func (m *Merger) Merge(fragments ...Schema) Schema {
	start := time.Now()
	run := &mergeRun{id: uuid.NewString()}
	merged := Schema{}
	for i, fragment := range fragments {
		if fragment == nil {
			continue
		}
		merged = m.deepMerge(merged, fragment, nil, i, run)
	}

	m.cfg.log().Log(LogEvent{
		Operation: OpMerge,
		Path:      displayPath(nil),
		Kind:      KindNamespace,
		Fragment:  len(fragments),
		Duration:  time.Since(start),
	})
	m.emitMerged(run.id, len(fragments), run.overrides)
	return merged
}

type mergeRun struct {
	id        string
	overrides int
}

// deepMerge returns a new namespace holding target overlaid with source.
// target is always a map already owned by the merge result.
func (m *Merger) deepMerge(target Schema, source map[string]any, path []string, fragment int, run *mergeRun) Schema {
	result := make(Schema, len(target)+len(source))
	for key, value := range target {
		result[key] = value
	}

	for _, key := range sortedSegments(source) {
		value := source[key]
		existing, exists := result[key]
		if exists && isMergeable(existing) && isMergeable(value) {
			owned, _ := existing.(Schema)
			incoming, _ := namespaceEntries(value)
			result[key] = m.deepMerge(owned, incoming, appendPath(path, key), fragment, run)
			continue
		}
		if exists {
			run.overrides++
			m.reportOverride(run.id, Override{
				Path:     displayPath(appendPath(path, key)),
				Fragment: fragment,
				Previous: kindOf(existing),
				Incoming: kindOf(value),
			})
		}
		result[key] = cloneSchemaValue(value)
	}
	return result
}

func (m *Merger) reportOverride(mergeID string, override Override) {
	if m.cfg.onOverride != nil {
		m.cfg.onOverride(override)
	}
	m.cfg.log().Log(LogEvent{
		Operation: OpOverride,
		Path:      override.Path,
		Kind:      override.Incoming,
		Fragment:  override.Fragment,
	})
	m.emitOverride(mergeID, override)
}

// isMergeable reports whether value is a namespace record. Definitions and
// factories are leaves even though they may look like records.
func isMergeable(value any) bool {
	if IsDefinition(value) {
		return false
	}
	if _, ok := asFactory(value); ok {
		return false
	}
	_, ok := namespaceEntries(value)
	return ok
}

// cloneSchemaValue copies namespaces recursively into fresh Schema maps.
// Leaves are immutable after Define and are shared as is.
func cloneSchemaValue(value any) any {
	if !isMergeable(value) {
		return value
	}
	entries, _ := namespaceEntries(value)
	out := make(Schema, len(entries))
	for key, child := range entries {
		out[key] = cloneSchemaValue(child)
	}
	return out
}
