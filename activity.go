package querykeys

import (
	"context"
	"time"

	"github.com/goliatone/go-querykeys/pkg/activity"
)

// WithActivityHooks attaches activity hooks notified after compiles, merges
// and merge overrides, on the default channel. Hook failures are logged and
// never fail the operation that emitted them.
func WithActivityHooks(hooks activity.Hooks) Option {
	return WithActivityEmitter(activity.NewEmitter(hooks, activity.Config{Enabled: true}))
}

// WithActivityEmitter routes activity through emitter, which controls the
// channel and actor stamped on events.
func WithActivityEmitter(emitter *activity.Emitter) Option {
	return func(cfg *config) {
		cfg.emitter = emitter
	}
}

func notifyActivity(cfg config, event activity.Event) {
	if !cfg.emitter.Enabled() {
		return
	}
	if err := cfg.emitter.Emit(context.Background(), event); err != nil {
		cfg.log().Log(LogEvent{
			Operation: OpActivity,
			Path:      event.Verb,
			Err:       err,
		})
	}
}

func (c *compiler) emitCompiled(duration time.Duration) {
	notifyActivity(c.cfg, activity.BuildSchemaCompiledEvent(activity.CompiledInput{
		TreeID:     c.id,
		Queries:    c.queries,
		Factories:  c.factories,
		Namespaces: c.namespaces,
		Duration:   duration,
	}))
}

func (m *Merger) emitMerged(mergeID string, fragments, overrides int) {
	notifyActivity(m.cfg, activity.BuildSchemaMergedEvent(activity.MergedInput{
		MergeID:   mergeID,
		Fragments: fragments,
		Overrides: overrides,
	}))
}

func (m *Merger) emitOverride(mergeID string, override Override) {
	notifyActivity(m.cfg, activity.BuildSchemaOverrideEvent(activity.OverrideInput{
		MergeID:  mergeID,
		Path:     override.Path,
		Fragment: override.Fragment,
		Previous: override.Previous.String(),
		Incoming: override.Incoming.String(),
	}))
}
