package querykeys

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-querykeys/pkg/activity"
)

// QueryFunc produces the payload for a query. The engine never calls it; it is
// forwarded untouched to the cache client that owns fetching.
type QueryFunc func(ctx context.Context) (any, error)

// QueryOptions is the configuration payload carried by a query definition.
// Only QueryKey is interpreted here, every other field is passthrough.
type QueryOptions struct {
	QueryKey  Key
	QueryFn   QueryFunc
	StaleTime time.Duration
	GCTime    time.Duration
	Retry     int
	Enabled   *bool
	Meta      map[string]any
}

func (o QueryOptions) clone() QueryOptions {
	out := o
	out.QueryKey = o.QueryKey.Clone()
	if o.Enabled != nil {
		enabled := *o.Enabled
		out.Enabled = &enabled
	}
	out.Meta = cloneMeta(o.Meta)
	return out
}

func cloneMeta(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}

// Schema is an authored, uncompiled namespace. Values are *Definition,
// factory functions or nested namespaces (Schema or map[string]any).
type Schema map[string]any

// NodeKind classifies schema and compiled tree nodes.
type NodeKind int

const (
	KindInvalid NodeKind = iota
	KindQuery
	KindFactory
	KindNamespace
)

func (k NodeKind) String() string {
	switch k {
	case KindQuery:
		return "query"
	case KindFactory:
		return "factory"
	case KindNamespace:
		return "namespace"
	default:
		return "invalid"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *NodeKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "query":
		*k = KindQuery
	case "factory":
		*k = KindFactory
	case "namespace":
		*k = KindNamespace
	case "invalid", "":
		*k = KindInvalid
	default:
		return fmt.Errorf("querykeys: unknown node kind %q", string(text))
	}
	return nil
}

// Option configures compilation and merging.
type Option func(*config)

type config struct {
	subtreeKeys bool
	logger      Logger
	emitter     *activity.Emitter
	onOverride  func(Override)
}

func applyOptions(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (c config) log() Logger {
	if c.logger != nil {
		return c.logger
	}
	return noopLogger{}
}

// WithSubtreeKeys exposes SubtreeKey on every nested namespace of a compiled
// tree so a whole branch can be invalidated with one key.
func WithSubtreeKeys(enabled bool) Option {
	return func(cfg *config) {
		cfg.subtreeKeys = enabled
	}
}

// WithOverrideHandler registers fn to observe merge replacements. It does not
// change merge results.
func WithOverrideHandler(fn func(Override)) Option {
	return func(cfg *config) {
		cfg.onOverride = fn
	}
}
