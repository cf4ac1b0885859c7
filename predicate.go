package querykeys

import (
	"fmt"
	"strings"
)

// Predicate engines.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// KeyContext is the input of a key predicate. Expressions see it as the
// variables key, path, name (dotted path), kind, depth and meta.
type KeyContext struct {
	Key  Key
	Path []string
	Kind NodeKind
	Meta map[string]any
}

// QueryContext builds the predicate input for a compiled query.
func QueryContext(q *Query) KeyContext {
	return KeyContext{
		Key:  q.Key(),
		Path: q.Path(),
		Kind: KindQuery,
		Meta: cloneMeta(q.options.Meta),
	}
}

func (c KeyContext) name() string {
	return strings.Join(c.Path, ".")
}

func (c KeyContext) variables() map[string]any {
	key := []any(c.Key)
	if key == nil {
		key = []any{}
	}
	path := c.Path
	if path == nil {
		path = []string{}
	}
	meta := c.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	return map[string]any{
		"key":   key,
		"path":  path,
		"name":  c.name(),
		"kind":  c.Kind.String(),
		"depth": len(c.Path),
		"meta":  meta,
	}
}

// Evaluator executes predicate expressions against a key context.
type Evaluator interface {
	Evaluate(ctx KeyContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable predicate program.
type CompiledRule interface {
	Evaluate(ctx KeyContext) (any, error)
}

// PredicateOption configures NewPredicate.
type PredicateOption func(*predicateConfig)

type predicateConfig struct {
	evaluator Evaluator
	engine    string
	cache     ProgramCache
	functions *FunctionRegistry
	err       error
}

// WithEvaluator uses e instead of a built-in engine.
func WithEvaluator(e Evaluator) PredicateOption {
	return func(cfg *predicateConfig) {
		cfg.evaluator = e
	}
}

// WithEngine selects a built-in engine: EngineExpr (default), EngineCEL or
// EngineJS. EngineJS requires the js_eval build tag.
func WithEngine(name string) PredicateOption {
	return func(cfg *predicateConfig) {
		cfg.engine = strings.ToLower(strings.TrimSpace(name))
	}
}

// WithProgramCache shares compiled programs across predicates.
func WithProgramCache(cache ProgramCache) PredicateOption {
	return func(cfg *predicateConfig) {
		cfg.cache = cache
	}
}

// WithFunctionRegistry replaces the built-in function registry.
func WithFunctionRegistry(registry *FunctionRegistry) PredicateOption {
	return func(cfg *predicateConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn next to the built-in functions. A nil fn, an
// empty name or a name already registered makes NewPredicate fail.
func WithCustomFunction(name string, fn Function) PredicateOption {
	return func(cfg *predicateConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		if err := cfg.functions.Register(name, fn); err != nil && cfg.err == nil {
			cfg.err = err
		}
	}
}

// Predicate is a compiled boolean expression over query keys, used to pick
// the queries an external cache should invalidate.
type Predicate struct {
	expr   string
	engine string
	rule   CompiledRule
}

// NewPredicate compiles expr.
func NewPredicate(expr string, opts ...PredicateOption) (*Predicate, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("querykeys: predicate expression must not be empty")
	}
	cfg := predicateConfig{engine: EngineExpr}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.err != nil {
		return nil, cfg.err
	}
	evaluator, engine, err := resolveEvaluator(cfg)
	if err != nil {
		return nil, err
	}
	rule, err := evaluator.Compile(expr)
	if err != nil {
		return nil, wrapEvaluationError(engine, expr, "", err)
	}
	return &Predicate{expr: expr, engine: engine, rule: rule}, nil
}

// Expr returns the source expression.
func (p *Predicate) Expr() string { return p.expr }

// Engine returns the engine name, or "custom" for WithEvaluator.
func (p *Predicate) Engine() string { return p.engine }

// Match evaluates the predicate. A non-bool result is an error.
func (p *Predicate) Match(ctx KeyContext) (bool, error) {
	value, err := p.rule.Evaluate(ctx)
	if err != nil {
		return false, wrapEvaluationError(p.engine, p.expr, ctx.name(), err)
	}
	matched, ok := value.(bool)
	if !ok {
		return false, wrapEvaluationError(p.engine, p.expr, ctx.name(), fmt.Errorf("%w, got %T", ErrPredicateResult, value))
	}
	return matched, nil
}

// Select returns the static queries under n whose context matches p.
// Factories are skipped: their keys only exist once called.
func (n *Namespace) Select(p *Predicate) ([]*Query, error) {
	if p == nil {
		return nil, fmt.Errorf("querykeys: predicate is nil")
	}
	var out []*Query
	for _, q := range n.Queries() {
		matched, err := p.Match(QueryContext(q))
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, q)
		}
	}
	return out, nil
}

// SelectKeys compiles expr and returns the keys of matching static queries.
func (n *Namespace) SelectKeys(expr string, opts ...PredicateOption) ([]Key, error) {
	p, err := NewPredicate(expr, opts...)
	if err != nil {
		return nil, err
	}
	queries, err := n.Select(p)
	if err != nil {
		return nil, err
	}
	keys := make([]Key, len(queries))
	for i, q := range queries {
		keys[i] = q.Key()
	}
	return keys, nil
}

func resolveEvaluator(cfg predicateConfig) (Evaluator, string, error) {
	if cfg.evaluator != nil {
		return cfg.evaluator, "custom", nil
	}
	registry := cfg.functions
	if registry == nil {
		registry = NewFunctionRegistry()
	}
	var evaluator Evaluator
	switch cfg.engine {
	case EngineExpr, "":
		evaluator = NewExprEvaluator(ExprWithProgramCache(cfg.cache), ExprWithFunctionRegistry(registry))
		return evaluator, EngineExpr, nil
	case EngineCEL:
		evaluator = NewCELEvaluator(CELWithProgramCache(cfg.cache), CELWithFunctionRegistry(registry))
		return evaluator, EngineCEL, nil
	case EngineJS:
		evaluator = NewJSEvaluator(JSWithProgramCache(cfg.cache), JSWithFunctionRegistry(registry))
		if evaluator == nil {
			return nil, EngineJS, fmt.Errorf("%w: js engine requires the js_eval build tag", ErrNoEvaluator)
		}
		return evaluator, EngineJS, nil
	default:
		return nil, cfg.engine, fmt.Errorf("%w: unknown engine %q", ErrNoEvaluator, cfg.engine)
	}
}
