package querykeys

import (
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Node is one position of a compiled tree.
type Node interface {
	Kind() NodeKind
	Path() []string
}

// Query is a compiled definition with a concrete key.
type Query struct {
	path    []string
	options QueryOptions
}

// Kind implements Node.
func (q *Query) Kind() NodeKind { return KindQuery }

// Path implements Node.
func (q *Query) Path() []string { return clonePath(q.path) }

// Key returns the resolved query key.
func (q *Query) Key() Key { return q.options.QueryKey.Clone() }

// Options returns a copy of the resolved options.
func (q *Query) Options() QueryOptions { return q.options.clone() }

// Namespace groups compiled nodes under named segments.
type Namespace struct {
	id         string
	path       []string
	segments   []string
	children   map[string]Node
	subtreeKey bool
}

// Kind implements Node.
func (n *Namespace) Kind() NodeKind { return KindNamespace }

// Path implements Node.
func (n *Namespace) Path() []string { return clonePath(n.path) }

// ID identifies the compilation that produced the tree.
func (n *Namespace) ID() string {
	if n == nil {
		return ""
	}
	return n.id
}

// Segments returns child segment names in iteration order.
func (n *Namespace) Segments() []string {
	if n == nil {
		return nil
	}
	return append([]string(nil), n.segments...)
}

// Len returns the number of direct children.
func (n *Namespace) Len() int {
	if n == nil {
		return 0
	}
	return len(n.segments)
}

// Get returns the direct child at segment.
func (n *Namespace) Get(segment string) (Node, bool) {
	if n == nil {
		return nil, false
	}
	child, ok := n.children[segment]
	return child, ok
}

// SubtreeKey returns the namespace path as a key, usable to invalidate every
// query underneath it. Only available for nested namespaces compiled with
// WithSubtreeKeys(true).
func (n *Namespace) SubtreeKey() (Key, bool) {
	if n == nil || !n.subtreeKey || len(n.path) == 0 {
		return nil, false
	}
	return keyFromPath(n.path, nil), true
}

// Lookup walks segments from n.
func (n *Namespace) Lookup(segments ...string) (Node, bool) {
	if n == nil {
		return nil, false
	}
	var current Node = n
	for _, segment := range segments {
		ns, ok := current.(*Namespace)
		if !ok {
			return nil, false
		}
		current, ok = ns.Get(segment)
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Query looks up a compiled query.
func (n *Namespace) Query(segments ...string) (*Query, bool) {
	node, ok := n.Lookup(segments...)
	if !ok {
		return nil, false
	}
	q, ok := node.(*Query)
	return q, ok
}

// Factory looks up a compiled factory.
func (n *Namespace) Factory(segments ...string) (*Factory, bool) {
	node, ok := n.Lookup(segments...)
	if !ok {
		return nil, false
	}
	f, ok := node.(*Factory)
	return f, ok
}

// Child looks up a nested namespace.
func (n *Namespace) Child(segments ...string) (*Namespace, bool) {
	node, ok := n.Lookup(segments...)
	if !ok {
		return nil, false
	}
	ns, ok := node.(*Namespace)
	return ns, ok
}

// Walk visits every node under n depth-first, n excluded. Returning false
// from fn skips the children of a namespace.
func (n *Namespace) Walk(fn func(Node) bool) {
	if n == nil || fn == nil {
		return
	}
	for _, segment := range n.segments {
		child := n.children[segment]
		if !fn(child) {
			continue
		}
		if ns, ok := child.(*Namespace); ok {
			ns.Walk(fn)
		}
	}
}

// Queries returns every static query under n in walk order.
func (n *Namespace) Queries() []*Query {
	var out []*Query
	n.Walk(func(node Node) bool {
		if q, ok := node.(*Query); ok {
			out = append(out, q)
		}
		return true
	})
	return out
}

// Compile walks schema and produces a tree of key-bearing queries.
func Compile(schema Schema, opts ...Option) (*Namespace, error) {
	node, err := CompileNode(schema, opts...)
	if err != nil {
		return nil, err
	}
	return node.(*Namespace), nil
}

// MustCompile is like Compile but panics on error. Intended for package-level
// schema declarations.
func MustCompile(schema Schema, opts ...Option) *Namespace {
	ns, err := Compile(schema, opts...)
	if err != nil {
		panic(err)
	}
	return ns
}

// CompileNode compiles any schema value as the tree root. A definition without
// an explicit key fails with *KeyDerivationError because the root has no path.
func CompileNode(value any, opts ...Option) (Node, error) {
	cfg := applyOptions(opts)
	c := &compiler{
		cfg: cfg,
		id:  uuid.NewString(),
	}

	start := time.Now()
	node, err := c.compile(value, nil)
	duration := time.Since(start)

	cfg.log().Log(LogEvent{
		Operation: OpCompile,
		Path:      displayPath(nil),
		Kind:      kindOf(value),
		Duration:  duration,
		Err:       err,
	})
	if err != nil {
		return nil, err
	}
	c.emitCompiled(duration)
	return node, nil
}

type compiler struct {
	cfg        config
	id         string
	queries    int
	factories  int
	namespaces int
}

func (c *compiler) compile(value any, path []string) (Node, error) {
	if def, ok := value.(*Definition); ok && def.valid() {
		options, err := Resolve(def, path)
		if err != nil {
			return nil, err
		}
		c.queries++
		return &Query{path: clonePath(path), options: options}, nil
	}

	if fn, ok := asFactory(value); ok {
		factory, err := newFactory(fn, path, c.cfg.log())
		if err != nil {
			return nil, err
		}
		c.factories++
		return factory, nil
	}

	if entries, ok := namespaceEntries(value); ok {
		return c.compileNamespace(entries, path)
	}

	return nil, &SchemaTypeError{
		Path:   clonePath(path),
		Value:  value,
		Reason: "expected a query definition, factory, or nested schema",
	}
}

func (c *compiler) compileNamespace(entries map[string]any, path []string) (*Namespace, error) {
	segments := sortedSegments(entries)
	ns := &Namespace{
		id:         c.id,
		path:       clonePath(path),
		segments:   segments,
		children:   make(map[string]Node, len(entries)),
		subtreeKey: c.cfg.subtreeKeys,
	}
	for _, segment := range segments {
		child, err := c.compile(entries[segment], appendPath(path, segment))
		if err != nil {
			return nil, err
		}
		ns.children[segment] = child
	}
	c.namespaces++
	return ns, nil
}

// namespaceEntries returns value as a string-keyed map when it is a plain
// namespace record. Definitions and functions are never namespaces.
func namespaceEntries(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case nil:
		return nil, false
	case Schema:
		if typed == nil {
			return nil, false
		}
		return typed, true
	case map[string]any:
		if typed == nil {
			return nil, false
		}
		return typed, true
	case *Definition:
		return nil, false
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.IsNil() || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func sortedSegments(entries map[string]any) []string {
	segments := make([]string, 0, len(entries))
	for segment := range entries {
		segments = append(segments, segment)
	}
	sort.Strings(segments)
	return segments
}

func kindOf(value any) NodeKind {
	if IsDefinition(value) {
		return KindQuery
	}
	if _, ok := asFactory(value); ok {
		return KindFactory
	}
	if _, ok := namespaceEntries(value); ok {
		return KindNamespace
	}
	return KindInvalid
}
