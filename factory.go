package querykeys

import (
	"fmt"
	"reflect"
	"time"
)

// FactoryFunc is the convenience shape for parameterized queries. Any other
// function returning X or (X, error) is accepted as well; X must be a
// *Definition at call time.
type FactoryFunc func(args ...any) *Definition

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Factory is a compiled parameterized query. Each Call resolves a fresh,
// independent set of options; a Factory holds no per-call state and is safe
// for concurrent use.
type Factory struct {
	path   []string
	fn     reflect.Value
	typ    reflect.Type
	logger Logger
}

// Kind implements Node.
func (f *Factory) Kind() NodeKind { return KindFactory }

// Path implements Node.
func (f *Factory) Path() []string { return clonePath(f.path) }

// NumIn reports the number of parameters of the authored function.
func (f *Factory) NumIn() int { return f.typ.NumIn() }

// IsVariadic reports whether the authored function is variadic.
func (f *Factory) IsVariadic() bool { return f.typ.IsVariadic() }

// Call invokes the authored function with args and resolves the returned
// definition against the factory path and the non-nil arguments.
func (f *Factory) Call(args ...any) (QueryOptions, error) {
	start := time.Now()
	options, err := f.call(args)
	f.logger.Log(LogEvent{
		Operation: OpFactory,
		Path:      displayPath(f.path),
		Kind:      KindFactory,
		Key:       options.QueryKey,
		Duration:  time.Since(start),
		Err:       err,
	})
	return options, err
}

// MustCall is like Call but panics on error.
func (f *Factory) MustCall(args ...any) QueryOptions {
	options, err := f.Call(args...)
	if err != nil {
		panic(err)
	}
	return options
}

func (f *Factory) call(args []any) (QueryOptions, error) {
	in, err := f.arguments(args)
	if err != nil {
		return QueryOptions{}, err
	}

	out := f.fn.Call(in)
	if len(out) == 2 && !out[1].IsNil() {
		return QueryOptions{}, fmt.Errorf("querykeys: factory at %q: %w", displayPath(f.path), out[1].Interface().(error))
	}

	result := out[0].Interface()
	def, ok := result.(*Definition)
	if !ok || !def.valid() {
		return QueryOptions{}, &SchemaTypeError{
			Path:   clonePath(f.path),
			Value:  result,
			Reason: "query factory must return a query definition",
		}
	}
	return Resolve(def, f.path, args...)
}

// arguments maps args onto the function parameters. Missing trailing
// parameters and nil arguments become zero values.
func (f *Factory) arguments(args []any) ([]reflect.Value, error) {
	numIn := f.typ.NumIn()
	variadic := f.typ.IsVariadic()
	fixed := numIn
	if variadic {
		fixed--
	}
	if !variadic && len(args) > numIn {
		return nil, fmt.Errorf("%w: factory at %q accepts %d arguments, got %d", ErrInvalidArgument, displayPath(f.path), numIn, len(args))
	}

	in := make([]reflect.Value, 0, max(fixed, len(args)))
	for i := 0; i < fixed; i++ {
		var arg any
		if i < len(args) {
			arg = args[i]
		}
		value, err := f.argument(i, arg, f.typ.In(i))
		if err != nil {
			return nil, err
		}
		in = append(in, value)
	}
	if variadic {
		elem := f.typ.In(numIn - 1).Elem()
		for i := fixed; i < len(args); i++ {
			value, err := f.argument(i, args[i], elem)
			if err != nil {
				return nil, err
			}
			in = append(in, value)
		}
	}
	return in, nil
}

func (f *Factory) argument(index int, arg any, typ reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(typ), nil
	}
	value := reflect.ValueOf(arg)
	if !value.Type().AssignableTo(typ) {
		return reflect.Value{}, fmt.Errorf("%w: factory at %q argument %d: cannot use %T as %s", ErrInvalidArgument, displayPath(f.path), index, arg, typ)
	}
	return value, nil
}

func asFactory(value any) (reflect.Value, bool) {
	if value == nil {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Func {
		return reflect.Value{}, false
	}
	return rv, true
}

func newFactory(fn reflect.Value, path []string, logger Logger) (*Factory, error) {
	if fn.IsNil() {
		return nil, &SchemaTypeError{
			Path:   clonePath(path),
			Value:  fn.Interface(),
			Reason: "query factory is nil",
		}
	}
	typ := fn.Type()
	switch {
	case typ.NumOut() == 1:
	case typ.NumOut() == 2 && typ.Out(1) == errorType:
	default:
		return nil, &SchemaTypeError{
			Path:   clonePath(path),
			Value:  fn.Interface(),
			Reason: "query factory must return a definition, optionally followed by an error",
		}
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Factory{
		path:   clonePath(path),
		fn:     fn,
		typ:    typ,
		logger: logger,
	}, nil
}
