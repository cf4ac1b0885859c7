package querykeys

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchemaType matches every *SchemaTypeError via errors.Is.
	ErrSchemaType = errors.New("querykeys: invalid schema value")
	// ErrKeyDerivation matches every *KeyDerivationError via errors.Is.
	ErrKeyDerivation = errors.New("querykeys: unable to derive query key")
	// ErrInvalidArgument reports factory arguments that do not fit the
	// factory's parameters.
	ErrInvalidArgument = errors.New("querykeys: invalid factory argument")
	// ErrNoEvaluator reports a predicate engine that is not available.
	ErrNoEvaluator = errors.New("querykeys: evaluator not configured")
	// ErrPredicateResult reports a predicate that did not produce a bool.
	ErrPredicateResult = errors.New("querykeys: predicate must evaluate to a bool")
)

// SchemaTypeError reports a schema value that is neither a definition, a
// factory nor a namespace, or a factory whose result is not a definition.
type SchemaTypeError struct {
	Path   []string
	Value  any
	Reason string
	Err    error
}

func (e *SchemaTypeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("querykeys: invalid schema value at %q (%T): %s", displayPath(e.Path), e.Value, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaTypeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *SchemaTypeError) Is(target error) bool {
	return target == ErrSchemaType
}

// KeyDerivationError reports a definition without an explicit key at a
// position that offers no path segments or arguments to derive one from.
type KeyDerivationError struct {
	Path []string
	Args []any
}

func (e *KeyDerivationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("querykeys: unable to derive a query key at %q: provide QueryKey explicitly for top-level entries", displayPath(e.Path))
}

func (e *KeyDerivationError) Is(target error) bool {
	return target == ErrKeyDerivation
}

// EvaluationError captures predicate engine metadata alongside the cause.
type EvaluationError struct {
	Engine string
	Expr   string
	Name   string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("querykeys: %s predicate %s name=%s: %v", e.Engine, describeExpression(e.Expr), describeName(e.Name), e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func describeName(name string) string {
	if name == "" {
		return "<none>"
	}
	return name
}

func wrapEvaluationError(engine, expr, name string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Name == "" {
			evalErr.Name = name
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Name:   name,
		Err:    err,
	}
}

func displayPath(path []string) string {
	if len(path) == 0 {
		return "<root>"
	}
	return strings.Join(path, ".")
}
