//go:build js_eval

package querykeys

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// NewJSEvaluator constructs an Evaluator backed by goja. Each evaluation runs
// in a fresh runtime.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	return newJSEvaluator(opts)
}

func (e *jsEvaluator) Evaluate(ctx KeyContext, expression string) (any, error) {
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, expression, program)
}

func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &jsCompiledRule{
		evaluator:  e,
		expression: expression,
		program:    program,
	}, nil
}

func (e *jsEvaluator) loadOrCompile(expression string) (*goja.Program, error) {
	if expression == "" {
		return nil, wrapEvaluationError(EngineJS, "", "", fmt.Errorf("expression must not be empty"))
	}
	cacheKey := e.programKey(expression)
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", wrapJSExpression(expression), false)
	if err != nil {
		return nil, wrapEvaluationError(EngineJS, expression, "", err)
	}
	if e.cache != nil {
		e.cache.Set(cacheKey, program)
	}
	return program, nil
}

func (e *jsEvaluator) run(ctx KeyContext, expression string, program *goja.Program) (any, error) {
	vm := goja.New()
	if err := e.injectContext(vm, ctx); err != nil {
		return nil, wrapEvaluationError(EngineJS, expression, ctx.name(), err)
	}
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, wrapEvaluationError(EngineJS, expression, ctx.name(), err)
	}
	return value.Export(), nil
}

func (e *jsEvaluator) injectContext(vm *goja.Runtime, ctx KeyContext) error {
	for name, value := range ctx.variables() {
		if err := vm.Set(name, value); err != nil {
			return err
		}
	}
	if e.registry == nil {
		return nil
	}
	err := vm.Set("call", func(name string, arguments ...any) (any, error) {
		return e.registry.Call(name, arguments...)
	})
	if err != nil {
		return err
	}
	for _, name := range e.registry.Names() {
		if strings.EqualFold(name, "call") {
			continue
		}
		fn := name
		err := vm.Set(fn, func(arguments ...any) (any, error) {
			return e.registry.Call(fn, arguments...)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func wrapJSExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

type jsCompiledRule struct {
	evaluator  *jsEvaluator
	expression string
	program    *goja.Program
}

func (r *jsCompiledRule) Evaluate(ctx KeyContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluationError(EngineJS, r.expression, ctx.name(), fmt.Errorf("compiled rule missing evaluator"))
	}
	return r.evaluator.run(ctx, r.expression, r.program)
}

func jsEvaluatorAvailable() bool {
	return true
}
