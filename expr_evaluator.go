package querykeys

import (
	"fmt"
	"strings"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEvaluatorOption configures an expr evaluator instance.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache wires a ProgramCache into the expr evaluator.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry wires a FunctionRegistry into the expr evaluator.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// exprEvaluator executes key predicates using github.com/expr-lang/expr.
type exprEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr. Registry
// functions are callable by name and through call(name, args...).
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{registry: NewFunctionRegistry()}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Evaluate compiles expression (or loads it from the cache) and runs it.
func (e *exprEvaluator) Evaluate(ctx KeyContext, expression string) (any, error) {
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(program, expression, ctx)
}

// Compile returns a rule bound to the compiled program.
func (e *exprEvaluator) Compile(expression string) (CompiledRule, error) {
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &exprCompiledRule{
		evaluator:  e,
		program:    program,
		expression: expression,
	}, nil
}

func (e *exprEvaluator) loadOrCompile(expression string) (*exprvm.Program, error) {
	if expression == "" {
		return nil, wrapEvaluationError(EngineExpr, "", "", fmt.Errorf("expression must not be empty"))
	}
	cacheKey := programCacheKey(EngineExpr, e.registry, expression)
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(KeyContext{}.variables()),
	}
	if e.registry != nil {
		options = append(options, exprlang.Function("call", e.callFunction))
		for _, name := range e.registry.Names() {
			if strings.EqualFold(name, "call") {
				continue
			}
			options = append(options, exprlang.Function(name, e.registryFunction(name)))
		}
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapEvaluationError(EngineExpr, expression, "", err)
	}
	if e.cache != nil {
		e.cache.Set(cacheKey, program)
	}
	return program, nil
}

func (e *exprEvaluator) run(program *exprvm.Program, expression string, ctx KeyContext) (any, error) {
	result, err := exprlang.Run(program, ctx.variables())
	if err != nil {
		return nil, wrapEvaluationError(EngineExpr, expression, ctx.name(), err)
	}
	return result, nil
}

type exprCompiledRule struct {
	evaluator  *exprEvaluator
	program    *exprvm.Program
	expression string
}

func (r *exprCompiledRule) Evaluate(ctx KeyContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluationError(EngineExpr, r.expression, ctx.name(), fmt.Errorf("compiled rule missing evaluator"))
	}
	if r.program == nil {
		return r.evaluator.Evaluate(ctx, r.expression)
	}
	return r.evaluator.run(r.program, r.expression, ctx)
}

func (e *exprEvaluator) callFunction(arguments ...any) (any, error) {
	if len(arguments) == 0 {
		return nil, fmt.Errorf("call requires a function name")
	}
	name, ok := arguments[0].(string)
	if !ok {
		return nil, fmt.Errorf("call name must be a string, got %T", arguments[0])
	}
	return e.registry.Call(name, arguments[1:]...)
}

func (e *exprEvaluator) registryFunction(name string) func(...any) (any, error) {
	return func(arguments ...any) (any, error) {
		return e.registry.Call(name, arguments...)
	}
}
