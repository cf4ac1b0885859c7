package querykeys

import (
	"fmt"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// celMaxArity bounds the dyn overloads generated for registry functions.
const celMaxArity = 4

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Variables are
// typed: key list(dyn), path list(string), name and kind string, depth int and
// meta map(string, dyn). Registry functions accept up to four dyn arguments.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{registry: NewFunctionRegistry()}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx KeyContext, expression string) (any, error) {
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(program, expression, ctx)
}

func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &celCompiledRule{
		evaluator:  e,
		expression: expression,
		program:    program,
	}, nil
}

func (e *celEvaluator) loadOrCompile(expression string) (celgo.Program, error) {
	if expression == "" {
		return nil, wrapEvaluationError(EngineCEL, "", "", fmt.Errorf("expression must not be empty"))
	}
	cacheKey := programCacheKey(EngineCEL, e.registry, expression)
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv()
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, "", err)
	}
	checked, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, "", issues.Err())
	}
	program, err := env.Program(checked)
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, "", err)
	}
	if e.cache != nil {
		e.cache.Set(cacheKey, program)
	}
	return program, nil
}

func (e *celEvaluator) run(program celgo.Program, expression string, ctx KeyContext) (any, error) {
	out, _, err := program.Eval(ctx.variables())
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, ctx.name(), err)
	}
	return celToNative(out), nil
}

func (e *celEvaluator) buildEnv() (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("key", celgo.ListType(celgo.DynType)),
		celgo.Variable("path", celgo.ListType(celgo.StringType)),
		celgo.Variable("name", celgo.StringType),
		celgo.Variable("kind", celgo.StringType),
		celgo.Variable("depth", celgo.IntType),
		celgo.Variable("meta", celgo.MapType(celgo.StringType, celgo.DynType)),
	}
	if e.registry == nil {
		return celgo.NewEnv(opts...)
	}
	opts = append(opts, celgo.Function("call", e.callOverloads()...))
	for _, name := range e.registry.Names() {
		if strings.EqualFold(name, "call") {
			continue
		}
		opts = append(opts, celgo.Function(name, e.registryOverloads(name)...))
	}
	return celgo.NewEnv(opts...)
}

// registryOverloads declares name with one dyn overload per arity.
func (e *celEvaluator) registryOverloads(name string) []celgo.FunctionOpt {
	overloads := make([]celgo.FunctionOpt, 0, celMaxArity)
	for arity := 1; arity <= celMaxArity; arity++ {
		params := make([]*celgo.Type, arity)
		for i := range params {
			params[i] = celgo.DynType
		}
		id := fmt.Sprintf("%s_dyn_%d", strings.ToLower(name), arity)
		overloads = append(overloads, celgo.Overload(id, params, celgo.DynType, celBinding(arity, func(values []ref.Val) ref.Val {
			return e.invoke(name, values)
		})))
	}
	return overloads
}

// callOverloads declares call(name, args...) for up to celMaxArity-1 args.
func (e *celEvaluator) callOverloads() []celgo.FunctionOpt {
	overloads := make([]celgo.FunctionOpt, 0, celMaxArity)
	for arity := 1; arity <= celMaxArity; arity++ {
		params := make([]*celgo.Type, arity)
		params[0] = celgo.StringType
		for i := 1; i < arity; i++ {
			params[i] = celgo.DynType
		}
		id := fmt.Sprintf("call_string_dyn_%d", arity)
		overloads = append(overloads, celgo.Overload(id, params, celgo.DynType, celBinding(arity, func(values []ref.Val) ref.Val {
			name, ok := values[0].Value().(string)
			if !ok {
				return types.NewErr("call name must be a string")
			}
			return e.invoke(name, values[1:])
		})))
	}
	return overloads
}

func celBinding(arity int, fn func([]ref.Val) ref.Val) celgo.OverloadOpt {
	switch arity {
	case 1:
		return celgo.UnaryBinding(func(value ref.Val) ref.Val {
			return fn([]ref.Val{value})
		})
	case 2:
		return celgo.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
			return fn([]ref.Val{lhs, rhs})
		})
	default:
		return celgo.FunctionBinding(func(values ...ref.Val) ref.Val {
			return fn(values)
		})
	}
}

func (e *celEvaluator) invoke(name string, values []ref.Val) ref.Val {
	args := make([]any, len(values))
	for i, value := range values {
		args[i] = celToNative(value)
	}
	result, err := e.registry.Call(name, args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

// celToNative unwraps CEL values into plain Go values. Lists and maps built
// inside an expression hold ref.Val elements, so they are converted one by
// one.
func celToNative(value ref.Val) any {
	if value == nil || value == types.NullValue {
		return nil
	}
	switch typed := value.(type) {
	case traits.Mapper:
		out := map[string]any{}
		it := typed.Iterator()
		for it.HasNext() == types.True {
			key := it.Next()
			out[fmt.Sprint(celToNative(key))] = celToNative(typed.Get(key))
		}
		return out
	case traits.Lister:
		size, _ := typed.Size().(types.Int)
		out := make([]any, int(size))
		for i := range out {
			out[i] = celToNative(typed.Get(types.Int(i)))
		}
		return out
	}
	return value.Value()
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
	program    celgo.Program
}

func (r *celCompiledRule) Evaluate(ctx KeyContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluationError(EngineCEL, r.expression, ctx.name(), fmt.Errorf("compiled rule missing evaluator"))
	}
	return r.evaluator.run(r.program, r.expression, ctx)
}
