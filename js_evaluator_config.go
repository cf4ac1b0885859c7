package querykeys

// jsEvaluator is declared without a build tag so JS options compile in every
// build. Only js_eval builds construct one.
type jsEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// JSEvaluatorOption configures the JS evaluator.
type JSEvaluatorOption func(*jsEvaluator)

// JSWithProgramCache wires a ProgramCache into the JS evaluator. goja programs
// hold no registry functions, so they are cached per expression only.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(e *jsEvaluator) {
		e.cache = cache
	}
}

// JSWithFunctionRegistry sets the functions bound into each JS runtime.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(e *jsEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

func newJSEvaluator(opts []JSEvaluatorOption) *jsEvaluator {
	e := &jsEvaluator{registry: NewFunctionRegistry()}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// programKey is the cache key of a compiled JS expression.
func (e *jsEvaluator) programKey(expression string) string {
	return programCacheKey(EngineJS, nil, expression)
}
