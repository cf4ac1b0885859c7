//go:build !js_eval

package querykeys

// NewJSEvaluator is unavailable without the js_eval build tag and returns nil.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
