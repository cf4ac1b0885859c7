package querykeys

import "reflect"

// Resolve computes the final options for one definition instance at path.
//
// A non-empty explicit QueryKey is used verbatim. Otherwise the key is the path
// followed by args, with absent arguments (nil, nil pointers) dropped so
// optional trailing parameters do not produce ragged keys.
func Resolve(def *Definition, path []string, args ...any) (QueryOptions, error) {
	if !def.valid() {
		return QueryOptions{}, &SchemaTypeError{
			Path:   clonePath(path),
			Value:  def,
			Reason: "expected a query definition",
		}
	}

	options := def.options.clone()
	if len(options.QueryKey) > 0 {
		return options, nil
	}

	filtered := filterAbsent(args)
	if len(path) == 0 && len(filtered) == 0 {
		return QueryOptions{}, &KeyDerivationError{
			Path: clonePath(path),
			Args: append([]any(nil), args...),
		}
	}

	options.QueryKey = keyFromPath(path, filtered)
	return options, nil
}

func filterAbsent(args []any) []any {
	if len(args) == 0 {
		return nil
	}
	out := make([]any, 0, len(args))
	for _, arg := range args {
		if isAbsent(arg) {
			continue
		}
		out = append(out, arg)
	}
	return out
}

func isAbsent(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func clonePath(path []string) []string {
	if len(path) == 0 {
		return nil
	}
	return append([]string(nil), path...)
}

func appendPath(path []string, segment string) []string {
	next := make([]string, len(path), len(path)+1)
	copy(next, path)
	return append(next, segment)
}
