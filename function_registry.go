package querykeys

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// builtinRegistryID identifies registries holding only the built-in functions,
// so default predicates share cached programs.
const builtinRegistryID = "builtin"

// Function represents a callable exposed to key predicates.
type Function func(args ...any) (any, error)

// FunctionRegistry stores predicate functions keyed by case-insensitive name.
// Every registration gives the registry a new identity; clones keep it.
type FunctionRegistry struct {
	mu        sync.RWMutex
	id        string
	functions map[string]registeredFunction
}

type registeredFunction struct {
	name string
	fn   Function
}

// NewFunctionRegistry constructs a registry holding the built-in functions:
//
//	hasKeyPrefix(key, segment...) reports whether key starts with segments.
//	keyEquals(key, segment...)    reports whether key equals segments.
func NewFunctionRegistry() *FunctionRegistry {
	r := &FunctionRegistry{
		functions: make(map[string]registeredFunction),
	}
	_ = r.Register("hasKeyPrefix", builtinHasKeyPrefix)
	_ = r.Register("keyEquals", builtinKeyEquals)
	r.id = builtinRegistryID
	return r
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("querykeys: function %q is nil", name)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("querykeys: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]registeredFunction)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("querykeys: function %q already registered", name)
	}
	r.functions[key] = registeredFunction{name: name, fn: fn}
	r.id = uuid.NewString()
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		id:        r.id,
		functions: make(map[string]registeredFunction, len(r.functions)),
	}
	for key, entry := range r.functions {
		clone.functions[key] = entry
	}
	return clone
}

// identity names the function set. Programs that bake registry functions
// in are cached under it.
func (r *FunctionRegistry) identity() string {
	if r == nil {
		return ""
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.id
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("querykeys: function registry is nil")
	}
	r.mu.RLock()
	entry, ok := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("querykeys: function %q not registered", name)
	}
	return entry.fn(args...)
}

// Names returns registered function names, as registered, sorted
// alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for _, entry := range r.functions {
		names = append(names, entry.name)
	}
	sort.Strings(names)
	return names
}

func builtinHasKeyPrefix(args ...any) (any, error) {
	key, prefix, err := keyArguments("hasKeyPrefix", args)
	if err != nil {
		return nil, err
	}
	if len(prefix) > len(key) {
		return false, nil
	}
	return segmentsEqual(key[:len(prefix)], prefix), nil
}

func builtinKeyEquals(args ...any) (any, error) {
	key, other, err := keyArguments("keyEquals", args)
	if err != nil {
		return nil, err
	}
	return len(key) == len(other) && segmentsEqual(key, other), nil
}

// keyArguments accepts (key, segment...) or (key, list) and returns both as
// plain slices. Engines hand lists over as []any, []string or Key.
func keyArguments(name string, args []any) ([]any, []any, error) {
	if len(args) == 0 {
		return nil, nil, fmt.Errorf("querykeys: %s requires a key argument", name)
	}
	key, ok := asSegments(args[0])
	if !ok {
		return nil, nil, fmt.Errorf("querykeys: %s expects a list as first argument, got %T", name, args[0])
	}
	if len(args) == 2 {
		if list, ok := asSegments(args[1]); ok {
			return key, list, nil
		}
	}
	return key, args[1:], nil
}

func asSegments(value any) ([]any, bool) {
	switch typed := value.(type) {
	case Key:
		return []any(typed), true
	case []any:
		return typed, true
	case []string:
		out := make([]any, len(typed))
		for i, s := range typed {
			out[i] = s
		}
		return out, true
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func segmentsEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !segmentEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// segmentEqual compares numbers by value so engine-side int64/float64 literals
// match Go int arguments.
func segmentEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	return aok && bok && af == bf
}

func asFloat(value any) (float64, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
