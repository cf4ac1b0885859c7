package querykeys

import (
	"errors"
	"strings"
	"testing"
)

func TestFactoryArgumentComposition(t *testing.T) {
	tree := MustCompile(userFragment())
	detail, ok := tree.Factory("users", "detail")
	if !ok {
		t.Fatalf("factory not found")
	}

	first, err := detail.Call("42")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	second, err := detail.Call("7")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !first.QueryKey.Equal(KeyOf("users", "detail", "42")) {
		t.Fatalf("unexpected key %v", first.QueryKey)
	}
	if !second.QueryKey.Equal(KeyOf("users", "detail", "7")) {
		t.Fatalf("calls must be independent, got %v", second.QueryKey)
	}
	if first.QueryFn == nil {
		t.Fatalf("passthrough options lost")
	}
}

func TestFactoryFiltersAbsentArguments(t *testing.T) {
	tree := MustCompile(userFragment())
	list, _ := tree.Factory("users", "list")

	withoutFilters, err := list.Call()
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !withoutFilters.QueryKey.Equal(KeyOf("users", "list")) {
		t.Fatalf("missing argument should be dropped, got %v", withoutFilters.QueryKey)
	}

	var none *userFilters
	withNil, err := list.Call(none)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !withNil.QueryKey.Equal(KeyOf("users", "list")) {
		t.Fatalf("nil pointer should be dropped, got %v", withNil.QueryKey)
	}

	filters := &userFilters{Role: "admin", Page: 2}
	withFilters, err := list.Call(filters)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !withFilters.QueryKey.Equal(KeyOf("users", "list", filters)) {
		t.Fatalf("unexpected key %v", withFilters.QueryKey)
	}
	if withFilters.Meta["scope"] != "public" {
		t.Fatalf("meta passthrough lost: %#v", withFilters.Meta)
	}
}

func TestFactoryExplicitKeyOverride(t *testing.T) {
	tree := MustCompile(userFragment())
	profile, _ := tree.Factory("users", "profile")

	options, err := profile.Call("42")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !options.QueryKey.Equal(KeyOf("user", "42")) {
		t.Fatalf("authored key should win, got %v", options.QueryKey)
	}
}

func TestFactoryVariadic(t *testing.T) {
	tree := MustCompile(Schema{
		"todos": Schema{
			"page": FactoryFunc(func(args ...any) *Definition {
				return Define(QueryOptions{})
			}),
		},
	})
	page, _ := tree.Factory("todos", "page")
	if !page.IsVariadic() || page.NumIn() != 1 {
		t.Fatalf("unexpected signature")
	}
	options, err := page.Call("open", nil, 3)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !options.QueryKey.Equal(KeyOf("todos", "page", "open", 3)) {
		t.Fatalf("unexpected key %v", options.QueryKey)
	}
}

func TestFactoryArgumentErrors(t *testing.T) {
	tree := MustCompile(userFragment())
	detail, _ := tree.Factory("users", "detail")

	if _, err := detail.Call(42); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for wrong type, got %v", err)
	}
	if _, err := detail.Call("1", "2"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for extra args, got %v", err)
	}
}

func TestFactoryAuthorErrors(t *testing.T) {
	tree := MustCompile(userFragment())
	search, _ := tree.Factory("users", "search")

	_, err := search.Call("")
	if !errors.Is(err, errEmptyTerm) {
		t.Fatalf("expected author error, got %v", err)
	}
	if !strings.Contains(err.Error(), `"users.search"`) {
		t.Fatalf("error should name the factory path: %v", err)
	}

	options, err := search.Call("ada", 2)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !options.QueryKey.Equal(KeyOf("users", "search", "ada", 2)) {
		t.Fatalf("unexpected key %v", options.QueryKey)
	}
}

func TestFactoryResultValidated(t *testing.T) {
	tree := MustCompile(Schema{
		"users": Schema{
			"broken": func(id string) any { return "not a definition" },
			"empty":  func(id string) *Definition { return nil },
		},
	})
	for _, name := range []string{"broken", "empty"} {
		factory, _ := tree.Factory("users", name)
		_, err := factory.Call("1")
		var serr *SchemaTypeError
		if !errors.As(err, &serr) {
			t.Fatalf("%s: expected SchemaTypeError, got %v", name, err)
		}
		if displayPath(serr.Path) != "users."+name {
			t.Fatalf("%s: unexpected path %v", name, serr.Path)
		}
	}
}

func TestFactoryMustCallPanics(t *testing.T) {
	tree := MustCompile(userFragment())
	search, _ := tree.Factory("users", "search")
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	search.MustCall("")
}

func TestFactoryCallLogs(t *testing.T) {
	var events []LogEvent
	logger := LoggerFunc(func(event LogEvent) { events = append(events, event) })
	tree := MustCompile(userFragment(), WithLogger(logger))
	detail, _ := tree.Factory("users", "detail")

	events = nil
	detail.MustCall("42")
	if len(events) != 1 || events[0].Operation != OpFactory {
		t.Fatalf("expected one factory event, got %#v", events)
	}
	if !events[0].Key.Equal(KeyOf("users", "detail", "42")) || events[0].Path != "users.detail" {
		t.Fatalf("unexpected event %#v", events[0])
	}
}
