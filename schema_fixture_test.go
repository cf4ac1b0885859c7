package querykeys

import (
	"context"
	"errors"
)

type userFilters struct {
	Role string `json:"role"`
	Page int    `json:"page"`
}

func fetchNothing(context.Context) (any, error) { return nil, nil }

func userFragment() Schema {
	return Schema{
		"users": Schema{
			"all": Define(QueryOptions{StaleTime: 60_000, QueryFn: fetchNothing}),
			"detail": func(id string) *Definition {
				return Define(QueryOptions{QueryFn: fetchNothing})
			},
			"profile": func(id string) *Definition {
				return Define(QueryOptions{QueryKey: KeyOf("user", id)})
			},
			"list": func(filters *userFilters) *Definition {
				return Define(QueryOptions{Meta: map[string]any{"scope": "public"}})
			},
			"search": func(term string, page int) (*Definition, error) {
				if term == "" {
					return nil, errEmptyTerm
				}
				return Define(QueryOptions{}), nil
			},
		},
	}
}

func adminFragment() Schema {
	return Schema{
		"admin": map[string]any{
			"dashboard": Define(QueryOptions{Meta: map[string]any{"scope": "admin"}}),
			"users": Schema{
				"all": Define(QueryOptions{Meta: map[string]any{"scope": "admin"}}),
			},
		},
	}
}

var errEmptyTerm = errors.New("search term is empty")
