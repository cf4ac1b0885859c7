package querykeys

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ProgramCache stores compiled predicate programs keyed by engine and
// expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

type lruProgramCache struct {
	cache *lru.Cache[string, any]
}

// NewLRUProgramCache returns a size-bounded ProgramCache safe for concurrent
// use.
func NewLRUProgramCache(size int) (ProgramCache, error) {
	cache, err := lru.New[string, any](size)
	if err != nil {
		return nil, fmt.Errorf("querykeys: program cache: %w", err)
	}
	return &lruProgramCache{cache: cache}, nil
}

func (c *lruProgramCache) Get(key string) (any, bool) {
	return c.cache.Get(key)
}

func (c *lruProgramCache) Set(key string, value any) {
	c.cache.Add(key, value)
}

// programCacheKey scopes a cached program by engine and by the identity of
// the function registry compiled into it. registry is nil for engines that
// bind functions at run time.
func programCacheKey(engine string, registry *FunctionRegistry, expression string) string {
	return engine + ":" + registry.identity() + ":" + expression
}
