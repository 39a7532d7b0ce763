// Package datasource provides templating.Datasource implementations: query
// strings evaluated by an expression engine (expr, CEL or JavaScript) and an
// HTTP metric-find client.
package datasource

import (
	"errors"
	"fmt"
	"maps"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

var ErrNoEvaluator = errors.New("datasource: evaluator not configured")

// Env binds identifiers visible to an expression.
type Env map[string]any

func (e Env) withDefaults() Env {
	out := maps.Clone(e)
	if out == nil {
		out = Env{}
	}
	if _, ok := out["now"]; !ok {
		out["now"] = time.Now()
	}
	return out
}

// Evaluator runs one expression against an environment.
type Evaluator interface {
	Engine() string
	Evaluate(env Env, expression string) (any, error)
}

// ProgramCache stores compiled expression programs keyed by expression
// strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

type lruProgramCache struct {
	cache *lru.Cache[string, any]
}

// NewLRUProgramCache returns a ProgramCache holding at most size programs.
func NewLRUProgramCache(size int) (ProgramCache, error) {
	cache, err := lru.New[string, any](size)
	if err != nil {
		return nil, fmt.Errorf("datasource: program cache: %w", err)
	}
	return &lruProgramCache{cache: cache}, nil
}

func (c *lruProgramCache) Get(key string) (any, bool) {
	return c.cache.Get(key)
}

func (c *lruProgramCache) Set(key string, value any) {
	c.cache.Add(key, value)
}
