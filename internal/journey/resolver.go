package journey

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrLocationNotFound is returned by a Resolver for an unknown code.
var ErrLocationNotFound = errors.New("location not found")

// Resolver looks up coordinates for a location code.
type Resolver interface {
	Resolve(ctx context.Context, code string) (Location, error)
}

// StaticResolver resolves codes from an in-memory table. Codes are matched
// case-insensitively.
type StaticResolver map[string]Location

func (s StaticResolver) Resolve(_ context.Context, code string) (Location, error) {
	if loc, ok := s[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return loc, nil
	}
	return Location{}, fmt.Errorf("%w: %q", ErrLocationNotFound, code)
}

// CachedResolver memoises successful lookups of another Resolver. Misses are
// not cached so a gazetteer that is being filled in is picked up.
type CachedResolver struct {
	next  Resolver
	cache *lru.Cache[string, Location]
}

// NewCachedResolver wraps next with an LRU of the given size.
func NewCachedResolver(next Resolver, size int) (*CachedResolver, error) {
	c, err := lru.New[string, Location](size)
	if err != nil {
		return nil, fmt.Errorf("resolver cache: %w", err)
	}
	return &CachedResolver{next: next, cache: c}, nil
}

func (c *CachedResolver) Resolve(ctx context.Context, code string) (Location, error) {
	key := strings.ToUpper(strings.TrimSpace(code))
	if loc, ok := c.cache.Get(key); ok {
		return loc, nil
	}
	loc, err := c.next.Resolve(ctx, key)
	if err != nil {
		return Location{}, err
	}
	c.cache.Add(key, loc)
	return loc, nil
}
