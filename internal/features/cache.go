package features

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const navCacheKey = "features:navigation"

// NavCache is a read-through Redis cache for the navigation projection the
// clients poll. It only bounds staleness for the advisory view; enforcement
// always re-reads the registry.
type NavCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NavigationView is the client-facing projection of enabled features.
type NavigationView struct {
	NavItems []string `json:"navItems"`
	Routes   []string `json:"routes"`
}

// NewNavCache constructs a NavCache.
func NewNavCache(client *redis.Client, ttl time.Duration) *NavCache {
	return &NavCache{client: client, ttl: ttl}
}

// Fetch returns the cached projection, populating it from the registry when
// missing. Concurrent misses collapse into one registry read.
func (c *NavCache) Fetch(ctx context.Context, reg *Registry) (NavigationView, error) {
	if c == nil || c.client == nil {
		nav, routes := reg.Navigation()
		return NavigationView{NavItems: nav, Routes: routes}, nil
	}
	payload, err := c.client.Get(ctx, navCacheKey).Bytes()
	if err == nil {
		var view NavigationView
		if err := json.Unmarshal(payload, &view); err == nil {
			return view, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		// Cache trouble only degrades freshness of a hint, never access.
		nav, routes := reg.Navigation()
		return NavigationView{NavItems: nav, Routes: routes}, nil
	}

	value, err, _ := c.group.Do(navCacheKey, func() (any, error) {
		nav, routes := reg.Navigation()
		view := NavigationView{NavItems: nav, Routes: routes}
		raw, err := json.Marshal(view)
		if err != nil {
			return view, nil
		}
		_ = c.client.Set(ctx, navCacheKey, raw, c.ttl).Err()
		return view, nil
	})
	if err != nil {
		return NavigationView{}, err
	}
	return value.(NavigationView), nil
}

// Invalidate drops the cached projection after a registry mutation.
func (c *NavCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, navCacheKey).Err()
}
