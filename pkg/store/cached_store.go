package store

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"socialsim/pkg/cache"
	"socialsim/pkg/logger"
	"socialsim/pkg/world"
)

// JSONCache is the subset of cache.Cache used for read-through caching.
type JSONCache interface {
	Key(parts ...string) string
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

var _ JSONCache = (*cache.Cache)(nil)

// CachedStore fronts a Store with redis. Writes go to the store first; a
// failed cache update evicts the key so reads never see stale state.
type CachedStore struct {
	Store
	cache JSONCache
	group singleflight.Group
	log   *logger.Logger
}

func NewCachedStore(store Store, c JSONCache, log *logger.Logger) *CachedStore {
	if log == nil {
		log = logger.Nop()
	}
	return &CachedStore{Store: store, cache: c, log: log}
}

func (c *CachedStore) key(userID string) string {
	return c.cache.Key("world_state", userID)
}

func (c *CachedStore) Read(ctx context.Context, userID string) (*world.State, error) {
	key := c.key(userID)

	var cached world.State
	err := c.cache.GetJSON(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		c.log.Warn("World state cache read failed", "user", userID, "error", err)
	}

	v, err, _ := c.group.Do(userID, func() (interface{}, error) {
		st, err := c.Store.Read(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := c.cache.SetJSON(ctx, key, st, cache.WorldStateTTL); err != nil {
			c.log.Warn("World state cache fill failed", "user", userID, "error", err)
		}
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	// Callers sharing a flight must not share a mutable state.
	return v.(*world.State).Clone(), nil
}

func (c *CachedStore) Write(ctx context.Context, st *world.State) error {
	if err := c.Store.Write(ctx, st); err != nil {
		return err
	}
	key := c.key(st.UserID)
	if err := c.cache.SetJSON(ctx, key, st, cache.WorldStateTTL); err != nil {
		c.log.Warn("World state cache update failed, evicting", "user", st.UserID, "error", err)
		_ = c.cache.Delete(ctx, key)
	}
	return nil
}

func (c *CachedStore) Delete(ctx context.Context, userID string) error {
	if err := c.Store.Delete(ctx, userID); err != nil {
		return err
	}
	return c.cache.Delete(ctx, c.key(userID))
}
