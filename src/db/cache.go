package db

import (
	"fmt"
	"spendsage-server/src/models"
	"time"

	"github.com/dgraph-io/ristretto"
)

// UserCache keeps recently resolved users so the auth middleware does not
// hit the database on every request.
type UserCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewUserCache(ttl time.Duration) (*UserCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000, // number of keys to track frequency of
		MaxCost:     10000,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	return &UserCache{cache: c, ttl: ttl}, nil
}

func userKey(id int64) string {
	return fmt.Sprintf("user:%d", id)
}

func (c *UserCache) Get(id int64) (*models.User, bool) {
	v, ok := c.cache.Get(userKey(id))
	if !ok {
		return nil, false
	}
	u, ok := v.(models.User)
	if !ok {
		return nil, false
	}
	return &u, true
}

func (c *UserCache) Set(u *models.User) {
	if c.ttl > 0 {
		c.cache.SetWithTTL(userKey(u.ID), *u, 1, c.ttl)
	} else {
		c.cache.Set(userKey(u.ID), *u, 1)
	}
	c.cache.Wait()
}

func (c *UserCache) Del(id int64) {
	c.cache.Del(userKey(id))
}

func (c *UserCache) Close() {
	c.cache.Close()
}
