package directory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
)

const defaultCacheTTL = 10 * time.Minute

// cacheStore is the subset of redis.Cmdable the cache needs
type cacheStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedDirectory memoizes directory lookups in Redis.
// Redis failures fall through to the wrapped directory. Misses are not cached.
type CachedDirectory struct {
	next   port.Directory
	store  cacheStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedDirectory wraps next with a Redis cache. A nil client disables caching.
func NewCachedDirectory(next port.Directory, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) port.Directory {
	if rdb == nil {
		return next
	}
	return newCachedDirectory(next, rdb, ttl, logger)
}

func newCachedDirectory(next port.Directory, store cacheStore, ttl time.Duration, logger *zap.Logger) *CachedDirectory {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedDirectory{next: next, store: store, ttl: ttl, logger: logger}
}

// GetUser implements port.Directory
func (c *CachedDirectory) GetUser(ctx context.Context, externalID string) (*port.DirectoryUser, error) {
	key := "directory:user:" + externalID

	var cached port.DirectoryUser
	if c.load(ctx, key, &cached) {
		return &cached, nil
	}

	user, err := c.next.GetUser(ctx, externalID)
	if err != nil || user == nil {
		return user, err
	}
	c.save(ctx, key, user)
	return user, nil
}

// GetProject implements port.Directory
func (c *CachedDirectory) GetProject(ctx context.Context, externalID string) (*port.DirectoryProject, error) {
	key := "directory:project:" + externalID

	var cached port.DirectoryProject
	if c.load(ctx, key, &cached) {
		return &cached, nil
	}

	project, err := c.next.GetProject(ctx, externalID)
	if err != nil || project == nil {
		return project, err
	}
	c.save(ctx, key, project)
	return project, nil
}

func (c *CachedDirectory) load(ctx context.Context, key string, dst interface{}) bool {
	bs, err := c.store.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Directory cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(bs, dst); err != nil {
		c.logger.Warn("Directory cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *CachedDirectory) save(ctx context.Context, key string, value interface{}) {
	bs, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, bs, c.ttl).Err(); err != nil {
		c.logger.Warn("Directory cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Verify interface compliance
var _ port.Directory = (*CachedDirectory)(nil)
