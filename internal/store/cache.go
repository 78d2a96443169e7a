package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/your-denys/meal-fit-ai/internal/domain"
)

const cachePrefix = "mealfit:"

// CachedRepo decorates a Repo with a Redis cache for the hot ledger reads
// (dedup checks happen for every user on every tick). Writes go through to
// the underlying store first and then update the cache, so a record is
// visible to the very next read within the same tick. Any cache failure
// silently degrades to the wrapped repo.
type CachedRepo struct {
	Repo
	rdb *redis.Client
	ttl time.Duration
}

// NewCachedRepo wraps repo with a Redis cache. The TTL should not exceed a
// tick interval; cooldown decisions tolerate stale reads no longer than that.
func NewCachedRepo(ctx context.Context, repo Repo, addr, password string, db int, ttl time.Duration) (*CachedRepo, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &CachedRepo{Repo: repo, rdb: rdb, ttl: ttl}, nil
}

func (c *CachedRepo) Close() error {
	_ = c.rdb.Close()
	return c.Repo.Close()
}

func notifiedKey(userID int64, cat domain.Category, day time.Time) string {
	return fmt.Sprintf("%snotified:%d:%s:%s", cachePrefix, userID, cat, domain.DateKey(day))
}

func lastSentKey(userID int64, cat domain.Category) string {
	return fmt.Sprintf("%slastsent:%d:%s", cachePrefix, userID, cat)
}

func countKey(userID int64, cat domain.Category, day time.Time) string {
	return fmt.Sprintf("%scount:%d:%s:%s", cachePrefix, userID, cat, domain.DateKey(day))
}

func (c *CachedRepo) WasNotified(ctx context.Context, userID int64, cat domain.Category, day time.Time) (bool, error) {
	key := notifiedKey(userID, cat, day)
	if v, err := c.rdb.Get(ctx, key).Result(); err == nil {
		return v == "1", nil
	}
	sent, err := c.Repo.WasNotified(ctx, userID, cat, day)
	if err != nil {
		return false, err
	}
	val := "0"
	if sent {
		val = "1"
	}
	_ = c.rdb.Set(ctx, key, val, c.ttl).Err()
	return sent, nil
}

func (c *CachedRepo) RecordNotified(ctx context.Context, userID int64, cat domain.Category, day time.Time) error {
	if err := c.Repo.RecordNotified(ctx, userID, cat, day); err != nil {
		return err
	}
	_ = c.rdb.Set(ctx, notifiedKey(userID, cat, day), "1", c.ttl).Err()
	return nil
}

func (c *CachedRepo) LastSentAt(ctx context.Context, userID int64, cat domain.Category) (*time.Time, error) {
	key := lastSentKey(userID, cat)
	if data, err := c.rdb.Get(ctx, key).Result(); err == nil {
		var unix int64
		if err := json.Unmarshal([]byte(data), &unix); err == nil {
			if unix == 0 {
				return nil, nil
			}
			t := time.Unix(unix, 0)
			return &t, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		// Redis down: fall through to the real store without caching.
		return c.Repo.LastSentAt(ctx, userID, cat)
	}

	last, err := c.Repo.LastSentAt(ctx, userID, cat)
	if err != nil {
		return nil, err
	}
	var unix int64
	if last != nil {
		unix = last.Unix()
	}
	if data, err := json.Marshal(unix); err == nil {
		_ = c.rdb.Set(ctx, key, data, c.ttl).Err()
	}
	return last, nil
}

func (c *CachedRepo) RecordSentAt(ctx context.Context, userID int64, cat domain.Category, at time.Time) error {
	if err := c.Repo.RecordSentAt(ctx, userID, cat, at); err != nil {
		return err
	}
	if data, err := json.Marshal(at.Unix()); err == nil {
		_ = c.rdb.Set(ctx, lastSentKey(userID, cat), data, c.ttl).Err()
	}
	// The cached counter moves with the write; a miss recomputes from SQL.
	_ = c.rdb.Del(ctx, countKey(userID, cat, at)).Err()
	return nil
}

func (c *CachedRepo) CountSentToday(ctx context.Context, userID int64, cat domain.Category, day time.Time) (int, error) {
	key := countKey(userID, cat, day)
	if v, err := c.rdb.Get(ctx, key).Int(); err == nil {
		return v, nil
	}
	n, err := c.Repo.CountSentToday(ctx, userID, cat, day)
	if err != nil {
		return 0, err
	}
	_ = c.rdb.Set(ctx, key, n, c.ttl).Err()
	return n, nil
}
