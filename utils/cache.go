package utils

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheTTL = time.Hour

	// CacheChecklistPrefix prefixes cached batch checklist responses.
	CacheChecklistPrefix = "cache:checklist:"
	// CacheCompliancePrefix prefixes cached compliance reports.
	CacheCompliancePrefix = "cache:compliance:"

	cacheGenerationPrefix = "cache:gen:"
	cacheFillTimeout      = 30 * time.Second
)

var (
	fillGroup singleflight.Group

	// localGenerations backs CacheGeneration when Redis is disabled.
	localGenerations   = map[string]int64{}
	localGenerationsMu sync.Mutex
)

// CacheGeneration returns the invalidation counter of prefix. InvalidateByPrefix bumps it.
func CacheGeneration(ctx context.Context, prefix string) int64 {
	rc := GetRedis()
	if rc == nil {
		localGenerationsMu.Lock()
		defer localGenerationsMu.Unlock()
		return localGenerations[prefix]
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	n, err := rc.Get(ctx, cacheGenerationPrefix+prefix).Int64()
	if err != nil {
		Logger.Debug("cache generation unavailable", zap.String("prefix", prefix), zap.Error(err))
		return 0
	}
	return n
}

// VersionedKey builds a key under prefix that changes whenever prefix is invalidated.
func VersionedKey(ctx context.Context, prefix, id string) string {
	return prefix + strconv.FormatInt(CacheGeneration(ctx, prefix), 10) + ":" + id
}

func bumpGeneration(ctx context.Context, prefix string) {
	rc := GetRedis()
	if rc == nil {
		localGenerationsMu.Lock()
		localGenerations[prefix]++
		localGenerationsMu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Incr(ctx, cacheGenerationPrefix+prefix).Err(); err != nil {
		Logger.Warn("cache generation bump failed", zap.String("prefix", prefix), zap.Error(err))
	}
}

// CacheGetBytes returns cached bytes for a key from Redis.
func CacheGetBytes(ctx context.Context, key string) ([]byte, bool) {
	rc := GetRedis()
	if rc == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		Logger.Debug("cache miss", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return b, true
}

// CacheSetBytes stores bytes with ttl, or the default TTL when ttl is not positive.
func CacheSetBytes(ctx context.Context, key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
		Logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// CacheFetchJSON returns the JSON cached at key. On a miss, fill runs once per key across
// concurrent callers and its marshalled result is stored for ttl. The fill is detached from
// the cancellation of whichever caller started it and bounded by its own timeout.
func CacheFetchJSON(ctx context.Context, key string, ttl time.Duration, fill func(context.Context) (interface{}, error)) (json.RawMessage, error) {
	if b, ok := CacheGetBytes(ctx, key); ok {
		return b, nil
	}
	v, err, _ := fillGroup.Do(key, func() (interface{}, error) {
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheFillTimeout)
		defer cancel()
		data, err := fill(fillCtx)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		CacheSetBytes(fillCtx, key, b, ttl)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(v.([]byte)), nil
}

// InvalidateByPrefix bumps the generation of prefix and deletes keys that match it using SCAN.
func InvalidateByPrefix(ctx context.Context, prefix string) {
	bumpGeneration(ctx, prefix)
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ { // limit rounds to avoid long loops
		keys, cur, err := rc.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			Logger.Warn("cache invalidate scan failed", zap.String("prefix", prefix), zap.Error(err))
			return
		}
		cursor = cur
		if len(keys) > 0 {
			if err := rc.Del(ctx, keys...).Err(); err != nil {
				Logger.Warn("cache invalidate failed", zap.String("prefix", prefix), zap.Error(err))
			}
		}
		if cursor == 0 {
			return
		}
	}
}
