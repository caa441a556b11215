package job

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/snagd/snagd/internal/download"
	"github.com/snagd/snagd/pkg/logger"
)

var cacheLog = logger.Get("JobCache")

// ResultCache stores completed download responses keyed by the request
// parameters that affect the produced artifacts. A repeated request for
// the same media in the same format is answered without re-downloading.
//
// The cache degrades to a no-op when redis is unavailable; caching is
// an optimization, never a dependency.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultCache(addr string, password string, ttl time.Duration) *ResultCache {
	if addr == "" {
		return &ResultCache{}
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		cacheLog.Warnf("Redis at %s not available, result caching disabled: %v\n", addr, err)
		return &ResultCache{}
	}

	cacheLog.Infof("Redis result cache connected (%s, ttl %s)\n", addr, ttl)
	return &ResultCache{client: client, ttl: ttl}
}

func (cache *ResultCache) Enabled() bool {
	return cache.client != nil
}

// Key digests the request fields that determine the output artifacts.
// Webhook and thumbnail settings deliberately do not participate.
func (cache *ResultCache) Key(req *download.Request) string {
	digest := sha256.New()
	fmt.Fprintf(digest, "%s|%s|%s|%s|%s", req.MediaURL, req.Format.Quality, req.Format.FormatID, req.Format.Resolution, req.Format.VideoCodec)
	fmt.Fprintf(digest, "|%s|%v|%s|%s", req.Format.AudioCodec, req.Audio.Extract, req.Audio.EffectiveFormat(), req.Audio.EffectiveQuality())

	return "result:" + hex.EncodeToString(digest.Sum(nil))
}

func (cache *ResultCache) Get(ctx context.Context, key string) *download.ResponseRecord {
	if cache.client == nil {
		return nil
	}

	raw, err := cache.client.Get(ctx, key).Result()
	if err != nil {
		return nil
	}

	var record download.ResponseRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		cacheLog.Warnf("Discarding malformed cache entry %s: %v\n", key, err)
		cache.client.Del(ctx, key)
		return nil
	}

	return &record
}

func (cache *ResultCache) Put(ctx context.Context, key string, record *download.ResponseRecord) {
	if cache.client == nil {
		return
	}

	raw, err := json.Marshal(record)
	if err != nil {
		cacheLog.Warnf("Failed to serialize result for caching: %v\n", err)
		return
	}

	if err := cache.client.Set(ctx, key, raw, cache.ttl).Err(); err != nil {
		cacheLog.Warnf("Failed to store result in cache: %v\n", err)
	}
}
