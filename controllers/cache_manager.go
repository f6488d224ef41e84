package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yashrajoria/catalog-service/catalog"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	ListCachePrefix = "catalog:list:v:"
	CacheVersionKey = "catalog:version"
)

// CacheManager caches resolved product pages in Redis. Every key embeds the
// current version so Invalidate drops all pages with one INCR. A nil client
// turns every operation into a miss.
type CacheManager struct {
	redis    *redis.Client
	ttl      time.Duration
	observer CacheObserver
}

func NewCacheManager(client *redis.Client, ttl time.Duration, observer CacheObserver) *CacheManager {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CacheManager{redis: client, ttl: ttl, observer: observer}
}

// GetProductList returns a cached page for req.
func (cm *CacheManager) GetProductList(ctx context.Context, req catalog.Request) (*ProductListResponse, bool) {
	if cm == nil || cm.redis == nil {
		return nil, false
	}
	version, err := cm.getCacheVersion(ctx)
	if err != nil || version == 0 {
		cm.record(false)
		return nil, false
	}

	cached, err := cm.redis.Get(ctx, ListCacheKey(version, req)).Result()
	if err != nil {
		cm.record(false)
		return nil, false
	}

	var resp ProductListResponse
	if err := json.Unmarshal([]byte(cached), &resp); err != nil {
		zap.L().Warn("Failed to unmarshal cached product list", zap.Error(err))
		cm.record(false)
		return nil, false
	}
	cm.record(true)
	return &resp, true
}

// SetProductListAsync stores resp in the background.
func (cm *CacheManager) SetProductListAsync(req catalog.Request, resp *ProductListResponse) {
	if cm == nil || cm.redis == nil || resp == nil {
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		version, err := cm.getCacheVersion(bgCtx)
		if err != nil || version == 0 {
			return
		}

		body, err := json.Marshal(resp)
		if err != nil {
			zap.L().Warn("Failed to marshal product list for cache", zap.Error(err))
			return
		}
		if err := cm.redis.Set(bgCtx, ListCacheKey(version, req), body, cm.ttl).Err(); err != nil {
			zap.L().Warn("Failed to cache product list", zap.Error(err))
		}
	}()
}

// Invalidate bumps the cache version and returns the new one.
func (cm *CacheManager) Invalidate(ctx context.Context) (int64, error) {
	if cm == nil || cm.redis == nil {
		return 0, errCacheDisabled
	}
	v, err := cm.redis.Incr(ctx, CacheVersionKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate cache: %w", err)
	}
	zap.L().Info("Cache invalidated", zap.Int64("new_version", v))
	return v, nil
}

func (cm *CacheManager) getCacheVersion(ctx context.Context) (int64, error) {
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		ver, err := cm.redis.Get(ctx, CacheVersionKey).Int64()
		if err == nil && ver > 0 {
			return ver, nil
		}

		if errors.Is(err, redis.Nil) {
			if err := cm.redis.Set(ctx, CacheVersionKey, 1, 0).Err(); err == nil {
				return 1, nil
			}
		}

		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if i < maxRetries-1 {
			time.Sleep(50 * time.Millisecond)
		}
	}
	return 0, fmt.Errorf("failed to get cache version after %d retries", maxRetries)
}

func (cm *CacheManager) record(hit bool) {
	if cm.observer != nil {
		cm.observer.RecordCache(hit)
	}
}

// ListCacheKey derives the cache key of a product page.
func ListCacheKey(version int64, req catalog.Request) string {
	var b strings.Builder
	b.WriteString(ListCachePrefix)
	b.WriteString(strconv.FormatInt(version, 10))
	fmt.Fprintf(&b, ":p:%d:l:%d", req.Page, req.Limit)
	for _, part := range []struct{ k, v string }{
		{"c", req.Category},
		{"s", req.Subcategory},
		{"leaf", req.Leaf},
		{"q", req.Search},
	} {
		if part.v != "" {
			fmt.Fprintf(&b, ":%s:%s", part.k, url.QueryEscape(strings.ToLower(part.v)))
		}
	}
	if req.MinPrice != nil {
		fmt.Fprintf(&b, ":min:%g", *req.MinPrice)
	}
	if req.MaxPrice != nil {
		fmt.Fprintf(&b, ":max:%g", *req.MaxPrice)
	}
	return b.String()
}
