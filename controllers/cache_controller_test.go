package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yashrajoria/catalog-service/catalog"

	"github.com/gin-gonic/gin"
)

func TestInvalidateCache(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		cache      *CacheManager
		wantStatus int
	}{
		{"disabled", NewCacheManager(nil, 0, nil), http.StatusConflict},
		{"redis down", NewCacheManager(newTestRedisClient(), 0, nil), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.POST("/internal/cache/invalidate", NewCacheController(tt.cache).Invalidate)

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/internal/cache/invalidate", nil))
			if recorder.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, recorder.Code)
			}
		})
	}
}

func TestListCacheKey(t *testing.T) {
	min := 10.0
	a := ListCacheKey(3, catalog.Request{Category: "Skincare", Leaf: "a:b c", MinPrice: &min, Page: 1, Limit: 20})
	b := ListCacheKey(3, catalog.Request{Category: "skincare", Leaf: "a:b c", MinPrice: &min, Page: 1, Limit: 20})
	if a != b {
		t.Fatalf("keys must ignore token case: %q != %q", a, b)
	}
	if !strings.HasPrefix(a, ListCachePrefix+"3:") {
		t.Fatalf("key must carry the version: %q", a)
	}
	if strings.Contains(a, "a:b") {
		t.Fatalf("tokens must be escaped: %q", a)
	}
	if a == ListCacheKey(4, catalog.Request{Category: "skincare", Leaf: "a:b c", MinPrice: &min, Page: 1, Limit: 20}) {
		t.Fatalf("version bump must change the key")
	}
	if ListCacheKey(1, catalog.Request{Category: "spa", Page: 1, Limit: 20}) == ListCacheKey(1, catalog.Request{Subcategory: "spa", Page: 1, Limit: 20}) {
		t.Fatalf("token position must be part of the key")
	}
}
