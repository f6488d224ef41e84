package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yashrajoria/catalog-service/catalog"
	"github.com/yashrajoria/catalog-service/models"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeCatalog struct {
	lastRequest   catalog.Request
	resolveCalled int
	resolveFn     func(ctx context.Context, req catalog.Request) (*catalog.Result, error)

	lastLocate catalog.LocateRequest
	locateFn   func(ctx context.Context, req catalog.LocateRequest) (*catalog.Match, error)
	leavesFn   func(ctx context.Context, id primitive.ObjectID) ([]*models.Category, error)
	forestFn   func(ctx context.Context) ([]*models.CategoryNode, error)
}

func (f *fakeCatalog) Resolve(ctx context.Context, req catalog.Request) (*catalog.Result, error) {
	f.resolveCalled++
	f.lastRequest = req
	if f.resolveFn != nil {
		return f.resolveFn(ctx, req)
	}
	return &catalog.Result{Products: []models.NormalizedProduct{}, Pagination: catalog.Pagination{Page: req.Page, Limit: req.Limit}}, nil
}

func (f *fakeCatalog) Locate(ctx context.Context, req catalog.LocateRequest) (*catalog.Match, error) {
	f.lastLocate = req
	if f.locateFn != nil {
		return f.locateFn(ctx, req)
	}
	return nil, catalog.ErrNotFound
}

func (f *fakeCatalog) Leaves(ctx context.Context, id primitive.ObjectID) ([]*models.Category, error) {
	if f.leavesFn != nil {
		return f.leavesFn(ctx, id)
	}
	return nil, catalog.ErrNotFound
}

func (f *fakeCatalog) Forest(ctx context.Context) ([]*models.CategoryNode, error) {
	if f.forestFn != nil {
		return f.forestFn(ctx)
	}
	return []*models.CategoryNode{}, nil
}

func newTestRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:       "localhost:0",
		MaxRetries: -1,
		Dialer: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return nil, errors.New("redis disabled in tests")
		},
	})
}

type countingObserver struct {
	hits, misses int
}

func (o *countingObserver) RecordCache(hit bool) {
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

func newProductRouter(ctrl *ProductController) *gin.Engine {
	router := gin.New()
	router.GET("/products", ctrl.GetProducts)
	return router
}

func TestGetProductsWithFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)

	fake := &fakeCatalog{
		resolveFn: func(ctx context.Context, req catalog.Request) (*catalog.Result, error) {
			return &catalog.Result{
				Products:   []models.NormalizedProduct{{ID: "p1", Name: "Pumice Stone", Price: 8, Images: []string{}}},
				Pagination: catalog.Pagination{Page: 2, Limit: 5, Total: 6, TotalPages: 2},
			}, nil
		},
	}
	observer := &countingObserver{}
	controller := NewProductController(fake, newTestRedisClient(), WithCacheObserver(observer))
	router := newProductRouter(controller)

	req := httptest.NewRequest(http.MethodGet,
		"/products?category=nail-products&subcategory=tools-equipment&secondSubcategory=pedicure-tools&search=+stone+&minPrice=5&maxPrice=20.5&page=2&limit=5", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, recorder.Code, recorder.Body.String())
	}
	if fake.resolveCalled != 1 {
		t.Fatalf("expected resolve to be called once, got %d", fake.resolveCalled)
	}

	got := fake.lastRequest
	if got.Category != "nail-products" || got.Subcategory != "tools-equipment" || got.Leaf != "pedicure-tools" {
		t.Fatalf("unexpected tokens: %+v", got)
	}
	if got.Search != "stone" {
		t.Fatalf("expected trimmed search, got %q", got.Search)
	}
	if got.MinPrice == nil || *got.MinPrice != 5 || got.MaxPrice == nil || *got.MaxPrice != 20.5 {
		t.Fatalf("unexpected price range: %v %v", got.MinPrice, got.MaxPrice)
	}
	if got.Page != 2 || got.Limit != 5 {
		t.Fatalf("unexpected pagination: page=%d limit=%d", got.Page, got.Limit)
	}
	if recorder.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("expected cache miss header, got %q", recorder.Header().Get("X-Cache"))
	}
	if observer.misses != 1 || observer.hits != 0 {
		t.Fatalf("expected one recorded miss, got hits=%d misses=%d", observer.hits, observer.misses)
	}

	var body ProductListResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(body.Products) != 1 || body.Products[0].Name != "Pumice Stone" {
		t.Fatalf("unexpected products: %+v", body.Products)
	}
	if body.Pagination.TotalPages != 2 {
		t.Fatalf("unexpected pagination: %+v", body.Pagination)
	}
}

func TestGetProductsDefaultsAndLeafAlias(t *testing.T) {
	gin.SetMode(gin.TestMode)

	fake := &fakeCatalog{}
	router := newProductRouter(NewProductController(fake, nil))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/products?leaf=serums", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	got := fake.lastRequest
	if got.Page != 1 || got.Limit != 20 {
		t.Fatalf("expected default pagination, got page=%d limit=%d", got.Page, got.Limit)
	}
	if got.Leaf != "serums" {
		t.Fatalf("expected leaf alias to be honoured, got %q", got.Leaf)
	}
	if got.MinPrice != nil || got.MaxPrice != nil {
		t.Fatalf("expected no price range, got %v %v", got.MinPrice, got.MaxPrice)
	}
}

func TestGetProductsRejectsInvalidQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name  string
		query string
	}{
		{"page zero", "page=0"},
		{"limit too large", "limit=500"},
		{"negative price", "minPrice=-1"},
		{"not a number", "maxPrice=cheap"},
		{"inverted range", "minPrice=50&maxPrice=10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCatalog{}
			router := newProductRouter(NewProductController(fake, nil))

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/products?"+tt.query, nil))

			if recorder.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, recorder.Code)
			}
			if fake.resolveCalled != 0 {
				t.Fatalf("resolve must not run for invalid input")
			}
		})
	}
}

func TestGetProductsMapsEngineErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		retryable  bool
	}{
		{"timeout", &catalog.StorageError{Op: "probe", Kind: catalog.ErrStorageTimeout, Err: context.DeadlineExceeded}, http.StatusServiceUnavailable, "storage_timeout", true},
		{"unavailable", &catalog.StorageError{Op: "category query", Kind: catalog.ErrStorageUnavailable, Err: errors.New("connection refused")}, http.StatusServiceUnavailable, "storage_unavailable", true},
		{"cycle", catalog.ErrCycleDetected, http.StatusInternalServerError, "category_cycle", false},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCatalog{
				resolveFn: func(ctx context.Context, req catalog.Request) (*catalog.Result, error) {
					return nil, tt.err
				},
			}
			router := newProductRouter(NewProductController(fake, newTestRedisClient()))

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/products?category=skincare", nil))

			if recorder.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, recorder.Code)
			}
			var body struct {
				Code      string `json:"code"`
				Retryable bool   `json:"retryable"`
			}
			if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid body: %v", err)
			}
			if body.Code != tt.wantCode || body.Retryable != tt.retryable {
				t.Fatalf("unexpected error body: %s", recorder.Body.String())
			}
		})
	}
}

func TestGetProductsReturnsWarnings(t *testing.T) {
	gin.SetMode(gin.TestMode)

	fake := &fakeCatalog{
		resolveFn: func(ctx context.Context, req catalog.Request) (*catalog.Result, error) {
			return &catalog.Result{
				Products: []models.NormalizedProduct{},
				Warnings: []catalog.Warning{{Code: catalog.WarnCategoryUnresolved, Message: "category not found"}},
			}, nil
		},
	}
	router := newProductRouter(NewProductController(fake, nil))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/products?category=nope", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	var body ProductListResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(body.Warnings) != 1 || body.Warnings[0].Code != catalog.WarnCategoryUnresolved {
		t.Fatalf("expected unresolved warning, got %+v", body.Warnings)
	}
	if body.Products == nil {
		t.Fatalf("products must serialize as an empty array")
	}
}
