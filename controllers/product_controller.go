package controllers

import (
	"context"
	"net/http"

	"github.com/yashrajoria/catalog-service/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type ProductController struct {
	catalog   CatalogAPI
	cache     *CacheManager
	validator *RequestValidator
	config    Config
	observer  CacheObserver
}

// Option customizes a ProductController.
type Option func(*ProductController)

func WithConfig(cfg Config) Option {
	return func(ctrl *ProductController) {
		if cfg.CacheTTL > 0 {
			ctrl.config.CacheTTL = cfg.CacheTTL
		}
		if cfg.ContextTimeout > 0 {
			ctrl.config.ContextTimeout = cfg.ContextTimeout
		}
	}
}

func WithCacheObserver(o CacheObserver) Option {
	return func(ctrl *ProductController) {
		ctrl.observer = o
	}
}

// NewProductController wires the list endpoint. redisClient may be nil.
func NewProductController(api CatalogAPI, redisClient *redis.Client, opts ...Option) *ProductController {
	ctrl := &ProductController{
		catalog:   api,
		validator: NewRequestValidator(),
		config:    DefaultConfig(),
	}
	for _, opt := range opts {
		opt(ctrl)
	}
	ctrl.cache = NewCacheManager(redisClient, ctrl.config.CacheTTL, ctrl.observer)
	return ctrl
}

// Cache exposes the list cache for the invalidation endpoint.
func (ctrl *ProductController) Cache() *CacheManager {
	return ctrl.cache
}

// GetProducts handles GET /products.
func (ctrl *ProductController) GetProducts(c *gin.Context) {
	req, err := ctrl.validator.ParseListQuery(c)
	if err != nil {
		handleBadRequest(c, err)
		return
	}

	if cached, ok := ctrl.cache.GetProductList(c.Request.Context(), req); ok {
		c.Header("X-Cache", "HIT")
		c.JSON(http.StatusOK, cached)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctrl.config.ContextTimeout)
	defer cancel()

	res, err := ctrl.catalog.Resolve(ctx, req)
	if err != nil {
		handleCatalogError(c, err)
		return
	}

	resp := buildProductListResponse(res)
	if cacheable(res) {
		ctrl.cache.SetProductListAsync(req, resp)
	} else {
		logger.Debug(c, "Degraded page not cached", zap.Int("warnings", len(res.Warnings)))
	}
	c.Header("X-Cache", "MISS")
	c.JSON(http.StatusOK, resp)
}
