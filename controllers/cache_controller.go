package controllers

import (
	"errors"
	"net/http"

	"github.com/yashrajoria/catalog-service/apperrors"
	"github.com/yashrajoria/catalog-service/logger"

	"github.com/gin-gonic/gin"
)

type CacheController struct {
	cache *CacheManager
}

func NewCacheController(cache *CacheManager) *CacheController {
	return &CacheController{cache: cache}
}

// Invalidate drops every cached product page.
func (ctrl *CacheController) Invalidate(c *gin.Context) {
	version, err := ctrl.cache.Invalidate(c.Request.Context())
	if err != nil {
		status, code := http.StatusServiceUnavailable, "cache_unavailable"
		if errors.Is(err, errCacheDisabled) {
			status, code = http.StatusConflict, "cache_disabled"
		}
		logger.Error(c, "Cache invalidation failed", err)
		appErr := apperrors.New(status, code, err.Error(), err)
		c.AbortWithStatusJSON(status, appErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cache invalidated", "version": version})
}
