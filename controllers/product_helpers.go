package controllers

import (
	"errors"

	"github.com/yashrajoria/catalog-service/apperrors"
	"github.com/yashrajoria/catalog-service/catalog"
	"github.com/yashrajoria/catalog-service/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleCatalogError maps engine failures to HTTP responses.
func handleCatalogError(c *gin.Context, err error) {
	appErr := apperrors.FromCatalog(err)
	if appErr.Status >= 500 {
		logger.Error(c, "Catalog request failed", err,
			zap.String("code", appErr.Code), zap.Bool("retryable", catalog.IsRetryable(err)))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.Status, appErr)
}

func handleBadRequest(c *gin.Context, err error) {
	appErr := apperrors.BadRequest(err.Error(), err)
	_ = c.Error(appErr)
	c.AbortWithStatusJSON(appErr.Status, appErr)
}

// buildProductListResponse copies the public part of a resolution.
func buildProductListResponse(res *catalog.Result) *ProductListResponse {
	return &ProductListResponse{
		Products:   res.Products,
		Pagination: res.Pagination,
		Warnings:   res.Warnings,
	}
}

// cacheable reports whether a page may be stored. Degraded pages are not.
func cacheable(res *catalog.Result) bool {
	return len(res.Warnings) == 0
}

var errCacheDisabled = errors.New("cache disabled")
