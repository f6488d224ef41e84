package routes

import (
	"github.com/yashrajoria/catalog-service/controllers"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the catalog API. cacheCtrl may be nil when Redis is
// not configured.
func RegisterRoutes(r *gin.Engine, productCtrl *controllers.ProductController, categoryCtrl *controllers.CategoryController, cacheCtrl *controllers.CacheController) {
	productRoutes := r.Group("/products")
	{
		productRoutes.GET("", productCtrl.GetProducts)
	}

	categoryRoutes := r.Group("/categories")
	{
		categoryRoutes.GET("", categoryCtrl.GetCategories)
		categoryRoutes.GET("/resolve", categoryCtrl.ResolveCategory)
		categoryRoutes.GET("/:id/leaves", categoryCtrl.GetLeaves)
	}

	if cacheCtrl != nil {
		internal := r.Group("/internal")
		internal.POST("/cache/invalidate", cacheCtrl.Invalidate)
	}
}
