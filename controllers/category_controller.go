package controllers

import (
	"net/http"

	"github.com/yashrajoria/catalog-service/catalog"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CategoryController struct {
	catalog   CatalogAPI
	validator *RequestValidator
}

func NewCategoryController(api CatalogAPI) *CategoryController {
	return &CategoryController{catalog: api, validator: NewRequestValidator()}
}

// GetCategories returns the category forest.
func (ctrl *CategoryController) GetCategories(c *gin.Context) {
	forest, err := ctrl.catalog.Forest(c.Request.Context())
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, forest)
}

// ResolveCategory runs the locator for a single token.
func (ctrl *CategoryController) ResolveCategory(c *gin.Context) {
	req, err := ctrl.validator.ParseResolveQuery(c)
	if err != nil {
		handleBadRequest(c, err)
		return
	}

	m, err := ctrl.catalog.Locate(c.Request.Context(), req)
	if err != nil {
		handleCatalogError(c, err)
		return
	}

	resp := ResolveResponse{
		Category:   m.Category,
		Step:       m.Step.String(),
		Candidates: m.Candidates,
		OwningRoot: m.OwningRoot,
	}
	if m.Via != catalog.StepNone {
		resp.Via = m.Via.String()
	}
	c.JSON(http.StatusOK, resp)
}

// GetLeaves returns the leaf categories under :id.
func (ctrl *CategoryController) GetLeaves(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		handleBadRequest(c, err)
		return
	}

	leaves, err := ctrl.catalog.Leaves(c.Request.Context(), id)
	if err != nil {
		handleCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categoryId": id.Hex(), "leaves": leaves})
}
