package controllers

import (
	"context"
	"time"

	"github.com/yashrajoria/catalog-service/catalog"
	"github.com/yashrajoria/catalog-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Config holds controller configuration.
type Config struct {
	CacheTTL       time.Duration
	ContextTimeout time.Duration
}

const (
	DefaultCacheTTL       = 10 * time.Minute
	DefaultContextTimeout = 30 * time.Second
)

func DefaultConfig() Config {
	return Config{CacheTTL: DefaultCacheTTL, ContextTimeout: DefaultContextTimeout}
}

// CatalogAPI is the engine surface the HTTP layer depends on.
type CatalogAPI interface {
	Resolve(ctx context.Context, req catalog.Request) (*catalog.Result, error)
	Locate(ctx context.Context, req catalog.LocateRequest) (*catalog.Match, error)
	Leaves(ctx context.Context, id primitive.ObjectID) ([]*models.Category, error)
	Forest(ctx context.Context) ([]*models.CategoryNode, error)
}

// CacheObserver receives list-cache hit and miss events.
type CacheObserver interface {
	RecordCache(hit bool)
}

// ProductListResponse is the body of GET /products.
type ProductListResponse struct {
	Products   []models.NormalizedProduct `json:"products"`
	Pagination catalog.Pagination         `json:"pagination"`
	Warnings   []catalog.Warning          `json:"warnings,omitempty"`
}

// ResolveResponse is the body of GET /categories/resolve.
type ResolveResponse struct {
	Category   *models.Category `json:"category"`
	Step       string           `json:"step"`
	Via        string           `json:"via,omitempty"`
	Candidates int              `json:"candidates"`
	OwningRoot *models.Category `json:"owningRoot,omitempty"`
}
