package repository

import (
	"context"
	"errors"

	"github.com/yashrajoria/catalog-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned by single-record lookups that match nothing.
var ErrNotFound = errors.New("record not found")

// ProductRepo is the read-only product capability the catalog engine needs.
// Filters are expressed as bson.M documents in MongoDB query syntax; stores
// without a native query engine evaluate them with Match.
type ProductRepo interface {
	Find(ctx context.Context, filter bson.M, limit, skip int) ([]*models.Product, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	FindOne(ctx context.Context, filter bson.M) (*models.Product, error)
}

// CategoryRepo is the read-only category capability. Find returns records in
// storage order; limit <= 0 means no limit.
type CategoryRepo interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
	Find(ctx context.Context, filter bson.M, limit int) ([]*models.Category, error)
	FindAll(ctx context.Context) ([]*models.Category, error)
}
