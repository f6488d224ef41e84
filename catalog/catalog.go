// Package catalog resolves caller-supplied category tokens into product
// filters across the legacy flat and the normalized category representations,
// and executes the resulting page query.
package catalog

import (
	"context"
	"time"

	"github.com/yashrajoria/catalog-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// stepContext bounds a single storage round-trip.
func stepContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func idsOf(categories []*models.Category) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(categories))
	for _, c := range categories {
		ids = append(ids, c.ID)
	}
	return ids
}

func hexIDs(categories []*models.Category) []string {
	ids := make([]string, 0, len(categories))
	for _, c := range categories {
		ids = append(ids, c.ID.Hex())
	}
	return ids
}
