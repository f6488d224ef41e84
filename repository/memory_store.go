package repository

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/yashrajoria/catalog-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps categories and products as raw bson documents in
// insertion order. Filters are evaluated with Match, so records are seen the
// same way the MongoDB driver would see them, including absent fields.
type MemoryStore struct {
	mu         sync.RWMutex
	categories []bson.M
	products   []bson.M
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// seedFile is the extended-JSON layout accepted by LoadSeedFile.
type seedFile struct {
	Categories []bson.M `bson:"categories"`
	Products   []bson.M `bson:"products"`
}

// LoadSeedFile reads a relaxed extended-JSON document of the form
// {"categories": [...], "products": [...]}.
func (s *MemoryStore) LoadSeedFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := bson.UnmarshalExtJSON(data, false, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}
	s.InsertRaw("categories", seed.Categories...)
	s.InsertRaw("products", seed.Products...)
	return nil
}

// InsertRaw appends documents as-is to the named collection.
func (s *MemoryStore) InsertRaw(collection string, docs ...bson.M) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch collection {
	case "categories":
		s.categories = append(s.categories, docs...)
	case "products":
		s.products = append(s.products, docs...)
	}
}

func (s *MemoryStore) InsertCategories(categories ...*models.Category) error {
	for _, c := range categories {
		if c.ID.IsZero() {
			c.ID = primitive.NewObjectID()
		}
		doc, err := toDoc(c)
		if err != nil {
			return fmt.Errorf("encode category %s: %w", c.Slug, err)
		}
		s.InsertRaw("categories", doc)
	}
	return nil
}

func (s *MemoryStore) InsertProducts(products ...*models.Product) error {
	for _, p := range products {
		if p.ID.IsZero() {
			p.ID = primitive.NewObjectID()
		}
		doc, err := toDoc(p)
		if err != nil {
			return fmt.Errorf("encode product %s: %w", p.Name, err)
		}
		s.InsertRaw("products", doc)
	}
	return nil
}

// Products returns the product view of the store.
func (s *MemoryStore) Products() ProductRepo { return memoryProducts{s} }

// Categories returns the category view of the store.
func (s *MemoryStore) Categories() CategoryRepo { return memoryCategories{s} }

// scan calls fn for each matching document until fn returns false.
func (s *MemoryStore) scan(ctx context.Context, docs *[]bson.M, filter bson.M, fn func(bson.M) (bool, error)) error {
	s.mu.RLock()
	snapshot := *docs
	s.mu.RUnlock()

	for _, doc := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := Match(doc, filter)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		more, err := fn(doc)
		if err != nil || !more {
			return err
		}
	}
	return nil
}

type memoryProducts struct{ s *MemoryStore }

func (m memoryProducts) Find(ctx context.Context, filter bson.M, limit, skip int) ([]*models.Product, error) {
	var products []*models.Product
	seen := 0
	err := m.s.scan(ctx, &m.s.products, filter, func(doc bson.M) (bool, error) {
		if seen < skip {
			seen++
			return true, nil
		}
		var p models.Product
		if err := fromDoc(doc, &p); err != nil {
			return false, fmt.Errorf("decode product: %w", err)
		}
		products = append(products, &p)
		return limit <= 0 || len(products) < limit, nil
	})
	return products, err
}

func (m memoryProducts) Count(ctx context.Context, filter bson.M) (int64, error) {
	var total int64
	err := m.s.scan(ctx, &m.s.products, filter, func(bson.M) (bool, error) {
		total++
		return true, nil
	})
	return total, err
}

func (m memoryProducts) FindOne(ctx context.Context, filter bson.M) (*models.Product, error) {
	products, err := m.Find(ctx, filter, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNotFound
	}
	return products[0], nil
}

type memoryCategories struct{ s *MemoryStore }

func (m memoryCategories) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	categories, err := m.Find(ctx, bson.M{"_id": id}, 1)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, ErrNotFound
	}
	return categories[0], nil
}

func (m memoryCategories) Find(ctx context.Context, filter bson.M, limit int) ([]*models.Category, error) {
	var categories []*models.Category
	err := m.s.scan(ctx, &m.s.categories, filter, func(doc bson.M) (bool, error) {
		var c models.Category
		if err := fromDoc(doc, &c); err != nil {
			return false, fmt.Errorf("decode category: %w", err)
		}
		categories = append(categories, &c)
		return limit <= 0 || len(categories) < limit, nil
	})
	return categories, err
}

func (m memoryCategories) FindAll(ctx context.Context) ([]*models.Category, error) {
	return m.Find(ctx, bson.M{}, 0)
}

func toDoc(v interface{}) (bson.M, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromDoc(doc bson.M, out interface{}) error {
	data, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(data, out)
}
