package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yashrajoria/catalog-service/models"
	"github.com/yashrajoria/catalog-service/repository"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func f64(v float64) *float64 { return &v }
func yes() *bool             { t := true; return &t }
func no() *bool              { f := false; return &f }

func category(name, slug string, level int, parent *models.Category) *models.Category {
	c := &models.Category{ID: primitive.NewObjectID(), Name: name, Slug: slug, Level: level}
	if parent != nil {
		pid := parent.ID
		c.ParentID = &pid
	}
	return c
}

// fixture is a small catalog mixing normalized and legacy products.
type fixture struct {
	store *repository.MemoryStore

	skincare, face, serums, masks, toners    *models.Category
	nails, tools, pedicure, manicure         *models.Category
	spa, iceGlobes                           *models.Category
	vitaminC, clayMask, hiddenSerum          *models.Product
	pumice, footFile, globeSmall, globeLarge *models.Product
	oldStock                                 *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: repository.NewMemoryStore()}

	f.skincare = category("Skincare", "skincare", 0, nil)
	f.face = category("Face", "skincare-face", 1, f.skincare)
	f.serums = category("Serums", "skincare-face-serums", 2, f.face)
	f.masks = category("Masks", "skincare-face-masks", 2, f.face)
	f.toners = category("Toners", "skincare-face-toners", 2, f.face)
	f.nails = category("Nail Products", "nail-products", 0, nil)
	f.tools = category("Tools & Equipment", "nail-products-tools-equipment", 1, f.nails)
	f.pedicure = category("Pedicure Tools", "nail-products-tools-equipment-pedicure-tools", 2, f.tools)
	f.manicure = category("Manicure Tools", "nail-products-tools-equipment-manicure-tools", 2, f.tools)
	f.spa = category("Spa", "spa", 0, nil)
	f.iceGlobes = category("Ice Globes", "spa-ice-globes", 1, f.spa)
	require.NoError(t, f.store.InsertCategories(
		f.skincare, f.face, f.serums, f.masks, f.toners,
		f.nails, f.tools, f.pedicure, f.manicure,
		f.spa, f.iceGlobes,
	))

	serumsID, masksID := f.serums.ID, f.masks.ID
	f.vitaminC = &models.Product{Name: "Vitamin C Serum", Description: "Brightening serum", IsActive: yes(),
		Prices: &models.Prices{Retail: f64(30), Dealer: f64(18)}, Category: &serumsID, Images: []string{"products/vitc.jpg"}}
	f.clayMask = &models.Product{Name: "Clay Mask", Description: "Deep cleanse",
		Prices: &models.Prices{Retail: f64(20)}, Category: &masksID}
	f.hiddenSerum = &models.Product{Name: "Hidden Serum", IsActive: no(),
		Prices: &models.Prices{Retail: f64(50)}, Category: &serumsID}
	f.pumice = &models.Product{Name: "Pumice Stone", Price: f64(8),
		CategoryToken: "nail-products", SubcategoryToken: "tools-equipment", SecondSubcategoryToken: f.pedicure.ID.Hex()}
	f.footFile = &models.Product{Name: "Foot File", Price: f64(12), Prices: &models.Prices{Retail: f64(99)},
		SecondSubCategoryToken: f.pedicure.ID.Hex()}
	f.globeSmall = &models.Product{Name: "Ice Globes", Price: f64(25), CategoryToken: f.spa.ID.Hex(), SubcategoryToken: f.iceGlobes.ID.Hex()}
	f.globeLarge = &models.Product{Name: "Ice Globes", Price: f64(40), CategoryToken: f.spa.ID.Hex(), SubcategoryToken: f.iceGlobes.ID.Hex()}
	f.oldStock = &models.Product{Name: "Old Stock Item", Price: f64(5), CategoryToken: "Legacy-Brand"}
	require.NoError(t, f.store.InsertProducts(
		f.vitaminC, f.clayMask, f.hiddenSerum,
		f.pumice, f.footFile, f.globeSmall, f.globeLarge, f.oldStock,
	))
	return f
}

func (f *fixture) resolver(opts Options) *Resolver {
	return NewResolver(f.store.Categories(), f.store.Products(), opts)
}

func (f *fixture) tree() *Tree {
	return NewTree(f.store.Categories(), time.Second)
}

func names(products []models.NormalizedProduct) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Name)
	}
	return out
}

func warningCodes(ws []Warning) []WarningCode {
	out := make([]WarningCode, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// recordingSink keeps every signal it receives.
type recordingSink struct {
	mu      sync.Mutex
	signals []Signal
}

func (r *recordingSink) Signal(_ context.Context, s Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, s)
}

func (r *recordingSink) kinds() []SignalKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SignalKind, 0, len(r.signals))
	for _, s := range r.signals {
		out = append(out, s.Kind)
	}
	return out
}

// countingCategories counts child queries issued against the store.
type countingCategories struct {
	repository.CategoryRepo
	childQueries atomic.Int32
}

func (c *countingCategories) Find(ctx context.Context, filter bson.M, limit int) ([]*models.Category, error) {
	if _, ok := filter["parent"]; ok {
		c.childQueries.Add(1)
	}
	return c.CategoryRepo.Find(ctx, filter, limit)
}

// stalledProducts blocks every count until the context ends.
type stalledProducts struct {
	repository.ProductRepo
}

func (stalledProducts) Count(ctx context.Context, _ bson.M) (int64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

// brokenCategories fails every query.
type brokenCategories struct {
	repository.CategoryRepo
	err error
}

func (b brokenCategories) Find(context.Context, bson.M, int) ([]*models.Category, error) {
	return nil, b.err
}

func (b brokenCategories) FindByID(context.Context, primitive.ObjectID) (*models.Category, error) {
	return nil, b.err
}

// branches holds two roots whose subcategories share a slug suffix. Hair is
// stored first so storage order favours the wrong branch.
type branches struct {
	store                  *repository.MemoryStore
	hair, hairTools        *models.Category
	nails, nailTools       *models.Category
	hairDryer, nailClipper *models.Product
}

func newBranches(t *testing.T) *branches {
	t.Helper()
	b := &branches{store: repository.NewMemoryStore()}
	b.hair = category("Hair Products", "hair-products", 0, nil)
	b.hairTools = category("Tools & Equipment", "hair-products-tools-equipment", 1, b.hair)
	b.nails = category("Nail Products", "nail-products", 0, nil)
	b.nailTools = category("Tools & Equipment", "nail-products-tools-equipment", 1, b.nails)
	require.NoError(t, b.store.InsertCategories(b.hair, b.hairTools, b.nails, b.nailTools))

	hairID, nailID := b.hairTools.ID, b.nailTools.ID
	b.hairDryer = &models.Product{Name: "Hair Dryer", Prices: &models.Prices{Retail: f64(60)}, Category: &hairID}
	b.nailClipper = &models.Product{Name: "Nail Clipper", Prices: &models.Prices{Retail: f64(4)}, Category: &nailID}
	require.NoError(t, b.store.InsertProducts(b.hairDryer, b.nailClipper))
	return b
}

func (b *branches) tree() *Tree {
	return NewTree(b.store.Categories(), time.Second)
}
