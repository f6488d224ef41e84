package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/yashrajoria/catalog-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFragments_EmptySetIsSkipped(t *testing.T) {
	assert.Nil(t, NormalizedFragment(KindNormalizedLeaves, nil).Filter)
	assert.Nil(t, LegacyIDFragment(nil).Filter)
	assert.Nil(t, LegacySlugFragment(nil, nil).Filter)
	assert.Nil(t, LegacyLiteralFragment([]LiteralToken{{Depth: DepthRoot, Token: "  "}}).Filter)

	filter := NewPredicateBuilder().WithCategory(nil).WithVisibility().Build()
	_, hasAnd := filter["$and"]
	assert.False(t, hasAnd)
	assert.Contains(t, filter, "$or")
}

func TestLegacyIDFragment_GroupsFieldsByLevel(t *testing.T) {
	f := newFixture(t)
	frag := LegacyIDFragment([]*models.Category{f.tools, f.pedicure, f.manicure})

	clauses, ok := frag.Filter["$or"].([]bson.M)
	require.True(t, ok)
	require.Len(t, clauses, 3)
	assert.Contains(t, clauses[0], models.FieldLegacySub)
	assert.Contains(t, clauses[1], models.FieldLegacyLeaf)
	assert.Contains(t, clauses[2], models.FieldLegacyLeafAlt)

	in := clauses[1][models.FieldLegacyLeaf].(bson.M)["$in"].([]interface{})
	assert.Equal(t, []interface{}{f.pedicure.ID.Hex(), f.pedicure.ID, f.manicure.ID.Hex(), f.manicure.ID}, in)
}

func TestSlugVariants(t *testing.T) {
	assert.Equal(t,
		[]string{"nail-products-tools-equipment-pedicure-tools", "pedicure-tools", "equipment-pedicure-tools"},
		SlugVariants("nail-products-tools-equipment-pedicure-tools", "nail-products-tools-equipment"))
	assert.Equal(t, []string{"skincare"}, SlugVariants("Skincare", ""))
	assert.Equal(t, []string{"spa-ice-globes", "ice-globes"}, SlugVariants("spa-ice-globes", "spa"))
	assert.Nil(t, SlugVariants("", "x"))
}

func TestLegacySlugFragment_MatchesStrippedSlug(t *testing.T) {
	f := newFixture(t)
	p := &models.Product{Name: "Toe Separator", Price: f64(3), SecondSubcategoryToken: "Pedicure-Tools"}
	require.NoError(t, f.store.InsertProducts(p))

	parents := map[primitive.ObjectID]*models.Category{f.tools.ID: f.tools, f.nails.ID: f.nails}
	frag := LegacySlugFragment([]*models.Category{f.pedicure}, parents)
	products, err := f.store.Products().Find(context.Background(), frag.Filter, 0, 0)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Toe Separator", products[0].Name)
}

func TestPredicateBuilder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	find := func(filter bson.M) []string {
		products, err := f.store.Products().Find(ctx, filter, 0, 0)
		require.NoError(t, err)
		out := make([]string, 0, len(products))
		for _, p := range products {
			out = append(out, p.Name)
		}
		return out
	}

	visible := NewPredicateBuilder().WithVisibility().Build()
	assert.NotContains(t, find(visible), "Hidden Serum")
	assert.Contains(t, find(visible), "Clay Mask", "absent flag counts as visible")

	search := NewPredicateBuilder().WithSearch("CLEANSE").WithVisibility().Build()
	assert.Equal(t, []string{"Clay Mask"}, find(search))

	meta := NewPredicateBuilder().WithSearch("C+ (").Build()
	assert.Empty(t, find(meta))

	priced := NewPredicateBuilder().WithPriceRange(models.FieldPrice, f64(10), f64(30)).Build()
	assert.ElementsMatch(t, []string{"Foot File", "Ice Globes"}, find(priced))

	open := NewPredicateBuilder().WithPriceRange(models.FieldRetailPrice, nil, f64(25)).Build()
	assert.Equal(t, []string{"Clay Mask"}, find(open))

	assert.Equal(t, bson.M{}, NewPredicateBuilder().WithSearch(" ").WithPriceRange("price", nil, nil).Build())
}

func TestProbe_PriorityAndSkips(t *testing.T) {
	f := newFixture(t)
	probe := NewProbe(f.store.Products(), 2, time.Second)

	fragments := []Fragment{
		LegacyIDFragment([]*models.Category{f.pedicure}),
		NormalizedFragment(KindNormalizedDescendants, []*models.Category{f.pedicure}),
		NormalizedFragment(KindNormalizedLeaves, nil),
	}
	v, err := probe.Run(context.Background(), fragments)
	require.NoError(t, err)
	require.NotNil(t, v.Selected)
	assert.Equal(t, KindLegacyID, v.Selected.Kind)
	assert.Equal(t, []FragmentCount{
		{Kind: KindNormalizedDescendants, Count: 0},
		{Kind: KindNormalizedLeaves, Skipped: true},
		{Kind: KindLegacyID, Count: 2},
	}, v.Counts)
	assert.Equal(t, []string{"normalized-descendants", "legacy-id"}, v.Tried())
}

func TestProbe_AllZero(t *testing.T) {
	f := newFixture(t)
	v, err := NewProbe(f.store.Products(), 2, time.Second).Run(context.Background(), []Fragment{
		NormalizedFragment(KindNormalizedDescendants, []*models.Category{f.toners}),
		LegacyIDFragment([]*models.Category{f.toners}),
	})
	require.NoError(t, err)
	assert.Nil(t, v.Selected)
	assert.Len(t, v.Tried(), 2)
}

func TestProbe_TimeoutIsTransient(t *testing.T) {
	f := newFixture(t)
	probe := NewProbe(stalledProducts{ProductRepo: f.store.Products()}, 2, 20*time.Millisecond)
	_, err := probe.Run(context.Background(), []Fragment{NormalizedFragment(KindNormalizedLeaves, []*models.Category{f.serums})})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageTimeout)
	assert.True(t, IsRetryable(err))
}
