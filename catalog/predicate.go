package catalog

import (
	"regexp"
	"strings"

	"github.com/yashrajoria/catalog-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// legacyFields returns the flat product fields that carry a token for a
// category at the given tree level.
func legacyFields(level int) []string {
	switch level {
	case 0:
		return []string{models.FieldLegacyRoot}
	case 1:
		return []string{models.FieldLegacySub}
	}
	return []string{models.FieldLegacyLeaf, models.FieldLegacyLeafAlt}
}

func depthLevel(d Depth) int {
	switch d {
	case DepthRoot:
		return 0
	case DepthSub:
		return 1
	}
	return 2
}

// NormalizedFragment matches products whose normalized reference is one of
// categories. It is skipped when categories is empty.
func NormalizedFragment(kind FragmentKind, categories []*models.Category) Fragment {
	if len(categories) == 0 {
		return Fragment{Kind: kind}
	}
	return Fragment{Kind: kind, Filter: bson.M{models.FieldNormalizedLeaf: bson.M{"$in": idsOf(categories)}}}
}

// LegacyIDFragment matches products whose flat fields hold the id of any of
// categories, stored either as a hex string or as an ObjectID.
func LegacyIDFragment(categories []*models.Category) Fragment {
	g := newFieldGroup()
	for _, c := range categories {
		for _, f := range legacyFields(c.Level) {
			g.add(f, c.ID.Hex(), c.ID)
		}
	}
	return Fragment{Kind: KindLegacyID, Filter: g.filter()}
}

// LegacySlugFragment matches products whose flat fields hold a slug variant
// of any of categories. parents supplies slugs for the prefix strip and may
// include ancestors outside categories.
func LegacySlugFragment(categories []*models.Category, parents map[primitive.ObjectID]*models.Category) Fragment {
	g := newFieldGroup()
	for _, c := range categories {
		var parentSlug string
		if !c.IsRoot() {
			if p, ok := parents[*c.ParentID]; ok {
				parentSlug = p.Slug
			}
		}
		for _, v := range SlugVariants(c.Slug, parentSlug) {
			for _, f := range legacyFields(c.Level) {
				g.add(f, exactRegex(v))
			}
		}
	}
	return Fragment{Kind: KindLegacySlug, Filter: g.filter()}
}

// LiteralToken is a raw request token at a known depth.
type LiteralToken struct {
	Depth Depth
	Token string
}

// LegacyLiteralFragment matches products whose flat fields equal the raw
// tokens, ignoring case.
func LegacyLiteralFragment(tokens []LiteralToken) Fragment {
	g := newFieldGroup()
	for _, t := range tokens {
		token := strings.TrimSpace(t.Token)
		if token == "" {
			continue
		}
		for _, f := range legacyFields(depthLevel(t.Depth)) {
			g.add(f, exactRegex(token))
		}
	}
	return Fragment{Kind: KindLegacyLiteral, Filter: g.filter()}
}

// SlugVariants lists the spellings a legacy record may use for slug: the
// full slug, the slug with its parent's prefix stripped, and its trailing
// two and three hyphen segments.
func SlugVariants(slug, parentSlug string) []string {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}

	add(slug)
	if parentSlug != "" {
		add(strings.TrimPrefix(slug, strings.ToLower(parentSlug)+"-"))
	}
	segments := strings.Split(slug, "-")
	for _, n := range []int{3, 2} {
		if len(segments) > n {
			add(strings.Join(segments[len(segments)-n:], "-"))
		}
	}
	return out
}

func exactRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}

// fieldGroup collects $in values per field, keeping first-seen field order.
type fieldGroup struct {
	order  []string
	values map[string][]interface{}
}

func newFieldGroup() *fieldGroup {
	return &fieldGroup{values: map[string][]interface{}{}}
}

func (g *fieldGroup) add(field string, vals ...interface{}) {
	if _, ok := g.values[field]; !ok {
		g.order = append(g.order, field)
	}
	g.values[field] = append(g.values[field], vals...)
}

func (g *fieldGroup) filter() bson.M {
	if len(g.order) == 0 {
		return nil
	}
	clauses := make([]bson.M, 0, len(g.order))
	for _, f := range g.order {
		clauses = append(clauses, bson.M{f: bson.M{"$in": g.values[f]}})
	}
	if len(clauses) == 1 {
		return clauses[0]
	}
	return bson.M{"$or": clauses}
}

// PredicateBuilder composes the final product query. Clauses that were
// never set are omitted, so an empty builder matches every visible record.
type PredicateBuilder struct {
	clauses []bson.M
}

func NewPredicateBuilder() *PredicateBuilder {
	return &PredicateBuilder{}
}

func (b *PredicateBuilder) WithCategory(filter bson.M) *PredicateBuilder {
	if len(filter) > 0 {
		b.clauses = append(b.clauses, filter)
	}
	return b
}

// WithSearch matches term as a literal, case-insensitive substring of the
// name or the description.
func (b *PredicateBuilder) WithSearch(term string) *PredicateBuilder {
	term = strings.TrimSpace(term)
	if term == "" {
		return b
	}
	pattern := bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}
	b.clauses = append(b.clauses, bson.M{"$or": []bson.M{
		{models.FieldName: pattern},
		{models.FieldDescription: pattern},
	}})
	return b
}

func (b *PredicateBuilder) WithPriceRange(field string, min, max *float64) *PredicateBuilder {
	bounds := bson.M{}
	if min != nil {
		bounds["$gte"] = *min
	}
	if max != nil {
		bounds["$lte"] = *max
	}
	if len(bounds) > 0 {
		b.clauses = append(b.clauses, bson.M{field: bounds})
	}
	return b
}

// WithVisibility keeps active records and records with no active flag.
func (b *PredicateBuilder) WithVisibility() *PredicateBuilder {
	b.clauses = append(b.clauses, bson.M{"$or": []bson.M{
		{models.FieldActive: true},
		{models.FieldActive: bson.M{"$exists": false}},
	}})
	return b
}

func (b *PredicateBuilder) Build() bson.M {
	switch len(b.clauses) {
	case 0:
		return bson.M{}
	case 1:
		return b.clauses[0]
	}
	return bson.M{"$and": b.clauses}
}
