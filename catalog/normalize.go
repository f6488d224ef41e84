package catalog

import (
	"strings"

	"github.com/yashrajoria/catalog-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ImageURLBuilder expands bare object keys into public URLs. Values that
// already carry a scheme are returned unchanged.
type ImageURLBuilder struct {
	CDNDomain string
	Endpoint  string
	Bucket    string
}

func (b ImageURLBuilder) URL(image string) string {
	image = strings.TrimSpace(image)
	if image == "" || strings.Contains(image, "://") || strings.HasPrefix(image, "//") || strings.HasPrefix(image, "data:") {
		return image
	}
	key := strings.TrimPrefix(image, "/")
	switch {
	case b.CDNDomain != "":
		return "https://" + strings.TrimSuffix(b.CDNDomain, "/") + "/" + key
	case b.Endpoint != "" && b.Bucket != "":
		return strings.TrimSuffix(b.Endpoint, "/") + "/" + b.Bucket + "/" + key
	case b.Bucket != "":
		return "https://" + b.Bucket + ".s3.amazonaws.com/" + key
	}
	return image
}

// CategoryIndex maps lowercased ids and slug variants to category ids so
// legacy tokens can be reported as ids.
type CategoryIndex map[string]string

func NewCategoryIndex(categories []*models.Category, parents map[primitive.ObjectID]*models.Category) CategoryIndex {
	idx := CategoryIndex{}
	for _, c := range categories {
		id := c.ID.Hex()
		idx[id] = id
		var parentSlug string
		if !c.IsRoot() {
			if p, ok := parents[*c.ParentID]; ok {
				parentSlug = p.Slug
			}
		}
		for _, v := range SlugVariants(c.Slug, parentSlug) {
			if _, taken := idx[v]; !taken {
				idx[v] = id
			}
		}
	}
	return idx
}

func (idx CategoryIndex) lookup(token string) string {
	if id, ok := idx[strings.ToLower(strings.TrimSpace(token))]; ok {
		return id
	}
	return token
}

// NormalizeOptions controls Normalize. PriceField selects which stored
// price wins when both representations are present.
type NormalizeOptions struct {
	PriceField string
	Images     ImageURLBuilder
	Index      CategoryIndex
}

// Normalize maps a stored product in either representation to the single
// output shape.
func Normalize(p *models.Product, opts NormalizeOptions) models.NormalizedProduct {
	out := models.NormalizedProduct{
		ID:          p.ID.Hex(),
		Name:        p.Name,
		Description: p.Description,
		Price:       price(p, opts.PriceField),
		Cost:        p.Cost,
		Images:      make([]string, 0, len(p.Images)),
		Stock:       p.Stock,
		SKU:         p.SKU,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if out.Cost == nil && p.Prices != nil {
		out.Cost = p.Prices.Dealer
	}
	for _, img := range p.Images {
		if u := opts.Images.URL(img); u != "" {
			out.Images = append(out.Images, u)
		}
	}
	out.ResolvedCategoryID = resolvedCategoryID(p, opts.Index)
	return out
}

func price(p *models.Product, field string) float64 {
	retail := p.Prices != nil && p.Prices.Retail != nil
	if field == models.FieldRetailPrice && retail {
		return *p.Prices.Retail
	}
	if p.Price != nil {
		return *p.Price
	}
	if retail {
		return *p.Prices.Retail
	}
	return 0
}

func resolvedCategoryID(p *models.Product, idx CategoryIndex) string {
	if p.Category != nil && !p.Category.IsZero() {
		return p.Category.Hex()
	}
	for _, token := range []string{p.LeafToken(), p.SubcategoryToken, p.CategoryToken} {
		if token != "" {
			return idx.lookup(token)
		}
	}
	return ""
}
