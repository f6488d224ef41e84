package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Field names shared by the predicate builder and the stores.
const (
	FieldID          = "_id"
	FieldName        = "name"
	FieldDescription = "description"
	FieldActive      = "isActive"
	FieldPrice       = "price"
	FieldRetailPrice = "prices.retail"

	// Legacy flat category tokens.
	FieldLegacyRoot     = "categoryId"
	FieldLegacySub      = "subcategoryId"
	FieldLegacyLeaf     = "secondSubcategoryId"
	FieldLegacyLeafAlt  = "secondSubCategoryId"
	FieldNormalizedLeaf = "category"
)

// Prices is the normalized pricing pair.
type Prices struct {
	Retail *float64 `json:"retail,omitempty" bson:"retail,omitempty"`
	Dealer *float64 `json:"dealer,omitempty" bson:"dealer,omitempty"`
}

// Product is the stored product document. It may carry the legacy flat
// category fields, the normalized reference, or both.
type Product struct {
	ID          primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Stock       int                `json:"stock" bson:"stock"`
	IsActive    *bool              `json:"isActive,omitempty" bson:"isActive,omitempty"`
	Price       *float64           `json:"price,omitempty" bson:"price,omitempty"`
	Prices      *Prices            `json:"prices,omitempty" bson:"prices,omitempty"`
	Cost        *float64           `json:"cost,omitempty" bson:"cost,omitempty"`
	Images      []string           `json:"images,omitempty" bson:"images,omitempty"`
	SKU         string             `json:"sku,omitempty" bson:"sku,omitempty"`

	CategoryToken          string `json:"categoryId,omitempty" bson:"categoryId,omitempty"`
	SubcategoryToken       string `json:"subcategoryId,omitempty" bson:"subcategoryId,omitempty"`
	SecondSubcategoryToken string `json:"secondSubcategoryId,omitempty" bson:"secondSubcategoryId,omitempty"`
	SecondSubCategoryToken string `json:"secondSubCategoryId,omitempty" bson:"secondSubCategoryId,omitempty"`

	Category *primitive.ObjectID `json:"category,omitempty" bson:"category,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// LeafToken returns whichever spelling of the legacy leaf field is set.
func (p *Product) LeafToken() string {
	if p.SecondSubcategoryToken != "" {
		return p.SecondSubcategoryToken
	}
	return p.SecondSubCategoryToken
}

// NormalizedProduct is the single output shape produced for every stored
// representation.
type NormalizedProduct struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	Price              float64   `json:"price"`
	Cost               *float64  `json:"cost,omitempty"`
	Images             []string  `json:"images"`
	ResolvedCategoryID string    `json:"resolvedCategoryId"`
	Stock              int       `json:"stock"`
	SKU                string    `json:"sku"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}
