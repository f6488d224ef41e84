package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Category is a node of the catalog tree. Parent is nil for roots.
type Category struct {
	ID       primitive.ObjectID  `json:"_id,omitempty" bson:"_id,omitempty"`
	Name     string              `json:"name" bson:"name"`
	Slug     string              `json:"slug" bson:"slug"`
	ParentID *primitive.ObjectID `json:"parent,omitempty" bson:"parent,omitempty"`
	Level    int                 `json:"level" bson:"level"`
}

// IsRoot reports whether the category has no parent reference.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil || c.ParentID.IsZero()
}

// CategoryNode is the tree-shaped view served by GET /categories.
type CategoryNode struct {
	Category
	Children []*CategoryNode `json:"children,omitempty"`
}
