package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMatch(t *testing.T) {
	leaf := primitive.NewObjectID()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	doc := bson.M{
		"name":                "Foot File",
		"price":               int32(12),
		"prices":              bson.M{"retail": 99.0},
		"secondSubCategoryId": leaf,
		"categoryId":          "Nail-Products",
		"tags":                bson.A{"pedicure", "tools"},
		"createdAt":           primitive.NewDateTimeFromTime(created),
	}

	tests := []struct {
		name   string
		filter bson.M
		want   bool
	}{
		{"empty filter", bson.M{}, true},
		{"implicit equality", bson.M{"name": "Foot File"}, true},
		{"int and float compare equal", bson.M{"price": 12.0}, true},
		{"dotted path", bson.M{"prices.retail": bson.M{"$gte": 50}}, true},
		{"range miss", bson.M{"price": bson.M{"$gte": 13, "$lte": 20}}, false},
		{"object id equals its hex", bson.M{"secondSubCategoryId": leaf.Hex()}, true},
		{"hex in list", bson.M{"secondSubCategoryId": bson.M{"$in": []interface{}{"x", leaf.Hex()}}}, true},
		{"regex in list", bson.M{"categoryId": bson.M{"$in": []interface{}{primitive.Regex{Pattern: "^nail-products$", Options: "i"}}}}, true},
		{"regex is case sensitive without option", bson.M{"categoryId": primitive.Regex{Pattern: "^nail"}}, false},
		{"regex operator with options", bson.M{"name": bson.M{"$regex": "file", "$options": "i"}}, true},
		{"array element equality", bson.M{"tags": "tools"}, true},
		{"missing field is not equal", bson.M{"category": leaf}, false},
		{"missing field matches nil", bson.M{"category": nil}, true},
		{"exists false", bson.M{"isActive": bson.M{"$exists": false}}, true},
		{"ne on missing", bson.M{"isActive": bson.M{"$ne": false}}, true},
		{"or", bson.M{"$or": []bson.M{{"isActive": true}, {"isActive": bson.M{"$exists": false}}}}, true},
		{"and", bson.M{"$and": []bson.M{{"name": "Foot File"}, {"price": bson.M{"$lt": 10}}}}, false},
		{"nor", bson.M{"$nor": []bson.M{{"name": "Pumice"}}}, true},
		{"nin", bson.M{"name": bson.M{"$nin": []string{"Foot File"}}}, false},
		{"time comparison", bson.M{"createdAt": bson.M{"$gt": created.Add(-time.Hour)}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Match(doc, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatch_Errors(t *testing.T) {
	doc := bson.M{"name": "x"}

	_, err := Match(doc, bson.M{"$where": "1"})
	assert.Error(t, err)

	_, err = Match(doc, bson.M{"name": bson.M{"$size": 1}})
	assert.Error(t, err)

	_, err = Match(doc, bson.M{"name": primitive.Regex{Pattern: "("}})
	assert.Error(t, err)

	_, err = Match(doc, bson.M{"$or": "nope"})
	assert.Error(t, err)
}
