package repository

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDynamoItemConversion(t *testing.T) {
	id, parent, legacy := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	doc := bson.M{
		"_id":                 id,
		"parent":              parent,
		"name":                "Pedicure Tools",
		"level":               int32(2),
		"prices":              bson.M{"retail": 30.0},
		"secondSubCategoryId": legacy,
		"images":              bson.A{"a.jpg"},
		"createdAt":           primitive.NewDateTimeFromTime(created),
	}

	item, err := ToDynamoItem(doc)
	require.NoError(t, err)
	idAttr, ok := item["_id"].(*types.AttributeValueMemberS)
	require.True(t, ok, "ids are stored as strings")
	assert.Equal(t, id.Hex(), idAttr.Value)

	back, err := FromDynamoItem(item)
	require.NoError(t, err)
	assert.Equal(t, id, back["_id"])
	assert.Equal(t, parent, back["parent"])
	assert.Equal(t, legacy.Hex(), back["secondSubCategoryId"], "legacy tokens stay strings")
	assert.True(t, created.Equal(back["createdAt"].(time.Time)))

	ok, err = Match(back, bson.M{"secondSubCategoryId": legacy, "prices.retail": bson.M{"$gte": 30}})
	require.NoError(t, err)
	assert.True(t, ok, "converted items still satisfy catalog predicates")
}
