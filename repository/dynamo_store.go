package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yashrajoria/catalog-service/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// objectIDFields and timeFields are stored as strings in DynamoDB and
// restored to their bson types on read.
var (
	objectIDFields = []string{"_id", "parent", "category"}
	timeFields     = []string{"createdAt", "updatedAt"}
)

// DynamoStore serves catalog reads from two DynamoDB tables keyed by `_id`.
// DynamoDB cannot evaluate the catalog's query documents, so Find and Count
// scan the table and apply Match to each item.
type DynamoStore struct {
	client        *dynamodb.Client
	productTable  string
	categoryTable string
}

func NewDynamoStore(client *dynamodb.Client, productTable, categoryTable string) *DynamoStore {
	return &DynamoStore{client: client, productTable: productTable, categoryTable: categoryTable}
}

func (d *DynamoStore) Products() ProductRepo { return dynamoProducts{d} }

func (d *DynamoStore) Categories() CategoryRepo { return dynamoCategories{d} }

func (d *DynamoStore) scan(ctx context.Context, table string, filter bson.M, fn func(bson.M) (bool, error)) error {
	paginator := dynamodb.NewScanPaginator(d.client, &dynamodb.ScanInput{TableName: &table})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("scan page failed: %w", err)
		}
		for _, item := range page.Items {
			doc, err := FromDynamoItem(item)
			if err != nil {
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
	}
	return nil
}

// PutDocuments writes documents with BatchWriteItem in chunks of 25,
// retrying unprocessed items a few times.
func (d *DynamoStore) PutDocuments(ctx context.Context, table string, docs []bson.M) error {
	const chunkSize = 25
	for i := 0; i < len(docs); i += chunkSize {
		end := i + chunkSize
		if end > len(docs) {
			end = len(docs)
		}
		writeReqs := make([]types.WriteRequest, 0, end-i)
		for _, doc := range docs[i:end] {
			item, err := ToDynamoItem(doc)
			if err != nil {
				return err
			}
			writeReqs = append(writeReqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		}
		req := &dynamodb.BatchWriteItemInput{RequestItems: map[string][]types.WriteRequest{table: writeReqs}}
		attempts := 0
		for {
			out, err := d.client.BatchWriteItem(ctx, req)
			if err != nil {
				return fmt.Errorf("batch write failed: %w", err)
			}
			unp, ok := out.UnprocessedItems[table]
			if !ok || len(unp) == 0 {
				break
			}
			req.RequestItems[table] = unp
			attempts++
			if attempts >= 3 {
				return fmt.Errorf("batch write had unprocessed items after retries")
			}
			time.Sleep(time.Duration(attempts*300) * time.Millisecond)
		}
	}
	return nil
}

// ToDynamoItem converts a bson document into a DynamoDB item, storing
// ObjectIDs as hex strings and timestamps as RFC3339.
func ToDynamoItem(doc bson.M) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(toPlain(doc))
	if err != nil {
		return nil, fmt.Errorf("marshal item: %w", err)
	}
	return item, nil
}

// FromDynamoItem is the inverse of ToDynamoItem.
func FromDynamoItem(item map[string]types.AttributeValue) (bson.M, error) {
	var raw map[string]interface{}
	if err := attributevalue.UnmarshalMap(item, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	doc := bson.M(raw)
	for _, f := range objectIDFields {
		if s, ok := doc[f].(string); ok {
			if oid, err := primitive.ObjectIDFromHex(s); err == nil {
				doc[f] = oid
			}
		}
	}
	for _, f := range timeFields {
		if s, ok := doc[f].(string); ok {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				doc[f] = t
			}
		}
	}
	return doc, nil
}

func toPlain(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case bson.M:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = toPlain(e)
		}
		return out
	case map[string]interface{}:
		return toPlain(bson.M(t))
	case bson.D:
		out := make(map[string]interface{}, len(t))
		for _, e := range t {
			out[e.Key] = toPlain(e.Value)
		}
		return out
	case bson.A:
		return toPlain([]interface{}(t))
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = toPlain(e)
		}
		return out
	}
	return v
}

type dynamoProducts struct{ d *DynamoStore }

func (p dynamoProducts) Find(ctx context.Context, filter bson.M, limit, skip int) ([]*models.Product, error) {
	var products []*models.Product
	seen := 0
	err := p.d.scan(ctx, p.d.productTable, filter, func(doc bson.M) (bool, error) {
		if seen < skip {
			seen++
			return true, nil
		}
		var product models.Product
		if err := fromDoc(doc, &product); err != nil {
			return false, fmt.Errorf("decode product: %w", err)
		}
		products = append(products, &product)
		return limit <= 0 || len(products) < limit, nil
	})
	return products, err
}

func (p dynamoProducts) Count(ctx context.Context, filter bson.M) (int64, error) {
	var total int64
	err := p.d.scan(ctx, p.d.productTable, filter, func(bson.M) (bool, error) {
		total++
		return true, nil
	})
	return total, err
}

func (p dynamoProducts) FindOne(ctx context.Context, filter bson.M) (*models.Product, error) {
	products, err := p.Find(ctx, filter, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNotFound
	}
	return products[0], nil
}

type dynamoCategories struct{ d *DynamoStore }

func (c dynamoCategories) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"_id": id.Hex()})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	out, err := c.d.client.GetItem(ctx, &dynamodb.GetItemInput{TableName: &c.d.categoryTable, Key: key})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	doc, err := FromDynamoItem(out.Item)
	if err != nil {
		return nil, err
	}
	var category models.Category
	if err := fromDoc(doc, &category); err != nil {
		return nil, fmt.Errorf("decode category: %w", err)
	}
	return &category, nil
}

func (c dynamoCategories) Find(ctx context.Context, filter bson.M, limit int) ([]*models.Category, error) {
	var categories []*models.Category
	err := c.d.scan(ctx, c.d.categoryTable, filter, func(doc bson.M) (bool, error) {
		var category models.Category
		if err := fromDoc(doc, &category); err != nil {
			return false, fmt.Errorf("decode category: %w", err)
		}
		categories = append(categories, &category)
		return limit <= 0 || len(categories) < limit, nil
	})
	return categories, err
}

func (c dynamoCategories) FindAll(ctx context.Context) ([]*models.Category, error) {
	return c.Find(ctx, bson.M{}, 0)
}
