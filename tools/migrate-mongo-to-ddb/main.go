package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/yashrajoria/catalog-service/database"
	aws_pkg "github.com/yashrajoria/catalog-service/pkg/aws"
	"github.com/yashrajoria/catalog-service/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const batchSize = 500

// Copies the categories and products collections into DynamoDB as raw
// documents, so legacy and normalized product shapes survive unchanged.
func main() {
	var mongoURI, dbName, productTable, categoryTable string
	var dryRun bool
	flag.StringVar(&mongoURI, "mongo", os.Getenv("MONGO_DB_URL"), "MongoDB URI")
	flag.StringVar(&dbName, "db", os.Getenv("MONGO_DB_NAME"), "MongoDB database name")
	flag.StringVar(&productTable, "products-table", os.Getenv("DDB_TABLE_PRODUCTS"), "DynamoDB products table")
	flag.StringVar(&categoryTable, "categories-table", os.Getenv("DDB_TABLE_CATEGORIES"), "DynamoDB categories table")
	flag.BoolVar(&dryRun, "dry-run", false, "read and convert without writing")
	flag.Parse()

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	if mongoURI == "" || dbName == "" {
		log.Fatal("MONGO_DB_URL and MONGO_DB_NAME must be set or provided via flags")
	}
	if productTable == "" {
		productTable = "Products"
	}
	if categoryTable == "" {
		categoryTable = "Categories"
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, mongoURI, dbName)
	if err != nil {
		log.Fatal("mongo connect", zap.Error(err))
	}
	defer db.Close()

	awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
	if err != nil {
		log.Fatal("aws config", zap.Error(err))
	}
	store := repository.NewDynamoStore(aws_pkg.NewDynamoClient(awsCfg), productTable, categoryTable)

	total := 0
	for _, job := range []struct{ collection, table string }{
		{"categories", categoryTable},
		{"products", productTable},
	} {
		n, err := copyCollection(ctx, db, store, job.collection, job.table, dryRun, log)
		if err != nil {
			log.Fatal("migration failed", zap.String("collection", job.collection), zap.Int("migrated", n), zap.Error(err))
		}
		log.Info("collection migrated", zap.String("collection", job.collection), zap.String("table", job.table), zap.Int("count", n))
		total += n
	}
	fmt.Printf("Migration complete. migrated=%d dry_run=%t\n", total, dryRun)
}

func copyCollection(ctx context.Context, db *database.Mongo, store *repository.DynamoStore, collection, table string, dryRun bool, log *zap.Logger) (int, error) {
	size := int32(batchSize)
	cur, err := db.DB.Collection(collection).Find(ctx, bson.M{}, options.Find().SetBatchSize(size))
	if err != nil {
		return 0, fmt.Errorf("mongo find: %w", err)
	}
	defer cur.Close(ctx)

	count := 0
	batch := make([]bson.M, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if dryRun {
			for _, doc := range batch {
				if _, err := repository.ToDynamoItem(doc); err != nil {
					return err
				}
			}
		} else if err := store.PutDocuments(ctx, table, batch); err != nil {
			return err
		}
		count += len(batch)
		log.Info("migrated batch", zap.String("collection", collection), zap.Int("total", count))
		batch = batch[:0]
		return nil
	}

	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			log.Warn("decode error", zap.String("collection", collection), zap.Error(err))
			continue
		}
		batch = append(batch, doc)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return count, err
			}
		}
	}
	if err := cur.Err(); err != nil {
		return count, fmt.Errorf("cursor error: %w", err)
	}
	return count, flush()
}
