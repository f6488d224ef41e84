package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yashrajoria/catalog-service/catalog"
	aws_pkg "github.com/yashrajoria/catalog-service/pkg/aws"

	"go.uber.org/zap"
)

const (
	StoreMongo  = "mongo"
	StoreDynamo = "dynamodb"
	StoreMemory = "memory"
)

// Config holds all environment variables for the catalog service.
type Config struct {
	Port   string
	AppEnv string

	StoreDriver         string
	MongoURL            string
	MongoDBName         string
	DynamoProductTable  string
	DynamoCategoryTable string
	SeedFile            string

	RedisURL string
	CacheTTL time.Duration

	Catalog catalog.Options

	DataQualityTopicArn string
	CloudWatchEnabled   bool

	RateLimitRPS   float64
	RateLimitBurst int
}

// LoadConfig loads environment variables into Config and validates them.
// If AWS_USE_SECRETS=true the Mongo URL is read from Secrets Manager, falling
// back to the environment on failure.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:                envOr("PORT", "8082"),
		AppEnv:              envOr("APP_ENV", "development"),
		StoreDriver:         strings.ToLower(envOr("STORE_DRIVER", StoreMongo)),
		MongoURL:            os.Getenv("MONGO_DB_URL"),
		MongoDBName:         envOr("MONGO_DB_NAME", "catalog"),
		DynamoProductTable:  envOr("DDB_TABLE_PRODUCTS", "Products"),
		DynamoCategoryTable: envOr("DDB_TABLE_CATEGORIES", "Categories"),
		SeedFile:            os.Getenv("SEED_FILE"),
		RedisURL:            os.Getenv("REDIS_URL"),
		DataQualityTopicArn: os.Getenv("DATA_QUALITY_TOPIC_ARN"),
		Catalog:             catalog.DefaultOptions(),
	}

	var err error
	if cfg.CacheTTL, err = envDuration("CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.CloudWatchEnabled, err = envBool("CLOUDWATCH_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = envFloat("RATE_LIMIT_RPS", 20); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = envInt("RATE_LIMIT_BURST", 40); err != nil {
		return nil, err
	}

	opts := &cfg.Catalog
	if opts.UnresolvedPolicy, err = catalog.ParseUnresolvedPolicy(os.Getenv("CATALOG_UNRESOLVED_POLICY")); err != nil {
		return nil, fmt.Errorf("CATALOG_UNRESOLVED_POLICY: %w", err)
	}
	if opts.TieBreak, err = catalog.ParseTieBreak(os.Getenv("CATALOG_TIE_BREAK")); err != nil {
		return nil, fmt.Errorf("CATALOG_TIE_BREAK: %w", err)
	}
	if opts.StorageTimeout, err = envDuration("CATALOG_STORAGE_TIMEOUT", opts.StorageTimeout); err != nil {
		return nil, err
	}
	if opts.ProbeConcurrency, err = envInt("CATALOG_PROBE_CONCURRENCY", opts.ProbeConcurrency); err != nil {
		return nil, err
	}
	if opts.ExpandConcurrency, err = envInt("CATALOG_EXPAND_CONCURRENCY", opts.ExpandConcurrency); err != nil {
		return nil, err
	}
	opts.Images = catalog.ImageURLBuilder{
		CDNDomain: os.Getenv("IMAGE_CDN_DOMAIN"),
		Endpoint:  os.Getenv("AWS_S3_ENDPOINT"),
		Bucket:    os.Getenv("AWS_S3_BUCKET"),
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" && cfg.StoreDriver == StoreMongo {
		url, err := mongoURLFromSecrets(context.Background())
		if err != nil {
			zap.L().Warn("Failed to read Mongo URL from Secrets Manager, using MONGO_DB_URL",
				zap.String("secret", aws_pkg.MongoURLSecret), zap.Error(err))
		} else {
			cfg.MongoURL = url
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mongoURLFromSecrets is replaced in tests.
var mongoURLFromSecrets = func(ctx context.Context) (string, error) {
	awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
	if err != nil {
		return "", err
	}
	return aws_pkg.NewCatalogSecrets(awsCfg).MongoURL(ctx)
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreMongo:
		if c.MongoURL == "" {
			return fmt.Errorf("MONGO_DB_URL is required for the %s driver", StoreMongo)
		}
	case StoreDynamo:
	case StoreMemory:
		if c.SeedFile == "" {
			return fmt.Errorf("SEED_FILE is required for the %s driver", StoreMemory)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Catalog.StorageTimeout <= 0 {
		return fmt.Errorf("CATALOG_STORAGE_TIMEOUT must be positive")
	}
	if c.Catalog.ProbeConcurrency < 1 || c.Catalog.ExpandConcurrency < 1 {
		return fmt.Errorf("catalog concurrency must be at least 1")
	}
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
