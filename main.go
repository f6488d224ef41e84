package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yashrajoria/catalog-service/apperrors"
	"github.com/yashrajoria/catalog-service/catalog"
	"github.com/yashrajoria/catalog-service/controllers"
	"github.com/yashrajoria/catalog-service/database"
	"github.com/yashrajoria/catalog-service/logger"
	"github.com/yashrajoria/catalog-service/middleware"
	aws_pkg "github.com/yashrajoria/catalog-service/pkg/aws"
	"github.com/yashrajoria/catalog-service/repository"
	"github.com/yashrajoria/catalog-service/routes"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const serviceName = "catalog-service"

func main() {
	// Load .env file (optional, falls back to system env)
	_ = godotenv.Load()

	// Bootstrap logger for configuration loading; replaced below.
	logger.Initialize(os.Getenv("APP_ENV"))
	zap.ReplaceGlobals(logger.Log)

	cfg, err := LoadConfig()
	if err != nil {
		logger.Log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()

	// AWS is optional for the mongo and memory drivers.
	awsCfg, awsErr := aws_pkg.LoadAWSConfig(ctx)

	var cwWriter *aws_pkg.CloudWatchLogsClient
	if cfg.CloudWatchEnabled && awsErr == nil {
		if w, err := aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, serviceName); err == nil {
			cwWriter = w
		}
	}
	if cwWriter != nil {
		logger.InitializeWithWriter(cfg.AppEnv, cwWriter)
	} else {
		logger.Initialize(cfg.AppEnv)
	}
	defer logger.Log.Sync()
	zap.ReplaceGlobals(logger.Log)

	if awsErr != nil {
		zap.L().Warn("AWS config unavailable, AWS integrations disabled", zap.Error(awsErr))
	}

	// --- 1. Storage ---
	categories, products, closeStore, err := openStore(ctx, cfg, awsCfg, awsErr)
	if err != nil {
		zap.L().Fatal("Failed to open catalog store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	redisClient := openRedis(cfg.RedisURL)

	// --- 2. Engine ---
	var metrics *aws_pkg.MetricsClient
	if awsErr == nil {
		metrics = aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchEnabled, zap.L())
	}

	sinks := catalog.MultiSink{catalog.LogSink{Logger: zap.L()}}
	if cfg.DataQualityTopicArn != "" && awsErr == nil {
		sinks = append(sinks, catalog.PublishSink{
			Publisher: aws_pkg.NewSNSClient(awsCfg),
			TopicArn:  cfg.DataQualityTopicArn,
			Logger:    zap.L(),
		})
	}

	opts := cfg.Catalog
	opts.Logger = zap.L()
	opts.Signals = sinks
	if metrics.IsEnabled() {
		opts.Metrics = metrics
	}
	resolver := catalog.NewResolver(categories, products, opts)

	// --- 3. Controllers ---
	productOpts := []controllers.Option{controllers.WithConfig(controllers.Config{CacheTTL: cfg.CacheTTL})}
	if metrics.IsEnabled() {
		productOpts = append(productOpts, controllers.WithCacheObserver(metrics))
	}
	productController := controllers.NewProductController(resolver, redisClient, productOpts...)
	categoryController := controllers.NewCategoryController(resolver)
	var cacheController *controllers.CacheController
	if redisClient != nil {
		cacheController = controllers.NewCacheController(productController.Cache())
	}

	// --- 4. HTTP Server & Middleware ---
	gin.SetMode(ginMode(cfg.AppEnv))
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(zap.L()))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	if metrics.IsEnabled() {
		r.Use(middleware.Metrics(metrics, serviceName))
	}
	r.Use(apperrors.ErrorMiddleware())

	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	routes.RegisterRoutes(r, productController, categoryController, cacheController)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "store": cfg.StoreDriver})
	})

	// --- 5. Graceful Shutdown ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		zap.L().Info("Catalog Service starting", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down Catalog Service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Server forced to shutdown", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			zap.L().Error("Failed to close Redis", zap.Error(err))
		}
	}

	zap.L().Info("Catalog Service stopped gracefully")
}

// openStore returns the repositories for the configured driver and a func
// releasing their resources.
func openStore(ctx context.Context, cfg *Config, awsCfg sdkaws.Config, awsErr error) (repository.CategoryRepo, repository.ProductRepo, func(), error) {
	switch cfg.StoreDriver {
	case StoreDynamo:
		if awsErr != nil {
			return nil, nil, nil, awsErr
		}
		store := repository.NewDynamoStore(aws_pkg.NewDynamoClient(awsCfg), cfg.DynamoProductTable, cfg.DynamoCategoryTable)
		return store.Categories(), store.Products(), func() {}, nil

	case StoreMemory:
		store := repository.NewMemoryStore()
		if err := store.LoadSeedFile(cfg.SeedFile); err != nil {
			return nil, nil, nil, err
		}
		return store.Categories(), store.Products(), func() {}, nil
	}

	db, err := database.Connect(ctx, cfg.MongoURL, cfg.MongoDBName)
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() {
		if err := db.Close(); err != nil {
			zap.L().Error("Failed to close MongoDB", zap.Error(err))
		}
	}
	return repository.NewCategoryRepository(db.DB), repository.NewProductRepository(db.DB), closeFn, nil
}

// openRedis returns nil when REDIS_URL is unset, which disables the cache.
func openRedis(redisURL string) *redis.Client {
	if redisURL == "" {
		zap.L().Info("REDIS_URL not set, response cache disabled")
		return nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		zap.L().Warn("Failed to parse REDIS_URL, falling back to default", zap.Error(err))
		redisOpts = &redis.Options{Addr: "redis:6379", DB: 0}
	}
	return redis.NewClient(redisOpts)
}

func ginMode(env string) string {
	if env == "production" {
		return gin.ReleaseMode
	}
	return gin.DebugMode
}
