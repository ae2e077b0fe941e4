package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/norduniv/swaakon/internal/api"
	"github.com/norduniv/swaakon/internal/compare"
	"github.com/norduniv/swaakon/internal/config"
	"github.com/norduniv/swaakon/internal/embedding"
	"github.com/norduniv/swaakon/internal/explain"
	"github.com/norduniv/swaakon/internal/store"
	"github.com/norduniv/swaakon/internal/vectorstore"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting SWAAKON...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/swaakon.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Initialize PostgreSQL store. The comparison corpus lives here, so
	// an unreachable database is fatal.
	if cfg.Database.Postgres.DSN == "" {
		logger.Fatal("database.postgres.dsn is required")
	}
	db, err := store.New(cfg.Database.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("PostgreSQL unavailable", zap.Error(err))
	}
	defer db.Close()
	if err := db.Migrate(context.Background(), "migrations"); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	// Initialize embedding provider
	embedder := newEmbedder(cfg.Embedding, logger)
	if embedder == nil {
		logger.Fatal("unknown embedding provider", zap.String("provider", cfg.Embedding.Provider))
	}

	// Initialize explanation cache: Redis when configured, in-process LRU otherwise
	var cache explain.Cache
	if cfg.Database.Redis.URL != "" {
		opts, rErr := redis.ParseURL(cfg.Database.Redis.URL)
		if rErr != nil {
			logger.Warn("invalid Redis URL, using in-process cache", zap.Error(rErr))
		} else {
			rdb := redis.NewClient(opts)
			pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			if pErr := rdb.Ping(pingCtx).Err(); pErr != nil {
				logger.Warn("Redis unavailable, using in-process cache", zap.Error(pErr))
			} else {
				cache = explain.NewRedisCache(rdb, 0)
				logger.Info("Explanation cache backed by Redis")
			}
			cancel()
		}
	}
	if cache == nil {
		cache = explain.NewLRUCache(0)
	}

	explainer := explain.NewService(cfg.Explain, cache, logger)

	// Initialize semantic index (optional)
	var index api.SemanticIndex
	if cfg.Database.Qdrant.Host != "" {
		qc, qErr := vectorstore.NewClient(cfg.Database.Qdrant)
		if qErr != nil {
			logger.Warn("Qdrant unavailable, semantic search disabled", zap.Error(qErr))
		} else {
			defer qc.Close()
			index = qc
			logger.Info("Semantic index initialized",
				zap.String("host", cfg.Database.Qdrant.Host))
		}
	}

	comparer := compare.NewService(embedder, db, logger)

	// Build HTTP handler
	handler := api.NewHandler(comparer, explainer, db, index, embedder, logger)

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("SWAAKON listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	logger.Info("SWAAKON stopped")
}

func newEmbedder(cfg embedding.Config, logger *zap.Logger) embedding.Provider {
	switch cfg.Provider {
	case "huggingface", "":
		return embedding.NewHFProvider(cfg, logger)
	case "openai":
		return embedding.NewOpenAIProvider(cfg, logger)
	default:
		return nil
	}
}
