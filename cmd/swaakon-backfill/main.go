package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/norduniv/swaakon/internal/config"
	"github.com/norduniv/swaakon/internal/course"
	"github.com/norduniv/swaakon/internal/embedding"
	"github.com/norduniv/swaakon/internal/store"
	"github.com/norduniv/swaakon/internal/textprep"
	"github.com/norduniv/swaakon/internal/vectorstore"
	"go.uber.org/zap"
)

// backfillWorkers bounds concurrent embedding calls so the provider is
// not hammered when the catalogue is large.
const backfillWorkers = 4

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/swaakon.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.New(cfg.Database.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("PostgreSQL unavailable", zap.Error(err))
	}
	defer db.Close()

	var embedder embedding.Provider
	switch cfg.Embedding.Provider {
	case "huggingface", "":
		embedder = embedding.NewHFProvider(cfg.Embedding, logger)
	case "openai":
		embedder = embedding.NewOpenAIProvider(cfg.Embedding, logger)
	default:
		logger.Fatal("unknown embedding provider", zap.String("provider", cfg.Embedding.Provider))
	}

	// Semantic index is optional; without it the backfill only fills the
	// embedding column.
	var index *vectorstore.Client
	if cfg.Database.Qdrant.Host != "" {
		index, err = vectorstore.NewClient(cfg.Database.Qdrant)
		if err != nil {
			logger.Warn("Qdrant unavailable, skipping index upserts", zap.Error(err))
			index = nil
		} else {
			defer index.Close()
			if err := index.EnsureCollection(ctx, uint64(embedder.Dimension())); err != nil {
				logger.Fatal("ensure collection failed", zap.Error(err))
			}
		}
	}

	pending, err := db.ListMissingEmbedding(ctx)
	if err != nil {
		logger.Fatal("list pending courses failed", zap.Error(err))
	}
	if len(pending) == 0 {
		logger.Info("No courses missing embeddings")
		return
	}
	logger.Info("Backfilling embeddings",
		zap.Int("courses", len(pending)), zap.Int("workers", backfillWorkers))

	jobs := make(chan course.Course)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var done, failed int

	for i := 0; i < backfillWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				if err := backfillCourse(ctx, c, embedder, db, index, cfg.Embedding.Model, logger); err != nil {
					logger.Warn("backfill failed",
						zap.String("course", c.Code), zap.Error(err))
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}
				mu.Lock()
				done++
				mu.Unlock()
			}
		}()
	}

feed:
	for _, c := range pending {
		select {
		case jobs <- c:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	logger.Info("Backfill finished", zap.Int("done", done), zap.Int("failed", failed))
}

func backfillCourse(ctx context.Context, c course.Course, embedder embedding.Provider,
	db *store.Store, index *vectorstore.Client, model string, logger *zap.Logger) error {
	composed := textprep.Compose(c)
	vec, err := embedder.Embed(ctx, composed)
	if err != nil {
		return err
	}
	if err := db.UpdateEmbedding(ctx, c.Code, vec, model); err != nil {
		return err
	}
	if index != nil {
		if err := index.UpsertCourse(ctx, c.Code, c.Name, vec); err != nil {
			// Postgres already holds the vector; don't fail the course
			// over a missed index write.
			logger.Warn("index upsert failed",
				zap.String("course", c.Code), zap.Error(err))
		}
	}
	logger.Info("embedded course", zap.String("course", c.Code))
	return nil
}
