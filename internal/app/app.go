// Package app wires configuration, storage, scrapers, and the HTTP server
// into a running process.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/qdrant/go-client/qdrant"
	log "github.com/sirupsen/logrus"

	"github.com/tokenscout/tokenscout/internal/api"
	"github.com/tokenscout/tokenscout/internal/config"
	"github.com/tokenscout/tokenscout/internal/db"
	"github.com/tokenscout/tokenscout/internal/pricing"
	"github.com/tokenscout/tokenscout/internal/rag"
	"github.com/tokenscout/tokenscout/internal/ragdoc"
	"github.com/tokenscout/tokenscout/internal/scheduler"
	"github.com/tokenscout/tokenscout/internal/scraper"
	"github.com/tokenscout/tokenscout/internal/vector"
)

const shutdownGrace = 10 * time.Second

// RunServer boots the full service and blocks until ctx is cancelled or the
// listener fails.
func RunServer(ctx context.Context, cfg config.Config) error {
	applyLogLevel(cfg.LogLevel)

	conn, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	log.Infof("database ready (dialect=%s)", db.DialectName(conn))

	descriptors, err := scraper.BuildRegistry()
	if err != nil {
		return err
	}

	embedder, err := buildEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return err
	}
	if errVerify := verifyEmbedder(ctx, embedder); errVerify != nil {
		return errVerify
	}

	index, err := buildIndex(ctx, cfg)
	if err != nil {
		return err
	}

	store := pricing.NewStore(conn)
	svc := rag.NewService(store, embedder, index, rag.Options{
		Bands: ragdoc.Bands{
			CheapBelow:     cfg.RAG.CheapBelow,
			ExpensiveAbove: cfg.RAG.ExpensiveAbove,
		},
		PoolSize:   cfg.RAG.PoolSize,
		InputShare: cfg.RAG.InputShare,
	})

	sched := scheduler.New(descriptors, store, svc, scheduler.Options{
		Interval:      cfg.Scheduler.Interval,
		ScrapeTimeout: cfg.Scheduler.ScrapeTimeout,
		RunOnStartup:  cfg.Scheduler.RunOnStartup,
	})
	sched.Start(ctx)

	engine := api.NewRouter(conn, svc, sched, cfg.RAG.StaleAfter)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: engine,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.WithError(errShutdown).Warn("server shutdown failed")
		}
	}()

	log.Infof("listening on %s", srv.Addr)
	if errServe := srv.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
		return errServe
	}
	sched.Wait()
	return nil
}

func buildEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (vector.Embedder, error) {
	switch cfg.Backend {
	case config.EmbeddingBackendHash:
		return vector.NewHashEmbedder(cfg.Dimension), nil
	case config.EmbeddingBackendVertex:
		return vector.NewGenaiEmbedder(ctx, cfg.Project, cfg.Location, cfg.Model, cfg.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding backend: %s", cfg.Backend)
	}
}

// verifyEmbedder runs one embedding against the live backend so a model
// whose output width differs from the configured dimension fails at startup
// instead of on the first indexed document.
func verifyEmbedder(ctx context.Context, embedder vector.Embedder) error {
	vec, err := embedder.Embed(ctx, "embedding dimension check")
	if err != nil {
		return fmt.Errorf("embedding backend check: %w", err)
	}
	if len(vec) != embedder.Dimension() {
		return fmt.Errorf("%w: backend returned %d values, embedder declares %d",
			vector.ErrDimensionMismatch, len(vec), embedder.Dimension())
	}
	return nil
}

func buildIndex(ctx context.Context, cfg config.Config) (vector.Index, error) {
	metric := vector.Metric(cfg.Vector.Metric)
	switch cfg.Vector.Backend {
	case config.VectorBackendMemory:
		return vector.NewMemoryIndex(cfg.Embedding.Dimension, metric), nil
	case config.VectorBackendQdrant:
		client, err := qdrant.NewClient(&qdrant.Config{
			Host: cfg.Vector.Host,
			Port: cfg.Vector.Port,
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant client: %w", err)
		}
		index := vector.NewQdrantIndex(client, cfg.Vector.Collection, cfg.Embedding.Dimension, metric)
		if errInit := index.InitCollection(ctx); errInit != nil {
			return nil, errInit
		}
		return index, nil
	default:
		return nil, fmt.Errorf("unknown vector backend: %s", cfg.Vector.Backend)
	}
}

func applyLogLevel(level string) {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.WithError(err).Warnf("invalid log level %q, using info", level)
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}
