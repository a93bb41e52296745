// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/JakeFAU/nft-metadata-parser/internal/config"
	"github.com/JakeFAU/nft-metadata-parser/internal/database/postgres"
	"github.com/JakeFAU/nft-metadata-parser/internal/logging"
	"github.com/JakeFAU/nft-metadata-parser/internal/metrics"
	"github.com/JakeFAU/nft-metadata-parser/internal/parser"
	"github.com/JakeFAU/nft-metadata-parser/internal/queue"
	queuememory "github.com/JakeFAU/nft-metadata-parser/internal/queue/memory"
	queuepubsub "github.com/JakeFAU/nft-metadata-parser/internal/queue/pubsub"
	"github.com/JakeFAU/nft-metadata-parser/internal/resolver"
	storagegcs "github.com/JakeFAU/nft-metadata-parser/internal/storage/gcs"
	storagememory "github.com/JakeFAU/nft-metadata-parser/internal/storage/memory"
	"github.com/JakeFAU/nft-metadata-parser/internal/worker"
)

const resolverTimeout = 30 * time.Second

// App holds the shared, long-lived services of the parser process. It
// is initialized once at startup and torn down by Close.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	dbPool *pgxpool.Pool
	conns  []*pgxpool.Conn
	sub    queue.Subscriber
	pool   *worker.Pool

	subCloser func() error
	metricsLn *http.Server
}

// NewApp builds all services from the configuration: the Postgres
// pool (one dedicated connection per worker plus one spare), the
// inbound subscriber, the blob store, the resolvers, and the worker
// pool. It fails fast when any critical service cannot be initialized.
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	logger := logging.L.With(zap.String("instance_id", uuid.NewString()))
	logger.Info("Initializing parser services...")

	if cfg.GCP.CredentialsFile != "" {
		if err := os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", cfg.GCP.CredentialsFile); err != nil {
			return nil, fmt.Errorf("set credentials env: %w", err)
		}
	}

	metrics.Init()

	a := &App{cfg: cfg, logger: logger}

	if err := a.initDatabase(ctx); err != nil {
		a.Close()
		return nil, err
	}
	blobs, err := a.initStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initSubscriber(ctx); err != nil {
		a.Close()
		return nil, err
	}

	uris := resolver.NewURIResolver(cfg.Storage.IPFSPrefix)
	jsonFetcher := resolver.NewJSONFetcher(resolverTimeout)
	optimizer := resolver.NewMediaOptimizer(resolverTimeout)

	workers := make([]*worker.Worker, 0, cfg.Parser.Workers)
	for i := 0; i < cfg.Parser.Workers; i++ {
		store, err := a.workerStore(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		workers = append(workers, worker.New(
			store,
			uris,
			jsonFetcher,
			optimizer,
			blobs,
			logger.With(zap.Int("worker", i)),
		))
	}

	pool, err := worker.NewPool(a.sub, workers, worker.PoolConfig{
		Workers:         cfg.Parser.Workers,
		QueueDepth:      cfg.QueueDepth(),
		Pacing:          cfg.Pacing(),
		MaxContentBytes: cfg.Parser.MaxContentBytes,
		ImageQuality:    cfg.Parser.ImageQuality,
	}, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build worker pool: %w", err)
	}
	a.pool = pool

	logger.Info("Parser services initialized successfully.",
		zap.Int("workers", cfg.Parser.Workers),
		zap.Int("queue_depth", cfg.QueueDepth()),
	)
	return a, nil
}

// dbPoolSizes derives the pool bounds: at least one sustained
// connection per worker plus one spare for the ingestion loop, raised
// further by db.min_conns when configured.
func dbPoolSizes(cfg config.Config) (minConns, maxConns int32) {
	minConns = int32(cfg.Parser.Workers + 1)
	if cfg.DB.MinConns > minConns {
		minConns = cfg.DB.MinConns
	}
	maxConns = cfg.DB.MaxConns
	if maxConns < minConns {
		maxConns = minConns
	}
	return minConns, maxConns
}

func (a *App) initDatabase(ctx context.Context) error {
	minConns, maxConns := dbPoolSizes(a.cfg)
	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:      a.cfg.DB.DSN,
		MaxConns: maxConns,
		MinConns: minConns,
	})
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	a.dbPool = pool
	return nil
}

// workerStore binds a URIStore to a dedicated pooled connection held
// for the lifetime of one worker.
func (a *App) workerStore(ctx context.Context) (parser.URIStore, error) {
	conn, err := a.dbPool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire worker connection: %w", err)
	}
	a.conns = append(a.conns, conn)
	store, err := postgres.NewURIStore(conn, a.cfg.DB.Table)
	if err != nil {
		return nil, fmt.Errorf("build uri store: %w", err)
	}
	return store, nil
}

func (a *App) initStorage(ctx context.Context) (parser.BlobStore, error) {
	switch a.cfg.Storage.Provider {
	case "gcs":
		a.logger.Info("Using GCS blob store", zap.String("bucket", a.cfg.Storage.Bucket))
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		blobs, err := storagegcs.New(client, storagegcs.Config{
			Bucket:    a.cfg.Storage.Bucket,
			CDNPrefix: a.cfg.Storage.CDNPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize blob store: %w", err)
		}
		return blobs, nil
	case "memory":
		a.logger.Info("Using in-memory blob store. Content will not be durable.")
		return storagememory.NewBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", a.cfg.Storage.Provider)
	}
}

func (a *App) initSubscriber(ctx context.Context) error {
	switch a.cfg.PubSub.Provider {
	case "pubsub":
		a.logger.Info("Connecting to GCP Pub/Sub", zap.String("subscription", a.cfg.PubSub.SubscriptionID))
		sub, err := queuepubsub.New(ctx, a.cfg.GCP.ProjectID, a.cfg.PubSub.SubscriptionID, a.cfg.QueueDepth())
		if err != nil {
			return fmt.Errorf("initialize subscriber: %w", err)
		}
		a.sub = sub
		a.subCloser = sub.Close
		return nil
	case "memory":
		a.logger.Info("Using in-memory subscriber. No messages will arrive.")
		sub := queuememory.NewSubscriber(a.cfg.QueueDepth())
		sub.Close()
		a.sub = sub
		return nil
	default:
		return fmt.Errorf("unknown pubsub provider: %s", a.cfg.PubSub.Provider)
	}
}

// Run serves metrics and health endpoints and blocks on the worker
// pool until ctx ends or the inbound stream fails.
func (a *App) Run(ctx context.Context) error {
	a.metricsLn = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("Starting metrics server", zap.Int("port", a.cfg.Server.Port))
		if err := a.metricsLn.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	return a.pool.Run(ctx)
}

// Router builds the HTTP surface: Prometheus metrics and a liveness
// probe.
func Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Close gracefully shuts down all services in the App container.
func (a *App) Close() {
	a.logger.Info("Shutting down parser services...")
	if a.metricsLn != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.metricsLn.Shutdown(ctx); err != nil {
			a.logger.Warn("Error shutting down metrics server", zap.Error(err))
		}
		cancel()
	}
	if a.subCloser != nil {
		if err := a.subCloser(); err != nil {
			a.logger.Warn("Error closing subscriber", zap.Error(err))
		}
	}
	for _, conn := range a.conns {
		conn.Release()
	}
	a.conns = nil
	if a.dbPool != nil {
		a.dbPool.Close()
	}
	if err := a.logger.Sync(); err != nil {
		// Best effort; stderr sync fails on some platforms.
		a.logger.Debug("Error syncing logger on shutdown", zap.Error(err))
	}
}
