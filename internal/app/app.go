// Package app holds the long-lived services shared by the CLI commands and
// builds each pipeline stage from configuration.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/druginfo-crawler/internal/clock/system"
	"github.com/JakeFAU/druginfo-crawler/internal/config"
	"github.com/JakeFAU/druginfo-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/druginfo-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/druginfo-crawler/internal/hash/sha256"
	"github.com/JakeFAU/druginfo-crawler/internal/id/uuid"
	"github.com/JakeFAU/druginfo-crawler/internal/logging"
	"github.com/JakeFAU/druginfo-crawler/internal/metrics"
	"github.com/JakeFAU/druginfo-crawler/internal/policy/ratelimit"
	memorypublisher "github.com/JakeFAU/druginfo-crawler/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/druginfo-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/druginfo-crawler/internal/storage/gcs"
	"github.com/JakeFAU/druginfo-crawler/internal/storage/local"
	"github.com/JakeFAU/druginfo-crawler/internal/storage/memory"
	mongostore "github.com/JakeFAU/druginfo-crawler/internal/storage/mongo"
	"github.com/JakeFAU/druginfo-crawler/internal/storage/postgres"
	"github.com/JakeFAU/druginfo-crawler/internal/telemetry"
)

// App holds the services shared by every stage in one process.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	runID   string
	fetcher crawler.Fetcher

	memStore   *memory.DocumentStore
	memArchive *memory.BlobStore
	memPub     *memorypublisher.Publisher
	closers    []func() error
}

// New wires the fetcher and run ID. Optional sinks such as the archive and
// Pub/Sub are only connected when the scraper is built.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	runID, err := uuid.New().NewID()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Site.UserAgent,
		RespectRobots: cfg.HTTP.RespectRobots,
	})
	return &App{
		cfg:        cfg,
		logger:     logger.With(zap.String("run_id", runID)),
		runID:      runID,
		fetcher:    fetcher,
		memStore:   memory.NewDocumentStore(),
		memArchive: memory.NewBlobStore(),
		memPub:     memorypublisher.New(),
	}, nil
}

// Logger returns the run-scoped logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// RunID identifies this process invocation.
func (a *App) RunID() string { return a.runID }

// MemoryStore exposes the in-process store used by the memory driver.
func (a *App) MemoryStore() *memory.DocumentStore { return a.memStore }

// MemoryArchive exposes the pages kept by the memory archive driver.
func (a *App) MemoryArchive() *memory.BlobStore { return a.memArchive }

// MemoryPublisher exposes the notices kept by the memory publisher driver.
func (a *App) MemoryPublisher() *memorypublisher.Publisher { return a.memPub }

// StartMetrics serves /metrics and /healthz until ctx is done. It is a no-op
// when metrics.addr is empty.
func (a *App) StartMetrics(ctx context.Context) {
	if a.cfg.Metrics.Addr == "" {
		return
	}
	go func() {
		if err := metrics.Serve(ctx, a.cfg.Metrics.Addr, a.logger.Named("metrics")); err != nil {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}

// StartTracing installs the global tracer provider; spans are flushed on Close.
func (a *App) StartTracing(ctx context.Context) error {
	tp, err := telemetry.InitTracerProvider(ctx, telemetry.ServiceName, a.logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, func() error {
		return tp.Shutdown(context.Background())
	})
	return nil
}

// Collector builds the category link stage.
func (a *App) Collector() *crawler.Collector {
	return crawler.NewCollector(a.fetcher, crawler.CollectorConfig{
		ListingURL: a.cfg.Site.ListingURL,
		BaseURL:    a.cfg.Site.BaseURL,
		Output:     a.cfg.Artifacts.CategoryLinks,
	}, logging.ForStage(a.logger, "collector"))
}

// LinkExtractor builds the detail link stage.
func (a *App) LinkExtractor() *crawler.LinkExtractor {
	return crawler.NewLinkExtractor(a.fetcher, crawler.LinkExtractorConfig{
		Input:   a.cfg.Artifacts.CategoryLinks,
		Output:  a.cfg.Artifacts.DetailURLs,
		Host:    a.cfg.Site.Host,
		Timeout: a.cfg.HTTP.LinksTimeout,
		Delay:   a.cfg.HTTP.PageDelay,
	}, logging.ForStage(a.logger, "links"))
}

// CheckStore runs the connectivity check.
func (a *App) CheckStore(ctx context.Context) crawler.StoreCheck {
	return crawler.CheckStore(ctx, a.OpenStore, logging.ForStage(a.logger, "ping"))
}

// Scraper builds the detail stage together with its optional archive,
// publisher and rate limiter.
func (a *App) Scraper(ctx context.Context) (*crawler.Scraper, error) {
	archive, err := a.openArchive(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := a.openPublisher(ctx)
	if err != nil {
		return nil, err
	}
	var limiter crawler.Limiter
	if a.cfg.HTTP.DetailRPS > 0 {
		limiter = ratelimit.New(ratelimit.Config{RPS: a.cfg.HTTP.DetailRPS, Burst: 1})
	}
	return crawler.NewScraper(
		a.fetcher,
		a.openWritableStore,
		archive,
		publisher,
		limiter,
		sha256.New(),
		system.New(),
		crawler.ScraperConfig{
			Input:         a.cfg.Artifacts.DetailURLs,
			Timeout:       a.cfg.HTTP.DetailTimeout,
			Debug:         a.cfg.DebugEnabled(),
			BoundSections: a.cfg.Scrape.BoundSections,
			ArchivePrefix: a.cfg.Archive.Prefix,
			Topic:         a.cfg.PubSub.Topic,
			RunID:         a.runID,
		},
		logging.ForStage(a.logger, "scraper"),
	), nil
}

// OpenStore connects to the configured document store without changing its
// schema. Each call returns a handle the caller must Close.
func (a *App) OpenStore(ctx context.Context) (crawler.DocumentStore, error) {
	return a.openStore(ctx, false)
}

// openWritableStore is OpenStore for the scraper; Postgres tables are created on open.
func (a *App) openWritableStore(ctx context.Context) (crawler.DocumentStore, error) {
	return a.openStore(ctx, true)
}

func (a *App) openStore(ctx context.Context, ensureSchema bool) (crawler.DocumentStore, error) {
	switch a.cfg.Store.Driver {
	case config.StoreMemory:
		return a.memStore, nil
	case config.StorePostgres:
		store, err := postgres.Open(ctx, postgres.Config{
			DSN:          a.cfg.Store.PostgresDSN,
			Table:        a.cfg.Store.Table,
			EnsureSchema: ensureSchema,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		if err := a.cfg.RequireMongoURL(); err != nil {
			return nil, err
		}
		store, err := mongostore.Open(ctx, mongostore.Config{
			URI:            a.cfg.MongoURL,
			Database:       a.cfg.Store.Database,
			Collection:     a.cfg.Store.Collection,
			ConnectTimeout: a.cfg.Store.ConnectTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("open mongo store: %w", err)
		}
		return store, nil
	}
}

func (a *App) openArchive(ctx context.Context) (crawler.BlobStore, error) {
	switch a.cfg.Archive.Driver {
	case config.ArchiveMemory:
		return a.memArchive, nil
	case config.ArchiveLocal:
		store, err := local.New(local.Config{BaseDir: a.cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		return store, nil
	case config.ArchiveGCS:
		store, err := gcs.Open(ctx, gcs.Config{Bucket: a.cfg.Archive.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs archive: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return nil, nil
	}
}

func (a *App) openPublisher(ctx context.Context) (crawler.Publisher, error) {
	if a.cfg.PubSub.Topic == "" {
		return nil, nil
	}
	if a.cfg.PubSub.Driver == config.PublisherMemory {
		return a.memPub, nil
	}
	pub, err := pubsubpublisher.Open(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.Topic)
	if err != nil {
		return nil, fmt.Errorf("init pubsub publisher: %w", err)
	}
	a.closers = append(a.closers, pub.Close)
	return pub, nil
}

// Close releases clients opened for the scraper and flushes the logger.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("error closing service", zap.Error(err))
		}
	}
	a.closers = nil
	a.logger.Debug("application services closed")
	_ = a.logger.Sync()
}
