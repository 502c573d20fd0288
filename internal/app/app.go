// Package app initializes and holds the long-lived services of a crawl run,
// acting as the dependency injection container for the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/manager-records-crawler/internal/api"
	"github.com/JakeFAU/manager-records-crawler/internal/clock/system"
	"github.com/JakeFAU/manager-records-crawler/internal/config"
	"github.com/JakeFAU/manager-records-crawler/internal/crawler"
	"github.com/JakeFAU/manager-records-crawler/internal/fetcher/backoff"
	collyfetcher "github.com/JakeFAU/manager-records-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/manager-records-crawler/internal/id/uuid"
	"github.com/JakeFAU/manager-records-crawler/internal/metrics"
	"github.com/JakeFAU/manager-records-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/manager-records-crawler/internal/progress"
	"github.com/JakeFAU/manager-records-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/manager-records-crawler/internal/storage/gcs"
	"github.com/JakeFAU/manager-records-crawler/internal/storage/local"
	"github.com/JakeFAU/manager-records-crawler/internal/telemetry"
)

// Deps overrides the services New would otherwise build from configuration.
// Nil fields fall back to the configured implementation.
type Deps struct {
	Fetcher   crawler.Fetcher
	Clock     crawler.Clock
	IDs       crawler.IDGenerator
	Blobs     crawler.BlobStore
	Publisher crawler.Publisher
}

// App holds the shared services of the CLI.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	clock      crawler.Clock
	ids        crawler.IDGenerator
	aggregator *crawler.Aggregator
	tracker    *progress.Tracker
	blobs      crawler.BlobStore
	publisher  crawler.Publisher
	server     *api.Server
	closers    []func() error
}

// New builds the fetcher chain (colly, politeness limiter, 429 backoff), the
// crawler components and every optional sink enabled in cfg. It fails fast if
// a configured service cannot be reached.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, deps Deps) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()

	a := &App{
		cfg:       cfg,
		logger:    logger,
		clock:     deps.Clock,
		ids:       deps.IDs,
		blobs:     deps.Blobs,
		publisher: deps.Publisher,
	}
	if a.clock == nil {
		a.clock = system.New()
	}
	if a.ids == nil {
		a.ids = uuid.New()
	}

	tp, err := telemetry.InitTracerProvider(ctx, "mgrcrawl")
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	})

	fetcher := deps.Fetcher
	if fetcher == nil {
		limiter := ratelimit.New(ratelimit.Config{
			RequestsPerSecond: cfg.Crawler.RequestsPerSecond,
			Burst:             cfg.Crawler.Burst,
		})
		colly := collyfetcher.New(collyfetcher.Config{
			UserAgent:     cfg.Source.UserAgent,
			RespectRobots: cfg.Crawler.RespectRobots,
			Timeout:       cfg.Crawler.RequestTimeout,
		}, limiter)
		fetcher = backoff.New(colly, a.clock, backoff.Config{
			DefaultCooldown: cfg.Crawler.DefaultCooldown,
			MaxRetries:      cfg.Crawler.MaxRateLimitRetries,
		}, logger.Named("backoff"))
	}

	source := crawler.Source{BaseURL: cfg.Source.BaseURL}
	registry := crawler.NewRegistry(fetcher, source, logger.Named("registry"))
	collector := crawler.NewCollector(fetcher, source, crawler.CollectorConfig{
		MaxPages:        cfg.Crawler.MaxPages,
		StrictPageLimit: cfg.Crawler.StrictPageLimit,
	}, logger.Named("collector"))
	a.aggregator = crawler.NewAggregator(registry, collector, logger.Named("aggregator"))
	a.tracker = progress.NewTracker(a.clock)
	a.aggregator.SetObserver(a.tracker)

	if err := a.initBlobs(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initPublisher(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if cfg.Metrics.Addr != "" {
		a.server = api.NewServer(a.tracker, logger.Named("api"))
		if _, err := a.server.Start(cfg.Metrics.Addr); err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.server.Shutdown(ctx)
		})
	}

	logger.Info("application services initialized",
		zap.String("base_url", source.BaseURL),
		zap.Bool("postgres", cfg.DB.DSN != ""),
		zap.Bool("artifacts", a.blobs != nil),
		zap.Bool("pubsub", a.publisher != nil),
	)
	return a, nil
}

func (a *App) initBlobs(ctx context.Context) error {
	if a.blobs != nil {
		return nil
	}
	switch {
	case a.cfg.Storage.GCSBucket != "":
		store, err := gcs.Connect(ctx, gcs.Config{
			Bucket:   a.cfg.Storage.GCSBucket,
			Metadata: map[string]string{"producer": "mgrcrawl"},
		})
		if err != nil {
			return fmt.Errorf("initialize artifact storage: %w", err)
		}
		a.blobs = store
		a.closers = append(a.closers, store.Close)
	case a.cfg.Storage.LocalDir != "":
		store, err := local.New(local.Config{BaseDir: a.cfg.Storage.LocalDir})
		if err != nil {
			return fmt.Errorf("initialize artifact storage: %w", err)
		}
		a.blobs = store
	}
	return nil
}

func (a *App) initPublisher(ctx context.Context) error {
	if a.publisher != nil || a.cfg.PubSub.TopicName == "" {
		return nil
	}
	pub, err := pubsub.Connect(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.TopicName)
	if err != nil {
		return fmt.Errorf("initialize pubsub: %w", err)
	}
	a.publisher = pub
	a.closers = append(a.closers, pub.Close)
	return nil
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Tracker exposes the progress of the current run.
func (a *App) Tracker() *progress.Tracker {
	return a.tracker
}

// Close shuts down every service opened by New. It is called by a Cobra hook
// after the command finishes.
func (a *App) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("error shutting down services", zap.Error(err))
	}
	_ = a.logger.Sync()
}
