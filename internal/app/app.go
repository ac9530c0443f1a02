// Package app initializes and holds long-lived application services, acting as a dependency
// injection container for the CLI commands and the ops server.
package app

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-crawler/internal/audit"
	"github.com/JakeFAU/jobboard-crawler/internal/clock/system"
	"github.com/JakeFAU/jobboard-crawler/internal/config"
	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/database"
	"github.com/JakeFAU/jobboard-crawler/internal/id/uuid"
	"github.com/JakeFAU/jobboard-crawler/internal/progress"
	"github.com/JakeFAU/jobboard-crawler/internal/progress/sinks"
	pubmemory "github.com/JakeFAU/jobboard-crawler/internal/publisher/memory"
	pubsubpub "github.com/JakeFAU/jobboard-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/jobboard-crawler/internal/session"
	"github.com/JakeFAU/jobboard-crawler/internal/storage/gcs"
	"github.com/JakeFAU/jobboard-crawler/internal/storage/local"
	"github.com/JakeFAU/jobboard-crawler/internal/storage/memory"
	"github.com/JakeFAU/jobboard-crawler/internal/storage/postgres"
	"github.com/JakeFAU/jobboard-crawler/internal/taxonomy"
)

// Options are the seams tests and embedders may set. The zero value is production.
type Options struct {
	// Registerer receives the progress collectors; nil means the default registry.
	Registerer prometheus.Registerer
	// Origins replaces board hosts, for fixture servers.
	Origins map[crawler.Platform]string
	// Pauser replaces the politeness timer.
	Pauser session.Pauser
	Clock  crawler.Clock
}

// App holds the shared services. Per-site sessions are created by Crawl and released when it
// returns.
type App struct {
	Config     config.Config
	Logger     *zap.Logger
	Clock      crawler.Clock
	IDs        crawler.IDGenerator
	Store      crawler.Store
	Blob       crawler.BlobStore
	Publisher  crawler.Publisher
	Ledger     database.Ledger
	Audit      *audit.Trail
	Progress   *progress.Hub
	Board      *sinks.Board
	Taxonomies *taxonomy.Taxonomies
	Limiter    *session.HostLimiter

	opts    Options
	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// New builds every shared service from cfg. It fails fast, releasing whatever was already
// opened, when a provider cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (a *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a = &App{
		Config:     cfg,
		Logger:     logger,
		Clock:      opts.Clock,
		IDs:        uuid.New(),
		Taxonomies: taxonomy.Default(),
		Limiter:    session.NewHostLimiter(cfg.Crawler.RatePerSecond, 1),
		opts:       opts,
	}
	if a.Clock == nil {
		a.Clock = system.NewIn(system.Seoul)
	}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
			a = nil
		}
	}()

	logger.Info("initializing application services")
	if err = a.initStore(ctx); err != nil {
		return nil, err
	}
	if err = a.initLedger(ctx); err != nil {
		return nil, err
	}
	if err = a.initBlob(ctx); err != nil {
		return nil, err
	}
	if err = a.initPublisher(ctx); err != nil {
		return nil, err
	}
	if err = a.initAudit(); err != nil {
		return nil, err
	}
	if err = a.initProgress(); err != nil {
		return nil, err
	}
	logger.Info("application services initialized",
		zap.String("store", cfg.Store.Provider),
		zap.String("runs", cfg.Runs.Provider),
		zap.String("blob", cfg.Blob.Provider),
		zap.String("publisher", cfg.Publisher.Provider),
	)
	return a, nil
}

func (a *App) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

func (a *App) initStore(ctx context.Context) error {
	switch a.Config.Store.Provider {
	case config.ProviderPostgres:
		pg := a.Config.Store.Postgres
		store, err := postgres.New(ctx, postgres.Config{DSN: pg.DSN, Table: pg.Table, MaxConns: pg.MaxConns})
		if err != nil {
			return fmt.Errorf("init posting store: %w", err)
		}
		a.onClose("posting store", func(context.Context) error { store.Close(); return nil })
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure posting schema: %w", err)
		}
		a.Store = store
	default:
		a.Logger.Warn("using the in-memory posting store; postings are lost on exit")
		a.Store = memory.NewPostingStore()
	}
	return nil
}

func (a *App) initLedger(ctx context.Context) error {
	switch a.Config.Runs.Provider {
	case config.ProviderPostgres:
		ledger, err := database.NewPostgresLedger(ctx, a.Config.Runs.Postgres.DSN, database.SQLXConnector{}, a.Logger)
		if err != nil {
			return fmt.Errorf("init run ledger: %w", err)
		}
		a.onClose("run ledger", func(context.Context) error { return ledger.Close() })
		if err := ledger.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure run ledger schema: %w", err)
		}
		a.Ledger = ledger
	default:
		a.Ledger = database.NoopLedger{}
	}
	return nil
}

func (a *App) initBlob(ctx context.Context) error {
	switch a.Config.Blob.Provider {
	case config.ProviderLocal:
		store, err := local.New(a.Config.Blob.Local.Dir)
		if err != nil {
			return fmt.Errorf("init local blob store: %w", err)
		}
		a.Blob = store
	case config.ProviderGCS:
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("init gcs client: %w", err)
		}
		a.onClose("gcs client", func(context.Context) error { return client.Close() })
		store, err := gcs.New(client, gcs.Config{Bucket: a.Config.Blob.GCS.Bucket, Prefix: a.Config.Blob.GCS.Prefix})
		if err != nil {
			return err
		}
		a.Blob = store
	default:
		a.Blob = memory.NewBlobStore()
	}
	return nil
}

func (a *App) initPublisher(ctx context.Context) error {
	switch a.Config.Publisher.Provider {
	case config.ProviderPubSub:
		ps := a.Config.Publisher.PubSub
		client, err := pubsub.NewClient(ctx, ps.ProjectID)
		if err != nil {
			return fmt.Errorf("init pubsub client: %w", err)
		}
		a.onClose("pubsub client", func(context.Context) error { return client.Close() })
		pub, err := pubsubpub.New(ctx, client, ps.Topic)
		if err != nil {
			return err
		}
		a.onClose("pubsub publisher", func(context.Context) error { pub.Stop(); return nil })
		a.Publisher = pub
	case config.ProviderMemory:
		a.Publisher = pubmemory.New()
	default:
		a.Publisher = pubmemory.Noop{}
	}
	return nil
}

func (a *App) initAudit() error {
	trail, err := audit.New(audit.Config{
		Dir:    a.Config.Audit.Dir,
		Blob:   a.Blob,
		Clock:  a.Clock,
		Logger: a.Logger,
	})
	if err != nil {
		return fmt.Errorf("init audit trail: %w", err)
	}
	a.onClose("audit trail", func(context.Context) error { return trail.Close() })
	a.Audit = trail
	return nil
}

func (a *App) initProgress() error {
	promSink, err := sinks.NewPrometheusSink(a.opts.Registerer)
	if err != nil {
		return err
	}
	a.Board = sinks.NewBoard(sinks.DefaultBoardLimit)
	a.Progress = progress.NewHub(progress.Config{Logger: a.Logger},
		sinks.NewLogSink(a.Logger), promSink, a.Board)
	a.onClose("progress hub", a.Progress.Close)
	return nil
}

// Close releases services in reverse order of creation and flushes the logger.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.Logger.Warn("error closing service", zap.String("service", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	// Sync fails on stderr for some terminals; ignore it.
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}
