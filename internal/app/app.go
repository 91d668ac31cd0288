package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/matside-backend/internal/data/db"
	"github.com/yungbote/matside-backend/internal/data/repos"
	apphttp "github.com/yungbote/matside-backend/internal/http"
	"github.com/yungbote/matside-backend/internal/observability"
	"github.com/yungbote/matside-backend/internal/platform/logger"
	"github.com/yungbote/matside-backend/internal/pricing"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *db.Service
	Clients  Clients
	Stores   Stores
	Repos    repos.Set
	Services Services
	Catalog  *pricing.Catalog
	Metrics  *observability.Metrics
	Server   *apphttp.Server

	otelShutdown func(context.Context) error
}

func NewLogger(mode string) (*logger.Logger, error) {
	if mode == "" {
		mode = "development"
	}
	log, err := logger.New(mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// LoadCatalog returns the compiled-in prices unless a catalog file is configured.
func LoadCatalog(log *logger.Logger, path string) (*pricing.Catalog, error) {
	if path == "" {
		return pricing.Default(), nil
	}
	catalog, err := pricing.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load pricing catalog: %w", err)
	}
	log.Info("Loaded pricing catalog", "path", path, "events", len(catalog.Events()))
	return catalog, nil
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	a := &App{Log: log, Cfg: cfg}

	a.otelShutdown = observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "matside-backend",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	if cfg.MetricsEnabled {
		a.Metrics = observability.Init(log)
	}

	catalog, err := LoadCatalog(log, cfg.PricingCatalogPath)
	if err != nil {
		return nil, err
	}
	a.Catalog = catalog

	backend, err := resolveIdempotencyBackend(cfg.IdempotencyBackend, cfg.Redis.Addr)
	if err != nil {
		return nil, err
	}

	dbs, err := db.Open(log, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.DB = dbs
	if cfg.AutoMigrate {
		if err := dbs.AutoMigrateAll(); err != nil {
			a.Close()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Clients = clients

	a.Stores = newStores(backend, clients.Redis)
	log.Info("Idempotency store ready", "backend", a.Stores.Backend)
	if a.Stores.Backend == IdempotencyBackendMemory {
		log.Warn("Payment locks and dedup records are process-local; run a single instance or set REDIS_ADDR")
	}

	a.Repos = wireRepos(dbs.DB(), log)
	svcs, err := wireServices(dbs.DB(), log, cfg, a.Repos, clients, a.Stores, catalog, a.Metrics)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Services = svcs

	handlers := wireHandlers(log, dbs.DB(), clients.Redis, svcs, catalog)
	mw := wireMiddleware(log, cfg, a.Stores, a.Metrics)
	a.Server = wireServer(log, cfg, handlers, mw, a.Metrics)
	return a, nil
}

// Run serves HTTP and, when configured, the Temporal worker until ctx is
// cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	a.Metrics.StartDBCollector(gctx, a.Log, a.DB.DB())
	a.Metrics.StartRedisCollector(gctx, a.Log, a.Clients.Redis)

	if a.Services.TemporalWorker != nil {
		g.Go(func() error {
			if err := a.Services.TemporalWorker.Start(gctx); err != nil {
				return fmt.Errorf("temporal worker: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		return a.Server.Run(gctx, ":"+a.Cfg.Port)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Services.Webhooks != nil {
		a.Services.Webhooks.Close()
	}
	a.Stores.Close()
	a.Clients.Close()
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
