// Package app builds and runs the service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/atelierlabs/folio/internal/api"
	"github.com/atelierlabs/folio/internal/cache"
	"github.com/atelierlabs/folio/internal/config"
	"github.com/atelierlabs/folio/internal/logging"
	"github.com/atelierlabs/folio/internal/metrics"
	"github.com/atelierlabs/folio/internal/notify"
	"github.com/atelierlabs/folio/internal/origin"
	"github.com/atelierlabs/folio/internal/project"
	"github.com/atelierlabs/folio/internal/scraper"
	"github.com/atelierlabs/folio/internal/share"
	"github.com/atelierlabs/folio/internal/storage"
	gcsstorage "github.com/atelierlabs/folio/internal/storage/gcs"
	localstorage "github.com/atelierlabs/folio/internal/storage/local"
)

// App contains the application's dependencies.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	apiServer  *api.Server
	controller *cache.Controller
	shareStore storage.Provider
	notifier   notify.Publisher
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	a := &App{cfg: cfg, logger: logger}

	client := origin.New(origin.Config{
		BaseURL:   cfg.Origin.BaseURL,
		UserAgent: cfg.Origin.UserAgent,
		Timeout:   cfg.OriginTimeout(),
	})
	prober := scraper.NewVideoProber(cfg.Probe.FFProbePath, cfg.ProbeTimeout())
	scrape := scraper.New(client, prober, scraper.Config{
		MediaDir:         cfg.Origin.MediaDir,
		MediaConcurrency: cfg.Probe.MediaConcurrency,
	}, logger.Named("scraper"))

	store := cache.NewStore(afero.NewOsFs(), cfg.Cache.Dir, nil)
	a.controller = cache.NewController(store, scrape.Scrape, cache.Config{
		TTL: cfg.CacheTTL(),
	}, nil, logger.Named("cache"))

	a.shareStore, err = setupShareStore(ctx, a)
	if err != nil {
		return nil, err
	}
	shares := share.NewService(a.controller, client, a.shareStore, logger.Named("share"))

	a.notifier, err = setupNotifier(ctx, a)
	if err != nil {
		return nil, err
	}

	a.controller.OnRefresh(func(ctx context.Context, _ project.Snapshot) {
		if err := shares.Invalidate(ctx); err != nil {
			logger.Warn("share cache invalidation failed", zap.Error(err))
		}
	})
	a.controller.OnRefresh(func(ctx context.Context, snap project.Snapshot) {
		event := notify.RefreshEvent{Projects: len(snap.Projects), LastUpdate: snap.LastUpdate}
		if err := a.notifier.Publish(ctx, event); err != nil {
			logger.Warn("refresh notification failed", zap.Error(err))
		}
	})

	a.apiServer = api.NewServer(a.controller, shares, cfg, logger.Named("api"))
	return a, nil
}

func setupShareStore(ctx context.Context, a *App) (storage.Provider, error) {
	switch a.cfg.Share.Provider {
	case "gcs":
		a.logger.Info("using GCS share card store",
			zap.String("bucket", a.cfg.Share.GCSBucket))
		p, err := gcsstorage.New(ctx, gcsstorage.Config{
			Bucket: a.cfg.Share.GCSBucket,
			Prefix: a.cfg.Share.GCSPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("gcs share store init failed: %w", err)
		}
		return p, nil
	case "local":
		a.logger.Info("using local share card store",
			zap.String("dir", a.cfg.Share.LocalDir))
		p, err := localstorage.New(nil, localstorage.Config{BaseDir: a.cfg.Share.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local share store init failed: %w", err)
		}
		return p, nil
	default:
		a.logger.Info("share card caching disabled")
		return storage.NoOpProvider{}, nil
	}
}

func setupNotifier(ctx context.Context, a *App) (notify.Publisher, error) {
	if a.cfg.Notify.Provider != "pubsub" {
		return notify.NoOpPublisher{}, nil
	}
	a.logger.Info("pub/sub refresh notifications enabled",
		zap.String("project", a.cfg.Notify.ProjectID),
		zap.String("topic", a.cfg.Notify.TopicID))
	p, err := notify.NewPubSubPublisher(ctx, a.cfg.Notify.ProjectID, a.cfg.Notify.TopicID, a.logger.Named("notify"))
	if err != nil {
		return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
	}
	return p, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	return a.Close()
}

// RefreshOnce performs a single forced refresh. Used by the refresh
// subcommand for cron-style snapshot rebuilds.
func (a *App) RefreshOnce(ctx context.Context) error {
	snap, err := a.controller.ForceRefresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	a.logger.Info("refresh complete",
		zap.Int("projects", len(snap.Projects)),
		zap.Time("last_update", snap.LastUpdate))
	return nil
}

// Close drains background work and releases clients.
func (a *App) Close() error {
	a.controller.Wait()
	if err := a.notifier.Close(); err != nil {
		a.logger.Warn("notifier close failed", zap.Error(err))
	}
	if err := a.shareStore.Close(); err != nil {
		a.logger.Warn("share store close failed", zap.Error(err))
	}
	_ = a.logger.Sync()
	a.logger.Info("shutdown complete")
	return nil
}
