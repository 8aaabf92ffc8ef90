// Package app wires the StatData components together for the CLI and
// the HTTP server.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lichtbaer/StatData/internal/cachestore"
	"github.com/lichtbaer/StatData/internal/catalog"
	"github.com/lichtbaer/StatData/internal/config"
	"github.com/lichtbaer/StatData/internal/download"
	"github.com/lichtbaer/StatData/internal/i18n"
	"github.com/lichtbaer/StatData/internal/logging"
	"github.com/lichtbaer/StatData/internal/mirror"
	"github.com/lichtbaer/StatData/internal/registry"
	"github.com/lichtbaer/StatData/internal/sources"
	"github.com/lichtbaer/StatData/internal/storage"
)

// App holds the shared resources behind every command and server.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Cache      *cachestore.Store
	Index      *catalog.Index
	Registry   *registry.Registry
	Service    *registry.Service
	I18n       *i18n.Manager
	Downloader *download.Downloader

	mirror *mirror.Mirror
}

// New builds an App from the given configuration.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cache := cachestore.New(cfg.CacheRoot, logger)

	index, err := catalog.Open(cfg.CatalogPath, logger)
	if err != nil {
		logger.Sync()
		return nil, err
	}

	reg := registry.New(
		sources.NewEurostat(cache),
		sources.NewGSS(cache),
		sources.NewALLBUS(cache),
		sources.NewESS(cache),
		sources.NewSOEP(cache),
		sources.NewWVS(cache),
	)

	service := registry.NewService(reg, index, cache, logger)

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Cache:    cache,
		Index:    index,
		Registry: reg,
		Service:  service,
		I18n:     i18n.NewManager(cfg.TranslationsDir(), cfg.DefaultLanguage, logger),
		Downloader: download.New(download.Options{
			Timeout:    cfg.Download.Timeout,
			MaxRetries: cfg.Download.MaxRetries,
			UserAgent:  cfg.Download.UserAgent,
		}, logger),
	}

	if cfg.Mirror.Type != "" && cfg.Mirror.Type != config.MirrorNone {
		store, err := newObjectStorage(ctx, cfg)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.mirror = mirror.New(store, cache, logger)
	}

	return app, nil
}

// Mirror returns the configured cache mirror, or an error when no
// mirror is configured.
func (a *App) Mirror() (*mirror.Mirror, error) {
	if a.mirror == nil {
		return nil, fmt.Errorf("no mirror configured; set mirror.type to local or s3")
	}
	return a.mirror, nil
}

// Close releases the catalog and flushes the logger.
func (a *App) Close() error {
	err := a.Index.Close()
	a.Logger.Sync()
	return err
}

func newObjectStorage(ctx context.Context, cfg *config.Config) (storage.ObjectStorage, error) {
	switch cfg.Mirror.Type {
	case config.MirrorLocal:
		return storage.NewLocalStorage(cfg.Mirror.Path)
	case config.MirrorS3:
		return storage.NewS3Storage(ctx, cfg.Mirror.S3.Bucket, storage.S3Config{
			Region:       cfg.Mirror.S3.Region,
			Endpoint:     cfg.Mirror.S3.Endpoint,
			UsePathStyle: cfg.Mirror.S3.Endpoint != "",
		})
	default:
		return nil, fmt.Errorf("unknown mirror type %q", cfg.Mirror.Type)
	}
}
