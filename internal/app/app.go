// Package app wires configuration, stores, the trace service and the HTTP
// server into one startable unit.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pipetrace/internal/config"
	"pipetrace/internal/dataset"
	"pipetrace/internal/feedback"
	"pipetrace/internal/graphcache"
	"pipetrace/internal/graphcache/blob"
	"pipetrace/internal/metrics"
	"pipetrace/internal/pointer"
	"pipetrace/internal/server"
	"pipetrace/internal/service"
)

type App struct {
	server  *server.Server
	watcher *dataset.Watcher
	logger  *zap.Logger
	cancel  context.CancelFunc
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return build(cfg)
}

func build(cfg *config.Config) (*App, error) {
	logger, err := feedback.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	registry, err := newRegistry(cfg.Pointer)
	if err != nil {
		return nil, fmt.Errorf("init pointer registry: %w", err)
	}

	var local blob.Store
	if cfg.Cache.LocalDir != "" {
		ls, err := blob.NewLocalStore(blob.LocalConfig{
			Dir:        cfg.Cache.LocalDir,
			MaxEntries: cfg.Cache.MaxEntries,
			TTL:        cfg.Cache.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("init local cache: %w", err)
		}
		local = ls
	}
	var remote blob.Store
	if cfg.Remote.Enabled {
		rs, err := blob.NewRemoteStore(blob.RemoteConfig{
			Endpoint:  cfg.Remote.Endpoint,
			Region:    cfg.Remote.Region,
			AccessKey: cfg.Remote.AccessKey,
			SecretKey: cfg.Remote.SecretKey,
			Bucket:    cfg.Remote.Bucket,
			UseSSL:    cfg.Remote.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("init remote cache: %w", err)
		}
		remote = rs
	}

	locator, err := graphcache.NewLocator(registry, blob.NewDiskStore(), local, remote)
	if err != nil {
		return nil, fmt.Errorf("init cache locator: %w", err)
	}

	hub := feedback.NewHub(0)
	sink := feedback.Fanout{feedback.NewZapSink(logger), hub}
	collector := metrics.NewCollector()

	svc, err := service.New(service.Options{
		Locator:       locator,
		Sink:          sink,
		Metrics:       collector,
		MemoryEntries: cfg.Cache.MemoryEntries,
		MemoryTTL:     cfg.Cache.MemoryTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("init service: %w", err)
	}

	if cfg.ManifestDir != "" {
		n, err := svc.LoadManifestDir(cfg.ManifestDir)
		if err != nil {
			return nil, fmt.Errorf("load manifests: %w", err)
		}
		logger.Info("loaded dataset manifests",
			zap.Int("count", n), zap.String("dir", cfg.ManifestDir))
	}

	ctx, cancel := context.WithCancel(context.Background())

	var watcher *dataset.Watcher
	if cfg.WatchSources && cfg.ManifestDir != "" {
		watcher, err = dataset.NewWatcher(cfg.WatchDebounce, svc.Invalidate, sink)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("init source watcher: %w", err)
		}
		for _, name := range svc.Datasets() {
			m, ok := svc.Manifest(name)
			if !ok {
				continue
			}
			// A source on an unwatchable mount degrades to manual rebuilds.
			if err := watcher.Watch(m); err != nil {
				logger.Warn("cannot watch dataset sources",
					zap.String("dataset", name), zap.Error(err))
			}
		}
		watcher.Start(ctx)
	}

	handler := server.NewHandler(svc, hub, collector)
	mux := server.NewMux(handler, collector.Handler())
	srv := server.New(cfg.Addr, mux, logger)

	return &App{server: srv, watcher: watcher, logger: logger, cancel: cancel}, nil
}

func newRegistry(pc config.PointerConfig) (*pointer.Store, error) {
	if pc.DSN != "" {
		return pointer.NewPostgres(pc.DSN)
	}
	if pc.File != "" {
		return pointer.NewFile(pc.File)
	}
	return pointer.NewFromEnv()
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	a.cancel()
	err := a.server.Shutdown(ctx)
	_ = a.logger.Sync()
	return err
}
