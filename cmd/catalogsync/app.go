package main

import (
	"errors"
	"fmt"

	"catalogsync/internal/downloader"
	"catalogsync/internal/store/sqlite"
	"catalogsync/pkg/auth"
	"catalogsync/pkg/catalogsync"
	"catalogsync/pkg/checkpoint"
	"catalogsync/pkg/config"
	"catalogsync/pkg/logger"
	"catalogsync/pkg/photos"
	"catalogsync/pkg/storage"
	"catalogsync/pkg/vk"
)

// app holds the wired components of one command invocation
type app struct {
	cfg          *config.Config
	log          logger.Logger
	store        *sqlite.Store
	photos       *storage.Manager
	checkpoints  *checkpoint.Manager
	progress     *catalogsync.ProgressTracker
	orchestrator *catalogsync.Orchestrator
}

// newApp opens the local stores. withCatalog additionally builds the API
// client, which needs an access token
func newApp(cfg *config.Config, withCatalog bool) (*app, error) {
	log := logger.GetLogger()

	quality, err := photos.ParseQuality(cfg.Sync.PhotoQuality)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.NewStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	photoStore, err := storage.NewManager(cfg.Storage.PhotoDirectory)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open photo storage: %w", err)
	}

	checkpoints, err := checkpoint.NewManager(cfg.Storage.StateDirectory, cfg.Catalog.OwnerID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open state directory: %w", err)
	}

	progress := catalogsync.NewProgressTracker()
	if cp, err := checkpoints.Load(); err != nil {
		log.WithError(err).Warn("ignoring unreadable checkpoint")
	} else if cp != nil {
		progress.Restore(cp.Progress)
	}

	a := &app{
		cfg:         cfg,
		log:         log,
		store:       store,
		photos:      photoStore,
		checkpoints: checkpoints,
		progress:    progress,
	}

	deps := catalogsync.Dependencies{
		Store:       store,
		Photos:      photoStore,
		Checkpoints: checkpoints,
		Progress:    progress,
	}

	if withCatalog {
		token, err := resolveToken(cfg)
		if err != nil {
			store.Close()
			return nil, err
		}

		client := vk.NewClient(vk.ClientConfig{
			BaseURL:           cfg.Catalog.BaseURL,
			APIVersion:        cfg.Catalog.APIVersion,
			AccessToken:       token,
			Timeout:           cfg.Catalog.RequestTimeout,
			RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
			CoverQuality:      quality,
		}, log)

		deps.Catalog = vk.NewFetcher(client, cfg.Catalog.OwnerID, vk.RetryConfig{
			BaseDelay:             cfg.Retry.BaseDelay,
			MaxDelay:              cfg.Retry.MaxDelay,
			CollectionsMaxRetries: cfg.Retry.CollectionsMaxRetries,
			ProductsMaxRetries:    cfg.Retry.ProductsMaxRetries,
			PhotosMaxRetries:      cfg.Retry.PhotosMaxRetries,
			ShrinkFloor:           cfg.Retry.ShrinkFloor,
		}, log)

		deps.Downloader = downloader.NewBatchDownloader(client, photoStore, downloader.Config{
			BatchSize:  cfg.Download.BatchSize,
			BatchDelay: cfg.Download.BatchDelay,
			Timeout:    cfg.Download.DownloadTimeout,
		}, log)
	}

	a.orchestrator = catalogsync.New(deps, catalogsync.Options{
		CollectionsPageSize:      cfg.Sync.CollectionsPageSize,
		ProductsPageSize:         cfg.Sync.ProductsPageSize,
		MaxCollections:           cfg.Sync.MaxCollections,
		MaxProductsPerCollection: cfg.Sync.MaxProductsPerCollection,
		PageDelay:                cfg.Sync.PageDelay,
		PhotoQuality:             quality,
		ResolveConcurrency:       cfg.Sync.ResolveConcurrency,
	}, log)

	return a, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close catalog database")
	}
}

// resolveToken prefers the configured token and falls back to the stored
// profile
func resolveToken(cfg *config.Config) (string, error) {
	if cfg.Catalog.AccessToken != "" {
		return cfg.Catalog.AccessToken, nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return "", fmt.Errorf("failed to open token store: %w", err)
	}
	token, err := manager.AccessToken(profile)
	if errors.Is(err, auth.ErrTokenNotFound) {
		return "", fmt.Errorf("%w; run 'catalogsync auth set-token' or set CATALOGSYNC_ACCESS_TOKEN", err)
	}
	return token, err
}
