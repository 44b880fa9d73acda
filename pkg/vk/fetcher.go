package vk

import (
	"context"
	"time"

	"catalogsync/pkg/logger"
	"catalogsync/pkg/models"
	"catalogsync/pkg/retry"
)

// API is the set of single-shot calls the fetcher retries
type API interface {
	ListCollections(ctx context.Context, ownerID int64, offset, count int) (models.Page[models.Collection], error)
	ListProducts(ctx context.Context, ownerID, albumID int64, offset, count int) (models.Page[models.Product], error)
	GetProduct(ctx context.Context, ownerID, itemID, collectionID int64) (*models.Product, error)
	GetPhotosByID(ctx context.Context, ownerID int64, ids []int64) ([]models.RawPhoto, error)
}

// RetryConfig sets the policy of every call site
type RetryConfig struct {
	BaseDelay             time.Duration
	MaxDelay              time.Duration
	CollectionsMaxRetries int
	ProductsMaxRetries    int
	PhotosMaxRetries      int
	ShrinkFloor           int
}

// DefaultRetryConfig returns the policy used when none is configured
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		BaseDelay:             time.Second,
		MaxDelay:              2 * time.Minute,
		CollectionsMaxRetries: 5,
		ProductsMaxRetries:    5,
		PhotosMaxRetries:      3,
		ShrinkFloor:           10,
	}
}

// Fetcher wraps the API of one catalog owner with the shared retry policy.
// Only product listing shrinks its page size
type Fetcher struct {
	api         API
	ownerID     int64
	collections *retry.Policy
	products    *retry.Policy
	product     *retry.Policy
	photos      *retry.Policy
}

// NewFetcher creates a retrying fetcher for ownerID
func NewFetcher(api API, ownerID int64, cfg RetryConfig, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "fetcher")

	policy := func(name string, maxRetries int) *retry.Policy {
		return retry.NewPolicy(name, maxRetries, cfg.BaseDelay, cfg.MaxDelay).WithLogger(log)
	}

	return &Fetcher{
		api:         api,
		ownerID:     ownerID,
		collections: policy(MethodGetAlbums, cfg.CollectionsMaxRetries),
		products:    policy(MethodGet, cfg.ProductsMaxRetries).WithShrink(cfg.ShrinkFloor),
		product:     policy(MethodGetByID, cfg.PhotosMaxRetries),
		photos:      policy(MethodPhotosByID, cfg.PhotosMaxRetries),
	}
}

// WithSleep replaces the backoff sleep of every policy, used by tests
func (f *Fetcher) WithSleep(sleep retry.SleepFunc) *Fetcher {
	cp := *f
	cp.collections = f.collections.WithSleep(sleep)
	cp.products = f.products.WithSleep(sleep)
	cp.product = f.product.WithSleep(sleep)
	cp.photos = f.photos.WithSleep(sleep)
	return &cp
}

// ListCollections fetches one page of collections
func (f *Fetcher) ListCollections(ctx context.Context, offset, count int) (models.Page[models.Collection], int, error) {
	return retry.Do(ctx, f.collections, count, func(ctx context.Context, n int) (models.Page[models.Collection], error) {
		return f.api.ListCollections(ctx, f.ownerID, offset, n)
	})
}

// ListProducts fetches one page of products. The returned count is the page
// size that finally succeeded
func (f *Fetcher) ListProducts(ctx context.Context, collectionID int64, offset, count int) (models.Page[models.Product], int, error) {
	return retry.Do(ctx, f.products, count, func(ctx context.Context, n int) (models.Page[models.Product], error) {
		return f.api.ListProducts(ctx, f.ownerID, collectionID, offset, n)
	})
}

// GetProduct fetches one product with its full photo payload
func (f *Fetcher) GetProduct(ctx context.Context, collectionID, productID int64) (*models.Product, error) {
	p, _, err := retry.Do(ctx, f.product, 1, func(ctx context.Context, _ int) (*models.Product, error) {
		return f.api.GetProduct(ctx, f.ownerID, productID, collectionID)
	})
	return p, err
}

// GetPhotosByID resolves bare photo IDs
func (f *Fetcher) GetPhotosByID(ctx context.Context, ids []int64) ([]models.RawPhoto, error) {
	resolved, _, err := retry.Do(ctx, f.photos, len(ids), func(ctx context.Context, _ int) ([]models.RawPhoto, error) {
		return f.api.GetPhotosByID(ctx, f.ownerID, ids)
	})
	return resolved, err
}
