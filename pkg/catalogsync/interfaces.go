package catalogsync

import (
	"context"

	"catalogsync/internal/downloader"
	"catalogsync/pkg/models"
)

// Catalog is the retrying view of the catalog source
type Catalog interface {
	ListCollections(ctx context.Context, offset, count int) (models.Page[models.Collection], int, error)
	ListProducts(ctx context.Context, collectionID int64, offset, count int) (models.Page[models.Product], int, error)
	GetProduct(ctx context.Context, collectionID, productID int64) (*models.Product, error)
	GetPhotosByID(ctx context.Context, ids []int64) ([]models.RawPhoto, error)
}

// Store persists synced records
type Store interface {
	SaveCollection(ctx context.Context, c models.Collection) error
	SaveProduct(ctx context.Context, p models.Product) error
	SavePhotos(ctx context.Context, productID int64, photos []models.StoredPhoto) error
	Clear(ctx context.Context) error
}

// PhotoStorage holds downloaded photo files
type PhotoStorage interface {
	downloader.PhotoStorage
	Clear() error
}

// Downloader downloads the photos of a set of products
type Downloader interface {
	DownloadAll(ctx context.Context, plans []downloader.PhotoPlan, onSettled func(downloader.Outcome)) ([]downloader.Outcome, error)
}

// Checkpointer persists progress snapshots
type Checkpointer interface {
	Save(progress models.SyncProgress) error
}
