package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogsync/pkg/models"
	"catalogsync/pkg/models/modelstesting"
)

// setupTestStore creates a temporary SQLite store for testing
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})

	return store
}

func TestNewStoreRequiresPath(t *testing.T) {
	_, err := NewStore("")
	assert.Error(t, err)
}

func TestNewStoreReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveCollection(ctx, modelstesting.FakeCollection()))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	stats, err := reopened.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Collections)
	assert.Equal(t, path, reopened.Path())
}

func TestSaveCollectionUpserts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := modelstesting.FakeCollection(func(c *models.Collection) { c.ID = 1; c.SortOrder = 1 })
	second := modelstesting.FakeCollection(func(c *models.Collection) {
		c.ID = 2
		c.SortOrder = 0
		c.CoverPhotoURL = nil
	})
	require.NoError(t, store.SaveCollection(ctx, first))
	require.NoError(t, store.SaveCollection(ctx, second))

	first.Title = "renamed"
	require.NoError(t, store.SaveCollection(ctx, first))

	collections, err := store.Collections(ctx)
	require.NoError(t, err)
	require.Len(t, collections, 2)
	assert.Equal(t, int64(2), collections[0].ID, "ordered by sort order")
	assert.Nil(t, collections[0].CoverPhotoURL)
	assert.Equal(t, "renamed", collections[1].Title)
	assert.Equal(t, first.CoverPhotoURL, collections[1].CoverPhotoURL)
}

func TestSaveProductRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	collection := modelstesting.FakeCollection()
	require.NoError(t, store.SaveCollection(ctx, collection))

	withPrice := modelstesting.FakeProduct(func(p *models.Product) { p.CollectionID = collection.ID; p.ID = 10 })
	noPrice := modelstesting.FakeProduct(func(p *models.Product) {
		p.CollectionID = collection.ID
		p.ID = 5
		p.Price = models.Price{}
		p.RawPhotos = nil
	})
	require.NoError(t, store.SaveProduct(ctx, withPrice))
	require.NoError(t, store.SaveProduct(ctx, noPrice))

	products, err := store.Products(ctx, collection.ID)
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, int64(10), products[0].ID, "insertion order is kept")
	require.NotNil(t, products[0].Price.AmountMinor)
	assert.Equal(t, *withPrice.Price.AmountMinor, *products[0].Price.AmountMinor)
	assert.Equal(t, "RUB", *products[0].Price.CurrencyCode)
	assert.Len(t, products[0].RawPhotos, len(withPrice.RawPhotos))
	assert.JSONEq(t, string(withPrice.RawPhotos[0]), string(products[0].RawPhotos[0]))

	assert.Equal(t, models.Price{}, products[1].Price)
	assert.Empty(t, products[1].RawPhotos)
}

func TestSaveProductRequiresCollection(t *testing.T) {
	store := setupTestStore(t)

	err := store.SaveProduct(context.Background(), modelstesting.FakeProduct(func(p *models.Product) {
		p.CollectionID = 999
	}))
	assert.Error(t, err, "foreign key on collection_id")
}

func TestSameProductInTwoCollections(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2} {
		require.NoError(t, store.SaveCollection(ctx, modelstesting.FakeCollection(func(c *models.Collection) { c.ID = id })))
		require.NoError(t, store.SaveProduct(ctx, modelstesting.FakeProduct(func(p *models.Product) {
			p.ID = 77
			p.CollectionID = id
		})))
	}

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Products)
}

func TestSavePhotosReplaces(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SavePhotos(ctx, 42, []models.StoredPhoto{
		{Role: models.PhotoRoleGallery, Position: 1, URL: "https://cdn/b.jpg", StorageKey: "products/42/gallery/1.jpg"},
		{Role: models.PhotoRoleCover, Position: 0, URL: "https://cdn/c.jpg", StorageKey: "products/42/cover.jpg"},
		{Role: models.PhotoRoleGallery, Position: 0, URL: "https://cdn/a.jpg", StorageKey: "products/42/gallery/0.jpg"},
	}))

	photos, err := store.Photos(ctx, 42)
	require.NoError(t, err)
	require.Len(t, photos, 3)
	assert.Equal(t, models.PhotoRoleCover, photos[0].Role)
	assert.Equal(t, []string{"https://cdn/c.jpg", "https://cdn/a.jpg", "https://cdn/b.jpg"},
		lo.Map(photos, func(p models.StoredPhoto, _ int) string { return p.URL }))

	require.NoError(t, store.SavePhotos(ctx, 42, []models.StoredPhoto{
		{Role: models.PhotoRoleCover, Position: 0, URL: "https://cdn/new.jpg", StorageKey: "products/42/cover.jpg"},
	}))
	photos, err = store.Photos(ctx, 42)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, "https://cdn/new.jpg", photos[0].URL)
}

func TestSavePhotosRejectsUnknownRole(t *testing.T) {
	store := setupTestStore(t)

	err := store.SavePhotos(context.Background(), 1, []models.StoredPhoto{{Role: "thumbnail", URL: "u", StorageKey: "k"}})
	assert.Error(t, err)

	photos, err := store.Photos(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, photos, "failed batch is rolled back")
}

func TestClear(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	collection := modelstesting.FakeCollection()
	require.NoError(t, store.SaveCollection(ctx, collection))
	product := modelstesting.FakeProduct(func(p *models.Product) { p.CollectionID = collection.ID })
	require.NoError(t, store.SaveProduct(ctx, product))
	require.NoError(t, store.SavePhotos(ctx, product.ID, []models.StoredPhoto{
		{Role: models.PhotoRoleCover, URL: "https://cdn/c.jpg", StorageKey: "products/1/cover.jpg"},
	}))

	require.NoError(t, store.Clear(ctx))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}
