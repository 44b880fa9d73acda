package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 50, cfg.Sync.ProductsPageSize)
	assert.Equal(t, 200*time.Millisecond, cfg.Sync.PageDelay)
	assert.Equal(t, 10, cfg.Download.BatchSize)
	assert.Equal(t, 150*time.Millisecond, cfg.Download.BatchDelay)
	assert.Equal(t, 10, cfg.Retry.ShrinkFloor)
	assert.Equal(t, "high", cfg.Sync.PhotoQuality)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CATALOGSYNC_OWNER_ID", "-12345")
	t.Setenv("CATALOGSYNC_ACCESS_TOKEN", "vk1.a.token")
	t.Setenv("CATALOGSYNC_BATCH_SIZE", "5")
	t.Setenv("CATALOGSYNC_PHOTO_QUALITY", "LOW")
	t.Setenv("CATALOGSYNC_PHOTO_DIR", "/tmp/photos")
	t.Setenv("CATALOGSYNC_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, int64(-12345), cfg.Catalog.OwnerID)
	assert.Equal(t, "vk1.a.token", cfg.Catalog.AccessToken)
	assert.Equal(t, 5, cfg.Download.BatchSize)
	assert.Equal(t, "low", cfg.Sync.PhotoQuality)
	assert.Equal(t, "/tmp/photos", cfg.Storage.PhotoDirectory)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvInvalidValues(t *testing.T) {
	t.Setenv("CATALOGSYNC_OWNER_ID", "shop")
	t.Setenv("CATALOGSYNC_BATCH_SIZE", "ten")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CATALOGSYNC_OWNER_ID")
	assert.Contains(t, err.Error(), "CATALOGSYNC_BATCH_SIZE")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogsync.yaml")
	content := `
catalog:
  owner_id: -777
sync:
  products_page_size: 100
  photo_quality: original
download:
  batch_size: 20
  batch_delay: 100ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, int64(-777), cfg.Catalog.OwnerID)
	assert.Equal(t, 100, cfg.Sync.ProductsPageSize)
	assert.Equal(t, "original", cfg.Sync.PhotoQuality)
	assert.Equal(t, 20, cfg.Download.BatchSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Download.BatchDelay)
	// untouched keys keep defaults
	assert.Equal(t, 200*time.Millisecond, cfg.Sync.PageDelay)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing owner", mutate: func(c *Config) { c.Catalog.OwnerID = 0 }, wantErr: "owner ID"},
		{name: "bad quality", mutate: func(c *Config) { c.Sync.PhotoQuality = "huge" }, wantErr: "photo quality"},
		{name: "batch too large", mutate: func(c *Config) { c.Download.BatchSize = 100 }, wantErr: "should not exceed"},
		{name: "zero shrink floor", mutate: func(c *Config) { c.Retry.ShrinkFloor = 0 }, wantErr: "shrink floor"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Catalog.OwnerID = -1
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"owner-id":      int64(-99),
		"batch-size":    7,
		"photo-quality": "Medium",
		"max-products":  0,
	})

	assert.Equal(t, int64(-99), cfg.Catalog.OwnerID)
	assert.Equal(t, 7, cfg.Download.BatchSize)
	assert.Equal(t, "medium", cfg.Sync.PhotoQuality)
	assert.Equal(t, 5000, cfg.Sync.MaxProductsPerCollection, "zero flags are ignored")
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Catalog.OwnerID = -5
	cfg.Catalog.AccessToken = "secret"

	require.NoError(t, cfg.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, int64(-5), loaded.Catalog.OwnerID)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("catalog:\n  owner_id: -1\ndownload:\n  batch_size: 3\n"), 0644))
	t.Setenv("CATALOGSYNC_BATCH_SIZE", "4")

	cfg, err := Load(path, map[string]interface{}{"batch-size": 5})
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Download.BatchSize)

	cfg, err = Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Download.BatchSize)
}
