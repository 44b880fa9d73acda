package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the catalog mirror
type Config struct {
	// Catalog source connection
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`

	// Retry and backoff policy for catalog calls
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Pagination and extraction settings
	Sync SyncConfig `yaml:"sync" json:"sync"`

	// Photo download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Local storage locations
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// CatalogConfig holds catalog API configuration
type CatalogConfig struct {
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	APIVersion        string        `yaml:"api_version" json:"api_version"`
	OwnerID           int64         `yaml:"owner_id" json:"owner_id"`
	AccessToken       string        `yaml:"access_token" json:"-"`
	RequestTimeout    time.Duration `yaml:"request_timeout" json:"request_timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
}

// RetryConfig holds the retry policy shared by all catalog call sites
type RetryConfig struct {
	BaseDelay             time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay              time.Duration `yaml:"max_delay" json:"max_delay"`
	CollectionsMaxRetries int           `yaml:"collections_max_retries" json:"collections_max_retries"`
	ProductsMaxRetries    int           `yaml:"products_max_retries" json:"products_max_retries"`
	PhotosMaxRetries      int           `yaml:"photos_max_retries" json:"photos_max_retries"`
	ShrinkFloor           int           `yaml:"shrink_floor" json:"shrink_floor"`
}

// SyncConfig holds pagination and photo selection settings
type SyncConfig struct {
	CollectionsPageSize      int           `yaml:"collections_page_size" json:"collections_page_size"`
	ProductsPageSize         int           `yaml:"products_page_size" json:"products_page_size"`
	MaxCollections           int           `yaml:"max_collections" json:"max_collections"`
	MaxProductsPerCollection int           `yaml:"max_products_per_collection" json:"max_products_per_collection"`
	PageDelay                time.Duration `yaml:"page_delay" json:"page_delay"`
	PhotoQuality             string        `yaml:"photo_quality" json:"photo_quality"`
	ResolveConcurrency       int           `yaml:"resolve_concurrency" json:"resolve_concurrency"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	BatchSize       int           `yaml:"batch_size" json:"batch_size"`
	BatchDelay      time.Duration `yaml:"batch_delay" json:"batch_delay"`
	DownloadTimeout time.Duration `yaml:"download_timeout" json:"download_timeout"`
}

// StorageConfig holds local storage locations
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path" json:"database_path"`
	PhotoDirectory string `yaml:"photo_directory" json:"photo_directory"`
	StateDirectory string `yaml:"state_directory" json:"state_directory"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			BaseURL:           "https://api.vk.com/method",
			APIVersion:        "5.199",
			RequestTimeout:    30 * time.Second,
			RequestsPerSecond: 3,
		},
		Retry: RetryConfig{
			BaseDelay:             time.Second,
			MaxDelay:              2 * time.Minute,
			CollectionsMaxRetries: 5,
			ProductsMaxRetries:    5,
			PhotosMaxRetries:      3,
			ShrinkFloor:           10,
		},
		Sync: SyncConfig{
			CollectionsPageSize:      100,
			ProductsPageSize:         50,
			MaxCollections:           1000,
			MaxProductsPerCollection: 5000,
			PageDelay:                200 * time.Millisecond,
			PhotoQuality:             "high",
			ResolveConcurrency:       5,
		},
		Download: DownloadConfig{
			BatchSize:       10,
			BatchDelay:      150 * time.Millisecond,
			DownloadTimeout: 60 * time.Second,
		},
		Storage: StorageConfig{
			DatabasePath:   "./data/catalog.db",
			PhotoDirectory: "./data/photos",
			StateDirectory: "./data/state",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if baseURL := os.Getenv("CATALOGSYNC_BASE_URL"); baseURL != "" {
		c.Catalog.BaseURL = baseURL
	}
	if token := os.Getenv("CATALOGSYNC_ACCESS_TOKEN"); token != "" {
		c.Catalog.AccessToken = token
	}
	if ownerID := os.Getenv("CATALOGSYNC_OWNER_ID"); ownerID != "" {
		val, err := strconv.ParseInt(ownerID, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid CATALOGSYNC_OWNER_ID: %w", err))
		} else {
			c.Catalog.OwnerID = val
		}
	}
	if rps := os.Getenv("CATALOGSYNC_REQUESTS_PER_SECOND"); rps != "" {
		val, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid CATALOGSYNC_REQUESTS_PER_SECOND: %w", err))
		} else if val > 0 {
			c.Catalog.RequestsPerSecond = val
		}
	}

	if batch := os.Getenv("CATALOGSYNC_BATCH_SIZE"); batch != "" {
		val, err := strconv.Atoi(batch)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid CATALOGSYNC_BATCH_SIZE: %w", err))
		} else if val > 0 {
			c.Download.BatchSize = val
		}
	}

	if quality := os.Getenv("CATALOGSYNC_PHOTO_QUALITY"); quality != "" {
		c.Sync.PhotoQuality = strings.ToLower(quality)
	}

	if dbPath := os.Getenv("CATALOGSYNC_DATABASE_PATH"); dbPath != "" {
		c.Storage.DatabasePath = dbPath
	}
	if photoDir := os.Getenv("CATALOGSYNC_PHOTO_DIR"); photoDir != "" {
		c.Storage.PhotoDirectory = photoDir
	}

	if logLevel := os.Getenv("CATALOGSYNC_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		"catalogsync.yaml",
		"catalogsync.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "catalogsync", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "catalogsync", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid.
// The access token is checked by the commands that talk to the catalog
func (c *Config) Validate() error {
	var errs []error

	if c.Catalog.BaseURL == "" {
		errs = append(errs, errors.New("catalog base URL is required"))
	}
	if c.Catalog.OwnerID == 0 {
		errs = append(errs, errors.New("catalog owner ID is required"))
	}
	if c.Catalog.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.Retry.BaseDelay < 0 {
		errs = append(errs, errors.New("retry base delay cannot be negative"))
	}
	if c.Retry.CollectionsMaxRetries <= 0 || c.Retry.ProductsMaxRetries <= 0 || c.Retry.PhotosMaxRetries <= 0 {
		errs = append(errs, errors.New("max retries must be positive"))
	}
	if c.Retry.ShrinkFloor <= 0 {
		errs = append(errs, errors.New("shrink floor must be positive"))
	}

	if c.Sync.CollectionsPageSize <= 0 || c.Sync.ProductsPageSize <= 0 {
		errs = append(errs, errors.New("page sizes must be positive"))
	}
	if c.Sync.MaxCollections <= 0 || c.Sync.MaxProductsPerCollection <= 0 {
		errs = append(errs, errors.New("hard caps must be positive"))
	}
	validQualities := map[string]bool{
		"original": true, "high": true, "medium": true, "low": true,
	}
	if !validQualities[strings.ToLower(c.Sync.PhotoQuality)] {
		errs = append(errs, errors.New("invalid photo quality"))
	}

	if c.Download.BatchSize <= 0 {
		errs = append(errs, errors.New("download batch size must be positive"))
	}
	if c.Download.BatchSize > 50 {
		errs = append(errs, errors.New("download batch size should not exceed 50"))
	}

	if c.Storage.DatabasePath == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if c.Storage.PhotoDirectory == "" {
		errs = append(errs, errors.New("photo directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if ownerID, ok := flags["owner-id"].(int64); ok && ownerID != 0 {
		c.Catalog.OwnerID = ownerID
	}
	if token, ok := flags["access-token"].(string); ok && token != "" {
		c.Catalog.AccessToken = token
	}
	if batch, ok := flags["batch-size"].(int); ok && batch > 0 {
		c.Download.BatchSize = batch
	}
	if quality, ok := flags["photo-quality"].(string); ok && quality != "" {
		c.Sync.PhotoQuality = strings.ToLower(quality)
	}
	if maxProducts, ok := flags["max-products"].(int); ok && maxProducts > 0 {
		c.Sync.MaxProductsPerCollection = maxProducts
	}
	if dbPath, ok := flags["database"].(string); ok && dbPath != "" {
		c.Storage.DatabasePath = dbPath
	}
	if photoDir, ok := flags["photo-dir"].(string); ok && photoDir != "" {
		c.Storage.PhotoDirectory = photoDir
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".catalogsync.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
