package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"catalogsync/internal/store/sqlite/migrations"
	"catalogsync/pkg/models"
)

// Stats holds row counts of the catalog tables
type Stats struct {
	Collections int
	Products    int
	Photos      int
}

// Store is the SQLite-backed catalog store. It holds collections, their
// products and the photo records produced by a sync
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the catalog database at dbPath and
// applies pending migrations
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("database path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// SaveCollection stores or updates a collection
func (s *Store) SaveCollection(ctx context.Context, c models.Collection) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (id, title, cover_photo_url, item_count, sort_order, synced_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			cover_photo_url = excluded.cover_photo_url,
			item_count = excluded.item_count,
			sort_order = excluded.sort_order,
			synced_at = excluded.synced_at
	`, c.ID, c.Title, nullString(c.CoverPhotoURL), c.ItemCount, c.SortOrder, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving collection %d: %w", c.ID, err)
	}
	return nil
}

// SaveProduct stores or updates a product within its collection. The raw
// photo payload is kept as JSON alongside the row
func (s *Store) SaveProduct(ctx context.Context, p models.Product) error {
	rawPhotos := p.RawPhotos
	if rawPhotos == nil {
		rawPhotos = []models.RawPhoto{}
	}
	photosJSON, err := json.Marshal(rawPhotos)
	if err != nil {
		return fmt.Errorf("marshalling photos of product %d: %w", p.ID, err)
	}

	var amount sql.NullInt64
	if p.Price.AmountMinor != nil {
		amount = sql.NullInt64{Int64: *p.Price.AmountMinor, Valid: true}
	}
	currency := nullString(p.Price.CurrencyCode)
	text := nullString(p.Price.DisplayText)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (id, collection_id, title, description, price_amount_minor,
			price_currency, price_text, cover_photo_url, raw_photos, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection_id, id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			price_amount_minor = excluded.price_amount_minor,
			price_currency = excluded.price_currency,
			price_text = excluded.price_text,
			cover_photo_url = excluded.cover_photo_url,
			raw_photos = excluded.raw_photos,
			synced_at = excluded.synced_at
	`, p.ID, p.CollectionID, p.Title, p.Description, amount, currency, text,
		nullString(p.CoverPhotoURL), string(photosJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving product %d: %w", p.ID, err)
	}
	return nil
}

// SavePhotos replaces the photo records of a product
func (s *Store) SavePhotos(ctx context.Context, productID int64, photos []models.StoredPhoto) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM photos WHERE product_id = ?", productID); err != nil {
		return fmt.Errorf("deleting photos of product %d: %w", productID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO photos (product_id, role, position, url, storage_key)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, photo := range photos {
		if _, err := stmt.ExecContext(ctx, productID, string(photo.Role), photo.Position,
			photo.URL, photo.StorageKey); err != nil {
			return fmt.Errorf("saving photo %s of product %d: %w", photo.StorageKey, productID, err)
		}
	}

	return tx.Commit()
}

// Collections returns the stored collections in display order
func (s *Store) Collections(ctx context.Context) ([]models.Collection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, cover_photo_url, item_count, sort_order
		FROM collections ORDER BY sort_order, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	var collections []models.Collection
	for rows.Next() {
		var c models.Collection
		var cover sql.NullString
		if err := rows.Scan(&c.ID, &c.Title, &cover, &c.ItemCount, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		c.CoverPhotoURL = stringPtr(cover)
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// Products returns the stored products of a collection in insertion order
func (s *Store) Products(ctx context.Context, collectionID int64) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection_id, title, description, price_amount_minor,
			price_currency, price_text, cover_photo_url, raw_photos
		FROM products WHERE collection_id = ? ORDER BY rowid
	`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		var amount sql.NullInt64
		var currency, text, cover sql.NullString
		var photosJSON string
		if err := rows.Scan(&p.ID, &p.CollectionID, &p.Title, &p.Description, &amount,
			&currency, &text, &cover, &photosJSON); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		p.Price = models.Price{CurrencyCode: stringPtr(currency), DisplayText: stringPtr(text)}
		if amount.Valid {
			v := amount.Int64
			p.Price.AmountMinor = &v
		}
		p.CoverPhotoURL = stringPtr(cover)
		if err := json.Unmarshal([]byte(photosJSON), &p.RawPhotos); err != nil {
			return nil, fmt.Errorf("unmarshaling photos of product %d: %w", p.ID, err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Photos returns the photo records of a product, cover first
func (s *Store) Photos(ctx context.Context, productID int64) ([]models.StoredPhoto, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, position, url, storage_key FROM photos
		WHERE product_id = ?
		ORDER BY CASE role WHEN 'cover' THEN 0 ELSE 1 END, position
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("querying photos: %w", err)
	}
	defer rows.Close()

	var photos []models.StoredPhoto
	for rows.Next() {
		var photo models.StoredPhoto
		var role string
		if err := rows.Scan(&role, &photo.Position, &photo.URL, &photo.StorageKey); err != nil {
			return nil, fmt.Errorf("scanning photo: %w", err)
		}
		photo.Role = models.PhotoRole(role)
		photos = append(photos, photo)
	}
	return photos, rows.Err()
}

// Stats counts the stored rows
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM collections),
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM photos)
	`)
	if err := row.Scan(&stats.Collections, &stats.Products, &stats.Photos); err != nil {
		return Stats{}, fmt.Errorf("counting rows: %w", err)
	}
	return stats, nil
}

// Clear removes every collection, product and photo record
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"photos", "products", "collections"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
