package models

import (
	"encoding/json"
	"time"
)

// Collection is a named grouping of catalog products
type Collection struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	CoverPhotoURL *string `json:"cover_photo_url,omitempty"`
	ItemCount     int     `json:"item_count"`
	// SortOrder is the 0-based position in the source listing, not the source ID
	SortOrder int `json:"sort_order"`
}

// Price of a product. Every part is optional on the source
type Price struct {
	AmountMinor  *int64  `json:"amount_minor,omitempty"`
	CurrencyCode *string `json:"currency_code,omitempty"`
	DisplayText  *string `json:"display_text,omitempty"`
}

// RawPhoto is one unprocessed photo descriptor as returned by the source:
// a bare numeric photo ID, an object with size variants, or a URL string
type RawPhoto = json.RawMessage

// Product is a catalog item within one collection
type Product struct {
	ID            int64      `json:"id"`
	CollectionID  int64      `json:"collection_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Price         Price      `json:"price"`
	CoverPhotoURL *string    `json:"cover_photo_url,omitempty"`
	RawPhotos     []RawPhoto `json:"raw_photos,omitempty"`
}

// PhotoCandidate is one gallery photo picked by the extractor
type PhotoCandidate struct {
	URL      string `json:"url"`
	SourceID *int64 `json:"source_id,omitempty"`
}

// PhotoRole distinguishes a product cover from its gallery photos
type PhotoRole string

const (
	PhotoRoleCover   PhotoRole = "cover"
	PhotoRoleGallery PhotoRole = "gallery"
)

// StoredPhoto links a product photo URL to the key photo storage saved it under
type StoredPhoto struct {
	Role       PhotoRole `json:"role"`
	Position   int       `json:"position"`
	URL        string    `json:"url"`
	StorageKey string    `json:"storage_key"`
}

// SyncStatus is the state of the sync job
type SyncStatus string

const (
	StatusIdle      SyncStatus = "idle"
	StatusSyncing   SyncStatus = "syncing"
	StatusCompleted SyncStatus = "completed"
	StatusError     SyncStatus = "error"
)

// IsTerminal reports whether a new job may start from this status
func (s SyncStatus) IsTerminal() bool {
	return s != StatusSyncing
}

// SyncProgress is a snapshot of the sync job progress
type SyncProgress struct {
	JobID            string     `json:"job_id,omitempty"`
	Status           SyncStatus `json:"status"`
	CollectionsDone  int        `json:"collections_done"`
	CollectionsTotal int        `json:"collections_total"`
	ProductsDone     int        `json:"products_done"`
	ProductsTotal    int        `json:"products_total"`
	PhotosDone       int        `json:"photos_done"`
	PhotosTotal      int        `json:"photos_total"`
	Message          *string    `json:"message,omitempty"`
	Error            *string    `json:"error,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy so callers never share pointers with the live record
func (p SyncProgress) Clone() SyncProgress {
	cp := p
	if p.Message != nil {
		m := *p.Message
		cp.Message = &m
	}
	if p.Error != nil {
		e := *p.Error
		cp.Error = &e
	}
	if p.StartedAt != nil {
		s := *p.StartedAt
		cp.StartedAt = &s
	}
	if p.CompletedAt != nil {
		c := *p.CompletedAt
		cp.CompletedAt = &c
	}
	return cp
}

// Page is one slice of a paginated listing
type Page[T any] struct {
	// Total is the item count reported by the source for the whole listing
	Total int
	Items []T
}
