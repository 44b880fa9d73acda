package vk

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"catalogsync/pkg/models"
	"catalogsync/pkg/photos"
)

// envelope is the top-level shape of every API response
type envelope struct {
	Response json.RawMessage `json:"response"`
	Error    *APIError       `json:"error"`
}

// APIError is the error object the API embeds in a 200 response
type APIError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

// listResponse is the shape of paginated responses
type listResponse[T any] struct {
	Count int `json:"count"`
	Items []T `json:"items"`
}

// Album is a product collection as sent by the API
type Album struct {
	ID    int64           `json:"id"`
	Title string          `json:"title"`
	Count int             `json:"count"`
	Photo json.RawMessage `json:"photo,omitempty"`
}

// Item is a product as sent by the API
type Item struct {
	ID          int64             `json:"id"`
	OwnerID     int64             `json:"owner_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Price       *ItemPrice        `json:"price,omitempty"`
	ThumbPhoto  string            `json:"thumb_photo"`
	Photos      []json.RawMessage `json:"photos,omitempty"`
}

// ItemPrice is the price object of an item. Amount is in minor units
type ItemPrice struct {
	Amount   string `json:"amount"`
	Currency *struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"currency,omitempty"`
	Text string `json:"text"`
}

// toCollection converts an album. SortOrder is assigned by the caller
func (a Album) toCollection(q photos.Quality) models.Collection {
	c := models.Collection{
		ID:        a.ID,
		Title:     a.Title,
		ItemCount: a.Count,
	}
	if len(a.Photo) > 0 {
		if u := photos.SelectURL(a.Photo, q); u != "" {
			c.CoverPhotoURL = lo.ToPtr(u)
		}
	}
	return c
}

// toProduct converts an item belonging to collectionID
func (it Item) toProduct(collectionID int64) models.Product {
	p := models.Product{
		ID:           it.ID,
		CollectionID: collectionID,
		Title:        it.Title,
		Description:  it.Description,
		RawPhotos:    it.Photos,
	}
	if it.ThumbPhoto != "" {
		p.CoverPhotoURL = lo.ToPtr(it.ThumbPhoto)
	}
	if it.Price != nil {
		if amount, err := strconv.ParseInt(strings.TrimSpace(it.Price.Amount), 10, 64); err == nil {
			p.Price.AmountMinor = lo.ToPtr(amount)
		}
		if it.Price.Currency != nil && it.Price.Currency.Name != "" {
			p.Price.CurrencyCode = lo.ToPtr(it.Price.Currency.Name)
		}
		if it.Price.Text != "" {
			p.Price.DisplayText = lo.ToPtr(it.Price.Text)
		}
	}
	return p
}
