package photos

import (
	"bytes"
	"encoding/json"
	"strconv"

	"catalogsync/pkg/models"
)

// Size is one size variant of a photo
type Size struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Src    string `json:"src"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Link returns the variant URL. Older payloads use src instead of url
func (s Size) Link() string {
	if s.URL != "" {
		return s.URL
	}
	return s.Src
}

// Descriptor is a decoded raw photo reference
type Descriptor struct {
	ID    *int64
	URL   string
	Sizes []Size
	// Bare is set when the source sent only a photo ID
	Bare bool
}

type rawObject struct {
	ID    *int64 `json:"id"`
	URL   string `json:"url"`
	Src   string `json:"src"`
	Sizes []Size `json:"sizes"`
}

// Decode reads one raw photo descriptor. It accepts a numeric ID, a numeric
// string, a URL string or an object with an id and size variants
func Decode(raw models.RawPhoto) (Descriptor, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Descriptor{}, false
	}

	switch trimmed[0] {
	case '{':
		var obj rawObject
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return Descriptor{}, false
		}
		d := Descriptor{ID: obj.ID, URL: obj.URL, Sizes: obj.Sizes}
		if d.URL == "" {
			d.URL = obj.Src
		}
		if d.URL == "" && len(d.Sizes) == 0 {
			d.Bare = d.ID != nil
		}
		return d, d.ID != nil || d.URL != "" || len(d.Sizes) > 0

	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil || s == "" {
			return Descriptor{}, false
		}
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Descriptor{ID: &id, Bare: true}, true
		}
		return Descriptor{URL: s}, true

	default:
		var id int64
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return Descriptor{}, false
		}
		return Descriptor{ID: &id, Bare: true}, true
	}
}

// Variants returns every URL the descriptor carries
func (d Descriptor) Variants() []string {
	var urls []string
	if d.URL != "" {
		urls = append(urls, d.URL)
	}
	for _, s := range d.Sizes {
		if link := s.Link(); link != "" {
			urls = append(urls, link)
		}
	}
	return urls
}

// Pick returns the representative URL of the descriptor for a quality
func (d Descriptor) Pick(q Quality) string {
	if len(d.Sizes) > 0 {
		if u := SelectVariant(d.Sizes, q); u != "" {
			return u
		}
	}
	return d.URL
}

// SelectURL decodes a raw photo and returns its representative URL
func SelectURL(raw models.RawPhoto, q Quality) string {
	d, ok := Decode(raw)
	if !ok {
		return ""
	}
	return d.Pick(q)
}

// PendingIDs lists the photo IDs that were sent without any URL and must be
// resolved before extraction
func PendingIDs(raw []models.RawPhoto) []int64 {
	var ids []int64
	for _, r := range raw {
		if d, ok := Decode(r); ok && d.Bare {
			ids = append(ids, *d.ID)
		}
	}
	return ids
}

// ReplaceResolved returns a new descriptor list where every bare ID with a
// resolved object is replaced by that object. The input is not modified
func ReplaceResolved(raw []models.RawPhoto, resolved []models.RawPhoto) []models.RawPhoto {
	byID := make(map[int64]models.RawPhoto, len(resolved))
	for _, r := range resolved {
		if d, ok := Decode(r); ok && d.ID != nil && !d.Bare {
			byID[*d.ID] = r
		}
	}

	out := make([]models.RawPhoto, len(raw))
	for i, r := range raw {
		out[i] = r
		if d, ok := Decode(r); ok && d.Bare {
			if obj, found := byID[*d.ID]; found {
				out[i] = obj
			}
		}
	}
	return out
}
