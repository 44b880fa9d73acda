package photos

import (
	"github.com/samber/lo"

	"catalogsync/pkg/models"
)

// Extractor turns a product's raw photo descriptors into its gallery
type Extractor struct {
	Quality Quality
	Rules   []Rule
}

// NewExtractor creates an extractor using the default equivalence chain
func NewExtractor(q Quality) *Extractor {
	return &Extractor{Quality: q, Rules: DefaultRules}
}

// Candidates returns the deduplicated gallery of a product in source order.
// The cover photo and every size variant of it are excluded; bare photo IDs
// without a URL are skipped
func (e *Extractor) Candidates(p models.Product) []models.PhotoCandidate {
	rules := e.Rules
	if len(rules) == 0 {
		rules = DefaultRules
	}

	var cover *models.PhotoCandidate
	if p.CoverPhotoURL != nil && *p.CoverPhotoURL != "" {
		cover = &models.PhotoCandidate{URL: *p.CoverPhotoURL}
	}

	var gallery []models.PhotoCandidate
	// variants of every kept photo, parallel to gallery
	var kept [][]models.PhotoCandidate
	for _, raw := range p.RawPhotos {
		d, ok := Decode(raw)
		if !ok || d.Bare {
			continue
		}
		picked := d.Pick(e.Quality)
		if picked == "" {
			continue
		}

		variants := lo.Map(d.Variants(), func(u string, _ int) models.PhotoCandidate {
			return models.PhotoCandidate{URL: u, SourceID: d.ID}
		})
		if cover != nil && anyEquivalent(rules, []models.PhotoCandidate{*cover}, variants) {
			continue
		}
		if lo.ContainsBy(kept, func(prev []models.PhotoCandidate) bool {
			return anyEquivalent(rules, prev, variants)
		}) {
			continue
		}

		gallery = append(gallery, models.PhotoCandidate{URL: picked, SourceID: d.ID})
		kept = append(kept, variants)
	}
	return gallery
}

// anyEquivalent reports whether some photo of a matches some photo of b
func anyEquivalent(rules []Rule, a, b []models.PhotoCandidate) bool {
	for _, x := range a {
		for _, y := range b {
			if Equivalent(rules, x, y) {
				return true
			}
		}
	}
	return false
}

// Extract returns the gallery URLs of a product
func (e *Extractor) Extract(p models.Product) []string {
	return lo.Map(e.Candidates(p), func(c models.PhotoCandidate, _ int) string {
		return c.URL
	})
}
