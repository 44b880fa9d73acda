package photos

import (
	"fmt"
	"strings"
)

// Quality is the preferred size of a photo when several variants exist
type Quality string

const (
	QualityOriginal Quality = "original"
	QualityHigh     Quality = "high"
	QualityMedium   Quality = "medium"
	QualityLow      Quality = "low"
)

// Size tags in order of preference. The source tags its variants with a
// single letter; w is the largest and s the smallest
var qualityTags = map[Quality][]string{
	QualityOriginal: {"w", "z", "y", "x", "r", "q", "p", "o", "m", "s"},
	QualityHigh:     {"z", "y", "x", "w", "r", "q", "p", "o", "m", "s"},
	QualityMedium:   {"x", "y", "r", "q", "p", "o", "m", "s", "z", "w"},
	QualityLow:      {"s", "m", "o", "p", "q", "r", "x", "y", "z", "w"},
}

// ParseQuality parses a quality name, case-insensitively
func ParseQuality(s string) (Quality, error) {
	q := Quality(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := qualityTags[q]; !ok {
		return "", fmt.Errorf("unknown photo quality %q", s)
	}
	return q, nil
}

// SelectVariant picks one URL among the size variants of a photo.
// Tagged sizes are tried in quality order, then the largest width*height,
// then the first variant with a URL
func SelectVariant(sizes []Size, q Quality) string {
	tags, ok := qualityTags[q]
	if !ok {
		tags = qualityTags[QualityHigh]
	}

	for _, tag := range tags {
		for _, s := range sizes {
			if s.Type == tag && s.Link() != "" {
				return s.Link()
			}
		}
	}

	best := ""
	bestArea := -1
	for _, s := range sizes {
		if s.Link() == "" {
			continue
		}
		if area := s.Width * s.Height; area > bestArea {
			best = s.Link()
			bestArea = area
		}
	}
	return best
}
