package modelstesting

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/go-faker/faker/v4"
	"github.com/samber/lo"

	"catalogsync/pkg/models"
)

// FakeCollection returns models.Collection with fake data
func FakeCollection(ops ...func(c *models.Collection)) models.Collection {
	collection := models.Collection{
		ID:            rand.Int63n(1_000_000) + 1,
		Title:         faker.Word(),
		CoverPhotoURL: lo.ToPtr(faker.URL()),
		ItemCount:     rand.Intn(100),
	}

	for _, op := range ops {
		op(&collection)
	}

	return collection
}

// FakeProduct returns models.Product with fake data and a random number of
// embedded photo objects
func FakeProduct(ops ...func(p *models.Product)) models.Product {
	product := models.Product{
		ID:           rand.Int63n(1_000_000) + 1,
		CollectionID: rand.Int63n(1_000) + 1,
		Title:        faker.Sentence(),
		Description:  faker.Paragraph(),
		Price: models.Price{
			AmountMinor:  lo.ToPtr(rand.Int63n(100_000)),
			CurrencyCode: lo.ToPtr("RUB"),
			DisplayText:  lo.ToPtr(faker.Word()),
		},
		CoverPhotoURL: lo.ToPtr(faker.URL()),
	}

	for i := 0; i < rand.Intn(4)+1; i++ {
		product.RawPhotos = append(product.RawPhotos, FakeRawPhoto(int64(i+1)))
	}

	for _, op := range ops {
		op(&product)
	}

	return product
}

// FakeRawPhoto returns an embedded photo object with two size variants
func FakeRawPhoto(id int64) models.RawPhoto {
	base := faker.URL()
	raw, _ := json.Marshal(map[string]any{
		"id": id,
		"sizes": []map[string]any{
			{"type": "m", "url": fmt.Sprintf("%s/%d_m.jpg", base, id), "width": 130, "height": 100},
			{"type": "x", "url": fmt.Sprintf("%s/%d_x.jpg", base, id), "width": 604, "height": 480},
		},
	})
	return raw
}
