// Package retry provides the retry policy used for every call to the catalog
// source.
//
// A single Policy is parametrized per call site (collections, products,
// product by id, photos by id) instead of each site carrying its own loop.
//
// Basic usage:
//
//	policy := retry.NewPolicy("market.get", 5, time.Second, 2*time.Minute).WithShrink(10)
//	page, usedCount, err := retry.Do(ctx, policy, 50, func(ctx context.Context, count int) (Page, error) {
//		return client.ListProducts(ctx, ownerID, albumID, offset, count)
//	})
//
// Error Type Handling:
//   - Rate limited: sleep base*2*2^attempt, page size unchanged
//   - Server unavailable and timeout: halve the page size and retry at once
//     when shrinking is enabled and the size is above the floor, otherwise
//     sleep base*2^attempt
//   - Client errors and unclassified errors: returned immediately
package retry
