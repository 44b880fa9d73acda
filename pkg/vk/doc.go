// Package vk provides a client for the VK Market catalog API.
//
// Client performs one HTTP call per method and classifies failures into the
// catalogsync error types:
//   - error codes 6, 9 and 29 in a 200 body are rate limits
//   - error code 10 and HTTP 502/503/504 are server unavailable
//   - network timeouts are timeouts
//   - every other embedded error code is a client error
//
// Fetcher wraps a Client with the retry policy of each call site.
//
// Example usage:
//
//	client := vk.NewClient(vk.ClientConfig{AccessToken: token, RequestsPerSecond: 3}, log)
//	fetcher := vk.NewFetcher(client, ownerID, vk.DefaultRetryConfig(), log)
//	page, usedCount, err := fetcher.ListProducts(ctx, albumID, 0, 50)
package vk
