// Package ratelimit keeps catalogsync under the steady-state rate limit of
// the catalog source.
//
// RequestLimiter is a token bucket from golang.org/x/time/rate applied to
// every API request. Pacer inserts the fixed delay between pages and between
// download batches.
//
// Usage:
//
//	limiter := ratelimit.NewRequestLimiter(3)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//
//	pacer := ratelimit.NewPacer(200 * time.Millisecond)
//	for {
//	    pacer.Next()
//	    // fetch the next page
//	}
package ratelimit
