package collector

import (
	"context"
	"fmt"
	"time"

	"catalogsync/pkg/logger"
	"catalogsync/pkg/models"
	"catalogsync/pkg/ratelimit"
)

// PageFetcher fetches one page at offset asking for count items. It returns
// the page and the count the request finally succeeded with, which may be
// smaller than count when the fetcher shrank it
type PageFetcher[T any] func(ctx context.Context, offset, count int) (models.Page[T], int, error)

// Options configures one listing
type Options struct {
	// Name identifies the listing in logs
	Name string
	// PageSize is the count requested for the first page
	PageSize int
	// HardCap is the maximum number of items collected
	HardCap int
	// PageDelay is inserted before every request after the first
	PageDelay time.Duration
	// Sleep replaces time.Sleep for the page delay
	Sleep func(time.Duration)
	Logger logger.Logger
}

// Result of a full listing
type Result[T any] struct {
	// ReportedCount is min(server total, hard cap)
	ReportedCount int
	Items         []T
}

// CollectAll pages through a listing until a short page, the server total or
// the hard cap is reached. Cancellation is checked between pages only; a page
// in flight always completes
func CollectAll[T any](ctx context.Context, fetch PageFetcher[T], opts Options) (Result[T], error) {
	if opts.PageSize <= 0 {
		return Result[T]{}, fmt.Errorf("page size must be positive, got %d", opts.PageSize)
	}
	if opts.HardCap <= 0 {
		return Result[T]{}, fmt.Errorf("hard cap must be positive, got %d", opts.HardCap)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	pacer := ratelimit.NewPacer(opts.PageDelay)
	if opts.Sleep != nil {
		pacer = ratelimit.NewPacerWithSleep(opts.PageDelay, opts.Sleep)
	}

	var items []T
	serverTotal := 0
	offset := 0
	count := opts.PageSize

	for {
		if err := ctx.Err(); err != nil {
			return Result[T]{ReportedCount: min(serverTotal, opts.HardCap), Items: items}, err
		}

		pacer.Next()

		page, used, err := fetch(context.WithoutCancel(ctx), offset, count)
		if err != nil {
			return Result[T]{ReportedCount: min(serverTotal, opts.HardCap), Items: items},
				fmt.Errorf("%s: page at offset %d: %w", opts.Name, offset, err)
		}
		if used > 0 && used < count {
			log.InfoWithFields("continuing listing with smaller pages", map[string]interface{}{
				"listing": opts.Name,
				"from":    count,
				"to":      used,
			})
			count = used
		}

		serverTotal = page.Total
		items = append(items, page.Items...)
		offset += len(page.Items)

		log.DebugWithFields("page fetched", map[string]interface{}{
			"listing":  opts.Name,
			"offset":   offset,
			"received": len(page.Items),
			"total":    serverTotal,
		})

		if len(items) >= opts.HardCap {
			items = items[:opts.HardCap]
			break
		}
		if len(page.Items) < count || offset >= serverTotal {
			break
		}
	}

	return Result[T]{
		ReportedCount: min(serverTotal, opts.HardCap),
		Items:         items,
	}, nil
}
