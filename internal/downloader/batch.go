package downloader

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"catalogsync/pkg/logger"
	"catalogsync/pkg/ratelimit"
)

// PhotoDownloader fetches photo bytes from a URL
type PhotoDownloader interface {
	DownloadPhoto(ctx context.Context, url string) ([]byte, error)
}

// PhotoStorage stores photos under a key
type PhotoStorage interface {
	Exists(key string) bool
	Save(key string, r io.Reader) error
}

// PhotoPlan lists the photos to download for one product
type PhotoPlan struct {
	ProductID   int64
	CoverURL    string
	GalleryURLs []string
}

// PhotoCount is the number of photos planned for the product
func (p PhotoPlan) PhotoCount() int {
	n := len(p.GalleryURLs)
	if p.CoverURL != "" {
		n++
	}
	return n
}

// CoverKey is the storage key of a product cover fetched from url. Keys
// carry a digest of the source URL, a replaced photo gets a new key
func CoverKey(productID int64, url string) string {
	return fmt.Sprintf("products/%d/cover-%s.jpg", productID, urlTag(url))
}

// GalleryKey is the storage key of the n-th gallery photo of a product
// fetched from url
func GalleryKey(productID int64, n int, url string) string {
	return fmt.Sprintf("products/%d/gallery/%d-%s.jpg", productID, n, urlTag(url))
}

func urlTag(url string) string {
	h := fnv.New32a()
	h.Write([]byte(url))
	return fmt.Sprintf("%08x", h.Sum32())
}

// Status of one product after its downloads settled
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome of one product
type Outcome struct {
	ProductID int64
	Status    Status
	// Downloaded counts photos stored, including ones already present
	Downloaded int
	// Failed counts photos that could not be downloaded or stored
	Failed int
	// Err is the last photo failure, if any
	Err error
}

// Defaults applied to zero Config fields
const (
	DefaultBatchSize  = 10
	DefaultBatchDelay = 150 * time.Millisecond
)

// Config configures the batch downloader
type Config struct {
	// BatchSize is the number of products downloaded concurrently
	BatchSize int
	// BatchDelay separates consecutive batches
	BatchDelay time.Duration
	// Timeout bounds a single photo download, zero means no bound
	Timeout time.Duration
	// Sleep replaces time.Sleep for the batch delay
	Sleep func(time.Duration)
}

// BatchDownloader downloads product photos in fixed-size concurrent batches
type BatchDownloader struct {
	client  PhotoDownloader
	storage PhotoStorage
	cfg     Config
	logger  logger.Logger
}

// NewBatchDownloader creates a new batch downloader
func NewBatchDownloader(client PhotoDownloader, storage PhotoStorage, cfg Config, log logger.Logger) *BatchDownloader {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = DefaultBatchDelay
	}
	return &BatchDownloader{
		client:  client,
		storage: storage,
		cfg:     cfg,
		logger:  log.WithField("component", "downloader"),
	}
}

// DownloadAll downloads every plan and returns one outcome per plan, in plan
// order. Products of a batch run concurrently and the batch waits for all of
// them; a failing product never cancels its siblings. onSettled, when not
// nil, is called once per product as it settles, never concurrently.
//
// Cancellation is honoured between batches only. The returned error is
// non-nil only when ctx was cancelled, in which case outcomes cover the
// batches that ran
func (d *BatchDownloader) DownloadAll(ctx context.Context, plans []PhotoPlan, onSettled func(Outcome)) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(plans))

	pacer := ratelimit.NewPacer(d.cfg.BatchDelay)
	if d.cfg.Sleep != nil {
		pacer = ratelimit.NewPacerWithSleep(d.cfg.BatchDelay, d.cfg.Sleep)
	}

	var callbackMu sync.Mutex
	settle := func(o Outcome) {
		logger.LogDownload(d.logger, o.ProductID, string(o.Status), o.Downloaded, o.Failed, o.Err)
		if onSettled == nil {
			return
		}
		callbackMu.Lock()
		defer callbackMu.Unlock()
		onSettled(o)
	}

	for i, batch := range lo.Chunk(plans, d.cfg.BatchSize) {
		if err := ctx.Err(); err != nil {
			d.logger.WarnWithFields("download cancelled between batches", map[string]interface{}{
				"batch":    i,
				"settled":  len(outcomes),
				"products": len(plans),
			})
			return outcomes, err
		}

		pacer.Next()

		batchCtx := context.WithoutCancel(ctx)
		results := make([]Outcome, len(batch))

		var g errgroup.Group
		for j, plan := range batch {
			g.Go(func() error {
				results[j] = d.downloadProduct(batchCtx, plan)
				settle(results[j])
				return nil
			})
		}
		_ = g.Wait()

		outcomes = append(outcomes, results...)
	}

	return outcomes, nil
}

// downloadProduct downloads the cover and gallery of one product
func (d *BatchDownloader) downloadProduct(ctx context.Context, plan PhotoPlan) Outcome {
	outcome := Outcome{ProductID: plan.ProductID}

	if d.alreadyPresent(plan) {
		outcome.Status = StatusSkipped
		outcome.Downloaded = plan.PhotoCount()
		return outcome
	}

	store := func(key, url string) {
		if d.storage.Exists(key) {
			outcome.Downloaded++
			return
		}
		if err := d.fetchAndSave(ctx, key, url); err != nil {
			outcome.Failed++
			outcome.Err = err
			return
		}
		outcome.Downloaded++
	}

	if plan.CoverURL != "" {
		store(CoverKey(plan.ProductID, plan.CoverURL), plan.CoverURL)
	}
	for n, url := range plan.GalleryURLs {
		store(GalleryKey(plan.ProductID, n, url), url)
	}

	outcome.Status = StatusSuccess
	if plan.PhotoCount() > 0 && outcome.Downloaded == 0 {
		outcome.Status = StatusFailed
	}
	return outcome
}

// alreadyPresent reports whether the cover and at least one gallery photo
// are stored from a previous run
func (d *BatchDownloader) alreadyPresent(plan PhotoPlan) bool {
	if plan.CoverURL == "" || len(plan.GalleryURLs) == 0 {
		return false
	}
	if !d.storage.Exists(CoverKey(plan.ProductID, plan.CoverURL)) {
		return false
	}
	for n, url := range plan.GalleryURLs {
		if d.storage.Exists(GalleryKey(plan.ProductID, n, url)) {
			return true
		}
	}
	return false
}

func (d *BatchDownloader) fetchAndSave(ctx context.Context, key, url string) error {
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	data, err := d.client.DownloadPhoto(ctx, url)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	if err := d.storage.Save(key, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("save failed: %w", err)
	}
	return nil
}
