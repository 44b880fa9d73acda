package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"catalogsync/internal/downloader"
	"catalogsync/pkg/collector"
	"catalogsync/pkg/logger"
	"catalogsync/pkg/models"
	"catalogsync/pkg/photos"
)

var (
	// ErrAlreadyRunning is returned when a job is started while another one
	// is syncing
	ErrAlreadyRunning = errors.New("sync job already running")

	// ErrClearWhileSyncing is returned by ClearAll while a job is syncing
	ErrClearWhileSyncing = errors.New("cannot clear the catalog while a sync job is running")
)

// Options tunes pagination and photo selection
type Options struct {
	CollectionsPageSize      int
	ProductsPageSize         int
	MaxCollections           int
	MaxProductsPerCollection int
	PageDelay                time.Duration
	PhotoQuality             photos.Quality
	ResolveConcurrency       int
	// Sleep replaces time.Sleep for page delays
	Sleep func(time.Duration)
}

// DefaultOptions returns the options used for zero fields
func DefaultOptions() Options {
	return Options{
		CollectionsPageSize:      100,
		ProductsPageSize:         50,
		MaxCollections:           1000,
		MaxProductsPerCollection: 5000,
		PageDelay:                200 * time.Millisecond,
		PhotoQuality:             photos.QualityHigh,
		ResolveConcurrency:       5,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.CollectionsPageSize <= 0 {
		o.CollectionsPageSize = d.CollectionsPageSize
	}
	if o.ProductsPageSize <= 0 {
		o.ProductsPageSize = d.ProductsPageSize
	}
	if o.MaxCollections <= 0 {
		o.MaxCollections = d.MaxCollections
	}
	if o.MaxProductsPerCollection <= 0 {
		o.MaxProductsPerCollection = d.MaxProductsPerCollection
	}
	if o.PageDelay <= 0 {
		o.PageDelay = d.PageDelay
	}
	if o.PhotoQuality == "" {
		o.PhotoQuality = d.PhotoQuality
	}
	if o.ResolveConcurrency <= 0 {
		o.ResolveConcurrency = d.ResolveConcurrency
	}
	return o
}

// Dependencies are the collaborators of an orchestrator. Checkpoints and
// Progress are optional
type Dependencies struct {
	Catalog     Catalog
	Store       Store
	Photos      PhotoStorage
	Downloader  Downloader
	Checkpoints Checkpointer
	Progress    *ProgressTracker
}

// job is one running sync
type job struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// Orchestrator runs sync jobs, at most one at a time
type Orchestrator struct {
	catalog     Catalog
	store       Store
	photos      PhotoStorage
	downloader  Downloader
	checkpoints Checkpointer
	progress    *ProgressTracker
	extractor   *photos.Extractor
	opts        Options
	logger      logger.Logger
	now         func() time.Time

	// mu serializes job start, clear and access to current
	mu      sync.Mutex
	current *job
}

// New creates an orchestrator
func New(deps Dependencies, opts Options, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.GetLogger()
	}
	progress := deps.Progress
	if progress == nil {
		progress = NewProgressTracker()
	}
	opts = opts.withDefaults()

	return &Orchestrator{
		catalog:     deps.Catalog,
		store:       deps.Store,
		photos:      deps.Photos,
		downloader:  deps.Downloader,
		checkpoints: deps.Checkpoints,
		progress:    progress,
		extractor:   photos.NewExtractor(opts.PhotoQuality),
		opts:        opts,
		logger:      log.WithField("component", "orchestrator"),
		now:         time.Now,
	}
}

// Progress returns a snapshot of the current or last job. It never blocks
// on the running job
func (o *Orchestrator) Progress() models.SyncProgress {
	return o.progress.Snapshot()
}

// Start begins a job in the background and returns once it is Syncing. The
// job outlives ctx; use Cancel to stop it
func (o *Orchestrator) Start(ctx context.Context) error {
	jobCtx, j, err := o.begin(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	go func() {
		_ = o.run(jobCtx, j)
	}()
	return nil
}

// Run runs a job to completion. Cancelling ctx stops the job at the next
// page or batch boundary
func (o *Orchestrator) Run(ctx context.Context) error {
	jobCtx, j, err := o.begin(ctx)
	if err != nil {
		return err
	}
	return o.run(jobCtx, j)
}

// Wait blocks until the running job, if any, has finished
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	current := o.current
	o.mu.Unlock()
	if current != nil {
		<-current.done
	}
}

// Cancel asks the running job to stop at the next page or batch boundary.
// It reports whether a job was running
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return false
	}
	o.current.cancel()
	return true
}

// ClearAll wipes stored collections, products and photos. It is rejected
// while a job is syncing
func (o *Orchestrator) ClearAll(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.progress.Snapshot().Status.IsTerminal() {
		return ErrClearWhileSyncing
	}

	if err := o.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear catalog store: %w", err)
	}
	if err := o.photos.Clear(); err != nil {
		return fmt.Errorf("failed to clear photo storage: %w", err)
	}

	o.progress.reset()
	o.checkpoint(o.progress.Snapshot())
	o.logger.Info("catalog cleared")
	return nil
}

// begin performs the Idle/Completed/Error -> Syncing transition
func (o *Orchestrator) begin(parent context.Context) (context.Context, *job, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := uuid.NewString()
	if !o.progress.begin(id, o.now()) {
		return nil, nil, ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(parent)
	j := &job{id: id, cancel: cancel, done: make(chan struct{})}
	o.current = j
	return ctx, j, nil
}

func (o *Orchestrator) finish(j *job) {
	o.mu.Lock()
	defer o.mu.Unlock()
	j.cancel()
	close(j.done)
	if o.current == j {
		o.current = nil
	}
}

func (o *Orchestrator) run(ctx context.Context, j *job) error {
	defer o.finish(j)

	log := o.logger.WithField("job_id", j.id)
	log.Info("sync started")
	o.checkpoint(o.progress.Snapshot())

	collections, err := o.syncCollections(ctx, log)
	if err != nil {
		return o.fail(log, "collections", err)
	}

	products, collectionFailures, err := o.syncProducts(ctx, log, collections)
	if err != nil {
		return o.fail(log, "products", err)
	}

	stats, err := o.syncPhotos(ctx, log, products)
	if err != nil {
		return o.fail(log, "photos", err)
	}

	o.complete(log, len(collections), len(products), collectionFailures, stats)
	return nil
}

// syncCollections lists and persists every collection. Any failure aborts
// the job
func (o *Orchestrator) syncCollections(ctx context.Context, log logger.Logger) ([]models.Collection, error) {
	o.setMessage("listing collections")

	result, err := collector.CollectAll[models.Collection](ctx, o.catalog.ListCollections, collector.Options{
		Name:      "collections",
		PageSize:  o.opts.CollectionsPageSize,
		HardCap:   o.opts.MaxCollections,
		PageDelay: o.opts.PageDelay,
		Sleep:     o.opts.Sleep,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	collections := result.Items
	o.progress.update(func(p *models.SyncProgress) {
		p.CollectionsTotal = len(collections)
		p.Message = lo.ToPtr(fmt.Sprintf("saving %d collections", len(collections)))
	})

	storeCtx := context.WithoutCancel(ctx)
	for i := range collections {
		collections[i].SortOrder = i
		if err := o.store.SaveCollection(storeCtx, collections[i]); err != nil {
			return nil, err
		}
		o.progress.update(func(p *models.SyncProgress) { p.CollectionsDone++ })
	}

	logger.LogSyncProgress(log, "collections", len(collections), len(collections))
	o.checkpoint(o.progress.Snapshot())
	return collections, nil
}

// syncProducts lists and persists the products of every collection in
// order. A failing collection is recorded and skipped; only cancellation
// stops the stage
func (o *Orchestrator) syncProducts(ctx context.Context, log logger.Logger, collections []models.Collection) ([]models.Product, int, error) {
	var all []models.Product
	failures := 0

	for i, c := range collections {
		if err := ctx.Err(); err != nil {
			return all, failures, err
		}
		o.setMessage(fmt.Sprintf("syncing products of collection %q (%d/%d)", c.Title, i+1, len(collections)))

		products, err := o.syncCollectionProducts(ctx, log, c)
		all = append(all, products...)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return all, failures, ctxErr
			}
			failures++
			msg := fmt.Sprintf("collection %d (%s) failed: %v", c.ID, c.Title, err)
			log.WithError(err).WithField("collection_id", c.ID).Warn("collection sync failed, continuing")
			o.setMessage(msg)
			continue
		}

		logger.LogSyncProgress(log, "products", i+1, len(collections))
	}

	o.checkpoint(o.progress.Snapshot())
	return all, failures, nil
}

// syncCollectionProducts returns the products that were persisted, which on
// error may be a prefix of the listing
func (o *Orchestrator) syncCollectionProducts(ctx context.Context, log logger.Logger, c models.Collection) ([]models.Product, error) {
	fetch := func(ctx context.Context, offset, count int) (models.Page[models.Product], int, error) {
		return o.catalog.ListProducts(ctx, c.ID, offset, count)
	}

	result, err := collector.CollectAll[models.Product](ctx, fetch, collector.Options{
		Name:      fmt.Sprintf("products of collection %d", c.ID),
		PageSize:  o.opts.ProductsPageSize,
		HardCap:   o.opts.MaxProductsPerCollection,
		PageDelay: o.opts.PageDelay,
		Sleep:     o.opts.Sleep,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	items := result.Items
	for i := range items {
		if items[i].CollectionID == 0 {
			items[i].CollectionID = c.ID
		}
	}
	o.progress.update(func(p *models.SyncProgress) { p.ProductsTotal += len(items) })

	work := context.WithoutCancel(ctx)
	items = o.resolvePhotos(work, log, items)

	saved := make([]models.Product, 0, len(items))
	for _, product := range items {
		if err := o.store.SaveProduct(work, product); err != nil {
			return saved, err
		}
		saved = append(saved, product)
		o.progress.update(func(p *models.SyncProgress) { p.ProductsDone++ })
	}
	return saved, nil
}

// resolvePhotos fills in photo payloads the listing left out, with bounded
// concurrency. Products keep their position; a product whose resolution
// fails keeps what the listing returned
func (o *Orchestrator) resolvePhotos(ctx context.Context, log logger.Logger, products []models.Product) []models.Product {
	out := make([]models.Product, len(products))

	var g errgroup.Group
	g.SetLimit(o.opts.ResolveConcurrency)
	for i, p := range products {
		g.Go(func() error {
			out[i] = o.resolveProduct(ctx, log, p)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (o *Orchestrator) resolveProduct(ctx context.Context, log logger.Logger, p models.Product) models.Product {
	if len(p.RawPhotos) == 0 {
		full, err := o.catalog.GetProduct(ctx, p.CollectionID, p.ID)
		if err != nil {
			log.WithError(err).WithField("product_id", p.ID).Warn("failed to fetch product photos")
			return p
		}
		if full != nil {
			p.RawPhotos = full.RawPhotos
			if p.CoverPhotoURL == nil {
				p.CoverPhotoURL = full.CoverPhotoURL
			}
		}
	}

	if ids := photos.PendingIDs(p.RawPhotos); len(ids) > 0 {
		resolved, err := o.catalog.GetPhotosByID(ctx, ids)
		if err != nil {
			log.WithError(err).WithField("product_id", p.ID).Warn("failed to resolve photo IDs")
			return p
		}
		p.RawPhotos = photos.ReplaceResolved(p.RawPhotos, resolved)
	}
	return p
}

// photoStats summarizes the download stage
type photoStats struct {
	planned        int
	downloaded     int
	failedPhotos   int
	failedProducts int
}

// syncPhotos downloads cover and gallery photos of every distinct product
// and records what was stored. Only cancellation stops the stage
func (o *Orchestrator) syncPhotos(ctx context.Context, log logger.Logger, products []models.Product) (photoStats, error) {
	plans := o.buildPlans(products)
	stats := photoStats{
		planned: lo.SumBy(plans, func(p downloader.PhotoPlan) int { return p.PhotoCount() }),
	}

	o.progress.update(func(p *models.SyncProgress) {
		p.PhotosTotal = stats.planned
		p.Message = lo.ToPtr(fmt.Sprintf("downloading photos of %d products", len(plans)))
	})
	if len(plans) == 0 {
		return stats, nil
	}

	byProduct := lo.KeyBy(plans, func(p downloader.PhotoPlan) int64 { return p.ProductID })
	storeCtx := context.WithoutCancel(ctx)

	_, err := o.downloader.DownloadAll(ctx, plans, func(out downloader.Outcome) {
		stats.downloaded += out.Downloaded
		stats.failedPhotos += out.Failed

		var msg *string
		if out.Status == downloader.StatusFailed {
			stats.failedProducts++
			msg = lo.ToPtr(fmt.Sprintf("photos of product %d failed: %v", out.ProductID, out.Err))
		}

		if stored := o.storedPhotos(byProduct[out.ProductID]); len(stored) > 0 {
			if err := o.store.SavePhotos(storeCtx, out.ProductID, stored); err != nil {
				log.WithError(err).WithField("product_id", out.ProductID).Warn("failed to record product photos")
				msg = lo.ToPtr(fmt.Sprintf("recording photos of product %d failed: %v", out.ProductID, err))
			}
		}

		o.progress.update(func(p *models.SyncProgress) {
			p.PhotosDone += out.Downloaded
			if msg != nil {
				p.Message = msg
			}
		})
	})
	if err != nil {
		return stats, err
	}

	logger.LogSyncProgress(log, "photos", stats.downloaded, stats.planned)
	return stats, nil
}

// buildPlans picks cover and gallery URLs of each distinct product, keeping
// first-seen order
func (o *Orchestrator) buildPlans(products []models.Product) []downloader.PhotoPlan {
	unique := lo.UniqBy(products, func(p models.Product) int64 { return p.ID })
	return lo.Map(unique, func(p models.Product, _ int) downloader.PhotoPlan {
		return downloader.PhotoPlan{
			ProductID:   p.ID,
			CoverURL:    lo.FromPtr(p.CoverPhotoURL),
			GalleryURLs: o.extractor.Extract(p),
		}
	})
}

// storedPhotos lists the photos of a plan present in photo storage
func (o *Orchestrator) storedPhotos(plan downloader.PhotoPlan) []models.StoredPhoto {
	var stored []models.StoredPhoto
	if plan.CoverURL != "" {
		key := downloader.CoverKey(plan.ProductID, plan.CoverURL)
		if o.photos.Exists(key) {
			stored = append(stored, models.StoredPhoto{
				Role:       models.PhotoRoleCover,
				URL:        plan.CoverURL,
				StorageKey: key,
			})
		}
	}
	for n, url := range plan.GalleryURLs {
		key := downloader.GalleryKey(plan.ProductID, n, url)
		if o.photos.Exists(key) {
			stored = append(stored, models.StoredPhoto{
				Role:       models.PhotoRoleGallery,
				Position:   n,
				URL:        url,
				StorageKey: key,
			})
		}
	}
	return stored
}

// fail moves the job to Error, keeping the partial counters
func (o *Orchestrator) fail(log logger.Logger, stage string, err error) error {
	err = fmt.Errorf("%s stage failed: %w", stage, err)
	now := o.now()

	snapshot := o.progress.update(func(p *models.SyncProgress) {
		p.Status = models.StatusError
		p.Error = lo.ToPtr(err.Error())
		p.CompletedAt = &now
	})
	o.checkpoint(snapshot)

	log.WithError(err).ErrorWithFields("sync failed", map[string]interface{}{
		"stage":            stage,
		"collections_done": snapshot.CollectionsDone,
		"products_done":    snapshot.ProductsDone,
		"photos_done":      snapshot.PhotosDone,
	})
	return err
}

func (o *Orchestrator) complete(log logger.Logger, collections, products, collectionFailures int, stats photoStats) {
	parts := []string{fmt.Sprintf("synced %d collections, %d products, %d/%d photos",
		collections, products, stats.downloaded, stats.planned)}
	if collectionFailures > 0 {
		parts = append(parts, fmt.Sprintf("%d collections failed", collectionFailures))
	}
	if stats.failedPhotos > 0 {
		parts = append(parts, fmt.Sprintf("%d photos failed across %d products", stats.failedPhotos, stats.failedProducts))
	}
	summary := strings.Join(parts, "; ")
	now := o.now()

	snapshot := o.progress.update(func(p *models.SyncProgress) {
		p.Status = models.StatusCompleted
		p.Message = &summary
		p.CompletedAt = &now
	})
	o.checkpoint(snapshot)

	log.InfoWithFields("sync completed", map[string]interface{}{
		"collections":         collections,
		"products":            products,
		"photos_downloaded":   stats.downloaded,
		"photos_planned":      stats.planned,
		"collection_failures": collectionFailures,
		"photo_failures":      stats.failedPhotos,
	})
}

func (o *Orchestrator) setMessage(msg string) {
	o.progress.update(func(p *models.SyncProgress) { p.Message = &msg })
}

func (o *Orchestrator) checkpoint(snapshot models.SyncProgress) {
	if o.checkpoints == nil {
		return
	}
	if err := o.checkpoints.Save(snapshot); err != nil {
		o.logger.WithError(err).Warn("failed to save checkpoint")
	}
}
