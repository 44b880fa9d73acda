package catalogsync_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogsync/internal/downloader"
	"catalogsync/internal/store/sqlite"
	"catalogsync/pkg/catalogsync"
	"catalogsync/pkg/checkpoint"
	"catalogsync/pkg/logger"
	"catalogsync/pkg/models"
	"catalogsync/pkg/storage"
	"catalogsync/pkg/vk"
)

// fakeMarket serves the four catalog methods and a photo CDN. The first
// albums request fails with 503
type fakeMarket struct {
	server      *httptest.Server
	albumCalls  atomic.Int32
	photoHits   atomic.Int32
	productByID atomic.Int32
}

func newFakeMarket(t *testing.T) *fakeMarket {
	t.Helper()
	m := &fakeMarket{}

	mux := http.NewServeMux()
	mux.HandleFunc("/"+vk.MethodGetAlbums, m.albums)
	mux.HandleFunc("/"+vk.MethodGet, m.products)
	mux.HandleFunc("/"+vk.MethodGetByID, m.productByIDHandler)
	mux.HandleFunc("/"+vk.MethodPhotosByID, m.photosByID)
	mux.HandleFunc("/cdn/", func(w http.ResponseWriter, r *http.Request) {
		m.photoHits.Add(1)
		fmt.Fprint(w, "jpeg:"+r.URL.Path)
	})

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func (m *fakeMarket) cdn(path string) string {
	return m.server.URL + "/cdn/" + path
}

func (m *fakeMarket) photo(id int64, path string) string {
	return fmt.Sprintf(`{"id":%d,"sizes":[{"type":"x","url":%q,"width":604,"height":604}]}`, id, m.cdn(path))
}

func (m *fakeMarket) albums(w http.ResponseWriter, r *http.Request) {
	if m.albumCalls.Add(1) == 1 {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	fmt.Fprint(w, `{"response":{"count":2,"items":[
		{"id":7,"title":"Shoes","count":2},
		{"id":8,"title":"Hats","count":1}
	]}}`)
}

func (m *fakeMarket) products(w http.ResponseWriter, r *http.Request) {
	var items []string
	switch r.URL.Query().Get("album_id") {
	case "7":
		items = []string{
			fmt.Sprintf(`{"id":501,"title":"Sneaker","thumb_photo":%q,
				"price":{"amount":"150000","currency":{"id":643,"name":"RUB"},"text":"1 500 ₽"},
				"photos":[%s,%s]}`,
				m.cdn("501/cover.jpg"), m.photo(1, "501/a.jpg"), m.photo(2, "501/b.jpg")),
			fmt.Sprintf(`{"id":502,"title":"Boot","thumb_photo":%q,"photos":[3]}`, m.cdn("502/cover.jpg")),
		}
	case "8":
		items = []string{`{"id":503,"title":"Cap"}`}
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	count, _ := strconv.Atoi(r.URL.Query().Get("count"))
	end := min(len(items), offset+count)
	page := []string{}
	if offset < end {
		page = items[offset:end]
	}
	fmt.Fprintf(w, `{"response":{"count":%d,"items":[%s]}}`, len(items), strings.Join(page, ","))
}

func (m *fakeMarket) productByIDHandler(w http.ResponseWriter, r *http.Request) {
	m.productByID.Add(1)
	fmt.Fprintf(w, `{"response":{"count":1,"items":[{"id":503,"title":"Cap","thumb_photo":%q,"photos":[%s]}]}}`,
		m.cdn("503/cover.jpg"), m.photo(4, "503/a.jpg"))
}

func (m *fakeMarket) photosByID(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, `{"response":[%s]}`, m.photo(3, "502/a.jpg"))
}

type system struct {
	orchestrator *catalogsync.Orchestrator
	store        *sqlite.Store
	photos       *storage.Manager
	checkpoints  *checkpoint.Manager
}

func newSystem(t *testing.T, market *fakeMarket, dir string) *system {
	t.Helper()
	log := logger.NewTestLogger()
	noSleep := func(time.Duration) {}

	store, err := sqlite.NewStore(dir + "/catalog.db")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	photoStore, err := storage.NewManager(dir + "/photos")
	require.NoError(t, err)

	checkpoints, err := checkpoint.NewManager(dir+"/state", -42)
	require.NoError(t, err)

	client := vk.NewClient(vk.ClientConfig{
		BaseURL:     market.server.URL,
		AccessToken: "test-token",
		Timeout:     2 * time.Second,
	}, log)
	fetcher := vk.NewFetcher(client, -42, vk.DefaultRetryConfig(), log).WithSleep(func(context.Context, time.Duration) error { return nil })

	orchestrator := catalogsync.New(catalogsync.Dependencies{
		Catalog:     fetcher,
		Store:       store,
		Photos:      photoStore,
		Downloader:  downloader.NewBatchDownloader(client, photoStore, downloader.Config{BatchSize: 2, Sleep: noSleep}, log),
		Checkpoints: checkpoints,
	}, catalogsync.Options{
		ProductsPageSize: 1,
		Sleep:            noSleep,
	}, log)

	return &system{orchestrator: orchestrator, store: store, photos: photoStore, checkpoints: checkpoints}
}

func TestEndToEndSync(t *testing.T) {
	ctx := context.Background()
	market := newFakeMarket(t)
	sys := newSystem(t, market, t.TempDir())

	require.NoError(t, sys.orchestrator.Run(ctx))

	progress := sys.orchestrator.Progress()
	assert.Equal(t, models.StatusCompleted, progress.Status)
	assert.Equal(t, 2, progress.CollectionsDone)
	assert.Equal(t, 3, progress.ProductsDone)
	assert.Equal(t, 7, progress.PhotosTotal)
	assert.Equal(t, 7, progress.PhotosDone)
	assert.Equal(t, int32(2), market.albumCalls.Load(), "albums retried once after 503")
	assert.Equal(t, int32(1), market.productByID.Load())
	assert.Equal(t, int32(7), market.photoHits.Load())

	stats, err := sys.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, sqlite.Stats{Collections: 2, Products: 3, Photos: 7}, stats)

	shoes, err := sys.store.Products(ctx, 7)
	require.NoError(t, err)
	require.Len(t, shoes, 2)
	assert.Equal(t, int64(150000), *shoes[0].Price.AmountMinor)

	var resolved map[string]interface{}
	require.NoError(t, json.Unmarshal(shoes[1].RawPhotos[0], &resolved), "bare ID stored resolved")
	assert.EqualValues(t, 3, resolved["id"])

	photos, err := sys.store.Photos(ctx, 503)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, downloader.CoverKey(503, market.cdn("503/cover.jpg")), photos[0].StorageKey)
	assert.True(t, sys.photos.Exists(downloader.GalleryKey(502, 0, market.cdn("502/a.jpg"))))

	cp, err := sys.checkpoints.Load()
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, progress.JobID, cp.Progress.JobID)
	assert.Equal(t, models.StatusCompleted, cp.Progress.Status)
}

func TestEndToEndSecondRunSkipsStoredPhotos(t *testing.T) {
	ctx := context.Background()
	market := newFakeMarket(t)
	dir := t.TempDir()

	require.NoError(t, newSystem(t, market, dir).orchestrator.Run(ctx))
	hits := market.photoHits.Load()

	again := newSystem(t, market, dir)
	require.NoError(t, again.orchestrator.Run(ctx))

	progress := again.orchestrator.Progress()
	assert.Equal(t, models.StatusCompleted, progress.Status)
	assert.Equal(t, 7, progress.PhotosDone)
	assert.Equal(t, hits, market.photoHits.Load(), "no photo downloaded twice")

	stats, err := again.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Products, "upserts keep one row per product")
}
