// Package server exposes the sync orchestrator and the stored catalog over
// HTTP for pollers that do not embed the library
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"catalogsync/pkg/catalogsync"
	"catalogsync/pkg/logger"
	"catalogsync/pkg/models"
)

// Syncer is the part of the orchestrator the server drives
type Syncer interface {
	Start(ctx context.Context) error
	Progress() models.SyncProgress
	Cancel() bool
	ClearAll(ctx context.Context) error
}

// CatalogReader reads what previous syncs stored
type CatalogReader interface {
	Collections(ctx context.Context) ([]models.Collection, error)
	Products(ctx context.Context, collectionID int64) ([]models.Product, error)
	Photos(ctx context.Context, productID int64) ([]models.StoredPhoto, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

type handler struct {
	syncer  Syncer
	catalog CatalogReader
	logger  logger.Logger
}

// NewHandler builds the routes:
//
//	POST   /sync                           start a job (202, 409 when running)
//	GET    /sync/status                    current progress
//	DELETE /sync                           cancel the running job (202, 409)
//	DELETE /catalog                        clear stored data (204, 409)
//	GET    /collections                    stored collections
//	GET    /collections/{id}/products      stored products of a collection
//	GET    /products/{id}/photos           stored photo records
//	GET    /healthz
func NewHandler(syncer Syncer, catalog CatalogReader, log logger.Logger) http.Handler {
	if log == nil {
		log = logger.GetLogger()
	}
	h := &handler{syncer: syncer, catalog: catalog, logger: log.WithField("component", "http")}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /sync", h.startSync)
	mux.HandleFunc("GET /sync/status", h.status)
	mux.HandleFunc("DELETE /sync", h.cancelSync)
	mux.HandleFunc("DELETE /catalog", h.clearCatalog)
	mux.HandleFunc("GET /collections", h.collections)
	mux.HandleFunc("GET /collections/{id}/products", h.products)
	mux.HandleFunc("GET /products/{id}/photos", h.photos)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return h.logRequests(mux)
}

func (h *handler) startSync(w http.ResponseWriter, r *http.Request) {
	err := h.syncer.Start(r.Context())
	if errors.Is(err, catalogsync.ErrAlreadyRunning) {
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, h.syncer.Progress())
}

func (h *handler) status(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.syncer.Progress())
}

func (h *handler) cancelSync(w http.ResponseWriter, _ *http.Request) {
	if !h.syncer.Cancel() {
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: "no sync job is running"})
		return
	}
	h.writeJSON(w, http.StatusAccepted, h.syncer.Progress())
}

func (h *handler) clearCatalog(w http.ResponseWriter, r *http.Request) {
	err := h.syncer.ClearAll(r.Context())
	if errors.Is(err, catalogsync.ErrClearWhileSyncing) {
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) collections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.catalog.Collections(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nonNil(collections))
}

func (h *handler) products(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	products, err := h.catalog.Products(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nonNil(products))
}

func (h *handler) photos(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	photos, err := h.catalog.Photos(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nonNil(photos))
}

func (h *handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	h.logger.WithError(err).Error("request failed")
	h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.WithError(err).Warn("failed to encode response")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.DebugWithFields("http request", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status_code": rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// Server serves the handler until its context ends
type Server struct {
	http   *http.Server
	logger logger.Logger
}

// New creates a server listening on addr
func New(addr string, syncer Syncer, catalog CatalogReader, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(syncer, catalog, log),
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
		},
		logger: log.WithField("component", "server"),
	}
}

// Run blocks until ctx is cancelled or the listener fails, then shuts down
// gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.http.Addr).Info("http server listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down http server")
	return s.http.Shutdown(shutdownCtx)
}
