// Package server exposes the published restaurant views over a read-only
// HTTP API: menu lookup by slug, restaurant listing, template listing, a
// database summary, health, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/menulive/menulive/config"
	"github.com/menulive/menulive/menu"
	"github.com/menulive/menulive/sync"
	"github.com/menulive/menulive/template"
	"github.com/menulive/menulive/view"
)

// ViewProvider is the slice of the sync controller the server consumes.
type ViewProvider interface {
	BySlug(slug string) (view.RestaurantView, error)
	Views() []view.RestaurantView
	Subscribe() (<-chan view.Update, func())
	Templates() []menu.Template
	Stats() sync.Stats
}

// Server is the read API over the live views.
type Server struct {
	views    ViewProvider
	registry *template.Registry
	cache    *Cache
	logger   *slog.Logger
	metrics  *metrics
	httpSrv  *http.Server
}

// New constructs a Server. cache may be nil to disable the Redis layer.
func New(views ViewProvider, registry *template.Registry, cache *Cache, cfg config.HTTPConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = template.NewRegistry(logger)
	}
	s := &Server{
		views:    views,
		registry: registry,
		cache:    cache,
		logger:   logger,
		metrics:  newMetrics(views.Stats),
	}
	s.httpSrv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.handler()).Methods(http.MethodGet)
	r.HandleFunc("/api/menus/{slug}", s.metrics.instrument("menu_by_slug", s.handleMenuBySlug)).Methods(http.MethodGet)
	r.HandleFunc("/api/restaurants", s.metrics.instrument("restaurants", s.handleRestaurants)).Methods(http.MethodGet)
	r.HandleFunc("/api/templates", s.metrics.instrument("templates", s.handleTemplates)).Methods(http.MethodGet)
	r.HandleFunc("/api/summary", s.metrics.instrument("summary", s.handleSummary)).Methods(http.MethodGet)
	return r
}

// Run serves HTTP and keeps the cache coherent with published view updates
// until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	updates, cancel := s.views.Subscribe()
	defer cancel()
	go s.consumeUpdates(ctx, updates)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// consumeUpdates keeps the Redis cache write-through-coherent: ready views of
// active restaurants are rendered and stored, everything else is dropped
// from the cache.
func (s *Server) consumeUpdates(ctx context.Context, updates <-chan view.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if s.cache == nil || u.Slug == "" {
				continue
			}
			if u.Status == view.StatusReady && u.View != nil && u.View.Active {
				data, err := json.Marshal(u.View)
				if err != nil {
					s.logger.Error("Marshaling view for cache failed", "slug", u.Slug, "error", err)
					continue
				}
				s.cache.Set(ctx, u.Slug, data)
			} else {
				s.cache.Invalidate(ctx, u.Slug)
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMenuBySlug(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	if s.cache != nil {
		if data, ok := s.cache.Get(r.Context(), slug); ok {
			s.metrics.cacheHits.Inc()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(data)
			return
		}
		s.metrics.cacheMisses.Inc()
	}

	v, err := s.views.BySlug(slug)
	switch {
	case errors.Is(err, view.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": string(view.ErrorNotFound)})
		return
	case errors.Is(err, view.ErrSourceUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": string(view.ErrorSourceUnavailable)})
		return
	case errors.Is(err, view.ErrLoading):
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": string(view.StatusLoading)})
		return
	case err != nil:
		s.logger.Error("Menu lookup failed", "slug", slug, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
		return
	}

	if s.cache != nil {
		if data, err := json.Marshal(v); err == nil {
			s.cache.Set(r.Context(), slug, data)
		}
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleRestaurants(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.views.Views())
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	switch category := r.URL.Query().Get("category"); category {
	case "":
		writeJSON(w, http.StatusOK, s.registry.All())
	case string(template.CategoryFestivities), string(template.CategoryThemes):
		writeJSON(w, http.StatusOK, s.registry.ByCategory(template.Category(category)))
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown category"})
	}
}

// Summary mirrors the per-collection counts of the admin database overview.
type Summary struct {
	Restaurants int `json:"restaurants"`
	Categories  int `json:"categories"`
	Items       int `json:"items"`
	Templates   int `json:"templates"`
	JoinedViews int `json:"joinedViews"`
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	views := s.views.Views()
	summary := Summary{
		Restaurants: len(views),
		Templates:   len(s.views.Templates()),
		JoinedViews: len(views),
	}
	for _, v := range views {
		summary.Categories += len(v.Categories)
		for _, c := range v.Categories {
			summary.Items += len(c.Items)
		}
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Error("Encoding response failed", "error", err)
	}
}
