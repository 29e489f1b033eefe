package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menulive/menulive/config"
	"github.com/menulive/menulive/menu"
	"github.com/menulive/menulive/sync"
	"github.com/menulive/menulive/template"
	"github.com/menulive/menulive/view"
)

type fakeProvider struct {
	views     map[string]view.RestaurantView
	err       error
	templates []menu.Template
	updates   chan view.Update
}

func (f *fakeProvider) BySlug(slug string) (view.RestaurantView, error) {
	if f.err != nil {
		return view.RestaurantView{}, f.err
	}
	v, ok := f.views[slug]
	if !ok {
		return view.RestaurantView{}, view.ErrNotFound
	}
	return v, nil
}

func (f *fakeProvider) Views() []view.RestaurantView {
	out := make([]view.RestaurantView, 0, len(f.views))
	for _, v := range f.views {
		out = append(out, v)
	}
	return out
}

func (f *fakeProvider) Subscribe() (<-chan view.Update, func()) {
	if f.updates == nil {
		f.updates = make(chan view.Update, 16)
	}
	return f.updates, func() {}
}

func (f *fakeProvider) Templates() []menu.Template { return f.templates }

func (f *fakeProvider) Stats() sync.Stats { return sync.Stats{} }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testView(slug string) view.RestaurantView {
	return view.RestaurantView{
		Restaurant: menu.Restaurant{
			ID:     "rest_" + slug,
			Name:   "Café Bella Vista",
			Slug:   slug,
			Active: true,
		},
		Categories: []view.CategoryView{
			{
				Category: menu.Category{ID: "cat_bebidas", RestaurantID: "rest_" + slug, Name: "Bebidas", Order: 1},
				Items: []menu.Item{
					{ID: "item_1", RestaurantID: "rest_" + slug, CategoryID: "cat_bebidas", Name: "Café Americano", Price: 4500, Order: 1},
				},
			},
		},
		Variant: template.VariantElegant,
	}
}

func newTestServer(t *testing.T, provider ViewProvider, cache *Cache) *Server {
	t.Helper()
	logger := discardLogger()
	registry := template.NewRegistry(logger)
	return New(provider, registry, cache, config.HTTPConfig{Addr: ":0"}, logger)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{}, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMenuBySlug(t *testing.T) {
	provider := &fakeProvider{views: map[string]view.RestaurantView{
		"cafe-bella-vista": testView("cafe-bella-vista"),
	}}
	srv := newTestServer(t, provider, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/menus/cafe-bella-vista", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got view.RestaurantView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Café Bella Vista", got.Name)
	assert.Equal(t, template.VariantElegant, got.Variant)
	require.Len(t, got.Categories, 1)
	assert.Equal(t, "Bebidas", got.Categories[0].Name)
}

func TestMenuBySlugNotFound(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{}, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/menus/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not_found"}`, rec.Body.String())
}

func TestMenuBySlugSourceUnavailable(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{err: view.ErrSourceUnavailable}, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/menus/any", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"source_unavailable"}`, rec.Body.String())
}

func TestMenuBySlugLoading(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{err: view.ErrLoading}, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/menus/any", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"loading"}`, rec.Body.String())
}

func TestTemplatesEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{}, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/templates", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var all []template.Config
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 14)
}

func TestTemplatesByCategory(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{}, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/templates?category=festivities", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []template.Config
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 8)
	for _, cfg := range got {
		assert.Equal(t, template.CategoryFestivities, cfg.Category)
	}
}

func TestTemplatesUnknownCategory(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{}, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/templates?category=bogus", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummary(t *testing.T) {
	provider := &fakeProvider{
		views: map[string]view.RestaurantView{
			"cafe-bella-vista": testView("cafe-bella-vista"),
		},
		templates: []menu.Template{{ID: "template-elegant", Name: "Elegante"}},
	}
	srv := newTestServer(t, provider, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Restaurants)
	assert.Equal(t, 1, got.Categories)
	assert.Equal(t, 1, got.Items)
	assert.Equal(t, 1, got.Templates)
	assert.Equal(t, 1, got.JoinedViews)
}

func TestRestaurantsEndpoint(t *testing.T) {
	provider := &fakeProvider{views: map[string]view.RestaurantView{
		"cafe-bella-vista": testView("cafe-bella-vista"),
	}}
	srv := newTestServer(t, provider, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/restaurants", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []view.RestaurantView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "cafe-bella-vista", got[0].Slug)
}

func TestMenuBySlugCacheMissThenHit(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewCache(mr.Addr(), time.Minute, discardLogger())
	t.Cleanup(func() { _ = cache.Close() })

	provider := &fakeProvider{views: map[string]view.RestaurantView{
		"cafe-bella-vista": testView("cafe-bella-vista"),
	}}
	srv := newTestServer(t, provider, cache)

	// First request misses the cache and populates it.
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/menus/cafe-bella-vista", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, mr.Exists("menulive:view:cafe-bella-vista"))

	// Second request is served from the cache even if the provider loses
	// the view in the meantime.
	delete(provider.views, "cafe-bella-vista")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/menus/cafe-bella-vista", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got view.RestaurantView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Café Bella Vista", got.Name)
}

func TestConsumeUpdatesWriteThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewCache(mr.Addr(), time.Minute, discardLogger())
	t.Cleanup(func() { _ = cache.Close() })

	provider := &fakeProvider{updates: make(chan view.Update, 16)}
	srv := newTestServer(t, provider, cache)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.consumeUpdates(ctx, provider.updates)
	}()

	ready := testView("cafe-bella-vista")
	provider.updates <- view.Update{
		RestaurantID: ready.ID,
		Slug:         ready.Slug,
		Status:       view.StatusReady,
		View:         &ready,
	}
	waitFor(t, func() bool { return mr.Exists("menulive:view:cafe-bella-vista") })

	// A not-found update drops the cached rendering.
	provider.updates <- view.Update{
		RestaurantID: ready.ID,
		Slug:         ready.Slug,
		Status:       view.StatusError,
		Error:        view.ErrorNotFound,
	}
	waitFor(t, func() bool { return !mr.Exists("menulive:view:cafe-bella-vista") })

	cancel()
	<-done
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
