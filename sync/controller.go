// Package sync maintains a live, eventually-consistent set of joined
// restaurant views as the underlying document collections change.
//
// The controller owns a registry of live subscriptions keyed by typed
// composite identifiers: one watch over the restaurant collection, one
// category watch per watched restaurant, and one item watch per category.
// Category-set changes are reconciled as deltas — an existing category's item
// subscription is never torn down and recreated. All subscription callbacks
// funnel into a single event loop, so shared state needs no locking on the
// compute path; only the published views are guarded for concurrent readers.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/menulive/menulive/menu"
	"github.com/menulive/menulive/store"
	"github.com/menulive/menulive/template"
	"github.com/menulive/menulive/view"
)

// Controller watches the document source and publishes view updates.
type Controller struct {
	source   store.Source
	registry *template.Registry
	logger   *slog.Logger
	slug     string

	events chan event
	done   chan struct{}

	// Loop-owned state, touched only by Run.
	templates    []menu.Template
	templatesPub []menu.Template
	restaurants  map[string]*restaurantState
	restSub      *subHandle[menu.Restaurant]

	// Published state, guarded for concurrent readers.
	mu          sync.RWMutex
	published   map[string]view.Update
	bySlug      map[string]string
	subscribers map[int]chan view.Update
	nextSubID   int
	unavailable bool
	synced      bool

	openWatches    atomic.Int64
	publishedTotal atomic.Uint64
	eventsTotal    atomic.Uint64
}

// restaurantState is the per-restaurant slice of loop-owned state:
// the latest document from each source feeding this restaurant's view, plus
// the live subscriptions that deliver them.
type restaurantState struct {
	doc        menu.Restaurant
	categories map[string]menu.Category
	items      map[string]map[string]menu.Item
	catSub     *subHandle[menu.Category]
	itemSubs   map[string]*subHandle[menu.Item]
	lastView   *view.RestaurantView
}

// subHandle pairs a subscription with its identity; the loop recognises a
// deliberate stop by having already dropped the handle from its registry
// before the closed event arrives.
type subHandle[T any] struct {
	sub store.Subscription[T]
}

// Option configures a Controller.
type Option func(*Controller)

// WithSlug restricts the controller to the single restaurant carrying the
// given slug: the public menu-page case. Restaurants with other slugs are
// ignored, and an unmatched or inactive slug publishes a not-found update
// once the initial restaurant snapshot has been replayed.
func WithSlug(slug string) Option {
	return func(c *Controller) { c.slug = slug }
}

// WithTemplateRegistry overrides the variant table used for resolution.
func WithTemplateRegistry(reg *template.Registry) Option {
	return func(c *Controller) { c.registry = reg }
}

// New constructs a Controller over a document source.
func New(source store.Source, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		source:      source,
		logger:      logger,
		events:      make(chan event, 256),
		done:        make(chan struct{}),
		restaurants: make(map[string]*restaurantState),
		published:   make(map[string]view.Update),
		bySlug:      make(map[string]string),
		subscribers: make(map[int]chan view.Update),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = template.NewRegistry(logger)
	}
	return c
}

// event is a delivery from one of the controller's subscriptions, tagged
// with enough scope to route it inside the loop.
type event interface{ isEvent() }

type restaurantEvt struct {
	h *subHandle[menu.Restaurant]
	e store.Event[menu.Restaurant]
}

type categoryEvt struct {
	restaurantID string
	h            *subHandle[menu.Category]
	e            store.Event[menu.Category]
}

type itemEvt struct {
	key menu.CategoryKey
	h   *subHandle[menu.Item]
	e   store.Event[menu.Item]
}

type restClosedEvt struct{ h *subHandle[menu.Restaurant] }

type catClosedEvt struct {
	restaurantID string
	h            *subHandle[menu.Category]
}

type itemClosedEvt struct {
	key menu.CategoryKey
	h   *subHandle[menu.Item]
}

func (restaurantEvt) isEvent() {}
func (categoryEvt) isEvent()   {}
func (itemEvt) isEvent()       {}
func (restClosedEvt) isEvent() {}
func (catClosedEvt) isEvent()  {}
func (itemClosedEvt) isEvent() {}

// Run starts the controller and blocks until ctx is cancelled or the
// top-level restaurant source fails. Nested source failures degrade the
// affected restaurant's view and are only logged.
func (c *Controller) Run(ctx context.Context) error {
	templates, err := c.source.LoadTemplates(ctx)
	if err != nil {
		// Views still render with a resolved variant; only the stored
		// template document is missing.
		c.logger.Warn("Loading templates failed, views will carry no template document", "error", err)
	}
	c.templates = templates
	c.mu.Lock()
	c.templatesPub = templates
	c.mu.Unlock()

	restSub, err := c.source.WatchRestaurants(ctx)
	if err != nil {
		c.publishUnavailable()
		return fmt.Errorf("watch restaurants: %w", err)
	}
	c.restSub = &subHandle[menu.Restaurant]{sub: restSub}
	c.openWatches.Add(1)
	go c.forwardRestaurants(c.restSub)

	defer c.teardown()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-c.events:
			c.eventsTotal.Add(1)
			switch ev := e.(type) {
			case restaurantEvt:
				c.handleRestaurant(ctx, ev)
			case categoryEvt:
				c.handleCategory(ctx, ev)
			case itemEvt:
				c.handleItem(ev)
			case restClosedEvt:
				if c.restSub == ev.h {
					c.restSub = nil
					c.openWatches.Add(-1)
					c.logger.Error("Restaurant source terminated, view unavailable")
					c.publishUnavailable()
					return view.ErrSourceUnavailable
				}
			case catClosedEvt:
				c.handleCategoryClosed(ev)
			case itemClosedEvt:
				c.handleItemClosed(ev)
			}
		}
	}
}

func (c *Controller) handleRestaurant(ctx context.Context, ev restaurantEvt) {
	if c.restSub != ev.h {
		return
	}
	switch ev.e.Op {
	case store.OpSync:
		c.mu.Lock()
		c.synced = true
		c.mu.Unlock()
		if c.slug != "" && len(c.restaurants) == 0 {
			c.publishNotFound("")
		}
	case store.OpPut:
		doc := ev.e.Doc
		doc.ID = ev.e.ID
		if c.slug != "" && doc.Slug != c.slug {
			// A watched restaurant whose slug moved away no longer
			// belongs to this page.
			if _, ok := c.restaurants[ev.e.ID]; ok {
				c.removeRestaurant(ev.e.ID)
				c.publishNotFound("")
			}
			return
		}
		if c.slug != "" && !doc.Active {
			c.removeRestaurant(doc.ID)
			c.publishNotFound(doc.ID)
			return
		}
		c.upsertRestaurant(ctx, doc)
	case store.OpDelete:
		if _, ok := c.restaurants[ev.e.ID]; !ok {
			return
		}
		c.removeRestaurant(ev.e.ID)
		c.publishNotFound(ev.e.ID)
	}
}

// upsertRestaurant transitions a restaurant to Watching, starting its
// category subscription on first sight, and republishes its view.
func (c *Controller) upsertRestaurant(ctx context.Context, doc menu.Restaurant) {
	rs, ok := c.restaurants[doc.ID]
	if !ok {
		rs = &restaurantState{
			categories: make(map[string]menu.Category),
			items:      make(map[string]map[string]menu.Item),
			itemSubs:   make(map[string]*subHandle[menu.Item]),
		}
		c.restaurants[doc.ID] = rs

		sub, err := c.source.WatchCategories(ctx, doc.ID)
		if err != nil {
			// Degraded: the restaurant renders with an empty menu.
			c.logger.Error("Watching categories failed, view degraded",
				"restaurant", doc.ID, "error", err)
		} else {
			rs.catSub = &subHandle[menu.Category]{sub: sub}
			c.openWatches.Add(1)
			go c.forwardCategories(doc.ID, rs.catSub)
		}
	}
	rs.doc = doc
	c.recomputePublish(doc.ID)
}

func (c *Controller) handleCategory(ctx context.Context, ev categoryEvt) {
	rs, ok := c.restaurants[ev.restaurantID]
	if !ok || rs.catSub != ev.h {
		return
	}
	switch ev.e.Op {
	case store.OpPut:
		doc := ev.e.Doc
		doc.ID = ev.e.ID
		doc.RestaurantID = ev.restaurantID
		_, known := rs.categories[doc.ID]
		rs.categories[doc.ID] = doc
		if !known {
			key := menu.CategoryKey{RestaurantID: ev.restaurantID, CategoryID: doc.ID}
			sub, err := c.source.WatchItems(ctx, key)
			if err != nil {
				c.logger.Error("Watching items failed, category degraded",
					"restaurant", key.RestaurantID, "category", key.CategoryID, "error", err)
			} else {
				h := &subHandle[menu.Item]{sub: sub}
				rs.itemSubs[doc.ID] = h
				c.openWatches.Add(1)
				go c.forwardItems(key, h)
			}
		}
	case store.OpDelete:
		delete(rs.categories, ev.e.ID)
		delete(rs.items, ev.e.ID)
		if h, ok := rs.itemSubs[ev.e.ID]; ok {
			delete(rs.itemSubs, ev.e.ID)
			c.stopWatch(h.sub)
		}
	}
	// OpSync falls through: the empty-category snapshot must still publish.
	c.recomputePublish(ev.restaurantID)
}

func (c *Controller) handleItem(ev itemEvt) {
	rs, ok := c.restaurants[ev.key.RestaurantID]
	if !ok || rs.itemSubs[ev.key.CategoryID] != ev.h {
		return
	}
	switch ev.e.Op {
	case store.OpPut:
		doc := ev.e.Doc
		doc.ID = ev.e.ID
		doc.CategoryID = ev.key.CategoryID
		doc.RestaurantID = ev.key.RestaurantID
		if rs.items[ev.key.CategoryID] == nil {
			rs.items[ev.key.CategoryID] = make(map[string]menu.Item)
		}
		rs.items[ev.key.CategoryID][doc.ID] = doc
	case store.OpDelete:
		delete(rs.items[ev.key.CategoryID], ev.e.ID)
	}
	c.recomputePublish(ev.key.RestaurantID)
}

// handleCategoryClosed reacts to a category watch terminating without a
// deliberate stop. The restaurant's view keeps its last known categories.
func (c *Controller) handleCategoryClosed(ev catClosedEvt) {
	rs, ok := c.restaurants[ev.restaurantID]
	if !ok || rs.catSub != ev.h {
		return
	}
	rs.catSub = nil
	c.openWatches.Add(-1)
	c.logger.Error("Category subscription terminated, view degraded", "restaurant", ev.restaurantID)
}

func (c *Controller) handleItemClosed(ev itemClosedEvt) {
	rs, ok := c.restaurants[ev.key.RestaurantID]
	if !ok || rs.itemSubs[ev.key.CategoryID] != ev.h {
		return
	}
	delete(rs.itemSubs, ev.key.CategoryID)
	c.openWatches.Add(-1)
	c.logger.Error("Item subscription terminated, category degraded",
		"restaurant", ev.key.RestaurantID, "category", ev.key.CategoryID)
}

// removeRestaurant tears down every subscription belonging to a restaurant
// and forgets its state. Events still in flight for the dropped scopes are
// discarded by the handle identity checks.
func (c *Controller) removeRestaurant(id string) {
	rs, ok := c.restaurants[id]
	if !ok {
		return
	}
	delete(c.restaurants, id)
	if rs.catSub != nil {
		c.stopWatch(rs.catSub.sub)
	}
	for _, h := range rs.itemSubs {
		c.stopWatch(h.sub)
	}

	c.mu.Lock()
	if prev, ok := c.published[id]; ok {
		delete(c.published, id)
		if c.bySlug[prev.Slug] == id {
			delete(c.bySlug, prev.Slug)
		}
	}
	c.mu.Unlock()
}

func (c *Controller) stopWatch(s interface{ Stop() }) {
	s.Stop()
	c.openWatches.Add(-1)
}

// recomputePublish rebuilds the aggregate for one restaurant and publishes
// it if the joined view actually changed. Reprocessing a delivery is
// idempotent, so redundant events cost a comparison, never a notification.
func (c *Controller) recomputePublish(id string) {
	rs, ok := c.restaurants[id]
	if !ok {
		return
	}
	categories := make([]menu.Category, 0, len(rs.categories))
	for _, cat := range rs.categories {
		categories = append(categories, cat)
	}
	var items []menu.Item
	for _, byID := range rs.items {
		for _, it := range byID {
			items = append(items, it)
		}
	}

	v := view.Aggregate(rs.doc, categories, items, c.templates, c.registry)
	if rs.lastView != nil && reflect.DeepEqual(*rs.lastView, v) {
		return
	}
	rs.lastView = &v
	c.publish(view.Update{
		RestaurantID: id,
		Slug:         v.Slug,
		Status:       view.StatusReady,
		View:         &v,
	})
}

func (c *Controller) publishNotFound(restaurantID string) {
	c.publish(view.Update{
		RestaurantID: restaurantID,
		Slug:         c.slug,
		Status:       view.StatusError,
		Error:        view.ErrorNotFound,
	})
}

func (c *Controller) publishUnavailable() {
	c.mu.Lock()
	c.unavailable = true
	c.mu.Unlock()
	c.publish(view.Update{
		Status: view.StatusError,
		Error:  view.ErrorSourceUnavailable,
	})
}

// publish records the update and fans it out. Slow subscribers are skipped
// rather than blocking the loop; every subscriber channel is buffered.
func (c *Controller) publish(u view.Update) {
	c.publishedTotal.Add(1)
	c.mu.Lock()
	if u.RestaurantID != "" {
		if prev, ok := c.published[u.RestaurantID]; ok && prev.Slug != u.Slug {
			delete(c.bySlug, prev.Slug)
		}
		c.published[u.RestaurantID] = u
		if u.Slug != "" {
			c.bySlug[u.Slug] = u.RestaurantID
		}
	}
	subs := make([]chan view.Update, 0, len(c.subscribers))
	for _, ch := range c.subscribers {
		subs = append(subs, ch)
	}
	c.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- u:
		default:
			c.logger.Warn("Dropping view update for slow subscriber",
				"restaurant", u.RestaurantID, "slug", u.Slug)
		}
	}
}

// Subscribe registers a view-update listener. The returned cancel must be
// called when the listener loses interest.
func (c *Controller) Subscribe() (<-chan view.Update, func()) {
	ch := make(chan view.Update, 64)
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch
	c.mu.Unlock()
	return ch, func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// BySlug returns the ready view for an active restaurant with the given
// slug. A missing slug and an inactive restaurant both return ErrNotFound; a
// failed top-level source returns ErrSourceUnavailable. Until the initial
// restaurant replay has completed, a miss returns ErrLoading instead of a
// definitive ErrNotFound.
func (c *Controller) BySlug(slug string) (view.RestaurantView, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.bySlug[slug]
	if ok {
		u := c.published[id]
		if u.Status == view.StatusReady && u.View != nil && u.View.Active {
			return *u.View, nil
		}
	}
	if c.unavailable {
		return view.RestaurantView{}, view.ErrSourceUnavailable
	}
	if !c.synced {
		return view.RestaurantView{}, view.ErrLoading
	}
	return view.RestaurantView{}, view.ErrNotFound
}

// Views returns the ready views of all active restaurants, ordered by name
// then ID.
func (c *Controller) Views() []view.RestaurantView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]view.RestaurantView, 0, len(c.published))
	for _, u := range c.published {
		if u.Status == view.StatusReady && u.View != nil && u.View.Active {
			out = append(out, *u.View)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Templates returns the template documents loaded at startup.
func (c *Controller) Templates() []menu.Template {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]menu.Template(nil), c.templatesPub...)
}

// Stats reports operational counters for metrics export.
type Stats struct {
	OpenWatches    int64
	PublishedTotal uint64
	EventsTotal    uint64
}

// Stats returns the current counters.
func (c *Controller) Stats() Stats {
	return Stats{
		OpenWatches:    c.openWatches.Load(),
		PublishedTotal: c.publishedTotal.Load(),
		EventsTotal:    c.eventsTotal.Load(),
	}
}

// teardown releases every live subscription.
func (c *Controller) teardown() {
	close(c.done)
	if c.restSub != nil {
		c.stopWatch(c.restSub.sub)
		c.restSub = nil
	}
	for id := range c.restaurants {
		rs := c.restaurants[id]
		delete(c.restaurants, id)
		if rs.catSub != nil {
			c.stopWatch(rs.catSub.sub)
		}
		for _, h := range rs.itemSubs {
			c.stopWatch(h.sub)
		}
	}
}

func (c *Controller) forwardRestaurants(h *subHandle[menu.Restaurant]) {
	for e := range h.sub.Updates() {
		select {
		case c.events <- restaurantEvt{h: h, e: e}:
		case <-c.done:
			return
		}
	}
	select {
	case c.events <- restClosedEvt{h: h}:
	case <-c.done:
	}
}

func (c *Controller) forwardCategories(restaurantID string, h *subHandle[menu.Category]) {
	for e := range h.sub.Updates() {
		select {
		case c.events <- categoryEvt{restaurantID: restaurantID, h: h, e: e}:
		case <-c.done:
			return
		}
	}
	select {
	case c.events <- catClosedEvt{restaurantID: restaurantID, h: h}:
	case <-c.done:
	}
}

func (c *Controller) forwardItems(key menu.CategoryKey, h *subHandle[menu.Item]) {
	for e := range h.sub.Updates() {
		select {
		case c.events <- itemEvt{key: key, h: h, e: e}:
		case <-c.done:
			return
		}
	}
	select {
	case c.events <- itemClosedEvt{key: key, h: h}:
	case <-c.done:
	}
}
