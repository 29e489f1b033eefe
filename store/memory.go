package store

import (
	"context"
	"errors"
	"sync"

	"github.com/menulive/menulive/menu"
)

// Memory is an in-process Source for tests and local development. Writes
// broadcast to every open watch with the same snapshot-then-OpSync-then-live
// semantics as the NATS implementation. Watch open and close counts are
// tracked so subscription lifecycle is observable.
type Memory struct {
	mu sync.Mutex

	restaurants map[string]menu.Restaurant
	categories  map[string]map[string]menu.Category
	items       map[menu.CategoryKey]map[string]menu.Item
	templates   []menu.Template

	restaurantSubs map[*memSub[menu.Restaurant]]struct{}
	categorySubs   map[string]map[*memSub[menu.Category]]struct{}
	itemSubs       map[menu.CategoryKey]map[*memSub[menu.Item]]struct{}

	// Failure injection for tests.
	failRestaurants bool
	failCategories  map[string]bool

	opened int
	closed int
}

// NewMemory returns an empty in-memory source.
func NewMemory() *Memory {
	return &Memory{
		restaurants:    make(map[string]menu.Restaurant),
		categories:     make(map[string]map[string]menu.Category),
		items:          make(map[menu.CategoryKey]map[string]menu.Item),
		restaurantSubs: make(map[*memSub[menu.Restaurant]]struct{}),
		categorySubs:   make(map[string]map[*memSub[menu.Category]]struct{}),
		itemSubs:       make(map[menu.CategoryKey]map[*memSub[menu.Item]]struct{}),
		failCategories: make(map[string]bool),
	}
}

type memSub[T any] struct {
	ch      chan Event[T]
	release func()
	once    sync.Once
}

func (s *memSub[T]) Updates() <-chan Event[T] { return s.ch }

func (s *memSub[T]) Stop() {
	s.once.Do(s.release)
}

// send delivers without blocking the writer; the channel is generously
// buffered and tests drain promptly.
func (s *memSub[T]) send(e Event[T]) {
	select {
	case s.ch <- e:
	default:
	}
}

// WatchRestaurants implements Source.
func (m *Memory) WatchRestaurants(_ context.Context) (Subscription[menu.Restaurant], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRestaurants {
		return nil, errors.New("restaurants source unavailable")
	}
	sub := &memSub[menu.Restaurant]{ch: make(chan Event[menu.Restaurant], 256)}
	sub.release = func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.restaurantSubs, sub)
		m.closed++
		close(sub.ch)
	}
	for id, r := range m.restaurants {
		sub.send(Event[menu.Restaurant]{ID: id, Doc: r, Op: OpPut})
	}
	sub.send(Event[menu.Restaurant]{Op: OpSync})
	m.restaurantSubs[sub] = struct{}{}
	m.opened++
	return sub, nil
}

// WatchCategories implements Source.
func (m *Memory) WatchCategories(_ context.Context, restaurantID string) (Subscription[menu.Category], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCategories[restaurantID] {
		return nil, errors.New("categories source unavailable")
	}
	sub := &memSub[menu.Category]{ch: make(chan Event[menu.Category], 256)}
	sub.release = func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.categorySubs[restaurantID], sub)
		m.closed++
		close(sub.ch)
	}
	for id, c := range m.categories[restaurantID] {
		sub.send(Event[menu.Category]{ID: id, Doc: c, Op: OpPut})
	}
	sub.send(Event[menu.Category]{Op: OpSync})
	if m.categorySubs[restaurantID] == nil {
		m.categorySubs[restaurantID] = make(map[*memSub[menu.Category]]struct{})
	}
	m.categorySubs[restaurantID][sub] = struct{}{}
	m.opened++
	return sub, nil
}

// WatchItems implements Source.
func (m *Memory) WatchItems(_ context.Context, key menu.CategoryKey) (Subscription[menu.Item], error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := &memSub[menu.Item]{ch: make(chan Event[menu.Item], 256)}
	sub.release = func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.itemSubs[key], sub)
		m.closed++
		close(sub.ch)
	}
	for id, it := range m.items[key] {
		sub.send(Event[menu.Item]{ID: id, Doc: it, Op: OpPut})
	}
	sub.send(Event[menu.Item]{Op: OpSync})
	if m.itemSubs[key] == nil {
		m.itemSubs[key] = make(map[*memSub[menu.Item]]struct{})
	}
	m.itemSubs[key][sub] = struct{}{}
	m.opened++
	return sub, nil
}

// LoadTemplates implements Source.
func (m *Memory) LoadTemplates(_ context.Context) ([]menu.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]menu.Template(nil), m.templates...), nil
}

// PutRestaurant stores a restaurant and notifies watchers.
func (m *Memory) PutRestaurant(r menu.Restaurant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restaurants[r.ID] = r
	for sub := range m.restaurantSubs {
		sub.send(Event[menu.Restaurant]{ID: r.ID, Doc: r, Op: OpPut})
	}
}

// DeleteRestaurant removes a restaurant and notifies watchers.
func (m *Memory) DeleteRestaurant(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.restaurants, id)
	for sub := range m.restaurantSubs {
		sub.send(Event[menu.Restaurant]{ID: id, Op: OpDelete})
	}
}

// PutCategory stores a category under its restaurant and notifies watchers.
func (m *Memory) PutCategory(c menu.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.categories[c.RestaurantID] == nil {
		m.categories[c.RestaurantID] = make(map[string]menu.Category)
	}
	m.categories[c.RestaurantID][c.ID] = c
	for sub := range m.categorySubs[c.RestaurantID] {
		sub.send(Event[menu.Category]{ID: c.ID, Doc: c, Op: OpPut})
	}
}

// DeleteCategory removes a category and notifies watchers.
func (m *Memory) DeleteCategory(key menu.CategoryKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.categories[key.RestaurantID], key.CategoryID)
	for sub := range m.categorySubs[key.RestaurantID] {
		sub.send(Event[menu.Category]{ID: key.CategoryID, Op: OpDelete})
	}
}

// PutItem stores an item under its category and notifies watchers.
func (m *Memory) PutItem(it menu.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := menu.CategoryKey{RestaurantID: it.RestaurantID, CategoryID: it.CategoryID}
	if m.items[key] == nil {
		m.items[key] = make(map[string]menu.Item)
	}
	m.items[key][it.ID] = it
	for sub := range m.itemSubs[key] {
		sub.send(Event[menu.Item]{ID: it.ID, Doc: it, Op: OpPut})
	}
}

// DeleteItem removes an item and notifies watchers.
func (m *Memory) DeleteItem(key menu.ItemKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ck := key.Category()
	delete(m.items[ck], key.ItemID)
	for sub := range m.itemSubs[ck] {
		sub.send(Event[menu.Item]{ID: key.ItemID, Op: OpDelete})
	}
}

// SetTemplates replaces the template collection.
func (m *Memory) SetTemplates(templates []menu.Template) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = append([]menu.Template(nil), templates...)
}

// FailRestaurants makes subsequent restaurant watch attempts fail.
func (m *Memory) FailRestaurants(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRestaurants = fail
}

// FailCategoriesFor makes subsequent category watch attempts for one
// restaurant fail.
func (m *Memory) FailCategoriesFor(restaurantID string, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCategories[restaurantID] = fail
}

// WatchStats reports how many watches have been opened and closed, and how
// many are currently active.
func (m *Memory) WatchStats() (opened, closed, active int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	active = len(m.restaurantSubs)
	for _, subs := range m.categorySubs {
		active += len(subs)
	}
	for _, subs := range m.itemSubs {
		active += len(subs)
	}
	return m.opened, m.closed, active
}
