package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/menulive/menulive/menu"
)

// Bucket names for each collection.
const (
	BucketRestaurants = "MENU_RESTAURANTS"
	BucketCategories  = "MENU_CATEGORIES"
	BucketItems       = "MENU_ITEMS"
	BucketTemplates   = "MENU_TEMPLATES"
)

// NATS is a Source backed by JetStream KV buckets.
type NATS struct {
	js     jetstream.JetStream
	logger *slog.Logger
}

// NewNATS constructs a Source over an established JetStream context.
func NewNATS(js jetstream.JetStream, logger *slog.Logger) *NATS {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATS{js: js, logger: logger}
}

// EnsureBuckets creates the four collection buckets if they do not exist.
func (n *NATS) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{BucketRestaurants, BucketCategories, BucketItems, BucketTemplates} {
		if _, err := n.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucket}); err != nil {
			return fmt.Errorf("ensure bucket %s: %w", bucket, err)
		}
	}
	return nil
}

// WatchRestaurants subscribes to the root restaurant collection.
func (n *NATS) WatchRestaurants(ctx context.Context) (Subscription[menu.Restaurant], error) {
	return watchKV(ctx, n, BucketRestaurants, "", decodeRestaurant)
}

// decodeRestaurant validates and decodes one restaurant entry. Restaurant
// keys must be a single segment; a dotted key would truncate to its last
// segment downstream and watch the wrong category prefix, so it is rejected
// here like any other malformed document.
func decodeRestaurant(key string, data []byte) (menu.Restaurant, error) {
	if err := menu.ValidateID(key); err != nil {
		return menu.Restaurant{}, fmt.Errorf("invalid restaurant key %q: %w", key, err)
	}
	var r menu.Restaurant
	if err := json.Unmarshal(data, &r); err != nil {
		return menu.Restaurant{}, err
	}
	r.ID = key
	return r, nil
}

// WatchCategories subscribes to one restaurant's categories via a key-prefix
// watch. The composite key is validated and stamped onto the document, so
// downstream joins never depend on foreign-key fields inside the payload.
func (n *NATS) WatchCategories(ctx context.Context, restaurantID string) (Subscription[menu.Category], error) {
	pattern := restaurantID + ".*"
	return watchKV(ctx, n, BucketCategories, pattern, func(key string, data []byte) (menu.Category, error) {
		ck, err := menu.ParseCategoryKey(key)
		if err != nil {
			return menu.Category{}, err
		}
		var c menu.Category
		if err := json.Unmarshal(data, &c); err != nil {
			return menu.Category{}, err
		}
		c.ID = ck.CategoryID
		c.RestaurantID = ck.RestaurantID
		return c, nil
	})
}

// WatchItems subscribes to one category's items via a key-prefix watch.
func (n *NATS) WatchItems(ctx context.Context, key menu.CategoryKey) (Subscription[menu.Item], error) {
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("watch items: %w", err)
	}
	pattern := key.String() + ".*"
	return watchKV(ctx, n, BucketItems, pattern, func(k string, data []byte) (menu.Item, error) {
		ik, err := menu.ParseItemKey(k)
		if err != nil {
			return menu.Item{}, err
		}
		var it menu.Item
		if err := json.Unmarshal(data, &it); err != nil {
			return menu.Item{}, err
		}
		it.ID = ik.ItemID
		it.CategoryID = ik.CategoryID
		it.RestaurantID = ik.RestaurantID
		return it, nil
	})
}

// LoadTemplates reads every template document once.
func (n *NATS) LoadTemplates(ctx context.Context) ([]menu.Template, error) {
	kv, err := n.js.KeyValue(ctx, BucketTemplates)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", BucketTemplates, err)
	}
	lister, err := kv.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s keys: %w", BucketTemplates, err)
	}
	var templates []menu.Template
	for key := range lister.Keys() {
		entry, err := kv.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("get template %s: %w", key, err)
		}
		var t menu.Template
		if err := json.Unmarshal(entry.Value(), &t); err != nil {
			n.logger.Warn("Skipping malformed template document", "bucket", BucketTemplates, "key", key, "error", err)
			continue
		}
		t.ID = key
		templates = append(templates, t)
	}
	return templates, nil
}

// kvSubscription adapts a JetStream KeyWatcher to Subscription[T].
type kvSubscription[T any] struct {
	ch     chan Event[T]
	cancel context.CancelFunc
}

func (s *kvSubscription[T]) Updates() <-chan Event[T] { return s.ch }

func (s *kvSubscription[T]) Stop() { s.cancel() }

// watchKV opens a watch on a bucket and pumps decoded events into a typed
// channel. An empty pattern watches the whole bucket. The watcher delivers
// all existing entries first, then a nil marker (mapped to OpSync), then live
// updates. Entries that fail decode or key validation are logged and dropped.
func watchKV[T any](ctx context.Context, n *NATS, bucket, pattern string, decode func(key string, data []byte) (T, error)) (Subscription[T], error) {
	kv, err := n.js.KeyValue(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucket, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	var watcher jetstream.KeyWatcher
	if pattern == "" {
		watcher, err = kv.WatchAll(watchCtx)
	} else {
		watcher, err = kv.Watch(watchCtx, pattern)
	}
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s %q: %w", bucket, pattern, err)
	}

	sub := &kvSubscription[T]{ch: make(chan Event[T], 64), cancel: cancel}
	go func() {
		defer close(sub.ch)
		defer func() { _ = watcher.Stop() }()
		for {
			select {
			case <-watchCtx.Done():
				return
			case entry, ok := <-watcher.Updates():
				if !ok {
					return
				}
				if entry == nil {
					sub.deliver(watchCtx, Event[T]{Op: OpSync})
					continue
				}
				switch entry.Operation() {
				case jetstream.KeyValueDelete, jetstream.KeyValuePurge:
					sub.deliver(watchCtx, Event[T]{ID: lastKeySegment(entry.Key()), Op: OpDelete})
				default:
					doc, err := decode(entry.Key(), entry.Value())
					if err != nil {
						n.logger.Warn("Rejecting malformed document",
							"bucket", bucket, "key", entry.Key(), "error", err)
						continue
					}
					sub.deliver(watchCtx, Event[T]{ID: lastKeySegment(entry.Key()), Doc: doc, Op: OpPut})
				}
			}
		}
	}()
	return sub, nil
}

func (s *kvSubscription[T]) deliver(ctx context.Context, e Event[T]) {
	select {
	case s.ch <- e:
	case <-ctx.Done():
	}
}

func lastKeySegment(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '.' {
			return key[i+1:]
		}
	}
	return key
}
