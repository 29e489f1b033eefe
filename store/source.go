// Package store provides access to the menu document store: typed live
// subscriptions over the restaurant/category/item collections and one-shot
// template loading. The production implementation is backed by NATS
// JetStream KV buckets; Memory is an in-process implementation for tests and
// local development.
//
// Containment is encoded in keys (see package menu): categories are keyed
// <restaurantID>.<categoryID> and items <restaurantID>.<categoryID>.<itemID>,
// so a prefix watch is a per-restaurant or per-category subscription.
// Documents whose keys fail validation are rejected at this boundary.
package store

import (
	"context"

	"github.com/menulive/menulive/menu"
)

// Op is the kind of a subscription event.
type Op int

const (
	// OpPut delivers a created or updated document.
	OpPut Op = iota
	// OpDelete reports a removed document; only the ID is set.
	OpDelete
	// OpSync marks the end of the initial replay: every document that
	// existed when the watch started has been delivered.
	OpSync
)

// Event is one delivery on a live subscription.
type Event[T any] struct {
	ID  string
	Doc T
	Op  Op
}

// Subscription is a standing registration delivering events until stopped.
// The Updates channel closes after Stop, or when the underlying source
// terminates the watch; a close without a preceding Stop call means the
// subscription failed.
type Subscription[T any] interface {
	Updates() <-chan Event[T]
	Stop()
}

// Source is the read boundary with the document store.
type Source interface {
	// WatchRestaurants subscribes to the root restaurant collection.
	WatchRestaurants(ctx context.Context) (Subscription[menu.Restaurant], error)
	// WatchCategories subscribes to one restaurant's categories.
	WatchCategories(ctx context.Context, restaurantID string) (Subscription[menu.Category], error)
	// WatchItems subscribes to one category's items.
	WatchItems(ctx context.Context, key menu.CategoryKey) (Subscription[menu.Item], error)
	// LoadTemplates loads the template documents once. The collection is
	// small and infrequently changing, so it is not watched live.
	LoadTemplates(ctx context.Context) ([]menu.Template, error)
}
