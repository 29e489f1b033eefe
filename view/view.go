// Package view builds and describes the joined read model: one restaurant
// with its sorted, filtered categories and items, the matched template
// document, and the resolved presentation variant.
package view

import (
	"errors"

	"github.com/menulive/menulive/menu"
	"github.com/menulive/menulive/template"
)

// Sentinel errors for the published read surface. A slug belonging to an
// inactive restaurant surfaces as ErrNotFound so the lookup does not leak
// existence. ErrLoading is returned while the initial replay of the
// restaurant collection is still in flight: a miss at that point is not yet
// a definitive not-found.
var (
	ErrNotFound          = errors.New("restaurant not found")
	ErrSourceUnavailable = errors.New("data source unavailable")
	ErrLoading           = errors.New("views still loading")
)

// CategoryView is a category together with its ordered, active items.
type CategoryView struct {
	menu.Category
	Items []menu.Item `json:"items"`
}

// RestaurantView is the fully joined read model for one restaurant.
// Template is the stored template document matched by exact ID, or nil when
// the stored identifier matches no document; Variant is always set — the
// resolver never leaves a view without a presentation variant.
type RestaurantView struct {
	menu.Restaurant
	Categories []CategoryView   `json:"categories"`
	Template   *menu.Template   `json:"template"`
	Variant    template.Variant `json:"variant"`
}

// Status describes the lifecycle of a published view.
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// ErrorKind classifies a failed view.
type ErrorKind string

const (
	// ErrorNone marks a non-error update.
	ErrorNone ErrorKind = ""
	// ErrorNotFound covers both a nonexistent slug and an inactive
	// restaurant.
	ErrorNotFound ErrorKind = "not_found"
	// ErrorSourceUnavailable means the top-level restaurant source failed;
	// the whole view is unavailable and the caller may retry.
	ErrorSourceUnavailable ErrorKind = "source_unavailable"
)

// Update is one published view notification.
type Update struct {
	RestaurantID string
	Slug         string
	Status       Status
	Error        ErrorKind
	View         *RestaurantView
}
