// Package menu defines the domain model for the restaurant-menu service:
// restaurants, their categories and items, and the stored template documents,
// plus the typed keys that encode containment between them.
package menu

// Contact holds the optional public contact details of a restaurant.
type Contact struct {
	Whatsapp  string `json:"whatsapp,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Address   string `json:"address,omitempty"`
}

// Restaurant is the root document of the aggregation tree. Schedule maps a
// lowercase English weekday name to an "HH:MM-HH:MM" range or "closed".
type Restaurant struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Slug       string            `json:"slug"`
	Active     bool              `json:"isActive"`
	Currency   string            `json:"currency"`
	TemplateID string            `json:"templateId"`
	Contact    *Contact          `json:"contact,omitempty"`
	Schedule   map[string]string `json:"schedule,omitempty"`
}

// Category belongs to exactly one restaurant. Active is tri-state: a missing
// field means active, only an explicit false excludes the category from
// aggregated views.
type Category struct {
	ID           string `json:"id"`
	RestaurantID string `json:"restaurantId"`
	Name         string `json:"name"`
	Order        int    `json:"order"`
	Active       *bool  `json:"active,omitempty"`
}

// IsActive reports whether the category should appear in rendered views.
func (c Category) IsActive() bool {
	return c.Active == nil || *c.Active
}

// Item belongs to exactly one category within one restaurant. Price is in
// whole currency units. Active follows the same permissive tri-state rule as
// Category.
type Item struct {
	ID           string `json:"id"`
	RestaurantID string `json:"restaurantId"`
	CategoryID   string `json:"categoryId"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Price        int    `json:"price"`
	Order        int    `json:"order"`
	Active       *bool  `json:"active,omitempty"`
}

// IsActive reports whether the item should appear in rendered views.
func (i Item) IsActive() bool {
	return i.Active == nil || *i.Active
}

// Template is a stored template document. The presentation variant itself is
// resolved from the closed variant table, not from this record; Keywords feed
// the fallback resolution.
type Template struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Keywords    []string `json:"keywords,omitempty"`
	Description string   `json:"description,omitempty"`
}
