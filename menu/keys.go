package menu

import (
	"fmt"
	"strings"
)

// Storage keys encode containment: a category key is
// "<restaurantID>.<categoryID>", an item key is
// "<restaurantID>.<categoryID>.<itemID>". Dots separate key segments, so
// segments themselves must not contain dots. Malformed keys are rejected at
// the ingestion boundary instead of producing silently empty joins.

// CategoryKey identifies a category within its owning restaurant.
type CategoryKey struct {
	RestaurantID string
	CategoryID   string
}

// String returns the storage key for the category.
func (k CategoryKey) String() string {
	return k.RestaurantID + "." + k.CategoryID
}

// Validate checks that both segments are present and dot-free.
func (k CategoryKey) Validate() error {
	return validateSegments(k.RestaurantID, k.CategoryID)
}

// ParseCategoryKey parses a storage key into a CategoryKey.
func ParseCategoryKey(s string) (CategoryKey, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return CategoryKey{}, fmt.Errorf("invalid category key %q: want <restaurant>.<category>", s)
	}
	k := CategoryKey{RestaurantID: parts[0], CategoryID: parts[1]}
	if err := k.Validate(); err != nil {
		return CategoryKey{}, fmt.Errorf("invalid category key %q: %w", s, err)
	}
	return k, nil
}

// ItemKey identifies an item within its owning category and restaurant.
type ItemKey struct {
	RestaurantID string
	CategoryID   string
	ItemID       string
}

// String returns the storage key for the item.
func (k ItemKey) String() string {
	return k.RestaurantID + "." + k.CategoryID + "." + k.ItemID
}

// Category returns the key of the item's owning category.
func (k ItemKey) Category() CategoryKey {
	return CategoryKey{RestaurantID: k.RestaurantID, CategoryID: k.CategoryID}
}

// Validate checks that all three segments are present and dot-free.
func (k ItemKey) Validate() error {
	return validateSegments(k.RestaurantID, k.CategoryID, k.ItemID)
}

// ParseItemKey parses a storage key into an ItemKey.
func ParseItemKey(s string) (ItemKey, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return ItemKey{}, fmt.Errorf("invalid item key %q: want <restaurant>.<category>.<item>", s)
	}
	k := ItemKey{RestaurantID: parts[0], CategoryID: parts[1], ItemID: parts[2]}
	if err := k.Validate(); err != nil {
		return ItemKey{}, fmt.Errorf("invalid item key %q: %w", s, err)
	}
	return k, nil
}

// ValidateID checks that a bare document identifier forms a single, dot-free
// key segment. Root-collection keys go through this the same way composite
// keys go through Parse.
func ValidateID(s string) error {
	return validateSegments(s)
}

func validateSegments(segments ...string) error {
	for _, s := range segments {
		if s == "" {
			return fmt.Errorf("empty key segment")
		}
		if strings.Contains(s, ".") {
			return fmt.Errorf("key segment %q contains a dot", s)
		}
	}
	return nil
}
