package view

import (
	"sort"

	"github.com/menulive/menulive/menu"
	"github.com/menulive/menulive/template"
)

// Aggregate joins one restaurant with its categories, items, and the stored
// template documents into a RestaurantView.
//
// The operation is pure: identical inputs yield identical output regardless
// of input slice order. Categories and items are filtered permissively (only
// an explicit active=false excludes), sorted ascending by Order with ID as
// the tie-break, and items are attached to their category by ID within this
// restaurant. The template document is matched by exact ID only; the variant
// is resolved through reg and always present. A nil reg uses the built-in
// variant table.
func Aggregate(r menu.Restaurant, categories []menu.Category, items []menu.Item, templates []menu.Template, reg *template.Registry) RestaurantView {
	itemsByCategory := make(map[string][]menu.Item)
	for _, it := range items {
		if it.RestaurantID != r.ID || !it.IsActive() {
			continue
		}
		itemsByCategory[it.CategoryID] = append(itemsByCategory[it.CategoryID], it)
	}

	var cats []CategoryView
	for _, c := range categories {
		if c.RestaurantID != r.ID || !c.IsActive() {
			continue
		}
		catItems := append([]menu.Item(nil), itemsByCategory[c.ID]...)
		sortByOrder(catItems, func(it menu.Item) (int, string) { return it.Order, it.ID })
		if catItems == nil {
			catItems = []menu.Item{}
		}
		cats = append(cats, CategoryView{Category: c, Items: catItems})
	}
	sortByOrder(cats, func(cv CategoryView) (int, string) { return cv.Order, cv.ID })
	if cats == nil {
		cats = []CategoryView{}
	}

	var matched *menu.Template
	for i := range templates {
		if templates[i].ID == r.TemplateID {
			t := templates[i]
			matched = &t
			break
		}
	}

	var variant template.Variant
	if reg != nil {
		variant = reg.Resolve(r.TemplateID).Variant
	} else {
		variant = template.ResolveVariant(r.TemplateID)
	}

	return RestaurantView{
		Restaurant: r,
		Categories: cats,
		Template:   matched,
		Variant:    variant,
	}
}

// sortByOrder sorts ascending by order with ID as the deterministic
// tie-break.
func sortByOrder[T any](s []T, key func(T) (int, string)) {
	sort.SliceStable(s, func(i, j int) bool {
		oi, idi := key(s[i])
		oj, idj := key(s[j])
		if oi != oj {
			return oi < oj
		}
		return idi < idj
	})
}
