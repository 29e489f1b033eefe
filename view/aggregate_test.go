package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menulive/menulive/menu"
	"github.com/menulive/menulive/template"
)

func boolPtr(b bool) *bool { return &b }

func testRestaurant() menu.Restaurant {
	return menu.Restaurant{
		ID:         "r1",
		Name:       "Café Bella Vista",
		Slug:       "cafe-bella-vista",
		Active:     true,
		Currency:   "COP",
		TemplateID: "template-elegant",
	}
}

func TestAggregateSortsByOrderThenID(t *testing.T) {
	r := testRestaurant()
	categories := []menu.Category{
		{ID: "c3", RestaurantID: "r1", Name: "Tres", Order: 3},
		{ID: "c1", RestaurantID: "r1", Name: "Uno", Order: 1},
		{ID: "c2", RestaurantID: "r1", Name: "Dos", Order: 2},
	}

	v := Aggregate(r, categories, nil, nil, nil)

	require.Len(t, v.Categories, 3)
	assert.Equal(t, "c1", v.Categories[0].ID)
	assert.Equal(t, "c2", v.Categories[1].ID)
	assert.Equal(t, "c3", v.Categories[2].ID)
}

func TestAggregateTieBreaksByID(t *testing.T) {
	r := testRestaurant()
	categories := []menu.Category{
		{ID: "cb", RestaurantID: "r1", Order: 1},
		{ID: "ca", RestaurantID: "r1", Order: 1},
	}

	v := Aggregate(r, categories, nil, nil, nil)

	require.Len(t, v.Categories, 2)
	assert.Equal(t, "ca", v.Categories[0].ID)
	assert.Equal(t, "cb", v.Categories[1].ID)
}

func TestAggregateActiveFiltering(t *testing.T) {
	r := testRestaurant()
	categories := []menu.Category{
		{ID: "c1", RestaurantID: "r1", Order: 1},
		{ID: "c2", RestaurantID: "r1", Order: 2, Active: boolPtr(false)},
		{ID: "c3", RestaurantID: "r1", Order: 3, Active: boolPtr(true)},
	}
	items := []menu.Item{
		{ID: "i1", RestaurantID: "r1", CategoryID: "c1", Order: 1},
		{ID: "i2", RestaurantID: "r1", CategoryID: "c1", Order: 2, Active: boolPtr(false)},
		{ID: "i3", RestaurantID: "r1", CategoryID: "c1", Order: 3, Active: boolPtr(true)},
		// Item in an inactive category: excluded with its category.
		{ID: "i4", RestaurantID: "r1", CategoryID: "c2", Order: 1},
	}

	v := Aggregate(r, categories, items, nil, nil)

	require.Len(t, v.Categories, 2, "explicit false excludes a category; unset and true include")
	assert.Equal(t, "c1", v.Categories[0].ID)
	assert.Equal(t, "c3", v.Categories[1].ID)

	require.Len(t, v.Categories[0].Items, 2, "explicit false excludes an item; unset and true include")
	assert.Equal(t, "i1", v.Categories[0].Items[0].ID)
	assert.Equal(t, "i3", v.Categories[0].Items[1].ID)
}

func TestAggregateScopesToRestaurant(t *testing.T) {
	r := testRestaurant()
	categories := []menu.Category{
		{ID: "c1", RestaurantID: "r1", Order: 1},
		{ID: "cx", RestaurantID: "other", Order: 1},
	}
	items := []menu.Item{
		{ID: "i1", RestaurantID: "r1", CategoryID: "c1"},
		{ID: "ix", RestaurantID: "other", CategoryID: "c1"},
	}

	v := Aggregate(r, categories, items, nil, nil)

	require.Len(t, v.Categories, 1)
	require.Len(t, v.Categories[0].Items, 1)
	assert.Equal(t, "i1", v.Categories[0].Items[0].ID)
}

func TestAggregateZeroCategories(t *testing.T) {
	v := Aggregate(testRestaurant(), nil, nil, nil, nil)

	require.NotNil(t, v.Categories)
	assert.Empty(t, v.Categories)
}

func TestAggregateEmptyCategoryHasEmptyItems(t *testing.T) {
	r := testRestaurant()
	v := Aggregate(r, []menu.Category{{ID: "c1", RestaurantID: "r1"}}, nil, nil, nil)

	require.Len(t, v.Categories, 1)
	require.NotNil(t, v.Categories[0].Items)
	assert.Empty(t, v.Categories[0].Items)
}

func TestAggregateTemplateMatch(t *testing.T) {
	r := testRestaurant()
	templates := []menu.Template{
		{ID: "template-default", Name: "Plantilla por defecto"},
		{ID: "template-elegant", Name: "Elegante"},
	}

	v := Aggregate(r, nil, nil, templates, nil)

	require.NotNil(t, v.Template)
	assert.Equal(t, "template-elegant", v.Template.ID)
	assert.Equal(t, template.VariantElegant, v.Variant)
}

func TestAggregateUnmatchedTemplateStillResolvesVariant(t *testing.T) {
	r := testRestaurant()
	r.TemplateID = "Promo de Navidad 2025"

	v := Aggregate(r, nil, nil, []menu.Template{{ID: "template-default"}}, nil)

	assert.Nil(t, v.Template, "no stored document matches the identifier")
	assert.Equal(t, template.VariantChristmas, v.Variant, "the variant resolves regardless")
}

func TestAggregateIdempotent(t *testing.T) {
	r := testRestaurant()
	categories := []menu.Category{
		{ID: "c2", RestaurantID: "r1", Order: 2},
		{ID: "c1", RestaurantID: "r1", Order: 1},
	}
	items := []menu.Item{
		{ID: "i2", RestaurantID: "r1", CategoryID: "c1", Order: 2},
		{ID: "i1", RestaurantID: "r1", CategoryID: "c1", Order: 1},
	}
	templates := []menu.Template{{ID: "template-elegant", Name: "Elegante"}}

	first := Aggregate(r, categories, items, templates, nil)
	second := Aggregate(r, categories, items, templates, nil)
	assert.Equal(t, first, second)

	// Input order must not leak into the output.
	reversedCats := []menu.Category{categories[1], categories[0]}
	reversedItems := []menu.Item{items[1], items[0]}
	third := Aggregate(r, reversedCats, reversedItems, templates, nil)
	assert.Equal(t, first, third)
}
