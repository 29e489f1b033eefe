package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/menulive/menulive/menu"
	"github.com/menulive/menulive/template"
)

// Seed populates the buckets with the template table and one sample
// restaurant. It is the development stand-in for the out-of-band write path;
// the service itself never writes.
func (n *NATS) Seed(ctx context.Context) error {
	if err := n.EnsureBuckets(ctx); err != nil {
		return err
	}

	if err := n.seedTemplates(ctx); err != nil {
		return err
	}

	restaurantID := "restaurant-" + uuid.NewString()[:8]
	r := menu.Restaurant{
		Name:       "Café Bella Vista",
		Slug:       "cafe-bella-vista",
		Active:     true,
		Currency:   "COP",
		TemplateID: "template-elegant",
		Contact: &menu.Contact{
			Whatsapp:  "+57 300 123 4567",
			Instagram: "@cafebellavista",
			Address:   "Carrera 15 #93-47, Bogotá",
		},
		Schedule: map[string]string{
			"monday":    "07:00-20:00",
			"tuesday":   "07:00-20:00",
			"wednesday": "07:00-20:00",
			"thursday":  "07:00-20:00",
			"friday":    "07:00-22:00",
			"saturday":  "08:00-22:00",
			"sunday":    "09:00-18:00",
		},
	}
	if err := n.put(ctx, BucketRestaurants, restaurantID, r); err != nil {
		return err
	}

	type seedItem struct {
		name, description string
		price, order      int
	}
	type seedCategory struct {
		id, name string
		order    int
		items    []seedItem
	}
	categories := []seedCategory{
		{id: "cat_bebidas", name: "Bebidas", order: 1, items: []seedItem{
			{"Café Americano", "Café negro fuerte", 3500, 1},
			{"Café Latte", "Espresso con leche vaporizada", 4500, 2},
			{"Capuccino", "Espresso, leche y espuma", 4800, 3},
			{"Té Verde", "Té verde orgánico", 4000, 4},
			{"Limonada Natural", "Limonada fresca con hielo", 5500, 5},
		}},
		{id: "cat_postres", name: "Postres", order: 2, items: []seedItem{
			{"Torta de Chocolate", "Torta húmeda de chocolate belga", 12000, 1},
			{"Cheesecake", "Cheesecake de fresa", 13500, 2},
			{"Brownie", "Brownie con nueces y helado", 8500, 3},
			{"Tiramisú", "Postre italiano tradicional", 14000, 4},
		}},
		{id: "cat_desayunos", name: "Desayunos", order: 3, items: []seedItem{
			{"Desayuno Completo", "Huevos, tostadas, jamón, queso y café", 18000, 1},
			{"Pancakes", "Pancakes con miel y frutas", 15000, 2},
			{"Waffles", "Waffles belgas con miel y mantequilla", 16000, 3},
			{"Arepa con Huevo", "Arepa frita con huevo y queso", 8000, 4},
		}},
		{id: "cat_almuerzos", name: "Almuerzos", order: 4, items: []seedItem{
			{"Ensalada César", "Lechuga, pollo, crutones y aderezo césar", 22000, 1},
			{"Sandwich de Pollo", "Pollo a la plancha, lechuga, tomate y mayonesa", 19000, 2},
			{"Pasta Carbonara", "Pasta con tocino, crema y queso parmesano", 24000, 3},
		}},
	}

	for _, sc := range categories {
		ck := menu.CategoryKey{RestaurantID: restaurantID, CategoryID: sc.id}
		if err := n.put(ctx, BucketCategories, ck.String(), menu.Category{Name: sc.name, Order: sc.order}); err != nil {
			return err
		}
		for _, si := range sc.items {
			ik := menu.ItemKey{RestaurantID: restaurantID, CategoryID: sc.id, ItemID: "item-" + uuid.NewString()[:8]}
			it := menu.Item{Name: si.name, Description: si.description, Price: si.price, Order: si.order}
			if err := n.put(ctx, BucketItems, ik.String(), it); err != nil {
				return err
			}
		}
	}

	n.logger.Info("Seeded sample data",
		slog.String("restaurant", restaurantID),
		slog.String("slug", r.Slug),
		slog.Int("categories", len(categories)))
	return nil
}

// seedTemplates writes one template document per built-in variant.
func (n *NATS) seedTemplates(ctx context.Context) error {
	for _, t := range template.Builtin() {
		doc := menu.Template{Name: t.Name, Keywords: t.Keywords, Description: t.Description}
		if err := n.put(ctx, BucketTemplates, t.ID, doc); err != nil {
			return err
		}
	}
	return nil
}

func (n *NATS) put(ctx context.Context, bucket, key string, doc any) error {
	kv, err := n.js.KeyValue(ctx, bucket)
	if err != nil {
		return fmt.Errorf("open bucket %s: %w", bucket, err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", bucket, key, err)
	}
	if _, err := kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}
	return nil
}
