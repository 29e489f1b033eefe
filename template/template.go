// Package template maps free-form template identifiers to a closed set of
// presentation variants. The identifier comes from a data-entry field and is
// not validated anywhere else, so Resolve is the sole safety net: it always
// returns exactly one variant, falling back to the default.
package template

import "strings"

// Variant is a presentation variant. The set is closed; the rendering layer
// ships exactly one visual theme per variant.
type Variant string

const (
	VariantDefault      Variant = "default"
	VariantChristmas    Variant = "christmas"
	VariantHalloween    Variant = "halloween"
	VariantVelitas      Variant = "velitas"
	VariantIndependence Variant = "independence"
	VariantEaster       Variant = "easter"
	VariantMothersDay   Variant = "mothers-day"
	VariantFathersDay   Variant = "fathers-day"
	VariantValentine    Variant = "valentine"
	VariantElegant      Variant = "elegant"
	VariantTropical     Variant = "tropical"
	VariantDark         Variant = "dark"
	VariantColorful     Variant = "colorful"
	VariantRomantic     Variant = "romantic"
)

// Category groups variants for listing purposes.
type Category string

const (
	CategoryFestivities Category = "festivities"
	CategoryThemes      Category = "themes"
)

// Config describes one resolvable template: its stable ID, display name,
// variant, and the keyword list used for fallback resolution.
type Config struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Variant     Variant  `json:"variant" yaml:"variant"`
	Category    Category `json:"category" yaml:"category"`
	Keywords    []string `json:"keywords" yaml:"keywords"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// builtin is the variant table in resolution order. Keyword fallback iterates
// this slice top to bottom and the first keyword hit wins, so the order is
// part of the resolution contract.
var builtin = []Config{
	{
		ID:       "template-default",
		Name:     "Plantilla por defecto",
		Variant:  VariantDefault,
		Category: CategoryThemes,
		Keywords: []string{"default", "template-default"},
	},
	{
		ID:       "template-christmas",
		Name:     "Navidad",
		Variant:  VariantChristmas,
		Category: CategoryFestivities,
		Keywords: []string{"christmas", "navidad", "template-christmas"},
	},
	{
		ID:          "template-halloween",
		Name:        "halloween",
		Variant:     VariantHalloween,
		Category:    CategoryFestivities,
		Keywords:    []string{"halloween", "template-halloween"},
		Description: "Tema oscuro y espeluznante para Halloween",
	},
	{
		ID:          "template-velitas",
		Name:        "Día de las Velitas",
		Variant:     VariantVelitas,
		Category:    CategoryFestivities,
		Keywords:    []string{"velitas", "template-velitas"},
		Description: "Tema navideño temprano con velas, blanco y dorado",
	},
	{
		ID:          "template-independence",
		Name:        "Día de la Independencia",
		Variant:     VariantIndependence,
		Category:    CategoryFestivities,
		Keywords:    []string{"independencia", "20 julio", "patria", "tricolor", "colombia", "template-independence"},
		Description: "Tema patriótico con colores de la bandera colombiana",
	},
	{
		ID:          "template-easter",
		Name:        "Semana Santa",
		Variant:     VariantEaster,
		Category:    CategoryFestivities,
		Keywords:    []string{"semana santa", "easter", "pascua", "cuaresma", "morado", "template-easter"},
		Description: "Tema sobrio y elegante para Semana Santa",
	},
	{
		ID:          "template-mothers-day",
		Name:        "Día de la Madre",
		Variant:     VariantMothersDay,
		Category:    CategoryFestivities,
		Keywords:    []string{"día de la madre", "mothers day", "madre", "flores", "rosa", "template-mothers-day"},
		Description: "Tema romántico con flores y colores suaves",
	},
	{
		ID:          "template-fathers-day",
		Name:        "Día del Padre",
		Variant:     VariantFathersDay,
		Category:    CategoryFestivities,
		Keywords:    []string{"día del padre", "fathers day", "padre", "azul", "elegante", "template-fathers-day"},
		Description: "Tema elegante y masculino para el Día del Padre",
	},
	{
		ID:          "template-valentine",
		Name:        "San Valentín",
		Variant:     VariantValentine,
		Category:    CategoryFestivities,
		Keywords:    []string{"san valentín", "valentine", "valentines", "amor", "romántico", "14 febrero", "template-valentine"},
		Description: "Tema romántico con corazones y colores cálidos",
	},
	{
		ID:          "template-elegant",
		Name:        "Elegante",
		Variant:     VariantElegant,
		Category:    CategoryThemes,
		Keywords:    []string{"elegante", "elegant", "minimalista", "sofisticado", "premium", "lujo", "template-elegant"},
		Description: "Diseño minimalista y sofisticado en negro, blanco y dorado",
	},
	{
		ID:          "template-tropical",
		Name:        "Tropical",
		Variant:     VariantTropical,
		Category:    CategoryThemes,
		Keywords:    []string{"tropical", "verano", "playa", "verde", "azul", "fresco", "template-tropical"},
		Description: "Tema fresco y vibrante inspirado en el trópico",
	},
	{
		ID:          "template-dark",
		Name:        "Oscuro",
		Variant:     VariantDark,
		Category:    CategoryThemes,
		Keywords:    []string{"oscuro", "dark", "dark mode", "negro", "modo oscuro", "template-dark"},
		Description: "Tema oscuro moderno con acentos de color",
	},
	{
		ID:          "template-colorful",
		Name:        "Colorido",
		Variant:     VariantColorful,
		Category:    CategoryThemes,
		Keywords:    []string{"colorido", "colorful", "vibrante", "arcoíris", "alegre", "template-colorful"},
		Description: "Diseño alegre y vibrante con múltiples colores",
	},
	{
		ID:          "template-romantic",
		Name:        "Romántico",
		Variant:     VariantRomantic,
		Category:    CategoryThemes,
		Keywords:    []string{"romántico", "romantic", "suave", "delicado", "rosa", "template-romantic"},
		Description: "Tema suave y delicado con tonos pastel",
	},
}

// Builtin returns a copy of the built-in variant table in resolution order.
func Builtin() []Config {
	out := make([]Config, len(builtin))
	copy(out, builtin)
	return out
}

// resolveIn applies the resolution algorithm over an ordered table:
// exact ID match first, then case-insensitive keyword substring match in
// table order, then the default variant.
func resolveIn(table []Config, identifier string) Config {
	for _, t := range table {
		if t.ID == identifier {
			return t
		}
	}
	lower := strings.ToLower(identifier)
	for _, t := range table {
		for _, kw := range t.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return t
			}
		}
	}
	for _, t := range table {
		if t.Variant == VariantDefault {
			return t
		}
	}
	// The built-in table always carries a default entry; a custom table
	// without one falls back to the built-in default.
	return builtin[0]
}

// Resolve maps an identifier to a template config using the built-in table.
func Resolve(identifier string) Config {
	return resolveIn(builtin, identifier)
}

// ResolveVariant returns only the variant for an identifier.
func ResolveVariant(identifier string) Variant {
	return Resolve(identifier).Variant
}
