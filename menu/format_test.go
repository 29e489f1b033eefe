package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		name     string
		price    int
		currency string
		want     string
	}{
		{"COP with thousands", 12000, "COP", "$ 12,000"},
		{"COP small", 500, "COP", "$ 500"},
		{"USD is a suffix", 1000, "USD", "1,000 USD"},
		{"EUR symbol", 2500, "EUR", "€ 2,500"},
		{"unknown currency falls back to the code", 900, "GBP", "GBP 900"},
		{"millions", 1234567, "COP", "$ 1,234,567"},
		{"zero", 0, "COP", "$ 0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatPrice(tc.price, tc.currency))
		})
	}
}

func TestFormatDayName(t *testing.T) {
	assert.Equal(t, "Lunes", FormatDayName("monday"))
	assert.Equal(t, "Miércoles", FormatDayName("Wednesday"))
	assert.Equal(t, "Domingo", FormatDayName("SUNDAY"))
	assert.Equal(t, "Feriado", FormatDayName("feriado"))
}

func TestSortSchedule(t *testing.T) {
	schedule := map[string]string{
		"sunday":    "09:00-18:00",
		"wednesday": "07:00-20:00",
		"monday":    "07:00-20:00",
		"friday":    "07:00-22:00",
	}

	entries := SortSchedule(schedule)

	days := make([]string, 0, len(entries))
	for _, e := range entries {
		days = append(days, e.Day)
	}
	assert.Equal(t, []string{"monday", "wednesday", "friday", "sunday"}, days)
}

func TestSortScheduleUnknownDaysSink(t *testing.T) {
	schedule := map[string]string{
		"festivo": "closed",
		"monday":  "07:00-20:00",
		"sunday":  "09:00-18:00",
	}

	entries := SortSchedule(schedule)

	assert.Equal(t, "monday", entries[0].Day)
	assert.Equal(t, "sunday", entries[1].Day)
	assert.Equal(t, "festivo", entries[2].Day)
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Hola", Capitalize("hola"))
	assert.Equal(t, "", Capitalize(""))
	assert.Equal(t, "Ñame", Capitalize("ñame"))
}
