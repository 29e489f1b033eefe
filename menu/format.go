package menu

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// currencySymbols maps known currency codes to their display symbol. Unknown
// codes fall back to the code itself.
var currencySymbols = map[string]string{
	"COP": "$",
	"USD": "USD",
	"EUR": "€",
}

// FormatPrice renders a whole-unit price with thousands separators and the
// currency symbol. USD is rendered as a suffix ("1,000 USD"), every other
// currency as a prefix ("$ 1,000").
func FormatPrice(price int, currency string) string {
	symbol, ok := currencySymbols[currency]
	if !ok {
		symbol = currency
	}
	text := groupThousands(price)
	if currency == "USD" {
		return text + " " + symbol
	}
	return symbol + " " + text
}

func groupThousands(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var b strings.Builder
	for i, d := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// dayNames maps lowercase English weekday names to their Spanish display
// form, the language the menus are published in.
var dayNames = map[string]string{
	"monday":    "Lunes",
	"tuesday":   "Martes",
	"wednesday": "Miércoles",
	"thursday":  "Jueves",
	"friday":    "Viernes",
	"saturday":  "Sábado",
	"sunday":    "Domingo",
}

// dayOrder places Monday first; unknown day names sink to the end.
var dayOrder = map[string]int{
	"monday":    1,
	"tuesday":   2,
	"wednesday": 3,
	"thursday":  4,
	"friday":    5,
	"saturday":  6,
	"sunday":    7,
}

// FormatDayName returns the display name for a weekday, capitalizing unknown
// values as-is.
func FormatDayName(day string) string {
	if name, ok := dayNames[strings.ToLower(day)]; ok {
		return name
	}
	return Capitalize(day)
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// ScheduleEntry is one weekday's opening hours.
type ScheduleEntry struct {
	Day   string
	Hours string
}

// SortSchedule flattens a schedule map into entries ordered Monday through
// Sunday. Unknown day names keep a deterministic position after the known
// ones, ordered alphabetically.
func SortSchedule(schedule map[string]string) []ScheduleEntry {
	entries := make([]ScheduleEntry, 0, len(schedule))
	for day, hours := range schedule {
		entries = append(entries, ScheduleEntry{Day: day, Hours: hours})
	}
	sort.Slice(entries, func(i, j int) bool {
		oi, oj := scheduleRank(entries[i].Day), scheduleRank(entries[j].Day)
		if oi != oj {
			return oi < oj
		}
		return entries[i].Day < entries[j].Day
	})
	return entries
}

func scheduleRank(day string) int {
	if o, ok := dayOrder[strings.ToLower(day)]; ok {
		return o
	}
	return len(dayOrder) + 1
}
