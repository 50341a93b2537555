package source

import (
	"math"
	"strconv"
	"strings"
)

// normalizeCol lowercases, strips parentheses and collapses whitespace so
// that "Site EUI (kBtu/ft²)" and "site eui kbtu/ft²" match.
func normalizeCol(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("(", "", ")", "", "\ufeff", "").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// columns maps normalized header names to their index.
type columns map[string]int

func indexColumns(header []string) columns {
	c := make(columns, len(header))
	for i, h := range header {
		n := normalizeCol(h)
		if _, dup := c[n]; !dup {
			c[n] = i
		}
	}
	return c
}

// has reports whether any of the aliases is a column.
func (c columns) has(aliases ...string) bool {
	for _, a := range aliases {
		if _, ok := c[normalizeCol(a)]; ok {
			return true
		}
	}
	return false
}

// get returns the first non-empty value among the aliased columns.
func (c columns) get(row []string, aliases ...string) string {
	for _, a := range aliases {
		idx, ok := c[normalizeCol(a)]
		if !ok || idx >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[idx]); v != "" {
			return v
		}
	}
	return ""
}

// notAvailable holds the placeholder strings benchmarking exports use for nulls.
var notAvailable = map[string]bool{
	"":                  true,
	"not available":     true,
	"n/a":               true,
	"na":                true,
	"nan":               true,
	"insufficient data": true,
	"-":                 true,
}

func isNull(s string) bool {
	return notAvailable[strings.ToLower(strings.TrimSpace(s))]
}

// parseFloat returns nil for null placeholders or unparseable text.
// Thousands separators and trailing percent signs are tolerated.
func parseFloat(s string) *float64 {
	if isNull(s) {
		return nil
	}
	s = strings.TrimSuffix(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// parseInt truncates a numeric value; "12.0" and "12.5" both yield 12.
func parseInt(s string) *int {
	f := parseFloat(s)
	if f == nil || math.Abs(*f) > math.MaxInt32 {
		return nil
	}
	v := int(*f)
	return &v
}

// parseText returns nil for null placeholders.
func parseText(s string) *string {
	if isNull(s) {
		return nil
	}
	s = strings.TrimSpace(s)
	return &s
}
