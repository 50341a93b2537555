package geoclient

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	upper = cases.Upper(language.AmericanEnglish)
	fold  = cases.Fold()
)

// NormalizeAddress upper-cases an address and collapses runs of whitespace.
func NormalizeAddress(s string) string {
	return upper.String(strings.Join(strings.Fields(s), " "))
}

// lookupKey is the case-folded form used for table lookups.
func lookupKey(s string) string {
	return fold.String(strings.Join(strings.Fields(s), " "))
}
