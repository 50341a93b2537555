// Package bbl derives the canonical 10-digit borough/block/lot building key
// from the native identifier schemes of the parcel, energy, audit and grade datasets.
package bbl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Key widths.
const (
	BlockDigits = 5
	LotDigits   = 4
	KeyLength   = 1 + BlockDigits + LotDigits
)

// ErrInvalidKey is returned when a row's location fields cannot be
// normalized to a canonical key. Callers drop the row and continue.
var ErrInvalidKey = eris.New("bbl: invalid key")

var boroughCodes = map[string]int{
	"MN": 1, "MANHATTAN": 1, "NEW YORK": 1,
	"BX": 2, "BRONX": 2, "THE BRONX": 2,
	"BK": 3, "BROOKLYN": 3, "KINGS": 3,
	"QN": 4, "QUEENS": 4,
	"SI": 5, "STATEN ISLAND": 5, "RICHMOND": 5,
}

var boroughNames = [...]string{"", "MANHATTAN", "BRONX", "BROOKLYN", "QUEENS", "STATEN ISLAND"}

// BoroughCode maps a numeric code, two-letter abbreviation or borough name to 1..5.
func BoroughCode(s string) (int, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, eris.Wrap(ErrInvalidKey, "empty borough")
	}
	if code, ok := boroughCodes[s]; ok {
		return code, nil
	}
	n, err := parseDigits(s)
	if err != nil || n < 1 || n > 5 {
		return 0, eris.Wrapf(ErrInvalidKey, "unknown borough %q", s)
	}
	return n, nil
}

// BoroughName returns the upper-case borough name for a code, or "" if out of range.
func BoroughName(code int) string {
	if code < 1 || code >= len(boroughNames) {
		return ""
	}
	return boroughNames[code]
}

// FromParts builds a key from borough, block and lot, zero-padding block to 5
// digits and lot to 4.
func FromParts(borough, block, lot string) (string, error) {
	code, err := BoroughCode(borough)
	if err != nil {
		return "", err
	}
	b, err := parseDigits(block)
	if err != nil || b < 0 || b > 99999 {
		return "", eris.Wrapf(ErrInvalidKey, "block %q", block)
	}
	l, err := parseDigits(lot)
	if err != nil || l < 0 || l > 9999 {
		return "", eris.Wrapf(ErrInvalidKey, "lot %q", lot)
	}
	return fmt.Sprintf("%d%0*d%0*d", code, BlockDigits, b, LotDigits, l), nil
}

// Normalize accepts a key in any of the forms the datasets publish
// ("1010130029", "1010130029.0", "1-01013-0029", "1/1013/29") and returns
// the canonical 10-digit form.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", eris.Wrap(ErrInvalidKey, "empty key")
	}

	if parts := splitCompound(s); len(parts) == 3 {
		return FromParts(parts[0], parts[1], parts[2])
	}

	// Spreadsheet exports render the key as a float.
	if i := strings.IndexByte(s, '.'); i > 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return "", eris.Wrapf(ErrInvalidKey, "key %q", raw)
		}
		s = strconv.FormatFloat(f, 'f', 0, 64)
	}

	if len(s) != KeyLength || !allDigits(s) {
		return "", eris.Wrapf(ErrInvalidKey, "key %q", raw)
	}
	if s[0] < '1' || s[0] > '5' {
		return "", eris.Wrapf(ErrInvalidKey, "borough digit in %q", raw)
	}
	return s, nil
}

// Valid reports whether s is already a canonical key.
func Valid(s string) bool {
	return len(s) == KeyLength && allDigits(s) && s[0] >= '1' && s[0] <= '5'
}

// Split returns the numeric borough, block and lot of a canonical key.
func Split(key string) (borough, block, lot int, err error) {
	if !Valid(key) {
		return 0, 0, 0, eris.Wrapf(ErrInvalidKey, "key %q", key)
	}
	borough = int(key[0] - '0')
	block, _ = strconv.Atoi(key[1 : 1+BlockDigits])
	lot, _ = strconv.Atoi(key[1+BlockDigits:])
	return borough, block, lot, nil
}

func splitCompound(s string) []string {
	for _, sep := range []string{"-", "/", " "} {
		if strings.Contains(s, sep) {
			parts := strings.Split(s, sep)
			out := parts[:0]
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			return out
		}
	}
	return nil
}

// parseDigits parses a non-negative integer, tolerating a trailing ".0".
func parseDigits(s string) (int, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i > 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	if s == "" || !allDigits(s) {
		return 0, eris.Errorf("not a number: %q", s)
	}
	return strconv.Atoi(s)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
