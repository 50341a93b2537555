// Package geoclient resolves New York City street addresses to canonical
// borough/block/lot keys via the NYC Geoclient API, with a static fallback
// table for running without credentials.
package geoclient

import (
	"context"
	"strings"

	"github.com/fmillerrzero/odcv-app/internal/bbl"
)

// Location is a resolved address.
type Location struct {
	BBL       string   `json:"bbl"`
	Address   string   `json:"address"`
	Borough   string   `json:"borough,omitempty"`
	ZipCode   string   `json:"zip_code,omitempty"`
	BIN       string   `json:"bin,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Source    string   `json:"source"`
}

// Resolver maps an address to a building key. An address that cannot be
// resolved returns (nil, false, nil); errors are reserved for transport or
// upstream failures.
type Resolver interface {
	Resolve(ctx context.Context, address, boroughHint string) (*Location, bool, error)
}

// DefaultBorough is assumed when neither the hint nor the address names one.
const DefaultBorough = "MANHATTAN"

var boroughSearchOrder = []string{"STATEN ISLAND", "MANHATTAN", "BROOKLYN", "BRONX", "QUEENS"}

// SplitBorough separates the street part of an address from its borough.
// The hint wins when set. Otherwise a trailing ", Borough" component is used,
// then a borough name anywhere in the text. The returned borough is the
// upper-case name, DefaultBorough when nothing matched.
func SplitBorough(address, hint string) (street, borough string) {
	street = NormalizeAddress(address)

	if b := canonicalBorough(hint); b != "" {
		return street, b
	}

	if i := strings.Index(street, ","); i >= 0 {
		head := strings.TrimSpace(street[:i])
		rest := strings.Split(street[i+1:], ",")
		if b := canonicalBorough(rest[0]); b != "" {
			return head, b
		}
		street = NormalizeAddress(strings.ReplaceAll(street, ",", " "))
	}

	for _, name := range boroughSearchOrder {
		if idx := strings.Index(street, name); idx >= 0 {
			stripped := street[:idx] + street[idx+len(name):]
			return NormalizeAddress(stripped), name
		}
	}
	return street, DefaultBorough
}

// canonicalBorough maps a name, abbreviation or code to the upper-case
// borough name, or "" when unrecognized. ZIP codes are not recognized.
func canonicalBorough(s string) string {
	code, err := bbl.BoroughCode(s)
	if err != nil {
		return ""
	}
	return bbl.BoroughName(code)
}

// SplitHouseNumber separates a leading house number ("1155", "31-10",
// "140A") from the street name.
func SplitHouseNumber(street string) (house, name string) {
	fields := strings.Fields(street)
	if len(fields) < 2 {
		return "", street
	}
	first := fields[0]
	if first[0] < '0' || first[0] > '9' {
		return "", street
	}
	return first, strings.Join(fields[1:], " ")
}
