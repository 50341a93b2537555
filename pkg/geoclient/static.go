package geoclient

import (
	"context"
	"strings"
)

// SourceStatic marks locations from the built-in table.
const SourceStatic = "static"

// staticEntry pairs a lower-case address fragment with its location.
type staticEntry struct {
	match string
	loc   Location
}

// StaticResolver answers from a fixed table of well-known office buildings.
// An address matches an entry when it contains the entry's street address.
type StaticResolver struct {
	entries []staticEntry
}

// NewStaticResolver returns the demo table of Manhattan office towers.
func NewStaticResolver() *StaticResolver {
	r := &StaticResolver{}
	r.Add("1155 avenue of the americas", Location{BBL: "1010130029", Address: "1155 AVENUE OF THE AMERICAS", Borough: "MANHATTAN", ZipCode: "10036"})
	r.Add("80 maiden lane", Location{BBL: "1000420031", Address: "80 MAIDEN LANE", Borough: "MANHATTAN", ZipCode: "10038"})
	r.Add("77 water street", Location{BBL: "1000700001", Address: "77 WATER STREET", Borough: "MANHATTAN", ZipCode: "10005"})
	r.Add("140 broadway", Location{BBL: "1000380001", Address: "140 BROADWAY", Borough: "MANHATTAN", ZipCode: "10005"})
	r.Add("200 e 42nd street", Location{BBL: "1000730001", Address: "200 E 42ND STREET", Borough: "MANHATTAN", ZipCode: "10017"})
	return r
}

// Add registers an address fragment. Earlier entries win on overlap.
func (r *StaticResolver) Add(address string, loc Location) {
	loc.Source = SourceStatic
	r.entries = append(r.entries, staticEntry{match: lookupKey(address), loc: loc})
}

// Resolve ignores the borough hint; every table entry carries its own.
func (r *StaticResolver) Resolve(ctx context.Context, address, _ string) (*Location, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	key := lookupKey(address)
	for _, e := range r.entries {
		if strings.Contains(key, e.match) {
			loc := e.loc
			return &loc, true, nil
		}
	}
	return nil, false, nil
}
