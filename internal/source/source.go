// Package source reads the four raw building datasets (parcels, energy
// benchmarking, HVAC audits, efficiency grades) and projects each row to a
// typed record keyed by canonical BBL.
package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/fmillerrzero/odcv-app/internal/fetcher"
)

// Kind names one of the four datasets.
type Kind string

const (
	KindParcel Kind = "parcel"
	KindEnergy Kind = "energy"
	KindAudit  Kind = "audit"
	KindGrades Kind = "grades"
)

// Kinds lists every dataset, backbone first.
var Kinds = []Kind{KindParcel, KindEnergy, KindAudit, KindGrades}

// ErrSourceMissing is returned when a dataset is absent or has no usable key column.
var ErrSourceMissing = eris.New("source: missing")

// Part is one file of a dataset. Parcels arrive as one part per borough;
// Label carries the borough code.
type Part struct {
	Label string
	Table *fetcher.Table
}

// Reader yields the raw tables of a dataset. Implementations return an error
// wrapping ErrSourceMissing when the dataset is not available.
type Reader interface {
	Read(ctx context.Context, kind Kind) ([]Part, error)
}

// Stats summarizes one parse.
type Stats struct {
	Read    int `json:"read"`
	Kept    int `json:"kept"`
	Dropped int `json:"dropped"`
}

// StaticReader serves in-memory tables. Kinds with no entry are missing.
type StaticReader map[Kind][]Part

// Read implements Reader.
func (r StaticReader) Read(_ context.Context, kind Kind) ([]Part, error) {
	parts, ok := r[kind]
	if !ok {
		return nil, eris.Wrapf(ErrSourceMissing, "%s", kind)
	}
	return parts, nil
}
