package source

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fmillerrzero/odcv-app/internal/bbl"
)

// Parcel is the projected tax-lot record; the backbone of every profile.
type Parcel struct {
	BBL        string
	Address    string
	ZipCode    string
	Borough    string
	BldgArea   *float64
	OfficeArea *float64
	NumFloors  *int
	YearBuilt  *int
	OwnerName  string
	OwnerType  string
	BldgClass  string
}

var (
	parcelKeyCols     = []string{"BBL"}
	parcelBoroughCols = []string{"BoroCode", "BoroughCode", "Borough"}
)

// ParseParcels concatenates the borough parts. The key comes from the BBL
// column when present, otherwise from BoroCode/Block/Lot. Rows whose key
// cannot be derived are dropped. Borough is taken from the part label.
func ParseParcels(parts []Part) ([]Parcel, Stats, error) {
	log := zap.L().With(zap.String("component", "source"), zap.String("kind", string(KindParcel)))

	var (
		out   []Parcel
		stats Stats
	)
	for _, part := range parts {
		if part.Table == nil {
			continue
		}
		cols := indexColumns(part.Table.Header)
		hasKey := cols.has(parcelKeyCols...)
		if !hasKey && !(cols.has("Block") && cols.has("Lot")) {
			return nil, stats, eris.Wrapf(ErrSourceMissing, "parcel %s: no BBL or Block/Lot columns", part.Label)
		}

		for _, row := range part.Table.Rows {
			stats.Read++
			key, err := parcelKey(cols, row, part.Label, hasKey)
			if err != nil {
				stats.Dropped++
				log.Debug("dropping parcel row", zap.String("part", part.Label), zap.Error(err))
				continue
			}

			borough := strings.ToUpper(part.Label)
			if borough == "" {
				borough = cols.get(row, "Borough")
			}

			out = append(out, Parcel{
				BBL:        key,
				Address:    cols.get(row, "Address"),
				ZipCode:    cols.get(row, "ZipCode", "Zip Code", "Postcode"),
				Borough:    borough,
				BldgArea:   parseFloat(cols.get(row, "BldgArea")),
				OfficeArea: parseFloat(cols.get(row, "OfficeArea")),
				NumFloors:  parseInt(cols.get(row, "NumFloors")),
				YearBuilt:  parseInt(cols.get(row, "YearBuilt")),
				OwnerName:  cols.get(row, "OwnerName"),
				OwnerType:  cols.get(row, "OwnerType"),
				BldgClass:  strings.ToUpper(cols.get(row, "BldgClass")),
			})
			stats.Kept++
		}
	}

	log.Info("parsed parcels",
		zap.Int("parts", len(parts)),
		zap.Int("read", stats.Read),
		zap.Int("kept", stats.Kept),
		zap.Int("dropped", stats.Dropped),
	)
	return out, stats, nil
}

func parcelKey(cols columns, row []string, label string, hasKey bool) (string, error) {
	if hasKey {
		if raw := cols.get(row, parcelKeyCols...); raw != "" {
			return bbl.Normalize(raw)
		}
	}
	borough := cols.get(row, parcelBoroughCols...)
	if borough == "" {
		borough = label
	}
	return bbl.FromParts(borough, cols.get(row, "Block"), cols.get(row, "Lot"))
}
