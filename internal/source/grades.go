package source

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fmillerrzero/odcv-app/internal/bbl"
)

// GradeRow is the projected efficiency-grade record.
type GradeRow struct {
	BBL             string
	Grade           *string
	EnergyStarScore *float64
	SiteEUI         *float64
}

var gradeKeyCols = []string{"CBL 10 Digit BBL", "10 Digit BBL", "BBL"}

// ParseGrades projects grade rows. A table with no key column is treated as
// a missing source.
func ParseGrades(parts []Part) ([]GradeRow, Stats, error) {
	log := zap.L().With(zap.String("component", "source"), zap.String("kind", string(KindGrades)))

	var (
		out   []GradeRow
		stats Stats
	)
	for _, part := range parts {
		if part.Table == nil {
			continue
		}
		cols := indexColumns(part.Table.Header)
		if !cols.has(gradeKeyCols...) {
			return nil, stats, eris.Wrap(ErrSourceMissing, "grades: no BBL column")
		}

		for _, row := range part.Table.Rows {
			stats.Read++
			key, err := bbl.Normalize(cols.get(row, gradeKeyCols...))
			if err != nil {
				stats.Dropped++
				log.Debug("dropping grade row", zap.Error(err))
				continue
			}
			r := GradeRow{
				BBL:             key,
				EnergyStarScore: parseFloat(cols.get(row, "ENERGY STAR Score")),
				SiteEUI:         parseFloat(cols.get(row, "Site EUI (kBtu/ft²)", "Site EUI (kBtu/ft2)")),
			}
			if g := parseText(cols.get(row, "Building Energy Efficiency Grade", "Energy Efficiency Grade", "Grade")); g != nil {
				up := strings.ToUpper(*g)
				r.Grade = &up
			}
			out = append(out, r)
			stats.Kept++
		}
	}

	log.Info("parsed grades",
		zap.Int("read", stats.Read),
		zap.Int("kept", stats.Kept),
		zap.Int("dropped", stats.Dropped),
	)
	return out, stats, nil
}
