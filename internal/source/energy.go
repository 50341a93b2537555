package source

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fmillerrzero/odcv-app/internal/bbl"
)

// EnergyRow is one benchmarking row. Monthly exports carry several rows per
// property and year; merge reduces them to one per property.
type EnergyRow struct {
	PropertyID string
	// BBL is empty when the row has no normalizable borough/block/lot.
	BBL  string
	Year int

	SiteEUI               *float64
	EnergyStarScore       *float64
	TargetEnergyStarScore *float64
	OccupancyPercent      *float64
	ElectricityKBtu       *float64
	NaturalGasKBtu        *float64
	PeakDemandKW          *float64
	ActiveMeters          *int
}

var (
	energyIDCols  = []string{"Property Id", "Property ID"}
	energyKeyCols = []string{"Borough/Block/Lot (BBL)", "NYC Borough, Block and Lot (BBL)", "BBL"}
)

// ParseEnergy projects benchmarking rows. Rows without a property id are
// dropped; an unusable BBL only clears the BBL so the property id can
// stand in as the join key.
func ParseEnergy(parts []Part) ([]EnergyRow, Stats, error) {
	log := zap.L().With(zap.String("component", "source"), zap.String("kind", string(KindEnergy)))

	var (
		out   []EnergyRow
		stats Stats
	)
	for _, part := range parts {
		if part.Table == nil {
			continue
		}
		cols := indexColumns(part.Table.Header)
		if !cols.has(energyIDCols...) {
			return nil, stats, eris.Wrap(ErrSourceMissing, "energy: no Property Id column")
		}

		for _, row := range part.Table.Rows {
			stats.Read++
			id := cols.get(row, energyIDCols...)
			if id == "" {
				stats.Dropped++
				log.Debug("dropping energy row without property id")
				continue
			}

			var key string
			if raw := cols.get(row, energyKeyCols...); raw != "" {
				k, err := bbl.Normalize(raw)
				if err != nil {
					log.Debug("energy row has unusable bbl", zap.String("property_id", id), zap.Error(err))
				} else {
					key = k
				}
			}

			r := EnergyRow{
				PropertyID:            id,
				BBL:                   key,
				SiteEUI:               parseFloat(cols.get(row, "Site EUI (kBtu/ft²)", "Site EUI (kBtu/ft2)", "Site EUI")),
				EnergyStarScore:       parseFloat(cols.get(row, "ENERGY STAR Score")),
				TargetEnergyStarScore: parseFloat(cols.get(row, "Target ENERGY STAR Score")),
				OccupancyPercent:      parseFloat(cols.get(row, "Occupancy")),
				ElectricityKBtu:       parseFloat(cols.get(row, "Electricity Use (kBtu)", "Electricity Use - Grid Purchase (kBtu)")),
				NaturalGasKBtu:        parseFloat(cols.get(row, "Natural Gas Use - Monthly (kBtu)", "Natural Gas Use (kBtu)")),
				PeakDemandKW:          parseFloat(cols.get(row, "Annual Maximum Demand (kW)")),
				ActiveMeters:          parseInt(cols.get(row, "Number of Active Energy Meters - Total")),
			}
			if y := parseInt(cols.get(row, "Calendar Year", "Year")); y != nil {
				r.Year = *y
			}
			out = append(out, r)
			stats.Kept++
		}
	}

	log.Info("parsed energy",
		zap.Int("read", stats.Read),
		zap.Int("kept", stats.Kept),
		zap.Int("dropped", stats.Dropped),
	)
	return out, stats, nil
}
