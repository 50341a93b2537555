package source

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fmillerrzero/odcv-app/internal/bbl"
)

// AuditRow is the projected energy-audit record. System flags are derived
// from these texts at merge time.
type AuditRow struct {
	BBL              string
	BuildingName     string
	BMSText          *string
	DistributionType *string
	TerminalUnitType *string
	DCVText          *string
	HeatingType      *string
	CoolingType      *string
}

var auditKeyCols = []string{"Borough/Block/Lot (BBL)", "BBL"}

// Audit text columns, first system only.
const (
	AuditColBMS          = "Building automation system? (Y/N)"
	AuditColDistribution = "Central Distribution Type: HVAC Sys 1"
	AuditColDCV          = "Demand Control Ventilation: HVAC Sys 1"
)

// ParseAudit projects audit rows. Rows whose key cannot be normalized are dropped.
func ParseAudit(parts []Part) ([]AuditRow, Stats, error) {
	log := zap.L().With(zap.String("component", "source"), zap.String("kind", string(KindAudit)))

	var (
		out   []AuditRow
		stats Stats
	)
	for _, part := range parts {
		if part.Table == nil {
			continue
		}
		cols := indexColumns(part.Table.Header)
		if !cols.has(auditKeyCols...) {
			return nil, stats, eris.Wrap(ErrSourceMissing, "audit: no BBL column")
		}

		for _, row := range part.Table.Rows {
			stats.Read++
			key, err := bbl.Normalize(cols.get(row, auditKeyCols...))
			if err != nil {
				stats.Dropped++
				log.Debug("dropping audit row", zap.Error(err))
				continue
			}
			out = append(out, AuditRow{
				BBL:              key,
				BuildingName:     cols.get(row, "Building Name"),
				BMSText:          parseText(cols.get(row, AuditColBMS)),
				DistributionType: parseText(cols.get(row, AuditColDistribution)),
				TerminalUnitType: parseText(cols.get(row, "Terminal Unit Type: HVAC Sys 1")),
				DCVText:          parseText(cols.get(row, AuditColDCV)),
				HeatingType:      parseText(cols.get(row, "Heating System Type: HVAC Sys 1")),
				CoolingType:      parseText(cols.get(row, "Cooling System Type: HVAC Sys 1")),
			})
			stats.Kept++
		}
	}

	log.Info("parsed audits",
		zap.Int("read", stats.Read),
		zap.Int("kept", stats.Kept),
		zap.Int("dropped", stats.Dropped),
	)
	return out, stats, nil
}
