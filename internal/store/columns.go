package store

import (
	"fmt"
	"math"
	"strings"

	"github.com/fmillerrzero/odcv-app/internal/model"
)

// profileColumns is the column order for inserts and selects.
var profileColumns = []string{
	"bbl", "address", "zip_code", "borough",
	"size_sqft", "office_sqft", "floors", "year_built",
	"owner", "owner_type", "building_class",
	"site_eui", "energy_star_score", "target_energy_star_score",
	"occupancy_percent", "peak_demand_kw", "active_meters", "energy_via_proxy",
	"has_vav", "has_dcv", "has_bms", "has_bms_text", "hvac_type", "dcv_status",
	"energy_grade",
}

var selectProfile = "SELECT " + strings.Join(profileColumns, ", ") + " FROM building_profiles"

func profileValues(p *model.BuildingProfile) []any {
	return []any{
		p.BBL, p.Address, p.ZipCode, p.Borough,
		p.SizeSqFt, p.OfficeSqFt, p.Floors, p.YearBuilt,
		p.Owner, p.OwnerType, p.BuildingClass,
		p.SiteEUI, p.EnergyStarScore, p.TargetEnergyStarScore,
		p.OccupancyPercent, p.PeakDemandKW, p.ActiveMeters, p.EnergyViaProxy,
		p.HasVAV, p.HasDCV, p.HasBMS, p.BMSText, p.HVACType, p.DCVStatus,
		p.EnergyGrade,
	}
}

type scannable interface {
	Scan(dest ...any) error
}

// scanProfile scans a row in profileColumns order. Nullable columns scan
// into the profile's pointer fields directly.
func scanProfile(row scannable) (*model.BuildingProfile, error) {
	var p model.BuildingProfile
	err := row.Scan(
		&p.BBL, &p.Address, &p.ZipCode, &p.Borough,
		&p.SizeSqFt, &p.OfficeSqFt, &p.Floors, &p.YearBuilt,
		&p.Owner, &p.OwnerType, &p.BuildingClass,
		&p.SiteEUI, &p.EnergyStarScore, &p.TargetEnergyStarScore,
		&p.OccupancyPercent, &p.PeakDemandKW, &p.ActiveMeters, &p.EnergyViaProxy,
		&p.HasVAV, &p.HasDCV, &p.HasBMS, &p.BMSText, &p.HVACType, &p.DCVStatus,
		&p.EnergyGrade,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// dialect captures the SQL differences between the backends.
type dialect struct {
	placeholder func(n int) string
	trueLit     string
}

var (
	sqliteDialect   = dialect{placeholder: func(int) string { return "?" }, trueLit: "1"}
	postgresDialect = dialect{placeholder: func(n int) string { return fmt.Sprintf("$%d", n) }, trueLit: "TRUE"}
)

// buildSearch renders the filter as a query and its arguments. Rows with a
// NULL in a filtered column never match.
func buildSearch(f Filter, d dialect) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, d.placeholder(len(args))))
	}

	if f.MinArea != nil {
		add("size_sqft >= %s", *f.MinArea)
	}
	if f.MaxOccupancy != nil {
		add("occupancy_percent <= %s", *f.MaxOccupancy)
	}
	if f.RequireVAV {
		where = append(where, "has_vav = "+d.trueLit)
	}
	if g := strings.ToUpper(strings.TrimSpace(f.Grade)); g != "" {
		add("energy_grade = %s", g)
	}

	q := selectProfile
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY bbl"

	limit := f.Limit
	if limit == 0 {
		limit = DefaultSearchLimit
	}
	if limit > 0 {
		args = append(args, limit)
		q += " LIMIT " + d.placeholder(len(args))
	}
	return q, args
}

func statsQuery(d dialect) string {
	return `SELECT
	COUNT(*),
	COUNT(CASE WHEN has_vav = ` + d.trueLit + ` THEN 1 END),
	COUNT(CASE WHEN occupancy_percent < 70 THEN 1 END),
	COUNT(CASE WHEN energy_grade IN ('D', 'F') THEN 1 END),
	AVG(site_eui),
	AVG(occupancy_percent)
FROM building_profiles`
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// scanStats reads the row produced by statsQuery. Averages over an empty
// or all-NULL column are reported as 0.
func scanStats(row scannable) (*Stats, error) {
	var (
		st             Stats
		avgEUI, avgOcc *float64
	)
	if err := row.Scan(&st.TotalBuildings, &st.VAVBuildings, &st.LowOccupancyBuildings,
		&st.PoorGradeBuildings, &avgEUI, &avgOcc); err != nil {
		return nil, err
	}
	st.AverageEUI = round1(avgEUI)
	st.AverageOccupancy = round1(avgOcc)
	return &st, nil
}

func round1(v *float64) float64 {
	if v == nil {
		return 0
	}
	return math.Round(*v*10) / 10
}
