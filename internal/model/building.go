// Package model defines the building profile and opportunity score value types
// shared by the merge, scoring, storage and API layers.
package model

// BuildingProfile is the merged per-building view: the parcel backbone left-joined
// against energy benchmarking, HVAC audit and efficiency grade records.
// Profiles are rebuilt wholesale on every load and are read-only afterwards.
type BuildingProfile struct {
	// Identity.
	BBL     string `json:"bbl"`
	Address string `json:"address"`
	ZipCode string `json:"zip_code,omitempty"`
	Borough string `json:"borough,omitempty"`

	// Physical attributes from the parcel record.
	SizeSqFt      *float64 `json:"size_sqft,omitempty"`
	OfficeSqFt    *float64 `json:"office_sqft,omitempty"`
	Floors        *int     `json:"floors,omitempty"`
	YearBuilt     *int     `json:"year_built,omitempty"`
	Owner         string   `json:"owner,omitempty"`
	OwnerType     string   `json:"owner_type,omitempty"`
	BuildingClass string   `json:"building_class,omitempty"`

	// Energy attributes; nil when the benchmarking source has no match.
	SiteEUI               *float64 `json:"site_eui,omitempty"`
	EnergyStarScore       *float64 `json:"energy_star_score,omitempty"`
	TargetEnergyStarScore *float64 `json:"target_energy_star_score,omitempty"`
	OccupancyPercent      *float64 `json:"occupancy_percent,omitempty"`
	PeakDemandKW          *float64 `json:"peak_demand_kw,omitempty"`
	ActiveMeters          *int     `json:"active_meters,omitempty"`
	// EnergyViaProxy is set when the energy record was keyed by its property id
	// rather than a borough/block/lot column. Such joins can collide.
	EnergyViaProxy bool `json:"energy_via_proxy,omitempty"`

	// System attributes; nil when the audit source has no match.
	HasVAV    *bool   `json:"has_vav,omitempty"`
	HasDCV    *bool   `json:"has_dcv,omitempty"`
	HasBMS    *bool   `json:"has_bms,omitempty"`
	BMSText   *string `json:"has_bms_text,omitempty"`
	HVACType  *string `json:"hvac_type,omitempty"`
	DCVStatus *string `json:"dcv_status,omitempty"`

	// Efficiency grade letter; nil when the grade source has no match.
	EnergyGrade *string `json:"energy_grade,omitempty"`
}

// VAV reports whether the building has variable-air-volume distribution.
// An absent audit record counts as false.
func (p *BuildingProfile) VAV() bool { return ValueOr(p.HasVAV, false) }

// DCV reports whether demand-control ventilation is present.
func (p *BuildingProfile) DCV() bool { return ValueOr(p.HasDCV, false) }

// BMS reports whether a building automation system is present.
func (p *BuildingProfile) BMS() bool { return ValueOr(p.HasBMS, false) }
