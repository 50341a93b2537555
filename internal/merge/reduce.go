package merge

import (
	"github.com/fmillerrzero/odcv-app/internal/source"
)

// EnergyRecord is one property's benchmarking data for the latest year.
type EnergyRecord struct {
	Key        string
	ViaProxy   bool
	PropertyID string
	Year       int

	SiteEUI               *float64
	EnergyStarScore       *float64
	TargetEnergyStarScore *float64
	OccupancyPercent      *float64
	ElectricityKBtu       *float64
	NaturalGasKBtu        *float64
	PeakDemandKW          *float64
	ActiveMeters          *int
}

// AuditRecord is a deduplicated audit row with its derived system flags.
type AuditRecord struct {
	source.AuditRow
	HasVAV bool
	HasDCV bool
	HasBMS bool
}

// ReduceStats counts a reduction.
type ReduceStats struct {
	In         int `json:"in"`
	Out        int `json:"out"`
	Duplicates int `json:"duplicates"`
}

// ReduceEnergy keeps only the most recent calendar year and collapses the
// remaining rows to one record per property: mean site EUI, first
// non-null score, target, occupancy and meter count, summed electricity and
// gas, max peak demand. The key is the first normalized BBL seen for the
// property, or the property id itself when none is. Records sharing a key
// keep the first.
func ReduceEnergy(rows []source.EnergyRow) ([]EnergyRecord, ReduceStats) {
	stats := ReduceStats{In: len(rows)}

	latest := 0
	for _, r := range rows {
		latest = max(latest, r.Year)
	}

	type acc struct {
		rec      EnergyRecord
		euiSum   float64
		euiCount int
	}
	var order []string
	groups := make(map[string]*acc)

	for _, r := range rows {
		if r.Year != latest {
			continue
		}
		a, ok := groups[r.PropertyID]
		if !ok {
			a = &acc{rec: EnergyRecord{PropertyID: r.PropertyID, Year: r.Year}}
			groups[r.PropertyID] = a
			order = append(order, r.PropertyID)
		}
		if a.rec.Key == "" && r.BBL != "" {
			a.rec.Key = r.BBL
		}
		if r.SiteEUI != nil {
			a.euiSum += *r.SiteEUI
			a.euiCount++
		}
		a.rec.EnergyStarScore = first(a.rec.EnergyStarScore, r.EnergyStarScore)
		a.rec.TargetEnergyStarScore = first(a.rec.TargetEnergyStarScore, r.TargetEnergyStarScore)
		a.rec.OccupancyPercent = first(a.rec.OccupancyPercent, r.OccupancyPercent)
		a.rec.ActiveMeters = first(a.rec.ActiveMeters, r.ActiveMeters)
		a.rec.ElectricityKBtu = sum(a.rec.ElectricityKBtu, r.ElectricityKBtu)
		a.rec.NaturalGasKBtu = sum(a.rec.NaturalGasKBtu, r.NaturalGasKBtu)
		a.rec.PeakDemandKW = maxOf(a.rec.PeakDemandKW, r.PeakDemandKW)
	}

	seen := make(map[string]bool, len(order))
	out := make([]EnergyRecord, 0, len(order))
	for _, id := range order {
		a := groups[id]
		if a.euiCount > 0 {
			mean := a.euiSum / float64(a.euiCount)
			a.rec.SiteEUI = &mean
		}
		if a.rec.Key == "" {
			a.rec.Key = id
			a.rec.ViaProxy = true
		}
		if seen[a.rec.Key] {
			stats.Duplicates++
			continue
		}
		seen[a.rec.Key] = true
		out = append(out, a.rec)
	}
	stats.Out = len(out)
	return out, stats
}

// ReduceAudit deduplicates on key (first seen wins) and derives system flags.
func ReduceAudit(rows []source.AuditRow, rules []FlagRule) ([]AuditRecord, ReduceStats) {
	stats := ReduceStats{In: len(rows)}
	seen := make(map[string]bool, len(rows))
	var out []AuditRecord
	for _, r := range rows {
		if seen[r.BBL] {
			stats.Duplicates++
			continue
		}
		seen[r.BBL] = true
		flags := deriveFlags(r, rules)
		out = append(out, AuditRecord{
			AuditRow: r,
			HasVAV:   flags[FlagVAV],
			HasDCV:   flags[FlagDCV],
			HasBMS:   flags[FlagBMS],
		})
	}
	stats.Out = len(out)
	return out, stats
}

// ReduceGrades deduplicates on key, first seen wins.
func ReduceGrades(rows []source.GradeRow) ([]source.GradeRow, ReduceStats) {
	stats := ReduceStats{In: len(rows)}
	seen := make(map[string]bool, len(rows))
	var out []source.GradeRow
	for _, r := range rows {
		if seen[r.BBL] {
			stats.Duplicates++
			continue
		}
		seen[r.BBL] = true
		out = append(out, r)
	}
	stats.Out = len(out)
	return out, stats
}

func first[T any](cur, next *T) *T {
	if cur != nil {
		return cur
	}
	return next
}

func sum(cur, next *float64) *float64 {
	if next == nil {
		return cur
	}
	if cur == nil {
		v := *next
		return &v
	}
	v := *cur + *next
	return &v
}

func maxOf(cur, next *float64) *float64 {
	if next == nil {
		return cur
	}
	if cur == nil || *next > *cur {
		v := *next
		return &v
	}
	return cur
}
