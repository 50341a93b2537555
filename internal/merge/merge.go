// Package merge reduces the dependent datasets and left-joins them onto the
// parcel backbone, producing the eligible building profiles.
package merge

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fmillerrzero/odcv-app/internal/config"
	"github.com/fmillerrzero/odcv-app/internal/model"
	"github.com/fmillerrzero/odcv-app/internal/source"
)

// ErrDataUnavailable is returned when the parcel backbone is missing or
// unreadable. An empty profile set is never returned in its place.
var ErrDataUnavailable = eris.New("merge: data unavailable")

// Eligibility is the post-join profile filter.
type Eligibility struct {
	MinArea     float64
	BuiltBefore int
	ClassPrefix string
}

// DefaultEligibility returns the large pre-2010 office building filter.
func DefaultEligibility() Eligibility {
	return Eligibility{MinArea: 75000, BuiltBefore: 2010, ClassPrefix: "O"}
}

// EligibilityFromConfig converts the merge config section.
func EligibilityFromConfig(cfg config.MergeConfig) Eligibility {
	return Eligibility{
		MinArea:     cfg.MinBuildingSize,
		BuiltBefore: cfg.BuiltBefore,
		ClassPrefix: cfg.ClassPrefix,
	}
}

// Allows reports whether a profile passes the filter. Unknown area or year
// fails it.
func (e Eligibility) Allows(p *model.BuildingProfile) bool {
	if p.SizeSqFt == nil || *p.SizeSqFt < e.MinArea {
		return false
	}
	if p.YearBuilt == nil || *p.YearBuilt >= e.BuiltBefore {
		return false
	}
	return strings.HasPrefix(strings.ToUpper(p.BuildingClass), strings.ToUpper(e.ClassPrefix))
}

// Inputs are the parsed datasets. A nil Parcels slice means the backbone is
// absent; nil dependents simply join nothing.
type Inputs struct {
	Parcels []source.Parcel
	Energy  []source.EnergyRow
	Audit   []source.AuditRow
	Grades  []source.GradeRow
}

// Stats describes one merge.
type Stats struct {
	Parcels          int                          `json:"parcels"`
	DuplicateParcels int                          `json:"duplicate_parcels"`
	Eligible         int                          `json:"eligible"`
	EnergyMatched    int                          `json:"energy_matched"`
	ProxyMatched     int                          `json:"proxy_matched"`
	AuditMatched     int                          `json:"audit_matched"`
	GradeMatched     int                          `json:"grade_matched"`
	Energy           ReduceStats                  `json:"energy"`
	Audit            ReduceStats                  `json:"audit"`
	Grades           ReduceStats                  `json:"grades"`
	Sources          map[source.Kind]source.Stats `json:"sources,omitempty"`
	Missing          []source.Kind                `json:"missing,omitempty"`
}

// Result is the merged profile set. Order follows the backbone but callers
// must not rely on it.
type Result struct {
	Profiles []model.BuildingProfile
	Stats    Stats
}

// Merge reduces the dependents, left-joins them onto the parcels by key and
// applies the eligibility filter. Each eligible parcel key appears once;
// duplicate parcel rows keep the first.
func Merge(in Inputs, elig Eligibility) (*Result, error) {
	if in.Parcels == nil {
		return nil, eris.Wrap(ErrDataUnavailable, "parcel source")
	}

	res := &Result{Profiles: []model.BuildingProfile{}}
	st := &res.Stats
	st.Parcels = len(in.Parcels)

	energy, energyStats := ReduceEnergy(in.Energy)
	audit, auditStats := ReduceAudit(in.Audit, SystemFlagRules)
	grades, gradeStats := ReduceGrades(in.Grades)
	st.Energy, st.Audit, st.Grades = energyStats, auditStats, gradeStats

	energyByKey := make(map[string]*EnergyRecord, len(energy))
	for i := range energy {
		energyByKey[energy[i].Key] = &energy[i]
	}
	auditByKey := make(map[string]*AuditRecord, len(audit))
	for i := range audit {
		auditByKey[audit[i].BBL] = &audit[i]
	}
	gradeByKey := make(map[string]*source.GradeRow, len(grades))
	for i := range grades {
		gradeByKey[grades[i].BBL] = &grades[i]
	}

	seen := make(map[string]bool, len(in.Parcels))
	for _, parcel := range in.Parcels {
		if seen[parcel.BBL] {
			st.DuplicateParcels++
			continue
		}
		seen[parcel.BBL] = true

		p := profileFromParcel(parcel)
		if !elig.Allows(&p) {
			continue
		}

		if e, ok := energyByKey[p.BBL]; ok {
			applyEnergy(&p, e)
			st.EnergyMatched++
			if e.ViaProxy {
				st.ProxyMatched++
			}
		}
		if a, ok := auditByKey[p.BBL]; ok {
			applyAudit(&p, a)
			st.AuditMatched++
		}
		if g, ok := gradeByKey[p.BBL]; ok {
			p.EnergyGrade = g.Grade
			st.GradeMatched++
		}

		res.Profiles = append(res.Profiles, p)
	}
	st.Eligible = len(res.Profiles)

	zap.L().With(zap.String("component", "merge")).Info("merged building profiles",
		zap.Int("parcels", st.Parcels),
		zap.Int("duplicate_parcels", st.DuplicateParcels),
		zap.Int("eligible", st.Eligible),
		zap.Int("energy_matched", st.EnergyMatched),
		zap.Int("proxy_matched", st.ProxyMatched),
		zap.Int("audit_matched", st.AuditMatched),
		zap.Int("grade_matched", st.GradeMatched),
	)
	return res, nil
}

func profileFromParcel(pc source.Parcel) model.BuildingProfile {
	return model.BuildingProfile{
		BBL:           pc.BBL,
		Address:       pc.Address,
		ZipCode:       pc.ZipCode,
		Borough:       pc.Borough,
		SizeSqFt:      pc.BldgArea,
		OfficeSqFt:    pc.OfficeArea,
		Floors:        pc.NumFloors,
		YearBuilt:     pc.YearBuilt,
		Owner:         pc.OwnerName,
		OwnerType:     pc.OwnerType,
		BuildingClass: pc.BldgClass,
	}
}

func applyEnergy(p *model.BuildingProfile, e *EnergyRecord) {
	p.SiteEUI = e.SiteEUI
	p.EnergyStarScore = e.EnergyStarScore
	p.TargetEnergyStarScore = e.TargetEnergyStarScore
	p.OccupancyPercent = e.OccupancyPercent
	p.PeakDemandKW = e.PeakDemandKW
	p.ActiveMeters = e.ActiveMeters
	p.EnergyViaProxy = e.ViaProxy
}

func applyAudit(p *model.BuildingProfile, a *AuditRecord) {
	p.HasVAV = model.Ptr(a.HasVAV)
	p.HasDCV = model.Ptr(a.HasDCV)
	p.HasBMS = model.Ptr(a.HasBMS)
	p.BMSText = a.BMSText
	p.HVACType = a.DistributionType
	p.DCVStatus = a.DCVText
}

// LoadAndMerge reads and parses every dataset from r, then merges them. A
// missing or unreadable backbone fails with ErrDataUnavailable; a missing
// dependent is logged and joins as null columns.
func LoadAndMerge(ctx context.Context, r source.Reader, elig Eligibility) (*Result, error) {
	log := zap.L().With(zap.String("component", "merge"))

	var in Inputs
	sources := make(map[source.Kind]source.Stats, len(source.Kinds))
	var missing []source.Kind

	parts, err := r.Read(ctx, source.KindParcel)
	if err != nil {
		return nil, eris.Wrapf(ErrDataUnavailable, "parcel source: %v", err)
	}
	parcels, st, err := source.ParseParcels(parts)
	if err != nil {
		return nil, eris.Wrapf(ErrDataUnavailable, "parcel source: %v", err)
	}
	if parcels == nil {
		parcels = []source.Parcel{}
	}
	in.Parcels = parcels
	sources[source.KindParcel] = st

	for _, kind := range source.Kinds[1:] {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "merge: load")
		}
		st, err := loadDependent(ctx, r, kind, &in)
		if err != nil {
			if errors.Is(err, source.ErrSourceMissing) {
				log.Warn("dataset missing, joining as null columns", zap.String("kind", string(kind)), zap.Error(err))
			} else {
				log.Warn("dataset unreadable, joining as null columns", zap.String("kind", string(kind)), zap.Error(err))
			}
			missing = append(missing, kind)
			continue
		}
		sources[kind] = st
	}

	res, err := Merge(in, elig)
	if err != nil {
		return nil, err
	}
	res.Stats.Sources = sources
	res.Stats.Missing = missing
	return res, nil
}

func loadDependent(ctx context.Context, r source.Reader, kind source.Kind, in *Inputs) (source.Stats, error) {
	parts, err := r.Read(ctx, kind)
	if err != nil {
		return source.Stats{}, err
	}
	var st source.Stats
	switch kind {
	case source.KindEnergy:
		in.Energy, st, err = source.ParseEnergy(parts)
	case source.KindAudit:
		in.Audit, st, err = source.ParseAudit(parts)
	case source.KindGrades:
		in.Grades, st, err = source.ParseGrades(parts)
	default:
		err = eris.Errorf("merge: unknown source kind %q", kind)
	}
	return st, err
}
