package scorer

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/fmillerrzero/odcv-app/internal/config"
	"github.com/fmillerrzero/odcv-app/internal/model"
)

// Advisory text.
const (
	flagIncompatible = "INCOMPATIBLE: No VAV system"
	flagSmall        = "WARNING: Below minimum size threshold"
	flagLowConf      = "LOW CONFIDENCE: energy data joined via property id"

	recCAVRetrofit = "Building has CAV system - VAV retrofit required before ODCV"

	sensorLocations  = "Mechanical rooms and lobbies only"
	tenantDisruption = "None - all work in mechanical spaces"
	integrationBMS   = "BACnet integration with existing BMS"
	integrationAlone = "Standalone ODCV system with cloud connectivity"
)

// Component names in ScoreComponents.
const (
	CompOccupancy   = "occupancy"
	CompEnergyGrade = "energy_grade"
	CompEUI         = "eui"
	CompBuildingAge = "building_age"
	CompBMS         = "bms"
	CompExistingDCV = "existing_dcv"
	CompOwnerType   = "owner_type"
	CompMetering    = "metering"
)

// Sub-score caps.
const (
	maxSubScore = 50
	maxTotal    = 100
)

type tier struct {
	min    int
	level  model.OpportunityLevel
	action string
}

var tiers = []tier{
	{80, model.OpportunityHigh, "Immediate implementation recommended"},
	{60, model.OpportunityMediumHigh, "Schedule detailed assessment"},
	{40, model.OpportunityMedium, "Consider with other upgrades"},
	{0, model.OpportunityLow, "Focus on other measures"},
}

// Tier returns the opportunity level and advisory action for a total score.
func Tier(total int) (model.OpportunityLevel, string) {
	for _, t := range tiers {
		if total >= t.min {
			return t.level, t.action
		}
	}
	last := tiers[len(tiers)-1]
	return last.level, last.action
}

// Scorer is a pure function of a profile given a fixed configuration.
// It is safe for concurrent use.
type Scorer struct {
	cfg         config.ScorerConfig
	currentYear int
	concurrency int
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithConcurrency bounds the number of goroutines RankAll uses.
func WithConcurrency(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New creates a Scorer. The building-age clock is pinned to
// cfg.CurrentYear, or to the current year when that is 0.
func New(cfg config.ScorerConfig, opts ...Option) *Scorer {
	cfg.PoorGrades = slices.Clone(cfg.PoorGrades)
	s := &Scorer{
		cfg:         cfg,
		currentYear: cfg.CurrentYear,
		concurrency: 8,
	}
	if s.currentYear == 0 {
		s.currentYear = time.Now().Year()
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Config returns the scorer's parameters.
func (s *Scorer) Config() config.ScorerConfig { return s.cfg }

// Score evaluates one profile. A profile without VAV distribution is
// rejected with a zero score but is otherwise fully populated.
func (s *Scorer) Score(p model.BuildingProfile) model.OpportunityScore {
	r := model.OpportunityScore{
		BBL:                  p.BBL,
		Address:              p.Address,
		Flags:                []string{},
		Recommendations:      []string{},
		DeploymentComplexity: model.ComplexityUnknown,
		HasCO2DCV:            p.DCV(),
		LowConfidence:        p.EnergyViaProxy,
	}

	if !s.checkCompatibility(&p, &r) {
		r.OpportunityLevel, r.Action = Tier(0)
		r.Financials.SimplePaybackYears = s.cfg.PaybackSentinel
		return r
	}
	r.Compatible = true

	if p.EnergyViaProxy {
		r.Flags = append(r.Flags, flagLowConf)
	}

	r.SavingsScore = s.scoreSavings(&p, &r)
	r.DeploymentScore = s.scoreDeployment(&p, &r)
	r.TotalScore = min(maxTotal, r.SavingsScore+r.DeploymentScore)

	r.ImplementationPlan = s.plan(&p)
	r.Recommendations = append(r.Recommendations, s.recommendations(&p, r.TotalScore)...)
	r.Financials = s.financials(&p, r.SavingsPotentialPercent, r.ImplementationPlan.EstimatedCost)
	r.AnnualSavingsDollars = r.Financials.AnnualSavingsDollars
	r.OpportunityLevel, r.Action = Tier(r.TotalScore)
	return r
}

func (s *Scorer) checkCompatibility(p *model.BuildingProfile, r *model.OpportunityScore) bool {
	if !p.VAV() {
		r.Flags = append(r.Flags, flagIncompatible)
		r.Recommendations = append(r.Recommendations, recCAVRetrofit)
		return false
	}
	if model.ValueOr(p.SizeSqFt, 0) < s.cfg.MinBuildingSize {
		r.Flags = append(r.Flags, flagSmall)
	}
	return true
}

// scoreSavings scores occupancy, grade, EUI and age, capped at 50.
// Missing occupancy counts as fully occupied, a missing grade as neutral,
// missing EUI and year as no credit.
func (s *Scorer) scoreSavings(p *model.BuildingProfile, r *model.OpportunityScore) int {
	c := make(map[string]int, 4)

	occ := model.ValueOr(p.OccupancyPercent, 100)
	switch {
	case occ < s.cfg.LowOccupancy:
		c[CompOccupancy] = 20
		r.SavingsPotentialPercent = s.cfg.SavingsLowOccupancy
		r.Flags = append(r.Flags, fmt.Sprintf("MAJOR OPPORTUNITY: Only %s%% occupied", formatNum(occ)))
	case occ < s.cfg.MediumOccupancy:
		c[CompOccupancy] = 12
		r.SavingsPotentialPercent = s.cfg.SavingsMediumOccupancy
		r.Flags = append(r.Flags, fmt.Sprintf("GOOD OPPORTUNITY: %s%% occupied", formatNum(occ)))
	default:
		c[CompOccupancy] = 5
		r.SavingsPotentialPercent = s.cfg.SavingsHighOccupancy
	}

	grade := model.ValueOr(p.EnergyGrade, "")
	switch {
	case s.poorGrade(grade):
		c[CompEnergyGrade] = 15
		r.Flags = append(r.Flags, "Poor energy grade: "+grade)
	case grade != "" && grade == s.cfg.MediumGrade:
		c[CompEnergyGrade] = 8
	default:
		c[CompEnergyGrade] = 3
	}

	eui := model.ValueOr(p.SiteEUI, 0)
	switch {
	case eui > s.cfg.HighEUIThreshold:
		c[CompEUI] = 10
		r.Flags = append(r.Flags, fmt.Sprintf("High EUI: %s kBtu/sq ft", formatNum(eui)))
	case eui > s.cfg.MediumEUIThreshold:
		c[CompEUI] = 5
	}

	if p.YearBuilt != nil {
		age := s.currentYear - *p.YearBuilt
		switch {
		case age > s.cfg.OldBuildingAge:
			c[CompBuildingAge] = 5
		case age >= s.cfg.MidBuildingAge:
			c[CompBuildingAge] = 3
		}
	}

	r.Components.Savings = c
	return min(maxSubScore, sumComponents(c))
}

// scoreDeployment scores BMS, DCV, ownership and metering, capped at 50.
func (s *Scorer) scoreDeployment(p *model.BuildingProfile, r *model.OpportunityScore) int {
	c := make(map[string]int, 4)

	if p.BMS() {
		c[CompBMS] = 20
		r.DeploymentComplexity = model.ComplexityLow
		r.Flags = append(r.Flags, "BMS present - easy integration")
	} else {
		c[CompBMS] = 5
		r.DeploymentComplexity = model.ComplexityMedium
		r.Flags = append(r.Flags, "No BMS - standalone system needed")
	}

	// Both paths earn credit: an upgrade and a greenfield install are viable.
	if p.DCV() {
		c[CompExistingDCV] = 15
		r.Flags = append(r.Flags, "Has CO2 DCV - upgrade to ODCV")
	} else {
		c[CompExistingDCV] = 10
		r.Flags = append(r.Flags, "No DCV - new installation")
	}

	if p.OwnerType != "" && p.OwnerType == s.cfg.CorporateOwnerCode {
		c[CompOwnerType] = 10
		r.Flags = append(r.Flags, "Corporate owner - faster decisions")
	} else {
		c[CompOwnerType] = 5
	}

	if meters := model.ValueOr(p.ActiveMeters, 0); meters >= s.cfg.GoodMeterCount {
		c[CompMetering] = 5
		r.Flags = append(r.Flags, fmt.Sprintf("%d active meters - good M&V", meters))
	}

	r.Components.Deployment = c
	return min(maxSubScore, sumComponents(c))
}

func (s *Scorer) plan(p *model.BuildingProfile) model.ImplementationPlan {
	floors := model.ValueOr(p.Floors, s.cfg.DefaultFloors)
	ahu := max(1, floors/s.cfg.AHUPerFloors)

	plan := model.ImplementationPlan{
		AHUCount:         ahu,
		SensorLocations:  sensorLocations,
		TenantDisruption: tenantDisruption,
		ControlPoints:    fmt.Sprintf("%d OA dampers at AHU level", ahu),
	}
	if p.BMS() {
		plan.SensorCount = ahu + 2
		plan.Integration = model.IntegrationBMS
		plan.IntegrationType = integrationBMS
		plan.DeploymentWeeks = s.cfg.IntegrationWeeksWithBMS
	} else {
		plan.SensorCount = ahu + floors/3
		plan.Integration = model.IntegrationStandalone
		plan.IntegrationType = integrationAlone
		plan.DeploymentWeeks = s.cfg.IntegrationWeeksWithoutBMS
	}

	plan.EstimatedCost = float64(plan.SensorCount) * s.cfg.SensorCost
	if area := model.ValueOr(p.SizeSqFt, 0); area > 0 {
		plan.CostPerSqFt = model.Ptr(round(plan.EstimatedCost/area, 4))
	}
	return plan
}

func (s *Scorer) recommendations(p *model.BuildingProfile, total int) []string {
	var recs []string

	switch {
	case total >= 80:
		recs = append(recs, "IMMEDIATE ACTION: Schedule ODCV deployment assessment")
	case total >= 60:
		recs = append(recs, "GOOD CANDIDATE: Include in next quarter planning")
	}

	if p.DCV() {
		recs = append(recs, "Upgrade existing CO2-based DCV to occupancy-based control for 10-15% additional savings")
	} else {
		recs = append(recs, "Install new ODCV system with occupancy sensors at AHU level")
	}

	if p.BMS() {
		recs = append(recs, "Integrate ODCV with existing BMS for centralized control")
	} else {
		recs = append(recs, "Deploy standalone ODCV system with cloud-based monitoring")
	}

	if occ := model.ValueOr(p.OccupancyPercent, 100); occ < s.cfg.LowOccupancy {
		recs = append(recs, fmt.Sprintf("With only %s%% occupancy, prioritize vacant floor detection to maximize savings", formatNum(occ)))
	}

	if grade := model.ValueOr(p.EnergyGrade, ""); s.poorGrade(grade) {
		recs = append(recs, fmt.Sprintf("Current grade %s indicates significant waste - ODCV can help achieve grade C or better", grade))
	}
	return recs
}

// financials projects costs from floor area. Unknown area yields zero
// costs and savings, so payback falls back to the sentinel.
func (s *Scorer) financials(p *model.BuildingProfile, savingsPct int, implCost float64) model.FinancialAnalysis {
	area := model.ValueOr(p.SizeSqFt, 0)
	energy := area * s.cfg.EnergyCostPerSqFt
	hvac := energy * s.cfg.HVACShare
	savings := hvac * float64(savingsPct) / 100

	f := model.FinancialAnalysis{
		EstimatedAnnualEnergyCost: math.Round(energy),
		EstimatedAnnualHVACCost:   math.Round(hvac),
		AnnualSavingsDollars:      math.Round(savings),
		ImplementationCost:        implCost,
		SimplePaybackYears:        s.cfg.PaybackSentinel,
		NPV10Year:                 math.Round(savings*float64(s.cfg.NPVYears) - implCost),
	}
	if savings > 0 {
		f.SimplePaybackYears = round(implCost/savings, 1)
	}
	if implCost > 0 {
		f.ROIPercent = round(savings/implCost*100, 1)
	}
	return f
}

func (s *Scorer) poorGrade(grade string) bool {
	return grade != "" && slices.Contains(s.cfg.PoorGrades, grade)
}

func sumComponents(c map[string]int) int {
	total := 0
	for _, v := range c {
		total += v
	}
	return total
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// formatNum renders 55 as "55" and 55.5 as "55.5".
func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
