package model

// OpportunityLevel is the named tier derived from the total score.
type OpportunityLevel string

const (
	OpportunityHigh       OpportunityLevel = "HIGH"
	OpportunityMediumHigh OpportunityLevel = "MEDIUM-HIGH"
	OpportunityMedium     OpportunityLevel = "MEDIUM"
	OpportunityLow        OpportunityLevel = "LOW"
)

// Complexity is the deployment-complexity tier.
type Complexity string

const (
	ComplexityUnknown Complexity = "Unknown"
	ComplexityLow     Complexity = "LOW"
	ComplexityMedium  Complexity = "MEDIUM"
)

// IntegrationMode describes how the ODCV controller attaches to the building.
type IntegrationMode string

const (
	IntegrationBMS        IntegrationMode = "bms"
	IntegrationStandalone IntegrationMode = "standalone"
)

// OpportunityScore is the stateless result of scoring one profile.
type OpportunityScore struct {
	BBL     string `json:"bbl"`
	Address string `json:"address"`

	TotalScore       int              `json:"total_score"`
	SavingsScore     int              `json:"savings_score"`
	DeploymentScore  int              `json:"deployment_score"`
	Components       ScoreComponents  `json:"score_components"`
	Compatible       bool             `json:"compatible"`
	OpportunityLevel OpportunityLevel `json:"opportunity_level"`
	Action           string           `json:"action"`

	Flags                   []string   `json:"flags"`
	SavingsPotentialPercent int        `json:"savings_potential_percent"`
	AnnualSavingsDollars    float64    `json:"annual_savings_dollars"`
	DeploymentComplexity    Complexity `json:"deployment_complexity"`
	// HasCO2DCV marks an existing CO2-based DCV system that ODCV would upgrade.
	HasCO2DCV bool `json:"has_co2_dcv"`
	// LowConfidence marks a score built on energy data joined via a proxy key.
	LowConfidence bool `json:"low_confidence,omitempty"`

	ImplementationPlan ImplementationPlan `json:"implementation_plan"`
	Recommendations    []string           `json:"recommendations"`
	Financials         FinancialAnalysis  `json:"financial_analysis"`
}

// ScoreComponents breaks the two sub-scores into their signal terms.
type ScoreComponents struct {
	Savings    map[string]int `json:"savings_potential,omitempty"`
	Deployment map[string]int `json:"deployment_ease,omitempty"`
}

// ImplementationPlan is the AHU-level deployment estimate.
type ImplementationPlan struct {
	AHUCount         int             `json:"ahu_count"`
	SensorCount      int             `json:"sensor_count"`
	SensorLocations  string          `json:"sensor_locations"`
	Integration      IntegrationMode `json:"integration_mode"`
	IntegrationType  string          `json:"integration_type"`
	DeploymentWeeks  int             `json:"deployment_weeks"`
	TenantDisruption string          `json:"tenant_disruption"`
	ControlPoints    string          `json:"control_points"`
	EstimatedCost    float64         `json:"estimated_cost"`
	// CostPerSqFt is nil when floor area is unknown or zero.
	CostPerSqFt *float64 `json:"cost_per_sqft"`
}

// FinancialAnalysis is the simple savings/payback projection.
type FinancialAnalysis struct {
	EstimatedAnnualEnergyCost float64 `json:"estimated_annual_energy_cost"`
	EstimatedAnnualHVACCost   float64 `json:"estimated_annual_hvac_cost"`
	AnnualSavingsDollars      float64 `json:"annual_savings_dollars"`
	ImplementationCost        float64 `json:"implementation_cost"`
	SimplePaybackYears        float64 `json:"simple_payback_years"`
	ROIPercent                float64 `json:"roi_percent"`
	NPV10Year                 float64 `json:"npv_10_year"`
}
