// Package scorer evaluates building profiles for occupancy-driven control
// ventilation (ODCV) retrofits and ranks them.
package scorer

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/fmillerrzero/odcv-app/internal/config"
)

// ValidateConfig checks that a ScorerConfig is internally consistent.
func ValidateConfig(c config.ScorerConfig) error {
	var errs []string

	if c.MinBuildingSize < 0 {
		errs = append(errs, "min_building_size must be >= 0")
	}
	if c.MediumEUIThreshold > c.HighEUIThreshold {
		errs = append(errs, "medium_eui_threshold must be <= high_eui_threshold")
	}
	if c.LowOccupancy > c.MediumOccupancy {
		errs = append(errs, "low_occupancy must be <= medium_occupancy")
	}
	if c.MidBuildingAge > c.OldBuildingAge {
		errs = append(errs, "mid_building_age must be <= old_building_age")
	}

	for name, pct := range map[string]int{
		"savings_low_occupancy":    c.SavingsLowOccupancy,
		"savings_medium_occupancy": c.SavingsMediumOccupancy,
		"savings_high_occupancy":   c.SavingsHighOccupancy,
	} {
		if pct < 0 || pct > 100 {
			errs = append(errs, fmt.Sprintf("%s must be between 0 and 100", name))
		}
	}

	// Deployment plan.
	if c.AHUPerFloors <= 0 {
		errs = append(errs, "ahu_per_floors must be > 0")
	}
	if c.DefaultFloors < 0 {
		errs = append(errs, "default_floors must be >= 0")
	}
	if c.SensorCost < 0 {
		errs = append(errs, "sensor_cost must be >= 0")
	}

	// Financials.
	if c.EnergyCostPerSqFt < 0 {
		errs = append(errs, "energy_cost_per_sqft must be >= 0")
	}
	if c.HVACShare < 0 || c.HVACShare > 1 {
		errs = append(errs, "hvac_share must be between 0 and 1")
	}
	if c.PaybackSentinel <= 0 {
		errs = append(errs, "payback_sentinel must be > 0")
	}
	if c.NPVYears <= 0 {
		errs = append(errs, "npv_years must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LoadConfig reads scorer parameters from a YAML file with a top-level
// "scorer" key. Keys the file omits keep their defaults.
func LoadConfig(path string) (config.ScorerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return config.ScorerConfig{}, eris.Wrapf(err, "scorer: read config %s", path)
	}

	wrapper := struct {
		Scorer config.ScorerConfig `yaml:"scorer"`
	}{Scorer: config.DefaultScorerConfig()}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return config.ScorerConfig{}, eris.Wrap(err, "scorer: parse config")
	}

	if err := ValidateConfig(wrapper.Scorer); err != nil {
		return config.ScorerConfig{}, err
	}
	return wrapper.Scorer, nil
}
