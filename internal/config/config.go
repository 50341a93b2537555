package config

import (
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Data      DataConfig      `yaml:"data" mapstructure:"data"`
	Merge     MergeConfig     `yaml:"merge" mapstructure:"merge"`
	Scorer    ScorerConfig    `yaml:"scorer" mapstructure:"scorer"`
	Geoclient GeoclientConfig `yaml:"geoclient" mapstructure:"geoclient"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the profile table backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// DataConfig locates the four raw datasets. Parcel files are keyed by
// two-letter borough code (MN, BX, BK, QN, SI).
type DataConfig struct {
	Dir         string            `yaml:"dir" mapstructure:"dir"`
	ParcelFiles map[string]string `yaml:"parcel_files" mapstructure:"parcel_files"`
	EnergyFile  string            `yaml:"energy_file" mapstructure:"energy_file"`
	AuditFile   string            `yaml:"audit_file" mapstructure:"audit_file"`
	GradesFile  string            `yaml:"grades_file" mapstructure:"grades_file"`
	TempDir     string            `yaml:"temp_dir" mapstructure:"temp_dir"`
	// DownloadURLs maps a dataset name (energy, audit, grades or a parcel
	// borough code) to the URL the fetch command refreshes it from.
	DownloadURLs map[string]string `yaml:"download_urls" mapstructure:"download_urls"`
}

// MergeConfig holds the profile eligibility filter applied at merge time.
type MergeConfig struct {
	MinBuildingSize float64 `yaml:"min_building_size" mapstructure:"min_building_size"`
	BuiltBefore     int     `yaml:"built_before" mapstructure:"built_before"`
	ClassPrefix     string  `yaml:"class_prefix" mapstructure:"class_prefix"`
}

// ScorerConfig holds every threshold and constant of the ODCV scoring model.
type ScorerConfig struct {
	MinBuildingSize    float64  `yaml:"min_building_size" mapstructure:"min_building_size"`
	HighEUIThreshold   float64  `yaml:"high_eui_threshold" mapstructure:"high_eui_threshold"`
	MediumEUIThreshold float64  `yaml:"medium_eui_threshold" mapstructure:"medium_eui_threshold"`
	LowOccupancy       float64  `yaml:"low_occupancy" mapstructure:"low_occupancy"`
	MediumOccupancy    float64  `yaml:"medium_occupancy" mapstructure:"medium_occupancy"`
	PoorGrades         []string `yaml:"poor_grades" mapstructure:"poor_grades"`
	MediumGrade        string   `yaml:"medium_grade" mapstructure:"medium_grade"`
	OldBuildingAge     int      `yaml:"old_building_age" mapstructure:"old_building_age"`
	MidBuildingAge     int      `yaml:"mid_building_age" mapstructure:"mid_building_age"`
	CorporateOwnerCode string   `yaml:"corporate_owner_code" mapstructure:"corporate_owner_code"`
	GoodMeterCount     int      `yaml:"good_meter_count" mapstructure:"good_meter_count"`

	// Savings estimates (percent of HVAC cost) per occupancy band.
	SavingsLowOccupancy    int `yaml:"savings_low_occupancy" mapstructure:"savings_low_occupancy"`
	SavingsMediumOccupancy int `yaml:"savings_medium_occupancy" mapstructure:"savings_medium_occupancy"`
	SavingsHighOccupancy   int `yaml:"savings_high_occupancy" mapstructure:"savings_high_occupancy"`

	// Deployment plan.
	AHUPerFloors               int     `yaml:"ahu_per_floors" mapstructure:"ahu_per_floors"`
	DefaultFloors              int     `yaml:"default_floors" mapstructure:"default_floors"`
	SensorCost                 float64 `yaml:"sensor_cost" mapstructure:"sensor_cost"`
	IntegrationWeeksWithBMS    int     `yaml:"integration_weeks_with_bms" mapstructure:"integration_weeks_with_bms"`
	IntegrationWeeksWithoutBMS int     `yaml:"integration_weeks_without_bms" mapstructure:"integration_weeks_without_bms"`

	// Financials.
	EnergyCostPerSqFt float64 `yaml:"energy_cost_per_sqft" mapstructure:"energy_cost_per_sqft"`
	HVACShare         float64 `yaml:"hvac_share" mapstructure:"hvac_share"`
	PaybackSentinel   float64 `yaml:"payback_sentinel" mapstructure:"payback_sentinel"`
	NPVYears          int     `yaml:"npv_years" mapstructure:"npv_years"`

	// CurrentYear pins the building-age clock; 0 means the year the scorer is built.
	CurrentYear int `yaml:"current_year" mapstructure:"current_year"`
}

// DefaultScorerConfig returns the standard ODCV model parameters.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		MinBuildingSize:    75000,
		HighEUIThreshold:   100,
		MediumEUIThreshold: 80,
		LowOccupancy:       60,
		MediumOccupancy:    80,
		PoorGrades:         []string{"D", "F"},
		MediumGrade:        "C",
		OldBuildingAge:     40,
		MidBuildingAge:     20,
		CorporateOwnerCode: "C",
		GoodMeterCount:     3,

		SavingsLowOccupancy:    30,
		SavingsMediumOccupancy: 20,
		SavingsHighOccupancy:   10,

		AHUPerFloors:               5,
		DefaultFloors:              10,
		SensorCost:                 2000,
		IntegrationWeeksWithBMS:    2,
		IntegrationWeeksWithoutBMS: 4,

		EnergyCostPerSqFt: 3.50,
		HVACShare:         0.40,
		PaybackSentinel:   999,
		NPVYears:          10,
	}
}

// GeoclientConfig holds NYC Geoclient API credentials.
type GeoclientConfig struct {
	AppID     string  `yaml:"app_id" mapstructure:"app_id"`
	AppKey    string  `yaml:"app_key" mapstructure:"app_key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// BatchConfig configures bulk scoring.
type BatchConfig struct {
	MaxAddresses int `yaml:"max_addresses" mapstructure:"max_addresses"`
	Concurrency  int `yaml:"concurrency" mapstructure:"concurrency"`
	SearchLimit  int `yaml:"search_limit" mapstructure:"search_limit"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ODCV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "cache/odcv.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.parcel_files", map[string]string{
		"MN": "pluto/MN.csv",
		"BX": "pluto/BX.csv",
		"BK": "pluto/BK.csv",
		"QN": "pluto/QN.csv",
		"SI": "pluto/SI.csv",
	})
	v.SetDefault("data.energy_file", "ll84_monthly.csv")
	v.SetDefault("data.audit_file", "ll87_2019_2024.csv")
	v.SetDefault("data.grades_file", "ll33_grades.csv")
	v.SetDefault("data.temp_dir", "/tmp/odcv")
	v.SetDefault("data.download_urls", map[string]string{
		"audit": "https://data.cityofnewyork.us/api/views/au6c-jqvf/rows.csv?accessType=DOWNLOAD",
	})
	v.SetDefault("merge.min_building_size", 75000)
	v.SetDefault("merge.built_before", 2010)
	v.SetDefault("merge.class_prefix", "O")
	if err := setScorerDefaults(v); err != nil {
		return nil, err
	}
	v.SetDefault("geoclient.base_url", "https://api.cityofnewyork.us/geoclient/v1")
	v.SetDefault("geoclient.rate_limit", 10)
	v.SetDefault("batch.max_addresses", 50)
	v.SetDefault("batch.concurrency", 8)
	v.SetDefault("batch.search_limit", 100)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// setScorerDefaults registers every DefaultScorerConfig field under the
// scorer key so file and env values override them one by one.
func setScorerDefaults(v *viper.Viper) error {
	var m map[string]any
	if err := mapstructure.Decode(DefaultScorerConfig(), &m); err != nil {
		return eris.Wrap(err, "config: scorer defaults")
	}
	for k, val := range m {
		v.SetDefault("scorer."+k, val)
	}
	return nil
}

// Validate checks that the settings a command needs are present.
// Modes: "store" (profile table access), "load" (raw datasets), "serve".
func (c *Config) Validate(mode string) error {
	var missing []string

	switch mode {
	case "store":
		missing = c.validateStore(missing)
	case "load":
		missing = c.validateStore(missing)
		if len(c.Data.ParcelFiles) == 0 {
			missing = append(missing, "data.parcel_files")
		}
	case "serve":
		missing = c.validateStore(missing)
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings for %s: %s", mode, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) validateStore(missing []string) []string {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		missing = append(missing, "store.driver (sqlite|postgres)")
	}
	if c.Store.DatabaseURL == "" {
		missing = append(missing, "store.database_url")
	}
	return missing
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
