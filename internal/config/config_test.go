package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "cache/odcv.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Len(t, cfg.Data.ParcelFiles, 5)
	assert.Equal(t, "ll84_monthly.csv", cfg.Data.EnergyFile)
	assert.Contains(t, cfg.Data.DownloadURLs["audit"], "au6c-jqvf")
	assert.InDelta(t, 75000, cfg.Merge.MinBuildingSize, 0.001)
	assert.Equal(t, 2010, cfg.Merge.BuiltBefore)
	assert.Equal(t, "O", cfg.Merge.ClassPrefix)
	assert.InDelta(t, 100, cfg.Scorer.HighEUIThreshold, 0.001)
	assert.Equal(t, []string{"D", "F"}, cfg.Scorer.PoorGrades)
	assert.Equal(t, "C", cfg.Scorer.MediumGrade)
	assert.Equal(t, 5, cfg.Scorer.AHUPerFloors)
	assert.InDelta(t, 2000, cfg.Scorer.SensorCost, 0.001)
	assert.InDelta(t, 3.50, cfg.Scorer.EnergyCostPerSqFt, 0.001)
	assert.InDelta(t, 0.40, cfg.Scorer.HVACShare, 0.001)
	assert.InDelta(t, 999, cfg.Scorer.PaybackSentinel, 0.001)
	assert.Equal(t, 50, cfg.Batch.MaxAddresses)
	assert.Equal(t, 100, cfg.Batch.SearchLimit)
	assert.Equal(t, "https://api.cityofnewyork.us/geoclient/v1", cfg.Geoclient.BaseURL)
}

func TestLoadScorerDefaultsMatchDefaultScorerConfig(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultScorerConfig(), cfg.Scorer)
}

func TestLoadScorerEnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ODCV_SCORER_SENSOR_COST", "3100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, 3100, cfg.Scorer.SensorCost, 0.001)
	assert.InDelta(t, DefaultScorerConfig().HVACShare, cfg.Scorer.HVACShare, 0.001)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/odcv
log:
  level: debug
  format: console
scorer:
  sensor_cost: 2500
  poor_grades: [D, E, F]
batch:
  concurrency: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/odcv", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.InDelta(t, 2500, cfg.Scorer.SensorCost, 0.001)
	assert.Equal(t, []string{"D", "E", "F"}, cfg.Scorer.PoorGrades)
	assert.Equal(t, 2, cfg.Batch.Concurrency)
	// Defaults still apply for unset values
	assert.Equal(t, 5, cfg.Scorer.AHUPerFloors)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ODCV_STORE_DRIVER", "postgres")
	t.Setenv("ODCV_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("ODCV_SERVER_PORT", "3000")
	t.Setenv("ODCV_GEOCLIENT_APP_ID", "app-123")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "app-123", cfg.Geoclient.AppID)
}

func TestLoadBadYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "odcv.db"
	cfg.Data.ParcelFiles = map[string]string{"MN": "pluto/MN.csv"}
	cfg.Server.Port = 8000
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(*Config)
		wantErr string
	}{
		{"store ok", "store", nil, ""},
		{"load ok", "load", nil, ""},
		{"serve ok", "serve", nil, ""},
		{"bad driver", "store", func(c *Config) { c.Store.Driver = "mysql" }, "store.driver"},
		{"missing url", "store", func(c *Config) { c.Store.DatabaseURL = "" }, "store.database_url"},
		{"no parcel files", "load", func(c *Config) { c.Data.ParcelFiles = nil }, "data.parcel_files"},
		{"bad port", "serve", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"unknown mode", "bogus", nil, "unknown validation mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
