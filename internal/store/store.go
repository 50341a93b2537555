// Package store persists the merged building profile table. The table is
// replaced wholesale on every load; readers see either the previous or the
// new set, never a mix.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/fmillerrzero/odcv-app/internal/config"
	"github.com/fmillerrzero/odcv-app/internal/model"
)

// DefaultSearchLimit caps SearchProfiles when Filter.Limit is 0.
const DefaultSearchLimit = 100

// NoLimit disables the search cap.
const NoLimit = -1

// Filter selects profiles. Set fields combine conjunctively; unset fields
// impose no constraint.
type Filter struct {
	MinArea      *float64 `json:"min_area,omitempty"`
	MaxOccupancy *float64 `json:"max_occupancy,omitempty"`
	RequireVAV   bool     `json:"require_vav,omitempty"`
	Grade        string   `json:"grade,omitempty"`
	Limit        int      `json:"limit,omitempty"`
}

// Stats summarizes the profile table.
type Stats struct {
	TotalBuildings        int     `json:"total_buildings"`
	VAVBuildings          int     `json:"vav_buildings"`
	LowOccupancyBuildings int     `json:"low_occupancy_buildings"`
	PoorGradeBuildings    int     `json:"poor_grade_buildings"`
	AverageEUI            float64 `json:"average_eui"`
	AverageOccupancy      float64 `json:"average_occupancy"`
}

// LoadRun records one wholesale replacement of the profile table.
type LoadRun struct {
	ID             string          `json:"id"`
	LoadedAt       time.Time       `json:"loaded_at"`
	ProfileCount   int             `json:"profile_count"`
	MissingSources []string        `json:"missing_sources,omitempty"`
	Detail         json.RawMessage `json:"detail,omitempty"`
}

// ProfileStore is the persisted profile table.
type ProfileStore interface {
	Migrate(ctx context.Context) error

	// ReplaceProfiles swaps the whole table in one transaction and records
	// the load. ID, LoadedAt and ProfileCount of run are assigned here.
	ReplaceProfiles(ctx context.Context, profiles []model.BuildingProfile, run LoadRun) (*LoadRun, error)
	// GetProfile returns nil, nil when no profile has the key.
	GetProfile(ctx context.Context, bbl string) (*model.BuildingProfile, error)
	SearchProfiles(ctx context.Context, f Filter) ([]model.BuildingProfile, error)
	Stats(ctx context.Context) (*Stats, error)
	// LastLoad returns nil, nil before the first load.
	LastLoad(ctx context.Context) (*LoadRun, error)

	Close() error
}

// Open connects to the configured backend and migrates it.
func Open(ctx context.Context, cfg config.StoreConfig) (ProfileStore, error) {
	var (
		st  ProfileStore
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.DatabaseURL); dir != "." && !strings.HasPrefix(cfg.DatabaseURL, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, eris.Wrap(err, "store: create database dir")
			}
		}
		st, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}
