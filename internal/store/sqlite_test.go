package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmillerrzero/odcv-app/internal/config"
	"github.com/fmillerrzero/odcv-app/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testProfiles() []model.BuildingProfile {
	return []model.BuildingProfile{
		{
			BBL: "1010130029", Address: "1155 AVENUE OF THE AMERICAS", Borough: "MN", ZipCode: "10036",
			SizeSqFt: model.Ptr(950000.0), Floors: model.Ptr(41), YearBuilt: model.Ptr(1984),
			OwnerType: "C", BuildingClass: "O4",
			SiteEUI: model.Ptr(120.0), OccupancyPercent: model.Ptr(55.0), ActiveMeters: model.Ptr(4),
			HasVAV: model.Ptr(true), HasDCV: model.Ptr(false), HasBMS: model.Ptr(true),
			BMSText: model.Ptr("Yes"), HVACType: model.Ptr("Variable Air Volume"),
			EnergyGrade: model.Ptr("D"),
		},
		{
			BBL: "1000420031", Address: "80 MAIDEN LANE", Borough: "MN",
			SizeSqFt: model.Ptr(500000.0), YearBuilt: model.Ptr(1912), BuildingClass: "O3",
			SiteEUI: model.Ptr(80.0), OccupancyPercent: model.Ptr(90.0),
			HasVAV: model.Ptr(false), EnergyGrade: model.Ptr("B"),
			EnergyViaProxy: true,
		},
		{
			BBL: "1000700001", Address: "77 WATER STREET", Borough: "MN",
			SizeSqFt: model.Ptr(100000.0), YearBuilt: model.Ptr(1970), BuildingClass: "O6",
		},
	}
}

func TestSQLiteStore_ReplaceAndGet(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := s.ReplaceProfiles(ctx, testProfiles(), LoadRun{
		MissingSources: []string{"audit"},
		Detail:         json.RawMessage(`{"eligible":3}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 3, run.ProfileCount)
	assert.False(t, run.LoadedAt.IsZero())

	got, err := s.GetProfile(ctx, "1010130029")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, testProfiles()[0], *got)

	bare, err := s.GetProfile(ctx, "1000700001")
	require.NoError(t, err)
	require.NotNil(t, bare)
	assert.Nil(t, bare.SiteEUI)
	assert.Nil(t, bare.HasVAV)
	assert.Nil(t, bare.EnergyGrade)
	assert.False(t, bare.VAV())

	proxied, err := s.GetProfile(ctx, "1000420031")
	require.NoError(t, err)
	assert.True(t, proxied.EnergyViaProxy)
}

func TestSQLiteStore_GetProfile_NotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	got, err := s.GetProfile(context.Background(), "9999999999")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_ReplaceIsWholesale(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.ReplaceProfiles(ctx, testProfiles(), LoadRun{})
	require.NoError(t, err)

	second, err := s.ReplaceProfiles(ctx, testProfiles()[:1], LoadRun{})
	require.NoError(t, err)

	all, err := s.SearchProfiles(ctx, Filter{Limit: NoLimit})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "1010130029", all[0].BBL)

	last, err := s.LastLoad(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, second.ID, last.ID)
	assert.Equal(t, 1, last.ProfileCount)
}

func TestSQLiteStore_ReplaceDuplicateKeyRollsBack(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.ReplaceProfiles(ctx, testProfiles(), LoadRun{})
	require.NoError(t, err)

	dup := append(testProfiles()[:1], testProfiles()[0])
	_, err = s.ReplaceProfiles(ctx, dup, LoadRun{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite: insert profile")

	all, err := s.SearchProfiles(ctx, Filter{Limit: NoLimit})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteStore_SearchProfiles(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	_, err := s.ReplaceProfiles(ctx, testProfiles(), LoadRun{})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter", Filter{}, []string{"1000420031", "1000700001", "1010130029"}},
		{"min area", Filter{MinArea: model.Ptr(400000.0)}, []string{"1000420031", "1010130029"}},
		{"max occupancy", Filter{MaxOccupancy: model.Ptr(80.0)}, []string{"1010130029"}},
		{"vav", Filter{RequireVAV: true}, []string{"1010130029"}},
		{"grade", Filter{Grade: "b"}, []string{"1000420031"}},
		{"combined", Filter{MinArea: model.Ptr(600000.0), Grade: "B"}, nil},
		{"limit", Filter{Limit: 2}, []string{"1000420031", "1000700001"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.SearchProfiles(ctx, tt.filter)
			require.NoError(t, err)
			var keys []string
			for _, p := range got {
				keys = append(keys, p.BBL)
			}
			assert.Equal(t, tt.want, keys)
		})
	}
}

func TestSQLiteStore_Stats(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	empty, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{}, empty)

	_, err = s.ReplaceProfiles(ctx, testProfiles(), LoadRun{})
	require.NoError(t, err)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalBuildings)
	assert.Equal(t, 1, st.VAVBuildings)
	assert.Equal(t, 1, st.LowOccupancyBuildings)
	assert.Equal(t, 1, st.PoorGradeBuildings)
	assert.InDelta(t, 100.0, st.AverageEUI, 0.001)
	assert.InDelta(t, 72.5, st.AverageOccupancy, 0.001)
}

func TestSQLiteStore_LastLoad(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	none, err := s.LastLoad(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = s.ReplaceProfiles(ctx, nil, LoadRun{
		MissingSources: []string{"energy", "grades"},
		Detail:         json.RawMessage(`{"parcels":0}`),
	})
	require.NoError(t, err)

	last, err := s.LastLoad(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 0, last.ProfileCount)
	assert.Equal(t, []string{"energy", "grades"}, last.MissingSources)
	assert.JSONEq(t, `{"parcels":0}`, string(last.Detail))
}

func TestOpen_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "odcv.db")

	st, err := Open(context.Background(), config.StoreConfig{Driver: "sqlite", DatabaseURL: path})
	require.NoError(t, err)
	defer st.Close()

	last, err := st.LastLoad(context.Background())
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "mysql", DatabaseURL: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestBuildSearch(t *testing.T) {
	q, args := buildSearch(Filter{
		MinArea:      model.Ptr(100000.0),
		MaxOccupancy: model.Ptr(80.0),
		RequireVAV:   true,
		Grade:        " d ",
	}, postgresDialect)

	assert.Contains(t, q, "WHERE size_sqft >= $1 AND occupancy_percent <= $2 AND has_vav = TRUE AND energy_grade = $3")
	assert.Contains(t, q, "ORDER BY bbl LIMIT $4")
	assert.Equal(t, []any{100000.0, 80.0, "D", DefaultSearchLimit}, args)

	q, args = buildSearch(Filter{Limit: NoLimit}, sqliteDialect)
	assert.NotContains(t, q, "WHERE")
	assert.NotContains(t, q, "LIMIT")
	assert.Empty(t, args)
}
