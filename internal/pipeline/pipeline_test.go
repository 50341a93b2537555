package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fmillerrzero/odcv-app/internal/bbl"
	"github.com/fmillerrzero/odcv-app/internal/config"
	"github.com/fmillerrzero/odcv-app/internal/fetcher"
	"github.com/fmillerrzero/odcv-app/internal/merge"
	"github.com/fmillerrzero/odcv-app/internal/model"
	"github.com/fmillerrzero/odcv-app/internal/scorer"
	"github.com/fmillerrzero/odcv-app/internal/source"
	"github.com/fmillerrzero/odcv-app/internal/store"
	"github.com/fmillerrzero/odcv-app/pkg/geoclient"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Merge = config.MergeConfig{MinBuildingSize: 75000, BuiltBefore: 2010, ClassPrefix: "O"}
	cfg.Batch = config.BatchConfig{MaxAddresses: 3, SearchLimit: 100}
	return cfg
}

func testScorer() *scorer.Scorer {
	cfg := config.DefaultScorerConfig()
	cfg.CurrentYear = 2025
	return scorer.New(cfg)
}

func newTestPipeline(st *mockStore, res geoclient.Resolver, rd source.Reader) *Pipeline {
	return New(testConfig(), st, testScorer(), res, rd)
}

func vavProfile(key string, occupancy float64) *model.BuildingProfile {
	return &model.BuildingProfile{
		BBL:              key,
		SizeSqFt:         model.Ptr(500000.0),
		YearBuilt:        model.Ptr(1970),
		BuildingClass:    "O4",
		OccupancyPercent: model.Ptr(occupancy),
		HasVAV:           model.Ptr(true),
	}
}

func table(header []string, rows ...[]string) *fetcher.Table {
	return &fetcher.Table{Header: header, Rows: rows}
}

func TestLoad(t *testing.T) {
	rd := source.StaticReader{
		source.KindParcel: {{Label: "MN", Table: table(
			[]string{"BBL", "Address", "BldgArea", "YearBuilt", "BldgClass"},
			[]string{"1010130029", "1155 AVENUE OF THE AMERICAS", "950000", "1984", "O4"},
			[]string{"1000420031", "80 MAIDEN LANE", "50000", "1912", "O3"},
		)}},
	}
	st := &mockStore{}
	st.On("ReplaceProfiles", mock.Anything, mock.MatchedBy(func(ps []model.BuildingProfile) bool {
		return len(ps) == 1 && ps[0].BBL == "1010130029"
	}), mock.MatchedBy(func(run store.LoadRun) bool {
		var stats merge.Stats
		return json.Unmarshal(run.Detail, &stats) == nil &&
			stats.Eligible == 1 &&
			assert.ObjectsAreEqual([]string{"energy", "audit", "grades"}, run.MissingSources)
	})).Return(&store.LoadRun{ID: "run-1", ProfileCount: 1}, nil)

	report, err := newTestPipeline(st, nil, rd).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", report.Run.ID)
	assert.Equal(t, 2, report.Stats.Parcels)
	assert.Equal(t, 1, report.Stats.Eligible)
	st.AssertExpectations(t)
}

func TestLoad_MissingBackboneLeavesStoreUntouched(t *testing.T) {
	st := &mockStore{}

	_, err := newTestPipeline(st, nil, source.StaticReader{}).Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, merge.ErrDataUnavailable)
	st.AssertNotCalled(t, "ReplaceProfiles", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoad_NoReader(t *testing.T) {
	_, err := newTestPipeline(&mockStore{}, nil, nil).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no source reader")
}

func TestLoad_StoreError(t *testing.T) {
	rd := source.StaticReader{
		source.KindParcel: {{Label: "MN", Table: table([]string{"BBL"}, []string{"1010130029"})}},
	}
	st := &mockStore{}
	st.On("ReplaceProfiles", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))

	_, err := newTestPipeline(st, nil, rd).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: store profiles")
}

func TestLookup(t *testing.T) {
	st := &mockStore{}
	st.On("GetProfile", mock.Anything, "1010130029").Return(vavProfile("1010130029", 50), nil)
	st.On("GetProfile", mock.Anything, "1000000001").Return(nil, nil)
	p := newTestPipeline(st, nil, nil)

	got, err := p.Lookup(context.Background(), "1-01013-0029")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "1010130029", got.BBL)

	miss, err := p.Lookup(context.Background(), "1000000001")
	require.NoError(t, err)
	assert.Nil(t, miss)

	_, err = p.Lookup(context.Background(), "not-a-key")
	assert.ErrorIs(t, err, bbl.ErrInvalidKey)
}

func TestScoreKey(t *testing.T) {
	st := &mockStore{}
	st.On("GetProfile", mock.Anything, "1010130029").Return(vavProfile("1010130029", 50), nil)
	st.On("GetProfile", mock.Anything, "1000000001").Return(nil, nil)
	p := newTestPipeline(st, nil, nil)

	sc, err := p.ScoreKey(context.Background(), "1010130029")
	require.NoError(t, err)
	assert.True(t, sc.Compatible)
	assert.Equal(t, "1010130029", sc.BBL)
	assert.Positive(t, sc.TotalScore)

	_, err = p.ScoreKey(context.Background(), "1000000001")
	assert.ErrorIs(t, err, ErrBuildingNotFound)
}

func TestScoreAddress(t *testing.T) {
	st := &mockStore{}
	st.On("GetProfile", mock.Anything, "1000420031").Return(vavProfile("1000420031", 70), nil)
	p := newTestPipeline(st, geoclient.NewStaticResolver(), nil)

	sc, err := p.ScoreAddress(context.Background(), "80 Maiden Lane", "Manhattan")
	require.NoError(t, err)
	assert.Equal(t, "1000420031", sc.BBL)

	_, err = p.ScoreAddress(context.Background(), "1 Nowhere Plaza", "")
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestScoreAddress_ResolverError(t *testing.T) {
	res := &mockResolver{}
	res.On("Resolve", mock.Anything, "140 Broadway", "").Return(nil, false, errors.New("upstream 503"))
	p := newTestPipeline(&mockStore{}, res, nil)

	_, err := p.ScoreAddress(context.Background(), "140 Broadway", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: resolve address")
	assert.NotErrorIs(t, err, ErrAddressNotFound)
}

func TestResolve_BlankAddress(t *testing.T) {
	res := &mockResolver{}
	p := newTestPipeline(&mockStore{}, res, nil)

	loc, ok, err := p.Resolve(context.Background(), "  ", "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, loc)
	res.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
}

func TestScoreMany(t *testing.T) {
	st := &mockStore{}
	st.On("GetProfile", mock.Anything, "1010130029").Return(vavProfile("1010130029", 95), nil)
	st.On("GetProfile", mock.Anything, "1000420031").Return(vavProfile("1000420031", 40), nil)
	st.On("GetProfile", mock.Anything, "1000700001").Return(nil, nil)
	p := newTestPipeline(st, geoclient.NewStaticResolver(), nil)

	scores, err := p.ScoreMany(context.Background(), []string{
		"1010130029",
		"80 maiden lane",
		"77 Water Street",  // no profile, skipped
		"1 Unknown Street", // beyond the batch limit of 3
	})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "1000420031", scores[0].BBL)
	assert.Equal(t, "1010130029", scores[1].BBL)
	assert.GreaterOrEqual(t, scores[0].TotalScore, scores[1].TotalScore)
}

func TestScoreMany_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPipeline(&mockStore{}, geoclient.NewStaticResolver(), nil).ScoreMany(ctx, []string{"1010130029"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearch_AppliesConfiguredLimit(t *testing.T) {
	st := &mockStore{}
	st.On("SearchProfiles", mock.Anything, store.Filter{RequireVAV: true, Limit: 100}).
		Return([]model.BuildingProfile{*vavProfile("1010130029", 50)}, nil)

	got, err := newTestPipeline(st, nil, nil).Search(context.Background(), store.Filter{RequireVAV: true})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	st.AssertExpectations(t)
}

func TestSearchRanked(t *testing.T) {
	st := &mockStore{}
	st.On("SearchProfiles", mock.Anything, store.Filter{Limit: store.NoLimit}).Return([]model.BuildingProfile{
		*vavProfile("1000000001", 95),
		*vavProfile("1000000002", 40),
		*vavProfile("1000000003", 70),
	}, nil)

	got, err := newTestPipeline(st, nil, nil).SearchRanked(context.Background(), store.Filter{}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1000000002", got[0].BBL)
	assert.Equal(t, "1000000003", got[1].BBL)
	st.AssertExpectations(t)
}

func TestSearchRanked_ExplicitLimitKept(t *testing.T) {
	st := &mockStore{}
	st.On("SearchProfiles", mock.Anything, store.Filter{RequireVAV: true, Limit: 20}).
		Return([]model.BuildingProfile{*vavProfile("1000000001", 50)}, nil)

	got, err := newTestPipeline(st, nil, nil).SearchRanked(context.Background(), store.Filter{RequireVAV: true, Limit: 20}, 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	st.AssertExpectations(t)
}

func TestTopOpportunities(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{"default", 0, DefaultOpportunities},
		{"explicit", 5, 5},
		{"clamped", 500, MaxOpportunities},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles := make([]model.BuildingProfile, 120)
			for i := range profiles {
				profiles[i] = *vavProfile("1000000001", 50)
			}
			st := &mockStore{}
			st.On("SearchProfiles", mock.Anything, mock.MatchedBy(func(f store.Filter) bool {
				return f.RequireVAV && f.MaxOccupancy != nil && *f.MaxOccupancy == OpportunityOccupancy &&
					f.Limit == store.NoLimit
			})).Return(profiles, nil)

			got, err := newTestPipeline(st, nil, nil).TopOpportunities(context.Background(), tt.limit)
			require.NoError(t, err)
			assert.Len(t, got, tt.wantLimit)
		})
	}
}

func TestStats(t *testing.T) {
	st := &mockStore{}
	st.On("Stats", mock.Anything).Return(&store.Stats{TotalBuildings: 4}, nil)

	got, err := newTestPipeline(st, nil, nil).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, got.TotalBuildings)

	failing := &mockStore{}
	failing.On("Stats", mock.Anything).Return(nil, errors.New("locked"))
	_, err = newTestPipeline(failing, nil, nil).Stats(context.Background())
	assert.Contains(t, err.Error(), "pipeline: stats")
}
