package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fmillerrzero/odcv-app/internal/model"
	"github.com/fmillerrzero/odcv-app/internal/store"
	"github.com/fmillerrzero/odcv-app/pkg/geoclient"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) ReplaceProfiles(ctx context.Context, profiles []model.BuildingProfile, run store.LoadRun) (*store.LoadRun, error) {
	args := m.Called(ctx, profiles, run)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.LoadRun), args.Error(1)
}

func (m *mockStore) GetProfile(ctx context.Context, bbl string) (*model.BuildingProfile, error) {
	args := m.Called(ctx, bbl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BuildingProfile), args.Error(1)
}

func (m *mockStore) SearchProfiles(ctx context.Context, f store.Filter) ([]model.BuildingProfile, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BuildingProfile), args.Error(1)
}

func (m *mockStore) Stats(ctx context.Context) (*store.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Stats), args.Error(1)
}

func (m *mockStore) LastLoad(ctx context.Context) (*store.LoadRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.LoadRun), args.Error(1)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

// --- Resolver Mock ---

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, address, borough string) (*geoclient.Location, bool, error) {
	args := m.Called(ctx, address, borough)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*geoclient.Location), args.Bool(1), args.Error(2)
}
