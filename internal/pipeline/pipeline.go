// Package pipeline wires the source reader, merger, profile store, scorer and
// address resolver into the operations exposed by the CLI and HTTP API.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fmillerrzero/odcv-app/internal/bbl"
	"github.com/fmillerrzero/odcv-app/internal/config"
	"github.com/fmillerrzero/odcv-app/internal/merge"
	"github.com/fmillerrzero/odcv-app/internal/model"
	"github.com/fmillerrzero/odcv-app/internal/scorer"
	"github.com/fmillerrzero/odcv-app/internal/source"
	"github.com/fmillerrzero/odcv-app/internal/store"
	"github.com/fmillerrzero/odcv-app/pkg/geoclient"
)

var (
	// ErrAddressNotFound is returned when the resolver cannot place an address.
	ErrAddressNotFound = eris.New("pipeline: address not found")
	// ErrBuildingNotFound is returned when a key has no stored profile.
	ErrBuildingNotFound = eris.New("pipeline: building not found")
)

// Opportunity defaults for TopOpportunities.
const (
	DefaultOpportunities  = 10
	MaxOpportunities      = 100
	OpportunityOccupancy  = 80.0
	DefaultMaxBulkScoring = 50
)

// Pipeline orchestrates loading, lookup, scoring and search.
type Pipeline struct {
	cfg      *config.Config
	store    store.ProfileStore
	scorer   *scorer.Scorer
	resolver geoclient.Resolver
	reader   source.Reader
}

// New creates a Pipeline. reader may be nil for read-only use (serve, score).
func New(cfg *config.Config, st store.ProfileStore, sc *scorer.Scorer, res geoclient.Resolver, rd source.Reader) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    st,
		scorer:   sc,
		resolver: res,
		reader:   rd,
	}
}

// LoadReport summarizes one Load.
type LoadReport struct {
	Run   *store.LoadRun `json:"run"`
	Stats merge.Stats    `json:"stats"`
}

// Load reads every dataset, merges them and replaces the stored profile
// table. A missing backbone fails with merge.ErrDataUnavailable and leaves
// the stored table untouched.
func (p *Pipeline) Load(ctx context.Context) (*LoadReport, error) {
	if p.reader == nil {
		return nil, eris.New("pipeline: no source reader configured")
	}
	log := zap.L().With(zap.String("component", "pipeline"))

	res, err := merge.LoadAndMerge(ctx, p.reader, merge.EligibilityFromConfig(p.cfg.Merge))
	if err != nil {
		return nil, err
	}

	detail, err := json.Marshal(res.Stats)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: marshal merge stats")
	}
	missing := make([]string, len(res.Stats.Missing))
	for i, k := range res.Stats.Missing {
		missing[i] = string(k)
	}

	run, err := p.store.ReplaceProfiles(ctx, res.Profiles, store.LoadRun{
		MissingSources: missing,
		Detail:         detail,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: store profiles")
	}

	log.Info("pipeline: load complete",
		zap.String("load_id", run.ID),
		zap.Int("profiles", run.ProfileCount),
		zap.Strings("missing", missing),
	)
	return &LoadReport{Run: run, Stats: res.Stats}, nil
}

// Lookup returns the stored profile for a key in any accepted form, or
// nil, nil when there is none. A malformed key wraps bbl.ErrInvalidKey.
func (p *Pipeline) Lookup(ctx context.Context, key string) (*model.BuildingProfile, error) {
	k, err := bbl.Normalize(key)
	if err != nil {
		return nil, err
	}
	return p.store.GetProfile(ctx, k)
}

// Resolve places an address. The bool is false when the resolver has no
// match.
func (p *Pipeline) Resolve(ctx context.Context, address, borough string) (*geoclient.Location, bool, error) {
	if strings.TrimSpace(address) == "" {
		return nil, false, nil
	}
	loc, ok, err := p.resolver.Resolve(ctx, address, borough)
	if err != nil {
		return nil, false, eris.Wrap(err, "pipeline: resolve address")
	}
	return loc, ok, nil
}

// ScoreKey scores the stored profile for key.
func (p *Pipeline) ScoreKey(ctx context.Context, key string) (*model.OpportunityScore, error) {
	prof, err := p.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if prof == nil {
		return nil, eris.Wrapf(ErrBuildingNotFound, "bbl %s", key)
	}
	sc := p.scorer.Score(*prof)
	return &sc, nil
}

// ScoreAddress resolves an address and scores the building there.
func (p *Pipeline) ScoreAddress(ctx context.Context, address, borough string) (*model.OpportunityScore, error) {
	loc, ok, err := p.Resolve(ctx, address, borough)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, eris.Wrapf(ErrAddressNotFound, "%q", address)
	}
	return p.ScoreKey(ctx, loc.BBL)
}

// ScoreMany scores a batch of keys or addresses, ranked. Inputs beyond the
// configured batch limit are ignored; inputs that do not resolve or have no
// profile are logged and skipped.
func (p *Pipeline) ScoreMany(ctx context.Context, inputs []string) ([]model.OpportunityScore, error) {
	log := zap.L().With(zap.String("component", "pipeline"))

	limit := p.cfg.Batch.MaxAddresses
	if limit <= 0 {
		limit = DefaultMaxBulkScoring
	}
	if len(inputs) > limit {
		log.Info("pipeline: truncating bulk request", zap.Int("requested", len(inputs)), zap.Int("limit", limit))
		inputs = inputs[:limit]
	}

	profiles := make([]model.BuildingProfile, 0, len(inputs))
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "pipeline: score many")
		}
		prof, err := p.profileFor(ctx, in)
		if err != nil {
			log.Warn("pipeline: skipping bulk input", zap.String("input", in), zap.Error(err))
			continue
		}
		profiles = append(profiles, *prof)
	}

	return p.scorer.RankAll(ctx, profiles)
}

// profileFor accepts either a building key or a street address.
func (p *Pipeline) profileFor(ctx context.Context, input string) (*model.BuildingProfile, error) {
	key, err := bbl.Normalize(input)
	if err != nil {
		if !errors.Is(err, bbl.ErrInvalidKey) {
			return nil, err
		}
		loc, ok, rerr := p.Resolve(ctx, input, "")
		if rerr != nil {
			return nil, rerr
		}
		if !ok {
			return nil, ErrAddressNotFound
		}
		key = loc.BBL
	}

	prof, err := p.store.GetProfile(ctx, key)
	if err != nil {
		return nil, err
	}
	if prof == nil {
		return nil, eris.Wrapf(ErrBuildingNotFound, "bbl %s", key)
	}
	return prof, nil
}

// Search returns the stored profiles matching f, unranked.
func (p *Pipeline) Search(ctx context.Context, f store.Filter) ([]model.BuildingProfile, error) {
	if f.Limit == 0 && p.cfg.Batch.SearchLimit > 0 {
		f.Limit = p.cfg.Batch.SearchLimit
	}
	out, err := p.store.SearchProfiles(ctx, f)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: search")
	}
	return out, nil
}

// SearchRanked scores every match and returns the top n by score. Without
// an explicit f.Limit the whole filtered set is ranked, so the cut to n
// happens after scoring. n <= 0 returns all matches.
func (p *Pipeline) SearchRanked(ctx context.Context, f store.Filter, n int) ([]model.OpportunityScore, error) {
	if f.Limit == 0 {
		f.Limit = store.NoLimit
	}
	profiles, err := p.Search(ctx, f)
	if err != nil {
		return nil, err
	}
	ranked, err := p.scorer.RankAll(ctx, profiles)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// TopOpportunities ranks the VAV buildings at or below 80% occupancy.
// limit is clamped to 1..100, defaulting to 10.
func (p *Pipeline) TopOpportunities(ctx context.Context, limit int) ([]model.OpportunityScore, error) {
	switch {
	case limit <= 0:
		limit = DefaultOpportunities
	case limit > MaxOpportunities:
		limit = MaxOpportunities
	}
	occ := OpportunityOccupancy
	return p.SearchRanked(ctx, store.Filter{
		MaxOccupancy: &occ,
		RequireVAV:   true,
		Limit:        store.NoLimit,
	}, limit)
}

// Stats summarizes the stored profile table.
func (p *Pipeline) Stats(ctx context.Context) (*store.Stats, error) {
	st, err := p.store.Stats(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: stats")
	}
	return st, nil
}

// LastLoad returns the most recent load run, or nil before the first load.
func (p *Pipeline) LastLoad(ctx context.Context) (*store.LoadRun, error) {
	return p.store.LastLoad(ctx)
}
