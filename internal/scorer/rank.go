package scorer

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fmillerrzero/odcv-app/internal/model"
)

// RankAll scores every profile in parallel and returns the scores sorted
// descending by total. Equal totals keep their input order.
func (s *Scorer) RankAll(ctx context.Context, profiles []model.BuildingProfile) ([]model.OpportunityScore, error) {
	scores := make([]model.OpportunityScore, len(profiles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range profiles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scores[i] = s.Score(profiles[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "scorer: rank")
	}

	SortByScore(scores)

	zap.L().With(zap.String("component", "scorer")).Debug("ranked profiles",
		zap.Int("count", len(scores)),
		zap.Int("compatible", countCompatible(scores)),
	)
	return scores, nil
}

// SortByScore stable-sorts scores descending by total.
func SortByScore(scores []model.OpportunityScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].TotalScore > scores[j].TotalScore
	})
}

func countCompatible(scores []model.OpportunityScore) int {
	n := 0
	for i := range scores {
		if scores[i].Compatible {
			n++
		}
	}
	return n
}
