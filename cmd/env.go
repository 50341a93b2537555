package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fmillerrzero/odcv-app/internal/pipeline"
	"github.com/fmillerrzero/odcv-app/internal/scorer"
	"github.com/fmillerrzero/odcv-app/internal/source"
	"github.com/fmillerrzero/odcv-app/internal/store"
	"github.com/fmillerrzero/odcv-app/pkg/geoclient"
)

// appEnv holds the store and pipeline shared by every command.
type appEnv struct {
	Store    store.ProfileStore
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// scorerConfigPath is the optional standalone scorer YAML (--scorer-config).
var scorerConfigPath string

// initEnv validates the config for mode, opens and migrates the store and
// builds the pipeline. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	sc, err := initScorer()
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	var rd source.Reader
	if mode == "load" {
		rd = source.NewFileReader(cfg.Data)
	}

	return &appEnv{
		Store:    st,
		Pipeline: pipeline.New(cfg, st, sc, initResolver(), rd),
	}, nil
}

func initStore(ctx context.Context) (store.ProfileStore, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

// initScorer uses the scorer section of the main config unless a standalone
// scorer file is given.
func initScorer() (*scorer.Scorer, error) {
	sc := cfg.Scorer
	if scorerConfigPath != "" {
		loaded, err := scorer.LoadConfig(scorerConfigPath)
		if err != nil {
			return nil, err
		}
		sc = loaded
	} else if err := scorer.ValidateConfig(sc); err != nil {
		return nil, err
	}
	return scorer.New(sc, scorer.WithConcurrency(cfg.Batch.Concurrency)), nil
}

// initResolver returns the Geoclient client when credentials are configured
// and the built-in table otherwise.
func initResolver() geoclient.Resolver {
	if cfg.Geoclient.AppID == "" || cfg.Geoclient.AppKey == "" {
		zap.L().Warn("geoclient credentials not configured, using built-in address table")
		return geoclient.NewStaticResolver()
	}
	return geoclient.NewClient(cfg.Geoclient.AppID, cfg.Geoclient.AppKey,
		geoclient.WithBaseURL(cfg.Geoclient.BaseURL),
		geoclient.WithRateLimit(cfg.Geoclient.RateLimit),
	)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&scorerConfigPath, "scorer-config", "", "standalone scorer YAML file (overrides the scorer section)")
}
