package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/fmillerrzero/odcv-app/internal/db"
	"github.com/fmillerrzero/odcv-app/internal/model"
)

// PostgresStore implements ProfileStore using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists the hot read paths, prepared on each new connection.
var preparedStatements = map[string]string{
	"get_profile": selectProfile + ` WHERE bbl = $1`,
	"last_load":   lastLoadQuery,
}

const lastLoadQuery = `SELECT id, loaded_at, profile_count, missing_sources, detail FROM load_runs ORDER BY loaded_at DESC LIMIT 1`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Statements reference tables created by Migrate; a fresh database has
	// none yet, so preparation failures are left to surface at query time.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			_, _ = conn.Prepare(ctx, name, sql)
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS building_profiles (
	bbl                      TEXT PRIMARY KEY,
	address                  TEXT NOT NULL DEFAULT '',
	zip_code                 TEXT NOT NULL DEFAULT '',
	borough                  TEXT NOT NULL DEFAULT '',
	size_sqft                DOUBLE PRECISION,
	office_sqft              DOUBLE PRECISION,
	floors                   INTEGER,
	year_built               INTEGER,
	owner                    TEXT NOT NULL DEFAULT '',
	owner_type               TEXT NOT NULL DEFAULT '',
	building_class           TEXT NOT NULL DEFAULT '',
	site_eui                 DOUBLE PRECISION,
	energy_star_score        DOUBLE PRECISION,
	target_energy_star_score DOUBLE PRECISION,
	occupancy_percent        DOUBLE PRECISION,
	peak_demand_kw           DOUBLE PRECISION,
	active_meters            INTEGER,
	energy_via_proxy         BOOLEAN NOT NULL DEFAULT FALSE,
	has_vav                  BOOLEAN,
	has_dcv                  BOOLEAN,
	has_bms                  BOOLEAN,
	has_bms_text             TEXT,
	hvac_type                TEXT,
	dcv_status               TEXT,
	energy_grade             TEXT,
	load_id                  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_profiles_size ON building_profiles(size_sqft);
CREATE INDEX IF NOT EXISTS idx_profiles_occupancy ON building_profiles(occupancy_percent);
CREATE INDEX IF NOT EXISTS idx_profiles_grade ON building_profiles(energy_grade);

CREATE TABLE IF NOT EXISTS load_runs (
	id              TEXT PRIMARY KEY,
	loaded_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	profile_count   INTEGER NOT NULL,
	missing_sources TEXT NOT NULL DEFAULT '',
	detail          JSONB
);

CREATE INDEX IF NOT EXISTS idx_load_runs_loaded_at ON load_runs(loaded_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ReplaceProfiles(ctx context.Context, profiles []model.BuildingProfile, run LoadRun) (*LoadRun, error) {
	run.ID = uuid.New().String()
	run.LoadedAt = time.Now().UTC()
	run.ProfileCount = len(profiles)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin replace")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM building_profiles`); err != nil {
		return nil, eris.Wrap(err, "postgres: clear profiles")
	}

	cols := append(append([]string{}, profileColumns...), "load_id")
	rows := make([][]any, len(profiles))
	for i := range profiles {
		rows[i] = append(profileValues(&profiles[i]), run.ID)
	}
	if _, err := db.CopyFrom(ctx, tx, "building_profiles", cols, rows); err != nil {
		return nil, eris.Wrap(err, "postgres: copy profiles")
	}

	var detail []byte
	if len(run.Detail) > 0 {
		detail = run.Detail
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO load_runs (id, loaded_at, profile_count, missing_sources, detail) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.LoadedAt, run.ProfileCount, strings.Join(run.MissingSources, ","), detail,
	); err != nil {
		return nil, eris.Wrap(err, "postgres: insert load run")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit replace")
	}
	return &run, nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, bbl string) (*model.BuildingProfile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx, selectProfile+` WHERE bbl = $1`, bbl))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get profile %s", bbl)
	}
	return p, nil
}

func (s *PostgresStore) SearchProfiles(ctx context.Context, f Filter) ([]model.BuildingProfile, error) {
	q, args := buildSearch(f, postgresDialect)
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search profiles")
	}
	defer rows.Close()

	var out []model.BuildingProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan profile")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate profiles")
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	st, err := scanStats(s.pool.QueryRow(ctx, statsQuery(postgresDialect)))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats")
	}
	return st, nil
}

func (s *PostgresStore) LastLoad(ctx context.Context) (*LoadRun, error) {
	var (
		run     LoadRun
		missing string
		detail  []byte
	)
	err := s.pool.QueryRow(ctx, lastLoadQuery).
		Scan(&run.ID, &run.LoadedAt, &run.ProfileCount, &missing, &detail)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: last load")
	}
	run.MissingSources = splitList(missing)
	if len(detail) > 0 {
		run.Detail = detail
	}
	return &run, nil
}
