package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/fmillerrzero/odcv-app/internal/model"
)

// SQLiteStore implements ProfileStore using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS building_profiles (
	bbl                      TEXT PRIMARY KEY,
	address                  TEXT NOT NULL DEFAULT '',
	zip_code                 TEXT NOT NULL DEFAULT '',
	borough                  TEXT NOT NULL DEFAULT '',
	size_sqft                REAL,
	office_sqft              REAL,
	floors                   INTEGER,
	year_built               INTEGER,
	owner                    TEXT NOT NULL DEFAULT '',
	owner_type               TEXT NOT NULL DEFAULT '',
	building_class           TEXT NOT NULL DEFAULT '',
	site_eui                 REAL,
	energy_star_score        REAL,
	target_energy_star_score REAL,
	occupancy_percent        REAL,
	peak_demand_kw           REAL,
	active_meters            INTEGER,
	energy_via_proxy         INTEGER NOT NULL DEFAULT 0,
	has_vav                  INTEGER,
	has_dcv                  INTEGER,
	has_bms                  INTEGER,
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
	loaded_at       DATETIME NOT NULL,
	profile_count   INTEGER NOT NULL,
	missing_sources TEXT NOT NULL DEFAULT '',
	detail          TEXT
);

CREATE INDEX IF NOT EXISTS idx_load_runs_loaded_at ON load_runs(loaded_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReplaceProfiles(ctx context.Context, profiles []model.BuildingProfile, run LoadRun) (*LoadRun, error) {
	run.ID = uuid.New().String()
	run.LoadedAt = time.Now().UTC()
	run.ProfileCount = len(profiles)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin replace")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM building_profiles`); err != nil {
		return nil, eris.Wrap(err, "sqlite: clear profiles")
	}

	cols := append(append([]string{}, profileColumns...), "load_id")
	insert := "INSERT INTO building_profiles (" + strings.Join(cols, ", ") +
		") VALUES (" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	for i := range profiles {
		args := append(profileValues(&profiles[i]), run.ID)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert profile %s", profiles[i].BBL)
		}
	}

	var detail *string
	if len(run.Detail) > 0 {
		d := string(run.Detail)
		detail = &d
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO load_runs (id, loaded_at, profile_count, missing_sources, detail) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.LoadedAt, run.ProfileCount, strings.Join(run.MissingSources, ","), detail,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: insert load run")
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit replace")
	}
	return &run, nil
}

func (s *SQLiteStore) GetProfile(ctx context.Context, bbl string) (*model.BuildingProfile, error) {
	row := s.db.QueryRowContext(ctx, selectProfile+` WHERE bbl = ?`, bbl)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get profile %s", bbl)
	}
	return p, nil
}

func (s *SQLiteStore) SearchProfiles(ctx context.Context, f Filter) ([]model.BuildingProfile, error) {
	q, args := buildSearch(f, sqliteDialect)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search profiles")
	}
	defer rows.Close()

	var out []model.BuildingProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan profile")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate profiles")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	row := s.db.QueryRowContext(ctx, statsQuery(sqliteDialect))
	st, err := scanStats(row)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats")
	}
	return st, nil
}

func (s *SQLiteStore) LastLoad(ctx context.Context) (*LoadRun, error) {
	var (
		run     LoadRun
		missing string
		detail  *string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, loaded_at, profile_count, missing_sources, detail FROM load_runs ORDER BY loaded_at DESC, rowid DESC LIMIT 1`,
	).Scan(&run.ID, &run.LoadedAt, &run.ProfileCount, &missing, &detail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last load")
	}
	run.MissingSources = splitList(missing)
	if detail != nil {
		run.Detail = []byte(*detail)
	}
	return &run, nil
}
