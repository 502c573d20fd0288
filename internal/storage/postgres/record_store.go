// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/manager-records-crawler/internal/crawler"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const (
	defaultRecordsTable  = "matchup_records"
	defaultManagersTable = "season_managers"
)

// Config controls the Postgres connection pool and target tables.
type Config struct {
	DSN             string
	RecordsTable    string
	ManagersTable   string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// RecordStore writes matchup records and season manager rows into Postgres,
// tagging each row with the run that produced it.
type RecordStore struct {
	pool          execCloser
	runID         string
	recordsTable  string
	managersTable string
}

// NewRecordStore connects to Postgres using the provided config.
func NewRecordStore(ctx context.Context, cfg Config, runID string) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if err := validateTables(&cfg); err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RecordStore{
		pool:          pool,
		runID:         runID,
		recordsTable:  cfg.RecordsTable,
		managersTable: cfg.ManagersTable,
	}, nil
}

// NewRecordStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecordStoreWithPool(pool execCloser, cfg Config, runID string) (*RecordStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if err := validateTables(&cfg); err != nil {
		return nil, err
	}
	return &RecordStore{
		pool:          pool,
		runID:         runID,
		recordsTable:  cfg.RecordsTable,
		managersTable: cfg.ManagersTable,
	}, nil
}

func validateTables(cfg *Config) error {
	if cfg.RecordsTable == "" {
		cfg.RecordsTable = defaultRecordsTable
	}
	if cfg.ManagersTable == "" {
		cfg.ManagersTable = defaultManagersTable
	}
	for _, table := range []string{cfg.RecordsTable, cfg.ManagersTable} {
		if !validTableName.MatchString(table) {
			return fmt.Errorf("invalid table name %q", table)
		}
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the target tables when they do not exist.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	run_id      TEXT    NOT NULL,
	id          TEXT    NOT NULL,
	name        TEXT    NOT NULL,
	target_id   TEXT    NOT NULL,
	target_name TEXT    NOT NULL,
	matches     INTEGER NOT NULL,
	wins        INTEGER NOT NULL,
	draws       INTEGER NOT NULL,
	losses      INTEGER NOT NULL,
	PRIMARY KEY (run_id, id, target_id)
)`, s.recordsTable),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	run_id     TEXT    NOT NULL,
	season     INTEGER NOT NULL,
	manager    TEXT    NOT NULL,
	identifier TEXT    NOT NULL,
	club       TEXT    NOT NULL,
	PRIMARY KEY (run_id, season, identifier)
)`, s.managersTable),
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// WriteRecord inserts one matchup record.
func (s *RecordStore) WriteRecord(ctx context.Context, rec crawler.MatchupRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("record store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	id,
	name,
	target_id,
	target_name,
	matches,
	wins,
	draws,
	losses
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9
)`, s.recordsTable)

	args := []any{
		s.runID,
		string(rec.ID),
		rec.Name,
		string(rec.TargetID),
		rec.TargetName,
		rec.Matches,
		rec.Wins,
		rec.Draws,
		rec.Losses,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert matchup record %s->%s: %w", rec.ID, rec.TargetID, err)
	}
	return nil
}

// WriteManager inserts one season manager row.
func (s *RecordStore) WriteManager(ctx context.Context, row crawler.ManagerRow) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("record store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	season,
	manager,
	identifier,
	club
) VALUES (
	$1,$2,$3,$4,$5
)`, s.managersTable)

	if _, err := s.pool.Exec(ctx, query, s.runID, row.Season, row.Manager, string(row.Identifier), row.Club); err != nil {
		return fmt.Errorf("insert season manager %d/%s: %w", row.Season, row.Identifier, err)
	}
	return nil
}
