package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"slices"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema versions, tracked in PRAGMA user_version:
//
//	0 - runs, firings and sinks tables from schema.sql
//	1 - idx_runs_network_hash for ListRunsForNetwork
const currentSchemaVersion = 1

// migrations[i] upgrades a run log from version i to i+1.
var migrations = []func(*sql.DB) error{
	migrateToV1,
}

// pragma is a connection setting and the value PRAGMA reports once it is applied.
type pragma struct {
	name   string
	set    string
	report string
}

var pragmas = []pragma{
	{"journal_mode", "WAL", "wal"},
	{"synchronous", "NORMAL", "1"},
	{"busy_timeout", "5000", "5000"},
	{"foreign_keys", "ON", "1"},
}

// runLogColumns lists the columns every chipflow run log must carry. A file
// that has these tables without these columns was written by something else.
var runLogColumns = map[string][]string{
	"runs": {
		"id", "seq", "name", "network_hash", "network", "trace_hash",
		"watch_low", "watch_high", "observed_unit", "firings", "engine_version", "ir_version",
	},
	"firings": {"run_id", "seq", "unit", "low", "high", "low_target", "high_target"},
	"sinks":   {"run_id", "sink", "value"},
}

// Store is a chipflow run log backed by a single SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens the run log at path, creating it if needed, and brings its
// schema up to currentSchemaVersion.
//
// Open fails on a file written by a newer chipflow or on one whose runs,
// firings or sinks tables lack the run log columns.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}

	// One connection: writes are serialized and PRAGMAs stick.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying connection for ad hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

func applyPragmas(db *sql.DB) error {
	for _, p := range pragmas {
		stmt := fmt.Sprintf("PRAGMA %s = %s", p.name, p.set)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// applySchema checks the version, creates missing tables, checks their
// columns and then migrates.
func applySchema(db *sql.DB) error {
	version, err := schemaVersion(db)
	if err != nil {
		return err
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("run log schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	if err := checkColumns(db); err != nil {
		return err
	}
	return runMigrations(db, version)
}

func schemaVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func checkColumns(db *sql.DB) error {
	for _, table := range []string{"runs", "firings", "sinks"} {
		have, err := tableColumns(db, table)
		if err != nil {
			return err
		}
		for _, col := range runLogColumns[table] {
			if !slices.Contains(have, col) {
				return fmt.Errorf("not a chipflow run log: table %s has no column %s", table, col)
			}
		}
	}
	return nil
}

func tableColumns(db *sql.DB, table string) ([]string, error) {
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("columns of %s: %w", table, err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func runMigrations(db *sql.DB, from int) error {
	for v := from; v < currentSchemaVersion; v++ {
		if err := migrations[v](db); err != nil {
			return err
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// migrateToV1 indexes runs by network hash so repeated runs of one network
// can be found without a table scan.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_runs_network_hash
		ON runs(network_hash, seq)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma reports the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
