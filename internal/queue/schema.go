package queue

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in PRAGMA user_version and bumped whenever
// schema.sql changes shape. There are no migrations; an older database must
// be deleted and recreated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by a different schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func (s *Store) initSchema(ctx context.Context) error {
	version, initialized, err := readSchemaVersion(ctx, s.db)
	switch {
	case err != nil:
		return err
	case !initialized:
		return s.createSchema(ctx)
	case version != schemaVersion:
		return fmt.Errorf("%w: %s is at version %d, this build expects %d; delete it to start over",
			ErrSchemaMismatch, s.path, version, schemaVersion)
	}
	return nil
}

// readSchemaVersion returns user_version and whether the entries table exists.
func readSchemaVersion(ctx context.Context, db *sql.DB) (int, bool, error) {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, false, fmt.Errorf("read user_version: %w", err)
	}
	var name string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'entries'").Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return version, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("look up entries table: %w", err)
	}
	return version, true, nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}
