package store

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/matheus3301/waforensic/internal/store/migrations"
)

// SchemaVersion is the archive schema this build writes: 1 holds the
// extracted entities, 2 adds runs, the evidence ledger and custody events.
const SchemaVersion uint = 2

// migrationsTable records applied archive migrations.
const migrationsTable = "archive_migrations"

var (
	// ErrArchiveDirty is returned when a previous migration stopped halfway.
	// The archive is left untouched for the examiner to inspect.
	ErrArchiveDirty = errors.New("archive schema is dirty")
	// ErrArchiveTooNew is returned for archives written by a newer build.
	ErrArchiveTooNew = errors.New("archive schema is newer than this build")
)

// MigrateResult describes what happened during migration.
type MigrateResult struct {
	Previous uint
	Version  uint
	Changed  bool
}

// Migrate brings the case archive up to SchemaVersion. Dirty or newer
// archives are rejected before anything is applied.
func (db *DB) Migrate() (*MigrateResult, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("archive migration source: %w", err)
	}
	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return nil, fmt.Errorf("archive migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("archive migration instance: %w", err)
	}

	previous, err := archiveVersion(m)
	if err != nil {
		return nil, err
	}
	if previous > SchemaVersion {
		return nil, fmt.Errorf("%w: version %d, supported %d", ErrArchiveTooNew, previous, SchemaVersion)
	}

	if err := m.Migrate(SchemaVersion); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("archive migration to %d: %w", SchemaVersion, err)
	}
	version, err := archiveVersion(m)
	if err != nil {
		return nil, err
	}
	return &MigrateResult{Previous: previous, Version: version, Changed: version != previous}, nil
}

// archiveVersion returns the applied version, zero for a fresh archive.
func archiveVersion(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("archive migration version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("%w at version %d", ErrArchiveDirty, version)
	}
	return version, nil
}
