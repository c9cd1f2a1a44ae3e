package sonardb

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Schema migrations. The inline schema in NewDB and the migration files
// describe the same tables; migrations exist so a deployed database can
// be walked between schema versions without dropping recorded swaths.

// RunMigration executes one migration command against the database:
// "up", "down", "version", "force=N" or "to=N". It is the dispatch
// surface for the -migrate CLI flag.
func (db *DB) RunMigration(command, migrationsDir string) error {
	switch {
	case command == "up":
		return db.MigrateUp(migrationsDir)
	case command == "down":
		return db.MigrateDown(migrationsDir)
	case command == "version":
		version, dirty, err := db.MigrateVersion(migrationsDir)
		if err != nil {
			return err
		}
		state := "clean"
		if dirty {
			state = "dirty"
		}
		log.Printf("Schema version %d (%s)", version, state)
		return nil
	case strings.HasPrefix(command, "force="):
		v, err := strconv.Atoi(strings.TrimPrefix(command, "force="))
		if err != nil {
			return fmt.Errorf("invalid force version %q: %w", command, err)
		}
		return db.MigrateForce(migrationsDir, v)
	case strings.HasPrefix(command, "to="):
		v, err := strconv.ParseUint(strings.TrimPrefix(command, "to="), 10, 32)
		if err != nil {
			return fmt.Errorf("invalid target version %q: %w", command, err)
		}
		return db.MigrateTo(migrationsDir, uint(v))
	}
	return fmt.Errorf("unknown migration command %q (want up, down, version, force=N or to=N)", command)
}

// MigrateUp applies all pending migrations. A database already at the
// latest version is not an error.
func (db *DB) MigrateUp(migrationsDir string) error {
	m, err := db.newMigrate(migrationsDir)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func (db *DB) MigrateDown(migrationsDir string) error {
	m, err := db.newMigrate(migrationsDir)
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// MigrateVersion reports the applied schema version and dirty state;
// a never-migrated database reports version 0.
func (db *DB) MigrateVersion(migrationsDir string) (version uint, dirty bool, err error) {
	m, err := db.newMigrate(migrationsDir)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// MigrateForce overwrites the recorded version without running any
// migration SQL. Recovery tool for a dirty state, nothing else.
func (db *DB) MigrateForce(migrationsDir string, version int) error {
	m, err := db.newMigrate(migrationsDir)
	if err != nil {
		return err
	}
	if err := m.Force(version); err != nil {
		return fmt.Errorf("force migration to version %d failed: %w", version, err)
	}
	return nil
}

// MigrateTo walks the schema up or down to an exact version.
func (db *DB) MigrateTo(migrationsDir string, version uint) error {
	m, err := db.newMigrate(migrationsDir)
	if err != nil {
		return err
	}
	if err := m.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration to version %d failed: %w", version, err)
	}
	return nil
}

// newMigrate builds a migrate instance over the open connection. The
// instance is never closed: closing it would close the shared *sql.DB.
func (db *DB) newMigrate(migrationsDir string) (*migrate.Migrate, error) {
	absPath, err := filepath.Abs(migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("resolving migrations dir: %w", err)
	}

	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("creating sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+absPath, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("creating migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

// migrateLogger routes golang-migrate output through the standard log.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }
