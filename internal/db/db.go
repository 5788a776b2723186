// Package db opens and migrates the SQLite-backed `.ddn` fileset file,
// enforces the single-writer invariant, and guards concurrent opens of
// the same path with an advisory lock.
package db

import (
	"database/sql"
	"embed"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/gofrs/flock"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/mnj/dupdupninja-v2/internal/scanerr"
	"github.com/mnj/dupdupninja-v2/internal/volume"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// schemaVersion is the schema version this build knows how to read and
// write. Opening a fileset whose fileset_meta.schema_version exceeds this
// fails with DbMigrate.
const schemaVersion = 1

// Store owns one connection (or connection pool) to a `.ddn` fileset
// database. A Store opened via Open holds the database's exclusive
// writer lock; one opened via OpenReadOnly holds no lock and must never
// be used to mutate the schema or its rows.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
	path string
}

// Open opens (or creates) the fileset database at path for writing:
// acquires the database's exclusive advisory lock, applies PRAGMAs, runs
// migrations, and checks the schema version. Only one Store opened this
// way may exist for a given path at a time; concurrent writers fail with
// DbLocked.
func Open(path string) (*Store, error) {
	return open(path, true)
}

// OpenReadOnly opens the fileset database at path for queries only: it
// takes no advisory lock, so any number of readers (or a reader racing an
// in-progress scan) may open it concurrently, and skips migrations since
// the schema must already exist. Writing through the returned Store
// defeats the single-writer invariant Open's exclusive lock protects.
func OpenReadOnly(path string) (*Store, error) {
	return open(path, false)
}

func open(path string, exclusive bool) (*Store, error) {
	lock := flock.New(path + ".lock")
	if exclusive {
		locked, err := lock.TryLock()
		if err != nil {
			return nil, scanerr.New("db.Open", scanerr.DbOpen, err)
		}
		if !locked {
			return nil, scanerr.New("db.Open", scanerr.DbLocked, fmt.Errorf("fileset %q is already open", path))
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		lock.Unlock()
		return nil, scanerr.New("db.Open", scanerr.DbOpen, err)
	}

	if exclusive {
		// Single writer prevents SQLITE_BUSY under WAL and matches the
		// coordinator's single-writer-thread invariant.
		sqlDB.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			lock.Unlock()
			return nil, scanerr.New("db.Open", scanerr.DbOpen, fmt.Errorf("pragma %q: %w", p, err))
		}
	}

	if exclusive {
		if err := runMigrations(sqlDB); err != nil {
			sqlDB.Close()
			lock.Unlock()
			return nil, err
		}
	}

	if err := checkSchemaVersion(sqlDB); err != nil {
		sqlDB.Close()
		lock.Unlock()
		return nil, err
	}

	return &Store{db: sqlDB, lock: lock, path: path}, nil
}

// checkSchemaVersion fails with DbMigrate when an existing fileset_meta
// row records a schema_version newer than this build knows how to read.
// A fresh database has no fileset_meta row yet — EnsureMetadata writes
// the current schemaVersion into it later in Run — so a missing row is
// not an error.
func checkSchemaVersion(sqlDB *sql.DB) error {
	var version int
	err := sqlDB.QueryRow(`SELECT schema_version FROM fileset_meta WHERE rowid = 1`).Scan(&version)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return scanerr.New("db.checkSchemaVersion", scanerr.Internal, err)
	}
	if version > schemaVersion {
		return scanerr.New("db.checkSchemaVersion", scanerr.DbMigrate,
			fmt.Errorf("fileset schema version %d is newer than this build supports (%d)", version, schemaVersion))
	}
	return nil
}

func runMigrations(sqlDB *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return scanerr.New("db.runMigrations", scanerr.DbMigrate, err)
	}
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return scanerr.New("db.runMigrations", scanerr.DbMigrate, err)
	}
	return nil
}

// DB returns the underlying *sql.DB for use by the scan writer and query
// engine.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection and the advisory lock.
func (s *Store) Close() error {
	dbErr := s.db.Close()
	lockErr := s.lock.Unlock()
	if dbErr != nil {
		return dbErr
	}
	return lockErr
}

// Metadata mirrors the fileset_meta singleton row, plus supplemental
// drive/host columns this implementation adds beyond the core name,
// description, notes, and status fields.
type Metadata struct {
	Name          string
	Description   string
	Notes         string
	Status        string
	SchemaVersion int
	RootKind      string
	DriveID       string
	DriveLabel    string
	DriveFSType   string
	HostOS        string
	HostOSVersion string
}

// EnsureMetadata creates the fileset_meta row if absent, deriving a
// default name from rootPath's base name and populating drive/host
// metadata via internal/volume. It is a no-op if the row already exists.
func (s *Store) EnsureMetadata(rootPath string, rootIsMount bool) error {
	var exists int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM fileset_meta WHERE rowid = 1`).Scan(&exists)
	if err != nil {
		return scanerr.New("db.EnsureMetadata", scanerr.Internal, err)
	}
	if exists > 0 {
		return nil
	}

	rootKind := "folder"
	if rootIsMount {
		rootKind = "drive"
	}
	drive := volume.ProbeForPath(rootPath)
	name := filepath.Base(filepath.Clean(rootPath))

	_, err = s.db.Exec(`
		INSERT INTO fileset_meta
			(rowid, name, description, notes, status, schema_version,
			 root_kind, drive_id, drive_label, drive_fs_type, host_os, host_os_version)
		VALUES (1, ?, '', '', 'active', ?, ?, ?, ?, ?, ?, ?)`,
		name, schemaVersion, rootKind, drive.ID, drive.Label, drive.FSType,
		runtime.GOOS, volume.HostOSVersion())
	if err != nil {
		return scanerr.New("db.EnsureMetadata", scanerr.Internal, err)
	}
	return nil
}

// GetMetadata reads the fileset_meta singleton row.
func (s *Store) GetMetadata() (Metadata, error) {
	var m Metadata
	err := s.db.QueryRow(`
		SELECT name, description, notes, status, schema_version,
		       root_kind, drive_id, drive_label, drive_fs_type, host_os, host_os_version
		FROM fileset_meta WHERE rowid = 1`).Scan(
		&m.Name, &m.Description, &m.Notes, &m.Status, &m.SchemaVersion,
		&m.RootKind, &m.DriveID, &m.DriveLabel, &m.DriveFSType, &m.HostOS, &m.HostOSVersion)
	if err != nil {
		return Metadata{}, scanerr.New("db.GetMetadata", scanerr.Internal, err)
	}
	if m.SchemaVersion > schemaVersion {
		return Metadata{}, scanerr.New("db.GetMetadata", scanerr.DbMigrate,
			fmt.Errorf("fileset schema version %d is newer than this build supports (%d)", m.SchemaVersion, schemaVersion))
	}
	return m, nil
}

// SetMetadata updates the mutable fileset_meta fields.
func (s *Store) SetMetadata(name, description, notes, status string) error {
	_, err := s.db.Exec(`
		UPDATE fileset_meta SET name = ?, description = ?, notes = ?, status = ? WHERE rowid = 1`,
		name, description, notes, status)
	if err != nil {
		return scanerr.New("db.SetMetadata", scanerr.Internal, err)
	}
	return nil
}

// DeleteFileByPath removes the file row at path (and its image_hash/
// snapshot children via ON DELETE CASCADE). It is a no-op if no row
// matches.
func (s *Store) DeleteFileByPath(path string) error {
	_, err := s.db.Exec(`DELETE FROM file WHERE path = ?`, path)
	if err != nil {
		return scanerr.New("db.DeleteFileByPath", scanerr.Internal, err)
	}
	return nil
}

