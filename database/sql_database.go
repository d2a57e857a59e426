package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

// SQLDB implements DBInterface for SQLite and PostgreSQL
type SQLDB struct {
	db       *sql.DB
	postgres bool
}

// SetupSQLiteDatabase opens (creating if needed) the SQLite file at dbPath
func SetupSQLiteDatabase(dbPath string) (*SQLDB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases alive and avoids
	// SQLITE_BUSY between writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}
	if err := runMigrations(driver, "sqlite"); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLDB{db: db}, nil
}

// SetupPostgresDatabase connects to PostgreSQL with the given DSN
func SetupPostgresDatabase(connString string) (*SQLDB, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}
	if err := runMigrations(driver, "postgres"); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLDB{db: db, postgres: true}, nil
}

func runMigrations(driver migratedb.Driver, dialect string) error {
	src, err := iofs.New(migrationsFS, "migrations/"+dialect)
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, dialect, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	Logger.Info("Database migrations completed successfully", "dialect", dialect)
	return nil
}

// rebind turns ? placeholders into $n for PostgreSQL
func (s *SQLDB) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the database connection
func (s *SQLDB) Close() error {
	return s.db.Close()
}

const manifestColumns = `id, remote_url, hash, label, description, attribution, thumbnail, logo, document, created_unix, updated_unix`

// SaveManifest inserts the manifest or updates the row with the same
// remote URL. On return m.ID and m.Created hold the stored values.
func (s *SQLDB) SaveManifest(m *Manifest) error {
	now := time.Now()
	if m.Created.IsZero() {
		m.Created = now
	}
	m.Updated = now
	if m.ID == "" {
		id, err := NewID(m.Created)
		if err != nil {
			return err
		}
		m.ID = id
	}
	query := s.rebind(`
		INSERT INTO manifests (` + manifestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(remote_url) DO UPDATE SET
			hash = excluded.hash,
			label = excluded.label,
			description = excluded.description,
			attribution = excluded.attribution,
			thumbnail = excluded.thumbnail,
			logo = excluded.logo,
			document = excluded.document,
			updated_unix = excluded.updated_unix
		RETURNING id, created_unix
	`)
	var created int64
	err := s.db.QueryRow(query,
		m.ID, m.RemoteURL, m.Hash, m.Label, m.Description, m.Attribution,
		m.Thumbnail, m.Logo, m.Document, m.Created.UnixMilli(), m.Updated.UnixMilli(),
	).Scan(&m.ID, &created)
	if err != nil {
		return fmt.Errorf("saving manifest %s: %w", m.RemoteURL, err)
	}
	m.Created = time.UnixMilli(created)
	return nil
}

// GetManifest retrieves a manifest by ID
func (s *SQLDB) GetManifest(id string) (*Manifest, error) {
	row := s.db.QueryRow(s.rebind(`SELECT `+manifestColumns+` FROM manifests WHERE id = ?`), id)
	return scanManifest(row)
}

// GetManifestByRemoteURL retrieves a manifest by the URL it was imported from
func (s *SQLDB) GetManifestByRemoteURL(remoteURL string) (*Manifest, error) {
	row := s.db.QueryRow(s.rebind(`SELECT `+manifestColumns+` FROM manifests WHERE remote_url = ?`), remoteURL)
	return scanManifest(row)
}

// GetManifestsByIDs retrieves the manifests with the given IDs, in the
// order of ids. Unknown IDs are skipped.
func (s *SQLDB) GetManifestsByIDs(ids []string) ([]Manifest, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.Query(s.rebind(`SELECT `+manifestColumns+` FROM manifests WHERE id IN (`+placeholders+`)`), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found, err := scanManifests(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Manifest, len(found))
	for _, m := range found {
		byID[m.ID] = m
	}
	out := make([]Manifest, 0, len(found))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// GetNewestManifests retrieves the most recently created manifests
func (s *SQLDB) GetNewestManifests(limit int) ([]Manifest, error) {
	rows, err := s.db.Query(s.rebind(`SELECT `+manifestColumns+` FROM manifests ORDER BY created_unix DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanManifests(rows)
}

// GetAllManifests retrieves all manifests
func (s *SQLDB) GetAllManifests() ([]Manifest, error) {
	rows, err := s.db.Query(`SELECT ` + manifestColumns + ` FROM manifests ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanManifests(rows)
}

// CountManifests returns the number of stored manifests
func (s *SQLDB) CountManifests() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM manifests`).Scan(&n)
	return n, err
}

// DeleteManifest deletes a manifest by ID
func (s *SQLDB) DeleteManifest(id string) error {
	res, err := s.db.Exec(s.rebind(`DELETE FROM manifests WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (Manifest, error) {
	var m Manifest
	var created, updated int64
	err := sc.Scan(&m.ID, &m.RemoteURL, &m.Hash, &m.Label, &m.Description, &m.Attribution,
		&m.Thumbnail, &m.Logo, &m.Document, &created, &updated)
	if err != nil {
		return m, err
	}
	m.Created = time.UnixMilli(created)
	m.Updated = time.UnixMilli(updated)
	return m, nil
}

func scanManifest(row *sql.Row) (*Manifest, error) {
	m, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Helper function to scan multiple manifests from rows
func scanManifests(rows *sql.Rows) ([]Manifest, error) {
	var manifests []Manifest
	for rows.Next() {
		m, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}
	return manifests, rows.Err()
}
