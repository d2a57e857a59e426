package database

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// ErrNotFound is returned when no manifest matches a lookup.
var ErrNotFound = errors.New("manifest not found")

// Manifest is a stored manifest: the fields shown in lists plus the full
// document as it was fetched.
type Manifest struct {
	ID          string
	RemoteURL   string
	Hash        string
	Label       string
	Description string
	Attribution string
	Thumbnail   string
	Logo        string
	Document    []byte
	Created     time.Time
	Updated     time.Time
}

// DBInterface defines the manifest storage operations
type DBInterface interface {
	Close() error
	SaveManifest(m *Manifest) error
	GetManifest(id string) (*Manifest, error)
	GetManifestByRemoteURL(remoteURL string) (*Manifest, error)
	GetManifestsByIDs(ids []string) ([]Manifest, error)
	GetNewestManifests(limit int) ([]Manifest, error)
	GetAllManifests() ([]Manifest, error)
	CountManifests() (int, error)
	DeleteManifest(id string) error
}

// SetupDatabase opens the configured database and runs its migrations.
func SetupDatabase(dbType string, connString string) (DBInterface, error) {
	switch dbType {
	case "sqlite":
		return SetupSQLiteDatabase(connString)
	case "postgres":
		return SetupPostgresDatabase(connString)
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a new ULID string for a manifest created at t.
func NewID(t time.Time) (string, error) {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", fmt.Errorf("generating ULID: %w", err)
	}
	return id.String(), nil
}
