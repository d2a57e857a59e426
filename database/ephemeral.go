package database

import (
	"fmt"
	"io"
	"os"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
)

const ephemeralPort = 54329

// EphemeralDB is a PostgreSQL database that lives only as long as the
// process. Close stops the server and removes its files.
type EphemeralDB struct {
	*SQLDB
	server  *embeddedpostgres.EmbeddedPostgres
	runtime string
}

// SetupEphemeralPostgresDatabase starts an embedded PostgreSQL and connects to it
func SetupEphemeralPostgresDatabase() (*EphemeralDB, error) {
	runtime, err := os.MkdirTemp("", "goiiif-postgres-")
	if err != nil {
		return nil, fmt.Errorf("creating runtime directory: %w", err)
	}
	server := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		Port(ephemeralPort).
		Database("goiiif").
		RuntimePath(runtime).
		DataPath(runtime + "/data").
		Logger(io.Discard))
	Logger.Info("Starting embedded PostgreSQL", "port", ephemeralPort, "runtime", runtime)
	if err := server.Start(); err != nil {
		os.RemoveAll(runtime)
		return nil, fmt.Errorf("starting embedded postgres: %w", err)
	}
	dsn := fmt.Sprintf("host=localhost port=%d user=postgres password=postgres dbname=goiiif sslmode=disable", ephemeralPort)
	db, err := SetupPostgresDatabase(dsn)
	if err != nil {
		server.Stop()
		os.RemoveAll(runtime)
		return nil, err
	}
	return &EphemeralDB{SQLDB: db, server: server, runtime: runtime}, nil
}

// Close closes the connection, stops the server and deletes its data
func (e *EphemeralDB) Close() error {
	closeErr := e.SQLDB.Close()
	if err := e.server.Stop(); err != nil {
		Logger.Error("Failed to stop embedded postgres", "error", err)
	}
	if err := os.RemoveAll(e.runtime); err != nil {
		Logger.Warn("Failed to remove embedded postgres files", "path", e.runtime, "error", err)
	}
	return closeErr
}
