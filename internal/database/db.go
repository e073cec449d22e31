// Package database provides SQLite-backed persistence for Guardian's
// mutable state: blocklist sources, custom DNS rules, threat-intel
// feeds and indicators, firewall rules, rogue-device rules, the alert
// log, and the periodic query-stats rollup. Runtime lookup structures
// (blocklist.Store's trie, rules.Store's index, threat.Store's
// indicator table, firewall.Store) are in-memory and are seeded from
// these tables at startup via each package's Load method.
package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // pure-Go driver, no cgo
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// WAL keeps the DNS data plane's stat flushes from blocking API reads;
// the busy timeout covers the brief write locks WAL still takes.
const dsnOptions = "_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"

// DB wraps the SQLite handle shared by every persistence method in
// this package.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// Open opens (creating if needed) the database at path and brings its
// schema up to date.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", fmt.Sprintf("file:%s?%s", path, dsnOptions))
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", path, err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database: migrate %s: %w", path, err)
	}
	return db, nil
}

// Close closes the underlying handle.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := sqlite.WithInstance(db.conn, &sqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// BeginTx starts a transaction for atomic multi-table operations.
func (db *DB) BeginTx() (*sql.Tx, error) {
	return db.conn.Begin()
}

// Health checks database connectivity.
func (db *DB) Health() error {
	return db.conn.Ping()
}
