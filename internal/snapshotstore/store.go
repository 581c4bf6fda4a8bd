// Package snapshotstore is a sqlite-backed blob store for exported
// manifold snapshots, keyed by name. The manifold engine itself never
// touches sqlite — this package is the persistence collaborator a caller
// wires in around it.
package snapshotstore

import (
	"bytes"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/manifold-labs/manifold/internal/manifold"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a sqlite database at dsn and runs
// any unapplied migrations.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	// manifoldctl invocations are short-lived, independent processes that
	// share one sqlite file (no long-lived daemon holding the handle), so
	// WAL-mode writer contention is routine rather than exceptional; give
	// a busy connection room to wait instead of failing fast.
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		var applied int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", f).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", f, err)
		}
		if applied > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for %s: %w", f, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", f); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", f, err)
		}
	}
	return nil
}

// Save exports s, along with its blake2b integrity digest, and upserts
// the pair under name.
func (store *Store) Save(name string, s *manifold.System) error {
	data, digest, err := s.ExportWithDigest()
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	stats := s.Stats()
	_, err = store.db.Exec(`
		INSERT INTO snapshots (name, data, digest, rng_seed, doc_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, digest = excluded.digest, rng_seed = excluded.rng_seed, doc_count = excluded.doc_count, created_at = CURRENT_TIMESTAMP
	`, name, data, digest[:], s.RNGSeed(), stats.DocCount)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", name, err)
	}
	return nil
}

// Load reads the snapshot stored under name, verifies it against its
// stored digest before touching the JSON parser, and rebuilds a System
// from it.
func (store *Store) Load(name string) (*manifold.System, error) {
	var data, storedDigest []byte
	err := store.db.QueryRow("SELECT data, digest FROM snapshots WHERE name = ?", name).Scan(&data, &storedDigest)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot %s: %w", name, manifold.ErrUnknownEntity)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", name, err)
	}

	digest := manifold.SnapshotDigest(data)
	if !bytes.Equal(digest[:], storedDigest) {
		return nil, fmt.Errorf("snapshot %s: %w: digest mismatch", name, manifold.ErrCorruptState)
	}
	return manifold.ImportSnapshot(data)
}

// List returns the names of every stored snapshot, most recently saved
// first.
func (store *Store) List() ([]string, error) {
	rows, err := store.db.Query("SELECT name FROM snapshots ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan snapshot name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes the snapshot stored under name, if any.
func (store *Store) Delete(name string) error {
	_, err := store.db.Exec("DELETE FROM snapshots WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", name, err)
	}
	return nil
}
