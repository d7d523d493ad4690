// Package store persists the observed network model in a sqlite file.
// Writes are field-scoped upserts: each sighting kind touches only its
// own columns, and a node row is created lazily the first time an id is
// seen in any role. The packets table keeps the most recent timestamp
// per (node, type) pair, not a full event log.
//
// The store performs no locking of its own; callers serialize access
// through the shared Env.Lock.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/meshwatch/meshwatch/state"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
    id INTEGER PRIMARY KEY,
    shortname TEXT,
    longname TEXT,
    seen INTEGER NOT NULL,
    latitude REAL,
    longitude REAL,
    role INTEGER NOT NULL DEFAULT 0,
    hardware INTEGER NOT NULL DEFAULT 0,
    tracestart INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS links (
    source INTEGER NOT NULL,
    dest INTEGER NOT NULL,
    snr REAL NOT NULL,
    seen INTEGER NOT NULL,
    PRIMARY KEY (source, dest)
);

CREATE TABLE IF NOT EXISTS packets (
    node INTEGER NOT NULL,
    type INTEGER NOT NULL,
    seen INTEGER NOT NULL,
    PRIMARY KEY (node, type)
);

CREATE INDEX IF NOT EXISTS idx_nodes_seen ON nodes (seen);
CREATE INDEX IF NOT EXISTS idx_links_seen ON links (seen);
`

type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database file and applies the
// schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertNodeIdentity records an identity sighting: names and last-seen
// only.
func (s *Store) UpsertNodeIdentity(id state.NodeID, short, long string, seen time.Time) error {
	_, err := s.db.Exec(`
        INSERT INTO nodes (id, shortname, longname, seen) VALUES (?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            shortname = excluded.shortname,
            longname = excluded.longname,
            seen = excluded.seen;`,
		int64(id), short, long, seen.Unix())
	return err
}

// UpsertNodePosition records a position sighting: coordinates and
// last-seen only.
func (s *Store) UpsertNodePosition(id state.NodeID, lat, lon float64, seen time.Time) error {
	_, err := s.db.Exec(`
        INSERT INTO nodes (id, seen, latitude, longitude) VALUES (?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            latitude = excluded.latitude,
            longitude = excluded.longitude,
            seen = excluded.seen;`,
		int64(id), seen.Unix(), lat, lon)
	return err
}

// UpsertNodeRole records a role sighting: role and hardware only; the
// last-seen timestamp is set only when the row is created.
func (s *Store) UpsertNodeRole(id state.NodeID, role, hardware int, seen time.Time) error {
	_, err := s.db.Exec(`
        INSERT INTO nodes (id, seen, role, hardware) VALUES (?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            role = excluded.role,
            hardware = excluded.hardware;`,
		int64(id), seen.Unix(), role, hardware)
	return err
}

// RecordPacket stores that node emitted a packet of the given type,
// replacing the previous occurrence of the same (node, type) pair. The
// node row is created on first sighting.
func (s *Store) RecordPacket(id state.NodeID, code state.PortCode, seen time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`INSERT OR IGNORE INTO nodes (id, seen) VALUES (?, ?);`,
		int64(id), seen.Unix()); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO packets (node, type, seen) VALUES (?, ?, ?);`,
		int64(id), int(code), seen.Unix()); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordTraceHop upserts the directed link and touches the last-seen
// timestamp of both endpoints. The first hop of a route additionally
// credits the source node as a route origin. All effects commit in one
// transaction.
func (s *Store) RecordTraceHop(source, dest state.NodeID, snr float64, firstHop bool, seen time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`INSERT OR REPLACE INTO links (source, dest, snr, seen) VALUES (?, ?, ?, ?);`,
		int64(source), int64(dest), snr, seen.Unix()); err != nil {
		return err
	}
	touch := `
        INSERT INTO nodes (id, seen) VALUES (?, ?)
        ON CONFLICT (id) DO UPDATE SET seen = excluded.seen;`
	if _, err := tx.Exec(touch, int64(source), seen.Unix()); err != nil {
		return err
	}
	if _, err := tx.Exec(touch, int64(dest), seen.Unix()); err != nil {
		return err
	}
	if firstHop {
		if _, err := tx.Exec(`UPDATE nodes SET tracestart = tracestart + 1 WHERE id = ?;`,
			int64(source)); err != nil {
			return err
		}
	}
	return tx.Commit()
}
