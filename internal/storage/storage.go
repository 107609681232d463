// Package storage persists member profiles, assistant signals and ticket briefs in SQLite.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/isero/pkg/utils"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrInvalidProfile is returned for profiles with an unknown role or trust level.
var ErrInvalidProfile = errors.New("invalid profile")

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id     INTEGER PRIMARY KEY,
	role        TEXT    NOT NULL DEFAULT 'user',
	trust       INTEGER NOT NULL DEFAULT 0,
	locale      TEXT    NOT NULL DEFAULT '',
	style       TEXT    NOT NULL DEFAULT '',
	allow_admin INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS signals (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id   INTEGER NOT NULL,
	intent    TEXT    NOT NULL,
	score     REAL    NOT NULL,
	sentiment TEXT    NOT NULL DEFAULT '',
	ts        INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS signals_user_id ON signals (user_id);

CREATE TABLE IF NOT EXISTS briefs (
	ticket_channel_id INTEGER PRIMARY KEY,
	type              TEXT    NOT NULL,
	goal              TEXT    NOT NULL DEFAULT '',
	deadline          TEXT    NOT NULL DEFAULT '',
	refs_count        INTEGER NOT NULL DEFAULT 0,
	status            TEXT    NOT NULL,
	updated_at        INTEGER NOT NULL
);
`

// Store is the SQLite-backed profile store.
// The underlying connection is not safe for concurrent use and is guarded by a mutex.
type Store struct {
	mu     sync.Mutex
	conn   *sqlite.Conn
	now    utils.Clock
	logger *zap.Logger
}

// Open opens or creates the database at path and applies the schema.
func Open(path string, now utils.Clock, logger *zap.Logger) (*Store, error) {
	if path == "" {
		path = MemoryPath
	}
	if now == nil {
		now = time.Now
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate|sqlite.OpenReadWrite|sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Info("Opened profile store", zap.String("path", path))

	return &Store{
		conn:   conn,
		now:    now,
		logger: logger.Named("storage"),
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// withConn runs fn holding the connection, interrupting queries when ctx is done.
func (s *Store) withConn(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	defer s.conn.SetInterrupt(s.conn.SetInterrupt(ctx.Done()))
	return fn(s.conn)
}

func id(v snowflake.ID) int64 {
	return int64(v)
}
