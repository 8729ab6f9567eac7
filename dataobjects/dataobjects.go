package dataobjects

import (
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gbl08ma/sqalx"
	"github.com/jmoiron/sqlx"

	// database drivers for the two supported backends
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Backend identifies the storage engine behind a Store
type Backend int

const (
	// SQLite is the embedded, file-based backend
	SQLite Backend = iota
	// Postgres is the networked backend
	Postgres
)

// DefaultSQLitePath is the database file used when no networked backend is configured
const DefaultSQLitePath = "departures.sqlite3"

// capturedAtLayout is the textual form of captured_at shared by both backends
const capturedAtLayout = "2006-01-02 15:04:05"

const (
	// DefaultQueryLimit is used when a query is issued without a positive limit
	DefaultQueryLimit = 50
	// MaxQueryLimit caps every read query
	MaxQueryLimit = 100
)

func (b Backend) String() string {
	switch b {
	case Postgres:
		return "postgres"
	default:
		return "sqlite"
	}
}

func (b Backend) driverName() string {
	if b == Postgres {
		return "postgres"
	}
	return "sqlite3"
}

func (b Backend) placeholderFormat() sq.PlaceholderFormat {
	if b == Postgres {
		return sq.Dollar
	}
	return sq.Question
}

// capturedAtText returns an expression yielding captured_at in capturedAtLayout form.
// Postgres stores a real timestamp, SQLite stores the text itself.
func (b Backend) capturedAtText() string {
	if b == Postgres {
		return "to_char(captured_at, 'YYYY-MM-DD HH24:MI:SS')"
	}
	return "captured_at"
}

// capturedAtValue converts a batch timestamp into the value bound for the captured_at column
func (b Backend) capturedAtValue(t time.Time) interface{} {
	// both columns hold wall clock time without a zone, read back as time.Local
	t = t.In(time.Local)
	if b == Postgres {
		return t.Truncate(time.Second)
	}
	return t.Format(capturedAtLayout)
}

// insertionOrder is the column that preserves insertion order among rows of the same batch
func (b Backend) insertionOrder() string {
	if b == Postgres {
		return "id"
	}
	return "rowid"
}

// StoreConfig selects and configures the backend of a Store.
// A non-empty DatabaseURL selects Postgres; otherwise SQLitePath is used.
type StoreConfig struct {
	DatabaseURL  string
	SQLitePath   string
	MaxOpenConns int
}

// Backend returns the backend this configuration selects
func (cfg StoreConfig) Backend() Backend {
	if cfg.DatabaseURL != "" {
		return Postgres
	}
	return SQLite
}

func (cfg StoreConfig) dataSourceName() string {
	if cfg.Backend() == Postgres {
		return cfg.DatabaseURL
	}
	path := cfg.SQLitePath
	if path == "" {
		path = DefaultSQLitePath
	}
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL"
}

// Store is the append-only departure log
type Store struct {
	db      *sqlx.DB
	node    sqalx.Node
	backend Backend
	sdb     sq.StatementBuilderType
}

// Open connects to the backend selected by cfg. The backend is fixed for the
// lifetime of the returned Store.
func Open(cfg StoreConfig) (*Store, error) {
	backend := cfg.Backend()
	db, err := sqlx.Open(backend.driverName(), cfg.dataSourceName())
	if err != nil {
		return nil, fmt.Errorf("Open: %s", err)
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: %s", err)
	}

	switch {
	case backend == SQLite && strings.Contains(cfg.dataSourceName(), ":memory:"):
		// every connection would get its own in-memory database
		db.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	// sqalx only manages savepoints on postgres, SQLite rows get explicit ones in InsertBatch
	node, err := sqalx.New(db, sqalx.SavePoint(backend == Postgres))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: %s", err)
	}

	return &Store{
		db:      db,
		node:    node,
		backend: backend,
		sdb:     sq.StatementBuilder.PlaceholderFormat(backend.placeholderFormat()),
	}, nil
}

// Backend returns the backend this Store is connected to
func (s *Store) Backend() Backend {
	return s.backend
}

// Node returns the root sqalx node of this Store
func (s *Store) Node() sqalx.Node {
	return s.node
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// ErrInvalidFilter is returned when query criteria cannot be turned into a predicate
var ErrInvalidFilter = errors.New("invalid filter")

func clampLimit(limit int) uint64 {
	switch {
	case limit <= 0:
		return DefaultQueryLimit
	case limit > MaxQueryLimit:
		return MaxQueryLimit
	}
	return uint64(limit)
}
