// Package sqlite owns the SQLite connections, the declarative schema, and the exercise catalog fixtures.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	_ "embed"
)

//go:embed schema.sql
var schemaDefinition string

//go:embed fixtures.sql
var fixtures string

// Database holds a single-connection writer and a pool of query-only readers over the same file.
type Database struct {
	ReadWrite *sql.DB
	ReadOnly  *sql.DB
	logger    *slog.Logger

	stopOptimizer context.CancelFunc
	optimizerDone chan struct{}
}

// NewDatabase connects to the database at url, migrates it to schema.sql, and upserts the catalog fixtures.
//
// url is a file path or ":memory:". Each in-memory database gets a unique name so that parallel tests stay
// isolated while the reader and writer still share the data.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	db, err := connect(ctx, url, logger)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err = db.migrateTo(ctx, schemaDefinition); err != nil {
		return nil, errors.Join(fmt.Errorf("migrate: %w", err), db.Close())
	}

	start := time.Now()
	if _, err = db.ReadWrite.ExecContext(ctx, fixtures); err != nil {
		return nil, errors.Join(fmt.Errorf("apply fixtures: %w", err), db.Close())
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "applied fixtures", slog.Duration("duration", time.Since(start)))

	optimizerCtx, cancel := context.WithCancel(ctx)
	db.stopOptimizer = cancel
	db.optimizerDone = make(chan struct{})
	go func() {
		defer close(db.optimizerDone)
		db.runOptimizer(optimizerCtx)
	}()

	return db, nil
}

//nolint:gochecknoglobals // the driver may only be registered once per process.
var registerDriver sync.Once

const optimizedDriver = "sqlite3optimized"

func registerOptimizedDriver() {
	sql.Register(optimizedDriver,
		&sqlite3.SQLiteDriver{
			Extensions: nil,
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				if _, err := conn.Exec(
					// Temporary tables and indices live in memory.
					"PRAGMA temp_store = memory;"+
						// Memory-mapped I/O reduces syscalls.
						"PRAGMA mmap_size = 30000000000;", nil); err != nil {
					return fmt.Errorf("exec optimization pragmas: %w", err)
				}
				return nil
			},
		})
}

func connect(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	inMemoryConfig := ""
	if strings.Contains(url, ":memory:") {
		url = rand.Text()
		inMemoryConfig = "&mode=memory&cache=shared"
	}
	commonConfig := strings.Join([]string{
		"_loc=auto",
		// Plans and their sessions are inserted within one transaction.
		"_defer_foreign_keys=1",
		"_journal_mode=wal",
		"_busy_timeout=5000",
		"_synchronous=normal",
		"_foreign_keys=on",
	}, "&")

	// Parameters without the underscore prefix are SQLite URI parameters https://www.sqlite.org/uri.html,
	// the rest are documented in https://pkg.go.dev/github.com/mattn/go-sqlite3#SQLiteDriver.Open.
	readConfig := fmt.Sprintf("file:%s?mode=ro&_txlock=deferred&_query_only=true&%s%s",
		url, commonConfig, inMemoryConfig)
	readWriteConfig := fmt.Sprintf("file:%s?mode=rwc&_txlock=immediate&%s%s", url, commonConfig, inMemoryConfig)

	registerDriver.Do(registerOptimizedDriver)

	readWriteDB, err := sql.Open(optimizedDriver, readWriteConfig)
	if err != nil {
		return nil, fmt.Errorf("open read-write database: %w", err)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "opened database", slog.String("sqlDsn", readWriteConfig))

	// A single writer serialises transactions and avoids SQLITE_BUSY.
	readWriteDB.SetMaxOpenConns(1)
	readWriteDB.SetMaxIdleConns(1)
	readWriteDB.SetConnMaxLifetime(time.Hour)
	readWriteDB.SetConnMaxIdleTime(time.Hour)

	// sql.DB is lazy and the in-memory database only exists while a connection is open.
	if err = readWriteDB.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("ping read-write database: %w", err), readWriteDB.Close())
	}

	readDB, err := sql.Open(optimizedDriver, readConfig)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open read database: %w", err), readWriteDB.Close())
	}
	const maxReadConns = 10
	readDB.SetMaxOpenConns(maxReadConns)
	readDB.SetMaxIdleConns(maxReadConns)
	readDB.SetConnMaxLifetime(time.Hour)
	readDB.SetConnMaxIdleTime(time.Hour)

	return &Database{
		ReadWrite:     readWriteDB,
		ReadOnly:      readDB,
		logger:        logger,
		stopOptimizer: nil,
		optimizerDone: nil,
	}, nil
}

// Close stops the optimizer and closes both connection pools.
func (db *Database) Close() error {
	if db.stopOptimizer != nil {
		db.stopOptimizer()
		<-db.optimizerDone
	}
	return errors.Join(db.ReadOnly.Close(), db.ReadWrite.Close())
}
