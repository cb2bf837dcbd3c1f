package planner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fitorfail/fitorfail/internal/sqlite"
)

const timestampFormat = "2006-01-02T15:04:05.000Z"
const dateFormat = time.DateOnly

// querier is implemented by both *sql.DB and *sql.Tx so that repositories run inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type baseRepository struct {
	q querier
}

func newBaseRepository(q querier) baseRepository {
	return baseRepository{q: q}
}

// repository bundles the aggregate repositories over one querier.
type repository struct {
	users     *sqliteUserRepository
	prefs     *sqlitePreferencesRepository
	exercises *sqliteExerciseRepository
	plans     *sqlitePlanRepository
	history   *sqliteHistoryRepository
	ratings   *sqliteRatingRepository
}

func newRepository(q querier) *repository {
	return &repository{
		users:     newSQLiteUserRepository(q),
		prefs:     newSQLitePreferencesRepository(q),
		exercises: newSQLiteExerciseRepository(q),
		plans:     newSQLitePlanRepository(q),
		history:   newSQLiteHistoryRepository(q),
		ratings:   newSQLiteRatingRepository(q),
	}
}

type repositoryFactory struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func newRepositoryFactory(db *sqlite.Database, logger *slog.Logger) repositoryFactory {
	return repositoryFactory{db: db, logger: logger}
}

// reader returns repositories over the read-only connection pool.
func (f repositoryFactory) reader() *repository {
	return newRepository(f.db.ReadOnly)
}

// update runs fn inside a read-write transaction. The transaction commits only when fn returns nil.
func (f repositoryFactory) update(ctx context.Context, fn func(repo *repository) error) (err error) {
	tx, err := f.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback transaction: %w", rollbackErr))
		}
	}()

	if err = fn(newRepository(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

func parseTimestamp(s sql.NullString) (time.Time, error) {
	if !s.Valid {
		return time.Time{}, nil
	}
	t, err := time.Parse(timestampFormat, s.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s.String, err)
	}
	return t, nil
}

func nullTimestamp(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTimestamp(t), Valid: true}
}

// splitList parses a comma-joined column value.
func splitList(s string) []string {
	var items []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func joinList(items []string) string {
	return strings.Join(items, ", ")
}

// placeholders returns n comma separated bind parameters.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// scanStrings collects a single text column.
func scanStrings(rows *sql.Rows) (_ []string, err error) {
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()
	var values []string
	for rows.Next() {
		var v string
		if err = rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		values = append(values, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return values, nil
}

func scanInts(rows *sql.Rows) (_ []int, err error) {
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()
	var values []int
	for rows.Next() {
		var v int
		if err = rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		values = append(values, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return values, nil
}
