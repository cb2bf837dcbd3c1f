package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// migrateTo makes the live schema match schemaDefinition.
//
// The migration is declarative: schemaDefinition is applied to an empty attached database and the two
// sqlite_schema tables are diffed. Removed tables are dropped, new tables created, and changed tables rebuilt
// with the generalized ALTER TABLE procedure https://www.sqlite.org/lang_altertable.html#otheralter.
// Indexes and triggers are then synchronised. Inspired by
// https://david.rothlis.net/declarative-schema-migration-for-sqlite/.
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) (err error) {
	start := time.Now()

	detach, err := db.attachSchemaTarget(ctx, schemaDefinition)
	if err != nil {
		return fmt.Errorf("attach schema target: %w", err)
	}
	defer detach()

	// Foreign keys cannot be toggled inside a transaction.
	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() {
		if _, fkErr := db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = ON"); fkErr != nil {
			err = errors.Join(err, fmt.Errorf("re-enable foreign keys: %w", fkErr))
		}
	}()

	tx, err := db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback transaction: %w", rollbackErr))
		}
	}()

	m := migration{tx: tx, logger: db.logger}
	if err = m.tables(ctx); err != nil {
		return fmt.Errorf("migrate tables: %w", err)
	}
	for _, typ := range []string{"trigger", "index"} {
		if err = m.entities(ctx, typ); err != nil {
			return fmt.Errorf("migrate %ss: %w", typ, err)
		}
	}

	var violations []string
	if violations, err = m.strings(ctx, `SELECT "table" FROM pragma_foreign_key_check`); err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	if len(violations) > 0 {
		return fmt.Errorf("foreign key violations in tables: %s", strings.Join(violations, ", "))
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrated database", slog.Duration("duration", time.Since(start)))
	return nil
}

// attachSchemaTarget attaches an in-memory database named schemaTarget holding schemaDefinition.
// The returned function detaches it.
func (db *Database) attachSchemaTarget(ctx context.Context, schemaDefinition string) (func(), error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", rand.Text())
	target, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open schema target: %w", err)
	}
	// The shared cache keeps the database alive while it is attached, so the handle can be closed afterwards.
	defer func() {
		if closeErr := target.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close schema target", slog.Any("error", closeErr))
		}
	}()
	if _, err = target.ExecContext(ctx, schemaDefinition); err != nil {
		return nil, fmt.Errorf("apply schema to target: %w", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget", dsn); err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	return func() {
		if _, detachErr := db.ReadWrite.ExecContext(ctx, "DETACH DATABASE schemaTarget"); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to detach schema target", slog.Any("error", detachErr))
		}
	}, nil
}

type migration struct {
	tx     *sql.Tx
	logger *slog.Logger
}

type schemaEntity struct {
	name    string
	liveSQL string
	newSQL  string
}

const (
	// Entities only in the live schema.
	removedEntitiesQuery = `SELECT live.name
FROM sqlite_schema AS live
         LEFT JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
WHERE live.type = ? AND target.type IS NULL AND live.name NOT LIKE 'sqlite_%'`
	// Entities only in the target schema.
	addedEntitiesQuery = `SELECT target.sql
FROM schemaTarget.sqlite_schema AS target
         LEFT JOIN sqlite_schema AS live ON live.name = target.name AND live.type = target.type
WHERE target.type = ? AND live.type IS NULL AND target.name NOT LIKE 'sqlite_%'`
	// Entities in both schemas with differing definitions. Renames add quotes around table names, so quotes
	// are ignored in the comparison.
	changedEntitiesQuery = `SELECT live.name, live.sql, target.sql
FROM sqlite_schema AS live
         JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
WHERE live.type = ? AND live.name NOT LIKE 'sqlite_%'
  AND REPLACE(live.sql, '"', '') <> REPLACE(target.sql, '"', '')`
)

func (m migration) tables(ctx context.Context) error {
	removed, err := m.strings(ctx, removedEntitiesQuery, "table")
	if err != nil {
		return fmt.Errorf("query removed tables: %w", err)
	}
	for _, name := range removed {
		if err = m.exec(ctx, "dropping table", fmt.Sprintf("DROP TABLE %s", name)); err != nil {
			return err
		}
	}

	added, err := m.strings(ctx, addedEntitiesQuery, "table")
	if err != nil {
		return fmt.Errorf("query added tables: %w", err)
	}
	for _, createSQL := range added {
		if err = m.exec(ctx, "creating table", createSQL); err != nil {
			return err
		}
	}

	changed, err := m.changed(ctx, "table")
	if err != nil {
		return fmt.Errorf("query changed tables: %w", err)
	}
	for _, table := range changed {
		if err = m.rebuildTable(ctx, table); err != nil {
			return fmt.Errorf("rebuild table %s: %w", table.name, err)
		}
	}
	return nil
}

// rebuildTable creates the new definition under a temporary name, copies the shared columns, and swaps it in.
func (m migration) rebuildTable(ctx context.Context, table schemaEntity) error {
	m.logger.LogAttrs(ctx, slog.LevelInfo, "rebuilding table",
		slog.String("table", table.name),
		slog.String("live_sql", table.liveSQL),
		slog.String("new_sql", table.newSQL))

	tempName := table.name + "_migration_temp"
	if err := m.exec(ctx, "creating temporary table",
		strings.Replace(table.newSQL, table.name, tempName, 1)); err != nil {
		return err
	}

	// Quoted so that column names colliding with keywords survive.
	columns, err := m.strings(ctx, `SELECT '"' || target.name || '"'
FROM pragma_table_info(:table) AS live
         JOIN pragma_table_info(:table, 'schemaTarget') AS target ON target.name = live.name`,
		sql.Named("table", table.name))
	if err != nil {
		return fmt.Errorf("query common columns: %w", err)
	}
	common := strings.Join(columns, ", ")

	steps := []struct{ msg, query string }{
		{"copying rows", fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", tempName, common, common, table.name)},
		{"dropping old table", fmt.Sprintf("DROP TABLE %s", table.name)},
		{"renaming table", fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tempName, table.name)},
	}
	for _, step := range steps {
		if err = m.exec(ctx, step.msg, step.query); err != nil {
			return err
		}
	}
	return nil
}

// entities synchronises indexes or triggers. Changed ones are dropped and recreated.
func (m migration) entities(ctx context.Context, typ string) error {
	removed, err := m.strings(ctx, removedEntitiesQuery, typ)
	if err != nil {
		return fmt.Errorf("query removed: %w", err)
	}
	for _, name := range removed {
		if err = m.exec(ctx, "dropping "+typ, fmt.Sprintf("DROP %s %s", strings.ToUpper(typ), name)); err != nil {
			return err
		}
	}

	added, err := m.strings(ctx, addedEntitiesQuery, typ)
	if err != nil {
		return fmt.Errorf("query added: %w", err)
	}
	for _, createSQL := range added {
		if err = m.exec(ctx, "creating "+typ, createSQL); err != nil {
			return err
		}
	}

	changed, err := m.changed(ctx, typ)
	if err != nil {
		return fmt.Errorf("query changed: %w", err)
	}
	for _, entity := range changed {
		if err = m.exec(ctx, "dropping changed "+typ,
			fmt.Sprintf("DROP %s %s", strings.ToUpper(typ), entity.name)); err != nil {
			return err
		}
		if err = m.exec(ctx, "recreating changed "+typ, entity.newSQL); err != nil {
			return err
		}
	}
	return nil
}

func (m migration) exec(ctx context.Context, msg string, query string) error {
	m.logger.LogAttrs(ctx, slog.LevelInfo, msg, slog.String("query", query))
	if _, err := m.tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return nil
}

// strings returns the single string column produced by query.
func (m migration) strings(ctx context.Context, query string, args ...any) (_ []string, err error) {
	rows, err := m.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()
	var results []string
	for rows.Next() {
		var s string
		if err = rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		results = append(results, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return results, nil
}

func (m migration) changed(ctx context.Context, typ string) (_ []schemaEntity, err error) {
	rows, err := m.tx.QueryContext(ctx, changedEntitiesQuery, typ)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()
	var results []schemaEntity
	for rows.Next() {
		var e schemaEntity
		if err = rows.Scan(&e.name, &e.liveSQL, &e.newSQL); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		results = append(results, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return results, nil
}
