package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const optimizeInterval = time.Hour

// runOptimizer runs PRAGMA optimize on start and then every optimizeInterval until ctx is done.
// See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) runOptimizer(ctx context.Context) {
	// 0x10002 analyzes tables that have never been analyzed, which is what a fresh connection needs.
	db.optimize(ctx, "PRAGMA optimize = 0x10002;")
	ticker := time.NewTicker(optimizeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			db.optimize(ctx, "PRAGMA optimize;")
		}
	}
}

func (db *Database) optimize(ctx context.Context, pragma string) {
	start := time.Now()
	if _, err := db.ReadWrite.ExecContext(ctx, pragma); err != nil {
		if ctx.Err() != nil {
			return
		}
		err = fmt.Errorf("optimize database: %w", err)
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database", slog.Any("error", err))
		return
	}
	db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database", slog.Duration("duration", time.Since(start)))
}
