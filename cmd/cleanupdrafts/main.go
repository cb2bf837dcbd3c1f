// Command cleanupdrafts deletes every draft plan that is not the newest draft of its user and week.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fitorfail/fitorfail/internal/envstruct"
	"github.com/fitorfail/fitorfail/internal/errors"
	"github.com/fitorfail/fitorfail/internal/logging"
	"github.com/fitorfail/fitorfail/internal/planner"
	"github.com/fitorfail/fitorfail/internal/sqlite"
)

type config struct {
	// SqliteURL is the URL to the SQLite database to clean up.
	SqliteURL string `env:"FITORFAIL_SQLITE_URL" envDefault:"./fitorfail.sqlite3"`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) (err error) {
	var cancel context.CancelFunc
	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			err = errors.Join(err, errors.Wrap(closeErr, "close db"))
		}
	}()

	if _, err = planner.NewService(db, logger).PurgeDuplicateDrafts(ctx); err != nil {
		return errors.Wrap(err, "purge duplicate drafts")
	}
	return nil
}

func main() {
	ctx := context.Background()
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelInfo,
		ReplaceAttr: nil,
	})))
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure cleaning up drafts", errors.SlogError(err))
		os.Exit(1)
	}
}
