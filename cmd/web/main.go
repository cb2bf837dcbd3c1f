package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fitorfail/fitorfail/internal/envstruct"
	"github.com/fitorfail/fitorfail/internal/errors"
	"github.com/fitorfail/fitorfail/internal/logging"
	"github.com/fitorfail/fitorfail/internal/planner"
	"github.com/fitorfail/fitorfail/internal/sqlite"
	"github.com/yuin/goldmark"
)

type application struct {
	logger   *slog.Logger
	planner  *planner.Service
	markdown goldmark.Markdown
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"FITORFAIL_ADDR" envDefault:"localhost:8081"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"FITORFAIL_SQLITE_URL" envDefault:"./fitorfail.sqlite3"`
	// RecentWindowDays is how far back completed exercises count as recent when scoring candidates.
	RecentWindowDays int `env:"FITORFAIL_RECENT_WINDOW_DAYS" envDefault:"7"`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) (err error) {
	var cancel context.CancelFunc
	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	if cfg.RecentWindowDays < 0 {
		return errors.New("recent window must not be negative", slog.Int("days", cfg.RecentWindowDays))
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
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	app := application{
		logger: logger,
		planner: planner.NewService(db, logger,
			planner.WithRecentWindow(time.Duration(cfg.RecentWindowDays)*24*time.Hour)), //nolint:mnd // day
		markdown: goldmark.New(),
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
