// Package bootstrap wires the stores and caches shared by the binaries.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/gastos/internal/config"
	"github.com/MrJamesThe3rd/gastos/internal/database"
	"github.com/MrJamesThe3rd/gastos/internal/expense"
	expenseStore "github.com/MrJamesThe3rd/gastos/internal/expense/store"
	"github.com/MrJamesThe3rd/gastos/internal/household"
	householdStore "github.com/MrJamesThe3rd/gastos/internal/household/store"
	"github.com/MrJamesThe3rd/gastos/internal/localcache"
)

// Logger builds the process logger from the configured level.
func Logger(cfg *config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel()}))
}

// Remote holds the Postgres-backed services.
type Remote struct {
	DB         *sql.DB
	Pool       *pgxpool.Pool
	Sessions   *expense.Sessions
	Households *household.Service
}

// OpenRemote connects to Postgres, applies migrations and builds the services.
func OpenRemote(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Remote, error) {
	var (
		db   *sql.DB
		pool *pgxpool.Pool
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if db, err = database.New(cfg.ConnectionString()); err != nil {
			return err
		}

		return database.Migrate(db)
	})

	g.Go(func() error {
		var err error
		pool, err = database.NewPool(gctx, cfg.ConnectionString(), cfg.DB.MaxConns)

		return err
	})

	if err := g.Wait(); err != nil {
		if db != nil {
			db.Close()
		}

		if pool != nil {
			pool.Close()
		}

		return nil, err
	}

	return &Remote{
		DB:         db,
		Pool:       pool,
		Sessions:   expense.NewSessions(expenseStore.New(db, pool, logger), logger),
		Households: household.NewService(householdStore.New(db)),
	}, nil
}

func (r *Remote) Close() {
	r.Sessions.Close()
	r.Pool.Close()
	r.DB.Close()
}

// OpenLocalBook opens the offline ledger on the configured cache backend. The
// returned function closes the book and its medium.
func OpenLocalBook(ctx context.Context, cfg *config.Config, hub *localcache.Hub, logger *slog.Logger) (*expense.LocalBook, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		medium localcache.Medium
		closer func() error
	)

	switch cfg.Cache.Backend {
	case config.CacheRedis:
		client, err := localcache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, nil, err
		}

		medium = localcache.NewRedisMedium(client, cfg.Redis.Channel, logger)
		closer = client.Close
	default:
		m, err := localcache.OpenSQLiteMedium(cfg.Cache.Path, logger)
		if err != nil {
			return nil, nil, err
		}

		m.SetPollInterval(cfg.Cache.PollInterval)
		medium = m
		closer = m.Close
	}

	book, err := expense.OpenLocalBook(ctx, hub, medium, cfg.Cache.Key, logger)
	if err != nil {
		_ = closer()
		return nil, nil, fmt.Errorf("opening local ledger: %w", err)
	}

	return book, func() {
		book.Close()

		if err := closer(); err != nil {
			logger.Warn("closing cache medium", "error", err)
		}
	}, nil
}
