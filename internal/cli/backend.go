package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/cimillas/item-reservations/internal/app"
	"github.com/cimillas/item-reservations/internal/auth"
	"github.com/cimillas/item-reservations/internal/clock"
	"github.com/cimillas/item-reservations/internal/config"
	"github.com/cimillas/item-reservations/internal/logging"
	"github.com/cimillas/item-reservations/internal/metrics"
	"github.com/cimillas/item-reservations/internal/storage/postgres"
	"github.com/cimillas/item-reservations/internal/storage/sqlite"
	"github.com/cimillas/item-reservations/migrations"
)

// backend is one storage driver behind the app store interfaces.
type backend struct {
	tx      app.Transactor
	items   app.ItemStore
	queue   app.QueueStore
	history app.HistoryLedger
	users   app.UserStore

	ping    func(ctx context.Context) error
	migrate func(ctx context.Context) error
	close   func()
}

func openBackend(ctx context.Context, db config.Database, logger *slog.Logger) (*backend, error) {
	switch db.Driver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, db.URL)
		if err != nil {
			return nil, fmt.Errorf("connect to db: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("db ping: %w", err)
		}
		logger.Info("connected to postgres")
		return &backend{
			tx:      postgres.NewTransactor(pool),
			items:   postgres.NewItemStore(pool),
			queue:   postgres.NewQueueStore(pool),
			history: postgres.NewHistoryLedger(pool),
			users:   postgres.NewUserStore(pool),
			ping:    pool.Ping,
			migrate: func(ctx context.Context) error { return migrations.Apply(ctx, pool) },
			close:   pool.Close,
		}, nil

	case config.DriverSQLite:
		sdb, err := sqlite.Open(ctx, db.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("opened sqlite", "path", db.SQLitePath)
		return &backend{
			tx:      sdb,
			items:   sqlite.NewItemStore(sdb),
			queue:   sqlite.NewQueueStore(sdb),
			history: sqlite.NewHistoryLedger(sdb),
			users:   sqlite.NewUserStore(sdb),
			ping:    sdb.SQL().PingContext,
			migrate: func(ctx context.Context) error { return migrations.ApplySQLite(ctx, sdb.SQL()) },
			close: func() {
				if err := sdb.Close(); err != nil {
					logger.Error("close sqlite", "err", err)
				}
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", db.Driver)
	}
}

// env is what every command starts from: validated config, the configured
// logger and an open, migrated backend.
type env struct {
	cfg     config.Config
	logger  *slog.Logger
	backend *backend
}

func setup(ctx context.Context, cmd *cobra.Command, opts *RootOptions) (*env, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
		Logger:     slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil)),
	})
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	b, err := openBackend(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := b.migrate(ctx); err != nil {
		b.close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &env{cfg: cfg, logger: logger, backend: b}, nil
}

func (e *env) close() {
	e.backend.close()
}

type services struct {
	reservations *app.ReservationService
	catalog      *app.CatalogService
	users        *app.UserService
	sweeper      *app.Sweeper
}

func (e *env) services(m *metrics.Metrics) services {
	clk := clock.NewSystem()
	b := e.backend

	reservations := app.NewReservationService(b.tx, b.items, b.queue, b.history, clk,
		app.WithHoldDuration(e.cfg.Hold.Duration),
		app.WithHoldLimit(e.cfg.Hold.Limit),
		app.WithReservationMetrics(m),
	)
	return services{
		reservations: reservations,
		catalog:      app.NewCatalogService(b.tx, b.items, b.queue, clk),
		users: app.NewUserService(b.users,
			auth.NewHasher(e.cfg.Auth.BcryptCost),
			auth.NewTokens(e.cfg.Auth.JWTSecret, e.cfg.Auth.TokenTTL, clk),
			clk,
		),
		sweeper: app.NewSweeper(reservations,
			app.WithSweepInterval(e.cfg.Sweep.Interval),
			app.WithSweeperLogger(e.logger),
			app.WithSweeperMetrics(m),
		),
	}
}
