package server

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	auth "github.com/goliatone/go-auth-dashboard"
	"github.com/goliatone/go-auth-dashboard/config"
	"github.com/goliatone/go-auth-dashboard/store/bunstore"
	"github.com/goliatone/go-auth-dashboard/store/docstore"
	"github.com/goliatone/go-auth-dashboard/store/pgstore"
)

// MemoryDSN selects an in-memory database for the sqlite and badger drivers
const MemoryDSN = ":memory:"

// Store is an account store with a lifecycle
type Store interface {
	auth.AccountStore
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// OpenStore opens the backend named by cfg.Driver. Schema migrations are
// left to the caller.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger hclog.Logger) (Store, error) {
	logger = logger.Named("store")

	var (
		s   Store
		err error
	)

	switch cfg.Driver {
	case config.DriverSQLite, "":
		dsn := cfg.DSN
		if dsn == MemoryDSN {
			dsn = "file::memory:?cache=shared"
		}
		s, err = openSQLite(dsn, logger)
	case config.DriverPostgres:
		s, err = openPostgres(ctx, cfg.DSN, logger)
	case config.DriverBadger:
		s, err = openBadger(cfg.DSN, logger)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}

	return s, nil
}

func openSQLite(dsn string, logger hclog.Logger) (Store, error) {
	s, err := bunstore.Open(dsn, bunstore.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openPostgres(ctx context.Context, dsn string, logger hclog.Logger) (Store, error) {
	s, err := pgstore.Open(ctx, dsn, pgstore.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openBadger(dir string, logger hclog.Logger) (Store, error) {
	s, err := docstore.Open(docstore.Config{
		Dir:      dir,
		InMemory: dir == MemoryDSN,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
