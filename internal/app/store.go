package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/critic/internal/adapters/repository"
	"github.com/okian/critic/internal/adapters/repository/pgstore"
	"github.com/okian/critic/internal/adapters/repository/sqlitestore"
	"github.com/okian/critic/internal/config"
)

// ErrUnknownDriver is returned for a store driver OpenStore does not know.
var ErrUnknownDriver = errors.New("unknown store driver")

// OpenStore opens the store selected by driver. The SQL drivers apply
// their schema before returning.
func OpenStore(ctx context.Context, driver, dsn string, opts ...repository.Option) (repository.Store, error) {
	switch driver {
	case config.DriverMemory:
		return repository.NewMemStore(opts...), nil
	case config.DriverSQLite:
		s, err := sqlitestore.Open(ctx, dsn, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		s, err := pgstore.Open(ctx, dsn, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
