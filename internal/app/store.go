package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go"

	"github.com/MrWong99/lingvox/internal/config"
	"github.com/MrWong99/lingvox/internal/store"
	"github.com/MrWong99/lingvox/internal/store/memory"
	"github.com/MrWong99/lingvox/internal/store/postgres"
	"github.com/MrWong99/lingvox/internal/store/sqlite"
)

// storeRetryDelay is the base delay between store connection attempts.
const storeRetryDelay = 500 * time.Millisecond

// OpenStore opens the backend selected by cfg.Driver. Connecting is retried
// with exponential backoff so the service can start alongside its database.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	if cfg.Driver == config.StoreMemory || cfg.Driver == "" {
		return memory.New(), nil
	}

	attempts := cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = config.DefaultConnectAttempts
	}

	var s store.Store
	err := retry.Do(
		func() error {
			opened, err := openDriver(ctx, cfg)
			if err != nil {
				return err
			}
			s = opened
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(storeRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("store: connect failed, retrying", "driver", cfg.Driver, "attempt", n+1, "err", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("app: open %s store: %w", cfg.Driver, err)
	}
	return s, nil
}

func openDriver(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.StoreSQLite:
		return sqlite.Open(ctx, cfg.DSN)
	case config.StorePostgres:
		return postgres.Open(ctx, cfg.DSN)
	default:
		return nil, retry.Unrecoverable(fmt.Errorf("unknown store driver %q", cfg.Driver))
	}
}
