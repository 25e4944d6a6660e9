package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/shop/internal/health"
	"github.com/vladislavdragonenkov/shop/internal/storage/memory"
	"github.com/vladislavdragonenkov/shop/internal/storage/postgres"
)

// runtimeDependencies - репозитории выбранного storage driver.
type runtimeDependencies struct {
	orders    domain.OrderRepository
	customers domain.CustomerRepository
	products  domain.ProductRepository
	outbox    domain.OutboxRepository

	storageChecker healthcheck.Checker
	closeFn        func() error
}

func (d runtimeDependencies) close() error {
	if d.closeFn == nil {
		return nil
	}
	return d.closeFn()
}

// initRuntimeDependencies создаёт репозитории для cfg.StorageDriver.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		logger.Info("используется in-memory хранилище")
		return runtimeDependencies{
			orders:    memory.NewOrderRepository(),
			customers: memory.NewCustomerRepository(),
			products:  memory.NewProductRepository(),
			outbox:    memory.NewOutboxRepository(),
			storageChecker: healthcheck.NewPingChecker("storage", true, func(context.Context) error {
				return nil
			}),
		}, nil
	case StorageDriverPostgres:
		return initPostgresDependencies(ctx, cfg, logger)
	default:
		return runtimeDependencies{}, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}

func initPostgresDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	if cfg.PostgresDSN == "" {
		return runtimeDependencies{}, errors.New("postgres dsn is required")
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return runtimeDependencies{}, err
	}

	if cfg.PostgresAutoMigrate {
		if err := store.MigrateUp(ctx, 0); err != nil {
			_ = store.Close()
			return runtimeDependencies{}, fmt.Errorf("apply migrations: %w", err)
		}
		state, err := store.MigrationStatus(ctx)
		if err == nil {
			logger.WithField("version", state.Version).Info("миграции postgres применены")
		}
	}

	logger.Info("используется postgres хранилище")
	return runtimeDependencies{
		orders:         postgres.NewOrderRepository(store),
		customers:      postgres.NewCustomerRepository(store),
		products:       postgres.NewProductRepository(store),
		outbox:         postgres.NewOutboxRepository(store),
		storageChecker: healthcheck.NewPingChecker("storage", true, store.Ping),
		closeFn:        store.Close,
	}, nil
}
