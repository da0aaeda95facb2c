package commands

import (
	"context"
	"fmt"

	"github.com/99minutos/ledger-system/internal/core/ports"
	"github.com/99minutos/ledger-system/internal/infrastructure/config"
	mongostore "github.com/99minutos/ledger-system/internal/infrastructure/db/mongo"
	"github.com/99minutos/ledger-system/internal/infrastructure/db/sqlite"
)

// ledgerBackend is a store the CLI can both serve from and seed.
type ledgerBackend interface {
	ports.LedgerStore
	ports.LedgerSeeder
}

// openStore connects the backend selected by STORE_DRIVER. The returned
// close function releases it.
func openStore(ctx context.Context, cfg *config.Config) (ledgerBackend, func(context.Context) error, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
		if err != nil {
			return nil, nil, err
		}
		store := mongostore.NewLedgerStore(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, err
		}
		log.Info().Str("db", cfg.Mongo.Database).Msg("connected to mongodb")
		return store, client.Disconnect, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.SQLite.Path).Msg("opened sqlite ledger")
		return store, func(context.Context) error { return store.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
