package store

import (
	"context"
	"fmt"

	"quest-entry-service/config"
)

// Open selects the backend named by cfg.StoreDriver.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL, cfg.EntriesTable)
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.DatabaseURL, cfg.EntriesTable)
	case config.DriverMongo:
		return OpenMongo(ctx, cfg.MongoURI, cfg.MongoDBName, cfg.MongoCollection)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
