// Package bundb constructs the bun database handle and the repository set
// the application modules share. Lifecycle is owned by the caller: open via
// NewDBService, close via Close.
package bundb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	activitydb "github.com/devpulse-io/devpulse/app/modules/activity/infrastructure/repositories"
	identitydb "github.com/devpulse-io/devpulse/app/modules/identity/infrastructure/repositories"
	insightsdb "github.com/devpulse-io/devpulse/app/modules/insights/infrastructure/repositories"
	stagingdb "github.com/devpulse-io/devpulse/app/modules/staging/infrastructure/repositories"
	"github.com/devpulse-io/devpulse/config"
)

// DBService bundles the shared bun.DB and the module repositories built on
// top of it.
type DBService struct {
	Identity   identitydb.Repository
	Activities activitydb.Repository
	Staging    stagingdb.Repository
	Insights   insightsdb.Repository

	db *bun.DB
}

// GetDB returns the underlying database handle.
func (s *DBService) GetDB() *bun.DB {
	return s.db
}

// Close releases the connection pool.
func (s *DBService) Close() error {
	return s.db.Close()
}

// NewDBService opens the Postgres pool and wires the module repositories.
func NewDBService(ctx context.Context, cfg config.PostgresConfig) (*DBService, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	if err := sqldb.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())

	return &DBService{
		Identity:   identitydb.NewRepository(db),
		Activities: activitydb.NewRepository(db),
		Staging:    stagingdb.NewRepository(db),
		Insights:   insightsdb.NewRepository(db),
		db:         db,
	}, nil
}
