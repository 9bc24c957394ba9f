//go:build integration

package integration_tests

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver for the SQL wait strategy
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"github.com/devpulse-io/devpulse/db/bundb"
)

// setupDatabase starts a throwaway Postgres container, runs every module's
// migrations in the same order the migrate command applies them, and returns
// a connected bun.DB plus the container's DSN. The container is torn down
// with the test.
func setupDatabase(t *testing.T) (*bun.DB, string) {
	t.Helper()
	ctx := context.Background()

	const (
		dbName   = "testdb"
		user     = "testuser"
		password = "testpass"
	)

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForSQL("5432/tcp", "pgx",
				func(host string, port nat.Port) string {
					return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
						user, password, host, port.Port(), dbName)
				},
			).WithStartupTimeout(45*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connStr, err := pgContainer.ConnectionString(ctx)
	require.NoError(t, err)
	parsedURL, err := url.Parse(connStr)
	require.NoError(t, err)
	query := parsedURL.Query()
	query.Set("sslmode", "disable")
	parsedURL.RawQuery = query.Encode()

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(parsedURL.String())))
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })

	for _, m := range bundb.ModuleMigrations() {
		migrator := migrate.NewMigrator(db, m.Migrations)
		require.NoError(t, migrator.Init(ctx))
		_, err = migrator.Migrate(ctx)
		require.NoError(t, err)
	}
	return db, parsedURL.String()
}
