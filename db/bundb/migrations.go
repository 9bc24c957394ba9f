package bundb

import (
	"github.com/uptrace/bun/migrate"

	activitymigrations "github.com/devpulse-io/devpulse/app/modules/activity/infrastructure/repositories/migrations"
	identitymigrations "github.com/devpulse-io/devpulse/app/modules/identity/infrastructure/repositories/migrations"
	stagingmigrations "github.com/devpulse-io/devpulse/app/modules/staging/infrastructure/repositories/migrations"
)

// NamedMigrations pairs a module's migration set with its name for reporting.
type NamedMigrations struct {
	Name       string
	Migrations *migrate.Migrations
}

// ModuleMigrations returns every module's migrations in dependency order:
// contributors must exist before activities can reference them, so identity
// always runs first. Callers must apply them in slice order.
func ModuleMigrations() []NamedMigrations {
	return []NamedMigrations{
		{Name: "identity", Migrations: identitymigrations.Migrations},
		{Name: "activity", Migrations: activitymigrations.Migrations},
		{Name: "staging", Migrations: stagingmigrations.Migrations},
	}
}
