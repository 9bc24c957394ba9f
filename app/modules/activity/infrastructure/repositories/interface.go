package activitydb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for activity ledger persistence.
type Repository interface {
	// UpsertBatch writes one batch of activities in a single statement,
	// resolving slug collisions per the policy. Slugs must be unique within
	// the batch. Returns the number of rows written.
	UpsertBatch(ctx context.Context, db bun.IDB, activities []*Activity, policy ConflictPolicy) (int64, error)

	// GetBySlug retrieves one activity.
	GetBySlug(ctx context.Context, db bun.IDB, slug string) (*Activity, error)

	// UpsertDefinitions writes catalog entries, overwriting existing rows.
	UpsertDefinitions(ctx context.Context, db bun.IDB, definitions []*ActivityDefinition) error

	// ListDefinitions returns the catalog ordered by slug.
	ListDefinitions(ctx context.Context, db bun.IDB) ([]*ActivityDefinition, error)
}
