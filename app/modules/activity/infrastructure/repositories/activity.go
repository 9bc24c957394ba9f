package activitydb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// ErrNotFound is returned when an activity is not found.
var ErrNotFound = errors.New("activity not found")

// ErrUnknownPolicy is returned for a conflict policy the repository does not
// recognize.
var ErrUnknownPolicy = errors.New("unknown conflict policy")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new activity repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// mergeTextExpr resolves a text collision in SQL: equal texts stay single,
// an empty side loses, otherwise the incoming text is appended after a blank
// line. Unqualified columns refer to the existing row, EXCLUDED to the
// incoming one.
const mergeTextExpr = `text = CASE
	WHEN text IS NULL OR text = '' THEN EXCLUDED.text
	WHEN EXCLUDED.text IS NULL OR EXCLUDED.text = '' THEN text
	WHEN text = EXCLUDED.text THEN text
	ELSE text || E'\n\n' || EXCLUDED.text
END`

// UpsertBatch writes one batch of activities in a single upsert statement.
func (r *Impl) UpsertBatch(ctx context.Context, db bun.IDB, activities []*Activity, policy ConflictPolicy) (int64, error) {
	if len(activities) == 0 {
		return 0, nil
	}
	db = r.resolveDB(db)

	now := time.Now()
	for _, activity := range activities {
		activity.UpdatedAt = now
	}

	query := db.NewInsert().
		Model(&activities).
		On("CONFLICT (slug) DO UPDATE")

	switch policy {
	case PolicyReplace:
		query = query.
			Set("contributor = EXCLUDED.contributor").
			Set("activity_definition = EXCLUDED.activity_definition").
			Set("title = EXCLUDED.title").
			Set("occurred_at = EXCLUDED.occurred_at").
			Set("link = EXCLUDED.link").
			Set("text = EXCLUDED.text").
			Set("points = EXCLUDED.points").
			Set("meta = EXCLUDED.meta").
			Set("updated_at = EXCLUDED.updated_at")
	case PolicyMergeText:
		query = query.
			Set("occurred_at = LEAST(occurred_at, EXCLUDED.occurred_at)").
			Set(mergeTextExpr).
			Set("updated_at = EXCLUDED.updated_at")
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}

	result, err := query.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert activity batch: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		// Driver without RowsAffected support; the write itself succeeded.
		return int64(len(activities)), nil
	}
	return affected, nil
}

// GetBySlug retrieves one activity.
func (r *Impl) GetBySlug(ctx context.Context, db bun.IDB, slug string) (*Activity, error) {
	db = r.resolveDB(db)
	activity := new(Activity)
	err := db.NewSelect().
		Model(activity).
		Where("slug = ?", slug).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get activity by slug: %w", err)
	}
	return activity, nil
}

// UpsertDefinitions writes catalog entries, overwriting existing rows.
func (r *Impl) UpsertDefinitions(ctx context.Context, db bun.IDB, definitions []*ActivityDefinition) error {
	if len(definitions) == 0 {
		return nil
	}
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(&definitions).
		On("CONFLICT (slug) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("description = EXCLUDED.description").
		Set("points = EXCLUDED.points").
		Set("icon = EXCLUDED.icon").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert activity definitions: %w", err)
	}
	return nil
}

// ListDefinitions returns the catalog ordered by slug.
func (r *Impl) ListDefinitions(ctx context.Context, db bun.IDB) ([]*ActivityDefinition, error) {
	db = r.resolveDB(db)
	var definitions []*ActivityDefinition
	err := db.NewSelect().
		Model(&definitions).
		Order("slug ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity definitions: %w", err)
	}
	return definitions, nil
}
