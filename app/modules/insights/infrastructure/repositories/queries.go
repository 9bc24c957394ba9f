package insightsdb

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new insights repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func baseQuery(db bun.IDB) *bun.SelectQuery {
	return db.NewSelect().
		TableExpr("activities AS a").
		ColumnExpr("a.slug, a.contributor, a.title, a.link, a.text, a.points, a.occurred_at").
		ColumnExpr("c.display_name, c.role, c.avatar_url").
		ColumnExpr("d.slug AS definition_slug, d.name AS definition_name, d.points AS definition_points").
		Join("JOIN contributors AS c ON c.username = a.contributor").
		Join("JOIN activity_definitions AS d ON d.slug = a.activity_definition")
}

// ListWindow returns all activities in [start, end] with role exclusion
// applied in the query.
func (r *Impl) ListWindow(ctx context.Context, db bun.IDB, start, end time.Time, excludedRoles []string) ([]ActivityRow, error) {
	db = r.resolveDB(db)
	query := baseQuery(db).
		Where("a.occurred_at >= ?", start).
		Where("a.occurred_at <= ?", end)
	if len(excludedRoles) > 0 {
		query = query.Where("c.role NOT IN (?)", bun.In(excludedRoles))
	}

	var rows []ActivityRow
	if err := query.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to query activity window: %w", err)
	}
	return rows, nil
}

// ListByContributor returns one contributor's all-time activities, newest
// first.
func (r *Impl) ListByContributor(ctx context.Context, db bun.IDB, username string) ([]ActivityRow, error) {
	db = r.resolveDB(db)
	var rows []ActivityRow
	err := baseQuery(db).
		Where("a.contributor = ?", username).
		OrderExpr("a.occurred_at DESC, a.slug ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to query contributor activities: %w", err)
	}
	return rows, nil
}
