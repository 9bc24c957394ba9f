package insightsdb

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Repository defines the read-side queries over the activity ledger. Every
// call reads fresh; nothing is cached across calls.
type Repository interface {
	// ListWindow returns all activities with occurred_at inside
	// [start, end], joined to contributor and definition, excluding
	// contributors whose role is in excludedRoles.
	ListWindow(ctx context.Context, db bun.IDB, start, end time.Time, excludedRoles []string) ([]ActivityRow, error)

	// ListByContributor returns one contributor's all-time activities,
	// newest first.
	ListByContributor(ctx context.Context, db bun.IDB, username string) ([]ActivityRow, error)
}
