package stagingdb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for the message staging queue.
type Repository interface {
	// Enqueue bulk-inserts messages, ignoring ids that are already staged.
	// Returns the number of rows actually inserted.
	Enqueue(ctx context.Context, db bun.IDB, messages []*PendingMessage) (int64, error)

	// ListPendingGroupedByAuthor returns all staged messages grouped by
	// author alias, each group ordered by timestamp, from a single read so
	// promotion operates on a consistent snapshot.
	ListPendingGroupedByAuthor(ctx context.Context, db bun.IDB) ([]AuthorGroup, error)

	// DeleteByIDs removes staged rows once promoted.
	DeleteByIDs(ctx context.Context, db bun.IDB, ids []string) (int64, error)
}
