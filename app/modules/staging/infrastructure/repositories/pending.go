package stagingdb

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new staging queue repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// Enqueue bulk-inserts messages, ignoring already-staged ids so duplicate
// fetches are safe.
func (r *Impl) Enqueue(ctx context.Context, db bun.IDB, messages []*PendingMessage) (int64, error) {
	if len(messages) == 0 {
		return 0, nil
	}
	db = r.resolveDB(db)
	result, err := db.NewInsert().
		Model(&messages).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue pending messages: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check enqueue result: %w", err)
	}
	return inserted, nil
}

// ListPendingGroupedByAuthor returns all staged messages in one read,
// grouped by author alias and ordered by timestamp within each group.
func (r *Impl) ListPendingGroupedByAuthor(ctx context.Context, db bun.IDB) ([]AuthorGroup, error) {
	db = r.resolveDB(db)
	var messages []*PendingMessage
	err := db.NewSelect().
		Model(&messages).
		Order("author_alias ASC", "timestamp ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending messages: %w", err)
	}

	var groups []AuthorGroup
	for _, message := range messages {
		if len(groups) == 0 || groups[len(groups)-1].Alias != message.AuthorAlias {
			groups = append(groups, AuthorGroup{Alias: message.AuthorAlias})
		}
		last := &groups[len(groups)-1]
		last.Messages = append(last.Messages, message)
	}
	return groups, nil
}

// DeleteByIDs removes staged rows once promoted.
func (r *Impl) DeleteByIDs(ctx context.Context, db bun.IDB, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	db = r.resolveDB(db)
	result, err := db.NewDelete().
		Model((*PendingMessage)(nil)).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pending messages: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check delete result: %w", err)
	}
	return deleted, nil
}
