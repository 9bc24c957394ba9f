package identitydb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for contributor persistence.
type Repository interface {
	// GetByUsername retrieves a contributor by canonical username.
	GetByUsername(ctx context.Context, db bun.IDB, username string) (*Contributor, error)

	// GetByPlatformAlias retrieves the contributor whose alias map contains
	// the given platform alias (e.g. a chat user id).
	GetByPlatformAlias(ctx context.Context, db bun.IDB, platform, alias string) (*Contributor, error)

	// Upsert creates or updates a contributor profile. The username is never
	// changed by an upsert.
	Upsert(ctx context.Context, db bun.IDB, contributor *Contributor) error

	// EnsureExist inserts any of the given contributors that do not already
	// exist. Existing rows are left untouched.
	EnsureExist(ctx context.Context, db bun.IDB, contributors []*Contributor) error

	// SetPlatformAlias records a platform alias for a contributor.
	SetPlatformAlias(ctx context.Context, db bun.IDB, username, platform, alias string) error

	// SetRole updates a contributor's role tag.
	SetRole(ctx context.Context, db bun.IDB, username, role string) error

	// List returns all contributors ordered by username.
	List(ctx context.Context, db bun.IDB) ([]*Contributor, error)
}
