package identitydb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a contributor is not found.
var ErrNotFound = errors.New("contributor not found")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new contributor repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// GetByUsername retrieves a contributor by canonical username.
func (r *Impl) GetByUsername(ctx context.Context, db bun.IDB, username string) (*Contributor, error) {
	db = r.resolveDB(db)
	contributor := new(Contributor)
	err := db.NewSelect().
		Model(contributor).
		Where("username = ?", username).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get contributor by username: %w", err)
	}
	return contributor, nil
}

// GetByPlatformAlias retrieves the contributor holding the given alias.
func (r *Impl) GetByPlatformAlias(ctx context.Context, db bun.IDB, platform, alias string) (*Contributor, error) {
	db = r.resolveDB(db)
	contributor := new(Contributor)
	err := db.NewSelect().
		Model(contributor).
		Where("platform_aliases->>? = ?", platform, alias).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get contributor by %s alias: %w", platform, err)
	}
	return contributor, nil
}

// Upsert creates or updates a contributor profile.
func (r *Impl) Upsert(ctx context.Context, db bun.IDB, contributor *Contributor) error {
	db = r.resolveDB(db)
	contributor.UpdatedAt = time.Now()
	_, err := db.NewInsert().
		Model(contributor).
		On("CONFLICT (username) DO UPDATE").
		Set("display_name = EXCLUDED.display_name").
		Set("role = EXCLUDED.role").
		Set("avatar_url = EXCLUDED.avatar_url").
		Set("bio = EXCLUDED.bio").
		Set("social_profiles = EXCLUDED.social_profiles").
		Set("platform_aliases = EXCLUDED.platform_aliases").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert contributor: %w", err)
	}
	return nil
}

// EnsureExist inserts missing contributors without touching existing rows.
// This backs the ingestion guarantee that an unseen-but-valid contributor
// never fails an upsert.
func (r *Impl) EnsureExist(ctx context.Context, db bun.IDB, contributors []*Contributor) error {
	if len(contributors) == 0 {
		return nil
	}
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(&contributors).
		On("CONFLICT (username) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to ensure contributors exist: %w", err)
	}
	return nil
}

// SetPlatformAlias records a platform alias for a contributor.
func (r *Impl) SetPlatformAlias(ctx context.Context, db bun.IDB, username, platform, alias string) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Contributor)(nil)).
		Set("platform_aliases = COALESCE(platform_aliases, '{}'::jsonb) || jsonb_build_object(?::text, ?::text)", platform, alias).
		Set("updated_at = ?", time.Now()).
		Where("username = ?", username).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set %s alias for %s: %w", platform, username, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check alias update result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRole updates a contributor's role tag.
func (r *Impl) SetRole(ctx context.Context, db bun.IDB, username, role string) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Contributor)(nil)).
		Set("role = ?", role).
		Set("updated_at = ?", time.Now()).
		Where("username = ?", username).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set role for %s: %w", username, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check role update result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all contributors ordered by username.
func (r *Impl) List(ctx context.Context, db bun.IDB) ([]*Contributor, error) {
	db = r.resolveDB(db)
	var contributors []*Contributor
	err := db.NewSelect().
		Model(&contributors).
		Order("username ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributors: %w", err)
	}
	return contributors, nil
}
