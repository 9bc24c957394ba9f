package identitymigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS contributors (
					username VARCHAR(100) PRIMARY KEY,
					display_name TEXT,
					role VARCHAR(50) NOT NULL DEFAULT 'contributor',
					avatar_url TEXT,
					bio TEXT,
					social_profiles JSONB,
					join_date TIMESTAMPTZ,
					platform_aliases JSONB,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_contributors_role ON contributors(role);
				CREATE INDEX IF NOT EXISTS idx_contributors_platform_aliases ON contributors USING GIN (platform_aliases);
			`); err != nil {
				return fmt.Errorf("failed to create contributors table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS contributors`)
		return err
	})
}
