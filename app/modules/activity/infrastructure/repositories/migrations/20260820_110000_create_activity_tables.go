package activitymigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS activity_definitions (
					slug VARCHAR(50) PRIMARY KEY,
					name TEXT NOT NULL,
					description TEXT,
					points INT NOT NULL DEFAULT 0,
					icon TEXT
				);
			`); err != nil {
				return fmt.Errorf("failed to create activity_definitions table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS activities (
					slug TEXT PRIMARY KEY,
					contributor VARCHAR(100) NOT NULL REFERENCES contributors(username),
					activity_definition VARCHAR(50) NOT NULL REFERENCES activity_definitions(slug),
					title TEXT,
					occurred_at TIMESTAMPTZ NOT NULL,
					link TEXT,
					text TEXT,
					points INT,
					meta JSONB,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_activities_contributor ON activities(contributor);
				CREATE INDEX IF NOT EXISTS idx_activities_occurred_at ON activities(occurred_at);
				CREATE INDEX IF NOT EXISTS idx_activities_definition ON activities(activity_definition);
			`); err != nil {
				return fmt.Errorf("failed to create activities table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS activities`); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS activity_definitions`)
			return err
		})
	})
}
