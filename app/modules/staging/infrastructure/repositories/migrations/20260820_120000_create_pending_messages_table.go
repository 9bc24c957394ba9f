package stagingmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS pending_messages (
				id VARCHAR(50) PRIMARY KEY,
				author_alias VARCHAR(50) NOT NULL,
				timestamp TIMESTAMPTZ NOT NULL,
				text TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_pending_messages_author_alias ON pending_messages(author_alias);
			CREATE INDEX IF NOT EXISTS idx_pending_messages_timestamp ON pending_messages(timestamp);
		`); err != nil {
			return fmt.Errorf("failed to create pending_messages table: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS pending_messages`)
		return err
	})
}
