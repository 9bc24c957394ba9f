package insightsdb

import "time"

// ActivityRow is the joined projection the aggregation queries read: one
// ledger entry with its contributor role and definition metadata attached.
type ActivityRow struct {
	Slug             string    `bun:"slug"`
	Contributor      string    `bun:"contributor"`
	DisplayName      string    `bun:"display_name"`
	Role             string    `bun:"role"`
	AvatarURL        string    `bun:"avatar_url"`
	DefinitionSlug   string    `bun:"definition_slug"`
	DefinitionName   string    `bun:"definition_name"`
	DefinitionPoints int       `bun:"definition_points"`
	Title            string    `bun:"title"`
	Link             string    `bun:"link"`
	Text             string    `bun:"text"`
	Points           *int      `bun:"points"`
	OccurredAt       time.Time `bun:"occurred_at"`
}
