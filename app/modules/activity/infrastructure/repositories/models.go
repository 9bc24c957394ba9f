package activitydb

import (
	"time"

	"github.com/uptrace/bun"
)

// ActivityDefinition is a catalog entry describing one recognizable event
// type. Definitions come from the static in-code catalog and are upserted at
// startup; they are never user-generated.
type ActivityDefinition struct {
	bun.BaseModel `bun:"table:activity_definitions,alias:d"`

	Slug        string `bun:"slug,pk"`
	Name        string `bun:"name,notnull"`
	Description string `bun:"description"`
	Points      int    `bun:"points,notnull"`
	Icon        string `bun:"icon"`
}

// Activity is one deduplicated ledger entry. The slug deterministically
// identifies the real-world event it represents, so re-ingesting the same
// event is a no-op or a defined merge, never a duplicate row.
type Activity struct {
	bun.BaseModel `bun:"table:activities,alias:a"`

	Slug           string    `bun:"slug,pk"`
	Contributor    string    `bun:"contributor,notnull"`
	DefinitionSlug string    `bun:"activity_definition,notnull"`
	Title          string    `bun:"title"`
	OccurredAt     time.Time `bun:"occurred_at,notnull"`
	Link           string    `bun:"link"`
	Text           string    `bun:"text"`
	// Points overrides the definition's default when non-nil.
	Points *int `bun:"points"`
	Meta   Meta `bun:"meta,type:jsonb"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Meta carries source-platform context for an activity. Known fields cover
// the version-control and chat variants; Extra holds anything genuinely
// platform-specific.
type Meta struct {
	Source      string         `json:"source,omitempty"` // "github" or "chat"
	Repository  string         `json:"repository,omitempty"`
	Number      int            `json:"number,omitempty"`
	Branch      string         `json:"branch,omitempty"`
	SHA         string         `json:"sha,omitempty"`
	ChannelID   string         `json:"channel_id,omitempty"`
	AuthorAlias string         `json:"author_alias,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Source platform tags used in Meta.Source.
const (
	SourceGitHub = "github"
	SourceChat   = "chat"
)

// ConflictPolicy selects how an upsert resolves a slug collision.
type ConflictPolicy string

const (
	// PolicyReplace overwrites every field with the incoming value. Used for
	// version-control activities, which are idempotent re-fetches of
	// authoritative state.
	PolicyReplace ConflictPolicy = "replace"

	// PolicyMergeText keeps the earlier occurred_at and concatenates text
	// with a blank-line separator, unless the texts are equal or one side is
	// empty. Used for same-day chat update promotion.
	PolicyMergeText ConflictPolicy = "merge_text"
)
