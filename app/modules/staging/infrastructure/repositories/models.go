package stagingdb

import (
	"time"

	"github.com/uptrace/bun"
)

// PendingMessage is one raw chat message staged between fetch and promotion.
// Rows exist only in that window; promotion deletes them once the resulting
// daily activity is committed.
type PendingMessage struct {
	bun.BaseModel `bun:"table:pending_messages,alias:pm"`

	// ID is the platform's timestamp-derived message identifier.
	ID          string    `bun:"id,pk"`
	AuthorAlias string    `bun:"author_alias,notnull"`
	Timestamp   time.Time `bun:"timestamp,notnull"`
	Text        string    `bun:"text,notnull"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// AuthorGroup is every staged message for one author, ordered by timestamp.
type AuthorGroup struct {
	Alias    string
	Messages []*PendingMessage
}
