package identitydb

import (
	"time"

	"github.com/uptrace/bun"
)

// Contributor is the canonical cross-platform identity for one person.
// The username is platform-agnostic and immutable once created; contributors
// are never deleted, only re-tagged via Role.
type Contributor struct {
	bun.BaseModel `bun:"table:contributors,alias:c"`

	Username        string            `bun:"username,pk"`
	DisplayName     string            `bun:"display_name"`
	Role            string            `bun:"role,notnull,default:'contributor'"`
	AvatarURL       string            `bun:"avatar_url"`
	Bio             string            `bun:"bio"`
	SocialProfiles  map[string]string `bun:"social_profiles,type:jsonb"`
	JoinDate        time.Time         `bun:"join_date,nullzero"`
	PlatformAliases map[string]string `bun:"platform_aliases,type:jsonb"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Alias platform keys used in PlatformAliases.
const (
	PlatformChat = "chat"
)
