package insightsservice

import (
	identitydb "github.com/devpulse-io/devpulse/app/modules/identity/infrastructure/repositories"
	insightsdb "github.com/devpulse-io/devpulse/app/modules/insights/infrastructure/repositories"
)

// TypeStat is the per-activity-type tally inside a leaderboard entry.
type TypeStat struct {
	Count  int `json:"count"`
	Points int `json:"points"`
}

// DailyStat is one day of a leaderboard entry's activity series.
type DailyStat struct {
	Date   string `json:"date"` // ISO date, UTC
	Count  int    `json:"count"`
	Points int    `json:"points"`
}

// LeaderboardEntry is one contributor's aggregate over a time window.
// Computed on every query, never persisted.
type LeaderboardEntry struct {
	Username          string              `json:"username"`
	DisplayName       string              `json:"display_name,omitempty"`
	AvatarURL         string              `json:"avatar_url,omitempty"`
	TotalPoints       int                 `json:"total_points"`
	ActivityBreakdown map[string]TypeStat `json:"activity_breakdown"`
	DailyActivity     []DailyStat         `json:"daily_activity"`
}

// ContributorSummary is one contributor's tally for a single activity type.
type ContributorSummary struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Count       int    `json:"count"`
	Points      int    `json:"points"`
}

// ActivityTop is the top contributors for one activity type. The slice
// preserves the caller-requested activity ordering, which a map cannot.
type ActivityTop struct {
	Slug string               `json:"slug"`
	Name string               `json:"name"`
	Top  []ContributorSummary `json:"top"`
}

// Profile is one contributor's all-time view. A Profile with a nil
// Contributor means the username is unknown; callers must branch on
// presence rather than expect an error.
type Profile struct {
	Contributor    *identitydb.Contributor `json:"contributor"`
	Activities     []insightsdb.ActivityRow `json:"activities"`
	TotalPoints    int                      `json:"total_points"`
	ActivityByDate map[string]int           `json:"activity_by_date"`
}
