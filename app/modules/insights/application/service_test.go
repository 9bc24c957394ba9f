package insightsservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	identitydb "github.com/devpulse-io/devpulse/app/modules/identity/infrastructure/repositories"
	insightsdb "github.com/devpulse-io/devpulse/app/modules/insights/infrastructure/repositories"
	"github.com/devpulse-io/devpulse/internal/observability"
)

var (
	windowStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
)

func ptrInt(n int) *int { return &n }

func row(contributor, defSlug, defName string, defPoints int, occurredAt time.Time) insightsdb.ActivityRow {
	return insightsdb.ActivityRow{
		Slug:             defSlug + "_" + contributor + "_" + occurredAt.Format("20060102150405"),
		Contributor:      contributor,
		DefinitionSlug:   defSlug,
		DefinitionName:   defName,
		DefinitionPoints: defPoints,
		OccurredAt:       occurredAt,
	}
}

func newTestService(insights *FakeInsightsRepo, identity *FakeIdentityRepo) *Service {
	return NewService(insights, identity, observability.NewTestLogger(), observability.NewTestMetrics(), nil)
}

func TestComputeLeaderboard(t *testing.T) {
	day1 := windowStart.Add(10 * time.Hour)
	day2 := windowStart.Add(34 * time.Hour)

	t.Run("totals, breakdown, and daily series", func(t *testing.T) {
		fakeInsights := &FakeInsightsRepo{
			ListWindowFunc: func(ctx context.Context, db bun.IDB, start, end time.Time, excludedRoles []string) ([]insightsdb.ActivityRow, error) {
				return []insightsdb.ActivityRow{
					row("alice", "pr_merged", "PR Merged", 7, day1),
					row("alice", "pr_reviewed", "PR Reviewed", 4, day2),
					row("alice", "issue_opened", "Issue Opened", 2, day2),
					row("alice", "issue_opened", "Issue Opened", 2, day2),
					row("alice", "issue_closed", "Issue Closed", 1, day2),
					row("alice", "commit_created", "Commit", 1, day1),
					row("bob", "issue_opened", "Issue Opened", 2, day1),
				}, nil
			},
		}

		entries, err := newTestService(fakeInsights, &FakeIdentityRepo{}).
			ComputeLeaderboard(context.Background(), windowStart, windowEnd, nil)

		require.NoError(t, err)
		require.Len(t, entries, 2)

		alice := entries[0]
		assert.Equal(t, "alice", alice.Username)
		assert.Equal(t, 17, alice.TotalPoints)
		assert.Equal(t, TypeStat{Count: 2, Points: 4}, alice.ActivityBreakdown["Issue Opened"])
		require.Len(t, alice.DailyActivity, 2)
		assert.Equal(t, day1.Format("2006-01-02"), alice.DailyActivity[0].Date)
		assert.Equal(t, 8, alice.DailyActivity[0].Points)
		assert.Equal(t, 9, alice.DailyActivity[1].Points)

		assert.Equal(t, "bob", entries[1].Username)
		assert.Equal(t, 2, entries[1].TotalPoints)
	})

	t.Run("per-activity points override beats the definition default", func(t *testing.T) {
		overridden := row("alice", "pr_merged", "PR Merged", 7, day1)
		overridden.Points = ptrInt(20)
		fakeInsights := &FakeInsightsRepo{
			ListWindowFunc: func(ctx context.Context, db bun.IDB, start, end time.Time, excludedRoles []string) ([]insightsdb.ActivityRow, error) {
				return []insightsdb.ActivityRow{overridden}, nil
			},
		}

		entries, err := newTestService(fakeInsights, &FakeIdentityRepo{}).
			ComputeLeaderboard(context.Background(), windowStart, windowEnd, nil)

		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, 20, entries[0].TotalPoints)
	})

	t.Run("zero-total contributors are dropped", func(t *testing.T) {
		zeroed := row("carol", "issue_opened", "Issue Opened", 2, day1)
		zeroed.Points = ptrInt(0)
		fakeInsights := &FakeInsightsRepo{
			ListWindowFunc: func(ctx context.Context, db bun.IDB, start, end time.Time, excludedRoles []string) ([]insightsdb.ActivityRow, error) {
				return []insightsdb.ActivityRow{
					zeroed,
					row("alice", "issue_opened", "Issue Opened", 2, day1),
				}, nil
			},
		}

		entries, err := newTestService(fakeInsights, &FakeIdentityRepo{}).
			ComputeLeaderboard(context.Background(), windowStart, windowEnd, nil)

		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "alice", entries[0].Username)
	})

	t.Run("ties break on username ascending", func(t *testing.T) {
		fakeInsights := &FakeInsightsRepo{
			ListWindowFunc: func(ctx context.Context, db bun.IDB, start, end time.Time, excludedRoles []string) ([]insightsdb.ActivityRow, error) {
				return []insightsdb.ActivityRow{
					row("zoe", "issue_opened", "Issue Opened", 2, day1),
					row("alice", "issue_opened", "Issue Opened", 2, day1),
				}, nil
			},
		}

		entries, err := newTestService(fakeInsights, &FakeIdentityRepo{}).
			ComputeLeaderboard(context.Background(), windowStart, windowEnd, nil)

		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "alice", entries[0].Username)
		assert.Equal(t, "zoe", entries[1].Username)
	})

	t.Run("repository error is surfaced", func(t *testing.T) {
		fakeInsights := &FakeInsightsRepo{
			ListWindowFunc: func(ctx context.Context, db bun.IDB, start, end time.Time, excludedRoles []string) ([]insightsdb.ActivityRow, error) {
				return nil, errors.New("connection refused")
			},
		}

		_, err := newTestService(fakeInsights, &FakeIdentityRepo{}).
			ComputeLeaderboard(context.Background(), windowStart, windowEnd, nil)

		assert.Error(t, err)
	})
}

func TestComputeTopContributorsByActivity(t *testing.T) {
	day := windowStart.Add(10 * time.Hour)

	reviewRows := []insightsdb.ActivityRow{}
	for _, spec := range []struct {
		contributor string
		count       int
	}{
		{"alice", 50}, {"bob", 40}, {"carol", 30}, {"dave", 20},
	} {
		for i := 0; i < spec.count; i++ {
			reviewRows = append(reviewRows, row(spec.contributor, "pr_reviewed", "PR Reviewed", 1, day.Add(time.Duration(i)*time.Minute)))
		}
	}

	t.Run("top three only, ranked by points", func(t *testing.T) {
		fakeInsights := &FakeInsightsRepo{
			ListWindowFunc: func(ctx context.Context, db bun.IDB, start, end time.Time, excludedRoles []string) ([]insightsdb.ActivityRow, error) {
				return reviewRows, nil
			},
		}

		tops, err := newTestService(fakeInsights, &FakeIdentityRepo{}).
			ComputeTopContributorsByActivity(context.Background(), windowStart, windowEnd, []string{"pr_reviewed"}, nil)

		require.NoError(t, err)
		require.Len(t, tops, 1)
		require.Len(t, tops[0].Top, 3)
		assert.Equal(t, "alice", tops[0].Top[0].Username)
		assert.Equal(t, 50, tops[0].Top[0].Points)
		assert.Equal(t, "bob", tops[0].Top[1].Username)
		assert.Equal(t, "carol", tops[0].Top[2].Username)
	})

	t.Run("caller slug order is preserved", func(t *testing.T) {
		fakeInsights := &FakeInsightsRepo{
			ListWindowFunc: func(ctx context.Context, db bun.IDB, start, end time.Time, excludedRoles []string) ([]insightsdb.ActivityRow, error) {
				return []insightsdb.ActivityRow{
					row("alice", "issue_opened", "Issue Opened", 2, day),
					row("bob", "pr_merged", "PR Merged", 7, day),
				}, nil
			},
		}

		tops, err := newTestService(fakeInsights, &FakeIdentityRepo{}).
			ComputeTopContributorsByActivity(context.Background(), windowStart, windowEnd, []string{"pr_merged", "issue_opened"}, nil)

		require.NoError(t, err)
		require.Len(t, tops, 2)
		assert.Equal(t, "pr_merged", tops[0].Slug)
		assert.Equal(t, "issue_opened", tops[1].Slug)
	})

	t.Run("nil slugs cover every type present, by definition name", func(t *testing.T) {
		fakeInsights := &FakeInsightsRepo{
			ListWindowFunc: func(ctx context.Context, db bun.IDB, start, end time.Time, excludedRoles []string) ([]insightsdb.ActivityRow, error) {
				return []insightsdb.ActivityRow{
					row("alice", "pr_merged", "PR Merged", 7, day),
					row("bob", "issue_opened", "Issue Opened", 2, day),
				}, nil
			},
		}

		tops, err := newTestService(fakeInsights, &FakeIdentityRepo{}).
			ComputeTopContributorsByActivity(context.Background(), windowStart, windowEnd, nil, nil)

		require.NoError(t, err)
		require.Len(t, tops, 2)
		assert.Equal(t, "issue_opened", tops[0].Slug)
		assert.Equal(t, "pr_merged", tops[1].Slug)
	})

	t.Run("activity type with no data is omitted", func(t *testing.T) {
		fakeInsights := &FakeInsightsRepo{}

		tops, err := newTestService(fakeInsights, &FakeIdentityRepo{}).
			ComputeTopContributorsByActivity(context.Background(), windowStart, windowEnd, []string{"pr_merged"}, nil)

		require.NoError(t, err)
		assert.Empty(t, tops)
	})
}

func TestComputeContributorProfile(t *testing.T) {
	day := windowStart.Add(10 * time.Hour)

	t.Run("known contributor", func(t *testing.T) {
		fakeIdentity := &FakeIdentityRepo{
			GetByUsernameFunc: func(ctx context.Context, db bun.IDB, username string) (*identitydb.Contributor, error) {
				return &identitydb.Contributor{Username: username, Role: "maintainer"}, nil
			},
		}
		fakeInsights := &FakeInsightsRepo{
			ListByContributorFunc: func(ctx context.Context, db bun.IDB, username string) ([]insightsdb.ActivityRow, error) {
				return []insightsdb.ActivityRow{
					row("alice", "pr_merged", "PR Merged", 7, day.Add(24*time.Hour)),
					row("alice", "issue_opened", "Issue Opened", 2, day),
					row("alice", "issue_closed", "Issue Closed", 1, day),
				}, nil
			},
		}

		profile, err := newTestService(fakeInsights, fakeIdentity).
			ComputeContributorProfile(context.Background(), "alice")

		require.NoError(t, err)
		require.NotNil(t, profile.Contributor)
		assert.Equal(t, "maintainer", profile.Contributor.Role)
		assert.Equal(t, 10, profile.TotalPoints)
		assert.Len(t, profile.Activities, 3)
		assert.Equal(t, 2, profile.ActivityByDate[day.Format("2006-01-02")])
	})

	t.Run("unknown contributor yields empty profile, not an error", func(t *testing.T) {
		profile, err := newTestService(&FakeInsightsRepo{}, &FakeIdentityRepo{}).
			ComputeContributorProfile(context.Background(), "ghost")

		require.NoError(t, err)
		assert.Nil(t, profile.Contributor)
		assert.Empty(t, profile.Activities)
		assert.Zero(t, profile.TotalPoints)
	})

	t.Run("identity error is surfaced", func(t *testing.T) {
		fakeIdentity := &FakeIdentityRepo{
			GetByUsernameFunc: func(ctx context.Context, db bun.IDB, username string) (*identitydb.Contributor, error) {
				return nil, errors.New("connection refused")
			},
		}

		_, err := newTestService(&FakeInsightsRepo{}, fakeIdentity).
			ComputeContributorProfile(context.Background(), "alice")

		assert.Error(t, err)
	})
}

func TestEffectivePoints(t *testing.T) {
	assert.Equal(t, 7, effectivePoints(nil, 7))
	assert.Equal(t, 3, effectivePoints(ptrInt(3), 7))
	assert.Equal(t, 0, effectivePoints(ptrInt(0), 7))
}
