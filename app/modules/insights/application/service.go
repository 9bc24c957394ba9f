package insightsservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	identitydb "github.com/devpulse-io/devpulse/app/modules/identity/infrastructure/repositories"
	insightsdb "github.com/devpulse-io/devpulse/app/modules/insights/infrastructure/repositories"
	"github.com/devpulse-io/devpulse/internal/observability"
)

// TopContributorsLimit is how many contributors each activity type keeps in
// the top-contributors view.
const TopContributorsLimit = 3

// Service computes ranked, role-filtered, time-windowed views over the
// activity ledger. All queries read fresh state.
type Service struct {
	insights insightsdb.Repository
	identity identitydb.Repository
	logger   *slog.Logger
	metrics  *observability.Metrics
	tracer   trace.Tracer
}

// NewService creates a new insights service.
func NewService(
	insights insightsdb.Repository,
	identity identitydb.Repository,
	logger *slog.Logger,
	metrics *observability.Metrics,
	tracer trace.Tracer,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("insightsservice")
	}
	return &Service{
		insights: insights,
		identity: identity,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
	}
}

// effectivePoints resolves the points an activity is worth: the explicit
// override when present, the definition default otherwise. Ingestion and
// aggregation both go through this one function so the two interpretations
// cannot drift.
func effectivePoints(override *int, definitionPoints int) int {
	if override != nil {
		return *override
	}
	return definitionPoints
}

// ComputeLeaderboard aggregates the window into one entry per contributor,
// filtered to positive totals and sorted by points descending with username
// ascending as the tie-break.
func (s *Service) ComputeLeaderboard(ctx context.Context, start, end time.Time, excludedRoles []string) ([]LeaderboardEntry, error) {
	ctx, span := s.tracer.Start(ctx, "ComputeLeaderboard", trace.WithAttributes(
		attribute.String("window_start", start.Format(time.RFC3339)),
		attribute.String("window_end", end.Format(time.RFC3339)),
	))
	defer span.End()
	if s.metrics != nil {
		s.metrics.AggregationQueries.WithLabelValues("leaderboard").Inc()
	}

	rows, err := s.insights.ListWindow(ctx, nil, start, end, excludedRoles)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("ComputeLeaderboard: %w", err)
	}
	return buildLeaderboard(rows), nil
}

func buildLeaderboard(rows []insightsdb.ActivityRow) []LeaderboardEntry {
	type accumulator struct {
		entry LeaderboardEntry
		daily map[string]*DailyStat
	}
	byContributor := make(map[string]*accumulator)

	for _, row := range rows {
		acc, seen := byContributor[row.Contributor]
		if !seen {
			acc = &accumulator{
				entry: LeaderboardEntry{
					Username:          row.Contributor,
					DisplayName:       row.DisplayName,
					AvatarURL:         row.AvatarURL,
					ActivityBreakdown: make(map[string]TypeStat),
				},
				daily: make(map[string]*DailyStat),
			}
			byContributor[row.Contributor] = acc
		}

		points := effectivePoints(row.Points, row.DefinitionPoints)
		acc.entry.TotalPoints += points

		stat := acc.entry.ActivityBreakdown[row.DefinitionName]
		stat.Count++
		stat.Points += points
		acc.entry.ActivityBreakdown[row.DefinitionName] = stat

		date := row.OccurredAt.UTC().Format("2006-01-02")
		day, ok := acc.daily[date]
		if !ok {
			day = &DailyStat{Date: date}
			acc.daily[date] = day
		}
		day.Count++
		day.Points += points
	}

	entries := make([]LeaderboardEntry, 0, len(byContributor))
	for _, acc := range byContributor {
		if acc.entry.TotalPoints <= 0 {
			continue
		}
		dates := make([]string, 0, len(acc.daily))
		for date := range acc.daily {
			dates = append(dates, date)
		}
		sort.Strings(dates)
		for _, date := range dates {
			acc.entry.DailyActivity = append(acc.entry.DailyActivity, *acc.daily[date])
		}
		entries = append(entries, acc.entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		return entries[i].Username < entries[j].Username
	})
	return entries
}

// ComputeTopContributorsByActivity returns, for each requested activity
// type, its top three contributors by points. The result preserves the
// caller's activitySlugs ordering; a nil activitySlugs means every type
// present in the window, ordered by definition name. Types with no positive
// tally are omitted.
func (s *Service) ComputeTopContributorsByActivity(ctx context.Context, start, end time.Time, activitySlugs []string, excludedRoles []string) ([]ActivityTop, error) {
	ctx, span := s.tracer.Start(ctx, "ComputeTopContributorsByActivity")
	defer span.End()
	if s.metrics != nil {
		s.metrics.AggregationQueries.WithLabelValues("top_contributors").Inc()
	}

	rows, err := s.insights.ListWindow(ctx, nil, start, end, excludedRoles)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("ComputeTopContributorsByActivity: %w", err)
	}
	return buildTopContributors(rows, activitySlugs), nil
}

func buildTopContributors(rows []insightsdb.ActivityRow, activitySlugs []string) []ActivityTop {
	type group struct {
		name      string
		summaries map[string]*ContributorSummary
	}
	bySlug := make(map[string]*group)
	var dataOrder []string

	for _, row := range rows {
		g, seen := bySlug[row.DefinitionSlug]
		if !seen {
			g = &group{name: row.DefinitionName, summaries: make(map[string]*ContributorSummary)}
			bySlug[row.DefinitionSlug] = g
			dataOrder = append(dataOrder, row.DefinitionSlug)
		}
		summary, ok := g.summaries[row.Contributor]
		if !ok {
			summary = &ContributorSummary{
				Username:    row.Contributor,
				DisplayName: row.DisplayName,
				AvatarURL:   row.AvatarURL,
			}
			g.summaries[row.Contributor] = summary
		}
		summary.Count++
		summary.Points += effectivePoints(row.Points, row.DefinitionPoints)
	}

	order := activitySlugs
	if order == nil {
		sort.Slice(dataOrder, func(i, j int) bool {
			return bySlug[dataOrder[i]].name < bySlug[dataOrder[j]].name
		})
		order = dataOrder
	}

	var tops []ActivityTop
	for _, slug := range order {
		g, ok := bySlug[slug]
		if !ok {
			continue
		}
		var summaries []ContributorSummary
		for _, summary := range g.summaries {
			if summary.Points <= 0 {
				continue
			}
			summaries = append(summaries, *summary)
		}
		if len(summaries) == 0 {
			continue
		}
		sort.Slice(summaries, func(i, j int) bool {
			if summaries[i].Points != summaries[j].Points {
				return summaries[i].Points > summaries[j].Points
			}
			return summaries[i].Username < summaries[j].Username
		})
		if len(summaries) > TopContributorsLimit {
			summaries = summaries[:TopContributorsLimit]
		}
		tops = append(tops, ActivityTop{Slug: slug, Name: g.name, Top: summaries})
	}
	return tops
}

// ComputeContributorProfile returns one contributor's all-time activities
// newest first, their total effective points, and a date-to-count map for
// calendar rendering. An unknown username yields an empty profile with a nil
// Contributor, not an error.
func (s *Service) ComputeContributorProfile(ctx context.Context, username string) (Profile, error) {
	ctx, span := s.tracer.Start(ctx, "ComputeContributorProfile", trace.WithAttributes(
		attribute.String("username", username),
	))
	defer span.End()
	if s.metrics != nil {
		s.metrics.AggregationQueries.WithLabelValues("profile").Inc()
	}

	profile := Profile{
		Activities:     []insightsdb.ActivityRow{},
		ActivityByDate: map[string]int{},
	}

	contributor, err := s.identity.GetByUsername(ctx, nil, username)
	if err != nil {
		if errors.Is(err, identitydb.ErrNotFound) {
			return profile, nil
		}
		span.RecordError(err)
		return profile, fmt.Errorf("ComputeContributorProfile: %w", err)
	}
	profile.Contributor = contributor

	rows, err := s.insights.ListByContributor(ctx, nil, username)
	if err != nil {
		span.RecordError(err)
		return profile, fmt.Errorf("ComputeContributorProfile: %w", err)
	}

	profile.Activities = rows
	for _, row := range rows {
		profile.TotalPoints += effectivePoints(row.Points, row.DefinitionPoints)
		profile.ActivityByDate[row.OccurredAt.UTC().Format("2006-01-02")]++
	}
	return profile, nil
}
