// Package sync orchestrates one full ingestion pass: scrape the platforms,
// normalize the raw events, upsert the canonical activities, and run the
// chat staging pipeline.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	activityservice "github.com/devpulse-io/devpulse/app/modules/activity/application"
	activitydb "github.com/devpulse-io/devpulse/app/modules/activity/infrastructure/repositories"
	"github.com/devpulse-io/devpulse/app/modules/activity/normalizer"
	stagingservice "github.com/devpulse-io/devpulse/app/modules/staging/application"
	"github.com/devpulse-io/devpulse/config"
	"github.com/devpulse-io/devpulse/internal/observability"
)

// GitHubSource is the slice of the version-control API a sync run needs.
type GitHubSource interface {
	ListIssues(ctx context.Context, repo string, since time.Time) ([]normalizer.Issue, error)
	ListIssueTimeline(ctx context.Context, repo string, number int) ([]normalizer.TimelineEvent, error)
	ListPullRequests(ctx context.Context, repo string) ([]normalizer.PullRequest, error)
	ListReviews(ctx context.Context, repo string, number int) ([]normalizer.Review, error)
	ListIssueComments(ctx context.Context, repo string, since time.Time) ([]normalizer.Comment, error)
	ListCommits(ctx context.Context, repo, branch string, since time.Time) ([]normalizer.Commit, error)
}

// ChatSource reads channel history.
type ChatSource interface {
	History(ctx context.Context, channelID string, oldest time.Time) ([]normalizer.ChatMessage, error)
}

// Runner drives one sync pass end to end. Each phase is idempotent, so a
// failed or repeated run converges instead of double-counting.
type Runner struct {
	github     GitHubSource
	chat       ChatSource
	activities *activityservice.Service
	staging    *stagingservice.Service
	githubCfg  config.GitHubConfig
	chatCfg    config.ChatConfig
	logger     *slog.Logger
	metrics    *observability.Metrics
	tracer     trace.Tracer
}

func NewRunner(
	github GitHubSource,
	chat ChatSource,
	activities *activityservice.Service,
	staging *stagingservice.Service,
	githubCfg config.GitHubConfig,
	chatCfg config.ChatConfig,
	logger *slog.Logger,
	metrics *observability.Metrics,
	tracer trace.Tracer,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("sync")
	}
	return &Runner{
		github:     github,
		chat:       chat,
		activities: activities,
		staging:    staging,
		githubCfg:  githubCfg,
		chatCfg:    chatCfg,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
	}
}

// Report summarizes one sync run.
type Report struct {
	RunID            uuid.UUID
	Upserted         int
	Dropped          int
	Staged           int
	Filtered         int
	PromotedAuthors  int
	SkippedGroups    int
	UnmatchedAliases []string
	Duration         time.Duration
}

// Run executes one full sync pass. since bounds the version-control scrape;
// a zero since fetches everything.
func (r *Runner) Run(ctx context.Context, since time.Time) (Report, error) {
	runID := uuid.New()
	ctx, span := r.tracer.Start(ctx, "SyncRun", trace.WithAttributes(
		attribute.String("run_id", runID.String()),
	))
	defer span.End()

	start := time.Now()
	report := Report{RunID: runID}
	logger := r.logger.With(slog.String("run_id", runID.String()))

	if err := r.activities.SeedCatalog(ctx); err != nil {
		span.RecordError(err)
		return report, err
	}

	var collected []*activitydb.Activity
	for _, repo := range r.githubCfg.Repos {
		activities, dropped, err := r.scrapeRepo(ctx, repo, since)
		if err != nil {
			span.RecordError(err)
			return report, err
		}
		collected = append(collected, activities...)
		report.Dropped += dropped
		logger.InfoContext(ctx, "Repository scraped",
			slog.String("repo", repo),
			slog.Int("activities", len(activities)),
			slog.Int("dropped", dropped),
		)
	}

	upserted, err := r.activities.UpsertActivities(ctx, collected, activitydb.PolicyReplace)
	report.Upserted = upserted.Affected
	if err != nil {
		span.RecordError(err)
		return report, err
	}

	if r.chat != nil && r.chatCfg.ChannelID != "" {
		if err := r.runChatPipeline(ctx, since, &report); err != nil {
			span.RecordError(err)
			return report, err
		}
	}

	report.Duration = time.Since(start)
	if r.metrics != nil {
		r.metrics.SyncRunDuration.Observe(report.Duration.Seconds())
	}
	logger.InfoContext(ctx, "Sync run finished",
		slog.Int("upserted", report.Upserted),
		slog.Int("dropped", report.Dropped),
		slog.Int("staged", report.Staged),
		slog.Int("promoted_authors", report.PromotedAuthors),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

// scrapeRepo fetches and normalizes every event kind for one repository.
func (r *Runner) scrapeRepo(ctx context.Context, repo string, since time.Time) ([]*activitydb.Activity, int, error) {
	var activities []*activitydb.Activity
	dropped := 0

	issues, err := r.github.ListIssues(ctx, repo, since)
	if err != nil {
		return nil, 0, fmt.Errorf("sync of %s failed: %w", repo, err)
	}
	timelines := make(map[int][]normalizer.TimelineEvent, len(issues))
	for _, issue := range issues {
		events, err := r.github.ListIssueTimeline(ctx, repo, issue.Number)
		if err != nil {
			return nil, 0, fmt.Errorf("sync of %s failed: %w", repo, err)
		}
		timelines[issue.Number] = events
	}
	result := normalizer.NormalizeIssues(repo, issues, timelines)
	activities = append(activities, result.Activities...)
	dropped += r.recordDrops(result.Dropped)

	prs, err := r.github.ListPullRequests(ctx, repo)
	if err != nil {
		return nil, 0, fmt.Errorf("sync of %s failed: %w", repo, err)
	}
	reviews := make(map[int][]normalizer.Review, len(prs))
	for _, pr := range prs {
		prReviews, err := r.github.ListReviews(ctx, repo, pr.Number)
		if err != nil {
			return nil, 0, fmt.Errorf("sync of %s failed: %w", repo, err)
		}
		reviews[pr.Number] = prReviews
	}
	result = normalizer.NormalizePullRequests(repo, prs, reviews)
	activities = append(activities, result.Activities...)
	dropped += r.recordDrops(result.Dropped)

	comments, err := r.github.ListIssueComments(ctx, repo, since)
	if err != nil {
		return nil, 0, fmt.Errorf("sync of %s failed: %w", repo, err)
	}
	result = normalizer.NormalizeComments(repo, comments)
	activities = append(activities, result.Activities...)
	dropped += r.recordDrops(result.Dropped)

	commits, err := r.github.ListCommits(ctx, repo, r.githubCfg.Branch, since)
	if err != nil {
		return nil, 0, fmt.Errorf("sync of %s failed: %w", repo, err)
	}
	result = normalizer.NormalizeCommits(repo, r.githubCfg.Branch, commits)
	activities = append(activities, result.Activities...)
	dropped += r.recordDrops(result.Dropped)

	return activities, dropped, nil
}

func (r *Runner) runChatPipeline(ctx context.Context, since time.Time, report *Report) error {
	messages, err := r.chat.History(ctx, r.chatCfg.ChannelID, since)
	if err != nil {
		return fmt.Errorf("chat history fetch failed: %w", err)
	}

	enqueued, err := r.staging.Enqueue(ctx, messages)
	if err != nil {
		return err
	}
	report.Staged = enqueued.Inserted
	report.Filtered = enqueued.Filtered

	promoted, err := r.staging.Promote(ctx)
	if err != nil {
		return err
	}
	report.PromotedAuthors = promoted.Processed
	report.SkippedGroups = promoted.Skipped
	report.UnmatchedAliases = promoted.UnmatchedAliases
	return nil
}

func (r *Runner) recordDrops(drops []normalizer.Drop) int {
	for _, drop := range drops {
		if r.metrics != nil {
			r.metrics.MalformedEvents.WithLabelValues(drop.Kind).Inc()
		}
		r.logger.Warn("Dropped malformed event",
			slog.String("kind", drop.Kind),
			slog.String("reason", drop.Reason),
		)
	}
	return len(drops)
}
