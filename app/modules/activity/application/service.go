package activityservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	activitydb "github.com/devpulse-io/devpulse/app/modules/activity/infrastructure/repositories"
	identitydb "github.com/devpulse-io/devpulse/app/modules/identity/infrastructure/repositories"
	"github.com/devpulse-io/devpulse/internal/chunk"
	"github.com/devpulse-io/devpulse/internal/observability"
)

// DefaultBatchSize bounds the number of rows in one upsert statement.
const DefaultBatchSize = 1000

// Service is the ingestion engine: it persists canonical activities
// idempotently, in batches, under a caller-selected conflict policy.
type Service struct {
	activities activitydb.Repository
	identity   identitydb.Repository
	db         *bun.DB
	logger     *slog.Logger
	metrics    *observability.Metrics
	tracer     trace.Tracer
	batchSize  int
}

// NewService creates a new ingestion service. A non-positive batchSize falls
// back to DefaultBatchSize.
func NewService(
	activities activitydb.Repository,
	identity identitydb.Repository,
	db *bun.DB,
	logger *slog.Logger,
	metrics *observability.Metrics,
	tracer trace.Tracer,
	batchSize int,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("activityservice")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Service{
		activities: activities,
		identity:   identity,
		db:         db,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
		batchSize:  batchSize,
	}
}

// UpsertResult reports the outcome of one UpsertActivities call. On a batch
// failure, Affected counts the rows committed by the batches that succeeded
// before the failure.
type UpsertResult struct {
	Affected int
	Batches  int
}

// UpsertActivities persists canonical activities idempotently. Input is
// collapsed to one entry per slug, partitioned into batches, and written
// sequentially; a failing batch aborts the remainder without touching the
// batches already committed. Every referenced contributor is created first
// if missing, so ingestion never fails on an unseen-but-valid contributor.
func (s *Service) UpsertActivities(ctx context.Context, activities []*activitydb.Activity, policy activitydb.ConflictPolicy) (UpsertResult, error) {
	ctx, span := s.tracer.Start(ctx, "UpsertActivities", trace.WithAttributes(
		attribute.String("policy", string(policy)),
		attribute.Int("input_count", len(activities)),
	))
	defer span.End()

	var result UpsertResult
	if len(activities) == 0 {
		return result, nil
	}

	collapsed := collapseDuplicates(activities, policy)

	if err := s.ensureContributors(ctx, collapsed); err != nil {
		span.RecordError(err)
		return result, err
	}

	for _, batch := range chunk.Slices(collapsed, s.batchSize) {
		start := time.Now()
		affected, err := s.activities.UpsertBatch(ctx, nil, batch, policy)
		if s.metrics != nil {
			s.metrics.UpsertBatchDuration.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			if s.metrics != nil {
				s.metrics.BatchFailures.Inc()
			}
			wrappedErr := fmt.Errorf("upsert aborted after %d committed batches (%d rows): %w", result.Batches, result.Affected, err)
			s.logger.ErrorContext(ctx, "Activity batch upsert failed",
				slog.Int("committed_batches", result.Batches),
				slog.Int("committed_rows", result.Affected),
				slog.Any("error", err),
			)
			span.RecordError(wrappedErr)
			return result, wrappedErr
		}
		result.Affected += int(affected)
		result.Batches++
	}

	if s.metrics != nil {
		s.metrics.ActivitiesUpserted.WithLabelValues(string(policy)).Add(float64(result.Affected))
	}
	s.logger.InfoContext(ctx, "Activities upserted",
		slog.String("policy", string(policy)),
		slog.Int("affected", result.Affected),
		slog.Int("batches", result.Batches),
	)
	return result, nil
}

// SeedCatalog upserts the static activity definition catalog. Called once at
// startup and at the beginning of each sync run.
func (s *Service) SeedCatalog(ctx context.Context) error {
	if err := s.activities.UpsertDefinitions(ctx, nil, activitydb.DefaultCatalog()); err != nil {
		return fmt.Errorf("failed to seed activity catalog: %w", err)
	}
	return nil
}

// ensureContributors auto-creates any referenced contributor that does not
// exist yet, with a platform-derived default avatar and profile link.
func (s *Service) ensureContributors(ctx context.Context, activities []*activitydb.Activity) error {
	seen := make(map[string]bool)
	var contributors []*identitydb.Contributor
	for _, activity := range activities {
		if activity.Contributor == "" || seen[activity.Contributor] {
			continue
		}
		seen[activity.Contributor] = true
		contributors = append(contributors, defaultContributor(activity.Contributor))
	}
	if err := s.identity.EnsureExist(ctx, nil, contributors); err != nil {
		return fmt.Errorf("failed to ensure contributors for upsert: %w", err)
	}
	return nil
}

func defaultContributor(username string) *identitydb.Contributor {
	return &identitydb.Contributor{
		Username:  username,
		Role:      "contributor",
		AvatarURL: fmt.Sprintf("https://github.com/%s.png", username),
		SocialProfiles: map[string]string{
			"github": fmt.Sprintf("https://github.com/%s", username),
		},
	}
}

// collapseDuplicates reduces same-call slug duplicates to a single entry so
// each batch statement touches every row at most once. REPLACE keeps the
// last write; MERGE_TEXT folds duplicates with the same merge rules the
// database applies on collision.
func collapseDuplicates(activities []*activitydb.Activity, policy activitydb.ConflictPolicy) []*activitydb.Activity {
	bySlug := make(map[string]*activitydb.Activity, len(activities))
	order := make([]string, 0, len(activities))
	for _, activity := range activities {
		existing, seen := bySlug[activity.Slug]
		if !seen {
			bySlug[activity.Slug] = activity
			order = append(order, activity.Slug)
			continue
		}
		if policy == activitydb.PolicyMergeText {
			merged := *existing
			if activity.OccurredAt.Before(existing.OccurredAt) {
				merged.OccurredAt = activity.OccurredAt
			}
			merged.Text = MergeText(existing.Text, activity.Text)
			bySlug[activity.Slug] = &merged
		} else {
			bySlug[activity.Slug] = activity
		}
	}
	collapsed := make([]*activitydb.Activity, 0, len(order))
	for _, slug := range order {
		collapsed = append(collapsed, bySlug[slug])
	}
	return collapsed
}

// MergeText applies the MERGE_TEXT text rule: equal texts stay single, an
// empty side loses, otherwise incoming is appended after a blank line. This
// mirrors the SQL expression used on slug collision so write-time and
// in-memory interpretations cannot drift.
func MergeText(existing, incoming string) string {
	switch {
	case existing == "":
		return incoming
	case incoming == "":
		return existing
	case existing == incoming:
		return existing
	default:
		return existing + "\n\n" + incoming
	}
}
