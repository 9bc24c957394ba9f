package stagingservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	activitydb "github.com/devpulse-io/devpulse/app/modules/activity/infrastructure/repositories"
	"github.com/devpulse-io/devpulse/app/modules/activity/normalizer"
	identitydb "github.com/devpulse-io/devpulse/app/modules/identity/infrastructure/repositories"
	stagingdb "github.com/devpulse-io/devpulse/app/modules/staging/infrastructure/repositories"
	"github.com/devpulse-io/devpulse/internal/observability"
)

// txRunner is the one slice of *bun.DB promotion needs: running a function
// inside a transaction.
type txRunner interface {
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
}

// Service stages chat messages and promotes them into daily update
// activities. The pending message lifecycle is the only state machine in the
// pipeline: staged -> (skipped, stays staged) or staged -> promoted -> deleted.
type Service struct {
	staging    stagingdb.Repository
	identity   identitydb.Repository
	activities activitydb.Repository
	db         txRunner
	logger     *slog.Logger
	metrics    *observability.Metrics
	tracer     trace.Tracer

	channelID string
	minLength int
}

// NewService creates a new staging service. minLength is the minimum trimmed
// text length a message needs to be staged.
func NewService(
	staging stagingdb.Repository,
	identity identitydb.Repository,
	activities activitydb.Repository,
	db txRunner,
	logger *slog.Logger,
	metrics *observability.Metrics,
	tracer trace.Tracer,
	channelID string,
	minLength int,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("stagingservice")
	}
	return &Service{
		staging:    staging,
		identity:   identity,
		activities: activities,
		db:         db,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
		channelID:  channelID,
		minLength:  minLength,
	}
}

// EnqueueResult reports one Enqueue call.
type EnqueueResult struct {
	Inserted int
	Filtered int
}

// Enqueue filters raw chat messages and stages the ones that qualify: plain
// user messages with a known author and enough trimmed text. Duplicate
// fetches are absorbed by the id conflict rule.
func (s *Service) Enqueue(ctx context.Context, messages []normalizer.ChatMessage) (EnqueueResult, error) {
	ctx, span := s.tracer.Start(ctx, "EnqueuePendingMessages", trace.WithAttributes(
		attribute.Int("input_count", len(messages)),
	))
	defer span.End()

	var result EnqueueResult
	var staged []*stagingdb.PendingMessage
	for _, message := range messages {
		if !s.qualifies(message) {
			result.Filtered++
			continue
		}
		staged = append(staged, &stagingdb.PendingMessage{
			ID:          message.ID,
			AuthorAlias: message.AuthorAlias,
			Timestamp:   message.Timestamp,
			Text:        strings.TrimSpace(message.Text),
		})
	}

	inserted, err := s.staging.Enqueue(ctx, nil, staged)
	if err != nil {
		span.RecordError(err)
		return result, fmt.Errorf("failed to stage chat messages: %w", err)
	}
	result.Inserted = int(inserted)

	if s.metrics != nil {
		s.metrics.MessagesEnqueued.Add(float64(result.Inserted))
	}
	s.logger.InfoContext(ctx, "Chat messages staged",
		slog.Int("inserted", result.Inserted),
		slog.Int("filtered", result.Filtered),
	)
	return result, nil
}

func (s *Service) qualifies(message normalizer.ChatMessage) bool {
	if message.Subtype != "" || message.Bot {
		return false
	}
	if message.ID == "" || message.AuthorAlias == "" {
		return false
	}
	return len(strings.TrimSpace(message.Text)) >= s.minLength
}

// PromotionResult reports one Promote call.
type PromotionResult struct {
	Processed        int
	Skipped          int
	UnmatchedAliases []string
}

// Promote converts staged messages into daily update activities. Messages
// are grouped by author and UTC calendar day; same-day texts are joined and
// merged into one eod_update activity per (author, day). A group whose alias
// does not resolve to a contributor is skipped and left staged for a future
// alias sync. Staged ids are deleted only after the group's activities are
// committed, so a crash mid-promotion is recoverable by re-running.
func (s *Service) Promote(ctx context.Context) (PromotionResult, error) {
	ctx, span := s.tracer.Start(ctx, "PromotePendingMessages")
	defer span.End()

	var result PromotionResult

	groups, err := s.staging.ListPendingGroupedByAuthor(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return result, fmt.Errorf("failed to read staging queue: %w", err)
	}

	for _, group := range groups {
		contributor, err := s.identity.GetByPlatformAlias(ctx, nil, identitydb.PlatformChat, group.Alias)
		if err != nil {
			if errors.Is(err, identitydb.ErrNotFound) {
				result.Skipped++
				result.UnmatchedAliases = append(result.UnmatchedAliases, group.Alias)
				if s.metrics != nil {
					s.metrics.PromotionSkips.Inc()
				}
				s.logger.WarnContext(ctx, "Skipping staged messages for unknown chat alias",
					slog.String("alias", group.Alias),
					slog.Int("messages", len(group.Messages)),
				)
				continue
			}
			span.RecordError(err)
			return result, fmt.Errorf("failed to resolve chat alias %q: %w", group.Alias, err)
		}

		if err := s.promoteGroup(ctx, contributor.Username, group); err != nil {
			span.RecordError(err)
			return result, fmt.Errorf("failed to promote messages for %s: %w", contributor.Username, err)
		}
		result.Processed++
		if s.metrics != nil {
			s.metrics.MessagesPromoted.Add(float64(len(group.Messages)))
		}
	}

	s.logger.InfoContext(ctx, "Staging queue promotion finished",
		slog.Int("processed", result.Processed),
		slog.Int("skipped", result.Skipped),
	)
	return result, nil
}

// promoteGroup upserts one author's daily activities and deletes the staged
// rows in the same transaction.
func (s *Service) promoteGroup(ctx context.Context, username string, group stagingdb.AuthorGroup) error {
	activities := s.dailyActivities(username, group)
	ids := make([]string, 0, len(group.Messages))
	for _, message := range group.Messages {
		ids = append(ids, message.ID)
	}

	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.activities.UpsertBatch(ctx, tx, activities, activitydb.PolicyMergeText); err != nil {
			return err
		}
		if _, err := s.staging.DeleteByIDs(ctx, tx, ids); err != nil {
			return err
		}
		return nil
	})
}

// dailyActivities joins one author's same-day messages into one activity per
// UTC calendar day.
func (s *Service) dailyActivities(username string, group stagingdb.AuthorGroup) []*activitydb.Activity {
	type dayBucket struct {
		day   time.Time
		texts []string
	}
	buckets := make(map[string]*dayBucket)
	var order []string
	for _, message := range group.Messages {
		day := message.Timestamp.UTC().Truncate(24 * time.Hour)
		key := day.Format("2006-01-02")
		bucket, seen := buckets[key]
		if !seen {
			bucket = &dayBucket{day: day}
			buckets[key] = bucket
			order = append(order, key)
		}
		bucket.texts = append(bucket.texts, message.Text)
	}
	sort.Strings(order)

	activities := make([]*activitydb.Activity, 0, len(order))
	for _, key := range order {
		bucket := buckets[key]
		text := strings.Join(bucket.texts, "\n\n")
		activities = append(activities, normalizer.DailyUpdateActivity(username, bucket.day, text, s.channelID, group.Alias))
	}
	return activities
}
