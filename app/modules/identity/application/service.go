package identityservice

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	identitydb "github.com/devpulse-io/devpulse/app/modules/identity/infrastructure/repositories"
)

// Service manages canonical contributor identities and their cross-platform
// aliases.
type Service struct {
	repo   identitydb.Repository
	logger *slog.Logger
	tracer trace.Tracer
}

// NewService creates a new identity service.
func NewService(repo identitydb.Repository, logger *slog.Logger, tracer trace.Tracer) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("identityservice")
	}
	return &Service{repo: repo, logger: logger, tracer: tracer}
}

// GetContributor retrieves one contributor. Returns identitydb.ErrNotFound
// for unknown usernames.
func (s *Service) GetContributor(ctx context.Context, username string) (*identitydb.Contributor, error) {
	contributor, err := s.repo.GetByUsername(ctx, nil, username)
	if err != nil {
		return nil, fmt.Errorf("GetContributor: %w", err)
	}
	return contributor, nil
}

// UpsertProfile creates or updates a contributor's profile fields.
func (s *Service) UpsertProfile(ctx context.Context, contributor *identitydb.Contributor) error {
	ctx, span := s.tracer.Start(ctx, "UpsertProfile", trace.WithAttributes(
		attribute.String("username", contributor.Username),
	))
	defer span.End()

	if contributor.Username == "" {
		return fmt.Errorf("UpsertProfile: username is required")
	}
	if err := s.repo.Upsert(ctx, nil, contributor); err != nil {
		span.RecordError(err)
		return fmt.Errorf("UpsertProfile: %w", err)
	}
	s.logger.InfoContext(ctx, "Contributor profile upserted",
		slog.String("username", contributor.Username),
	)
	return nil
}

// LinkChatAlias records a chat-platform user id for a contributor so their
// staged daily updates can be promoted.
func (s *Service) LinkChatAlias(ctx context.Context, username, alias string) error {
	ctx, span := s.tracer.Start(ctx, "LinkChatAlias", trace.WithAttributes(
		attribute.String("username", username),
	))
	defer span.End()

	if err := s.repo.SetPlatformAlias(ctx, nil, username, identitydb.PlatformChat, alias); err != nil {
		span.RecordError(err)
		return fmt.Errorf("LinkChatAlias: %w", err)
	}
	s.logger.InfoContext(ctx, "Chat alias linked",
		slog.String("username", username),
		slog.String("alias", alias),
	)
	return nil
}

// SetRole updates a contributor's role tag. Roles drive leaderboard
// exclusion; contributors are never deleted, only re-tagged.
func (s *Service) SetRole(ctx context.Context, username, role string) error {
	if err := s.repo.SetRole(ctx, nil, username, role); err != nil {
		return fmt.Errorf("SetRole: %w", err)
	}
	s.logger.InfoContext(ctx, "Contributor role updated",
		slog.String("username", username),
		slog.String("role", role),
	)
	return nil
}

// ListContributors returns every contributor ordered by username.
func (s *Service) ListContributors(ctx context.Context) ([]*identitydb.Contributor, error) {
	contributors, err := s.repo.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ListContributors: %w", err)
	}
	return contributors, nil
}
