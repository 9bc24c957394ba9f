// Package jobs runs the recurring sync and promotion work on a River queue
// backed by the same Postgres instance as the rest of the system.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"

	stagingservice "github.com/devpulse-io/devpulse/app/modules/staging/application"
	appsync "github.com/devpulse-io/devpulse/app/sync"
	"github.com/devpulse-io/devpulse/config"
)

// SyncWorker executes scheduled sync runs.
type SyncWorker struct {
	river.WorkerDefaults[SyncJobArgs]
	runner *appsync.Runner
	logger *slog.Logger
	window time.Duration
}

func NewSyncWorker(runner *appsync.Runner, logger *slog.Logger, window time.Duration) *SyncWorker {
	return &SyncWorker{runner: runner, logger: logger, window: window}
}

func (w *SyncWorker) Work(ctx context.Context, job *river.Job[SyncJobArgs]) error {
	since := job.Args.Since
	if since.IsZero() && w.window > 0 {
		since = time.Now().Add(-w.window)
	}
	report, err := w.runner.Run(ctx, since)
	if err != nil {
		return fmt.Errorf("scheduled sync run failed: %w", err)
	}
	w.logger.InfoContext(ctx, "Scheduled sync run finished",
		slog.String("run_id", report.RunID.String()),
		slog.Int("upserted", report.Upserted),
	)
	return nil
}

// PromoteWorker executes scheduled staging promotions, picking up messages
// whose author alias was linked after the last sync.
type PromoteWorker struct {
	river.WorkerDefaults[PromoteJobArgs]
	staging *stagingservice.Service
	logger  *slog.Logger
}

func NewPromoteWorker(staging *stagingservice.Service, logger *slog.Logger) *PromoteWorker {
	return &PromoteWorker{staging: staging, logger: logger}
}

func (w *PromoteWorker) Work(ctx context.Context, job *river.Job[PromoteJobArgs]) error {
	result, err := w.staging.Promote(ctx)
	if err != nil {
		return fmt.Errorf("scheduled promotion failed: %w", err)
	}
	w.logger.InfoContext(ctx, "Scheduled promotion finished",
		slog.Int("processed", result.Processed),
		slog.Int("skipped", result.Skipped),
	)
	return nil
}

// Service owns the River client and its pgx pool.
type Service struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates the job scheduler. River needs its own pgx pool; the
// bun connection the repositories use cannot drive it.
func NewService(
	ctx context.Context,
	dsn string,
	runner *appsync.Runner,
	staging *stagingservice.Service,
	schedulerCfg config.SchedulerConfig,
	logger *slog.Logger,
) (*Service, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN for job queue: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool for job queue: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database for job queue: %w", err)
	}
	if err := migrateQueue(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewSyncWorker(runner, logger, schedulerCfg.SyncInterval))
	river.AddWorker(workers, NewPromoteWorker(staging, logger))

	periodic := []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(schedulerCfg.SyncInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return SyncJobArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
		river.NewPeriodicJob(
			river.PeriodicInterval(schedulerCfg.PromoteInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return PromoteJobArgs{}, nil
			},
			nil,
		),
	}

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 5},
		},
		Workers:      workers,
		PeriodicJobs: periodic,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create job queue client: %w", err)
	}

	return &Service{client: client, pool: pool, logger: logger}, nil
}

// MigrateQueue applies River's own schema (river_job and friends). The queue
// tables live outside the module migrators, so migrate up runs this as a
// separate step.
func MigrateQueue(ctx context.Context, dsn string) error {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("failed to parse DSN for job queue migrations: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool for job queue migrations: %w", err)
	}
	defer pool.Close()
	return migrateQueue(ctx, pool)
}

func migrateQueue(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create job queue migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("failed to migrate job queue schema: %w", err)
	}
	return nil
}

func (s *Service) Start(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Starting job scheduler")
	if err := s.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start job scheduler: %w", err)
	}
	return nil
}

// Stop drains in-flight jobs and closes the pool.
func (s *Service) Stop(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Stopping job scheduler")
	if err := s.client.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop job scheduler: %w", err)
	}
	s.pool.Close()
	return nil
}

// HealthCheck verifies the queue's backing pool is reachable.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("job queue client is nil")
	}
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("job queue health check failed: %w", err)
	}
	return nil
}
