package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"

	"github.com/devpulse-io/devpulse/app/jobs"
	activityservice "github.com/devpulse-io/devpulse/app/modules/activity/application"
	activitydb "github.com/devpulse-io/devpulse/app/modules/activity/infrastructure/repositories"
	identityservice "github.com/devpulse-io/devpulse/app/modules/identity/application"
	identitydb "github.com/devpulse-io/devpulse/app/modules/identity/infrastructure/repositories"
	insightsservice "github.com/devpulse-io/devpulse/app/modules/insights/application"
	stagingservice "github.com/devpulse-io/devpulse/app/modules/staging/application"
	appsync "github.com/devpulse-io/devpulse/app/sync"
	"github.com/devpulse-io/devpulse/config"
	"github.com/devpulse-io/devpulse/db/bundb"
	"github.com/devpulse-io/devpulse/internal/api"
	"github.com/devpulse-io/devpulse/internal/observability"
	"github.com/devpulse-io/devpulse/internal/scrape/chat"
	"github.com/devpulse-io/devpulse/internal/scrape/github"
)

func main() {
	app := &cli.App{
		Name:  "devpulse",
		Usage: "contribution activity ingestion and aggregation engine",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to the configuration file"},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			syncCommand(),
			promoteCommand(),
			leaderboardCommand(),
			topCommand(),
			profileCommand(),
			exportCommand(),
			contributorCommand(),
			seedCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// env bundles everything a command needs after setup.
type env struct {
	cfg      *config.Config
	dbs      *bundb.DBService
	logger   *slog.Logger
	metrics  *observability.Metrics
	registry *prometheus.Registry
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := observability.NewLogger(cfg.Observability.Environment, cfg.Observability.LogLevel)
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	dbs, err := bundb.NewDBService(c.Context, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &env{cfg: cfg, dbs: dbs, logger: log, metrics: metrics, registry: registry}, nil
}

func (e *env) close() {
	if err := e.dbs.Close(); err != nil {
		e.logger.Error("Error closing database connection", "error", err)
	}
}

func (e *env) activityService() *activityservice.Service {
	return activityservice.NewService(
		e.dbs.Activities, e.dbs.Identity, e.dbs.GetDB(),
		e.logger, e.metrics, otel.Tracer("devpulse"), e.cfg.Ingest.BatchSize,
	)
}

func (e *env) stagingService() *stagingservice.Service {
	return stagingservice.NewService(
		e.dbs.Staging, e.dbs.Identity, e.dbs.Activities, e.dbs.GetDB(),
		e.logger, e.metrics, otel.Tracer("devpulse"),
		e.cfg.Chat.ChannelID, e.cfg.Chat.MinMessageLength,
	)
}

func (e *env) insightsService() *insightsservice.Service {
	return insightsservice.NewService(
		e.dbs.Insights, e.dbs.Identity,
		e.logger, e.metrics, otel.Tracer("devpulse"),
	)
}

func (e *env) identityService() *identityservice.Service {
	return identityservice.NewService(e.dbs.Identity, e.logger, otel.Tracer("devpulse"))
}

func (e *env) syncRunner(ctx context.Context) (*appsync.Runner, error) {
	if err := e.cfg.ValidateScrape(); err != nil {
		return nil, err
	}
	githubClient := github.NewClient(ctx, e.cfg.GitHub.BaseURL, e.cfg.GitHub.Org, e.cfg.GitHub.Token)
	var chatClient appsync.ChatSource
	if e.cfg.Chat.Token != "" && e.cfg.Chat.ChannelID != "" {
		chatClient = chat.NewClient(e.cfg.Chat.BaseURL, e.cfg.Chat.Token)
	}
	return appsync.NewRunner(
		githubClient, chatClient,
		e.activityService(), e.stagingService(),
		e.cfg.GitHub, e.cfg.Chat,
		e.logger, e.metrics, otel.Tracer("devpulse"),
	), nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: withMigrators(func(c *cli.Context, e *env, migrators []namedMigrator) error {
					for _, m := range migrators {
						fmt.Printf("Initializing migrations for module: %s\n", m.name)
						if err := m.migrator.Init(c.Context); err != nil {
							return err
						}
					}
					return nil
				}),
			},
			{
				Name:  "up",
				Usage: "run pending migrations",
				Action: withMigrators(func(c *cli.Context, e *env, migrators []namedMigrator) error {
					for _, m := range migrators {
						group, err := m.migrator.Migrate(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("No new migrations to run for module: %s\n", m.name)
						} else {
							fmt.Printf("Migrated module %s to %s\n", m.name, group)
						}
					}
					if err := jobs.MigrateQueue(c.Context, e.cfg.Postgres.DSN); err != nil {
						return err
					}
					fmt.Println("Job queue schema is up to date")
					return nil
				}),
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group",
				Action: withMigrators(func(c *cli.Context, e *env, migrators []namedMigrator) error {
					for i := len(migrators) - 1; i >= 0; i-- {
						m := migrators[i]
						group, err := m.migrator.Rollback(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("No groups to roll back for module: %s\n", m.name)
						} else {
							fmt.Printf("Rolled back module %s to %s\n", m.name, group)
						}
					}
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print migration status",
				Action: withMigrators(func(c *cli.Context, e *env, migrators []namedMigrator) error {
					for _, m := range migrators {
						status, err := m.migrator.MigrationsWithStatus(c.Context)
						if err != nil {
							return err
						}
						fmt.Printf("%s: %s (unapplied: %s)\n", m.name, status, status.Unapplied())
					}
					return nil
				}),
			},
		},
	}
}

// namedMigrator is one module's migrator; slice order is apply order, since
// the activity tables reference contributors.
type namedMigrator struct {
	name     string
	migrator *migrate.Migrator
}

func withMigrators(action func(*cli.Context, *env, []namedMigrator) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := setup(c)
		if err != nil {
			return err
		}
		defer e.close()

		db := e.dbs.GetDB()
		var migrators []namedMigrator
		for _, m := range bundb.ModuleMigrations() {
			migrators = append(migrators, namedMigrator{name: m.Name, migrator: migrate.NewMigrator(db, m.Migrations)})
		}
		return action(c, e, migrators)
	}
}

func sinceFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "since",
		Usage: `start of the window ("30 days ago", "last monday", or RFC3339)`,
	}
}

func untilFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "until",
		Usage: `end of the window (natural language or RFC3339, defaults to now)`,
	}
}

// parseMoment accepts RFC3339 or natural language ("2 weeks ago").
func parseMoment(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed, nil
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	result, err := w.Parse(raw, time.Now())
	if err != nil || result == nil {
		return time.Time{}, fmt.Errorf("could not parse time %q", raw)
	}
	return result.Time, nil
}

func window(c *cli.Context) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	start, err := parseMoment(c.String("since"), now.AddDate(0, 0, -30))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseMoment(c.String("until"), now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("until %s precedes since %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return start, end, nil
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "scrape the platforms and ingest activities",
		Flags: []cli.Flag{sinceFlag()},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			since, err := parseMoment(c.String("since"), time.Time{})
			if err != nil {
				return err
			}
			runner, err := e.syncRunner(c.Context)
			if err != nil {
				return err
			}
			report, err := runner.Run(c.Context, since)
			if err != nil {
				return err
			}
			fmt.Printf("Sync %s finished in %s: %d activities upserted, %d events dropped, %d messages staged, %d authors promoted\n",
				report.RunID, report.Duration.Round(time.Millisecond), report.Upserted, report.Dropped, report.Staged, report.PromotedAuthors)
			for _, alias := range report.UnmatchedAliases {
				fmt.Printf("  unmatched chat alias: %s (left staged)\n", alias)
			}
			return nil
		},
	}
}

func promoteCommand() *cli.Command {
	return &cli.Command{
		Name:  "promote",
		Usage: "promote staged chat messages into daily update activities",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			result, err := e.stagingService().Promote(c.Context)
			if err != nil {
				return err
			}
			fmt.Printf("Promoted %d author groups, skipped %d\n", result.Processed, result.Skipped)
			for _, alias := range result.UnmatchedAliases {
				fmt.Printf("  unmatched chat alias: %s (left staged)\n", alias)
			}
			return nil
		},
	}
}

func leaderboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "leaderboard",
		Usage: "print the points leaderboard for a time window",
		Flags: []cli.Flag{sinceFlag(), untilFlag()},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			start, end, err := window(c)
			if err != nil {
				return err
			}
			entries, err := e.insightsService().ComputeLeaderboard(c.Context, start, end, e.cfg.Ingest.ExcludedRoles)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No activity in the selected window.")
				return nil
			}
			for i, entry := range entries {
				fmt.Printf("%3d. %-24s %5d points\n", i+1, entry.Username, entry.TotalPoints)
			}
			return nil
		},
	}
}

func topCommand() *cli.Command {
	return &cli.Command{
		Name:  "top",
		Usage: "print the top contributors per activity type",
		Flags: []cli.Flag{
			sinceFlag(),
			untilFlag(),
			&cli.StringSliceFlag{Name: "activity", Usage: "activity definition slug (repeatable, defaults to all)"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			start, end, err := window(c)
			if err != nil {
				return err
			}
			tops, err := e.insightsService().ComputeTopContributorsByActivity(c.Context, start, end, c.StringSlice("activity"), e.cfg.Ingest.ExcludedRoles)
			if err != nil {
				return err
			}
			for _, top := range tops {
				fmt.Printf("%s (%s):\n", top.Name, top.Slug)
				for _, summary := range top.Top {
					fmt.Printf("  %-24s %5d points (%d activities)\n", summary.Username, summary.Points, summary.Count)
				}
			}
			return nil
		},
	}
}

func profileCommand() *cli.Command {
	return &cli.Command{
		Name:      "profile",
		Usage:     "print one contributor's activity history",
		ArgsUsage: "<username>",
		Action: func(c *cli.Context) error {
			username := c.Args().First()
			if username == "" {
				return fmt.Errorf("username argument is required")
			}
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			profile, err := e.insightsService().ComputeContributorProfile(c.Context, username)
			if err != nil {
				return err
			}
			if profile.Contributor == nil {
				fmt.Printf("No contributor named %q\n", username)
				return nil
			}
			fmt.Printf("%s (%s) — %d points across %d activities\n",
				profile.Contributor.Username, profile.Contributor.Role, profile.TotalPoints, len(profile.Activities))
			for _, row := range profile.Activities {
				fmt.Printf("  %s  %-18s %s\n", row.OccurredAt.Format("2006-01-02"), row.DefinitionSlug, row.Title)
			}
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "export the leaderboard as a spreadsheet or trend chart",
		Flags: []cli.Flag{
			sinceFlag(),
			untilFlag(),
			&cli.StringFlag{Name: "format", Value: "xlsx", Usage: "xlsx or chart"},
			&cli.StringFlag{Name: "out", Usage: "output file (defaults to leaderboard.<ext>)"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			start, end, err := window(c)
			if err != nil {
				return err
			}
			entries, err := e.insightsService().ComputeLeaderboard(c.Context, start, end, e.cfg.Ingest.ExcludedRoles)
			if err != nil {
				return err
			}

			var payload []byte
			var defaultName string
			switch c.String("format") {
			case "xlsx":
				payload, err = insightsservice.ExportLeaderboardXLSX(entries)
				defaultName = "leaderboard.xlsx"
			case "chart":
				payload, err = insightsservice.GenerateTrendChart(entries)
				defaultName = "leaderboard.png"
			default:
				return fmt.Errorf("unknown export format %q", c.String("format"))
			}
			if err != nil {
				return err
			}

			out := c.String("out")
			if out == "" {
				out = defaultName
			}
			if err := os.WriteFile(out, payload, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Printf("Wrote %s (%d bytes)\n", out, len(payload))
			return nil
		},
	}
}

func contributorCommand() *cli.Command {
	return &cli.Command{
		Name:  "contributor",
		Usage: "manage contributor identities",
		Subcommands: []*cli.Command{
			{
				Name:      "link-alias",
				Usage:     "link a chat alias to a contributor",
				ArgsUsage: "<username> <alias>",
				Action: func(c *cli.Context) error {
					username, alias := c.Args().Get(0), c.Args().Get(1)
					if username == "" || alias == "" {
						return fmt.Errorf("username and alias arguments are required")
					}
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.close()
					if err := e.identityService().LinkChatAlias(c.Context, username, alias); err != nil {
						return err
					}
					fmt.Printf("Linked chat alias %s to %s\n", alias, username)
					return nil
				},
			},
			{
				Name:      "set-role",
				Usage:     "set a contributor's role",
				ArgsUsage: "<username> <role>",
				Action: func(c *cli.Context) error {
					username, role := c.Args().Get(0), c.Args().Get(1)
					if username == "" || role == "" {
						return fmt.Errorf("username and role arguments are required")
					}
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.close()
					if err := e.identityService().SetRole(c.Context, username, role); err != nil {
						return err
					}
					fmt.Printf("Set role of %s to %s\n", username, role)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "list contributors",
				Action: func(c *cli.Context) error {
					e, err := setup(c)
					if err != nil {
						return err
					}
					defer e.close()
					contributors, err := e.identityService().ListContributors(c.Context)
					if err != nil {
						return err
					}
					for _, contributor := range contributors {
						fmt.Printf("%-24s %-12s %s\n", contributor.Username, contributor.Role, contributor.DisplayName)
					}
					return nil
				},
			},
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "populate the database with demo contributors and activities",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "contributors", Value: 8, Usage: "number of demo contributors"},
			&cli.IntFlag{Name: "days", Value: 30, Usage: "activity history length in days"},
			&cli.Uint64Flag{Name: "random-seed", Usage: "fixed random seed for reproducible data"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			faker := gofakeit.New(c.Uint64("random-seed"))
			activities := e.activityService()
			if err := activities.SeedCatalog(c.Context); err != nil {
				return err
			}

			identity := e.identityService()
			catalog := activitydb.DefaultCatalog()
			now := time.Now().UTC()
			var seeded []*activitydb.Activity

			for i := 0; i < c.Int("contributors"); i++ {
				username := faker.Username()
				contributor := &identitydb.Contributor{
					Username:    username,
					DisplayName: faker.Name(),
					Role:        "contributor",
					AvatarURL:   fmt.Sprintf("https://github.com/%s.png", username),
					Bio:         faker.JobTitle(),
				}
				if err := identity.UpsertProfile(c.Context, contributor); err != nil {
					return err
				}

				for day := 0; day < c.Int("days"); day++ {
					count := faker.Number(0, 3)
					for j := 0; j < count; j++ {
						definition := catalog[faker.Number(0, len(catalog)-1)]
						occurredAt := now.AddDate(0, 0, -day).Add(-time.Duration(faker.Number(0, 86399)) * time.Second)
						seeded = append(seeded, &activitydb.Activity{
							Slug:           fmt.Sprintf("%s_seed_%s_%d_%d", definition.Slug, username, day, j),
							Contributor:    username,
							DefinitionSlug: definition.Slug,
							Title:          faker.HackerPhrase(),
							OccurredAt:     occurredAt,
							Meta:           activitydb.Meta{Source: activitydb.SourceGitHub},
						})
					}
				}
			}

			result, err := activities.UpsertActivities(c.Context, seeded, activitydb.PolicyReplace)
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d contributors and %d activities\n", c.Int("contributors"), result.Affected)
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the read API, optionally with the background scheduler",
		Action: func(c *cli.Context) error {
			e, err := setup(c)
			if err != nil {
				return err
			}
			defer e.close()

			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()

			server := api.NewServer(e.insightsService(), e.cfg.HTTP, e.cfg.Ingest.ExcludedRoles, e.registry, e.logger)

			var scheduler *jobs.Service
			if e.cfg.Scheduler.Enabled {
				runner, err := e.syncRunner(ctx)
				if err != nil {
					return err
				}
				scheduler, err = jobs.NewService(ctx, e.cfg.Postgres.DSN, runner, e.stagingService(), e.cfg.Scheduler, e.logger)
				if err != nil {
					return err
				}
				if err := scheduler.Start(ctx); err != nil {
					return err
				}
			}

			errCh := make(chan error, 1)
			go func() { errCh <- server.ListenAndServe() }()

			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-interrupt:
				e.logger.Info("Shutting down")
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()
			if scheduler != nil {
				if err := scheduler.Stop(shutdownCtx); err != nil {
					e.logger.Error("Error stopping scheduler", "error", err)
				}
			}
			return server.Shutdown(shutdownCtx)
		},
	}
}
