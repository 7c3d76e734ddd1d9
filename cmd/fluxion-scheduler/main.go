package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/fluxion-io/fluxion/pkg/cmd"
	"github.com/fluxion-io/fluxion/pkg/engine"
	"github.com/fluxion-io/fluxion/pkg/log"
	"github.com/fluxion-io/fluxion/pkg/otelhelper"
	"github.com/fluxion-io/fluxion/pkg/scheduler"
)

const (
	defaultSyncInterval  = 30 * time.Second
	defaultSweepInterval = time.Minute
)

func main() {
	command := &cli.Command{
		Name:                  "fluxion-scheduler",
		EnableShellCompletion: true,
		Usage:                 "Fire schedule triggers and expire pending approvals",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.DurationFlag{
				Name:    "sync-interval",
				Usage:   "How often to reload triggers from the store",
				Value:   defaultSyncInterval,
				Sources: cli.EnvVars("SYNC_INTERVAL"),
			},
			&cli.DurationFlag{
				Name:    "sweep-interval",
				Usage:   "How often to expire overdue approval requests",
				Value:   defaultSweepInterval,
				Sources: cli.EnvVars("SWEEP_INTERVAL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("scheduler")

			logger.InfoContext(ctx, "Initializing Fluxion Scheduler")

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(context.Background()); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "fluxion-scheduler", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			var tracer trace.Tracer
			if command.Bool("tracing") {
				tracer, err = otelhelper.NewTracer(ctx, "fluxion-scheduler")
				if err != nil {
					return err
				}
			}

			registry := cmd.NewRegistry(logger)
			eng := engine.NewEngine(logger, registry, persistence, eventBus, tracer)
			approvals := engine.NewApprovalService(logger, persistence, eng, eventBus)

			sched := scheduler.NewScheduler(logger, persistence, eng, eventBus)
			if err := sched.Start(ctx); err != nil {
				return err
			}

			sweeper := scheduler.NewApprovalSweeper(logger, approvals, command.Duration("sweep-interval"))
			go sweeper.Run(ctx)

			syncTicker := time.NewTicker(command.Duration("sync-interval"))
			defer syncTicker.Stop()

			for {
				select {
				case <-ctx.Done():
					stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
					defer cancel()

					return sched.Stop(stopCtx)
				case <-syncTicker.C:
					if err := sched.Sync(ctx); err != nil {
						logger.ErrorContext(ctx, "Trigger sync failed", "error", err)
					}
				}
			}
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
