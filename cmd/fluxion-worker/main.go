package main

import (
	"context"
	"log/slog"
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
	"github.com/fluxion-io/fluxion/pkg/queue"
)

const (
	defaultConcurrency    = 5
	stuckCheckInterval    = time.Minute
	defaultStuckThreshold = 10 * time.Minute
)

func main() {
	command := &cli.Command{
		Name:                  "fluxion-worker",
		EnableShellCompletion: true,
		Usage:                 "Start workers to execute queued workflow tasks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "queue-url",
				Usage:    "Task queue URL (redis://...)",
				Required: true,
				Sources:  cli.EnvVars("QUEUE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Usage:   "Number of tasks to execute in parallel",
				Value:   defaultConcurrency,
				Sources: cli.EnvVars("WORKER_CONCURRENCY"),
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

			logger := log.WithModule("worker")

			logger.InfoContext(ctx, "Initializing Fluxion Worker")

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

			eventBus := cmd.NewEventBus(command.String("event-bus"), "fluxion-worker", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			broker, err := cmd.NewBroker(ctx, logger, command.String("queue-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := broker.Close(context.Background()); err != nil {
					logger.Error("Failed to close broker", "error", err)
				}
			}()

			var tracer trace.Tracer
			if command.Bool("tracing") {
				tracer, err = otelhelper.NewTracer(ctx, "fluxion-worker")
				if err != nil {
					return err
				}
			}

			registry := cmd.NewRegistry(logger)
			eng := engine.NewEngine(logger, registry, persistence, eventBus, tracer)

			taskQueue := queue.NewQueue(logger, persistence, broker, eventBus)
			go watchStuckTasks(ctx, logger, taskQueue)

			worker := queue.NewWorker(
				logger,
				persistence,
				eng,
				broker,
				eventBus,
				command.Int("concurrency"),
			)

			if err := worker.Run(ctx); err != nil {
				logger.ErrorContext(ctx, "Worker stopped with error", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

// watchStuckTasks periodically reports running tasks whose worker
// likely died. They are surfaced for operators rather than requeued:
// the execution may still be in flight.
func watchStuckTasks(ctx context.Context, logger *slog.Logger, taskQueue *queue.Queue) {
	ticker := time.NewTicker(stuckCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stuck, err := taskQueue.StuckTasks(ctx, defaultStuckThreshold)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to check for stuck tasks", "error", err)

				continue
			}

			for _, task := range stuck {
				logger.WarnContext(ctx, "Task running past threshold",
					"task_id", task.ID, "workflow_id", task.WorkflowID, "started_at", task.StartedAt)
			}
		}
	}
}
