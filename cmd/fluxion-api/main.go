package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/fluxion-io/fluxion/pkg/cmd"
	"github.com/fluxion-io/fluxion/pkg/engine"
	"github.com/fluxion-io/fluxion/pkg/log"
	"github.com/fluxion-io/fluxion/pkg/otelhelper"
	"github.com/fluxion-io/fluxion/pkg/queue"
)

const defaultPort = 9090

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "fluxion-api",
		Usage:                 "Create and manage workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
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
			&cli.StringFlag{
				Name:    "queue-url",
				Usage:   "Task queue URL (redis://...); empty runs an in-process queue",
				Value:   "",
				Sources: cli.EnvVars("QUEUE_URL"),
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

			logger.InfoContext(ctx, "Initializing Fluxion API")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "fluxion-api", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			broker, err := cmd.NewBroker(ctx, logger, command.String("queue-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := broker.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close broker", "error", err)
				}
			}()

			var tracer trace.Tracer
			if command.Bool("tracing") {
				tracer, err = otelhelper.NewTracer(ctx, "fluxion-api")
				if err != nil {
					return err
				}
			}

			registry := cmd.NewRegistry(logger)
			eng := engine.NewEngine(logger, registry, persistence, eventBus, tracer)
			approvals := engine.NewApprovalService(logger, persistence, eng, eventBus)
			taskQueue := queue.NewQueue(logger, persistence, broker, eventBus)

			// With the in-process broker nothing else can consume
			// submitted tasks, so run a worker alongside the server.
			if command.String("queue-url") == "" {
				worker := queue.NewWorker(logger, persistence, eng, broker, eventBus, 1)

				go func() {
					if err := worker.Run(ctx); err != nil {
						logger.ErrorContext(ctx, "In-process worker stopped", "error", err)
					}
				}()

				logger.InfoContext(ctx, "Started in-process task worker", "worker_id", worker.ID())
			}

			api := NewAPI(logger, persistence, eng, approvals, taskQueue)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
