// Package main provides the Fluxion API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/fluxion-io/fluxion/pkg/engine"
	"github.com/fluxion-io/fluxion/pkg/persistence"
	"github.com/fluxion-io/fluxion/pkg/queue"
	"github.com/fluxion-io/fluxion/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	engine      *engine.Engine
	approvals   *engine.ApprovalService
	queue       *queue.Queue
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persist persistence.Persistence,
	eng *engine.Engine,
	approvals *engine.ApprovalService,
	q *queue.Queue,
) *API {
	return &API{
		logger:      logger,
		persistence: persist,
		engine:      eng,
		approvals:   approvals,
		queue:       q,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.logger, a.persistence, a.engine, a.approvals, a.queue, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Fluxion API")
	})

	app.Get("/health", handlers.HealthCheck)

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.SaveWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)
	w.Post("/:id/tasks", handlers.SubmitTask)

	t := app.Group("/tasks")
	t.Get("/:id", handlers.GetTask)
	t.Delete("/:id", handlers.CancelTask)

	ap := app.Group("/approvals")
	ap.Get("/:id", handlers.GetApproval)
	ap.Post("/:id/decisions", handlers.DecideApproval)
	ap.Delete("/:id", handlers.CancelApproval)

	tr := app.Group("/triggers")
	tr.Post("/", handlers.CreateTrigger)
	tr.Get("/:id", handlers.GetTrigger)
	tr.Delete("/:id", handlers.DeleteTrigger)
	tr.Get("/:id/logs", handlers.GetTriggerLogs)

	app.Post("/hooks/:path", handlers.Webhook)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
