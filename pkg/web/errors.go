package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/fluxion-io/fluxion/pkg/engine"
	"github.com/fluxion-io/fluxion/pkg/persistence"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func unauthorized(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(401).
		WithInstance(c.Path()).
		WithType("unauthorized").
		WithDetail(detail)

	return c.Status(fiber.StatusUnauthorized).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleError maps engine and persistence errors to problem responses.
func handleError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsWorkflowNotFound(err):
		return notFound(c, "workflow not found")

	case persistence.IsTaskNotFound(err):
		return notFound(c, "task not found")

	case persistence.IsTriggerNotFound(err):
		return notFound(c, "trigger not found")

	case persistence.IsApprovalNotFound(err):
		return notFound(c, "approval request not found")

	case persistence.IsSuspensionNotFound(err):
		return notFound(c, "suspension not found")

	case persistence.IsInvalidTaskTransition(err):
		return conflict(c, "task is not in the required state")

	case errors.Is(err, persistence.ErrAlreadyExists):
		return conflict(c, err.Error())

	case errors.Is(err, engine.ErrApprovalDecided):
		return conflict(c, "approval request already decided")

	case errors.Is(err, engine.ErrApprovalNotDecided):
		return conflict(c, "approval request has no terminal decision")

	case errors.Is(err, engine.ErrSuspensionDiscarded):
		return conflict(c, "suspension snapshot was discarded")

	default:
		return internalError(c, err)
	}
}
