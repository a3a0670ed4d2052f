package web

import (
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/Lazi-Labs/lazi-sub001/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, kind, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps engine and persistence errors to problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case workflow.IsInvalidDefinition(err):
		return badRequest(c, err.Error())

	case persistence.IsDefinitionNotFound(err):
		return notFound(c, "definition_not_found", "workflow definition not found")

	case persistence.IsInstanceNotFound(err):
		return notFound(c, "instance_not_found", "workflow instance not found")

	case persistence.IsTriggerNotFound(err):
		return notFound(c, "trigger_not_found", "trigger not found")

	case workflow.IsInstanceLocked(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("conflict").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	default:
		return internalError(c, err)
	}
}
