// Package web provides HTTP handlers for managing workflow definitions and controlling
// workflow instances.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/Lazi-Labs/lazi-sub001/pkg/registry"
	"github.com/Lazi-Labs/lazi-sub001/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const maxListLimit = 500

// HealthChecker reports the health of a dependency.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type APIHandlers struct {
	engine      *workflow.Engine
	definitions *workflow.DefinitionService
	validator   *validator.Validate
	registry    *registry.Registry
	persistence HealthChecker
}

func NewAPIHandlers(
	engine *workflow.Engine,
	definitions *workflow.DefinitionService,
	validator *validator.Validate,
	registry *registry.Registry,
	persistence HealthChecker,
) *APIHandlers {
	return &APIHandlers{
		engine:      engine,
		definitions: definitions,
		validator:   validator,
		registry:    registry,
		persistence: persistence,
	}
}

// Routes mounts every endpoint on router.
func (h *APIHandlers) Routes(router fiber.Router) {
	router.Get("/health", h.HealthCheck)
	router.Get("/actions", h.GetActions)
	router.Post("/events", h.TriggerEvent)

	d := router.Group("/definitions")
	d.Get("/", h.GetDefinitions)
	d.Post("/", h.CreateDefinition)
	d.Get("/:id", h.GetDefinition)
	d.Put("/:id", h.UpdateDefinition)
	d.Patch("/:id/enabled", h.SetDefinitionEnabled)
	d.Get("/:id/versions/:version", h.GetDefinitionVersion)
	d.Get("/:id/triggers", h.GetDefinitionTriggers)
	d.Post("/:id/triggers", h.BindTrigger)

	router.Patch("/triggers/:id/enabled", h.SetTriggerEnabled)

	i := router.Group("/instances")
	i.Get("/", h.GetInstances)
	i.Get("/:id", h.GetInstanceStatus)
	i.Post("/:id/cancel", h.CancelInstance)
	i.Post("/:id/pause", h.PauseInstance)
	i.Post("/:id/resume", h.ResumeInstance)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()

	persistenceCheck, persistenceOk := "persistence is healthy", true
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		persistenceCheck, persistenceOk = "persistence is unhealthy: "+err.Error(), false
	}

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && persistenceOk {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"registry":    registryCheck,
			"persistence": persistenceCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetActions(c fiber.Ctx) error {
	types := h.registry.Types()
	actions := make([]ActionResponse, 0, len(types))

	for _, actionType := range types {
		handler, _ := h.registry.Handler(actionType)
		actions = append(actions, ActionResponse{Type: actionType, Schema: handler.Schema()})
	}

	return c.JSON(actions)
}

func (h *APIHandlers) TriggerEvent(c fiber.Ctx) error {
	var req TriggerEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	instances, err := h.engine.TriggerWorkflows(c.Context(), req.EventName, req.EntityType, req.EntityID, req.Context)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(TriggerEventResponse{Instances: instances})
}

func (h *APIHandlers) GetDefinitions(c fiber.Ctx) error {
	definitions, err := h.definitions.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	if definitions == nil {
		definitions = []*models.WorkflowDefinition{}
	}

	return c.JSON(definitions)
}

func (h *APIHandlers) CreateDefinition(c fiber.Ctx) error {
	var req DefinitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.definitions.Create(c.Context(), req.ToModel())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetDefinition(c fiber.Ctx) error {
	definition, err := h.definitions.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(definition)
}

func (h *APIHandlers) UpdateDefinition(c fiber.Ctx) error {
	var req DefinitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.definitions.Update(c.Context(), c.Params("id"), req.ToModel())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) SetDefinitionEnabled(c fiber.Ctx) error {
	var req EnabledRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	definition, err := h.definitions.SetEnabled(c.Context(), c.Params("id"), *req.Enabled)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(definition)
}

func (h *APIHandlers) GetDefinitionVersion(c fiber.Ctx) error {
	version, err := strconv.Atoi(c.Params("version"))
	if err != nil || version < 1 {
		return badRequest(c, "Version must be a positive integer")
	}

	definition, err := h.definitions.GetVersion(c.Context(), c.Params("id"), version)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(definition)
}

func (h *APIHandlers) GetDefinitionTriggers(c fiber.Ctx) error {
	triggers, err := h.definitions.Triggers(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	if triggers == nil {
		triggers = []*models.Trigger{}
	}

	return c.JSON(triggers)
}

func (h *APIHandlers) BindTrigger(c fiber.Ctx) error {
	var req BindTriggerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	id := c.Params("id")

	eventName := req.EventName
	if eventName == "" {
		definition, err := h.definitions.Get(c.Context(), id)
		if err != nil {
			return handleServiceError(c, err)
		}

		eventName = definition.TriggerEvent
	}

	trigger, err := h.definitions.BindTrigger(c.Context(), eventName, id, req.Priority)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(trigger)
}

func (h *APIHandlers) SetTriggerEnabled(c fiber.Ctx) error {
	var req EnabledRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	trigger, err := h.definitions.SetTriggerEnabled(c.Context(), c.Params("id"), *req.Enabled)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(trigger)
}

func (h *APIHandlers) GetInstances(c fiber.Ctx) error {
	filter, err := parseInstanceFilter(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	instances, err := h.engine.ListInstances(c.Context(), filter)
	if err != nil {
		return handleServiceError(c, err)
	}

	if instances == nil {
		instances = []*models.WorkflowInstance{}
	}

	return c.JSON(instances)
}

func parseInstanceFilter(c fiber.Ctx) (persistence.InstanceFilter, error) {
	filter := persistence.InstanceFilter{
		DefinitionID: c.Query("definition_id"),
		EntityType:   c.Query("entity_type"),
		EntityID:     c.Query("entity_id"),
		Status:       models.InstanceStatus(c.Query("status")),
		Limit:        100,
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return filter, err
		}

		filter.Limit = min(max(limit, 1), maxListLimit)
	}

	return filter, nil
}

func (h *APIHandlers) GetInstanceStatus(c fiber.Ctx) error {
	status, err := h.engine.GetWorkflowStatus(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(status)
}

func (h *APIHandlers) CancelInstance(c fiber.Ctx) error {
	return h.control(c, h.engine.CancelWorkflow)
}

func (h *APIHandlers) PauseInstance(c fiber.Ctx) error {
	return h.control(c, h.engine.PauseWorkflow)
}

func (h *APIHandlers) ResumeInstance(c fiber.Ctx) error {
	return h.control(c, h.engine.ResumeWorkflow)
}

func (h *APIHandlers) control(c fiber.Ctx, operation func(ctx context.Context, id string) (bool, error)) error {
	id := c.Params("id")

	applied, err := operation(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	status, err := h.engine.GetWorkflowStatus(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ControlResponse{
		InstanceID: id,
		Applied:    applied,
		Status:     status.Instance.Status,
	})
}
