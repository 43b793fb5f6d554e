// Package web provides HTTP handlers and REST API endpoints for recruitment pipelines.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/hirepath/hirepath/pkg/models"
	"github.com/hirepath/hirepath/pkg/services"
)

type APIHandlers struct {
	workflowService *services.Workflow
	stageService    *services.Stage
	reorderer       *services.StageReorderer
	progression     *services.Progression
	worklistBuilder *services.WorklistBuilder
	validator       *validator.Validate
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	stageService *services.Stage,
	reorderer *services.StageReorderer,
	progression *services.Progression,
	worklistBuilder *services.WorklistBuilder,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		stageService:    stageService,
		reorderer:       reorderer,
		progression:     progression,
		worklistBuilder: worklistBuilder,
		validator:       validator,
	}
}

// RegisterRoutes mounts every endpoint on the router.
func RegisterRoutes(router fiber.Router, handlers *APIHandlers) {
	router.Get("/health", handlers.HealthCheck)

	w := router.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/default", handlers.GetDefaultWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/activate", handlers.ActivateWorkflow)
	w.Post("/:id/deactivate", handlers.DeactivateWorkflow)
	w.Post("/:id/archive", handlers.ArchiveWorkflow)
	w.Post("/:id/default", handlers.SetDefaultWorkflow)
	w.Delete("/:id/default", handlers.UnsetDefaultWorkflow)

	// Stage endpoints:
	w.Get("/:id/stages", handlers.GetStages)
	w.Post("/:id/stages", handlers.CreateStage)
	w.Get("/:id/final-stages", handlers.GetFinalStages)

	s := router.Group("/stages")
	s.Get("/:id", handlers.GetStage)
	s.Patch("/:id", handlers.UpdateStage)
	s.Delete("/:id", handlers.DeleteStage)
	s.Post("/:id/move-up", handlers.MoveStageUp)
	s.Post("/:id/move-down", handlers.MoveStageDown)

	a := router.Group("/applications")
	a.Get("/:id", handlers.GetApplication)
	a.Post("/:id/move", handlers.MoveApplication)
	a.Put("/:id/task-status", handlers.UpdateTaskStatus)
	a.Get("/:id/history", handlers.GetApplicationHistory)
	a.Get("/:id/history/current", handlers.GetCurrentHistoryRecord)

	h := router.Group("/history")
	h.Post("/:id/complete", handlers.CompleteHistoryRecord)
	h.Patch("/:id/data", handlers.UpdateHistoryData)

	router.Get("/phases/:id/stages", handlers.GetPhaseStages)
	router.Get("/users/:id/worklist", handlers.GetWorklist)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Hirepath API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Hirepath API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	req := services.ListWorkflowsRequest{
		CompanyID: c.Query("company_id"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if kind := c.Query("kind"); kind != "" {
		k := models.WorkflowKind(kind)
		req.Kind = &k
	}

	if status := c.Query("status"); status != "" {
		s := models.WorkflowStatus(status)
		req.Status = &s
	}

	workflows, err := h.workflowService.List(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
		"sorting": fiber.Map{
			"sort_by":    req.SortBy,
			"sort_order": req.SortOrder,
		},
	})
}

func (h *APIHandlers) GetDefaultWorkflow(c fiber.Ctx) error {
	companyID := c.Query("company_id")
	kind := c.Query("kind")

	if companyID == "" || kind == "" {
		return badRequest(c, "company_id and kind are required")
	}

	workflow, err := h.workflowService.FetchDefault(c.Context(), companyID, models.WorkflowKind(kind))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req services.CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	created, err := h.workflowService.Create(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req services.UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	updated, err := h.workflowService.Update(c.Context(), c.Params("id"), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	err := h.workflowService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ActivateWorkflow(c fiber.Ctx) error {
	return h.workflowTransition(c, h.workflowService.Activate)
}

func (h *APIHandlers) DeactivateWorkflow(c fiber.Ctx) error {
	return h.workflowTransition(c, h.workflowService.Deactivate)
}

func (h *APIHandlers) ArchiveWorkflow(c fiber.Ctx) error {
	return h.workflowTransition(c, h.workflowService.Archive)
}

func (h *APIHandlers) SetDefaultWorkflow(c fiber.Ctx) error {
	return h.workflowTransition(c, h.workflowService.SetAsDefault)
}

func (h *APIHandlers) UnsetDefaultWorkflow(c fiber.Ctx) error {
	return h.workflowTransition(c, h.workflowService.UnsetAsDefault)
}

func (h *APIHandlers) workflowTransition(
	c fiber.Ctx,
	transition func(ctx context.Context, workflowID string) (*models.Workflow, error),
) error {
	workflow, err := transition(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) GetStages(c fiber.Ctx) error {
	workflowID := c.Params("id")

	stages, err := h.stageService.List(c.Context(), workflowID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(StageListResponse{WorkflowID: workflowID, Stages: stages})
}

func (h *APIHandlers) GetFinalStages(c fiber.Ctx) error {
	workflowID := c.Params("id")

	stages, err := h.stageService.FinalStages(c.Context(), workflowID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(StageListResponse{WorkflowID: workflowID, Stages: stages})
}

func (h *APIHandlers) GetPhaseStages(c fiber.Ctx) error {
	phaseID := c.Params("id")

	stages, err := h.stageService.ListByPhase(c.Context(), phaseID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(PhaseStageListResponse{PhaseID: phaseID, Stages: stages})
}

func (h *APIHandlers) CreateStage(c fiber.Ctx) error {
	var req services.CreateStageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	stage, err := h.stageService.Create(c.Context(), c.Params("id"), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(stage)
}

func (h *APIHandlers) GetStage(c fiber.Ctx) error {
	stage, err := h.stageService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(stage)
}

func (h *APIHandlers) UpdateStage(c fiber.Ctx) error {
	var req services.UpdateStageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	stage, err := h.stageService.Update(c.Context(), c.Params("id"), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(stage)
}

func (h *APIHandlers) DeleteStage(c fiber.Ctx) error {
	err := h.stageService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) MoveStageUp(c fiber.Ctx) error {
	return h.moveStage(c, h.reorderer.MoveUp)
}

func (h *APIHandlers) MoveStageDown(c fiber.Ctx) error {
	return h.moveStage(c, h.reorderer.MoveDown)
}

func (h *APIHandlers) moveStage(
	c fiber.Ctx,
	move func(ctx context.Context, stageID string) ([]*models.WorkflowStage, error),
) error {
	stages, err := move(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	workflowID := ""
	if len(stages) > 0 {
		workflowID = stages[0].WorkflowID
	}

	return c.JSON(StageListResponse{WorkflowID: workflowID, Stages: stages})
}

func (h *APIHandlers) GetApplication(c fiber.Ctx) error {
	application, err := h.progression.FetchApplication(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(application)
}

func (h *APIHandlers) MoveApplication(c fiber.Ctx) error {
	var req MoveApplicationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.progression.MoveToStage(c.Context(), c.Params("id"), req.StageID, req.TimeLimitHours)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(newMoveApplicationResponse(result))
}

func newMoveApplicationResponse(result *services.MoveResult) MoveApplicationResponse {
	response := MoveApplicationResponse{
		Application: result.Application,
		Record:      result.Record,
		FromStageID: result.FromStageID,
		ToStageID:   result.ToStageID,
	}

	if result.Cascade.Changed() {
		response.Cascade = &CascadeResponse{
			Cascaded:    result.Cascade.Cascaded,
			Degraded:    result.Cascade.Degraded,
			Reason:      result.Cascade.Reason,
			NextPhaseID: result.Cascade.NextPhaseID,
			WorkflowID:  result.Cascade.WorkflowID,
		}

		if result.Cascade.InitialStage != nil {
			response.Cascade.InitialStageID = &result.Cascade.InitialStage.ID
		}
	}

	return response
}

func (h *APIHandlers) UpdateTaskStatus(c fiber.Ctx) error {
	var req UpdateTaskStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	application, err := h.progression.UpdateTaskStatus(c.Context(), c.Params("id"), req.Status)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(application)
}

func (h *APIHandlers) GetApplicationHistory(c fiber.Ctx) error {
	records, err := h.progression.History().ListByApplication(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"application_id": c.Params("id"),
		"records":        records,
	})
}

func (h *APIHandlers) GetCurrentHistoryRecord(c fiber.Ctx) error {
	record, err := h.progression.History().CurrentRecord(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) CompleteHistoryRecord(c fiber.Ctx) error {
	var req services.CompleteRecordRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	record, err := h.progression.History().Complete(c.Context(), c.Params("id"), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) UpdateHistoryData(c fiber.Ctx) error {
	var patch map[string]any
	if err := c.Bind().JSON(&patch); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	record, err := h.progression.History().UpdateData(c.Context(), c.Params("id"), patch)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) GetWorklist(c fiber.Ctx) error {
	opts := services.WorklistOptions{}

	if stageID := c.Query("stage_id"); stageID != "" {
		opts.StageID = &stageID
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid query parameters: "+err.Error())
		}

		opts.Limit = limit
	}

	userID := c.Params("id")

	items, err := h.worklistBuilder.Build(c.Context(), userID, opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(WorklistResponse{
		UserID:      userID,
		Items:       items,
		GeneratedAt: time.Now().UTC(),
	})
}
