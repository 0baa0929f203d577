package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-crosscheck-api/internal/dto"
	"github.com/noah-isme/gema-crosscheck-api/internal/service"
	"github.com/noah-isme/gema-crosscheck-api/internal/utils"
)

// AdminCrossCheckHandler exposes distribution and completion of cross-check tasks to staff.
type AdminCrossCheckHandler struct {
	service  service.CrossCheckService
	activity service.ActivityService
	logger   zerolog.Logger
}

// NewAdminCrossCheckHandler constructs the handler.
func NewAdminCrossCheckHandler(service service.CrossCheckService, activity service.ActivityService, logger zerolog.Logger) *AdminCrossCheckHandler {
	return &AdminCrossCheckHandler{
		service:  service,
		activity: activity,
		logger:   logger.With().Str("component", "admin_cross_check_handler").Logger(),
	}
}

// Register attaches admin cross-check endpoints to the router group.
func (h *AdminCrossCheckHandler) Register(router fiber.Router) {
	group := router.Group("/courses/:courseId/tasks/:courseTaskId/cross-check")

	group.Post("/distribution", h.distribute)
	group.Post("/completion", h.complete)
	group.Get("/results", h.results)
	group.Get("/status", h.status)
	group.Get("/activity", h.listActivity)
}

func (h *AdminCrossCheckHandler) distribute(c *fiber.Ctx) error {
	courseID, taskID, err := courseTaskParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Distribute(c.UserContext(), activityActorFromContext(c), courseID, taskID)
	if err != nil {
		return writeCrossCheckError(c, h.logger, err, "failed to distribute cross-check")
	}

	return utils.SendSuccess(c, "cross-check distributed", result)
}

func (h *AdminCrossCheckHandler) complete(c *fiber.Ctx) error {
	courseID, taskID, err := courseTaskParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Complete(c.UserContext(), activityActorFromContext(c), courseID, taskID)
	if err != nil {
		return writeCrossCheckError(c, h.logger, err, "failed to complete cross-check")
	}

	return utils.SendSuccess(c, "cross-check completed", result)
}

func (h *AdminCrossCheckHandler) results(c *fiber.Ctx) error {
	courseID, taskID, err := courseTaskParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	results, err := h.service.Results(c.UserContext(), courseID, taskID)
	if err != nil {
		return writeCrossCheckError(c, h.logger, err, "failed to load results")
	}

	return utils.SendSuccess(c, "results retrieved", results)
}

func (h *AdminCrossCheckHandler) status(c *fiber.Ctx) error {
	courseID, taskID, err := courseTaskParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	status, err := h.service.Status(c.UserContext(), courseID, taskID)
	if err != nil {
		return writeCrossCheckError(c, h.logger, err, "failed to load status")
	}

	return utils.SendSuccess(c, "status retrieved", status)
}

func (h *AdminCrossCheckHandler) listActivity(c *fiber.Ctx) error {
	courseID, taskID, err := courseTaskParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	// Resolves the task so foreign or non cross-check tasks are rejected.
	if _, err := h.service.Status(c.UserContext(), courseID, taskID); err != nil {
		return writeCrossCheckError(c, h.logger, err, "failed to load activity")
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	list, err := h.activity.List(c.UserContext(), dto.ActivityListRequest{
		Page:         page,
		PageSize:     pageSize,
		CourseTaskID: taskID,
		Action:       strings.TrimSpace(c.Query("action")),
	})
	if err != nil {
		return writeCrossCheckError(c, h.logger, err, "failed to load activity")
	}

	return utils.SendSuccess(c, "activity retrieved", list)
}
