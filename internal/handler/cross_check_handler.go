package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-crosscheck-api/internal/crosscheck"
	"github.com/noah-isme/gema-crosscheck-api/internal/dto"
	"github.com/noah-isme/gema-crosscheck-api/internal/service"
	"github.com/noah-isme/gema-crosscheck-api/internal/utils"
)

// CrossCheckHandler exposes the student facing cross-check endpoints.
type CrossCheckHandler struct {
	service       service.CrossCheckService
	reviewLimiter fiber.Handler
	logger        zerolog.Logger
}

// NewCrossCheckHandler constructs the handler. reviewLimiter guards review submissions and may be nil.
func NewCrossCheckHandler(service service.CrossCheckService, reviewLimiter fiber.Handler, logger zerolog.Logger) *CrossCheckHandler {
	return &CrossCheckHandler{
		service:       service,
		reviewLimiter: reviewLimiter,
		logger:        logger.With().Str("component", "cross_check_handler").Logger(),
	}
}

// Register attaches the cross-check routes of a student's course task.
func (h *CrossCheckHandler) Register(router fiber.Router) {
	group := router.Group("/courses/:courseId/students/:githubId/tasks/:courseTaskId/cross-check")

	group.Post("/solution", h.saveSolution)
	group.Get("/solution", h.getSolution)
	if h.reviewLimiter != nil {
		group.Post("/result", h.reviewLimiter, h.submitReview)
	} else {
		group.Post("/result", h.submitReview)
	}
	group.Get("/result", h.getReview)
	group.Get("/feedback", h.getFeedback)
	group.Get("/assignments", h.listAssignments)
}

func (h *CrossCheckHandler) saveSolution(c *fiber.Ctx) error {
	ref, err := studentTaskRef(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SolutionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	solution, err := h.service.SaveSolution(c.UserContext(), activityActorFromContext(c), ref, payload)
	if err != nil {
		return writeCrossCheckError(c, h.logger, err, "failed to save solution")
	}

	return utils.SendSuccess(c, "solution saved", solution)
}

func (h *CrossCheckHandler) getSolution(c *fiber.Ctx) error {
	ref, err := studentTaskRef(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	solution, err := h.service.GetSolution(c.UserContext(), activityActorFromContext(c), ref)
	if err != nil {
		return writeCrossCheckError(c, h.logger, err, "failed to load solution")
	}

	return utils.SendSuccess(c, "solution retrieved", solution)
}

func (h *CrossCheckHandler) submitReview(c *fiber.Ctx) error {
	ref, err := studentTaskRef(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ReviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	review, err := h.service.SubmitReview(c.UserContext(), activityActorFromContext(c), ref, payload)
	if err != nil {
		return writeCrossCheckError(c, h.logger, err, "failed to save review")
	}

	return utils.SendSuccess(c, "review saved", review)
}

func (h *CrossCheckHandler) getReview(c *fiber.Ctx) error {
	ref, err := studentTaskRef(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	review, err := h.service.GetReview(c.UserContext(), activityActorFromContext(c), ref)
	if err != nil {
		return writeCrossCheckError(c, h.logger, err, "failed to load review")
	}

	return utils.SendSuccess(c, "review retrieved", review)
}

func (h *CrossCheckHandler) getFeedback(c *fiber.Ctx) error {
	ref, err := studentTaskRef(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	feedback, err := h.service.GetFeedback(c.UserContext(), activityActorFromContext(c), ref)
	if err != nil {
		return writeCrossCheckError(c, h.logger, err, "failed to load feedback")
	}

	return utils.SendSuccess(c, "feedback retrieved", feedback)
}

func (h *CrossCheckHandler) listAssignments(c *fiber.Ctx) error {
	ref, err := studentTaskRef(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignments, err := h.service.ListAssignments(c.UserContext(), activityActorFromContext(c), ref)
	if err != nil {
		return writeCrossCheckError(c, h.logger, err, "failed to load assignments")
	}

	return utils.SendSuccess(c, "assignments retrieved", assignments)
}

func studentTaskRef(c *fiber.Ctx) (service.StudentTaskRef, error) {
	courseID, taskID, err := courseTaskParams(c)
	if err != nil {
		return service.StudentTaskRef{}, err
	}

	return service.StudentTaskRef{
		CourseID:     courseID,
		CourseTaskID: taskID,
		GithubID:     c.Params("githubId"),
	}, nil
}

func courseTaskParams(c *fiber.Ctx) (uint, uint, error) {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return 0, 0, err
	}
	taskID, err := parseUintParam(c, "courseTaskId")
	if err != nil {
		return 0, 0, err
	}
	return courseID, taskID, nil
}

func writeCrossCheckError(c *fiber.Ctx, logger zerolog.Logger, err error, message string) error {
	switch {
	case isValidationError(err):
		return utils.SendErrorWithDetails(c, fiber.StatusUnprocessableEntity, "invalid payload", validationDetails(err))
	case errors.Is(err, service.ErrInvalidTask),
		errors.Is(err, service.ErrNotAssigned),
		errors.Is(err, service.ErrSolutionNotFound),
		errors.Is(err, service.ErrScoreExceedsMax),
		errors.Is(err, crosscheck.ErrInvalidConfiguration):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrCrossCheckForbidden):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, service.ErrReviewNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrTaskBusy):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg(message)
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}
}
