package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-crosscheck-api/internal/dto"
	"github.com/noah-isme/gema-crosscheck-api/internal/service"
	"github.com/noah-isme/gema-crosscheck-api/internal/utils"
)

const scoreStreamPingInterval = 30 * time.Second

// ScoreStreamMessage is one frame of the published score stream.
type ScoreStreamMessage struct {
	Type         string                  `json:"type"`
	CourseTaskID uint                    `json:"course_task_id"`
	Result       *dto.TaskResultResponse `json:"result,omitempty"`
}

// ScoreStreamHandler pushes published cross-check scores of a task to staff over a websocket.
type ScoreStreamHandler struct {
	service service.CrossCheckService
	events  service.ScoreEventPublisher
	logger  zerolog.Logger
}

// NewScoreStreamHandler constructs the handler.
func NewScoreStreamHandler(service service.CrossCheckService, events service.ScoreEventPublisher, logger zerolog.Logger) *ScoreStreamHandler {
	return &ScoreStreamHandler{
		service: service,
		events:  events,
		logger:  logger.With().Str("component", "score_stream_handler").Logger(),
	}
}

// Register binds the stream route under the provided router group.
func (h *ScoreStreamHandler) Register(router fiber.Router) {
	group := router.Group("/courses/:courseId/tasks/:courseTaskId/cross-check/results")

	group.Use("/ws", h.upgrade)
	group.Get("/ws", websocket.New(h.stream))
}

func (h *ScoreStreamHandler) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	courseID, taskID, err := courseTaskParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if _, err := h.service.Status(c.UserContext(), courseID, taskID); err != nil {
		return writeCrossCheckError(c, h.logger, err, "failed to open score stream")
	}

	c.Locals("course_task_id", taskID)
	return c.Next()
}

func (h *ScoreStreamHandler) stream(conn *websocket.Conn) {
	taskID, _ := conn.Locals("course_task_id").(uint)
	correlation, _ := conn.Locals("correlation_id").(string)
	logger := h.logger.With().Uint("course_task_id", taskID).Str("correlation_id", correlation).Logger()

	results, unsubscribe := h.events.Subscribe(taskID)
	defer unsubscribe()

	if err := conn.WriteJSON(ScoreStreamMessage{Type: "subscribed", CourseTaskID: taskID}); err != nil {
		return
	}
	logger.Info().Msg("score stream connected")
	defer logger.Info().Msg("score stream disconnected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(scoreStreamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case result, ok := <-results:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ScoreStreamMessage{Type: "score", CourseTaskID: taskID, Result: &result}); err != nil {
				logger.Debug().Err(err).Msg("score stream write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
