package dto

import (
	"time"

	"github.com/noah-isme/gema-crosscheck-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// ActivityListRequest defines filters for retrieving cross-check activity logs.
type ActivityListRequest struct {
	Page         int    `validate:"gte=0"`
	PageSize     int    `validate:"gte=0,lte=100"`
	CourseTaskID uint   `validate:"required,gt=0"`
	Action       string `validate:"omitempty,oneof=crosscheck.distributed crosscheck.completed"`
}

// ActivityResponse serializes activity log entries.
type ActivityResponse struct {
	ID           uint                   `json:"id"`
	ActorID      uint                   `json:"actor_id"`
	ActorRole    string                 `json:"actor_role"`
	Action       string                 `json:"action"`
	CourseTaskID uint                   `json:"course_task_id"`
	Metadata     map[string]interface{} `json:"metadata"`
	CreatedAt    time.Time              `json:"created_at"`
}

// ActivityListResponse wraps paginated activity logs.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewActivityResponse converts an activity log model into a DTO.
func NewActivityResponse(model models.ActivityLog) ActivityResponse {
	metadata := map[string]interface{}{}
	for key, value := range model.Metadata {
		metadata[key] = value
	}

	return ActivityResponse{
		ID:           model.ID,
		ActorID:      model.ActorID,
		ActorRole:    model.ActorRole,
		Action:       model.Action,
		CourseTaskID: model.CourseTaskID,
		Metadata:     metadata,
		CreatedAt:    model.CreatedAt,
	}
}
