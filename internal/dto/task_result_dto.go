package dto

import (
	"time"

	"github.com/noah-isme/gema-crosscheck-api/internal/models"
)

// TaskResultResponse serializes a published task grade.
type TaskResultResponse struct {
	CourseTaskID uint                    `json:"course_task_id"`
	StudentID    uint                    `json:"student_id"`
	Score        int                     `json:"score"`
	Comment      string                  `json:"comment"`
	AuthorID     int64                   `json:"author_id"`
	History      []ScoreRevisionResponse `json:"history,omitempty"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// NewTaskResultResponse converts a task result model into a DTO.
func NewTaskResultResponse(model models.TaskResult) TaskResultResponse {
	return TaskResultResponse{
		CourseTaskID: model.CourseTaskID,
		StudentID:    model.StudentID,
		Score:        model.Score,
		Comment:      model.Comment,
		AuthorID:     model.AuthorID,
		History:      NewScoreRevisionResponses(model.History()),
		UpdatedAt:    model.UpdatedAt,
	}
}

// NewTaskResultResponseSlice converts task result models into DTOs.
func NewTaskResultResponseSlice(items []models.TaskResult) []TaskResultResponse {
	responses := make([]TaskResultResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewTaskResultResponse(item))
	}
	return responses
}
