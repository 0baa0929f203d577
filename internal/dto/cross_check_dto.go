package dto

import (
	"time"

	"github.com/noah-isme/gema-crosscheck-api/internal/models"
)

// SolutionRequest is the payload a student sends to submit a solution link.
type SolutionRequest struct {
	URL string `json:"url" validate:"required,url,max=1024"`
}

// SolutionResponse describes a stored solution link.
type SolutionResponse struct {
	ID          uint      `json:"id"`
	URL         string    `json:"url"`
	UpdatedDate time.Time `json:"updated_date"`
}

// ReviewRequest carries the score and comment a checker gives to a solution.
type ReviewRequest struct {
	Score   *float64 `json:"score" validate:"required,gte=0"`
	Comment string   `json:"comment" validate:"max=10000"`
}

// ScoreRevisionResponse serializes one entry of a score history.
type ScoreRevisionResponse struct {
	Score    int       `json:"score"`
	Comment  string    `json:"comment"`
	AuthorID int64     `json:"author_id"`
	DateTime time.Time `json:"date_time"`
}

// ReviewResponse is the checker's view of their own review.
type ReviewResponse struct {
	ID           uint                    `json:"id"`
	CourseTaskID uint                    `json:"course_task_id"`
	CheckerID    uint                    `json:"checker_id"`
	StudentID    uint                    `json:"student_id"`
	Score        int                     `json:"score"`
	Comment      string                  `json:"comment"`
	History      []ScoreRevisionResponse `json:"history"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// StudentBasic exposes the public identity of a student.
type StudentBasic struct {
	ID       uint   `json:"id"`
	GithubID string `json:"github_id"`
	Name     string `json:"name"`
}

// CrossCheckAssignmentResponse lists a student the checker must review.
type CrossCheckAssignmentResponse struct {
	Student StudentBasic `json:"student"`
	URL     string       `json:"url"`
}

// FeedbackComment is an anonymous review comment.
type FeedbackComment struct {
	Comment string `json:"comment"`
}

// FeedbackResponse gathers anonymous feedback for a student's solution.
type FeedbackResponse struct {
	URL      string            `json:"url"`
	Comments []FeedbackComment `json:"comments"`
}

// PairResponse describes one created checker assignment.
type PairResponse struct {
	CheckerID      uint `json:"checker_id"`
	StudentID      uint `json:"student_id"`
	TaskSolutionID uint `json:"task_solution_id"`
}

// DistributionResponse reports the assignments created by a distribution run.
type DistributionResponse struct {
	CourseTaskID uint           `json:"course_task_id"`
	PairsCount   int            `json:"pairs_count"`
	Created      int            `json:"created"`
	Pairs        []PairResponse `json:"pairs"`
}

// CompletionResponse reports the scores published by a completion run.
type CompletionResponse struct {
	CourseTaskID    uint                 `json:"course_task_id"`
	RequiredReviews int                  `json:"required_reviews"`
	Results         []TaskResultResponse `json:"results"`
}

// CrossCheckStatusResponse exposes the lifecycle state of a cross-check task.
type CrossCheckStatusResponse struct {
	CourseTaskID uint       `json:"course_task_id"`
	State        string     `json:"state"`
	ChangedAt    *time.Time `json:"changed_at"`
}

// NewSolutionResponse converts a solution model into a DTO.
func NewSolutionResponse(model models.TaskSolution) SolutionResponse {
	return SolutionResponse{
		ID:          model.ID,
		URL:         model.URL,
		UpdatedDate: model.UpdatedAt,
	}
}

// NewReviewResponse converts a review model into a DTO.
func NewReviewResponse(model models.TaskSolutionResult) ReviewResponse {
	return ReviewResponse{
		ID:           model.ID,
		CourseTaskID: model.CourseTaskID,
		CheckerID:    model.CheckerID,
		StudentID:    model.StudentID,
		Score:        model.Score,
		Comment:      model.Comment,
		History:      NewScoreRevisionResponses(model.History()),
		UpdatedAt:    model.UpdatedAt,
	}
}

// NewScoreRevisionResponses converts stored revisions into DTOs.
func NewScoreRevisionResponses(revisions []models.ScoreRevision) []ScoreRevisionResponse {
	responses := make([]ScoreRevisionResponse, 0, len(revisions))
	for _, revision := range revisions {
		responses = append(responses, ScoreRevisionResponse{
			Score:    revision.Score,
			Comment:  revision.Comment,
			AuthorID: revision.AuthorID,
			DateTime: time.UnixMilli(revision.DateTime).UTC(),
		})
	}
	return responses
}

// NewStudentBasic converts a student model into its public view.
func NewStudentBasic(model models.Student) StudentBasic {
	return StudentBasic{
		ID:       model.ID,
		GithubID: model.GithubID,
		Name:     model.FullName(),
	}
}

// NewCrossCheckAssignmentResponses converts checker assignments into DTOs.
func NewCrossCheckAssignmentResponses(assignments []models.TaskSolutionChecker) []CrossCheckAssignmentResponse {
	responses := make([]CrossCheckAssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, CrossCheckAssignmentResponse{
			Student: NewStudentBasic(assignment.Student),
			URL:     assignment.TaskSolution.URL,
		})
	}
	return responses
}

// NewPairResponses converts created assignments into DTOs.
func NewPairResponses(assignments []models.TaskSolutionChecker) []PairResponse {
	responses := make([]PairResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, PairResponse{
			CheckerID:      assignment.CheckerID,
			StudentID:      assignment.StudentID,
			TaskSolutionID: assignment.TaskSolutionID,
		})
	}
	return responses
}
