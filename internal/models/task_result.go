package models

import (
	"time"

	"gorm.io/datatypes"
)

// AutomatedAuthorID marks scores written by the system rather than a person.
const AutomatedAuthorID int64 = -1

// TaskResult is the published grade of a student for a course task.
type TaskResult struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	CourseTaskID     uint           `gorm:"not null;uniqueIndex:idx_task_results_task_student" json:"course_task_id"`
	StudentID        uint           `gorm:"not null;uniqueIndex:idx_task_results_task_student" json:"student_id"`
	Score            int            `gorm:"not null" json:"score"`
	Comment          string         `gorm:"type:text" json:"comment"`
	AuthorID         int64          `gorm:"not null" json:"author_id"`
	HistoricalScores datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// History decodes the previously published scores.
func (r TaskResult) History() []ScoreRevision {
	revisions, _ := decodeRevisions(r.HistoricalScores)
	return revisions
}

// AppendRevision records a published score and makes it current.
func (r *TaskResult) AppendRevision(revision ScoreRevision) error {
	history, err := appendRevision(r.HistoricalScores, revision)
	if err != nil {
		return err
	}
	r.HistoricalScores = history
	r.Score = revision.Score
	r.Comment = revision.Comment
	r.AuthorID = revision.AuthorID
	return nil
}
