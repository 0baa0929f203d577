package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// ScoreRevision is one entry of a score's edit history.
type ScoreRevision struct {
	Score    int    `json:"score"`
	Comment  string `json:"comment"`
	AuthorID int64  `json:"author_id"`
	DateTime int64  `json:"date_time"`
}

// TaskSolutionResult is the review a checker left for a student's solution.
// Score and Comment always mirror the last entry of HistoricalScores.
type TaskSolutionResult struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	CourseTaskID     uint           `gorm:"not null;uniqueIndex:idx_task_solution_results_pair" json:"course_task_id"`
	CheckerID        uint           `gorm:"not null;uniqueIndex:idx_task_solution_results_pair" json:"checker_id"`
	StudentID        uint           `gorm:"not null;uniqueIndex:idx_task_solution_results_pair" json:"student_id"`
	Score            int            `gorm:"not null" json:"score"`
	Comment          string         `gorm:"type:text" json:"comment"`
	HistoricalScores datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// History decodes the stored revisions in submission order. Undecodable
// history reads as empty; writers go through AppendRevision which rejects it.
func (r TaskSolutionResult) History() []ScoreRevision {
	revisions, _ := decodeRevisions(r.HistoricalScores)
	return revisions
}

// AppendRevision records a new revision and mirrors it into the current fields.
func (r *TaskSolutionResult) AppendRevision(revision ScoreRevision) error {
	history, err := appendRevision(r.HistoricalScores, revision)
	if err != nil {
		return err
	}
	r.HistoricalScores = history
	r.Score = revision.Score
	r.Comment = revision.Comment
	return nil
}

// ErrCorruptHistory is returned when stored score history cannot be decoded.
var ErrCorruptHistory = errors.New("stored score history is corrupt")

func appendRevision(raw datatypes.JSON, revision ScoreRevision) (datatypes.JSON, error) {
	revisions, err := decodeRevisions(raw)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(append(revisions, revision))
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

func decodeRevisions(raw datatypes.JSON) ([]ScoreRevision, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var revisions []ScoreRevision
	if err := json.Unmarshal(raw, &revisions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptHistory, err)
	}
	return revisions, nil
}
