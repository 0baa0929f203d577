package models

import "time"

// Task checker kinds.
const (
	CheckerCrossCheck = "crossCheck"
	CheckerMentor     = "mentor"
	CheckerAutoTest   = "autoTest"
)

// CourseTask is a task scheduled in a course together with its checking setup.
type CourseTask struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CourseID   uint      `gorm:"not null;index" json:"course_id"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Checker    string    `gorm:"size:32;not null" json:"checker"`
	PairsCount *int      `json:"pairs_count"`
	MaxScore   int       `gorm:"not null;default:100" json:"max_score"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UsesCrossCheck reports whether the task is graded by peer review.
func (t CourseTask) UsesCrossCheck() bool {
	return t.Checker == CheckerCrossCheck
}

// ReviewersPerSolution returns the configured pairs count or fallback when unset.
// A configured non-positive count is returned as is and rejected by the engine.
func (t CourseTask) ReviewersPerSolution(fallback int) int {
	if t.PairsCount == nil {
		return fallback
	}
	return *t.PairsCount
}
