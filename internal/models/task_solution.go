package models

import "time"

// TaskSolution is the link a student submitted for a cross-check task.
type TaskSolution struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CourseTaskID uint      `gorm:"not null;uniqueIndex:idx_task_solutions_task_student" json:"course_task_id"`
	StudentID    uint      `gorm:"not null;uniqueIndex:idx_task_solutions_task_student" json:"student_id"`
	URL          string    `gorm:"size:1024;not null" json:"url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
