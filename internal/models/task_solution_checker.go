package models

import "time"

// TaskSolutionChecker assigns a reviewing student (checker) to another student's solution.
type TaskSolutionChecker struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	CourseTaskID   uint         `gorm:"not null;uniqueIndex:idx_task_solution_checkers_pair" json:"course_task_id"`
	CheckerID      uint         `gorm:"not null;uniqueIndex:idx_task_solution_checkers_pair" json:"checker_id"`
	StudentID      uint         `gorm:"not null;uniqueIndex:idx_task_solution_checkers_pair" json:"student_id"`
	TaskSolutionID uint         `gorm:"not null;index" json:"task_solution_id"`
	CreatedAt      time.Time    `json:"created_at"`
	TaskSolution   TaskSolution `gorm:"foreignKey:TaskSolutionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student        Student      `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
