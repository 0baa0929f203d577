package models

import (
	"strings"
	"time"
)

// Student represents a user enrolled in a course.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_students_course_github" json:"course_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	GithubID  string    `gorm:"size:255;not null;uniqueIndex:idx_students_course_github" json:"github_id"`
	FirstName string    `gorm:"size:255" json:"first_name"`
	LastName  string    `gorm:"size:255" json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName joins the first and last name, skipping empty parts.
func (s Student) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(s.FirstName) + " " + strings.TrimSpace(s.LastName))
}
