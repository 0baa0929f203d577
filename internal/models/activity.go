package models

import (
	"time"

	"gorm.io/datatypes"
)

// Cross-check lifecycle actions recorded in the activity log.
const (
	ActionCrossCheckDistributed = "crosscheck.distributed"
	ActionCrossCheckCompleted   = "crosscheck.completed"
)

// ActivityLog captures auditable cross-check events for a course task.
type ActivityLog struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	ActorID      uint              `gorm:"not null" json:"actor_id"`
	ActorRole    string            `gorm:"size:32;not null" json:"actor_role"`
	Action       string            `gorm:"size:64;not null;index" json:"action"`
	CourseTaskID uint              `gorm:"not null;index" json:"course_task_id"`
	Metadata     datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt    time.Time         `json:"created_at"`
}
