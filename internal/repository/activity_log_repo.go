package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-crosscheck-api/internal/models"
)

// ActivityLogFilter narrows activity log queries.
type ActivityLogFilter struct {
	Page         int
	PageSize     int
	CourseTaskID *uint
	Action       string
}

// ActivityLogRepository persists the cross-check audit trail.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error)
	Latest(ctx context.Context, courseTaskID uint, actions ...string) (models.ActivityLog, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository constructs the activity log repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ActivityLog{})

	if filter.CourseTaskID != nil {
		query = query.Where("course_task_id = ?", *filter.CourseTaskID)
	}

	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var entries []models.ActivityLog
	if err := query.Order("created_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *activityLogRepository) Latest(ctx context.Context, courseTaskID uint, actions ...string) (models.ActivityLog, error) {
	query := r.db.WithContext(ctx).Where("course_task_id = ?", courseTaskID)
	if len(actions) > 0 {
		query = query.Where("action IN ?", actions)
	}

	var entry models.ActivityLog
	if err := query.Order("id DESC").First(&entry).Error; err != nil {
		return models.ActivityLog{}, err
	}

	return entry, nil
}
