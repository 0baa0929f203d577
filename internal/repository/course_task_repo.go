package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-crosscheck-api/internal/models"
)

// CourseTaskRepository reads course task configuration.
type CourseTaskRepository interface {
	GetByID(ctx context.Context, id uint) (models.CourseTask, error)
}

type courseTaskRepository struct {
	db *gorm.DB
}

// NewCourseTaskRepository constructs a course task repository.
func NewCourseTaskRepository(db *gorm.DB) CourseTaskRepository {
	return &courseTaskRepository{db: db}
}

func (r *courseTaskRepository) GetByID(ctx context.Context, id uint) (models.CourseTask, error) {
	var task models.CourseTask
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return models.CourseTask{}, err
	}

	return task, nil
}
