package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-crosscheck-api/internal/models"
)

// ScoreUpdate is a score to publish for one student.
type ScoreUpdate struct {
	StudentID uint
	Revision  models.ScoreRevision
}

// TaskResultRepository stores published task grades.
type TaskResultRepository interface {
	SaveScores(ctx context.Context, courseTaskID uint, updates []ScoreUpdate) ([]models.TaskResult, error)
	Get(ctx context.Context, courseTaskID, studentID uint) (models.TaskResult, error)
	ListByTask(ctx context.Context, courseTaskID uint) ([]models.TaskResult, error)
}

type taskResultRepository struct {
	db *gorm.DB
}

// NewTaskResultRepository constructs the task result repository.
func NewTaskResultRepository(db *gorm.DB) TaskResultRepository {
	return &taskResultRepository{db: db}
}

// SaveScores writes every update or none of them.
func (r *taskResultRepository) SaveScores(ctx context.Context, courseTaskID uint, updates []ScoreUpdate) ([]models.TaskResult, error) {
	saved := make([]models.TaskResult, 0, len(updates))
	if len(updates) == 0 {
		return saved, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, update := range updates {
			var result models.TaskResult
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("course_task_id = ?", courseTaskID).
				Where("student_id = ?", update.StudentID).
				First(&result).Error

			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				result = models.TaskResult{CourseTaskID: courseTaskID, StudentID: update.StudentID}
				if err := result.AppendRevision(update.Revision); err != nil {
					return err
				}
				if err := tx.Create(&result).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				if err := result.AppendRevision(update.Revision); err != nil {
					return err
				}
				if err := tx.Model(&result).
					Select("score", "comment", "author_id", "historical_scores", "updated_at").
					Updates(&result).Error; err != nil {
					return err
				}
			}

			saved = append(saved, result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return saved, nil
}

func (r *taskResultRepository) Get(ctx context.Context, courseTaskID, studentID uint) (models.TaskResult, error) {
	var result models.TaskResult
	if err := r.db.WithContext(ctx).
		Where("course_task_id = ?", courseTaskID).
		Where("student_id = ?", studentID).
		First(&result).Error; err != nil {
		return models.TaskResult{}, err
	}

	return result, nil
}

func (r *taskResultRepository) ListByTask(ctx context.Context, courseTaskID uint) ([]models.TaskResult, error) {
	var results []models.TaskResult
	if err := r.db.WithContext(ctx).
		Where("course_task_id = ?", courseTaskID).
		Order("student_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}
