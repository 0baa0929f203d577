package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-crosscheck-api/internal/models"
)

// TaskSolutionRepository stores one solution link per task and student.
type TaskSolutionRepository interface {
	Upsert(ctx context.Context, courseTaskID, studentID uint, url string) (models.TaskSolution, error)
	Get(ctx context.Context, courseTaskID, studentID uint) (models.TaskSolution, error)
	ListMissingChecker(ctx context.Context, courseTaskID uint) ([]models.TaskSolution, error)
}

type taskSolutionRepository struct {
	db *gorm.DB
}

// NewTaskSolutionRepository constructs the solution repository.
func NewTaskSolutionRepository(db *gorm.DB) TaskSolutionRepository {
	return &taskSolutionRepository{db: db}
}

func (r *taskSolutionRepository) Upsert(ctx context.Context, courseTaskID, studentID uint, url string) (models.TaskSolution, error) {
	solution := models.TaskSolution{
		CourseTaskID: courseTaskID,
		StudentID:    studentID,
		URL:          url,
	}

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "course_task_id"}, {Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"url", "updated_at"}),
	})
	if err := tx.Create(&solution).Error; err != nil {
		return models.TaskSolution{}, err
	}

	return r.Get(ctx, courseTaskID, studentID)
}

func (r *taskSolutionRepository) Get(ctx context.Context, courseTaskID, studentID uint) (models.TaskSolution, error) {
	var solution models.TaskSolution
	if err := r.db.WithContext(ctx).
		Where("course_task_id = ?", courseTaskID).
		Where("student_id = ?", studentID).
		First(&solution).Error; err != nil {
		return models.TaskSolution{}, err
	}

	return solution, nil
}

func (r *taskSolutionRepository) ListMissingChecker(ctx context.Context, courseTaskID uint) ([]models.TaskSolution, error) {
	return listSolutionsWithoutChecker(r.db.WithContext(ctx), courseTaskID)
}

func listSolutionsWithoutChecker(db *gorm.DB, courseTaskID uint) ([]models.TaskSolution, error) {
	var solutions []models.TaskSolution
	err := db.Model(&models.TaskSolution{}).
		Joins("LEFT JOIN task_solution_checkers tsc ON tsc.task_solution_id = task_solutions.id").
		Where("task_solutions.course_task_id = ?", courseTaskID).
		Where("tsc.id IS NULL").
		Order("task_solutions.student_id ASC").
		Find(&solutions).Error
	if err != nil {
		return nil, err
	}

	return solutions, nil
}
