package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-crosscheck-api/internal/models"
)

// StudentRepository provides access to course student records.
type StudentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Student, error)
	GetByGithubID(ctx context.Context, courseID uint, githubID string) (models.Student, error)
	GetByUserID(ctx context.Context, courseID, userID uint) (models.Student, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) GetByGithubID(ctx context.Context, courseID uint, githubID string) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Where("LOWER(github_id) = ?", strings.ToLower(strings.TrimSpace(githubID))).
		First(&student).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) GetByUserID(ctx context.Context, courseID, userID uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Where("user_id = ?", userID).
		First(&student).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}
