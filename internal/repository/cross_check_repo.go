package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-crosscheck-api/internal/models"
)

// ErrCheckerNotAssigned indicates a review was attempted without a matching assignment.
var ErrCheckerNotAssigned = errors.New("checker is not assigned to student")

// ErrAssignmentConflict indicates planned assignments were stored concurrently by another writer.
var ErrAssignmentConflict = errors.New("assignments changed during distribution")

// DistributionPlanner turns the solutions still lacking checkers into assignments.
type DistributionPlanner func(solutions []models.TaskSolution) ([]models.TaskSolutionChecker, error)

// CrossCheckRepository persists checker assignments and their reviews.
type CrossCheckRepository interface {
	Distribute(ctx context.Context, courseTaskID uint, plan DistributionPlanner) ([]models.TaskSolutionChecker, error)
	SaveAssignments(ctx context.Context, assignments []models.TaskSolutionChecker) (int64, error)
	FindAssignment(ctx context.Context, courseTaskID, checkerID, studentID uint) (models.TaskSolutionChecker, error)
	ListAssigneesOf(ctx context.Context, courseTaskID, checkerID uint) ([]models.TaskSolutionChecker, error)
	ListCheckersOf(ctx context.Context, courseTaskID, studentID uint) ([]models.TaskSolutionChecker, error)
	ListAssignments(ctx context.Context, courseTaskID uint) ([]models.TaskSolutionChecker, error)
	GetReview(ctx context.Context, courseTaskID, checkerID, studentID uint) (models.TaskSolutionResult, error)
	SaveReview(ctx context.Context, courseTaskID, checkerID, studentID uint, revision models.ScoreRevision) (models.TaskSolutionResult, error)
	ListReviews(ctx context.Context, courseTaskID uint) ([]models.TaskSolutionResult, error)
	ListReviewsOf(ctx context.Context, courseTaskID, studentID uint) ([]models.TaskSolutionResult, error)
}

type crossCheckRepository struct {
	db *gorm.DB
}

// NewCrossCheckRepository constructs a GORM-backed cross-check repository.
func NewCrossCheckRepository(db *gorm.DB) CrossCheckRepository {
	return &crossCheckRepository{db: db}
}

// Distribute selects unassigned solutions and stores the planned assignments in
// a single transaction that holds the course task row lock.
func (r *crossCheckRepository) Distribute(ctx context.Context, courseTaskID uint, plan DistributionPlanner) ([]models.TaskSolutionChecker, error) {
	var created []models.TaskSolutionChecker

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.CourseTask
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&task, courseTaskID).Error; err != nil {
			return err
		}

		solutions, err := listSolutionsWithoutChecker(tx, courseTaskID)
		if err != nil {
			return err
		}

		assignments, err := plan(solutions)
		if err != nil {
			return err
		}

		fresh, err := withoutExistingAssignments(tx, courseTaskID, assignments)
		if err != nil {
			return err
		}

		inserted, err := insertAssignments(tx, fresh)
		if err != nil {
			return err
		}
		if inserted != int64(len(fresh)) {
			return ErrAssignmentConflict
		}

		created = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// withoutExistingAssignments drops planned pairs that are already stored for the task.
func withoutExistingAssignments(tx *gorm.DB, courseTaskID uint, planned []models.TaskSolutionChecker) ([]models.TaskSolutionChecker, error) {
	if len(planned) == 0 {
		return planned, nil
	}

	studentIDs := make([]uint, 0, len(planned))
	for _, assignment := range planned {
		studentIDs = append(studentIDs, assignment.StudentID)
	}

	var existing []models.TaskSolutionChecker
	if err := tx.Model(&models.TaskSolutionChecker{}).
		Select("checker_id", "student_id").
		Where("course_task_id = ?", courseTaskID).
		Where("student_id IN ?", studentIDs).
		Find(&existing).Error; err != nil {
		return nil, err
	}

	type pair struct{ checker, student uint }
	stored := make(map[pair]struct{}, len(existing))
	for _, assignment := range existing {
		stored[pair{assignment.CheckerID, assignment.StudentID}] = struct{}{}
	}

	fresh := make([]models.TaskSolutionChecker, 0, len(planned))
	for _, assignment := range planned {
		key := pair{assignment.CheckerID, assignment.StudentID}
		if _, ok := stored[key]; ok {
			continue
		}
		stored[key] = struct{}{}
		fresh = append(fresh, assignment)
	}
	return fresh, nil
}

func (r *crossCheckRepository) SaveAssignments(ctx context.Context, assignments []models.TaskSolutionChecker) (int64, error) {
	return insertAssignments(r.db.WithContext(ctx), assignments)
}

func insertAssignments(db *gorm.DB, assignments []models.TaskSolutionChecker) (int64, error) {
	if len(assignments) == 0 {
		return 0, nil
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "course_task_id"}, {Name: "checker_id"}, {Name: "student_id"}},
		DoNothing: true,
	}).Omit(clause.Associations).Create(&assignments)

	return result.RowsAffected, result.Error
}

func (r *crossCheckRepository) FindAssignment(ctx context.Context, courseTaskID, checkerID, studentID uint) (models.TaskSolutionChecker, error) {
	var assignment models.TaskSolutionChecker
	if err := assignmentQuery(r.db.WithContext(ctx), courseTaskID, checkerID, studentID).
		First(&assignment).Error; err != nil {
		return models.TaskSolutionChecker{}, err
	}

	return assignment, nil
}

func (r *crossCheckRepository) ListAssigneesOf(ctx context.Context, courseTaskID, checkerID uint) ([]models.TaskSolutionChecker, error) {
	var assignments []models.TaskSolutionChecker
	if err := r.db.WithContext(ctx).
		Preload("TaskSolution").
		Preload("Student").
		Where("course_task_id = ?", courseTaskID).
		Where("checker_id = ?", checkerID).
		Order("student_id ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *crossCheckRepository) ListCheckersOf(ctx context.Context, courseTaskID, studentID uint) ([]models.TaskSolutionChecker, error) {
	var assignments []models.TaskSolutionChecker
	if err := r.db.WithContext(ctx).
		Where("course_task_id = ?", courseTaskID).
		Where("student_id = ?", studentID).
		Order("checker_id ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *crossCheckRepository) ListAssignments(ctx context.Context, courseTaskID uint) ([]models.TaskSolutionChecker, error) {
	var assignments []models.TaskSolutionChecker
	if err := r.db.WithContext(ctx).
		Where("course_task_id = ?", courseTaskID).
		Order("student_id ASC, checker_id ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *crossCheckRepository) GetReview(ctx context.Context, courseTaskID, checkerID, studentID uint) (models.TaskSolutionResult, error) {
	var review models.TaskSolutionResult
	if err := reviewQuery(r.db.WithContext(ctx), courseTaskID, checkerID, studentID).
		First(&review).Error; err != nil {
		return models.TaskSolutionResult{}, err
	}

	return review, nil
}

// SaveReview creates or revises the review of one assignment. The assignment row
// is locked for the duration of the transaction so concurrent submissions for the
// same pair are applied one after another.
func (r *crossCheckRepository) SaveReview(ctx context.Context, courseTaskID, checkerID, studentID uint, revision models.ScoreRevision) (models.TaskSolutionResult, error) {
	var saved models.TaskSolutionResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var assignment models.TaskSolutionChecker
		err := assignmentQuery(tx, courseTaskID, checkerID, studentID).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&assignment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCheckerNotAssigned
		}
		if err != nil {
			return err
		}

		review, err := lockedReview(tx, courseTaskID, checkerID, studentID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if errors.Is(err, gorm.ErrRecordNotFound) {
			review = models.TaskSolutionResult{
				CourseTaskID: courseTaskID,
				CheckerID:    checkerID,
				StudentID:    studentID,
			}
			if err := review.AppendRevision(revision); err != nil {
				return err
			}

			insert := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&review)
			if insert.Error != nil {
				return insert.Error
			}
			if insert.RowsAffected == 1 {
				saved = review
				return nil
			}

			// Another writer created the row first; revise theirs instead.
			if review, err = lockedReview(tx, courseTaskID, checkerID, studentID); err != nil {
				return err
			}
		}

		if err := review.AppendRevision(revision); err != nil {
			return err
		}
		if err := tx.Model(&review).Select("score", "comment", "historical_scores", "updated_at").Updates(&review).Error; err != nil {
			return err
		}

		saved = review
		return nil
	})
	if err != nil {
		return models.TaskSolutionResult{}, err
	}

	return saved, nil
}

func (r *crossCheckRepository) ListReviews(ctx context.Context, courseTaskID uint) ([]models.TaskSolutionResult, error) {
	var reviews []models.TaskSolutionResult
	if err := r.db.WithContext(ctx).
		Where("course_task_id = ?", courseTaskID).
		Order("student_id ASC, checker_id ASC").
		Find(&reviews).Error; err != nil {
		return nil, err
	}

	return reviews, nil
}

func (r *crossCheckRepository) ListReviewsOf(ctx context.Context, courseTaskID, studentID uint) ([]models.TaskSolutionResult, error) {
	var reviews []models.TaskSolutionResult
	if err := r.db.WithContext(ctx).
		Where("course_task_id = ?", courseTaskID).
		Where("student_id = ?", studentID).
		Order("id ASC").
		Find(&reviews).Error; err != nil {
		return nil, err
	}

	return reviews, nil
}

func assignmentQuery(db *gorm.DB, courseTaskID, checkerID, studentID uint) *gorm.DB {
	return db.Model(&models.TaskSolutionChecker{}).
		Where("course_task_id = ?", courseTaskID).
		Where("checker_id = ?", checkerID).
		Where("student_id = ?", studentID)
}

func reviewQuery(db *gorm.DB, courseTaskID, checkerID, studentID uint) *gorm.DB {
	return db.Model(&models.TaskSolutionResult{}).
		Where("course_task_id = ?", courseTaskID).
		Where("checker_id = ?", checkerID).
		Where("student_id = ?", studentID)
}

func lockedReview(tx *gorm.DB, courseTaskID, checkerID, studentID uint) (models.TaskSolutionResult, error) {
	var review models.TaskSolutionResult
	err := reviewQuery(tx, courseTaskID, checkerID, studentID).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&review).Error
	return review, err
}
