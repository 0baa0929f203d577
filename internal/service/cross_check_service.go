package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-crosscheck-api/internal/crosscheck"
	"github.com/noah-isme/gema-crosscheck-api/internal/dto"
	"github.com/noah-isme/gema-crosscheck-api/internal/middleware"
	"github.com/noah-isme/gema-crosscheck-api/internal/models"
	"github.com/noah-isme/gema-crosscheck-api/internal/observability"
	"github.com/noah-isme/gema-crosscheck-api/internal/repository"
)

var (
	// ErrTaskNotFound indicates the course task does not exist in the course.
	ErrTaskNotFound = errors.New("course task not found")
	// ErrInvalidTask indicates the course task is not graded by cross-check.
	ErrInvalidTask = errors.New("not valid task")
	// ErrStudentNotFound indicates no student record matched.
	ErrStudentNotFound = errors.New("student not found")
	// ErrSolutionNotFound indicates the student has not submitted a solution.
	ErrSolutionNotFound = errors.New("solution not found")
	// ErrNotAssigned indicates the reviewer has no assignment for the reviewee.
	ErrNotAssigned = errors.New("no assigned cross-check")
	// ErrReviewNotFound indicates the reviewer has not reviewed the reviewee yet.
	ErrReviewNotFound = errors.New("review not found")
	// ErrTaskBusy indicates another distribution or completion run holds the task.
	ErrTaskBusy = errors.New("cross-check task is busy")
	// ErrCrossCheckForbidden indicates the actor may not act for the requested student.
	ErrCrossCheckForbidden = errors.New("cross-check access denied")
	// ErrScoreExceedsMax indicates a review score surpasses the task max score.
	ErrScoreExceedsMax = errors.New("score exceeds task max score")
)

// Lifecycle states reported by Status.
const (
	CrossCheckStateOpen        = "open"
	CrossCheckStateDistributed = "distributed"
	CrossCheckStateCompleted   = "completed"
)

// StudentTaskRef addresses a student's work on a course task.
type StudentTaskRef struct {
	CourseID     uint
	CourseTaskID uint
	GithubID     string
}

// CrossCheckRepositories groups the stores used by the cross-check service.
type CrossCheckRepositories struct {
	Tasks       repository.CourseTaskRepository
	Students    repository.StudentRepository
	Solutions   repository.TaskSolutionRepository
	CrossChecks repository.CrossCheckRepository
	Activity    repository.ActivityLogRepository
}

// CrossCheckOptions tunes distribution and caching.
type CrossCheckOptions struct {
	DefaultPairsCount   int
	Seed                uint64
	AssignmentsCacheTTL time.Duration
}

// CrossCheckService runs the peer review workflow of course tasks.
type CrossCheckService interface {
	SaveSolution(ctx context.Context, actor ActivityActor, ref StudentTaskRef, payload dto.SolutionRequest) (dto.SolutionResponse, error)
	GetSolution(ctx context.Context, actor ActivityActor, ref StudentTaskRef) (dto.SolutionResponse, error)
	SubmitReview(ctx context.Context, actor ActivityActor, ref StudentTaskRef, payload dto.ReviewRequest) (dto.ReviewResponse, error)
	GetReview(ctx context.Context, actor ActivityActor, ref StudentTaskRef) (dto.ReviewResponse, error)
	ListAssignments(ctx context.Context, actor ActivityActor, ref StudentTaskRef) ([]dto.CrossCheckAssignmentResponse, error)
	GetFeedback(ctx context.Context, actor ActivityActor, ref StudentTaskRef) (dto.FeedbackResponse, error)
	Distribute(ctx context.Context, actor ActivityActor, courseID, courseTaskID uint) (dto.DistributionResponse, error)
	Complete(ctx context.Context, actor ActivityActor, courseID, courseTaskID uint) (dto.CompletionResponse, error)
	Results(ctx context.Context, courseID, courseTaskID uint) ([]dto.TaskResultResponse, error)
	Status(ctx context.Context, courseID, courseTaskID uint) (dto.CrossCheckStatusResponse, error)
}

type crossCheckService struct {
	repos     CrossCheckRepositories
	results   TaskResultService
	locker    TaskLocker
	cache     *redis.Client
	activity  ActivityRecorder
	validator *validator.Validate
	options   CrossCheckOptions
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewCrossCheckService constructs the cross-check workflow service. cache and activity may be nil.
func NewCrossCheckService(repos CrossCheckRepositories, results TaskResultService, locker TaskLocker, cache *redis.Client, activity ActivityRecorder, validate *validator.Validate, options CrossCheckOptions, logger zerolog.Logger) CrossCheckService {
	if options.DefaultPairsCount <= 0 {
		options.DefaultPairsCount = 4
	}
	if locker == nil {
		locker = noopTaskLocker{}
	}

	return &crossCheckService{
		repos:     repos,
		results:   results,
		locker:    locker,
		cache:     cache,
		activity:  activity,
		validator: validate,
		options:   options,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "cross_check_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-crosscheck-api/internal/service/crosscheck"),
		now:       time.Now,
	}
}

func (s *crossCheckService) SaveSolution(ctx context.Context, actor ActivityActor, ref StudentTaskRef, payload dto.SolutionRequest) (dto.SolutionResponse, error) {
	payload.URL = strings.TrimSpace(payload.URL)
	if err := s.validator.Struct(payload); err != nil {
		return dto.SolutionResponse{}, err
	}

	task, err := s.loadTask(ctx, ref.CourseID, ref.CourseTaskID)
	if err != nil {
		return dto.SolutionResponse{}, err
	}

	student, err := s.studentFor(ctx, actor, ref)
	if err != nil {
		return dto.SolutionResponse{}, err
	}

	solution, err := s.repos.Solutions.Upsert(ctx, task.ID, student.ID, payload.URL)
	if err != nil {
		return dto.SolutionResponse{}, fmt.Errorf("save solution: %w", err)
	}

	if s.cache != nil {
		checkers, err := s.repos.CrossChecks.ListCheckersOf(ctx, task.ID, student.ID)
		if err != nil {
			s.logger.Warn().Err(err).Uint("student_id", student.ID).Msg("failed to list checkers for cache invalidation")
		} else {
			s.invalidateAssignments(ctx, task.ID, checkers)
		}
	}

	s.logger.Info().
		Uint("course_task_id", task.ID).
		Uint("student_id", student.ID).
		Msg("cross-check solution saved")

	return dto.NewSolutionResponse(solution), nil
}

func (s *crossCheckService) GetSolution(ctx context.Context, actor ActivityActor, ref StudentTaskRef) (dto.SolutionResponse, error) {
	task, err := s.loadTask(ctx, ref.CourseID, ref.CourseTaskID)
	if err != nil {
		return dto.SolutionResponse{}, err
	}

	student, err := s.studentFor(ctx, actor, ref)
	if err != nil {
		return dto.SolutionResponse{}, err
	}

	solution, err := s.repos.Solutions.Get(ctx, task.ID, student.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SolutionResponse{}, ErrSolutionNotFound
		}
		return dto.SolutionResponse{}, err
	}

	return dto.NewSolutionResponse(solution), nil
}

// SubmitReview records the actor's review of the student named in ref. The first
// submission creates the review; later ones append to its history.
func (s *crossCheckService) SubmitReview(ctx context.Context, actor ActivityActor, ref StudentTaskRef, payload dto.ReviewRequest) (dto.ReviewResponse, error) {
	ctx, span := s.tracer.Start(ctx, "crosscheck.review.submit", trace.WithAttributes(
		attribute.Int64("crosscheck.course_task_id", int64(ref.CourseTaskID)),
		attribute.Int64("crosscheck.actor_id", int64(actor.ID)),
		attribute.String("crosscheck.correlation_id", observability.CorrelationID(ctx)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.ReviewResponse{}, err
	}

	task, err := s.loadTask(ctx, ref.CourseID, ref.CourseTaskID)
	if err != nil {
		span.RecordError(err)
		return dto.ReviewResponse{}, err
	}

	checker, reviewee, err := s.reviewParties(ctx, actor, ref)
	if err != nil {
		span.RecordError(err)
		return dto.ReviewResponse{}, err
	}

	score := crosscheck.RoundScore(*payload.Score)
	if task.MaxScore > 0 && score > task.MaxScore {
		span.SetStatus(codes.Error, "score_exceeds_max")
		return dto.ReviewResponse{}, ErrScoreExceedsMax
	}

	revision := models.ScoreRevision{
		Score:    score,
		Comment:  strings.TrimSpace(s.sanitizer.Sanitize(payload.Comment)),
		AuthorID: int64(actor.ID),
		DateTime: s.now().UTC().UnixMilli(),
	}

	review, err := s.repos.CrossChecks.SaveReview(ctx, task.ID, checker.ID, reviewee.ID, revision)
	if err != nil {
		if errors.Is(err, repository.ErrCheckerNotAssigned) {
			span.SetStatus(codes.Error, "not_assigned")
			return dto.ReviewResponse{}, ErrNotAssigned
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist_failed")
		return dto.ReviewResponse{}, fmt.Errorf("save review: %w", err)
	}

	kind := "revised"
	if len(review.History()) == 1 {
		kind = "created"
	}
	observability.ReviewsSubmitted().WithLabelValues(kind).Inc()

	s.logger.Info().
		Uint("course_task_id", task.ID).
		Uint("checker_id", checker.ID).
		Uint("student_id", reviewee.ID).
		Int("score", score).
		Str("kind", kind).
		Msg("cross-check review saved")

	return dto.NewReviewResponse(review), nil
}

func (s *crossCheckService) GetReview(ctx context.Context, actor ActivityActor, ref StudentTaskRef) (dto.ReviewResponse, error) {
	task, err := s.loadTask(ctx, ref.CourseID, ref.CourseTaskID)
	if err != nil {
		return dto.ReviewResponse{}, err
	}

	checker, reviewee, err := s.reviewParties(ctx, actor, ref)
	if err != nil {
		return dto.ReviewResponse{}, err
	}

	if _, err := s.repos.CrossChecks.FindAssignment(ctx, task.ID, checker.ID, reviewee.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReviewResponse{}, ErrNotAssigned
		}
		return dto.ReviewResponse{}, err
	}

	review, err := s.repos.CrossChecks.GetReview(ctx, task.ID, checker.ID, reviewee.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReviewResponse{}, ErrReviewNotFound
		}
		return dto.ReviewResponse{}, err
	}

	return dto.NewReviewResponse(review), nil
}

// ListAssignments returns the students the checker named in ref has to review.
func (s *crossCheckService) ListAssignments(ctx context.Context, actor ActivityActor, ref StudentTaskRef) ([]dto.CrossCheckAssignmentResponse, error) {
	task, err := s.loadTask(ctx, ref.CourseID, ref.CourseTaskID)
	if err != nil {
		return nil, err
	}

	checker, err := s.studentFor(ctx, actor, ref)
	if err != nil {
		return nil, err
	}

	cacheKey := assignmentsCacheKey(task.ID, checker.ID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response []dto.CrossCheckAssignmentResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("checker_id", checker.ID).Msg("assignments cache hit")
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read assignments cache")
		}
	}

	assignments, err := s.repos.CrossChecks.ListAssigneesOf(ctx, task.ID, checker.ID)
	if err != nil {
		return nil, err
	}

	response := dto.NewCrossCheckAssignmentResponses(assignments)

	if s.cache != nil && s.options.AssignmentsCacheTTL > 0 {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.options.AssignmentsCacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store assignments cache")
			}
		}
	}

	return response, nil
}

// GetFeedback returns one comment per review of a student's solution without reviewer identities.
func (s *crossCheckService) GetFeedback(ctx context.Context, actor ActivityActor, ref StudentTaskRef) (dto.FeedbackResponse, error) {
	task, err := s.loadTask(ctx, ref.CourseID, ref.CourseTaskID)
	if err != nil {
		return dto.FeedbackResponse{}, err
	}

	student, err := s.studentFor(ctx, actor, ref)
	if err != nil {
		return dto.FeedbackResponse{}, err
	}

	solution, err := s.repos.Solutions.Get(ctx, task.ID, student.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackResponse{}, ErrSolutionNotFound
		}
		return dto.FeedbackResponse{}, err
	}

	reviews, err := s.repos.CrossChecks.ListReviewsOf(ctx, task.ID, student.ID)
	if err != nil {
		return dto.FeedbackResponse{}, err
	}

	comments := make([]dto.FeedbackComment, 0, len(reviews))
	for _, review := range reviews {
		comments = append(comments, dto.FeedbackComment{Comment: review.Comment})
	}

	return dto.FeedbackResponse{URL: solution.URL, Comments: comments}, nil
}

// Distribute assigns checkers to every solution of the task that has none yet.
func (s *crossCheckService) Distribute(ctx context.Context, actor ActivityActor, courseID, courseTaskID uint) (dto.DistributionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "crosscheck.distribute", trace.WithAttributes(
		attribute.Int64("crosscheck.course_task_id", int64(courseTaskID)),
		attribute.Int64("crosscheck.actor_id", int64(actor.ID)),
		attribute.String("crosscheck.correlation_id", observability.CorrelationID(ctx)),
	))
	defer span.End()

	task, err := s.loadTask(ctx, courseID, courseTaskID)
	if err != nil {
		span.RecordError(err)
		return dto.DistributionResponse{}, err
	}

	release, err := s.locker.Acquire(ctx, task.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock_failed")
		return dto.DistributionResponse{}, err
	}
	defer s.release(release, task.ID)

	pairsCount := task.ReviewersPerSolution(s.options.DefaultPairsCount)
	seed := s.seedFor(task.ID)
	span.SetAttributes(attribute.Int("crosscheck.pairs_count", pairsCount))

	created, err := s.repos.CrossChecks.Distribute(ctx, task.ID, func(solutions []models.TaskSolution) ([]models.TaskSolutionChecker, error) {
		return planAssignments(task.ID, solutions, pairsCount, seed)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "distribution_failed")
		if errors.Is(err, repository.ErrAssignmentConflict) {
			return dto.DistributionResponse{}, ErrTaskBusy
		}
		return dto.DistributionResponse{}, fmt.Errorf("distribute cross-check: %w", err)
	}

	observability.AssignmentsCreated().Add(float64(len(created)))
	s.invalidateAssignments(ctx, task.ID, created)

	if len(created) > 0 {
		s.record(ctx, actor, models.ActionCrossCheckDistributed, task.ID, map[string]interface{}{
			"pairs_count": pairsCount,
			"created":     len(created),
		})
	}

	s.logger.Info().
		Uint("course_task_id", task.ID).
		Int("pairs_count", pairsCount).
		Int("created", len(created)).
		Msg("cross-check distributed")

	return dto.DistributionResponse{
		CourseTaskID: task.ID,
		PairsCount:   pairsCount,
		Created:      len(created),
		Pairs:        dto.NewPairResponses(created),
	}, nil
}

// Complete aggregates the collected reviews and publishes one score per reviewed student.
// Running it again recomputes and overwrites the published scores.
func (s *crossCheckService) Complete(ctx context.Context, actor ActivityActor, courseID, courseTaskID uint) (dto.CompletionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "crosscheck.complete", trace.WithAttributes(
		attribute.Int64("crosscheck.course_task_id", int64(courseTaskID)),
		attribute.Int64("crosscheck.actor_id", int64(actor.ID)),
		attribute.String("crosscheck.correlation_id", observability.CorrelationID(ctx)),
	))
	defer span.End()

	task, err := s.loadTask(ctx, courseID, courseTaskID)
	if err != nil {
		span.RecordError(err)
		return dto.CompletionResponse{}, err
	}

	release, err := s.locker.Acquire(ctx, task.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock_failed")
		return dto.CompletionResponse{}, err
	}
	defer s.release(release, task.ID)

	assignments, err := s.repos.CrossChecks.ListAssignments(ctx, task.ID)
	if err != nil {
		span.RecordError(err)
		return dto.CompletionResponse{}, err
	}

	reviews, err := s.repos.CrossChecks.ListReviews(ctx, task.ID)
	if err != nil {
		span.RecordError(err)
		return dto.CompletionResponse{}, err
	}

	required := requiredReviewCount(task.ReviewersPerSolution(s.options.DefaultPairsCount))
	span.SetAttributes(attribute.Int("crosscheck.required_reviews", required))

	scores, err := crosscheck.Aggregate(toAssignments(assignments), toReviews(reviews), required)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregation_failed")
		return dto.CompletionResponse{}, err
	}

	results, err := s.results.PublishBatch(ctx, task.ID, scores)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish_failed")
		return dto.CompletionResponse{}, err
	}

	s.record(ctx, actor, models.ActionCrossCheckCompleted, task.ID, map[string]interface{}{
		"required_reviews": required,
		"published":        len(results),
	})

	s.logger.Info().
		Uint("course_task_id", task.ID).
		Int("required_reviews", required).
		Int("published", len(results)).
		Msg("cross-check completed")

	return dto.CompletionResponse{
		CourseTaskID:    task.ID,
		RequiredReviews: required,
		Results:         results,
	}, nil
}

func (s *crossCheckService) Results(ctx context.Context, courseID, courseTaskID uint) ([]dto.TaskResultResponse, error) {
	task, err := s.loadTask(ctx, courseID, courseTaskID)
	if err != nil {
		return nil, err
	}

	return s.results.ListByTask(ctx, task.ID)
}

// Status derives the lifecycle state from the latest distribution or completion entry.
func (s *crossCheckService) Status(ctx context.Context, courseID, courseTaskID uint) (dto.CrossCheckStatusResponse, error) {
	task, err := s.loadTask(ctx, courseID, courseTaskID)
	if err != nil {
		return dto.CrossCheckStatusResponse{}, err
	}

	response := dto.CrossCheckStatusResponse{CourseTaskID: task.ID, State: CrossCheckStateOpen}
	if s.repos.Activity == nil {
		return response, nil
	}

	entry, err := s.repos.Activity.Latest(ctx, task.ID, models.ActionCrossCheckDistributed, models.ActionCrossCheckCompleted)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response, nil
		}
		return dto.CrossCheckStatusResponse{}, err
	}

	switch entry.Action {
	case models.ActionCrossCheckCompleted:
		response.State = CrossCheckStateCompleted
	case models.ActionCrossCheckDistributed:
		response.State = CrossCheckStateDistributed
	}
	changedAt := entry.CreatedAt
	response.ChangedAt = &changedAt

	return response, nil
}

func (s *crossCheckService) loadTask(ctx context.Context, courseID, courseTaskID uint) (models.CourseTask, error) {
	task, err := s.repos.Tasks.GetByID(ctx, courseTaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CourseTask{}, ErrTaskNotFound
		}
		return models.CourseTask{}, err
	}

	if task.CourseID != courseID {
		return models.CourseTask{}, ErrTaskNotFound
	}
	if !task.UsesCrossCheck() {
		return models.CourseTask{}, ErrInvalidTask
	}

	return task, nil
}

// studentFor resolves the student named in ref and checks the actor may act for them.
func (s *crossCheckService) studentFor(ctx context.Context, actor ActivityActor, ref StudentTaskRef) (models.Student, error) {
	student, err := s.studentByGithubID(ctx, ref.CourseID, ref.GithubID)
	if err != nil {
		return models.Student{}, err
	}

	if !isStaff(actor.Role) && student.UserID != actor.ID {
		return models.Student{}, ErrCrossCheckForbidden
	}

	return student, nil
}

// reviewParties resolves the actor's own student record as checker and ref as reviewee.
func (s *crossCheckService) reviewParties(ctx context.Context, actor ActivityActor, ref StudentTaskRef) (models.Student, models.Student, error) {
	reviewee, err := s.studentByGithubID(ctx, ref.CourseID, ref.GithubID)
	if err != nil {
		return models.Student{}, models.Student{}, err
	}

	checker, err := s.repos.Students.GetByUserID(ctx, ref.CourseID, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Student{}, models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, models.Student{}, err
	}

	return checker, reviewee, nil
}

func (s *crossCheckService) studentByGithubID(ctx context.Context, courseID uint, githubID string) (models.Student, error) {
	if strings.TrimSpace(githubID) == "" {
		return models.Student{}, ErrStudentNotFound
	}

	student, err := s.repos.Students.GetByGithubID(ctx, courseID, githubID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, err
	}

	return student, nil
}

func (s *crossCheckService) seedFor(courseTaskID uint) uint64 {
	if s.options.Seed != 0 {
		return s.options.Seed
	}
	return uint64(courseTaskID)
}

func (s *crossCheckService) release(release func(context.Context) error, courseTaskID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := release(ctx); err != nil {
		s.logger.Warn().Err(err).Uint("course_task_id", courseTaskID).Msg("failed to release task lock")
	}
}

func (s *crossCheckService) invalidateAssignments(ctx context.Context, courseTaskID uint, created []models.TaskSolutionChecker) {
	if s.cache == nil || len(created) == 0 {
		return
	}

	seen := make(map[uint]struct{})
	keys := make([]string, 0, len(created))
	for _, assignment := range created {
		if _, ok := seen[assignment.CheckerID]; ok {
			continue
		}
		seen[assignment.CheckerID] = struct{}{}
		keys = append(keys, assignmentsCacheKey(courseTaskID, assignment.CheckerID))
	}

	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate assignments cache")
	}
}

func (s *crossCheckService) record(ctx context.Context, actor ActivityActor, action string, courseTaskID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}

	if correlationID := observability.CorrelationID(ctx); correlationID != "" {
		if metadata == nil {
			metadata = map[string]interface{}{}
		}
		metadata["correlation_id"] = correlationID
	}

	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		Action:       action,
		CourseTaskID: courseTaskID,
		Metadata:     metadata,
	}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record cross-check activity")
	}
}

func planAssignments(courseTaskID uint, solutions []models.TaskSolution, pairsCount int, seed uint64) ([]models.TaskSolutionChecker, error) {
	solutionByStudent := make(map[uint]uint, len(solutions))
	candidates := make([]uint, 0, len(solutions))
	for _, solution := range solutions {
		solutionByStudent[solution.StudentID] = solution.ID
		candidates = append(candidates, solution.StudentID)
	}

	pairs, err := crosscheck.Distribute(candidates, pairsCount, seed)
	if err != nil {
		return nil, err
	}
	pairs = crosscheck.RestrictToStudents(pairs, solutionByStudent)

	assignments := make([]models.TaskSolutionChecker, 0, len(pairs))
	for _, pair := range pairs {
		assignments = append(assignments, models.TaskSolutionChecker{
			CourseTaskID:   courseTaskID,
			CheckerID:      pair.CheckerID,
			StudentID:      pair.StudentID,
			TaskSolutionID: solutionByStudent[pair.StudentID],
		})
	}

	return assignments, nil
}

// requiredReviewCount is the review quota a checker must meet for their scores to count.
// A non-positive pairs count yields zero, which aggregation rejects.
func requiredReviewCount(pairsCount int) int {
	if pairsCount <= 0 {
		return 0
	}
	return max(pairsCount-1, 1)
}

func toAssignments(items []models.TaskSolutionChecker) []crosscheck.Assignment {
	assignments := make([]crosscheck.Assignment, 0, len(items))
	for _, item := range items {
		assignments = append(assignments, crosscheck.Assignment{CheckerID: item.CheckerID, StudentID: item.StudentID})
	}
	return assignments
}

func toReviews(items []models.TaskSolutionResult) []crosscheck.Review {
	reviews := make([]crosscheck.Review, 0, len(items))
	for _, item := range items {
		reviews = append(reviews, crosscheck.Review{CheckerID: item.CheckerID, StudentID: item.StudentID, Score: item.Score})
	}
	return reviews
}

func assignmentsCacheKey(courseTaskID, checkerID uint) string {
	return fmt.Sprintf("crosscheck:assignments:%d:%d", courseTaskID, checkerID)
}

func isStaff(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case middleware.RoleAdmin, middleware.RoleTeacher:
		return true
	default:
		return false
	}
}
