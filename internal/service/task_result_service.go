package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/gema-crosscheck-api/internal/crosscheck"
	"github.com/noah-isme/gema-crosscheck-api/internal/dto"
	"github.com/noah-isme/gema-crosscheck-api/internal/models"
	"github.com/noah-isme/gema-crosscheck-api/internal/observability"
	"github.com/noah-isme/gema-crosscheck-api/internal/repository"
)

// CrossCheckScoreComment is attached to every automatically published cross-check score.
const CrossCheckScoreComment = "Cross-Check score"

const defaultPublishConcurrency = 8

// TaskResultService publishes final task grades.
type TaskResultService interface {
	PublishBatch(ctx context.Context, courseTaskID uint, scores []crosscheck.FinalScore) ([]dto.TaskResultResponse, error)
	ListByTask(ctx context.Context, courseTaskID uint) ([]dto.TaskResultResponse, error)
}

type taskResultService struct {
	repo        repository.TaskResultRepository
	events      ScoreEventPublisher
	concurrency int
	logger      zerolog.Logger
	now         func() time.Time
}

// NewTaskResultService constructs the score publisher. events may be nil.
func NewTaskResultService(repo repository.TaskResultRepository, events ScoreEventPublisher, concurrency int, logger zerolog.Logger) TaskResultService {
	if concurrency <= 0 {
		concurrency = defaultPublishConcurrency
	}

	return &taskResultService{
		repo:        repo,
		events:      events,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "task_result_service").Logger(),
		now:         time.Now,
	}
}

// PublishBatch stores every score in one transaction, then notifies listeners.
// Nothing is written when any update fails.
func (s *taskResultService) PublishBatch(ctx context.Context, courseTaskID uint, scores []crosscheck.FinalScore) ([]dto.TaskResultResponse, error) {
	publishedAt := s.now().UTC().UnixMilli()

	updates := make([]repository.ScoreUpdate, 0, len(scores))
	for _, score := range scores {
		updates = append(updates, repository.ScoreUpdate{
			StudentID: score.StudentID,
			Revision: models.ScoreRevision{
				Score:    score.Score,
				Comment:  CrossCheckScoreComment,
				AuthorID: models.AutomatedAuthorID,
				DateTime: publishedAt,
			},
		})
	}

	saved, err := s.repo.SaveScores(ctx, courseTaskID, updates)
	if err != nil {
		return nil, fmt.Errorf("publish cross-check scores: %w", err)
	}

	observability.ScoresPublished().Add(float64(len(saved)))

	responses := dto.NewTaskResultResponseSlice(saved)
	s.notify(ctx, responses)

	return responses, nil
}

func (s *taskResultService) ListByTask(ctx context.Context, courseTaskID uint) ([]dto.TaskResultResponse, error) {
	results, err := s.repo.ListByTask(ctx, courseTaskID)
	if err != nil {
		return nil, err
	}

	return dto.NewTaskResultResponseSlice(results), nil
}

func (s *taskResultService) notify(ctx context.Context, results []dto.TaskResultResponse) {
	if s.events == nil || len(results) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, result := range results {
		g.Go(func() error {
			if err := s.events.Publish(gctx, result); err != nil {
				s.logger.Warn().
					Err(err).
					Uint("course_task_id", result.CourseTaskID).
					Uint("student_id", result.StudentID).
					Msg("failed to publish score event")
			}
			return nil
		})
	}

	_ = g.Wait()
}
