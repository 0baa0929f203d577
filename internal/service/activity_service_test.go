package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-crosscheck-api/internal/dto"
	"github.com/noah-isme/gema-crosscheck-api/internal/models"
	"github.com/noah-isme/gema-crosscheck-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type memoryActivityRepo struct {
	entries []models.ActivityLog
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}

func (m *memoryActivityRepo) Latest(ctx context.Context, courseTaskID uint, actions ...string) (models.ActivityLog, error) {
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].CourseTaskID == courseTaskID {
			return m.entries[i], nil
		}
	}
	return models.ActivityLog{}, gorm.ErrRecordNotFound
}

func TestActivityServiceRecordMasksToken(t *testing.T) {
	repo := &memoryActivityRepo{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewActivityService(repo, validate, testLogger())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:      1,
		ActorRole:    "Admin",
		Action:       models.ActionCrossCheckDistributed,
		CourseTaskID: 5,
		Metadata: map[string]interface{}{
			"access_token": "secret",
			"created":      12,
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", entry.Metadata["access_token"])
	require.Equal(t, 12, entry.Metadata["created"])
	require.Equal(t, "admin", entry.ActorRole)
	require.Equal(t, uint(5), entry.CourseTaskID)

	_, err = svc.Record(context.Background(), ActivityEntry{Action: "  "})
	require.Error(t, err)

	_, err = svc.Record(context.Background(), ActivityEntry{Action: models.ActionCrossCheckCompleted})
	require.Error(t, err)
}

func TestActivityServiceListPaginates(t *testing.T) {
	repo := &memoryActivityRepo{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewActivityService(repo, validate, testLogger())

	for i := 0; i < 3; i++ {
		_, err := svc.Record(context.Background(), ActivityEntry{Action: models.ActionCrossCheckDistributed, CourseTaskID: 2})
		require.NoError(t, err)
	}

	list, err := svc.List(context.Background(), dto.ActivityListRequest{Page: 1, PageSize: 2, CourseTaskID: 2})
	require.NoError(t, err)
	require.Len(t, list.Items, 3)
	require.Equal(t, 2, list.Pagination.TotalPages)
	require.Equal(t, "system", list.Items[0].ActorRole)

	_, err = svc.List(context.Background(), dto.ActivityListRequest{CourseTaskID: 2, Action: "grade.updated"})
	require.Error(t, err)

	_, err = svc.List(context.Background(), dto.ActivityListRequest{})
	require.Error(t, err)
}
