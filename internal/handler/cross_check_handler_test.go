package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-crosscheck-api/internal/config"
	"github.com/noah-isme/gema-crosscheck-api/internal/crosscheck"
	"github.com/noah-isme/gema-crosscheck-api/internal/database"
	"github.com/noah-isme/gema-crosscheck-api/internal/dto"
	"github.com/noah-isme/gema-crosscheck-api/internal/handler"
	"github.com/noah-isme/gema-crosscheck-api/internal/middleware"
	"github.com/noah-isme/gema-crosscheck-api/internal/models"
	"github.com/noah-isme/gema-crosscheck-api/internal/repository"
	"github.com/noah-isme/gema-crosscheck-api/internal/router"
	"github.com/noah-isme/gema-crosscheck-api/internal/service"
	"github.com/noah-isme/gema-crosscheck-api/internal/utils"
)

const (
	testUserHeader = "X-Test-User"
	testRoleHeader = "X-Test-Role"
)

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

type crossCheckApp struct {
	app      *fiber.App
	db       *gorm.DB
	task     models.CourseTask
	students []models.Student
}

func setupCrossCheckApp(t *testing.T, studentCount, pairsCount int) *crossCheckApp {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	task := models.CourseTask{CourseID: 3, Name: "Songbird", Checker: models.CheckerCrossCheck, PairsCount: &pairsCount, MaxScore: 100}
	require.NoError(t, db.Create(&task).Error)

	students := make([]models.Student, 0, studentCount)
	for i := 0; i < studentCount; i++ {
		student := models.Student{
			CourseID:  3,
			UserID:    uint(500 + i),
			GithubID:  fmt.Sprintf("octo-%d", i),
			FirstName: "Octo",
			LastName:  strconv.Itoa(i),
		}
		require.NoError(t, db.Create(&student).Error)
		students = append(students, student)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	activityRepo := repository.NewActivityLogRepository(db)
	activityService := service.NewActivityService(activityRepo, validate, logger)
	results := service.NewTaskResultService(repository.NewTaskResultRepository(db), nil, 2, logger)
	crossCheckService := service.NewCrossCheckService(service.CrossCheckRepositories{
		Tasks:       repository.NewCourseTaskRepository(db),
		Students:    repository.NewStudentRepository(db),
		Solutions:   repository.NewTaskSolutionRepository(db),
		CrossChecks: repository.NewCrossCheckRepository(db),
		Activity:    activityRepo,
	}, results, service.NewTaskLocker(nil, time.Minute), nil, activityService, validate, service.CrossCheckOptions{
		DefaultPairsCount: 4,
		Seed:              11,
	}, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		CrossCheckHandler:      handler.NewCrossCheckHandler(crossCheckService, nil, logger),
		AdminCrossCheckHandler: handler.NewAdminCrossCheckHandler(crossCheckService, activityService, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			if id, err := strconv.ParseUint(c.Get(testUserHeader), 10, 64); err == nil {
				c.Locals("user_id", uint(id))
			}
			c.Locals("user_role", c.Get(testRoleHeader))
			return c.Next()
		},
		ExposeMetrics: true,
	})

	return &crossCheckApp{app: app, db: db, task: task, students: students}
}

func (a *crossCheckApp) studentPath(student models.Student, suffix string) string {
	return fmt.Sprintf("/api/v2/courses/3/students/%s/tasks/%d/cross-check/%s", student.GithubID, a.task.ID, suffix)
}

func (a *crossCheckApp) adminPath(suffix string) string {
	return fmt.Sprintf("/api/v2/admin/courses/3/tasks/%d/cross-check/%s", a.task.ID, suffix)
}

func (a *crossCheckApp) do(t *testing.T, method, path string, userID uint, role string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(testUserHeader, strconv.FormatUint(uint64(userID), 10))
	req.Header.Set(testRoleHeader, role)

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (a *crossCheckApp) asStudent(t *testing.T, method string, actor, target models.Student, suffix string, body interface{}) *http.Response {
	t.Helper()
	return a.do(t, method, a.studentPath(target, suffix), actor.UserID, "student", body)
}

func (a *crossCheckApp) asAdmin(t *testing.T, method, suffix string) *http.Response {
	t.Helper()
	return a.do(t, method, a.adminPath(suffix), 1, "admin", nil)
}

func (a *crossCheckApp) byGithub(t *testing.T, githubID string) models.Student {
	t.Helper()
	for _, student := range a.students {
		if student.GithubID == githubID {
			return student
		}
	}
	t.Fatalf("unknown github id %s", githubID)
	return models.Student{}
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func (a *crossCheckApp) submitAll(t *testing.T) {
	t.Helper()
	for _, student := range a.students {
		resp := a.asStudent(t, http.MethodPost, student, student, "solution", dto.SolutionRequest{
			URL: "https://github.com/" + student.GithubID + "/songbird",
		})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
}

func TestCrossCheckHandlerFullFlow(t *testing.T) {
	a := setupCrossCheckApp(t, 3, 2)
	a.submitAll(t)

	owner := a.students[0]
	resp := a.asStudent(t, http.MethodGet, owner, owner, "solution", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var solution envelope[dto.SolutionResponse]
	decodeResponse(t, resp, &solution)
	require.True(t, solution.Success)
	require.Equal(t, "https://github.com/octo-0/songbird", solution.Data.URL)

	resp = a.asAdmin(t, http.MethodPost, "distribution")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var distribution envelope[dto.DistributionResponse]
	decodeResponse(t, resp, &distribution)
	require.Equal(t, 6, distribution.Data.Created)

	for index, checker := range a.students {
		resp = a.asStudent(t, http.MethodGet, checker, checker, "assignments", nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var assignments envelope[[]dto.CrossCheckAssignmentResponse]
		decodeResponse(t, resp, &assignments)
		require.Len(t, assignments.Data, 2)

		for _, assignment := range assignments.Data {
			reviewee := a.byGithub(t, assignment.Student.GithubID)
			resp = a.asStudent(t, http.MethodPost, checker, reviewee, "result", map[string]interface{}{
				"score":   50 + 10*index,
				"comment": "reviewed by someone",
			})
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
			resp.Body.Close()
		}
	}

	resp = a.asStudent(t, http.MethodGet, a.students[1], a.students[0], "result", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var review envelope[dto.ReviewResponse]
	decodeResponse(t, resp, &review)
	require.Equal(t, 60, review.Data.Score)
	require.Len(t, review.Data.History, 1)

	resp = a.asStudent(t, http.MethodGet, owner, owner, "feedback", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var feedback envelope[dto.FeedbackResponse]
	decodeResponse(t, resp, &feedback)
	require.Len(t, feedback.Data.Comments, 2)

	resp = a.asAdmin(t, http.MethodPost, "completion")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var completion envelope[dto.CompletionResponse]
	decodeResponse(t, resp, &completion)
	require.Equal(t, 1, completion.Data.RequiredReviews)
	require.Len(t, completion.Data.Results, 3)

	resp = a.asAdmin(t, http.MethodGet, "results")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var results envelope[[]dto.TaskResultResponse]
	decodeResponse(t, resp, &results)
	scores := map[uint]int{}
	for _, result := range results.Data {
		scores[result.StudentID] = result.Score
		require.Equal(t, models.AutomatedAuthorID, result.AuthorID)
	}
	require.Equal(t, map[uint]int{
		a.students[0].ID: 70,
		a.students[1].ID: 70,
		a.students[2].ID: 60,
	}, scores)

	resp = a.asAdmin(t, http.MethodGet, "status")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var status envelope[dto.CrossCheckStatusResponse]
	decodeResponse(t, resp, &status)
	require.Equal(t, service.CrossCheckStateCompleted, status.Data.State)

	resp = a.do(t, http.MethodGet, a.adminPath("activity")+"?page=1&page_size=1", 1, "teacher", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var activity envelope[dto.ActivityListResponse]
	decodeResponse(t, resp, &activity)
	require.Len(t, activity.Data.Items, 1)
	require.Equal(t, int64(2), activity.Data.Pagination.TotalItems)
}

func TestCrossCheckHandlerErrorMapping(t *testing.T) {
	a := setupCrossCheckApp(t, 3, 2)
	owner, other := a.students[0], a.students[1]

	resp := a.asStudent(t, http.MethodGet, owner, owner, "solution", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = a.asStudent(t, http.MethodPost, owner, owner, "solution", dto.SolutionRequest{URL: "nope"})
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	var rejected struct {
		Success bool               `json:"success"`
		Details []utils.FieldError `json:"details"`
	}
	decodeResponse(t, resp, &rejected)
	require.False(t, rejected.Success)
	require.Equal(t, []utils.FieldError{{Field: "url", Rule: "url"}}, rejected.Details)

	resp = a.asStudent(t, http.MethodPost, other, owner, "solution", dto.SolutionRequest{URL: "https://github.com/x/y"})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	score := 40.0
	resp = a.asStudent(t, http.MethodPost, other, owner, "result", dto.ReviewRequest{Score: &score})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	var notAssigned envelope[any]
	decodeResponse(t, resp, &notAssigned)
	require.False(t, notAssigned.Success)
	require.Equal(t, service.ErrNotAssigned.Error(), notAssigned.Message)

	req := httptest.NewRequest(http.MethodPost, a.studentPath(owner, "result"), bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(testUserHeader, strconv.FormatUint(uint64(other.UserID), 10))
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	ghost := models.Student{GithubID: "ghost"}
	resp = a.do(t, http.MethodGet, a.studentPath(ghost, "feedback"), 1, "admin", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, http.MethodGet, "/api/v2/courses/3/students/octo-0/tasks/abc/cross-check/solution", owner.UserID, "student", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, http.MethodPost, "/api/v2/admin/courses/9/tasks/1/cross-check/distribution", 1, "admin", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, http.MethodPost, a.adminPath("distribution"), owner.UserID, "student", nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	mentorTask := models.CourseTask{CourseID: 3, Name: "Essay", Checker: models.CheckerMentor}
	require.NoError(t, a.db.Create(&mentorTask).Error)
	resp = a.do(t, http.MethodPost, fmt.Sprintf("/api/v2/admin/courses/3/tasks/%d/cross-check/completion", mentorTask.ID), 1, "admin", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	var invalid envelope[any]
	decodeResponse(t, resp, &invalid)
	require.Equal(t, service.ErrInvalidTask.Error(), invalid.Message)
}

func TestCrossCheckHandlerRejectsZeroPairsCount(t *testing.T) {
	a := setupCrossCheckApp(t, 3, 0)
	a.submitAll(t)

	for _, suffix := range []string{"distribution", "completion"} {
		resp := a.asAdmin(t, http.MethodPost, suffix)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, suffix)
		var rejected envelope[any]
		decodeResponse(t, resp, &rejected)
		require.False(t, rejected.Success)
		require.Contains(t, rejected.Message, crosscheck.ErrInvalidConfiguration.Error())
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	a := setupCrossCheckApp(t, 0, 2)

	resp, err := a.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "Test", resp.Header.Get("X-Application"))
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
	resp.Body.Close()

	resp = a.asAdmin(t, http.MethodGet, "status")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = a.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Contains(t, string(body), "crosscheck_requests_total")
}
