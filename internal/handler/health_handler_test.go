package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-crosscheck-api/internal/config"
	"github.com/noah-isme/gema-crosscheck-api/internal/handler"
)

func TestHealthCheckReportsDependencies(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	broken := func(context.Context) error { return errors.New("connection refused") }

	cases := []struct {
		name     string
		probes   []handler.HealthProbe
		status   int
		expected string
		deps     map[string]string
	}{
		{name: "no probes", status: fiber.StatusOK, expected: "ok"},
		{
			name:     "all healthy",
			probes:   []handler.HealthProbe{{Name: "postgres", Check: healthy}, {Name: "redis", Check: healthy}},
			status:   fiber.StatusOK,
			expected: "ok",
			deps:     map[string]string{"postgres": "ok", "redis": "ok"},
		},
		{
			name:     "redis down",
			probes:   []handler.HealthProbe{{Name: "postgres", Check: healthy}, {Name: "redis", Check: broken}},
			status:   fiber.StatusServiceUnavailable,
			expected: "degraded",
			deps:     map[string]string{"postgres": "ok", "redis": "connection refused"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/health", handler.HealthCheck(config.Config{AppName: "crosscheck", AppEnv: "test"}, tc.probes...))

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			var payload envelope[handler.HealthResponse]
			decodeResponse(t, resp, &payload)
			require.True(t, payload.Success)
			require.Equal(t, tc.expected, payload.Data.Status)
			require.Equal(t, "crosscheck", payload.Data.Service)
			require.Equal(t, "test", payload.Data.Environment)
			require.Equal(t, tc.deps, payload.Data.Dependencies)
		})
	}
}
