package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecouncil/pkg/errors"
	"tradecouncil/pkg/logger"
)

func ok(context.Context) error { return nil }

func down(context.Context) error { return errors.ErrUnavailable }

func serve(t *testing.T, handler http.HandlerFunc) (int, HealthStatus) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	return rec.Code, status
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		code   int
		status string
	}{
		{"no backends", nil, http.StatusOK, "healthy"},
		{"all up", map[string]Check{"redis": ok, "postgres": ok}, http.StatusOK, "healthy"},
		{"partial", map[string]Check{"redis": ok, "postgres": down}, http.StatusOK, "degraded"},
		{"all down", map[string]Check{"redis": down}, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(logger.NewNop(), "tradecouncil", "test", tt.checks)

			code, status := serve(t, h.HandleHealth)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, status.Status)
			assert.Len(t, status.Checks, len(tt.checks))
		})
	}
}

func TestHandleReadiness(t *testing.T) {
	h := New(logger.NewNop(), "tradecouncil", "test", map[string]Check{"redis": ok, "clickhouse": down})

	code, status := serve(t, h.HandleReadiness)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["redis"].Status)
	assert.Contains(t, status.Checks["clickhouse"].Error, "service unavailable")

	h = New(logger.NewNop(), "tradecouncil", "test", nil)
	code, _ = serve(t, h.HandleReadiness)
	assert.Equal(t, http.StatusOK, code)
}

func TestHandleLiveness(t *testing.T) {
	rec := httptest.NewRecorder()
	New(logger.NewNop(), "tradecouncil", "test", nil).HandleLiveness(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}
