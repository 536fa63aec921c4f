package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bsanalyzer/internal/infrastructure"
)

var errCompanyMissing = stderrors.New("company folder not found")

func newTestHandler() *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false,
		Mapping{Target: errCompanyMissing, Status: http.StatusNotFound, Type: TypeNotFound},
	)
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantDetail string
	}{
		{
			name:       "api error keeps its message",
			err:        ErrPendingApproval,
			wantStatus: http.StatusUnauthorized,
			wantType:   TypeUnauthorized,
			wantDetail: "Account pending admin approval",
		},
		{
			name:       "wrapped api error",
			err:        fmt.Errorf("login: %w", ErrInvalidCredentials),
			wantStatus: http.StatusUnauthorized,
			wantType:   TypeUnauthorized,
			wantDetail: "Invalid credentials",
		},
		{
			name:       "mapped sentinel",
			err:        fmt.Errorf("read: %w", errCompanyMissing),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
			wantDetail: "company folder not found",
		},
		{
			name:       "deadline",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "unknown error hides its text",
			err:        stderrors.New("disk exploded"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantDetail: "An unexpected error occurred while processing your request",
		},
	}

	h := newTestHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/user/files", nil)
			req = req.WithContext(infrastructure.WithTraceID(req.Context(), "trace-1"))
			rec := httptest.NewRecorder()

			h.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, "trace-1", body["trace_id"])
			assert.Equal(t, "/api/user/files", body["instance"])
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, body["detail"])
				assert.Equal(t, tt.wantDetail, body["error"])
			}
		})
	}
}

func TestHandleErrorNil(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler().HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestAPIErrorDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler().HandleError(rec, httptest.NewRequest(http.MethodPost, "/api/register", nil),
		ErrValidation("company_id", "must not contain path separators"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "company_id", details["field"])
}

func TestHandlePanic(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler().HandlePanic(rec, httptest.NewRequest(http.MethodGet, "/boom", nil), "boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "An unexpected error occurred")
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/login", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "Method DELETE is not allowed")
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrAdminRequired)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Admin access required","error_code":"ADMIN_REQUIRED"}`, rec.Body.String())
}

func TestProblemDetailsMarshal(t *testing.T) {
	pd := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Bad Request", "", "").
		WithExtension("field", "username")

	data, err := json.Marshal(pd)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"/errors/validation","title":"Bad Request","status":400,"field":"username"}`, string(data))
}
