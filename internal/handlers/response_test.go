package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/fitlink/fitlink-backend/internal/services"
)

func TestRespondServiceErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "validation", err: services.ValidationError("bad input"), wantStatus: http.StatusBadRequest, wantCode: "validation"},
		{name: "not found", err: services.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "conflict", err: services.ConflictError("lost the race"), wantStatus: http.StatusConflict, wantCode: "conflict"},
		{name: "forbidden transition", err: services.ForbiddenTransitionError("sent is terminal"), wantStatus: http.StatusUnprocessableEntity, wantCode: "forbidden_transition"},
		{name: "dependency unavailable", err: services.ErrDependencyUnavailable, wantStatus: http.StatusServiceUnavailable, wantCode: "dependency_unavailable"},
		{name: "unknown error", err: http.ErrServerClosed, wantStatus: http.StatusInternalServerError, wantCode: "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(recorder)

			RespondServiceError(c, tt.err)

			if recorder.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", recorder.Code, tt.wantStatus)
			}
			var envelope ErrorEnvelope
			if err := json.Unmarshal(recorder.Body.Bytes(), &envelope); err != nil {
				t.Fatalf("body unmarshal: %v", err)
			}
			if envelope.Error.Code != tt.wantCode {
				t.Fatalf("code = %q, want %q", envelope.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestRespondServiceErrorUndoWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	RespondServiceError(c, &services.UndoWindowError{ElapsedSeconds: 8.2, MaxSeconds: 5})

	if recorder.Code != http.StatusGone {
		t.Fatalf("status = %d, want 410", recorder.Code)
	}
	var envelope ErrorEnvelope
	if err := json.Unmarshal(recorder.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("body unmarshal: %v", err)
	}
	if envelope.Error.Code != "undo_window_expired" {
		t.Fatalf("code = %q", envelope.Error.Code)
	}
	if envelope.Error.ElapsedSeconds == nil || *envelope.Error.ElapsedSeconds != 8.2 {
		t.Fatalf("elapsed_seconds = %v, want 8.2", envelope.Error.ElapsedSeconds)
	}
	if envelope.Error.MaxSeconds == nil || *envelope.Error.MaxSeconds != 5 {
		t.Fatalf("max_seconds = %v, want 5", envelope.Error.MaxSeconds)
	}
}
