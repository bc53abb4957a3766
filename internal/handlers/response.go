package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fitlink/fitlink-backend/internal/services"
)

type APIError struct {
	Message        string   `json:"message"`
	Code           string   `json:"code,omitempty"`
	ElapsedSeconds *float64 `json:"elapsed_seconds,omitempty"`
	MaxSeconds     *float64 `json:"max_seconds,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondServiceError maps the engine's error taxonomy onto HTTP statuses.
// The expired undo window gets its own shape so the UI can tell the user how
// late they were.
func RespondServiceError(c *gin.Context, err error) {
	var uw *services.UndoWindowError
	if errors.As(err, &uw) {
		c.JSON(http.StatusGone, ErrorEnvelope{
			Error: APIError{
				Message:        uw.Error(),
				Code:           "undo_window_expired",
				ElapsedSeconds: &uw.ElapsedSeconds,
				MaxSeconds:     &uw.MaxSeconds,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrValidation):
		RespondError(c, http.StatusBadRequest, "validation", err)
	case errors.Is(err, services.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, services.ErrConflict):
		RespondError(c, http.StatusConflict, "conflict", err)
	case errors.Is(err, services.ErrForbiddenTransition):
		RespondError(c, http.StatusUnprocessableEntity, "forbidden_transition", err)
	case errors.Is(err, services.ErrDependencyUnavailable):
		RespondError(c, http.StatusServiceUnavailable, "dependency_unavailable", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
