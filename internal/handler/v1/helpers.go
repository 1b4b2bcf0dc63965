package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain/note"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/service"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/pkg/visitstore"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Code   string   `json:"code"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

func respondServiceError(c *gin.Context, err error) {
	_ = c.Error(err)

	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Code:   "VALIDATION_FAILED",
			Fields: validErr.Fields,
		})
		return
	}

	var failure *service.Failure
	if errors.As(err, &failure) {
		status := http.StatusBadGateway
		if failure.Kind == service.KindMissingVisitID {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, ErrorResponse{Error: failure.Message, Code: string(failure.Kind)})
		return
	}

	var storeErr *visitstore.Error
	switch {
	case errors.Is(err, note.ErrNoteNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "NOTE_NOT_FOUND"})

	case errors.Is(err, note.ErrEditInProgress),
		errors.Is(err, note.ErrSaveInProgress),
		errors.Is(err, note.ErrNoDraft),
		errors.Is(err, note.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "EDIT_STATE_CONFLICT"})

	case errors.Is(err, visitstore.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: visitstore.ErrUnavailable.Error(), Code: "STORE_UNAVAILABLE"})

	case errors.As(err, &storeErr):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: storeErr.Message, Code: "STORE_ERROR"})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}
