package httptransport

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"liveness-playground/internal/domain/liveness"
	"liveness-playground/internal/platform/errors"
)

// APIResponse is the envelope of every JSON reply.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func RespondSuccess(c *gin.Context, httpStatus int, data any, message string) {
	if message == "" {
		message = "ok"
	}
	c.JSON(httpStatus, APIResponse{
		Success: true,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

func RespondError(c *gin.Context, httpStatus int, message string, data any) {
	c.JSON(httpStatus, APIResponse{
		Success: false,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

// RespondErr maps err to a status by its kind and replies with its message.
func RespondErr(c *gin.Context, err error, data any) {
	_ = c.Error(err)
	RespondError(c, StatusFor(err), Message(err), data)
}

// StatusFor picks the HTTP status for an error kind.
func StatusFor(err error) int {
	if stderrors.Is(err, liveness.ErrBusy) {
		return http.StatusConflict
	}
	switch errors.KindOf(err) {
	case errors.KindValidation, errors.KindIngest:
		return http.StatusBadRequest
	case errors.KindRegistry:
		return http.StatusNotFound
	case errors.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing part of err.
func Message(err error) string {
	var typed *errors.Error
	if stderrors.As(err, &typed) {
		if typed.Cause != nil {
			return typed.Message + ": " + typed.Cause.Error()
		}
		return typed.Message
	}
	return err.Error()
}
