package utils

import (
	"errors"
	"net/http"
	"time"

	"swiftride/internal/models"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Status    string      `json:"status"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func SuccessResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Status:    StatusSuccess,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func CreatedResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Status:    StatusSuccess,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, APIResponse{
		Status: StatusError,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now(),
	})
}

// DomainErrorResponse maps the domain error taxonomy onto HTTP codes.
func DomainErrorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		ErrorResponse(c, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, models.ErrAlreadyClaimed):
		ErrorResponse(c, http.StatusConflict, CodeAlreadyClaimed, err.Error())
	case errors.Is(err, models.ErrInsufficientBalance):
		ErrorResponse(c, http.StatusUnprocessableEntity, CodeInsufficientBalance, err.Error())
	case errors.Is(err, models.ErrAlreadyProcessed):
		ErrorResponse(c, http.StatusConflict, CodeAlreadyProcessed, err.Error())
	case errors.Is(err, models.ErrPollingTimeout):
		ErrorResponse(c, http.StatusGatewayTimeout, CodePaymentTimeout, err.Error())
	case errors.Is(err, models.ErrInvalidRoute):
		ErrorResponse(c, http.StatusBadRequest, CodeInvalidRoute, err.Error())
	case errors.Is(err, models.ErrTerminalStatus):
		ErrorResponse(c, http.StatusConflict, CodeTerminalStatus, err.Error())
	case errors.Is(err, models.ErrDriverOffline):
		ErrorResponse(c, http.StatusConflict, CodeDriverOffline, err.Error())
	case errors.Is(err, models.ErrNotParticipant):
		ErrorResponse(c, http.StatusForbidden, CodeForbidden, err.Error())
	case errors.Is(err, models.ErrTransient):
		ErrorResponse(c, http.StatusServiceUnavailable, CodeTransient, err.Error())
	default:
		ErrorResponse(c, http.StatusInternalServerError, CodeInternal, err.Error())
	}
}
