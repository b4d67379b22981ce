package utils

import (
	"incidentwatch/models"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Success responses
func SuccessResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, models.APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func SuccessResponseWithMeta(c *gin.Context, message string, data interface{}, meta *models.MetaData) {
	c.JSON(http.StatusOK, models.APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Meta:      meta,
		Timestamp: time.Now(),
	})
}

func CreatedResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, models.APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func AcceptedResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusAccepted, models.APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// Error responses
func ErrorResponse(c *gin.Context, statusCode int, code, message string, details interface{}) {
	c.JSON(statusCode, models.APIResponse{
		Success: false,
		Message: message,
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now(),
	})
}

func BadRequestResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, models.ErrCodeValidation, message, nil)
}

func UnauthorizedResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Unauthorized access"
	}
	ErrorResponse(c, http.StatusUnauthorized, models.ErrCodeAuthentication, message, nil)
}

func NotFoundResponse(c *gin.Context, resource string) {
	ErrorResponse(c, http.StatusNotFound, models.ErrCodeNotFound, resource+" not found", nil)
}

func ConflictResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusConflict, models.ErrCodeConflict, message, nil)
}

func InternalServerErrorResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, models.ErrCodeInternal, message, nil)
}

// ServiceErrorResponse renders a ServiceError with its own status code and
// falls back to a 500 for everything else.
func ServiceErrorResponse(c *gin.Context, err error) {
	if se, ok := GetServiceError(err); ok {
		status := se.StatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		ErrorResponse(c, status, se.Code, se.Message, se.Details)
		return
	}
	InternalServerErrorResponse(c, "Internal server error")
}
