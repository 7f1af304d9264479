package response

import (
	"errors"
	"net/http"
	"time"

	"merchant-service/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

// SuccessResponse is the standard success envelope.
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id"`
	Timestamp string      `json:"timestamp"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	ErrorCode string         `json:"error_code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id"`
	Timestamp string         `json:"timestamp"`
}

// MessageData is the payload of acknowledgement responses.
type MessageData struct {
	Message string `json:"message"`
}

// Page is the paginated list payload.
type Page struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// OK sends a 200 response with data.
func OK(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, data)
}

// Created sends a 201 response with data.
func Created(c *gin.Context, data interface{}) {
	write(c, http.StatusCreated, data)
}

// Message sends a 200 response whose data is a single human-readable message.
func Message(c *gin.Context, msg string) {
	write(c, http.StatusOK, MessageData{Message: msg})
}

// Paginated sends a 200 response wrapping a page of results.
func Paginated(c *gin.Context, data interface{}, total int64, page, limit, totalPages int) {
	OK(c, Page{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	})
}

// Error sends an error response. *apperror.AppError values anywhere in the
// chain keep their code and status; anything else becomes SYS_001.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.New(apperror.CodeInternal, "Internal server error", http.StatusInternalServerError)
	}
	c.JSON(appErr.HTTPStatus, ErrorResponse{
		ErrorCode: appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: getRequestID(c),
		Timestamp: now(),
	})
}

// Abort writes the error response and stops the handler chain.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

func write(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: now(),
	})
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// getRequestID retrieves request ID from context, or generates one.
func getRequestID(c *gin.Context) string {
	if id, exists := c.Get("request_id"); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ulid.Make().String()
}
