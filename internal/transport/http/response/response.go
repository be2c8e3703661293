package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes returned next to the human-readable message.
const (
	CodeBadRequest        = "bad_request"
	CodeUnauthorized      = "unauthorized"
	CodeNotFound          = "not_found"
	CodeMethodNotAllowed  = "method_not_allowed"
	CodeValidation        = "validation_failed"
	CodeConflict          = "conflict"
	CodeUnavailable       = "service_unavailable"
	CodeUpstreamFailed    = "storage_write_failed"
	CodeWriteRejected     = "write_rejected"
	CodeInternalServer    = "internal_error"
	CodeUnsupportedFormat = "unsupported_type"
)

type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// OK writes {"success": true, ...fields}.
func OK(c *gin.Context, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

func Error(c *gin.Context, httpStatus int, code, message string) {
	c.JSON(httpStatus, ErrorBody{
		Success: false,
		Error:   message,
		Code:    code,
	})
}

// ErrorWith writes an error body carrying extra fields, e.g. the attachment
// that was stored before a later step failed.
func ErrorWith(c *gin.Context, httpStatus int, code, message string, fields gin.H) {
	body := gin.H{"success": false, "error": message, "code": code}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(httpStatus, body)
}
