package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mentorchat/internal/app"
	"mentorchat/internal/transport/http/response"
)

// writeServiceError maps service errors onto HTTP statuses. Validation
// problems are 400; dependency failures use the status matching their kind.
func writeServiceError(c *gin.Context, err error, extra gin.H) {
	status, code, message := statusFor(err)
	if extra != nil {
		response.ErrorWith(c, status, code, message, extra)
		return
	}
	response.Error(c, status, code, message)
}

func statusFor(err error) (int, string, string) {
	var (
		validationErr *app.ValidationError
		uploadErr     *app.UploadError
		persistErr    *app.PersistError
	)
	switch {
	case errors.As(err, &validationErr):
		code := response.CodeValidation
		if validationErr.Reason == app.ReasonUnsupportedType {
			code = response.CodeUnsupportedFormat
		}
		return http.StatusBadRequest, code, validationErr.Error()
	case errors.Is(err, app.ErrInvalidInput),
		errors.Is(err, app.ErrInvalidRole),
		errors.Is(err, app.ErrMessageEmpty),
		errors.Is(err, app.ErrInvalidLimit),
		errors.Is(err, app.ErrBucketNotAllowed):
		return http.StatusBadRequest, response.CodeBadRequest, err.Error()
	case errors.As(err, &uploadErr):
		switch uploadErr.Kind {
		case app.UploadUnconfigured:
			return http.StatusServiceUnavailable, response.CodeUnavailable, "file storage is not configured"
		case app.UploadConflict:
			return http.StatusConflict, response.CodeConflict, "a file with the same storage key already exists, please retry"
		case app.UploadWriteFailed:
			return http.StatusBadGateway, response.CodeUpstreamFailed, "file storage rejected the upload"
		default:
			return http.StatusInternalServerError, response.CodeInternalServer, "upload failed"
		}
	case errors.As(err, &persistErr):
		switch persistErr.Kind {
		case app.PersistConnectionFailed:
			return http.StatusServiceUnavailable, response.CodeUnavailable, "database connection failed"
		case app.PersistWriteRejected:
			return http.StatusUnprocessableEntity, response.CodeWriteRejected, "message was rejected by the database"
		default:
			return http.StatusInternalServerError, response.CodeInternalServer, "failed to save message"
		}
	}
	return http.StatusInternalServerError, response.CodeInternalServer, "internal error"
}
