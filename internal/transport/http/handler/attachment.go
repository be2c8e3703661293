package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"mentorchat/internal/app"
	"mentorchat/internal/transport/http/middleware"
	"mentorchat/internal/transport/http/response"
)

// maxUploadRequestSize leaves room for multipart framing around the largest
// accepted file.
const maxUploadRequestSize = app.MaxAttachmentSize + 1<<20

type AttachmentHandler struct {
	uploads *app.UploadService
}

func NewAttachmentHandler(uploads *app.UploadService) *AttachmentHandler {
	return &AttachmentHandler{uploads: uploads}
}

// Upload accepts a multipart form with "file" and an optional "bucket".
func (h *AttachmentHandler) Upload(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadRequestSize)
	fh, err := c.FormFile("file")
	if err != nil {
		writeFormFileError(c, err)
		return
	}

	f, meta, err := openUpload(fh)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to read uploaded file")
		return
	}
	defer f.Close()

	uploaded, err := h.uploads.Upload(c.Request.Context(), app.UploadInput{
		UserID: userID,
		Bucket: c.PostForm("bucket"),
		File:   meta,
		Body:   f,
	})
	if err != nil {
		writeServiceError(c, err, nil)
		return
	}

	response.OK(c, gin.H{
		"url":        uploaded.URL,
		"fileName":   uploaded.Name,
		"fileSize":   uploaded.SizeBytes,
		"fileType":   uploaded.MimeType,
		"storageKey": uploaded.StorageKey,
	})
}

// openUpload opens the multipart file and describes it. When the client sent
// no usable content type, the type is sniffed from the file head.
func openUpload(fh *multipart.FileHeader) (multipart.File, app.FileMeta, error) {
	meta := app.FileMeta{
		Name:      fh.Filename,
		SizeBytes: fh.Size,
		MimeType:  fh.Header.Get("Content-Type"),
	}
	f, err := fh.Open()
	if err != nil {
		return nil, meta, err
	}

	declared := app.NormalizeMimeType(meta.MimeType)
	if declared == "" || declared == "application/octet-stream" {
		detected, detectErr := mimetype.DetectReader(f)
		if detectErr != nil {
			_ = f.Close()
			return nil, meta, detectErr
		}
		if _, seekErr := f.Seek(0, io.SeekStart); seekErr != nil {
			_ = f.Close()
			return nil, meta, seekErr
		}
		meta.MimeType = detected.String()
	}
	return f, meta, nil
}

func writeFormFileError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), strings.Contains(err.Error(), "request body too large"):
		writeServiceError(c, &app.ValidationError{Reason: app.ReasonTooLarge}, nil)
	case errors.Is(err, http.ErrMissingFile):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file (form field 'file')")
	default:
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart form")
	}
}
