package app

import (
	"fmt"
	"mime"
	"strings"
)

// MaxAttachmentSize is the largest accepted attachment, 10 MiB.
const MaxAttachmentSize int64 = 10 << 20

var allowedMimeTypes = map[string]struct{}{
	"image/jpeg":         {},
	"image/png":          {},
	"image/gif":          {},
	"image/webp":         {},
	"application/pdf":    {},
	"text/plain":         {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
}

type FileMeta struct {
	Name      string
	SizeBytes int64
	MimeType  string
}

type ValidationReason string

const (
	ReasonTooLarge        ValidationReason = "too large"
	ReasonUnsupportedType ValidationReason = "unsupported type"
)

type ValidationError struct {
	Reason ValidationReason
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonTooLarge:
		return fmt.Sprintf("file too large: must not exceed %d MB", MaxAttachmentSize>>20)
	case ReasonUnsupportedType:
		return "unsupported file type: upload images, PDFs, plain text, Word or Excel documents"
	}
	return string(e.Reason)
}

// ValidateFile checks size and type before any I/O happens. Size is checked
// first, so an oversized file is reported as too large whatever its type.
func ValidateFile(meta FileMeta) error {
	if meta.SizeBytes > MaxAttachmentSize {
		return &ValidationError{Reason: ReasonTooLarge}
	}
	if !IsAllowedMimeType(meta.MimeType) {
		return &ValidationError{Reason: ReasonUnsupportedType}
	}
	return nil
}

func IsAllowedMimeType(mimeType string) bool {
	_, ok := allowedMimeTypes[NormalizeMimeType(mimeType)]
	return ok
}

// NormalizeMimeType lower-cases mimeType and strips parameters such as charset.
func NormalizeMimeType(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mediaType
	}
	return strings.ToLower(mimeType)
}
