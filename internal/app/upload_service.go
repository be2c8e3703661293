package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"mentorchat/internal/logging"
	"mentorchat/internal/model"
	"mentorchat/internal/platform/objectstore"
)

// ObjectStore writes attachment blobs. PutObject must refuse to overwrite an
// existing key.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	PublicURL(bucket, key string) string
}

type UploadInput struct {
	UserID string
	Bucket string
	File   FileMeta
	Body   io.Reader
}

type UploadedFile struct {
	StorageKey string `json:"storage_key"`
	Bucket     string `json:"bucket"`
	URL        string `json:"url"`
	Name       string `json:"name"`
	SizeBytes  int64  `json:"size_bytes"`
	MimeType   string `json:"mime_type"`
}

func (f *UploadedFile) Attachment() *model.Attachment {
	return &model.Attachment{
		URL:       f.URL,
		Name:      f.Name,
		MimeType:  f.MimeType,
		SizeBytes: f.SizeBytes,
	}
}

type UploadService struct {
	store          ObjectStore
	defaultBucket  string
	allowedBuckets map[string]struct{}
	logger         *slog.Logger

	now   func() time.Time
	token func() string
}

// NewUploadService accepts a nil store; uploads then fail as unconfigured.
func NewUploadService(store ObjectStore, defaultBucket string, allowedBuckets []string, logger *slog.Logger) *UploadService {
	if logger == nil {
		logger = logging.Discard()
	}
	allowed := map[string]struct{}{defaultBucket: {}}
	for _, b := range allowedBuckets {
		allowed[b] = struct{}{}
	}
	return &UploadService{
		store:          store,
		defaultBucket:  defaultBucket,
		allowedBuckets: allowed,
		logger:         logger,
		now:            time.Now,
		token:          RandomToken,
	}
}

// Upload validates the file and writes it under a fresh storage key. Nothing
// is retried; a failure is returned as *ValidationError, *UploadError or an
// input error.
func (s *UploadService) Upload(ctx context.Context, in UploadInput) (*UploadedFile, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" || strings.ContainsAny(userID, `/\`) {
		return nil, ErrInvalidInput
	}
	if err := ValidateFile(in.File); err != nil {
		return nil, err
	}
	if in.Body == nil {
		return nil, ErrInvalidInput
	}

	log := logging.FromContext(ctx, s.logger)
	if s.store == nil {
		log.Error("upload attachment failed: object store not configured")
		return nil, &UploadError{Kind: UploadUnconfigured, Err: errors.New("object store not configured")}
	}

	bucket := strings.TrimSpace(in.Bucket)
	if bucket == "" {
		bucket = s.defaultBucket
	}
	if _, ok := s.allowedBuckets[bucket]; !ok {
		return nil, ErrBucketNotAllowed
	}

	mimeType := NormalizeMimeType(in.File.MimeType)
	key := StorageKey(userID, s.now(), s.token(), in.File.Name)
	if err := s.store.PutObject(ctx, bucket, key, in.Body, in.File.SizeBytes, mimeType); err != nil {
		uploadErr := classifyUploadError(err)
		if uploadErr.Kind == UploadConflict {
			log.Error("storage key collision", "bucket", bucket, "storage_key", key, "error", err)
		} else {
			log.Error("upload attachment failed", "kind", uploadErr.Kind.String(), "bucket", bucket, "storage_key", key, "error", err)
		}
		return nil, uploadErr
	}

	return &UploadedFile{
		StorageKey: key,
		Bucket:     bucket,
		URL:        s.store.PublicURL(bucket, key),
		Name:       in.File.Name,
		SizeBytes:  in.File.SizeBytes,
		MimeType:   mimeType,
	}, nil
}

func classifyUploadError(err error) *UploadError {
	switch {
	case errors.Is(err, objectstore.ErrObjectExists):
		return &UploadError{Kind: UploadConflict, Err: err}
	case errors.Is(err, objectstore.ErrWriteRejected):
		return &UploadError{Kind: UploadWriteFailed, Err: err}
	default:
		return &UploadError{Kind: UploadUnknown, Err: err}
	}
}

// StorageKey derives "<user>/<unix millis>-<token>.<ext>". The token keeps two
// uploads of one user in the same millisecond apart.
func StorageKey(userID string, at time.Time, token, fileName string) string {
	return fmt.Sprintf("%s/%d-%s.%s", userID, at.UnixMilli(), token, fileExtension(fileName))
}

// RandomToken returns 128 random bits as 32 hex characters.
func RandomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func fileExtension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return "bin"
	}
	var b strings.Builder
	for _, r := range strings.ToLower(name[idx+1:]) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "bin"
	}
	return b.String()
}
