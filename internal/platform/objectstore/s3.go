// Package objectstore stores chat attachments in an S3-compatible bucket
// (AWS S3, MinIO, Cloudflare R2).
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

var (
	// ErrObjectExists is returned when the key is already taken.
	ErrObjectExists = errors.New("object already exists")
	// ErrWriteRejected is returned when the store answered the write with an
	// error response.
	ErrWriteRejected = errors.New("object write rejected")
)

type Config struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	UsePathStyle  bool
}

type S3Store struct {
	client        *s3.Client
	publicBaseURL string
}

func New(ctx context.Context, cfg Config) (*S3Store, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("object store endpoint is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		config.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, fmt.Errorf("load object store config failed: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = cfg.UsePathStyle
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	base := cfg.PublicBaseURL
	if base == "" {
		base = cfg.Endpoint
	}
	return &S3Store{client: client, publicBaseURL: strings.TrimRight(base, "/")}, nil
}

// PutObject writes body under key with If-None-Match: *, so an existing object
// is never replaced.
func (s *S3Store) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("max-age=3600"),
		IfNoneMatch:   aws.String("*"),
	})
	if err != nil {
		return classifyPutError(err)
	}
	return nil
}

// PublicURL is derived from bucket and key alone.
func (s *S3Store) PublicURL(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.publicBaseURL + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}

// HeadBucket checks that bucket exists and the credentials can reach it.
func (s *S3Store) HeadBucket(ctx context.Context, bucket string) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return fmt.Errorf("head bucket %s failed: %w", bucket, err)
	}
	return nil
}

func classifyPutError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return fmt.Errorf("put object failed: %w: %w", ErrObjectExists, err)
		}
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		// Transport failures are wrapped too, without a response.
		if respErr.Response == nil || respErr.HTTPStatusCode() == 0 {
			return fmt.Errorf("put object failed: %w", err)
		}
		switch respErr.HTTPStatusCode() {
		case 409, 412:
			return fmt.Errorf("put object failed: %w: %w", ErrObjectExists, err)
		}
		return fmt.Errorf("put object failed: %w: %w", ErrWriteRejected, err)
	}
	if apiErr != nil {
		return fmt.Errorf("put object failed: %w: %w", ErrWriteRejected, err)
	}
	return fmt.Errorf("put object failed: %w", err)
}
