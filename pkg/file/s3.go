package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/blogapi/pkg/logger"
)

// S3Client defines the interface for S3 operations used by S3Storage.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage implements Storage for Amazon S3 and S3-compatible services.
// References have the same "/<root>/<subfolder>/<name>" shape as LocalStorage;
// the object key is the reference without the leading slash.
// It is safe for concurrent use.
type S3Storage struct {
	client  S3Client
	bucket  string
	root    string
	baseURL string
	log     *slog.Logger
}

// S3Config contains configuration for S3 storage.
type S3Config struct {
	Bucket         string `env:"S3_BUCKET"`
	Region         string `env:"S3_REGION"`
	AccessKeyID    string `env:"S3_ACCESS_KEY_ID"`
	SecretKey      string `env:"S3_SECRET_KEY"`
	Endpoint       string `env:"S3_ENDPOINT"`                             // Optional: for S3-compatible services
	BaseURL        string `env:"S3_BASE_URL"`                             // Public URL base for serving files
	Root           string `env:"STORAGE_URL_ROOT" envDefault:"uploads"`   // First segment of every reference
	ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE" envDefault:"false"` // For S3-compatible services like MinIO
}

// S3Option defines a function that configures S3Storage.
type S3Option func(*s3Options)

// s3Options contains additional configuration options.
type s3Options struct {
	httpClient      *http.Client
	s3Client        S3Client
	s3ConfigOptions []func(*config.LoadOptions) error
	s3ClientOptions []func(*s3.Options)
	log             *slog.Logger
}

// WithS3Client sets a custom pre-configured S3 client.
// Useful for testing with mocks.
func WithS3Client(client S3Client) S3Option {
	return func(o *s3Options) {
		o.s3Client = client
	}
}

// WithHTTPClient sets a custom HTTP client for S3 requests.
func WithHTTPClient(client *http.Client) S3Option {
	return func(o *s3Options) {
		o.httpClient = client
	}
}

// WithS3ConfigOption adds a custom AWS config option.
func WithS3ConfigOption(option func(*config.LoadOptions) error) S3Option {
	return func(o *s3Options) {
		o.s3ConfigOptions = append(o.s3ConfigOptions, option)
	}
}

// WithS3ClientOption adds a custom S3 client option.
func WithS3ClientOption(option func(*s3.Options)) S3Option {
	return func(o *s3Options) {
		o.s3ClientOptions = append(o.s3ClientOptions, option)
	}
}

// WithS3Logger sets the logger used for storage events.
func WithS3Logger(l *slog.Logger) S3Option {
	return func(o *s3Options) {
		o.log = l
	}
}

// NewS3Storage creates a new S3 storage instance.
func NewS3Storage(ctx context.Context, cfg S3Config, opts ...S3Option) (*S3Storage, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ErrInvalidConfig
	}

	root := strings.Trim(cfg.Root, "/")
	if root == "" {
		root = DefaultRoot
	}
	if _, err := cleanSubfolder(root); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	options := &s3Options{}
	for _, opt := range opts {
		opt(options)
	}

	// If a pre-configured S3 client is provided, use it directly
	var client S3Client
	if options.s3Client != nil {
		client = options.s3Client
	} else {
		awsOptions := []func(*config.LoadOptions) error{
			config.WithRegion(cfg.Region),
		}

		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOptions = append(awsOptions,
				config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID,
					cfg.SecretKey,
					"",
				)),
			)
		}

		if options.httpClient != nil {
			awsOptions = append(awsOptions, config.WithHTTPClient(options.httpClient))
		}

		awsOptions = append(awsOptions, options.s3ConfigOptions...)

		awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToLoadConfig, err)
		}

		client = s3.NewFromConfig(awsConfig, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.ForcePathStyle

			for _, opt := range options.s3ClientOptions {
				opt(o)
			}
		})
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Endpoint != "" {
			baseURL = fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	log := options.log
	if log == nil {
		log = slog.Default()
	}

	return &S3Storage{
		client:  client,
		bucket:  cfg.Bucket,
		root:    root,
		baseURL: baseURL,
		log:     log,
	}, nil
}

// classifyS3Error converts S3 errors to domain-specific errors.
func classifyS3Error(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s operation", ErrOperationTimeout, operation)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s operation", ErrOperationCanceled, operation)
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: %s", ErrFileNotFound, err)
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %s", ErrFileNotFound, err)
	}

	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return ErrBucketNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch code {
		case "AccessDenied":
			return fmt.Errorf("%w: %s operation", ErrAccessDenied, operation)
		case "RequestTimeout":
			return fmt.Errorf("%w: %s operation", ErrRequestTimeout, operation)
		case "SlowDown", "ServiceUnavailable":
			return fmt.Errorf("%w: %s operation", ErrServiceUnavailable, operation)
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %s", ErrFileNotFound, err)
		case "NoSuchBucket":
			return ErrBucketNotFound
		default:
			// Include error code in message for debugging
			return fmt.Errorf("%s operation failed (code: %s): %w", operation, code, err)
		}
	}

	return fmt.Errorf("%s operation failed: %w", operation, err)
}

// Save uploads the content under a new unique key inside subfolder.
// A failed PutObject leaves no object behind, so there is nothing to clean up.
func (s *S3Storage) Save(ctx context.Context, u Upload, subfolder string) (*Object, error) {
	select {
	case <-ctx.Done():
		return nil, errors.Join(ErrStorageWrite, ctx.Err())
	default:
	}

	if u == nil {
		return nil, errors.Join(ErrStorageWrite, ErrFailedToOpenFile)
	}

	sub, err := cleanSubfolder(subfolder)
	if err != nil {
		return nil, errors.Join(ErrStorageWrite, err)
	}

	name := UniqueName(u.Filename())
	reference := referencePrefix(s.root) + sub + "/" + name

	src, err := u.Open()
	if err != nil {
		return nil, errors.Join(ErrStorageWrite, fmt.Errorf("%w: %v", ErrFailedToOpenFile, err))
	}
	defer func() { _ = src.Close() }()

	size, err := src.Seek(0, io.SeekEnd)
	if err == nil {
		_, err = src.Seek(0, io.SeekStart)
	}
	if err != nil {
		return nil, errors.Join(ErrStorageWrite, fmt.Errorf("%w: %v", ErrFailedToReadFile, err))
	}

	contentType := u.ContentType()
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// Detached from caller cancellation: an in-flight upload is not aborted.
	_, err = s.client.PutObject(context.WithoutCancel(ctx), &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey(reference)),
		Body:          src,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		err = classifyS3Error(err, "upload file")
		s.log.ErrorContext(ctx, "failed to save file", logger.Reference(reference), logger.Error(err))
		return nil, errors.Join(ErrStorageWrite, err)
	}

	s.log.InfoContext(ctx, "file saved",
		logger.Filename(u.Filename()),
		logger.Reference(reference),
		logger.Size(size),
	)

	return &Object{
		Reference:        reference,
		Name:             name,
		OriginalFilename: u.Filename(),
		ContentType:      u.ContentType(),
		Extension:        GetExtension(u),
		Size:             size,
	}, nil
}

// Delete removes the object behind reference. S3 deletes are idempotent, so a
// missing object is detected with HeadObject first to report DeleteMissing.
func (s *S3Storage) Delete(ctx context.Context, reference string) DeleteResult {
	res := DeleteResult{Reference: reference}

	if !s.IsLocal(reference) {
		res.Status = DeleteSkipped
		return res
	}
	if strings.Contains(reference, "..") {
		return s.deleteFailed(ctx, res, fmt.Errorf("%w: %s", ErrInvalidPath, reference))
	}

	key := objectKey(reference)

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		err = classifyS3Error(err, "check file")
		if errors.Is(err, ErrFileNotFound) {
			res.Status = DeleteMissing
			return res
		}
		return s.deleteFailed(ctx, res, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return s.deleteFailed(ctx, res, classifyS3Error(err, "delete file"))
	}

	s.log.InfoContext(ctx, "file deleted", logger.Reference(reference))
	res.Status = DeleteRemoved
	return res
}

func (s *S3Storage) deleteFailed(ctx context.Context, res DeleteResult, err error) DeleteResult {
	s.log.ErrorContext(ctx, "failed to delete file",
		logger.Reference(res.Reference),
		logger.Error(err),
	)
	res.Status = DeleteFailed
	res.Err = err
	return res
}

// URL returns the public URL for a reference.
// Foreign absolute URLs are returned unchanged.
func (s *S3Storage) URL(reference string) string {
	if reference == "" || isAbsoluteURL(reference) {
		return reference
	}
	return joinURL(s.baseURL, reference)
}

// IsLocal reports whether reference starts with "/<root>/".
func (s *S3Storage) IsLocal(reference string) bool {
	return hasReferencePrefix(reference, s.root)
}

func objectKey(reference string) string {
	return strings.TrimPrefix(reference, "/")
}
