package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3aws "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrymomot/renderkit/core/artifact"
)

// Compile-time check that S3Storage implements the artifact.Storage interface.
var _ artifact.Storage = (*S3Storage)(nil)

// S3Client defines the S3 operations S3Storage depends on.
// The AWS SDK client satisfies it; tests substitute mocks.
type S3Client interface {
	PutObject(ctx context.Context, params *s3aws.PutObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3aws.GetObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3aws.HeadObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3aws.DeleteObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.DeleteObjectOutput, error)
}

// S3Storage persists render artifacts to Amazon S3 or an S3-compatible
// service. Thread-safe with error classification into artifact package
// sentinels for backend-agnostic handling.
type S3Storage struct {
	client         S3Client
	bucket         string
	region         string        // AWS region for URL generation
	endpoint       string        // Custom endpoint for S3-compatible services
	baseURL        string        // Custom CDN or public URL base (if provided)
	forcePathStyle bool          // Required for MinIO and some S3-compatible services
	uploadTimeout  time.Duration // Optional timeout to prevent hanging uploads
}

// S3Config contains configuration for S3 artifact storage.
type S3Config struct {
	Bucket         string `env:"S3_BUCKET,required"`
	Region         string `env:"S3_REGION,required"`
	AccessKeyID    string `env:"S3_ACCESS_KEY_ID"`    // Optional - falls back to IAM roles/env vars
	SecretKey      string `env:"S3_SECRET_KEY"`       // Optional - falls back to IAM roles/env vars
	Endpoint       string `env:"S3_ENDPOINT"`         // For S3-compatible services like MinIO, Wasabi
	BaseURL        string `env:"S3_BASE_URL"`         // Custom CDN or public URL base (auto-generated if empty)
	ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE"` // Required for MinIO and some S3-compatible services
}

// S3Option configures optional S3Storage behavior.
type S3Option func(*s3Options)

// s3Options collects construction-time overrides.
type s3Options struct {
	httpClient      *http.Client
	s3Client        S3Client
	s3ConfigOptions []func(*config.LoadOptions) error
	s3ClientOptions []func(*s3aws.Options)
	uploadTimeout   time.Duration
}

// WithS3Client injects a pre-built S3 client, bypassing AWS config loading.
// Tests use this to swap in a mock.
func WithS3Client(client S3Client) S3Option {
	return func(o *s3Options) {
		o.s3Client = client
	}
}

// WithHTTPClient overrides the HTTP client used for S3 requests, for callers
// that need proxy, TLS, or timeout control.
func WithHTTPClient(client *http.Client) S3Option {
	return func(o *s3Options) {
		o.httpClient = client
	}
}

// WithS3ConfigOption appends a raw AWS config load option.
func WithS3ConfigOption(option func(*config.LoadOptions) error) S3Option {
	return func(o *s3Options) {
		o.s3ConfigOptions = append(o.s3ConfigOptions, option)
	}
}

// WithS3ClientOption appends a raw S3 client option.
func WithS3ClientOption(option func(*s3aws.Options)) S3Option {
	return func(o *s3Options) {
		o.s3ClientOptions = append(o.s3ClientOptions, option)
	}
}

// WithS3UploadTimeout caps how long a single artifact upload may take.
// Rendered videos are large; without a cap a stalled upload holds its
// worker slot until the caller's context expires.
func WithS3UploadTimeout(timeout time.Duration) S3Option {
	return func(o *s3Options) {
		o.uploadTimeout = timeout
	}
}

// New creates a new S3 artifact storage instance.
// Auto-generates public URLs if no base URL is provided, supports both
// AWS S3 and S3-compatible services.
func New(ctx context.Context, cfg S3Config, opts ...S3Option) (*S3Storage, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("%w: bucket and region are required", artifact.ErrInvalidConfig)
	}

	options := &s3Options{}
	for _, opt := range opts {
		opt(options)
	}

	var client S3Client
	if options.s3Client != nil {
		client = options.s3Client
	} else {
		awsOptions := []func(*config.LoadOptions) error{
			config.WithRegion(cfg.Region),
		}

		// Static credentials when configured; otherwise the SDK resolves
		// IAM roles or environment variables on its own.
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
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		client = s3aws.NewFromConfig(awsConfig, func(o *s3aws.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.ForcePathStyle

			for _, opt := range options.s3ClientOptions {
				opt(o)
			}
		})
	}

	return &S3Storage{
		client:         client,
		bucket:         cfg.Bucket,
		region:         cfg.Region,
		endpoint:       cfg.Endpoint,
		baseURL:        cfg.BaseURL,
		forcePathStyle: cfg.ForcePathStyle,
		uploadTimeout:  options.uploadTimeout,
	}, nil
}

// Upload stores the contents of r under key with the given content type.
// Size is forwarded as the S3 content length when non-negative, which lets
// non-seekable readers stream without client-side buffering.
func (s *S3Storage) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (artifact.Artifact, error) {
	key, err := artifact.CleanKey(key)
	if err != nil {
		return artifact.Artifact{}, err
	}

	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}

	if contentType == "" {
		contentType = "application/octet-stream" // Safe fallback for unknown types
	}

	input := &s3aws.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType), // Important for proper browser handling
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return artifact.Artifact{}, errors.Join(artifact.ErrUploadFailed, classifyS3Error(err, "upload artifact"))
	}

	return artifact.Artifact{
		Key:         key,
		URL:         s.URL(key),
		Size:        size,
		ContentType: contentType,
		CreatedAt:   time.Now(),
	}, nil
}

// Get returns a reader over the stored artifact.
// The caller owns the returned reader and must close it.
func (s *S3Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	key, err := artifact.CleanKey(key)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.GetObject(ctx, &s3aws.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classifyS3Error(err, "get artifact")
	}

	return resp.Body, nil
}

// Delete removes a single artifact from S3.
// Verifies existence before deletion so missing keys consistently surface
// artifact.ErrNotFound across backends.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	key, err := artifact.CleanKey(key)
	if err != nil {
		return err
	}

	if _, err := s.client.HeadObject(ctx, &s3aws.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return classifyS3Error(err, "check artifact")
	}

	if _, err := s.client.DeleteObject(ctx, &s3aws.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return classifyS3Error(err, "delete artifact")
	}

	return nil
}

// Exists reports whether an object is stored under key.
func (s *S3Storage) Exists(ctx context.Context, key string) (bool, error) {
	key, err := artifact.CleanKey(key)
	if err != nil {
		return false, err
	}

	if _, err := s.client.HeadObject(ctx, &s3aws.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		classified := classifyS3Error(err, "check artifact")
		if errors.Is(classified, artifact.ErrNotFound) {
			return false, nil
		}
		return false, classified
	}

	return true, nil
}

// URL returns the public URL for an artifact key. A configured BaseURL (a
// CDN, typically) wins; otherwise the URL is derived from the endpoint or
// the standard AWS host, path-style or virtual-hosted per ForcePathStyle.
func (s *S3Storage) URL(key string) string {
	key = strings.TrimPrefix(key, "/")

	if s.baseURL != "" {
		// Exactly one slash between base URL and key.
		base := strings.TrimSuffix(s.baseURL, "/")
		return base + "/" + key
	}

	// S3-compatible service behind a custom endpoint (MinIO, Wasabi).
	if s.endpoint != "" {
		endpoint := strings.TrimSuffix(s.endpoint, "/")
		protocol := "https://"
		if after, ok := strings.CutPrefix(endpoint, "http://"); ok {
			protocol = "http://"
			endpoint = after
		} else if after, ok := strings.CutPrefix(endpoint, "https://"); ok {
			endpoint = after
		}

		if s.forcePathStyle {
			// Path-style: {endpoint}/{bucket}/{key}
			return fmt.Sprintf("%s%s/%s/%s", protocol, endpoint, s.bucket, key)
		}
		// Virtual-hosted-style: {bucket}.{endpoint}/{key}
		return fmt.Sprintf("%s%s.%s/%s", protocol, s.bucket, endpoint, key)
	}

	// Plain AWS S3.
	if s.forcePathStyle {
		// Path-style: https://s3.{region}.amazonaws.com/{bucket}/{key}
		return fmt.Sprintf("https://s3.%s.amazonaws.com/%s/%s", s.region, s.bucket, key)
	}
	// Virtual-hosted-style: https://{bucket}.s3.{region}.amazonaws.com/{key}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
