package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/NavaneethReddy332/TitaniumShare-sub000/internal/logger"
)

// Config contains S3 store configuration. Endpoint is optional; when set the
// client uses it with path-style addressing, which is what generic
// S3-compatible vendors expect.
type Config struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket" validate:"required"`

	// PresignTTL is the default validity for minted URLs. Default: 1h.
	PresignTTL time.Duration `mapstructure:"presign_ttl" yaml:"presign_ttl"`
}

func (c *Config) applyDefaults() {
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.PresignTTL == 0 {
		c.PresignTTL = time.Hour
	}
}

// retryConfig holds retry settings for S3 operations.
type retryConfig struct {
	maxAttempts       int           // total attempts including the first (default: 5)
	initialBackoff    time.Duration // first backoff duration (default: 100ms)
	maxBackoff        time.Duration // backoff cap (default: 5s)
	backoffMultiplier float64       // backoff growth factor (default: 2.0)
	attemptTimeout    time.Duration // per-attempt deadline (default: 30s)
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		maxAttempts:       5,
		initialBackoff:    100 * time.Millisecond,
		maxBackoff:        5 * time.Second,
		backoffMultiplier: 2.0,
		attemptTimeout:    30 * time.Second,
	}
}

// S3Store implements Store on Amazon S3 or any S3-compatible vendor.
//
// Transport errors are retried with exponential backoff up to the attempt
// bound; authentication errors abort immediately and surface as ErrAuth.
// Safe for concurrent use.
type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	ttl       time.Duration
	retry     retryConfig
}

// New builds an S3Store from config. The client is configured with static
// credentials, path-style addressing, and the configured endpoint; the AWS
// SDK's own retrier is disabled in favor of the adapter's retry loop so
// attempt counting and backoff stay in one place.
func New(ctx context.Context, cfg Config) (*S3Store, error) {
	cfg.applyDefaults()
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("blob: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
		awsconfig.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	)
	if err != nil {
		return nil, fmt.Errorf("blob: loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		ttl:       cfg.PresignTTL,
		retry:     defaultRetryConfig(),
	}, nil
}

// PresignPut mints a URL valid for a single PUT of the given content type.
// The signature covers the Content-Type header, so the uploaded object
// cannot be smuggled in under a different MIME.
func (s *S3Store) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(o *s3.PresignOptions) {
		o.Expires = ttl
	})
	if err != nil {
		return "", classify(fmt.Errorf("blob: presigning PUT for %s: %w", key, err))
	}
	return req.URL, nil
}

// PresignGet mints a URL valid for a single GET.
func (s *S3Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = ttl
	})
	if err != nil {
		return "", classify(fmt.Errorf("blob: presigning GET for %s: %w", key, err))
	}
	return req.URL, nil
}

// Put streams an object to the store. Used only by the bounded in-process
// multipart upload path; presigned PUTs carry everything else.
func (s *S3Store) Put(ctx context.Context, key, contentType string, size int64, body io.Reader) error {
	// No retry: the body reader cannot be rewound.
	attemptCtx, cancel := context.WithTimeout(ctx, s.retry.attemptTimeout)
	defer cancel()

	_, err := s.client.PutObject(attemptCtx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return classify(fmt.Errorf("blob: putting %s: %w", key, err))
	}
	return nil
}

// Delete removes an object. Idempotent: deleting an absent object succeeds.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	err := s.withRetry(ctx, "Delete", func(attemptCtx context.Context) error {
		_, err := s.client.DeleteObject(attemptCtx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		return err
	})
	if err != nil && isNotFound(err) {
		return nil
	}
	if err != nil {
		return classify(fmt.Errorf("blob: deleting %s: %w", key, err))
	}
	return nil
}

// Head returns object metadata, or (nil, nil) when the object is absent.
func (s *S3Store) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	var out *s3.HeadObjectOutput
	err := s.withRetry(ctx, "Head", func(attemptCtx context.Context) error {
		var err error
		out, err = s.client.HeadObject(attemptCtx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, classify(fmt.Errorf("blob: heading %s: %w", key, err))
	}

	info := &ObjectInfo{Key: key}
	if out.ContentLength != nil {
		info.Size = *out.ContentLength
	}
	if out.ContentType != nil {
		info.ContentType = *out.ContentType
	}
	if out.LastModified != nil {
		info.LastModified = *out.LastModified
	}
	return info, nil
}

// withRetry runs fn up to the attempt bound, backing off exponentially
// between transient failures. Auth errors, not-found, and context
// cancellation abort immediately.
func (s *S3Store) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	backoff := s.retry.initialBackoff
	var lastErr error

	for attempt := 1; attempt <= s.retry.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, s.retry.attemptTimeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if isAuthError(err) || isNotFound(err) || ctx.Err() != nil {
			return err
		}

		lastErr = err
		if attempt == s.retry.maxAttempts {
			break
		}

		logger.Warn("blob store operation failed, retrying",
			"op", op,
			logger.Bucket(s.bucket),
			logger.Attempt(attempt),
			logger.Err(err),
		)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = time.Duration(float64(backoff) * s.retry.backoffMultiplier)
		if backoff > s.retry.maxBackoff {
			backoff = s.retry.maxBackoff
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, s.retry.maxAttempts, lastErr)
}

// classify folds store auth failures into ErrAuth so the HTTP layer can
// distinguish fatal credential problems from transient upstream trouble.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isAuthError(err) {
		return fmt.Errorf("%w: %w", ErrAuth, err)
	}
	return err
}

// authErrorCodes are S3 error codes that indicate a credential or signature
// problem rather than a transient failure.
var authErrorCodes = map[string]bool{
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"AccessDenied":          true,
	"ExpiredToken":          true,
	"InvalidToken":          true,
}

func isAuthError(err error) bool {
	if errors.Is(err, ErrAuth) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && authErrorCodes[apiErr.ErrorCode()] {
		return true
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		status := respErr.HTTPStatusCode()
		return status == http.StatusUnauthorized || status == http.StatusForbidden
	}
	return false
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}
