// Package s3 stores uploaded files as objects in an S3-compatible bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awss3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/nimburion/taskboard/pkg/config"
	"github.com/nimburion/taskboard/pkg/observability/logger"
)

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Config defines S3 adapter configuration.
type Config struct {
	Bucket           string
	Region           string
	Endpoint         string
	Prefix           string
	AccessKeyID      string
	SecretAccessKey  string
	SessionToken     string
	UsePathStyle     bool
	OperationTimeout time.Duration
}

// ConfigFrom maps the s3 section of the service configuration.
func ConfigFrom(cfg config.S3Config) Config {
	return Config{
		Bucket:           cfg.Bucket,
		Region:           cfg.Region,
		Endpoint:         cfg.Endpoint,
		Prefix:           cfg.Prefix,
		AccessKeyID:      cfg.AccessKeyID,
		SecretAccessKey:  cfg.SecretAccessKey,
		SessionToken:     cfg.SessionToken,
		UsePathStyle:     cfg.UsePathStyle,
		OperationTimeout: cfg.OperationTimeout,
	}
}

// Object is a downloaded object. Callers must close Body.
type Object struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

type s3API interface {
	HeadBucket(ctx context.Context, params *awss3.HeadBucketInput, optFns ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// Adapter provides object storage operations backed by the AWS S3 API.
type Adapter struct {
	client s3API
	logger logger.Logger
	config Config

	mu     sync.RWMutex
	closed bool
}

// NewAdapter creates a new S3 adapter and verifies bucket accessibility.
func NewAdapter(cfg Config, log logger.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		return nil, errors.New("aws region is required")
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	adapter := newAdapter(client, cfg, log)

	ctx, cancel := adapter.withOperationTimeout(context.Background())
	defer cancel()
	if err := adapter.Ping(ctx); err != nil {
		return nil, err
	}

	log.Info("S3 adapter initialized", "bucket", cfg.Bucket, "region", cfg.Region, "endpoint", cfg.Endpoint)
	return adapter, nil
}

func newAdapter(client s3API, cfg Config, log logger.Logger) *Adapter {
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 30 * time.Second
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	return &Adapter{client: client, logger: log, config: cfg}
}

// Key returns the object key for name: "<prefix>/<name>", or name without a prefix.
func (a *Adapter) Key(name string) string {
	if a.config.Prefix == "" {
		return name
	}
	return path.Join(a.config.Prefix, name)
}

// Ping verifies that the configured bucket is accessible.
func (a *Adapter) Ping(ctx context.Context) error {
	if err := a.ensureOpen(); err != nil {
		return err
	}
	_, err := a.client.HeadBucket(ctx, &awss3.HeadBucketInput{
		Bucket: aws.String(a.config.Bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 ping failed: %w", err)
	}
	return nil
}

// Put stores body under the key of name.
func (a *Adapter) Put(ctx context.Context, name string, body io.Reader, contentType string) error {
	if err := a.ensureOpen(); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return errors.New("object name is required")
	}
	if body == nil {
		return errors.New("object body is required")
	}

	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()

	input := &awss3.PutObjectInput{
		Bucket: aws.String(a.config.Bucket),
		Key:    aws.String(a.Key(name)),
		Body:   body,
	}
	if strings.TrimSpace(contentType) != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := a.client.PutObject(opCtx, input); err != nil {
		return fmt.Errorf("failed to upload object %q: %w", name, err)
	}
	return nil
}

// Get opens the object stored under the key of name. The body stays
// readable after Get returns; only the request itself is bounded by the
// operation timeout.
func (a *Adapter) Get(ctx context.Context, name string) (*Object, error) {
	if err := a.ensureOpen(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("object name is required")
	}

	resp, err := a.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(a.config.Bucket),
		Key:    aws.String(a.Key(name)),
	})
	if err != nil {
		var noSuchKey *awss3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to download object %q: %w", name, err)
	}

	return &Object{
		Body:          resp.Body,
		ContentType:   aws.ToString(resp.ContentType),
		ContentLength: aws.ToInt64(resp.ContentLength),
	}, nil
}

// HealthCheck verifies the adapter can reach the bucket within a short timeout.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	hcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := a.Ping(hcCtx); err != nil {
		a.logger.Error("S3 health check failed", "error", err)
		return fmt.Errorf("s3 health check failed: %w", err)
	}
	return nil
}

// Close marks the adapter as closed.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

func (a *Adapter) withOperationTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.config.OperationTimeout)
}

func (a *Adapter) ensureOpen() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return errors.New("s3 adapter is closed")
	}
	return nil
}
